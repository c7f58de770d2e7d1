package models

import "time"

// Station identifies an airport and its position.
type Station struct {
	IATA string  `json:"iata" yaml:"iata"`
	ICAO string  `json:"icao" yaml:"icao"`
	Lat  float64 `json:"lat" yaml:"lat"`
	Lon  float64 `json:"lon" yaml:"lon"`
}

// BoundingBox is a lat/lon region.
type BoundingBox struct {
	LatMin float64 `json:"lat_min" yaml:"lat_min"`
	LonMin float64 `json:"lon_min" yaml:"lon_min"`
	LatMax float64 `json:"lat_max" yaml:"lat_max"`
	LonMax float64 `json:"lon_max" yaml:"lon_max"`
}

// Contains reports whether the point lies inside the box.
func (b BoundingBox) Contains(lat, lon float64) bool {
	return lat >= b.LatMin && lat <= b.LatMax && lon >= b.LonMin && lon <= b.LonMax
}

// HealthStatus is the result of a connection test.
type HealthStatus struct {
	Source    string        `json:"source"`
	Available bool          `json:"available"`
	Healthy   bool          `json:"healthy"`
	Latency   time.Duration `json:"latency_ms"`
	Detail    string        `json:"detail,omitempty"`
	CheckedAt time.Time     `json:"checked_at"`
}

// FlightSummary describes daily traffic at a station.
type FlightSummary struct {
	Station         string   `json:"station"`
	Departures      int      `json:"departures"`
	Arrivals        int      `json:"arrivals"`
	DailyOperations int      `json:"daily_operations"`
	Destinations    []string `json:"destinations"`
	Airlines        []string `json:"airlines"`
}

// Route is a scheduled origin/destination pair.
type Route struct {
	Origin      string `json:"origin"`
	Destination string `json:"destination"`
	Airline     string `json:"airline"`
}

// DelayReason is a provider supplied delay cause.
type DelayReason struct {
	Category  string `json:"category"`
	Color     string `json:"color"`
	DelaySecs int    `json:"delay_secs"`
	Reason    string `json:"reason"`
}

// DelayStats describes punctuality at a station.
type DelayStats struct {
	Station         string        `json:"station"`
	OnTimePct       float64       `json:"on_time_pct"`
	AvgDelayMinutes float64       `json:"avg_delay_minutes"`
	Color           string        `json:"color,omitempty"`
	Category        string        `json:"category,omitempty"`
	Reasons         []DelayReason `json:"reasons,omitempty"`
}

// FlightImpact is the weather impact on operations.
type FlightImpact string

const (
	ImpactMinimal  FlightImpact = "minimal"
	ImpactModerate FlightImpact = "moderate"
	ImpactHigh     FlightImpact = "high"
)

// WeatherReport describes current conditions and their operational effect.
type WeatherReport struct {
	Station         string       `json:"station"`
	TemperatureC    float64      `json:"temperature_c"`
	Humidity        int          `json:"humidity"`
	VisibilityKm    float64      `json:"visibility_km"`
	WindSpeed       float64      `json:"wind_speed"`
	WindGust        float64      `json:"wind_gust"`
	Condition       string       `json:"condition"`
	Description     string       `json:"description"`
	Overall         string       `json:"overall"`
	Impact          FlightImpact `json:"impact"`
	Score           float64      `json:"score"`
	MeetsStandards  bool         `json:"meets_standards"`
	ProviderVersion string       `json:"provider_version,omitempty"`
}

// ActivityLevel classifies airspace activity.
type ActivityLevel string

const (
	ActivityNone     ActivityLevel = "none"
	ActivityLow      ActivityLevel = "low"
	ActivityModerate ActivityLevel = "moderate"
	ActivityHigh     ActivityLevel = "high"
)

// AreaActivity describes aircraft observed in a region.
type AreaActivity struct {
	TotalAircraft   int           `json:"total_aircraft"`
	RelatedAircraft int           `json:"related_aircraft"`
	Departures      int           `json:"departures"`
	Arrivals        int           `json:"arrivals"`
	Overflights     int           `json:"overflights"`
	Score           float64       `json:"score"`
	Level           ActivityLevel `json:"level"`
}

// ReferenceStats are the official figures used for strategic and economic KPIs.
type ReferenceStats struct {
	Year                   int     `json:"year"`
	Passengers             int     `json:"passengers"`
	NationalPassengers     int     `json:"national_passengers"`
	PassengerGrowthPct     float64 `json:"passenger_growth_pct"`
	PreviousGrowthPct      float64 `json:"previous_growth_pct"`
	MarketSharePct         float64 `json:"market_share_pct"`
	ProjectedPassengers    int     `json:"projected_passengers"`
	Satisfaction           float64 `json:"satisfaction"`
	NationalRanking        int     `json:"national_ranking"`
	ActiveGates            int     `json:"active_gates"`
	TotalGates             int     `json:"total_gates"`
	GateUtilizationPct     float64 `json:"gate_utilization_pct"`
	PassengersPerGate      float64 `json:"passengers_per_gate"`
	InvestmentMXNMillions  float64 `json:"investment_mxn_millions"`
	JobsGenerated          int     `json:"jobs_generated"`
	DirectSpillover        float64 `json:"direct_spillover"`
	IndirectSpillover      float64 `json:"indirect_spillover"`
	TotalSpillover         float64 `json:"total_spillover"`
	InvestmentPerPassenger float64 `json:"investment_per_passenger"`
}
