package usecase

import (
	"AeroPulse/internal/domain/models"
)

// Source slots of a cycle, in reporting order.
const (
	slotTraffic     = "traffic"
	slotPunctuality = "punctuality"
	slotWeather     = "weather"
	slotAircraft    = "aircraft"
	slotGovStats    = "gov_stats"
)

var slots = []string{slotTraffic, slotPunctuality, slotWeather, slotAircraft, slotGovStats}

// cycleData is everything one cycle fetched, fallbacks already applied.
type cycleData struct {
	traffic   models.FlightSummary
	delays    models.DelayStats
	weather   models.WeatherReport
	activity  models.AreaActivity
	stats     models.ReferenceStats
	precision map[string]models.Precision
}

type kpiDef struct {
	id            string
	name          string
	category      models.Category
	unit          string
	target        float64
	lowerIsBetter bool
	slot          string
	value         func(d *cycleData) float64
	action        string
}

var catalog = []kpiDef{
	{
		id: "KPI_001", name: "National passenger share", category: models.CategoryStrategic,
		unit: "%", target: 1.8, slot: slotGovStats,
		value:  func(d *cycleData) float64 { return d.stats.MarketSharePct },
		action: "Pursue new domestic routes with low-cost carriers to raise national passenger share",
	},
	{
		id: "KPI_002", name: "Annual passenger growth", category: models.CategoryStrategic,
		unit: "%", target: 8.5, slot: slotGovStats,
		value:  func(d *cycleData) float64 { return d.stats.PassengerGrowthPct },
		action: "Sustain passenger growth with airline incentives and destination marketing",
	},
	{
		id: "KPI_003", name: "National ranking position", category: models.CategoryStrategic,
		unit: "position", target: 8, lowerIsBetter: true, slot: slotGovStats,
		value:  func(d *cycleData) float64 { return float64(d.stats.NationalRanking) },
		action: "Add frequencies on high-demand routes to overtake higher ranked airports",
	},
	{
		id: "KPI_004", name: "Gate utilization", category: models.CategoryOperational,
		unit: "%", target: 70, slot: slotGovStats,
		value:  func(d *cycleData) float64 { return d.stats.GateUtilizationPct },
		action: "Offer idle gates to new carriers and cargo operators",
	},
	{
		id: "KPI_005", name: "Daily operations", category: models.CategoryOperational,
		unit: "operations", target: 45, slot: slotTraffic,
		value:  func(d *cycleData) float64 { return float64(d.traffic.DailyOperations) },
		action: "Negotiate additional daily frequencies with current carriers",
	},
	{
		id: "KPI_006", name: "On-time performance", category: models.CategoryOperational,
		unit: "%", target: 85, slot: slotPunctuality,
		value:  func(d *cycleData) float64 { return d.delays.OnTimePct },
		action: "Review turnaround processes with airlines to improve punctuality",
	},
	{
		id: "KPI_007", name: "Average delay", category: models.CategoryOperational,
		unit: "minutes", target: 10, lowerIsBetter: true, slot: slotPunctuality,
		value:  func(d *cycleData) float64 { return d.delays.AvgDelayMinutes },
		action: "Coordinate slot sequencing with air traffic control to cut delays",
	},
	{
		id: "KPI_008", name: "Weather operating conditions", category: models.CategoryOperational,
		unit: "score", target: 90, slot: slotWeather,
		value:  func(d *cycleData) float64 { return d.weather.Score },
		action: "Activate low-visibility procedures and weather contingency plans",
	},
	{
		id: "KPI_009", name: "Airspace activity", category: models.CategoryOperational,
		unit: "score", target: 50, slot: slotAircraft,
		value:  func(d *cycleData) float64 { return d.activity.Score },
		action: "Court carriers overflying the area to convert traffic into operations",
	},
	{
		id: "KPI_010", name: "Annual economic spillover", category: models.CategoryEconomic,
		unit: "MXN millions", target: 50000, slot: slotGovStats,
		value:  func(d *cycleData) float64 { return d.stats.TotalSpillover },
		action: "Strengthen ground transport links to widen regional spillover",
	},
	{
		id: "KPI_011", name: "Jobs generated", category: models.CategoryEconomic,
		unit: "jobs", target: 12000, slot: slotGovStats,
		value:  func(d *cycleData) float64 { return float64(d.stats.JobsGenerated) },
		action: "Expand commercial concessions and logistics operations",
	},
	{
		id: "KPI_012", name: "Investment per passenger", category: models.CategoryEconomic,
		unit: "MXN", target: 10000, lowerIsBetter: true, slot: slotGovStats,
		value:  func(d *cycleData) float64 { return d.stats.InvestmentPerPassenger },
		action: "Grow passenger volume to dilute investment per passenger",
	},
}

const onTargetRecommendation = "All KPIs are on target; keep the current operating plan"

// Last-resort values for a source that produced nothing in time.
func lastResort(station models.Station) cycleData {
	return cycleData{
		traffic: models.FlightSummary{
			Station: station.IATA, Departures: 23, Arrivals: 22, DailyOperations: 45,
			Destinations: []string{"CUN", "GDL", "TIJ", "MTY", "VER"},
			Airlines:     []string{"VivaAerobus", "Volaris", "Aeromexico"},
		},
		delays: models.DelayStats{Station: station.IATA, OnTimePct: 87.2, AvgDelayMinutes: 8.5},
		weather: models.WeatherReport{
			Station: station.IATA, TemperatureC: 22, VisibilityKm: 10, WindSpeed: 3.5,
			Condition: "Clear", Overall: "good", Impact: models.ImpactMinimal, Score: 100, MeetsStandards: true,
		},
		activity: models.AreaActivity{
			TotalAircraft: 15, RelatedAircraft: 3, Departures: 1, Arrivals: 2, Overflights: 12,
			Score: 80, Level: models.ActivityHigh,
		},
		stats: models.ReferenceStats{
			Year: 2024, Passengers: 6_348_000, NationalPassengers: 453_000_000,
			PassengerGrowthPct: 141.3, MarketSharePct: 1.4, NationalRanking: 10,
			ActiveGates: 17, TotalGates: 35, GateUtilizationPct: 48.6,
			JobsGenerated: 11_500, TotalSpillover: 44_436, InvestmentPerPassenger: 11_814.7,
		},
	}
}
