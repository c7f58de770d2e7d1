package connectors

import (
	"context"
	"time"

	"AeroPulse/internal/domain/models"
)

// Simulated baselines, used whenever a provider cannot answer.
const (
	simDailyOperations = 45
	simDepartures      = 23
	simArrivals        = 22

	simOnTimePct       = 87.2
	simAvgDelayMinutes = 8.5

	estOnTimePct       = 90.0
	estAvgDelayMinutes = 6.5

	simTemperatureC = 22.0
	simVisibilityKm = 10.0
	simWindSpeed    = 3.5
	simHumidity     = 45

	simTotalAircraft   = 15
	simRelatedAircraft = 3
	simAircraftArrival = 2
	simAircraftDepart  = 1
)

var (
	simDestinations = []string{"CUN", "GDL", "TIJ", "MTY", "VER"}
	simAirlines     = []string{"VivaAerobus", "Volaris", "Aeromexico"}
)

// SimulatedProvider serves deterministic baseline values for every source.
// Real connectors delegate their fallback to it.
type SimulatedProvider struct{}

func NewSimulatedProvider() *SimulatedProvider {
	return &SimulatedProvider{}
}

func (p *SimulatedProvider) Name() string    { return "simulated" }
func (p *SimulatedProvider) Available() bool { return true }

func (p *SimulatedProvider) TestConnection(context.Context) models.HealthStatus {
	return models.HealthStatus{
		Source:    p.Name(),
		Available: true,
		Healthy:   true,
		Detail:    "deterministic baseline",
		CheckedAt: time.Now().UTC(),
	}
}

// FlightSummary returns the baseline traffic figures.
func (p *SimulatedProvider) FlightSummary(station string) models.FlightSummary {
	return models.FlightSummary{
		Station:         station,
		Departures:      simDepartures,
		Arrivals:        simArrivals,
		DailyOperations: simDailyOperations,
		Destinations:    append([]string(nil), simDestinations...),
		Airlines:        append([]string(nil), simAirlines...),
	}
}

func (p *SimulatedProvider) Routes(station string) []models.Route {
	routes := make([]models.Route, 0, len(simDestinations))
	for i, dest := range simDestinations {
		routes = append(routes, models.Route{
			Origin:      station,
			Destination: dest,
			Airline:     simAirlines[i%len(simAirlines)],
		})
	}
	return routes
}

// DelayStats returns the baseline punctuality. estimated selects the
// plan-limited figures instead of the simulated ones.
func (p *SimulatedProvider) DelayStats(station string, estimated bool) models.DelayStats {
	if estimated {
		return models.DelayStats{Station: station, OnTimePct: estOnTimePct, AvgDelayMinutes: estAvgDelayMinutes}
	}
	return models.DelayStats{Station: station, OnTimePct: simOnTimePct, AvgDelayMinutes: simAvgDelayMinutes}
}

func (p *SimulatedProvider) Weather(station models.Station) models.WeatherReport {
	r := models.WeatherReport{
		Station:      station.IATA,
		TemperatureC: simTemperatureC,
		Humidity:     simHumidity,
		VisibilityKm: simVisibilityKm,
		WindSpeed:    simWindSpeed,
		Condition:    "Clear",
		Description:  "good conditions, minimal impact",
	}
	assessWeather(&r)
	return r
}

func (p *SimulatedProvider) AreaActivity() models.AreaActivity {
	a := models.AreaActivity{
		TotalAircraft:   simTotalAircraft,
		RelatedAircraft: simRelatedAircraft,
		Departures:      simAircraftDepart,
		Arrivals:        simAircraftArrival,
		Overflights:     simTotalAircraft - simRelatedAircraft,
	}
	a.Score, a.Level = activityScore(a)
	return a
}

func (p *SimulatedProvider) FetchFlightSummary(_ context.Context, station string) models.SourceResult[models.FlightSummary] {
	return simulated(SourceTraffic, p.FlightSummary(station))
}

func (p *SimulatedProvider) FetchRoutes(_ context.Context, station string) models.SourceResult[[]models.Route] {
	return simulated(SourceTraffic, p.Routes(station))
}

func (p *SimulatedProvider) FetchDelayStats(_ context.Context, station string) models.SourceResult[models.DelayStats] {
	return simulated(SourcePunctuality, p.DelayStats(station, false))
}

func (p *SimulatedProvider) FetchCurrentWeather(_ context.Context, station models.Station) models.SourceResult[models.WeatherReport] {
	return simulated(SourceWeather, p.Weather(station))
}

func (p *SimulatedProvider) FetchAreaActivity(context.Context, models.Station, models.BoundingBox) models.SourceResult[models.AreaActivity] {
	return simulated(SourceAircraft, p.AreaActivity())
}

func (p *SimulatedProvider) FetchReferenceStats(context.Context) models.SourceResult[models.ReferenceStats] {
	return simulated(SourceGovStats, ReferenceStats())
}

func simulated[T any](source string, payload T) models.SourceResult[T] {
	return models.Degraded(source, payload, models.PrecisionSimulated, nil)
}
