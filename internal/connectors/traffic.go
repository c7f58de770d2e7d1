package connectors

import (
	"context"
	"sort"
	"strconv"

	"AeroPulse/internal/domain/models"
	"AeroPulse/internal/service/apiclient"
	xlogger "AeroPulse/pkg/logger"
)

const (
	flightsLimit = 20
	topN         = 5
)

type aviationFlight struct {
	Airline struct {
		Name string `json:"name"`
	} `json:"airline"`
	Departure struct {
		IATA string `json:"iata"`
	} `json:"departure"`
	Arrival struct {
		IATA string `json:"iata"`
	} `json:"arrival"`
}

type aviationPage struct {
	Data []aviationFlight `json:"data"`
}

// TrafficConnector reads schedules from AviationStack.
type TrafficConnector struct {
	base
}

func NewTrafficConnector(client apiclient.Requester, src apiclient.SourceConfig, fallback *SimulatedProvider, logger *xlogger.Logger) *TrafficConnector {
	if src.Name == "" {
		src.Name = SourceTraffic
	}
	return &TrafficConnector{base: newBase(client, src, fallback, logger)}
}

// FetchFlightSummary counts departures and arrivals and ranks the busiest
// destinations and airlines.
func (c *TrafficConnector) FetchFlightSummary(ctx context.Context, station string) models.SourceResult[models.FlightSummary] {
	limit := strconv.Itoa(flightsLimit)
	depRes := c.get(ctx, "/flights", map[string]string{"dep_iata": station, "limit": limit})
	var deps aviationPage
	if err := decode(c.Name(), depRes, &deps); err != nil {
		return c.summaryFallback(station, err)
	}
	arrRes := c.get(ctx, "/flights", map[string]string{"arr_iata": station, "limit": limit})
	var arrs aviationPage
	if err := decode(c.Name(), arrRes, &arrs); err != nil {
		return c.summaryFallback(station, err)
	}

	destCount := make(map[string]int)
	airlineCount := make(map[string]int)
	for _, f := range deps.Data {
		countNonEmpty(destCount, f.Arrival.IATA)
		countNonEmpty(airlineCount, f.Airline.Name)
	}
	for _, f := range arrs.Data {
		countNonEmpty(destCount, f.Departure.IATA)
		countNonEmpty(airlineCount, f.Airline.Name)
	}

	summary := models.FlightSummary{
		Station:         station,
		Departures:      len(deps.Data),
		Arrivals:        len(arrs.Data),
		DailyOperations: len(deps.Data) + len(arrs.Data),
		Destinations:    topKeys(destCount, topN),
		Airlines:        topKeys(airlineCount, topN),
	}
	res := models.Real(c.Name(), summary)
	res.Cached = depRes.Cached && arrRes.Cached
	return res
}

// FetchRoutes lists scheduled routes out of station.
func (c *TrafficConnector) FetchRoutes(ctx context.Context, station string) models.SourceResult[[]models.Route] {
	raw := c.get(ctx, "/routes", map[string]string{"dep_iata": station})
	var page aviationPage
	if err := decode(c.Name(), raw, &page); err != nil {
		c.degrade(err, models.PrecisionSimulated)
		return models.Degraded(c.Name(), c.fallback.Routes(station), models.PrecisionSimulated, err)
	}
	routes := make([]models.Route, 0, len(page.Data))
	for _, f := range page.Data {
		origin := f.Departure.IATA
		if origin == "" {
			origin = station
		}
		routes = append(routes, models.Route{
			Origin:      origin,
			Destination: f.Arrival.IATA,
			Airline:     f.Airline.Name,
		})
	}
	res := models.Real(c.Name(), routes)
	res.Cached = raw.Cached
	return res
}

func (c *TrafficConnector) TestConnection(ctx context.Context) models.HealthStatus {
	return c.probe(ctx, "/airports", map[string]string{"limit": "1"})
}

func (c *TrafficConnector) summaryFallback(station string, err error) models.SourceResult[models.FlightSummary] {
	c.degrade(err, models.PrecisionSimulated)
	return models.Degraded(c.Name(), c.fallback.FlightSummary(station), models.PrecisionSimulated, err)
}

func countNonEmpty(m map[string]int, key string) {
	if key != "" {
		m[key]++
	}
}

// topKeys returns up to n keys by descending count, ties alphabetical.
func topKeys(counts map[string]int, n int) []string {
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if counts[keys[i]] != counts[keys[j]] {
			return counts[keys[i]] > counts[keys[j]]
		}
		return keys[i] < keys[j]
	})
	if len(keys) > n {
		keys = keys[:n]
	}
	return keys
}
