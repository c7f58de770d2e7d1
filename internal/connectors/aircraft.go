package connectors

import (
	"context"
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"AeroPulse/internal/domain/models"
	"AeroPulse/internal/service/apiclient"
	xlogger "AeroPulse/pkg/logger"
)

const proximityDeg = 0.2

// Indexes into an OpenSky state vector.
const (
	stateCallsign     = 1
	stateLongitude    = 5
	stateLatitude     = 6
	stateOnGround     = 8
	stateVerticalRate = 11
)

type statesResponse struct {
	Time   int64               `json:"time"`
	States [][]json.RawMessage `json:"states"`
}

type stateVector struct {
	callsign     string
	lat, lon     float64
	hasPosition  bool
	onGround     bool
	verticalRate float64
}

// AircraftConnector reads live state vectors from OpenSky.
type AircraftConnector struct {
	base
}

func NewAircraftConnector(client apiclient.Requester, src apiclient.SourceConfig, fallback *SimulatedProvider, logger *xlogger.Logger) *AircraftConnector {
	if src.Name == "" {
		src.Name = SourceAircraft
	}
	return &AircraftConnector{base: newBase(client, src, fallback, logger)}
}

// FetchAreaActivity classifies aircraft in box as departures, arrivals or
// overflights relative to station.
func (c *AircraftConnector) FetchAreaActivity(ctx context.Context, station models.Station, box models.BoundingBox) models.SourceResult[models.AreaActivity] {
	raw := c.get(ctx, "/states/all", boxParams(box))
	var body statesResponse
	if err := decode(c.Name(), raw, &body); err != nil {
		c.degrade(err, models.PrecisionSimulated)
		return models.Degraded(c.Name(), c.fallback.AreaActivity(), models.PrecisionSimulated, err)
	}

	markers := stationMarkers(station)
	var a models.AreaActivity
	for _, row := range body.States {
		sv := parseState(row)
		a.TotalAircraft++
		if !related(sv, station, markers) {
			a.Overflights++
			continue
		}
		a.RelatedAircraft++
		switch {
		case sv.onGround || sv.verticalRate > 0:
			a.Departures++
		case sv.verticalRate < 0:
			a.Arrivals++
		default:
			a.Overflights++
		}
	}
	a.Score, a.Level = activityScore(a)

	res := models.Real(c.Name(), a)
	res.Cached = raw.Cached
	return res
}

func (c *AircraftConnector) TestConnection(ctx context.Context) models.HealthStatus {
	return c.probe(ctx, "/states/all", boxParams(models.BoundingBox{LatMin: 19.0, LonMin: -99.5, LatMax: 20.5, LonMax: -98.5}))
}

func boxParams(box models.BoundingBox) map[string]string {
	f := func(v float64) string { return strconv.FormatFloat(v, 'f', 4, 64) }
	return map[string]string{
		"lamin": f(box.LatMin),
		"lomin": f(box.LonMin),
		"lamax": f(box.LatMax),
		"lomax": f(box.LonMax),
	}
}

func stationMarkers(s models.Station) []string {
	markers := []string{"AIFA"}
	for _, m := range []string{s.IATA, s.ICAO} {
		if m != "" {
			markers = append(markers, strings.ToUpper(m))
		}
	}
	return markers
}

func related(sv stateVector, station models.Station, markers []string) bool {
	cs := strings.ToUpper(sv.callsign)
	for _, m := range markers {
		if strings.Contains(cs, m) {
			return true
		}
	}
	if !sv.hasPosition {
		return false
	}
	return math.Hypot(sv.lat-station.Lat, sv.lon-station.Lon) <= proximityDeg
}

// parseState reads the fields used for classification. Null or mistyped
// fields keep their zero value.
func parseState(row []json.RawMessage) stateVector {
	var sv stateVector
	field := func(i int, dst any) bool {
		if i >= len(row) {
			return false
		}
		return json.Unmarshal(row[i], dst) == nil && string(row[i]) != "null"
	}
	if field(stateCallsign, &sv.callsign) {
		sv.callsign = strings.TrimSpace(sv.callsign)
	}
	latOK := field(stateLatitude, &sv.lat)
	lonOK := field(stateLongitude, &sv.lon)
	sv.hasPosition = latOK && lonOK
	field(stateOnGround, &sv.onGround)
	field(stateVerticalRate, &sv.verticalRate)
	return sv
}

// activityScore weighs total traffic, station-related traffic and whether
// any movement at the station was seen.
func activityScore(a models.AreaActivity) (float64, models.ActivityLevel) {
	score := math.Min(float64(a.TotalAircraft)*2, 40) + math.Min(float64(a.RelatedAircraft)*10, 40)
	if a.Departures > 0 || a.Arrivals > 0 {
		score += 20
	}
	score = math.Min(score, 100)

	switch {
	case score >= 80:
		return score, models.ActivityHigh
	case score >= 50:
		return score, models.ActivityModerate
	case score >= 20:
		return score, models.ActivityLow
	default:
		return score, models.ActivityNone
	}
}
