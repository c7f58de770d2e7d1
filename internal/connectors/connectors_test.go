package connectors

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"AeroPulse/internal/domain/models"
	"AeroPulse/internal/domain/service"
	"AeroPulse/internal/service/apiclient"
	icache "AeroPulse/internal/service/cache"
	"AeroPulse/internal/service/credentials"
	"AeroPulse/internal/service/ratelimit"
	pkgcache "AeroPulse/pkg/cache"
	"AeroPulse/pkg/config"
	xhttp "AeroPulse/pkg/http"
	xlogger "AeroPulse/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var nlu = models.Station{IATA: "NLU", ICAO: "MMSM", Lat: 19.7425, Lon: -99.0157}

var (
	_ service.TrafficSource     = (*TrafficConnector)(nil)
	_ service.PunctualitySource = (*PunctualityConnector)(nil)
	_ service.WeatherSource     = (*WeatherConnector)(nil)
	_ service.AircraftSource    = (*AircraftConnector)(nil)
	_ service.StatisticsSource  = (*GovStatsConnector)(nil)

	_ service.TrafficSource     = (*SimulatedProvider)(nil)
	_ service.PunctualitySource = (*SimulatedProvider)(nil)
	_ service.WeatherSource     = (*SimulatedProvider)(nil)
	_ service.AircraftSource    = (*SimulatedProvider)(nil)
	_ service.StatisticsSource  = (*SimulatedProvider)(nil)
)

type stubRequester struct {
	respond func(endpoint string, params map[string]string) (int, string)
	calls   int32
}

func (s *stubRequester) Request(_ context.Context, src apiclient.SourceConfig, endpoint string, params map[string]string, _ string) models.SourceResult[json.RawMessage] {
	atomic.AddInt32(&s.calls, 1)
	status, body := s.respond(endpoint, params)
	switch {
	case status == 0:
		return models.Failed[json.RawMessage](src.Name, models.NewSourceError(models.KindNetwork, src.Name, 0, errors.New("dial tcp: refused")))
	case status == http.StatusTooManyRequests:
		return models.Failed[json.RawMessage](src.Name, models.NewSourceError(models.KindRateLimited, src.Name, status, nil))
	case status == http.StatusUnauthorized:
		return models.Failed[json.RawMessage](src.Name, models.NewSourceError(models.KindAuth, src.Name, status, nil))
	case status >= 300:
		return models.Failed[json.RawMessage](src.Name, models.NewSourceError(models.KindUpstream, src.Name, status, nil))
	}
	return models.Real(src.Name, json.RawMessage(body))
}

func configured(name string) apiclient.SourceConfig {
	return apiclient.SourceConfig{Name: name, BaseURL: "http://provider.test", Auth: config.AuthAPIKeyQuery, APIKey: "k", KeyParam: "key"}
}

func TestTraffic_FlightSummary(t *testing.T) {
	stub := &stubRequester{respond: func(endpoint string, params map[string]string) (int, string) {
		require.Equal(t, "/flights", endpoint)
		if params["dep_iata"] == "NLU" {
			return 200, `{"data":[
				{"airline":{"name":"Volaris"},"departure":{"iata":"NLU"},"arrival":{"iata":"CUN"}},
				{"airline":{"name":"VivaAerobus"},"departure":{"iata":"NLU"},"arrival":{"iata":"CUN"}},
				{"airline":{"name":"Volaris"},"departure":{"iata":"NLU"},"arrival":{"iata":"TIJ"}}
			]}`
		}
		require.Equal(t, "NLU", params["arr_iata"])
		return 200, `{"data":[
			{"airline":{"name":"Aeromexico"},"departure":{"iata":"GDL"},"arrival":{"iata":"NLU"}},
			{"airline":{"name":"Volaris"},"departure":{"iata":"TIJ"},"arrival":{"iata":"NLU"}}
		]}`
	}}
	c := NewTrafficConnector(stub, configured(SourceTraffic), nil, nil)

	res := c.FetchFlightSummary(context.Background(), "NLU")
	require.True(t, res.Success)
	require.NotNil(t, res.Payload)
	assert.Equal(t, models.PrecisionReal, res.Precision)
	s := res.Payload
	assert.Equal(t, 3, s.Departures)
	assert.Equal(t, 2, s.Arrivals)
	assert.Equal(t, 5, s.DailyOperations)
	assert.Equal(t, []string{"CUN", "TIJ", "GDL"}, s.Destinations)
	assert.Equal(t, []string{"Volaris", "Aeromexico", "VivaAerobus"}, s.Airlines)
}

func TestTraffic_FallbackIsSimulated(t *testing.T) {
	stub := &stubRequester{respond: func(string, map[string]string) (int, string) { return 0, "" }}
	c := NewTrafficConnector(stub, configured(SourceTraffic), nil, nil)

	res := c.FetchFlightSummary(context.Background(), "NLU")
	assert.False(t, res.Success)
	require.NotNil(t, res.Payload)
	assert.Equal(t, models.PrecisionSimulated, res.Precision)
	assert.Equal(t, 45, res.Payload.DailyOperations)
	assert.Equal(t, 23, res.Payload.Departures)
	assert.Equal(t, 22, res.Payload.Arrivals)
	assert.Equal(t, []string{"CUN", "GDL", "TIJ", "MTY", "VER"}, res.Payload.Destinations)
	assert.ErrorIs(t, res.Err, models.ErrNetwork)

	routes := c.FetchRoutes(context.Background(), "NLU")
	require.NotNil(t, routes.Payload)
	assert.Len(t, *routes.Payload, 5)
	assert.Equal(t, models.PrecisionSimulated, routes.Precision)
}

func TestTraffic_Routes(t *testing.T) {
	stub := &stubRequester{respond: func(endpoint string, params map[string]string) (int, string) {
		require.Equal(t, "/routes", endpoint)
		return 200, `{"data":[{"airline":{"name":"Volaris"},"departure":{"iata":"NLU"},"arrival":{"iata":"MTY"}}]}`
	}}
	c := NewTrafficConnector(stub, configured(SourceTraffic), nil, nil)

	res := c.FetchRoutes(context.Background(), "NLU")
	require.True(t, res.Success)
	assert.Equal(t, []models.Route{{Origin: "NLU", Destination: "MTY", Airline: "Volaris"}}, *res.Payload)
}

func TestPunctuality_ColorMapping(t *testing.T) {
	cases := map[string]float64{"green": 95, "yellow": 85, "orange": 75, "red": 60, "purple": 90}
	for color, want := range cases {
		t.Run(color, func(t *testing.T) {
			stub := &stubRequester{respond: func(endpoint string, _ map[string]string) (int, string) {
				assert.Equal(t, "/airports/NLU/delays", endpoint)
				return 200, fmt.Sprintf(`{"airport":"MMSM","color":%q,"category":"weather","delay_secs":540,"reasons":[{"category":"weather","color":%q,"delay_secs":540,"reason":"fog"}]}`, color, color)
			}}
			c := NewPunctualityConnector(stub, configured(SourcePunctuality), nil, nil)
			res := c.FetchDelayStats(context.Background(), "NLU")
			require.True(t, res.Success)
			assert.Equal(t, want, res.Payload.OnTimePct)
			assert.InDelta(t, 9.0, res.Payload.AvgDelayMinutes, 1e-9)
			require.Len(t, res.Payload.Reasons, 1)
			assert.Equal(t, "fog", res.Payload.Reasons[0].Reason)
		})
	}
}

func TestPunctuality_FallbackPrecisionDependsOnFailure(t *testing.T) {
	cases := []struct {
		status    int
		precision models.Precision
		onTime    float64
		delay     float64
	}{
		{http.StatusForbidden, models.PrecisionEstimated, 90.0, 6.5},
		{http.StatusTooManyRequests, models.PrecisionEstimated, 90.0, 6.5},
		{http.StatusUnauthorized, models.PrecisionEstimated, 90.0, 6.5},
		{0, models.PrecisionSimulated, 87.2, 8.5},
	}
	for _, tc := range cases {
		t.Run(fmt.Sprint(tc.status), func(t *testing.T) {
			stub := &stubRequester{respond: func(string, map[string]string) (int, string) { return tc.status, "" }}
			c := NewPunctualityConnector(stub, configured(SourcePunctuality), nil, nil)
			res := c.FetchDelayStats(context.Background(), "NLU")
			assert.False(t, res.Success)
			require.NotNil(t, res.Payload)
			assert.Equal(t, tc.precision, res.Precision)
			assert.Equal(t, tc.onTime, res.Payload.OnTimePct)
			assert.Equal(t, tc.delay, res.Payload.AvgDelayMinutes)
		})
	}
}

func TestWeather_OneCallPreferred(t *testing.T) {
	stub := &stubRequester{respond: func(endpoint string, params map[string]string) (int, string) {
		require.Equal(t, "/3.0/onecall", endpoint)
		assert.Equal(t, "19.7425", params["lat"])
		assert.Equal(t, "-99.0157", params["lon"])
		assert.Equal(t, "metric", params["units"])
		return 200, `{"current":{"temp":18.5,"humidity":60,"visibility":10000,"wind_speed":4.1,"weather":[{"main":"Clouds","description":"scattered clouds"}]}}`
	}}
	c := NewWeatherConnector(stub, configured(SourceWeather), nil, nil)

	res := c.FetchCurrentWeather(context.Background(), nlu)
	require.True(t, res.Success)
	w := res.Payload
	assert.Equal(t, "3.0", w.ProviderVersion)
	assert.Equal(t, 10.0, w.VisibilityKm)
	assert.Equal(t, "good", w.Overall)
	assert.Equal(t, models.ImpactMinimal, w.Impact)
	assert.Equal(t, 100.0, w.Score)
	assert.True(t, w.MeetsStandards)
}

func TestWeather_FallsBackToCurrentEndpoint(t *testing.T) {
	stub := &stubRequester{respond: func(endpoint string, _ map[string]string) (int, string) {
		if endpoint == "/3.0/onecall" {
			return http.StatusUnauthorized, ""
		}
		return 200, `{"main":{"temp":14,"humidity":88},"visibility":2500,"wind":{"speed":11.2,"gust":14},"weather":[{"main":"Rain","description":"light rain"}]}`
	}}
	c := NewWeatherConnector(stub, configured(SourceWeather), nil, nil)

	res := c.FetchCurrentWeather(context.Background(), nlu)
	require.True(t, res.Success)
	w := res.Payload
	assert.Equal(t, "2.5", w.ProviderVersion)
	assert.Equal(t, "caution", w.Overall)
	assert.Equal(t, models.ImpactModerate, w.Impact)
	// 100 - 25 caution - 8 wind - 20 visibility
	assert.Equal(t, 47.0, w.Score)
	assert.False(t, w.MeetsStandards)
	assert.Equal(t, int32(2), stub.calls)
}

func TestWeather_BothEndpointsFail(t *testing.T) {
	stub := &stubRequester{respond: func(string, map[string]string) (int, string) { return 500, "" }}
	c := NewWeatherConnector(stub, configured(SourceWeather), nil, nil)

	res := c.FetchCurrentWeather(context.Background(), nlu)
	assert.False(t, res.Success)
	require.NotNil(t, res.Payload)
	assert.Equal(t, models.PrecisionSimulated, res.Precision)
	assert.Equal(t, 22.0, res.Payload.TemperatureC)
	assert.Equal(t, 10.0, res.Payload.VisibilityKm)
	assert.Equal(t, 3.5, res.Payload.WindSpeed)
	assert.Equal(t, models.ImpactMinimal, res.Payload.Impact)
}

func TestAssessWeather(t *testing.T) {
	cases := []struct {
		name    string
		report  models.WeatherReport
		overall string
		impact  models.FlightImpact
		score   float64
	}{
		{"thunderstorm", models.WeatherReport{Condition: "Thunderstorm", VisibilityKm: 8, WindSpeed: 6, TemperatureC: 20}, "poor", models.ImpactHigh, 50},
		{"dense fog", models.WeatherReport{Condition: "Fog", VisibilityKm: 0.5, TemperatureC: 10}, "poor", models.ImpactHigh, 30},
		{"haze", models.WeatherReport{Condition: "Haze", VisibilityKm: 4, TemperatureC: 25}, "good", models.ImpactModerate, 90},
		{"gale", models.WeatherReport{Condition: "Clear", VisibilityKm: 10, WindSpeed: 17, TemperatureC: 25}, "caution", models.ImpactModerate, 60},
		{"gust only", models.WeatherReport{Condition: "Clear", VisibilityKm: 10, WindSpeed: 9, WindGust: 22, TemperatureC: 25}, "caution", models.ImpactModerate, 75},
		{"everything bad", models.WeatherReport{Condition: "Tornado", VisibilityKm: 0.2, WindSpeed: 30, TemperatureC: 25}, "poor", models.ImpactHigh, 15},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := tc.report
			assessWeather(&r)
			assert.Equal(t, tc.overall, r.Overall)
			assert.Equal(t, tc.impact, r.Impact)
			assert.Equal(t, tc.score, r.Score)
		})
	}
}

func TestAircraft_AreaActivity(t *testing.T) {
	stub := &stubRequester{respond: func(endpoint string, params map[string]string) (int, string) {
		require.Equal(t, "/states/all", endpoint)
		assert.Equal(t, "19.0000", params["lamin"])
		assert.Equal(t, "-98.5000", params["lomax"])
		return 200, `{"time":1700000000,"states":[
			["0d0001","VIV1234 ",null,null,null,-99.02,19.74,0,true,0,0,null,null,null,null,false,0],
			["0d0002","AMXNLU1 ",null,null,null,-98.70,19.30,3000,false,120,90,-5.2,null,null,null,false,0],
			["0d0003","VOI455  ",null,null,null,-99.10,19.80,1200,false,110,10,8.0,null,null,null,false,0],
			["0d0004","UAL12   ",null,null,null,-98.60,20.40,11000,false,240,180,0,null,null,null,false,0],
			["0d0005",null,null,null,null,null,null,null,false,null,null,null,null,null,null,false,0]
		]}`
	}}
	c := NewAircraftConnector(stub, configured(SourceAircraft), nil, nil)
	box := models.BoundingBox{LatMin: 19.0, LonMin: -99.5, LatMax: 20.5, LonMax: -98.5}

	res := c.FetchAreaActivity(context.Background(), nlu, box)
	require.True(t, res.Success)
	a := res.Payload
	assert.Equal(t, 5, a.TotalAircraft)
	assert.Equal(t, 3, a.RelatedAircraft)
	assert.Equal(t, 2, a.Departures)
	assert.Equal(t, 1, a.Arrivals)
	assert.Equal(t, 2, a.Overflights)
	// min(10,40) + min(30,40) + 20
	assert.Equal(t, 60.0, a.Score)
	assert.Equal(t, models.ActivityModerate, a.Level)
}

func TestActivityScore(t *testing.T) {
	cases := []struct {
		a     models.AreaActivity
		score float64
		level models.ActivityLevel
	}{
		{models.AreaActivity{}, 0, models.ActivityNone},
		{models.AreaActivity{TotalAircraft: 5}, 10, models.ActivityNone},
		{models.AreaActivity{TotalAircraft: 10}, 20, models.ActivityLow},
		{models.AreaActivity{TotalAircraft: 15, RelatedAircraft: 3, Arrivals: 2, Departures: 1}, 80, models.ActivityHigh},
		{models.AreaActivity{TotalAircraft: 50, RelatedAircraft: 9, Departures: 1}, 100, models.ActivityHigh},
	}
	for _, tc := range cases {
		score, level := activityScore(tc.a)
		assert.Equal(t, tc.score, score)
		assert.Equal(t, tc.level, level)
	}
}

func TestGovStats_DerivedFigures(t *testing.T) {
	c := NewGovStatsConnector()
	res := c.FetchReferenceStats(context.Background())
	require.True(t, res.Success)
	assert.Equal(t, models.PrecisionReal, res.Precision)
	s := res.Payload
	assert.Equal(t, 48.6, s.GateUtilizationPct)
	assert.InDelta(t, 17774.4, s.DirectSpillover, 1e-6)
	assert.InDelta(t, 26661.6, s.IndirectSpillover, 1e-6)
	assert.InDelta(t, 44436.0, s.TotalSpillover, 1e-6)
	assert.InDelta(t, 11814.74, s.InvestmentPerPassenger, 0.01)
	assert.InDelta(t, 373411.76, s.PassengersPerGate, 0.01)
	assert.True(t, c.TestConnection(context.Background()).Healthy)
}

func TestUnconfiguredSourceIsUnavailable(t *testing.T) {
	src := configured(SourceWeather)
	src.APIKey = ""
	var logs bytes.Buffer
	c := NewWeatherConnector(&stubRequester{respond: func(string, map[string]string) (int, string) { return 200, "{}" }}, src, nil, xlogger.NewWriter(&logs, "info"))
	assert.False(t, c.Available())
	assert.Equal(t, 1, strings.Count(logs.String(), "source not configured"))
	assert.Contains(t, logs.String(), `"level":"warn"`)

	hs := c.TestConnection(context.Background())
	assert.False(t, hs.Available)
	assert.False(t, hs.Healthy)
}

// End to end through the real request client: an unreachable provider still
// yields a labeled fallback.
func TestPunctuality_ThroughRequestClient(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("x-apikey") != "k" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.WriteHeader(http.StatusForbidden)
		fmt.Fprint(w, `{"title":"plan does not include this endpoint"}`)
	}))
	defer srv.Close()

	store := pkgcache.NewMemoryStore(pkgcache.WithMemoryCleanup(0))
	defer store.Close()
	hc := xhttp.NewClient(xhttp.WithTimeout(2 * time.Second))
	client := apiclient.New(hc, ratelimit.New(), icache.NewResponseCache(store), credentials.NewManager(hc), nil, nil)

	src := apiclient.SourceConfig{Name: SourcePunctuality, BaseURL: srv.URL, Auth: config.AuthAPIKeyHeader, APIKey: "k", KeyHeader: "x-apikey", CacheTTL: time.Minute}
	c := NewPunctualityConnector(client, src, nil, nil)

	res := c.FetchDelayStats(context.Background(), "NLU")
	assert.Equal(t, models.PrecisionEstimated, res.Precision)
	assert.ErrorIs(t, res.Err, models.ErrUpstream)
	assert.Equal(t, 90.0, res.Payload.OnTimePct)
}
