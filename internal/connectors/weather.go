package connectors

import (
	"context"
	"strconv"
	"strings"

	"AeroPulse/internal/domain/models"
	"AeroPulse/internal/service/apiclient"
	xlogger "AeroPulse/pkg/logger"
)

// Operating thresholds. Visibility in km, wind in m/s, temperature in C.
const (
	visibilityPoor    = 1.0
	visibilityLimited = 3.0
	visibilityReduced = 5.0
	windStrong        = 15.0
	gustStrong        = 20.0
	windModerate      = 10.0

	standardMinVisibility = 5.0
	standardMaxWind       = 12.0
	standardMinTemp       = 5.0
	standardMaxTemp       = 35.0

	defaultVisibilityM = 10000
)

const (
	overallGood    = "good"
	overallCaution = "caution"
	overallPoor    = "poor"
)

type owmCondition struct {
	Main        string `json:"main"`
	Description string `json:"description"`
}

type oneCallResponse struct {
	Current struct {
		Temp       float64        `json:"temp"`
		Humidity   int            `json:"humidity"`
		Visibility *float64       `json:"visibility"`
		WindSpeed  float64        `json:"wind_speed"`
		WindGust   float64        `json:"wind_gust"`
		Weather    []owmCondition `json:"weather"`
	} `json:"current"`
}

type currentResponse struct {
	Main struct {
		Temp     float64 `json:"temp"`
		Humidity int     `json:"humidity"`
	} `json:"main"`
	Visibility *float64 `json:"visibility"`
	Wind       struct {
		Speed float64 `json:"speed"`
		Gust  float64 `json:"gust"`
	} `json:"wind"`
	Weather []owmCondition `json:"weather"`
}

// WeatherConnector reads current conditions from OpenWeather, preferring
// One Call 3.0 and falling back to the 2.5 current weather endpoint.
type WeatherConnector struct {
	base
}

func NewWeatherConnector(client apiclient.Requester, src apiclient.SourceConfig, fallback *SimulatedProvider, logger *xlogger.Logger) *WeatherConnector {
	if src.Name == "" {
		src.Name = SourceWeather
	}
	return &WeatherConnector{base: newBase(client, src, fallback, logger)}
}

func (c *WeatherConnector) FetchCurrentWeather(ctx context.Context, station models.Station) models.SourceResult[models.WeatherReport] {
	params := map[string]string{
		"lat":   strconv.FormatFloat(station.Lat, 'f', 4, 64),
		"lon":   strconv.FormatFloat(station.Lon, 'f', 4, 64),
		"units": "metric",
	}

	oneCallParams := map[string]string{"exclude": "minutely,hourly,daily,alerts"}
	for k, v := range params {
		oneCallParams[k] = v
	}
	raw := c.get(ctx, "/3.0/onecall", oneCallParams)
	var oc oneCallResponse
	err := decode(c.Name(), raw, &oc)
	if err == nil {
		r := models.WeatherReport{
			Station:         station.IATA,
			TemperatureC:    oc.Current.Temp,
			Humidity:        oc.Current.Humidity,
			VisibilityKm:    visibilityKm(oc.Current.Visibility),
			WindSpeed:       oc.Current.WindSpeed,
			WindGust:        oc.Current.WindGust,
			ProviderVersion: "3.0",
		}
		applyCondition(&r, oc.Current.Weather)
		return c.real(r, raw.Cached)
	}
	c.logger.Debug("one call unavailable, trying current weather", xlogger.Error(err))

	raw = c.get(ctx, "/2.5/weather", params)
	var cur currentResponse
	if err = decode(c.Name(), raw, &cur); err != nil {
		c.degrade(err, models.PrecisionSimulated)
		return models.Degraded(c.Name(), c.fallback.Weather(station), models.PrecisionSimulated, err)
	}
	r := models.WeatherReport{
		Station:         station.IATA,
		TemperatureC:    cur.Main.Temp,
		Humidity:        cur.Main.Humidity,
		VisibilityKm:    visibilityKm(cur.Visibility),
		WindSpeed:       cur.Wind.Speed,
		WindGust:        cur.Wind.Gust,
		ProviderVersion: "2.5",
	}
	applyCondition(&r, cur.Weather)
	return c.real(r, raw.Cached)
}

func (c *WeatherConnector) TestConnection(ctx context.Context) models.HealthStatus {
	return c.probe(ctx, "/2.5/weather", map[string]string{"q": "Mexico City", "units": "metric"})
}

func (c *WeatherConnector) real(r models.WeatherReport, cached bool) models.SourceResult[models.WeatherReport] {
	assessWeather(&r)
	res := models.Real(c.Name(), r)
	res.Cached = cached
	return res
}

func visibilityKm(meters *float64) float64 {
	if meters == nil {
		return defaultVisibilityM / 1000
	}
	return *meters / 1000
}

func applyCondition(r *models.WeatherReport, conds []owmCondition) {
	if len(conds) == 0 {
		r.Condition = "Clear"
		return
	}
	r.Condition = conds[0].Main
	r.Description = conds[0].Description
}

// weatherCategory buckets the provider's main condition.
func weatherCategory(condition string) string {
	switch strings.ToLower(condition) {
	case "thunderstorm", "tornado":
		return "severe"
	case "rain", "snow", "drizzle":
		return "adverse"
	case "fog", "mist", "haze":
		return "reduced_visibility"
	default:
		return "clear"
	}
}

// assessWeather fills the overall rating, flight impact, operating score and
// standards check from the raw observations.
func assessWeather(r *models.WeatherReport) {
	visibility := "good"
	switch {
	case r.VisibilityKm < visibilityPoor:
		visibility = "poor"
	case r.VisibilityKm < visibilityLimited:
		visibility = "limited"
	}

	wind := "calm"
	switch {
	case r.WindSpeed > windStrong || r.WindGust > gustStrong:
		wind = "strong"
	case r.WindSpeed > windModerate:
		wind = "moderate"
	}

	category := weatherCategory(r.Condition)

	switch {
	case category == "severe" || visibility == "poor":
		r.Overall = overallPoor
	case category == "adverse" || wind == "strong":
		r.Overall = overallCaution
	default:
		r.Overall = overallGood
	}

	switch {
	case r.Overall == overallPoor:
		r.Impact = models.ImpactHigh
	case r.Overall == overallCaution, visibility == "limited", category == "reduced_visibility", wind == "moderate":
		r.Impact = models.ImpactModerate
	default:
		r.Impact = models.ImpactMinimal
	}

	r.Score = operatingScore(r)
	r.MeetsStandards = r.VisibilityKm >= standardMinVisibility &&
		r.WindSpeed <= standardMaxWind &&
		r.TemperatureC >= standardMinTemp && r.TemperatureC <= standardMaxTemp
}

func operatingScore(r *models.WeatherReport) float64 {
	score := 100.0
	switch r.Overall {
	case overallPoor:
		score -= 50
	case overallCaution:
		score -= 25
	}
	switch {
	case r.WindSpeed > windStrong:
		score -= 15
	case r.WindSpeed > windModerate:
		score -= 8
	}
	switch {
	case r.VisibilityKm < visibilityLimited:
		score -= 20
	case r.VisibilityKm < visibilityReduced:
		score -= 10
	}
	if score < 0 {
		score = 0
	}
	return score
}
