package connectors

import (
	"context"
	"net/url"

	"AeroPulse/internal/domain/models"
	"AeroPulse/internal/service/apiclient"
	xlogger "AeroPulse/pkg/logger"
)

// onTimeByColor maps the provider's delay color to an on-time percentage.
var onTimeByColor = map[string]float64{
	"green":  95.0,
	"yellow": 85.0,
	"orange": 75.0,
	"red":    60.0,
}

const unknownColorOnTime = 90.0

type delaysResponse struct {
	Airport   string               `json:"airport"`
	Category  string               `json:"category"`
	Color     string               `json:"color"`
	DelaySecs float64              `json:"delay_secs"`
	Reasons   []models.DelayReason `json:"reasons"`
}

// PunctualityConnector reads airport delay statistics from FlightAware AeroAPI.
type PunctualityConnector struct {
	base
}

func NewPunctualityConnector(client apiclient.Requester, src apiclient.SourceConfig, fallback *SimulatedProvider, logger *xlogger.Logger) *PunctualityConnector {
	if src.Name == "" {
		src.Name = SourcePunctuality
	}
	return &PunctualityConnector{base: newBase(client, src, fallback, logger)}
}

func (c *PunctualityConnector) FetchDelayStats(ctx context.Context, station string) models.SourceResult[models.DelayStats] {
	raw := c.get(ctx, "/airports/"+url.PathEscape(station)+"/delays", nil)
	var body delaysResponse
	if err := decode(c.Name(), raw, &body); err != nil {
		return c.fallbackStats(station, err)
	}

	onTime, ok := onTimeByColor[body.Color]
	if !ok {
		onTime = unknownColorOnTime
	}
	stats := models.DelayStats{
		Station:         station,
		OnTimePct:       onTime,
		AvgDelayMinutes: body.DelaySecs / 60,
		Color:           body.Color,
		Category:        body.Category,
		Reasons:         body.Reasons,
	}
	res := models.Real(c.Name(), stats)
	res.Cached = raw.Cached
	return res
}

func (c *PunctualityConnector) TestConnection(ctx context.Context) models.HealthStatus {
	return c.probe(ctx, "/airports", map[string]string{"max_pages": "1"})
}

// fallbackStats returns ESTIMATED figures when the provider answered but
// refused the endpoint, SIMULATED ones otherwise.
func (c *PunctualityConnector) fallbackStats(station string, err error) models.SourceResult[models.DelayStats] {
	switch models.KindOf(err) {
	case models.KindUpstream, models.KindRateLimited, models.KindAuth:
		c.degrade(err, models.PrecisionEstimated)
		return models.Degraded(c.Name(), c.fallback.DelayStats(station, true), models.PrecisionEstimated, err)
	default:
		c.degrade(err, models.PrecisionSimulated)
		return models.Degraded(c.Name(), c.fallback.DelayStats(station, false), models.PrecisionSimulated, err)
	}
}
