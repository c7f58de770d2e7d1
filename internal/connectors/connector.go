// Package connectors adapts each external provider to the domain capability
// interfaces. Every fetch returns a populated payload; failures degrade to
// the SimulatedProvider baselines.
package connectors

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"AeroPulse/internal/domain/models"
	"AeroPulse/internal/service/apiclient"
	xlogger "AeroPulse/pkg/logger"
)

// Source names, also used as rate-limit and cache namespaces.
const (
	SourceTraffic     = "traffic"
	SourcePunctuality = "punctuality"
	SourceWeather     = "weather"
	SourceAircraft    = "aircraft"
	SourceGovStats    = "gov_stats"
)

type base struct {
	client    apiclient.Requester
	src       apiclient.SourceConfig
	fallback  *SimulatedProvider
	logger    *xlogger.Logger
	available bool
}

func newBase(client apiclient.Requester, src apiclient.SourceConfig, fallback *SimulatedProvider, logger *xlogger.Logger) base {
	if fallback == nil {
		fallback = NewSimulatedProvider()
	}
	if logger == nil {
		logger = xlogger.Nop()
	}
	b := base{
		client:    client,
		src:       src,
		fallback:  fallback,
		logger:    logger.With(xlogger.String("source", src.Name)),
		available: src.Configured(),
	}
	if !b.available {
		b.logger.Warn("source not configured, serving simulated data")
	}
	return b
}

func (b base) Name() string { return b.src.Name }

// Available is decided once at construction from the credentials present.
func (b base) Available() bool { return b.available }

func (b base) get(ctx context.Context, endpoint string, params map[string]string) models.SourceResult[json.RawMessage] {
	return b.client.Request(ctx, b.src, endpoint, params, "")
}

// probe runs one request and reports its outcome as a HealthStatus.
func (b base) probe(ctx context.Context, endpoint string, params map[string]string) models.HealthStatus {
	hs := models.HealthStatus{Source: b.src.Name, Available: b.available}
	if !b.available {
		hs.Detail = "not configured"
		hs.CheckedAt = time.Now().UTC()
		return hs
	}
	start := time.Now()
	res := b.get(ctx, endpoint, params)
	hs.Latency = time.Since(start)
	hs.CheckedAt = time.Now().UTC()
	hs.Healthy = res.Success
	if res.Err != nil {
		hs.Detail = res.Err.Error()
	} else if res.Cached {
		hs.Detail = "served from cache"
	}
	return hs
}

// decode unmarshals a successful raw result into out. A failed result or
// an unparseable body is returned as a classified error.
func decode[T any](source string, res models.SourceResult[json.RawMessage], out *T) error {
	if !res.Success || res.Payload == nil {
		if res.Err != nil {
			return res.Err
		}
		return models.NewSourceError(models.KindNetwork, source, 0, fmt.Errorf("empty result"))
	}
	if err := json.Unmarshal(*res.Payload, out); err != nil {
		return models.NewSourceError(models.KindParse, source, 0, err)
	}
	return nil
}

func (b base) degrade(err error, precision models.Precision) {
	b.logger.Warn("falling back to baseline",
		xlogger.String("precision", string(precision)),
		xlogger.String("kind", string(models.KindOf(err))),
		xlogger.Error(err),
	)
}
