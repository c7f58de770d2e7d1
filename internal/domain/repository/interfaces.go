package repository

import (
	"context"

	"AeroPulse/internal/domain/models"
)

// DashboardPublisher ships finished dashboards to downstream consumers.
type DashboardPublisher interface {
	Publish(ctx context.Context, d *models.Dashboard) error
	Close() error
}

type Metrics interface {
	RecordRequest(source, outcome string)
	RecordCache(source string, hit bool)
	RecordLimiterWait(source string, seconds float64)
	RecordTokenRefresh(source string, ok bool)
	RecordError(kind string)
	RecordLatency(op string, seconds float64)
	RecordScore(category string, score float64)
	RecordKPIPrecision(category, precision string)
}

// NoopMetrics discards everything.
type NoopMetrics struct{}

func (NoopMetrics) RecordRequest(string, string) {}
func (NoopMetrics) RecordCache(string, bool) {}
func (NoopMetrics) RecordLimiterWait(string, float64) {}
func (NoopMetrics) RecordTokenRefresh(string, bool) {}
func (NoopMetrics) RecordError(string) {}
func (NoopMetrics) RecordLatency(string, float64) {}
func (NoopMetrics) RecordScore(string, float64) {}
func (NoopMetrics) RecordKPIPrecision(string, string) {}
