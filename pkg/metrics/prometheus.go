package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	requests      *prometheus.CounterVec
	cacheLookups  *prometheus.CounterVec
	limiterWait   *prometheus.HistogramVec
	tokenRefresh  *prometheus.CounterVec
	errorsTotal   *prometheus.CounterVec
	latency       *prometheus.HistogramVec
	scores        *prometheus.GaugeVec
	kpiPrecisions *prometheus.CounterVec
}

// New creates a recorder registered on the default registry.
func New() *Recorder {
	return NewWithRegistry(prometheus.DefaultRegisterer)
}

// NewWithRegistry creates a recorder registered on reg.
func NewWithRegistry(reg prometheus.Registerer) *Recorder {
	f := promauto.With(reg)
	return &Recorder{
		requests: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "aeropulse_source_requests_total",
				Help: "Outbound provider requests by outcome",
			},
			[]string{"source", "outcome"},
		),
		cacheLookups: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "aeropulse_cache_lookups_total",
				Help: "Response cache lookups by result",
			},
			[]string{"source", "result"},
		),
		limiterWait: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "aeropulse_ratelimit_wait_seconds",
				Help:    "Time spent waiting for a rate limiter slot",
				Buckets: []float64{0, 0.01, 0.1, 0.5, 1, 5, 15, 30, 60},
			},
			[]string{"source"},
		),
		tokenRefresh: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "aeropulse_token_refresh_total",
				Help: "Credential token exchanges",
			},
			[]string{"source", "ok"},
		),
		errorsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "aeropulse_errors_total",
				Help: "Total number of errors encountered",
			},
			[]string{"type"},
		),
		latency: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "aeropulse_operation_duration_seconds",
				Help:    "Duration of operations in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		scores: f.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "aeropulse_scorecard_score",
				Help: "Latest scorecard score per category (and overall)",
			},
			[]string{"category"},
		),
		kpiPrecisions: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "aeropulse_kpi_precision_total",
				Help: "KPIs produced per category and precision tag",
			},
			[]string{"category", "precision"},
		),
	}
}

// RecordRequest records a provider request outcome.
func (r *Recorder) RecordRequest(source, outcome string) {
	r.requests.WithLabelValues(source, outcome).Inc()
}

// RecordCache records a cache hit or miss.
func (r *Recorder) RecordCache(source string, hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	r.cacheLookups.WithLabelValues(source, result).Inc()
}

// RecordLimiterWait records time blocked on the rate limiter.
func (r *Recorder) RecordLimiterWait(source string, seconds float64) {
	r.limiterWait.WithLabelValues(source).Observe(seconds)
}

// RecordTokenRefresh records a token exchange.
func (r *Recorder) RecordTokenRefresh(source string, ok bool) {
	r.tokenRefresh.WithLabelValues(source, strconv.FormatBool(ok)).Inc()
}

// RecordError records an error occurrence.
func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}

// RecordLatency records operation latency in seconds.
func (r *Recorder) RecordLatency(op string, seconds float64) {
	r.latency.WithLabelValues(op).Observe(seconds)
}

// RecordScore sets the latest score of a category.
func (r *Recorder) RecordScore(category string, score float64) {
	r.scores.WithLabelValues(category).Set(score)
}

// RecordKPIPrecision counts a KPI by precision tag.
func (r *Recorder) RecordKPIPrecision(category, precision string) {
	r.kpiPrecisions.WithLabelValues(category, precision).Inc()
}
