package usecase

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"AeroPulse/internal/domain/models"
	"AeroPulse/internal/domain/repository"
	"AeroPulse/internal/domain/service"
	"AeroPulse/pkg/config"
	xlogger "AeroPulse/pkg/logger"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// Sources are the connectors a cycle reads from.
type Sources struct {
	Traffic     service.TrafficSource
	Punctuality service.PunctualitySource
	Weather     service.WeatherSource
	Aircraft    service.AircraftSource
	Stats       service.StatisticsSource
}

func (s Sources) connectors() []service.Connector {
	return []service.Connector{s.Traffic, s.Punctuality, s.Weather, s.Aircraft, s.Stats}
}

// EngineConfig tunes scoring and alerting.
type EngineConfig struct {
	Station              models.Station
	Area                 models.BoundingBox
	CycleTimeout         time.Duration
	AlertGapPct          float64
	DegradedSourcesAlert int
	Weights              map[models.Category]float64
}

// EngineConfigFrom maps the YAML engine section.
func EngineConfigFrom(c config.EngineConfig) EngineConfig {
	return EngineConfig{
		Station: models.Station{IATA: c.Station.IATA, ICAO: c.Station.ICAO, Lat: c.Station.Lat, Lon: c.Station.Lon},
		Area: models.BoundingBox{
			LatMin: c.Area.LatMin, LonMin: c.Area.LonMin,
			LatMax: c.Area.LatMax, LonMax: c.Area.LonMax,
		},
		CycleTimeout:         c.CycleTimeout,
		AlertGapPct:          c.AlertGapPct,
		DegradedSourcesAlert: c.DegradedSourcesAlert,
		Weights: map[models.Category]float64{
			models.CategoryStrategic:   c.Weights.Strategic,
			models.CategoryOperational: c.Weights.Operational,
			models.CategoryEconomic:    c.Weights.Economic,
		},
	}
}

// KPIEngine runs aggregation cycles: concurrent fetch, KPI computation,
// scorecard, alerts and recommendations.
type KPIEngine struct {
	sources Sources
	cfg     EngineConfig
	metrics repository.Metrics
	logger  *xlogger.Logger
	now     func() time.Time

	mu           sync.Mutex
	prevOverall  float64
	havePrevious bool
}

func NewKPIEngine(sources Sources, cfg EngineConfig, metrics repository.Metrics, logger *xlogger.Logger) *KPIEngine {
	if cfg.CycleTimeout <= 0 {
		cfg.CycleTimeout = 20 * time.Second
	}
	if cfg.AlertGapPct <= 0 {
		cfg.AlertGapPct = 20
	}
	if cfg.DegradedSourcesAlert <= 0 {
		cfg.DegradedSourcesAlert = 3
	}
	if len(cfg.Weights) == 0 {
		cfg.Weights = map[models.Category]float64{}
		for _, c := range models.Categories {
			cfg.Weights[c] = 1
		}
	}
	if metrics == nil {
		metrics = repository.NoopMetrics{}
	}
	if logger == nil {
		logger = xlogger.Nop()
	}
	return &KPIEngine{sources: sources, cfg: cfg, metrics: metrics, logger: logger, now: time.Now}
}

type fetched struct {
	slot      string
	payload   any
	precision models.Precision
	status    models.SourceStatus
}

// collect runs one fetch, converting a panic or nil payload into a status
// without a payload.
func collect[T any](slot string, fn func() models.SourceResult[T]) (f fetched) {
	f.slot = slot
	defer func() {
		if r := recover(); r != nil {
			f = fetched{slot: slot, status: missingStatus(slot, fmt.Sprintf("panic: %v", r))}
		}
	}()

	res := fn()
	f.status = models.SourceStatus{
		Name:      slot,
		Success:   res.Success,
		Precision: res.Precision,
		Cached:    res.Cached,
		Error:     res.ErrorDetail(),
		Timestamp: res.Timestamp,
	}
	if res.Payload == nil {
		detail := f.status.Error
		if detail == "" {
			detail = "no payload"
		}
		f.status = missingStatus(slot, detail)
		return f
	}
	f.payload = *res.Payload
	f.precision = res.Precision
	return f
}

func missingStatus(slot, detail string) models.SourceStatus {
	return models.SourceStatus{
		Name:      slot,
		Precision: models.PrecisionSimulated,
		Error:     detail,
		Timestamp: time.Now().UTC(),
	}
}

// pick returns the fetched payload, or the last-resort value tagged SIMULATED.
func pick[T any](f fetched, fallback T) (T, models.Precision) {
	if v, ok := f.payload.(T); ok {
		return v, f.precision
	}
	return fallback, models.PrecisionSimulated
}

// ComputeKPIs fetches every source concurrently under the cycle timeout and
// builds the KPI set. Sources that time out, panic or return nothing are
// replaced by last-resort values.
func (e *KPIEngine) ComputeKPIs(ctx context.Context) (models.KPISet, []models.SourceStatus) {
	ctx, cancel := context.WithTimeout(ctx, e.cfg.CycleTimeout)
	defer cancel()

	station, area := e.cfg.Station, e.cfg.Area
	jobs := map[string]func() fetched{
		slotTraffic: func() fetched {
			return collect(slotTraffic, func() models.SourceResult[models.FlightSummary] {
				return e.sources.Traffic.FetchFlightSummary(ctx, station.IATA)
			})
		},
		slotPunctuality: func() fetched {
			return collect(slotPunctuality, func() models.SourceResult[models.DelayStats] {
				return e.sources.Punctuality.FetchDelayStats(ctx, station.IATA)
			})
		},
		slotWeather: func() fetched {
			return collect(slotWeather, func() models.SourceResult[models.WeatherReport] {
				return e.sources.Weather.FetchCurrentWeather(ctx, station)
			})
		},
		slotAircraft: func() fetched {
			return collect(slotAircraft, func() models.SourceResult[models.AreaActivity] {
				return e.sources.Aircraft.FetchAreaActivity(ctx, station, area)
			})
		},
		slotGovStats: func() fetched {
			return collect(slotGovStats, func() models.SourceResult[models.ReferenceStats] {
				return e.sources.Stats.FetchReferenceStats(ctx)
			})
		},
	}

	// Buffered so late senders never block after the cycle gives up on them.
	ch := make(chan fetched, len(jobs))
	for _, job := range jobs {
		go func(job func() fetched) { ch <- job() }(job)
	}

	results := make(map[string]fetched, len(jobs))
wait:
	for len(results) < len(jobs) {
		select {
		case f := <-ch:
			results[f.slot] = f
		case <-ctx.Done():
			break wait
		}
	}

	fallback := lastResort(station)
	d := &cycleData{precision: make(map[string]models.Precision, len(slots))}
	d.traffic, d.precision[slotTraffic] = pick(results[slotTraffic], fallback.traffic)
	d.delays, d.precision[slotPunctuality] = pick(results[slotPunctuality], fallback.delays)
	d.weather, d.precision[slotWeather] = pick(results[slotWeather], fallback.weather)
	d.activity, d.precision[slotAircraft] = pick(results[slotAircraft], fallback.activity)
	d.stats, d.precision[slotGovStats] = pick(results[slotGovStats], fallback.stats)

	statuses := make([]models.SourceStatus, 0, len(slots))
	for _, slot := range slots {
		f, ok := results[slot]
		if !ok {
			e.logger.Warn("source missed cycle deadline", xlogger.String("source", slot))
			f.status = missingStatus(slot, "cycle timeout")
		}
		statuses = append(statuses, f.status)
	}

	return e.buildKPIs(d), statuses
}

func (e *KPIEngine) buildKPIs(d *cycleData) models.KPISet {
	ts := e.now().UTC()
	var set models.KPISet
	for _, def := range catalog {
		value := def.value(d)
		k := models.KPI{
			ID:            def.id,
			Name:          def.name,
			Category:      def.category,
			Value:         round(value, 2),
			Unit:          def.unit,
			Target:        def.target,
			LowerIsBetter: def.lowerIsBetter,
			Status:        models.EvaluateStatus(value, def.target, def.lowerIsBetter),
			Precision:     d.precision[def.slot],
			Source:        def.slot,
			Timestamp:     ts,
		}
		e.metrics.RecordKPIPrecision(string(k.Category), string(k.Precision))
		set.Add(k)
	}
	return set
}

// BuildScorecard scores each category, weights them into an overall score
// and compares it with the previous scorecard.
func (e *KPIEngine) BuildScorecard(set models.KPISet) models.Scorecard {
	return e.scorecard(set, true)
}

// scorecard builds the scorecard; remember=false compares without storing
// the overall score as the new baseline.
func (e *KPIEngine) scorecard(set models.KPISet, remember bool) models.Scorecard {
	sc := models.Scorecard{Categories: make(map[models.Category]float64, len(models.Categories))}

	var weighted, totalWeight float64
	for _, c := range models.Categories {
		kpis := set.ByCategory(c)
		if len(kpis) == 0 {
			continue
		}
		var sum float64
		for _, k := range kpis {
			sum += k.Status.Score()
		}
		score := sum / float64(len(kpis))
		sc.Categories[c] = round(score, 1)

		w := e.cfg.Weights[c]
		weighted += score * w
		totalWeight += w
	}
	if totalWeight > 0 {
		sc.Overall = round(weighted/totalWeight, 1)
	}
	sc.Classification = models.Classify(sc.Overall)

	e.mu.Lock()
	sc.Trend = models.TrendStable
	if e.havePrevious {
		switch delta := sc.Overall - e.prevOverall; {
		case delta > 1:
			sc.Trend = models.TrendUp
		case delta < -1:
			sc.Trend = models.TrendDown
		}
	}
	if remember {
		e.prevOverall, e.havePrevious = sc.Overall, true
	}
	e.mu.Unlock()

	return sc
}

// Alerts flags KPIs far from target and cycles with too many degraded sources.
func (e *KPIEngine) Alerts(set models.KPISet, statuses []models.SourceStatus) []models.Alert {
	actions := make(map[string]string, len(catalog))
	for _, def := range catalog {
		actions[def.id] = def.action
	}

	alerts := make([]models.Alert, 0)
	for _, k := range set.All() {
		gap := k.GapPct()
		if gap <= e.cfg.AlertGapPct {
			continue
		}
		severity := "medium"
		if gap > 2*e.cfg.AlertGapPct {
			severity = "high"
		}
		alerts = append(alerts, models.Alert{
			Type:     models.AlertTargetGap,
			KPIID:    k.ID,
			Severity: severity,
			Message:  fmt.Sprintf("%s is %.1f%% off target (%.2f vs %.2f %s)", k.Name, gap, k.Value, k.Target, k.Unit),
			Action:   actions[k.ID],
		})
	}

	var degraded []string
	for _, s := range statuses {
		if s.Degraded() {
			degraded = append(degraded, s.Name)
		}
	}
	if len(degraded) >= e.cfg.DegradedSourcesAlert {
		alerts = append(alerts, models.Alert{
			Type:     models.AlertDataQuality,
			Severity: "high",
			Message:  fmt.Sprintf("%d of %d sources are not serving real data: %v", len(degraded), len(statuses), degraded),
			Action:   "Check provider credentials and quotas",
		})
	}
	return alerts
}

// Recommendations lists the action for each under-target KPI in catalogue order.
func (e *KPIEngine) Recommendations(set models.KPISet) []string {
	under := make(map[string]bool)
	for _, k := range set.All() {
		if k.UnderTarget() {
			under[k.ID] = true
		}
	}
	recs := make([]string, 0, len(under))
	for _, def := range catalog {
		if under[def.id] {
			recs = append(recs, def.action)
		}
	}
	if len(recs) == 0 {
		recs = append(recs, onTargetRecommendation)
	}
	return recs
}

// Run executes one full cycle.
func (e *KPIEngine) Run(ctx context.Context) *models.Dashboard {
	start := time.Now()
	set, statuses := e.ComputeKPIs(ctx)
	// a canceled cycle must not become the trend baseline
	sc := e.scorecard(set, ctx.Err() == nil)

	d := &models.Dashboard{
		CycleID:         uuid.NewString(),
		GeneratedAt:     e.now().UTC(),
		KPIs:            set,
		Scorecard:       sc,
		Alerts:          e.Alerts(set, statuses),
		Recommendations: e.Recommendations(set),
		Sources:         statuses,
	}

	for c, score := range sc.Categories {
		e.metrics.RecordScore(string(c), score)
	}
	e.metrics.RecordScore("overall", sc.Overall)
	e.metrics.RecordLatency("cycle", time.Since(start).Seconds())

	degraded := 0
	for _, s := range statuses {
		if s.Degraded() {
			degraded++
		}
	}
	e.logger.Info("aggregation cycle complete",
		xlogger.String("cycle_id", d.CycleID),
		xlogger.Float64("overall", sc.Overall),
		xlogger.String("classification", string(sc.Classification)),
		xlogger.String("trend", string(sc.Trend)),
		xlogger.Int("alerts", len(d.Alerts)),
		xlogger.Int("degraded_sources", degraded),
		xlogger.Duration("duration_ms", time.Since(start)),
	)
	return d
}

// HealthCheck tests every connector concurrently.
func (e *KPIEngine) HealthCheck(ctx context.Context) []models.HealthStatus {
	conns := e.sources.connectors()
	out := make([]models.HealthStatus, len(conns))

	g, gctx := errgroup.WithContext(ctx)
	for i, c := range conns {
		g.Go(func() error {
			if c == nil {
				out[i] = models.HealthStatus{Source: slots[i], Detail: "not wired", CheckedAt: time.Now().UTC()}
				return nil
			}
			out[i] = c.TestConnection(gctx)
			return nil
		})
	}
	_ = g.Wait()
	return out
}

func round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}
