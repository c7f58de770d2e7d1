package models

import "time"

// Classification labels the overall score.
type Classification string

const (
	ClassHighPerformance  Classification = "high_performance"
	ClassSatisfactory     Classification = "satisfactory"
	ClassNeedsImprovement Classification = "needs_improvement"
	ClassCritical         Classification = "critical"
)

// Classify maps an overall score to its label.
func Classify(overall float64) Classification {
	switch {
	case overall >= 75:
		return ClassHighPerformance
	case overall >= 60:
		return ClassSatisfactory
	case overall >= 40:
		return ClassNeedsImprovement
	default:
		return ClassCritical
	}
}

// Trend compares the overall score with the previous cycle.
type Trend string

const (
	TrendUp     Trend = "up"
	TrendDown   Trend = "down"
	TrendStable Trend = "stable"
)

// Scorecard is the composite score of a cycle.
type Scorecard struct {
	Categories     map[Category]float64 `json:"categories"`
	Overall        float64              `json:"overall"`
	Classification Classification       `json:"classification"`
	Trend          Trend                `json:"trend"`
}

// AlertType classifies alerts.
type AlertType string

const (
	AlertTargetGap   AlertType = "target_gap"
	AlertDataQuality AlertType = "data_quality"
)

// Alert is a threshold breach worth surfacing.
type Alert struct {
	Type     AlertType `json:"type"`
	KPIID    string    `json:"kpi_id,omitempty"`
	Severity string    `json:"severity"`
	Message  string    `json:"message"`
	Action   string    `json:"action,omitempty"`
}

// SourceStatus summarises one connector's contribution to a cycle.
type SourceStatus struct {
	Name      string    `json:"name"`
	Success   bool      `json:"success"`
	Precision Precision `json:"precision"`
	Cached    bool      `json:"cached"`
	Error     string    `json:"error,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Degraded reports whether the source did not deliver REAL data.
func (s SourceStatus) Degraded() bool {
	return s.Precision != PrecisionReal
}

// Dashboard is the full output of an aggregation cycle.
type Dashboard struct {
	CycleID         string         `json:"cycle_id"`
	GeneratedAt     time.Time      `json:"generated_at"`
	KPIs            KPISet         `json:"kpis"`
	Scorecard       Scorecard      `json:"scorecard"`
	Alerts          []Alert        `json:"alerts"`
	Recommendations []string       `json:"recommendations"`
	Sources         []SourceStatus `json:"sources"`
}
