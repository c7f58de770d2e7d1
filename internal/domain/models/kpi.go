package models

import "time"

// Category groups KPIs on the scorecard.
type Category string

const (
	CategoryStrategic   Category = "strategic"
	CategoryOperational Category = "operational"
	CategoryEconomic    Category = "economic"
)

// Categories lists categories in scorecard order.
var Categories = []Category{CategoryStrategic, CategoryOperational, CategoryEconomic}

// Status is the progress band of a KPI against its target.
type Status string

const (
	StatusExcellent      Status = "excellent"
	StatusGood           Status = "good"
	StatusRegular        Status = "regular"
	StatusNeedsAttention Status = "needs_attention"
)

// Score maps a status onto the 0-100 scorecard scale.
func (s Status) Score() float64 {
	switch s {
	case StatusExcellent:
		return 100
	case StatusGood:
		return 80
	case StatusRegular:
		return 60
	default:
		return 30
	}
}

// EvaluateStatus bands progress toward target.
func EvaluateStatus(value, target float64, lowerIsBetter bool) Status {
	p := Progress(value, target, lowerIsBetter)
	switch {
	case p >= 90:
		return StatusExcellent
	case p >= 75:
		return StatusGood
	case p >= 50:
		return StatusRegular
	default:
		return StatusNeedsAttention
	}
}

// Progress returns value against target as a percentage.
func Progress(value, target float64, lowerIsBetter bool) float64 {
	if lowerIsBetter {
		if value <= 0 {
			return 100
		}
		return target / value * 100
	}
	if target == 0 {
		return 100
	}
	return value / target * 100
}

// KPI is one indicator with its provenance.
type KPI struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	Category      Category  `json:"category"`
	Value         float64   `json:"value"`
	Unit          string    `json:"unit"`
	Target        float64   `json:"target"`
	LowerIsBetter bool      `json:"lower_is_better,omitempty"`
	Status        Status    `json:"status"`
	Precision     Precision `json:"precision"`
	Source        string    `json:"source"`
	Timestamp     time.Time `json:"timestamp"`
}

// GapPct is the relative shortfall against target, 0 when on or above target.
func (k KPI) GapPct() float64 {
	if k.Target == 0 {
		return 0
	}
	var gap float64
	if k.LowerIsBetter {
		gap = (k.Value - k.Target) / k.Target * 100
	} else {
		gap = (k.Target - k.Value) / k.Target * 100
	}
	if gap < 0 {
		return 0
	}
	return gap
}

// UnderTarget reports whether the KPI misses its target.
func (k KPI) UnderTarget() bool {
	return k.GapPct() > 0
}

// KPISet holds one cycle's KPIs by category.
type KPISet struct {
	Strategic   []KPI `json:"strategic"`
	Operational []KPI `json:"operational"`
	Economic    []KPI `json:"economic"`
}

// ByCategory returns the KPIs of one category.
func (s KPISet) ByCategory(c Category) []KPI {
	switch c {
	case CategoryStrategic:
		return s.Strategic
	case CategoryOperational:
		return s.Operational
	case CategoryEconomic:
		return s.Economic
	}
	return nil
}

// All returns every KPI in scorecard order.
func (s KPISet) All() []KPI {
	out := make([]KPI, 0, len(s.Strategic)+len(s.Operational)+len(s.Economic))
	out = append(out, s.Strategic...)
	out = append(out, s.Operational...)
	out = append(out, s.Economic...)
	return out
}

// Add appends k to its category.
func (s *KPISet) Add(k KPI) {
	switch k.Category {
	case CategoryStrategic:
		s.Strategic = append(s.Strategic, k)
	case CategoryOperational:
		s.Operational = append(s.Operational, k)
	case CategoryEconomic:
		s.Economic = append(s.Economic, k)
	}
}
