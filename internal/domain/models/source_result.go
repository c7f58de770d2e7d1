package models

import "time"

// Precision marks the provenance of a value.
type Precision string

const (
	PrecisionReal      Precision = "REAL"
	PrecisionEstimated Precision = "ESTIMATED"
	PrecisionSimulated Precision = "SIMULATED"
)

// SourceResult is the normalized outcome of a provider fetch.
// Payload is nil only for raw client failures; connectors always fill it.
type SourceResult[T any] struct {
	Success   bool      `json:"success"`
	Payload   *T        `json:"payload,omitempty"`
	Precision Precision `json:"precision"`
	Source    string    `json:"source"`
	Timestamp time.Time `json:"timestamp"`
	Cached    bool      `json:"cached"`
	Err       error     `json:"-"`
}

// Real builds a successful REAL result.
func Real[T any](source string, payload T) SourceResult[T] {
	return SourceResult[T]{
		Success:   true,
		Payload:   &payload,
		Precision: PrecisionReal,
		Source:    source,
		Timestamp: time.Now().UTC(),
	}
}

// Degraded builds a failed result that still carries a fallback payload.
func Degraded[T any](source string, payload T, precision Precision, err error) SourceResult[T] {
	return SourceResult[T]{
		Success:   false,
		Payload:   &payload,
		Precision: precision,
		Source:    source,
		Timestamp: time.Now().UTC(),
		Err:       err,
	}
}

// Failed builds a failed result with no payload.
func Failed[T any](source string, err error) SourceResult[T] {
	return SourceResult[T]{
		Success:   false,
		Precision: PrecisionSimulated,
		Source:    source,
		Timestamp: time.Now().UTC(),
		Err:       err,
	}
}

// ErrorDetail returns the error text or "".
func (r SourceResult[T]) ErrorDetail() string {
	if r.Err == nil {
		return ""
	}
	return r.Err.Error()
}
