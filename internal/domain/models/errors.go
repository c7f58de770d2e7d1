package models

import (
	"errors"
	"fmt"
)

// ErrorKind classifies provider failures.
type ErrorKind string

const (
	KindAuth          ErrorKind = "AuthError"
	KindRateLimited   ErrorKind = "RateLimitExceeded"
	KindNetwork       ErrorKind = "NetworkError"
	KindParse         ErrorKind = "ParseError"
	KindNotConfigured ErrorKind = "NotConfiguredError"
	KindUpstream      ErrorKind = "UpstreamError"
)

var (
	ErrAuth          = errors.New("authentication failed")
	ErrRateLimited   = errors.New("provider rate limit exceeded")
	ErrNetwork       = errors.New("network failure")
	ErrParse         = errors.New("malformed response body")
	ErrNotConfigured = errors.New("source not configured")
	ErrUpstream      = errors.New("unexpected upstream status")
)

var kindSentinels = map[ErrorKind]error{
	KindAuth:          ErrAuth,
	KindRateLimited:   ErrRateLimited,
	KindNetwork:       ErrNetwork,
	KindParse:         ErrParse,
	KindNotConfigured: ErrNotConfigured,
	KindUpstream:      ErrUpstream,
}

// SourceError is a classified failure from one source.
type SourceError struct {
	Kind   ErrorKind
	Source string
	Status int
	Err    error
}

func (e *SourceError) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Source, e.Kind)
	if e.Status != 0 {
		msg = fmt.Sprintf("%s (status %d)", msg, e.Status)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

// Unwrap returns underlying error.
func (e *SourceError) Unwrap() error {
	return e.Err
}

// Is matches the sentinel for the error kind.
func (e *SourceError) Is(target error) bool {
	return kindSentinels[e.Kind] == target
}

// NewSourceError creates a classified error.
func NewSourceError(kind ErrorKind, source string, status int, err error) *SourceError {
	return &SourceError{Kind: kind, Source: source, Status: status, Err: err}
}

// KindOf returns the kind of err, or "" if err is not a SourceError.
func KindOf(err error) ErrorKind {
	var se *SourceError
	if errors.As(err, &se) {
		return se.Kind
	}
	return ""
}
