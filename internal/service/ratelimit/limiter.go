package ratelimit

import (
	"context"
	"sync"
	"time"
)

// DefaultWindow is the trailing interval requests are counted over.
const DefaultWindow = 60 * time.Second

type window struct {
	mu     sync.Mutex
	length time.Duration
	stamps []time.Time // ascending
}

// prune drops timestamps that fell out of the trailing window.
func (w *window) prune(now time.Time) {
	cut := 0
	for cut < len(w.stamps) && !w.stamps[cut].After(now.Add(-w.length)) {
		cut++
	}
	if cut > 0 {
		w.stamps = append(w.stamps[:0], w.stamps[cut:]...)
	}
}

// Limiter throttles requests per source with a sliding window.
// The map lock only guards window lookup; each window has its own lock.
type Limiter struct {
	mu      sync.Mutex
	windows map[string]*window
	lengths map[string]time.Duration
	def     time.Duration
	now     func() time.Time
}

// Option configures Limiter.
type Option func(*Limiter)

// WithDefaultWindow sets the window used by sources without an override.
func WithDefaultWindow(d time.Duration) Option {
	return func(l *Limiter) { l.def = d }
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(l *Limiter) { l.now = now }
}

func New(opts ...Option) *Limiter {
	l := &Limiter{
		windows: make(map[string]*window),
		lengths: make(map[string]time.Duration),
		def:     DefaultWindow,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// SetWindow overrides the window length for source. It applies to windows
// created afterwards and to an existing one.
func (l *Limiter) SetWindow(source string, d time.Duration) {
	if d <= 0 {
		return
	}
	l.mu.Lock()
	l.lengths[source] = d
	w := l.windows[source]
	l.mu.Unlock()
	if w != nil {
		w.mu.Lock()
		w.length = d
		w.mu.Unlock()
	}
}

func (l *Limiter) window(source string) *window {
	l.mu.Lock()
	defer l.mu.Unlock()
	w, ok := l.windows[source]
	if !ok {
		length := l.def
		if d, ok := l.lengths[source]; ok {
			length = d
		}
		w = &window{length: length}
		l.windows[source] = w
	}
	return w
}

// Wait blocks until a request for source fits within limit requests per
// window, then records it. limit <= 0 disables throttling.
// It returns ctx.Err() if ctx ends first; no slot is consumed in that case.
func (l *Limiter) Wait(ctx context.Context, source string, limit int) error {
	if limit <= 0 {
		return ctx.Err()
	}
	w := l.window(source)

	for {
		w.mu.Lock()
		now := l.now()
		w.prune(now)
		if len(w.stamps) < limit {
			w.stamps = append(w.stamps, now)
			w.mu.Unlock()
			return nil
		}
		wait := w.stamps[0].Add(w.length).Sub(now)
		w.mu.Unlock()

		if wait <= 0 {
			continue
		}
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// InWindow returns how many requests for source fall in the current window.
func (l *Limiter) InWindow(source string) int {
	l.mu.Lock()
	w, ok := l.windows[source]
	l.mu.Unlock()
	if !ok {
		return 0
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	w.prune(l.now())
	return len(w.stamps)
}
