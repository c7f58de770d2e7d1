package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	pkgcache "AeroPulse/pkg/cache"
)

type envelope struct {
	StoredAt int64           `json:"stored_at"`
	Payload  json.RawMessage `json:"payload"`
}

// ResponseCache stores successful provider responses keyed by
// (source, endpoint, params). Freshness is judged on lookup against the
// caller's ttl; the backend expiry only bounds memory.
type ResponseCache struct {
	store  pkgcache.Store
	maxTTL time.Duration
	now    func() time.Time
}

// Option configures ResponseCache.
type Option func(*ResponseCache)

// WithMaxTTL bounds how long the backend keeps any entry.
func WithMaxTTL(d time.Duration) Option {
	return func(c *ResponseCache) { c.maxTTL = d }
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(c *ResponseCache) { c.now = now }
}

func NewResponseCache(store pkgcache.Store, opts ...Option) *ResponseCache {
	c := &ResponseCache{
		store:  store,
		maxTTL: 24 * time.Hour,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Key returns the stable cache key for a request.
func Key(source, endpoint string, params map[string]string) string {
	raw := fmt.Sprintf("%d:%s%d:%s%s", len(source), source, len(endpoint), endpoint, pkgcache.CanonicalParams(params))
	return pkgcache.GenerateKey("resp", pkgcache.HashKey(raw))
}

// Get returns the payload if stored within ttl. Stale entries are evicted.
func (c *ResponseCache) Get(ctx context.Context, source, endpoint string, params map[string]string, ttl time.Duration) (json.RawMessage, bool) {
	if ttl <= 0 {
		return nil, false
	}
	key := Key(source, endpoint, params)
	b, err := c.store.Get(ctx, key)
	if err != nil {
		return nil, false
	}

	var env envelope
	if err := json.Unmarshal(b, &env); err != nil {
		_ = c.store.Delete(ctx, key)
		return nil, false
	}
	if c.now().Sub(time.Unix(0, env.StoredAt)) > ttl {
		_ = c.store.Delete(ctx, key)
		return nil, false
	}
	return env.Payload, true
}

// Set stores payload stamped with the current time.
func (c *ResponseCache) Set(ctx context.Context, source, endpoint string, params map[string]string, payload json.RawMessage) error {
	b, err := json.Marshal(envelope{StoredAt: c.now().UnixNano(), Payload: payload})
	if err != nil {
		return err
	}
	return c.store.Set(ctx, Key(source, endpoint, params), b, c.maxTTL)
}
