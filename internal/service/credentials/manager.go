package credentials

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"time"

	"AeroPulse/internal/domain/models"
	"AeroPulse/internal/domain/repository"
	xhttp "AeroPulse/pkg/http"
	xlogger "AeroPulse/pkg/logger"

	"golang.org/x/sync/singleflight"
)

const (
	DefaultSkew      = 5 * time.Minute
	defaultExpiresIn = 1800
)

// State is the lifecycle position of a source's token.
type State string

const (
	StateNoToken      State = "NO_TOKEN"
	StateValid        State = "VALID"
	StateExpiringSoon State = "EXPIRING_SOON"
	StateInvalidated  State = "INVALIDATED"
)

// ClientCredentials identifies a client-credentials grant.
type ClientCredentials struct {
	ClientID     string
	ClientSecret string
	TokenURL     string
	Scope        string
}

type token struct {
	value       string
	expiresAt   time.Time
	lifetime    time.Duration
	invalidated bool
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
}

// Manager caches bearer tokens per source and refreshes them before expiry.
// Concurrent refreshes for one source share a single exchange.
type Manager struct {
	client  *xhttp.Client
	logger  *xlogger.Logger
	metrics repository.Metrics
	skew    time.Duration
	timeout time.Duration
	now     func() time.Time

	mu        sync.Mutex
	creds     map[string]ClientCredentials
	tokens    map[string]*token
	refreshes map[string]int

	flight singleflight.Group
}

// Option configures Manager.
type Option func(*Manager)

// WithSkew sets how long before expiry a token is considered stale.
func WithSkew(d time.Duration) Option {
	return func(m *Manager) { m.skew = d }
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

// WithExchangeTimeout bounds a single token exchange.
func WithExchangeTimeout(d time.Duration) Option {
	return func(m *Manager) { m.timeout = d }
}

func WithMetrics(r repository.Metrics) Option {
	return func(m *Manager) { m.metrics = r }
}

func WithLogger(l *xlogger.Logger) Option {
	return func(m *Manager) { m.logger = l }
}

func NewManager(client *xhttp.Client, opts ...Option) *Manager {
	m := &Manager{
		client:    client,
		logger:    xlogger.Nop(),
		metrics:   repository.NoopMetrics{},
		skew:      DefaultSkew,
		timeout:   15 * time.Second,
		now:       time.Now,
		creds:     make(map[string]ClientCredentials),
		tokens:    make(map[string]*token),
		refreshes: make(map[string]int),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Register sets the grant used for source.
func (m *Manager) Register(source string, c ClientCredentials) {
	m.mu.Lock()
	m.creds[source] = c
	delete(m.tokens, source)
	m.mu.Unlock()
}

// Token returns a token with more than the skew remaining, exchanging a new
// one when needed.
func (m *Manager) Token(ctx context.Context, source string) (string, error) {
	if v, ok := m.cached(source); ok {
		return v, nil
	}

	ch := m.flight.DoChan(source, func() (interface{}, error) {
		if v, ok := m.cached(source); ok {
			return v, nil
		}
		// Detached so one caller giving up does not fail the others.
		xctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), m.timeout)
		defer cancel()
		return m.exchange(xctx, source)
	})

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case r := <-ch:
		if r.Err != nil {
			return "", r.Err
		}
		return r.Val.(string), nil
	}
}

// Invalidate drops the cached token so the next Token call refreshes.
func (m *Manager) Invalidate(source string) {
	m.mu.Lock()
	if t, ok := m.tokens[source]; ok {
		t.invalidated = true
	}
	m.mu.Unlock()
	m.logger.Debug("token invalidated", xlogger.String("source", source))
}

// State reports the lifecycle state of source's token.
func (m *Manager) State(source string) State {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tokens[source]
	switch {
	case !ok:
		return StateNoToken
	case t.invalidated:
		return StateInvalidated
	case !m.now().Before(m.staleAt(t)):
		return StateExpiringSoon
	default:
		return StateValid
	}
}

// Refreshes returns how many successful exchanges were made for source.
func (m *Manager) Refreshes(source string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.refreshes[source]
}

func (m *Manager) cached(source string) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tokens[source]
	if !ok || t.invalidated || !m.now().Before(m.staleAt(t)) {
		return "", false
	}
	return t.value, true
}

// staleAt is when t stops being served. The skew is capped at half the
// token's lifetime so short-lived tokens are still reused.
func (m *Manager) staleAt(t *token) time.Time {
	return t.expiresAt.Add(-min(m.skew, t.lifetime/2))
}

func (m *Manager) exchange(ctx context.Context, source string) (string, error) {
	m.mu.Lock()
	c, ok := m.creds[source]
	m.mu.Unlock()
	if !ok || c.ClientID == "" || c.ClientSecret == "" || c.TokenURL == "" {
		return "", models.NewSourceError(models.KindNotConfigured, source, 0, fmt.Errorf("no client credentials"))
	}

	form := url.Values{
		"grant_type":    {"client_credentials"},
		"client_id":     {c.ClientID},
		"client_secret": {c.ClientSecret},
	}
	if c.Scope != "" {
		form.Set("scope", c.Scope)
	}

	start := time.Now()
	resp, err := m.client.Do(ctx, &xhttp.RequestOptions{
		Method: xhttp.MethodPost,
		URL:    c.TokenURL,
		Form:   form,
	})
	m.metrics.RecordLatency("token_exchange", time.Since(start).Seconds())
	if err != nil {
		m.metrics.RecordTokenRefresh(source, false)
		return "", models.NewSourceError(models.KindNetwork, source, 0, err)
	}
	if !resp.IsSuccess() {
		m.metrics.RecordTokenRefresh(source, false)
		kind := models.KindAuth
		switch {
		case resp.StatusCode == http.StatusTooManyRequests:
			kind = models.KindRateLimited
		case resp.StatusCode >= 500:
			kind = models.KindUpstream
		}
		m.logger.Warn("token exchange rejected",
			xlogger.String("source", source),
			xlogger.Int("status", resp.StatusCode),
		)
		return "", models.NewSourceError(kind, source, resp.StatusCode, fmt.Errorf("token endpoint rejected request"))
	}

	var tr tokenResponse
	if err := json.Unmarshal(resp.Body, &tr); err != nil || tr.AccessToken == "" {
		m.metrics.RecordTokenRefresh(source, false)
		if err == nil {
			err = fmt.Errorf("access_token missing")
		}
		return "", models.NewSourceError(models.KindParse, source, resp.StatusCode, err)
	}
	if tr.ExpiresIn <= 0 {
		tr.ExpiresIn = defaultExpiresIn
	}

	lifetime := time.Duration(tr.ExpiresIn) * time.Second
	m.mu.Lock()
	m.tokens[source] = &token{value: tr.AccessToken, expiresAt: m.now().Add(lifetime), lifetime: lifetime}
	m.refreshes[source]++
	m.mu.Unlock()

	m.metrics.RecordTokenRefresh(source, true)
	m.logger.Info("token refreshed",
		xlogger.String("source", source),
		xlogger.Int("expires_in", tr.ExpiresIn),
	)
	return tr.AccessToken, nil
}
