package apiclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"AeroPulse/internal/domain/models"
	"AeroPulse/internal/domain/repository"
	icache "AeroPulse/internal/service/cache"
	"AeroPulse/internal/service/credentials"
	"AeroPulse/internal/service/ratelimit"
	"AeroPulse/pkg/config"
	xhttp "AeroPulse/pkg/http"
	xlogger "AeroPulse/pkg/logger"

	"github.com/sony/gobreaker"
)

const defaultTimeout = 10 * time.Second

// errCallerGone marks attempts cut short by the caller's context rather
// than by the provider.
var errCallerGone = errors.New("caller canceled request")

// Requester is the request contract connectors depend on.
type Requester interface {
	Request(ctx context.Context, src SourceConfig, endpoint string, params map[string]string, method string) models.SourceResult[json.RawMessage]
}

type sourceState struct {
	breaker *gobreaker.CircuitBreaker
}

// Client is the single choke point for outbound provider calls.
type Client struct {
	http    *xhttp.Client
	limiter *ratelimit.Limiter
	cache   *icache.ResponseCache
	creds   *credentials.Manager
	metrics repository.Metrics
	logger  *xlogger.Logger

	mu      sync.Mutex
	sources map[string]*sourceState
}

func New(
	httpClient *xhttp.Client,
	limiter *ratelimit.Limiter,
	cache *icache.ResponseCache,
	creds *credentials.Manager,
	metrics repository.Metrics,
	logger *xlogger.Logger,
) *Client {
	if metrics == nil {
		metrics = repository.NoopMetrics{}
	}
	if logger == nil {
		logger = xlogger.Nop()
	}
	return &Client{
		http:    httpClient,
		limiter: limiter,
		cache:   cache,
		creds:   creds,
		metrics: metrics,
		logger:  logger,
		sources: make(map[string]*sourceState),
	}
}

// Request performs one provider call. It never panics or returns an error;
// every outcome is carried in the result.
func (c *Client) Request(ctx context.Context, src SourceConfig, endpoint string, params map[string]string, method string) models.SourceResult[json.RawMessage] {
	start := time.Now()
	defer func() {
		c.metrics.RecordLatency("request_"+src.Name, time.Since(start).Seconds())
	}()

	if method == "" {
		method = xhttp.MethodGet
	}
	cacheable := method == xhttp.MethodGet && src.CacheTTL > 0 && c.cache != nil

	if cacheable {
		if body, ok := c.cache.Get(ctx, src.Name, endpoint, params, src.CacheTTL); ok {
			c.metrics.RecordCache(src.Name, true)
			c.metrics.RecordRequest(src.Name, "cached")
			res := models.Real(src.Name, body)
			res.Cached = true
			return res
		}
		c.metrics.RecordCache(src.Name, false)
	}

	if !src.Configured() {
		return c.fail(src, endpoint, models.NewSourceError(models.KindNotConfigured, src.Name, 0, errors.New("missing credentials")))
	}

	st := c.state(src)
	if st.breaker.State() == gobreaker.StateOpen {
		return c.fail(src, endpoint, models.NewSourceError(models.KindNetwork, src.Name, 0, fmt.Errorf("circuit open: %w", gobreaker.ErrOpenState)))
	}

	waitStart := time.Now()
	if err := c.limiter.Wait(ctx, src.Name, src.RateLimit); err != nil {
		return c.fail(src, endpoint, models.NewSourceError(models.KindNetwork, src.Name, 0, fmt.Errorf("waiting for rate limit slot: %w", err)))
	}
	c.metrics.RecordLimiterWait(src.Name, time.Since(waitStart).Seconds())

	out, err := st.breaker.Execute(func() (interface{}, error) {
		return c.send(ctx, src, endpoint, params, method)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			err = models.NewSourceError(models.KindNetwork, src.Name, 0, fmt.Errorf("circuit open: %w", err))
		}
		return c.fail(src, endpoint, err)
	}
	body := out.(json.RawMessage)

	if cacheable {
		if err := c.cache.Set(ctx, src.Name, endpoint, params, body); err != nil {
			c.logger.Warn("response cache write failed", xlogger.String("source", src.Name), xlogger.Error(err))
		}
	}

	c.metrics.RecordRequest(src.Name, "success")
	c.logger.Debug("provider call succeeded",
		xlogger.String("source", src.Name),
		xlogger.String("endpoint", endpoint),
		xlogger.Duration("duration_ms", time.Since(start)),
	)
	return models.Real(src.Name, body)
}

func (c *Client) send(ctx context.Context, src SourceConfig, endpoint string, params map[string]string, method string) (json.RawMessage, error) {
	resp, err := c.do(ctx, src, endpoint, params, method)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode == http.StatusUnauthorized && src.Auth == config.AuthOAuth2 {
		c.creds.Invalidate(src.Name)
		c.logger.Info("retrying after 401 with fresh token", xlogger.String("source", src.Name))
		resp, err = c.do(ctx, src, endpoint, params, method)
		if err != nil {
			return nil, err
		}
	}

	return classify(src.Name, resp)
}

func (c *Client) do(ctx context.Context, src SourceConfig, endpoint string, params map[string]string, method string) (*xhttp.Response, error) {
	timeout := src.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	reqCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	opts := &xhttp.RequestOptions{
		Method:      method,
		URL:         strings.TrimRight(src.BaseURL, "/") + endpoint,
		Headers:     map[string]string{},
		QueryParams: make(map[string][]string, len(params)+1),
	}
	for k, v := range params {
		opts.QueryParams[k] = []string{v}
	}

	switch src.Auth {
	case config.AuthAPIKeyQuery:
		opts.QueryParams[src.KeyParam] = []string{src.APIKey}
	case config.AuthAPIKeyHeader:
		opts.Headers[src.KeyHeader] = src.APIKey
	case config.AuthOAuth2:
		tok, err := c.creds.Token(reqCtx, src.Name)
		if err != nil {
			if ctx.Err() != nil {
				return nil, models.NewSourceError(models.KindNetwork, src.Name, 0, fmt.Errorf("%w: %w", errCallerGone, err))
			}
			if models.KindOf(err) == "" {
				err = models.NewSourceError(models.KindNetwork, src.Name, 0, err)
			}
			return nil, err
		}
		opts.Headers["Authorization"] = "Bearer " + tok
	}

	resp, err := c.http.Do(reqCtx, opts)
	if err != nil {
		if ctx.Err() != nil {
			err = fmt.Errorf("%w: %w", errCallerGone, err)
		}
		return nil, models.NewSourceError(models.KindNetwork, src.Name, 0, err)
	}
	return resp, nil
}

func classify(source string, resp *xhttp.Response) (json.RawMessage, error) {
	switch {
	case resp.IsSuccess():
		if !json.Valid(resp.Body) {
			return nil, models.NewSourceError(models.KindParse, source, resp.StatusCode, errors.New("response is not valid JSON"))
		}
		return json.RawMessage(resp.Body), nil
	case resp.StatusCode == http.StatusUnauthorized:
		return nil, models.NewSourceError(models.KindAuth, source, resp.StatusCode, errors.New("unauthorized"))
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, models.NewSourceError(models.KindRateLimited, source, resp.StatusCode, nil)
	default:
		return nil, models.NewSourceError(models.KindUpstream, source, resp.StatusCode, fmt.Errorf("%s", snippet(resp.Body)))
	}
}

func (c *Client) fail(src SourceConfig, endpoint string, err error) models.SourceResult[json.RawMessage] {
	kind := models.KindOf(err)
	if kind == "" {
		kind = models.KindNetwork
		err = models.NewSourceError(kind, src.Name, 0, err)
	}
	c.metrics.RecordRequest(src.Name, string(kind))
	c.metrics.RecordError(string(kind))
	if kind != models.KindNotConfigured {
		c.logger.Warn("provider call failed",
			xlogger.String("source", src.Name),
			xlogger.String("endpoint", endpoint),
			xlogger.String("kind", string(kind)),
			xlogger.Error(err),
		)
	}
	return models.Failed[json.RawMessage](src.Name, err)
}

func (c *Client) state(src SourceConfig) *sourceState {
	c.mu.Lock()
	defer c.mu.Unlock()
	if st, ok := c.sources[src.Name]; ok {
		return st
	}

	if src.Window > 0 {
		c.limiter.SetWindow(src.Name, src.Window)
	}
	if src.Auth == config.AuthOAuth2 {
		c.creds.Register(src.Name, credentials.ClientCredentials{
			ClientID:     src.ClientID,
			ClientSecret: src.ClientSecret,
			TokenURL:     src.TokenURL,
		})
	}

	maxFailures := src.BreakerMaxFailures
	if maxFailures == 0 {
		maxFailures = 5
	}
	logger := c.logger
	st := &sourceState{
		breaker: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:    src.Name,
			Timeout: src.BreakerOpenTimeout,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= maxFailures
			},
			IsSuccessful: countsAsHealthy,
			OnStateChange: func(name string, from, to gobreaker.State) {
				logger.Warn("circuit breaker state change",
					xlogger.String("source", name),
					xlogger.String("from", from.String()),
					xlogger.String("to", to.String()),
				)
			},
		}),
	}
	c.sources[src.Name] = st
	return st
}

// countsAsHealthy treats only transport failures and 5xx as breaker failures.
// Attempts abandoned by the caller say nothing about the provider.
func countsAsHealthy(err error) bool {
	if err == nil || errors.Is(err, errCallerGone) {
		return true
	}
	var se *models.SourceError
	if !errors.As(err, &se) {
		return false
	}
	switch se.Kind {
	case models.KindNetwork:
		return false
	case models.KindUpstream:
		return se.Status < 500
	default:
		return true
	}
}

func snippet(b []byte) string {
	const limit = 200
	s := strings.TrimSpace(string(b))
	if len(s) > limit {
		return s[:limit] + "..."
	}
	return s
}
