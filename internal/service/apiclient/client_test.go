package apiclient

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"AeroPulse/internal/domain/models"
	icache "AeroPulse/internal/service/cache"
	"AeroPulse/internal/service/credentials"
	"AeroPulse/internal/service/ratelimit"
	pkgcache "AeroPulse/pkg/cache"
	"AeroPulse/pkg/config"
	xhttp "AeroPulse/pkg/http"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type harness struct {
	client  *Client
	limiter *ratelimit.Limiter
	creds   *credentials.Manager
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	store := pkgcache.NewMemoryStore(pkgcache.WithMemoryCleanup(0))
	t.Cleanup(func() { _ = store.Close() })
	hc := xhttp.NewClient(xhttp.WithTimeout(5 * time.Second))
	lim := ratelimit.New()
	creds := credentials.NewManager(hc)
	return &harness{
		client:  New(hc, lim, icache.NewResponseCache(store), creds, nil, nil),
		limiter: lim,
		creds:   creds,
	}
}

func keySource(name, baseURL string) SourceConfig {
	return SourceConfig{
		Name:      name,
		BaseURL:   baseURL,
		Auth:      config.AuthAPIKeyQuery,
		APIKey:    "secret",
		KeyParam:  "access_key",
		RateLimit: 100,
		Timeout:   2 * time.Second,
		CacheTTL:  5 * time.Minute,
	}
}

func TestRequest_CacheHitAvoidsRateLimitAndNetwork(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		assert.Equal(t, "secret", r.URL.Query().Get("access_key"))
		assert.Equal(t, "NLU", r.URL.Query().Get("dep_iata"))
		fmt.Fprint(w, `{"data":[{"flight":"VB1"}]}`)
	}))
	defer srv.Close()

	h := newHarness(t)
	src := keySource("traffic", srv.URL)
	ctx := context.Background()
	params := map[string]string{"dep_iata": "NLU", "limit": "20"}

	first := h.client.Request(ctx, src, "/flights", params, "")
	require.True(t, first.Success)
	assert.False(t, first.Cached)
	assert.Equal(t, models.PrecisionReal, first.Precision)

	second := h.client.Request(ctx, src, "/flights", map[string]string{"limit": "20", "dep_iata": "NLU"}, "")
	require.True(t, second.Success)
	assert.True(t, second.Cached)
	assert.Equal(t, models.PrecisionReal, second.Precision)
	assert.JSONEq(t, string(*first.Payload), string(*second.Payload))

	assert.Equal(t, int32(1), atomic.LoadInt32(&hits))
	assert.Equal(t, 1, h.limiter.InWindow("traffic"))
}

func TestRequest_SingleUnauthorizedRecovers(t *testing.T) {
	var tokenCalls, apiCalls int32
	tokenSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt32(&tokenCalls, 1)
		fmt.Fprintf(w, `{"access_token":"tok-%d","expires_in":1800}`, n)
	}))
	defer tokenSrv.Close()

	apiSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt32(&apiCalls, 1)
		// the second call is rejected once, as if the token was revoked upstream
		if n == 2 {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		if r.Header.Get("Authorization") == "" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		fmt.Fprint(w, `{"states":[]}`)
	}))
	defer apiSrv.Close()

	h := newHarness(t)
	src := SourceConfig{
		Name: "aircraft", BaseURL: apiSrv.URL, Auth: config.AuthOAuth2,
		ClientID: "id", ClientSecret: "secret", TokenURL: tokenSrv.URL,
		Timeout: 2 * time.Second,
	}
	ctx := context.Background()

	warm := h.client.Request(ctx, src, "/states/all", nil, "")
	require.True(t, warm.Success)
	before := h.creds.Refreshes("aircraft")

	res := h.client.Request(ctx, src, "/states/all", map[string]string{"lamin": "19"}, "")
	require.True(t, res.Success, "error: %v", res.Err)
	assert.Equal(t, models.PrecisionReal, res.Precision)
	assert.Equal(t, 1, h.creds.Refreshes("aircraft")-before)
	assert.Equal(t, int32(3), atomic.LoadInt32(&apiCalls))
}

func TestRequest_SecondUnauthorizedIsAuthError(t *testing.T) {
	tokenSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"access_token":"tok","expires_in":1800}`)
	}))
	defer tokenSrv.Close()
	var apiCalls int32
	apiSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&apiCalls, 1)
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer apiSrv.Close()

	h := newHarness(t)
	src := SourceConfig{
		Name: "aircraft", BaseURL: apiSrv.URL, Auth: config.AuthOAuth2,
		ClientID: "id", ClientSecret: "secret", TokenURL: tokenSrv.URL,
	}

	res := h.client.Request(context.Background(), src, "/states/all", nil, "")
	require.False(t, res.Success)
	assert.Nil(t, res.Payload)
	assert.ErrorIs(t, res.Err, models.ErrAuth)
	assert.Equal(t, int32(2), atomic.LoadInt32(&apiCalls), "exactly one retry")
}

func TestRequest_StatusClassification(t *testing.T) {
	cases := []struct {
		name   string
		status int
		body   string
		want   error
	}{
		{"provider throttle", http.StatusTooManyRequests, `{}`, models.ErrRateLimited},
		{"plan limited", http.StatusForbidden, `{"error":"plan"}`, models.ErrUpstream},
		{"server error", http.StatusInternalServerError, `oops`, models.ErrUpstream},
		{"malformed body", http.StatusOK, `<html>`, models.ErrParse},
		{"api key rejected", http.StatusUnauthorized, `{}`, models.ErrAuth},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				fmt.Fprint(w, tc.body)
			}))
			defer srv.Close()

			h := newHarness(t)
			src := keySource("punctuality", srv.URL)
			res := h.client.Request(context.Background(), src, "/airports/NLU/delays", nil, "")
			require.False(t, res.Success)
			assert.ErrorIs(t, res.Err, tc.want)

			// failures are never cached
			res = h.client.Request(context.Background(), src, "/airports/NLU/delays", nil, "")
			assert.False(t, res.Cached)
		})
	}
}

func TestRequest_HeaderKeyInjection(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("x-apikey") != "k" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		fmt.Fprint(w, `{"delay_secs":0}`)
	}))
	defer srv.Close()

	h := newHarness(t)
	src := SourceConfig{Name: "punctuality", BaseURL: srv.URL, Auth: config.AuthAPIKeyHeader, APIKey: "k", KeyHeader: "x-apikey"}
	res := h.client.Request(context.Background(), src, "/airports/NLU/delays", nil, "")
	assert.True(t, res.Success)
}

func TestRequest_NotConfiguredMakesNoCall(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
	}))
	defer srv.Close()

	h := newHarness(t)
	src := keySource("weather", srv.URL)
	src.APIKey = ""

	res := h.client.Request(context.Background(), src, "/2.5/weather", nil, "")
	assert.False(t, res.Success)
	assert.ErrorIs(t, res.Err, models.ErrNotConfigured)
	assert.Equal(t, int32(0), atomic.LoadInt32(&hits))
	assert.Equal(t, 0, h.limiter.InWindow("weather"))
}

func TestRequest_TimeoutIsNetworkError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer srv.Close()

	h := newHarness(t)
	src := keySource("traffic", srv.URL)
	src.Timeout = 50 * time.Millisecond

	res := h.client.Request(context.Background(), src, "/flights", nil, "")
	assert.False(t, res.Success)
	assert.ErrorIs(t, res.Err, models.ErrNetwork)
}

func TestRequest_BreakerOpensAfterConsecutiveFailures(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	h := newHarness(t)
	src := keySource("weather", srv.URL)
	src.BreakerMaxFailures = 2
	src.BreakerOpenTimeout = time.Minute

	for i := 0; i < 4; i++ {
		res := h.client.Request(context.Background(), src, "/2.5/weather", nil, "")
		assert.False(t, res.Success)
	}
	assert.Equal(t, int32(2), atomic.LoadInt32(&hits))
	assert.Equal(t, 2, h.limiter.InWindow("weather"), "open breaker takes no window slot")
}

func TestRequest_CallerCancelDoesNotTripBreaker(t *testing.T) {
	var hits, healthy int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		if atomic.LoadInt32(&healthy) == 1 {
			fmt.Fprint(w, `{"ok":true}`)
			return
		}
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer srv.Close()

	h := newHarness(t)
	src := keySource("traffic", srv.URL)
	src.CacheTTL = 0
	src.BreakerMaxFailures = 1
	src.BreakerOpenTimeout = time.Minute

	for i := 0; i < 2; i++ {
		ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
		res := h.client.Request(ctx, src, "/flights", nil, "")
		cancel()
		assert.False(t, res.Success)
		assert.ErrorIs(t, res.Err, models.ErrNetwork)
	}

	atomic.StoreInt32(&healthy, 1)
	res := h.client.Request(context.Background(), src, "/flights", nil, "")
	assert.True(t, res.Success, "error: %v", res.Err)
	assert.Equal(t, int32(3), atomic.LoadInt32(&hits))
}
