package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"AeroPulse/internal/domain/models"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeReader struct {
	dash      *models.Dashboard
	refreshes int32
	health    []models.HealthStatus
}

func (f *fakeReader) Latest() *models.Dashboard { return f.dash }

func (f *fakeReader) Get(_ context.Context, refresh bool) *models.Dashboard {
	if refresh {
		atomic.AddInt32(&f.refreshes, 1)
	}
	return f.dash
}

func (f *fakeReader) HealthCheck(context.Context) []models.HealthStatus { return f.health }

func sampleDashboard(id string) *models.Dashboard {
	var set models.KPISet
	set.Add(models.KPI{ID: "KPI_001", Category: models.CategoryStrategic, Value: 45})
	set.Add(models.KPI{ID: "KPI_005", Category: models.CategoryOperational, Value: 90})
	set.Add(models.KPI{ID: "KPI_010", Category: models.CategoryEconomic, Value: 48.6})
	return &models.Dashboard{
		CycleID:     id,
		GeneratedAt: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
		KPIs:        set,
		Scorecard: models.Scorecard{
			Overall:        88.9,
			Classification: models.ClassHighPerformance,
			Trend:          models.TrendStable,
		},
		Alerts: []models.Alert{{Type: models.AlertDataQuality, Severity: "medium", Message: "degraded"}},
	}
}

type envelope struct {
	Status int             `json:"status"`
	Data   json.RawMessage `json:"data"`
	Errors json.RawMessage `json:"errors"`
}

func serve(t *testing.T, e *echo.Echo, target string) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	return rec, env
}

func newEcho(r DashboardReader) *echo.Echo {
	e := echo.New()
	NewDashboardEchoHandler(nil, r).RegisterRoutes(e)
	return e
}

func TestDashboard_ReturnsLatest(t *testing.T) {
	r := &fakeReader{dash: sampleDashboard("c1")}
	rec, env := serve(t, newEcho(r), "/api/dashboard")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "private, max-age=30", rec.Header().Get(echo.HeaderCacheControl))
	var d models.Dashboard
	require.NoError(t, json.Unmarshal(env.Data, &d))
	assert.Equal(t, "c1", d.CycleID)
	assert.Equal(t, 88.9, d.Scorecard.Overall)
	assert.Equal(t, int32(0), r.refreshes)
}

func TestDashboard_RefreshForcesCycle(t *testing.T) {
	r := &fakeReader{dash: sampleDashboard("c1")}
	rec, _ := serve(t, newEcho(r), "/api/dashboard?refresh=true")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Header().Get(echo.HeaderCacheControl))
	assert.Equal(t, int32(1), r.refreshes)
}

func TestDashboard_NotReady(t *testing.T) {
	rec, env := serve(t, newEcho(&fakeReader{}), "/api/scorecard")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, http.StatusServiceUnavailable, env.Status)
	assert.Contains(t, string(env.Errors), "ERR_UNAVAILABLE")
}

func TestKPIs_FilterByCategory(t *testing.T) {
	e := newEcho(&fakeReader{dash: sampleDashboard("c1")})

	_, env := serve(t, e, "/api/kpis?category=economic")
	var kpis []models.KPI
	require.NoError(t, json.Unmarshal(env.Data, &kpis))
	require.Len(t, kpis, 1)
	assert.Equal(t, "KPI_010", kpis[0].ID)

	_, env = serve(t, e, "/api/kpis")
	var set models.KPISet
	require.NoError(t, json.Unmarshal(env.Data, &set))
	assert.Len(t, set.All(), 3)
}

func TestKPIs_RejectsUnknownCategory(t *testing.T) {
	rec, env := serve(t, newEcho(&fakeReader{dash: sampleDashboard("c1")}), "/api/kpis?category=financial")

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	var errs []struct {
		Code  string `json:"code"`
		Field string `json:"field"`
	}
	require.NoError(t, json.Unmarshal(env.Errors, &errs))
	require.Len(t, errs, 1)
	assert.Equal(t, "ERR_ONEOF", errs[0].Code)
	assert.Equal(t, "category", errs[0].Field)
}

func TestDashboard_RejectsMalformedRefresh(t *testing.T) {
	r := &fakeReader{dash: sampleDashboard("c1")}
	rec, env := serve(t, newEcho(r), "/api/dashboard?refresh=maybe")

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, string(env.Errors), "ERR_BIND")
	assert.Equal(t, int32(0), r.refreshes)
}

func TestScorecard(t *testing.T) {
	_, env := serve(t, newEcho(&fakeReader{dash: sampleDashboard("c9")}), "/api/scorecard")

	var sc scorecardResponse
	require.NoError(t, json.Unmarshal(env.Data, &sc))
	assert.Equal(t, "c9", sc.CycleID)
	assert.Equal(t, models.ClassHighPerformance, sc.Scorecard.Classification)
	assert.Len(t, sc.Alerts, 1)
}

func TestSourcesHealth(t *testing.T) {
	r := &fakeReader{health: []models.HealthStatus{
		{Source: "traffic", Available: true, Healthy: true},
		{Source: "weather", Available: false, Detail: "not configured"},
	}}
	_, env := serve(t, newEcho(r), "/api/sources/health")

	var got []models.HealthStatus
	require.NoError(t, json.Unmarshal(env.Data, &got))
	require.Len(t, got, 2)
	assert.True(t, got[0].Healthy)
	assert.Equal(t, "not configured", got[1].Detail)
}

func dialHub(t *testing.T, hub *ScorecardHub) *websocket.Conn {
	t.Helper()
	e := echo.New()
	hub.RegisterRoutes(e)
	srv := httptest.NewServer(e)
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/scorecard"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func readUpdate(t *testing.T, conn *websocket.Conn) ScorecardUpdate {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var u ScorecardUpdate
	require.NoError(t, conn.ReadJSON(&u))
	return u
}

func TestScorecardHub_StreamsUpdates(t *testing.T) {
	hub := NewScorecardHub(nil)
	require.NoError(t, hub.Publish(context.Background(), sampleDashboard("c1")))

	conn := dialHub(t, hub)

	first := readUpdate(t, conn)
	assert.Equal(t, "scorecard", first.Type)
	assert.Equal(t, "c1", first.CycleID)
	assert.Equal(t, 88.9, first.Scorecard.Overall)

	require.Eventually(t, func() bool { return hub.Clients() == 1 }, time.Second, 10*time.Millisecond)
	require.NoError(t, hub.Publish(context.Background(), sampleDashboard("c2")))
	assert.Equal(t, "c2", readUpdate(t, conn).CycleID)
}

func TestScorecardHub_CloseDisconnects(t *testing.T) {
	hub := NewScorecardHub(nil)
	conn := dialHub(t, hub)
	require.Eventually(t, func() bool { return hub.Clients() == 1 }, time.Second, 10*time.Millisecond)

	require.NoError(t, hub.Close())
	assert.Equal(t, 0, hub.Clients())

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, _, err := conn.ReadMessage()
	assert.Error(t, err)
}

func TestScorecardHub_DropsSlowSubscriber(t *testing.T) {
	hub := NewScorecardHub(nil)
	c := &wsClient{send: make(chan []byte, 1)}
	hub.clients[c] = struct{}{}

	require.NoError(t, hub.Publish(context.Background(), sampleDashboard("c1")))
	require.NoError(t, hub.Publish(context.Background(), sampleDashboard("c2")))

	assert.Equal(t, 0, hub.Clients())
	_, open := <-c.send
	assert.True(t, open, "buffered update is still readable")
	_, open = <-c.send
	assert.False(t, open)
}
