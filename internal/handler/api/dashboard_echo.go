package api

import (
	"context"

	"AeroPulse/internal/domain/models"
	xhttp "AeroPulse/pkg/http"
	xlogger "AeroPulse/pkg/logger"

	"github.com/labstack/echo/v4"
)

// DashboardReader is what the HTTP layer needs from the dashboard service.
type DashboardReader interface {
	Latest() *models.Dashboard
	Get(ctx context.Context, refresh bool) *models.Dashboard
	HealthCheck(ctx context.Context) []models.HealthStatus
}

// DashboardEchoHandler serves the dashboard, KPIs, scorecard and source health.
type DashboardEchoHandler struct {
	logger *xlogger.Logger
	svc    DashboardReader
}

func NewDashboardEchoHandler(logger *xlogger.Logger, svc DashboardReader) *DashboardEchoHandler {
	if logger == nil {
		logger = xlogger.Nop()
	}
	return &DashboardEchoHandler{logger: logger, svc: svc}
}

func (h *DashboardEchoHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api")
	g.GET("/dashboard", h.Dashboard)
	g.GET("/kpis", h.KPIs)
	g.GET("/scorecard", h.Scorecard)
	g.GET("/sources/health", h.SourcesHealth)
}

// Dashboard returns the latest cycle; refresh=true forces a new one.
func (h *DashboardEchoHandler) Dashboard(c echo.Context) error {
	req := &models.DashboardRequest{}
	if verr := xhttp.BindAndValidate(c, req); verr != nil {
		return xhttp.BadRequest(c, verr)
	}

	d := h.svc.Get(c.Request().Context(), req.Refresh)
	if d == nil {
		return xhttp.Fail(c, xhttp.Unavailable("dashboard not ready"))
	}
	if !req.Refresh {
		c.Response().Header().Set(echo.HeaderCacheControl, "private, max-age=30")
	}
	return xhttp.OK(c, d)
}

// KPIs returns the KPI set, optionally narrowed to one category.
func (h *DashboardEchoHandler) KPIs(c echo.Context) error {
	req := &models.KPIsRequest{}
	if verr := xhttp.BindAndValidate(c, req); verr != nil {
		return xhttp.BadRequest(c, verr)
	}

	d := h.svc.Get(c.Request().Context(), false)
	if d == nil {
		return xhttp.Fail(c, xhttp.Unavailable("dashboard not ready"))
	}
	if req.Category == "" {
		return xhttp.OK(c, d.KPIs)
	}
	return xhttp.OK(c, d.KPIs.ByCategory(models.Category(req.Category)))
}

type scorecardResponse struct {
	CycleID   string           `json:"cycle_id"`
	Scorecard models.Scorecard `json:"scorecard"`
	Alerts    []models.Alert   `json:"alerts"`
}

// Scorecard returns only the composite score and alerts of the latest cycle.
func (h *DashboardEchoHandler) Scorecard(c echo.Context) error {
	d := h.svc.Get(c.Request().Context(), false)
	if d == nil {
		return xhttp.Fail(c, xhttp.Unavailable("dashboard not ready"))
	}
	return xhttp.OK(c, scorecardResponse{
		CycleID:   d.CycleID,
		Scorecard: d.Scorecard,
		Alerts:    d.Alerts,
	})
}

// SourcesHealth runs a live connection test against every provider.
func (h *DashboardEchoHandler) SourcesHealth(c echo.Context) error {
	statuses := h.svc.HealthCheck(c.Request().Context())
	healthy := 0
	for _, s := range statuses {
		if s.Healthy {
			healthy++
		}
	}
	h.logger.Debug("source health checked",
		xlogger.Int("sources", len(statuses)),
		xlogger.Int("healthy", healthy),
	)
	return xhttp.OK(c, statuses)
}
