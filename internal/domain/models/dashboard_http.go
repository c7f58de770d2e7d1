package models

// DashboardRequest holds query params for /api/dashboard.
type DashboardRequest struct {
	Refresh bool `query:"refresh" default:"false"`
}

// KPIsRequest holds query params for /api/kpis.
type KPIsRequest struct {
	Category string `query:"category" validate:"omitempty,oneof=strategic operational economic"`
}
