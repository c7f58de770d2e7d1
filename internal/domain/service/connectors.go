package service

import (
	"context"

	"AeroPulse/internal/domain/models"
)

// Connector is the capability every provider connector shares.
type Connector interface {
	Name() string
	Available() bool
	TestConnection(ctx context.Context) models.HealthStatus
}

// TrafficSource provides departure/arrival counts and routes.
type TrafficSource interface {
	Connector
	FetchFlightSummary(ctx context.Context, station string) models.SourceResult[models.FlightSummary]
	FetchRoutes(ctx context.Context, station string) models.SourceResult[[]models.Route]
}

// PunctualitySource provides delay statistics.
type PunctualitySource interface {
	Connector
	FetchDelayStats(ctx context.Context, station string) models.SourceResult[models.DelayStats]
}

// WeatherSource provides current conditions with a flight-impact classification.
type WeatherSource interface {
	Connector
	FetchCurrentWeather(ctx context.Context, station models.Station) models.SourceResult[models.WeatherReport]
}

// AircraftSource provides aircraft activity within a region.
type AircraftSource interface {
	Connector
	FetchAreaActivity(ctx context.Context, station models.Station, box models.BoundingBox) models.SourceResult[models.AreaActivity]
}

// StatisticsSource provides validated reference statistics.
type StatisticsSource interface {
	Connector
	FetchReferenceStats(ctx context.Context) models.SourceResult[models.ReferenceStats]
}
