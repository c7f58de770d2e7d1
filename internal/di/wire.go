//go:build wireinject
// +build wireinject

package di

import (
	"AeroPulse/internal/connectors"
	"AeroPulse/internal/usecase"
	"AeroPulse/pkg/config"
	"AeroPulse/pkg/server"

	"github.com/google/wire"
)

// engineSet builds everything up to the aggregation engine.
var engineSet = wire.NewSet(
	ProvideLogger,
	ProvideMetrics,

	// Infrastructure
	ProvideCacheStore,
	ProvideResponseCache,
	ProvideRateLimiter,
	ProvideHTTPClient,
	ProvideCredentials,
	ProvideAPIClient,

	// Sources
	connectors.NewSimulatedProvider,
	ProvideSources,

	ProvideKPIEngine,
)

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, func(), error) {
	wire.Build(
		engineSet,

		// Delivery
		ProvideScorecardHub,
		ProvidePublishers,
		ProvideDashboardService,
		ProvideHTTPServer,

		ProvideApp,
	)
	return nil, nil, nil
}

// InitializeEngine wires the engine alone for one-shot commands.
func InitializeEngine(cfg *config.Config) (*usecase.KPIEngine, func(), error) {
	wire.Build(engineSet)
	return nil, nil, nil
}
