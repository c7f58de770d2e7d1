package server

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"AeroPulse/internal/domain/repository"
	"AeroPulse/internal/usecase"
	"AeroPulse/pkg/config"
	xhttp "AeroPulse/pkg/http"
	applogger "AeroPulse/pkg/logger"
)

// App encapsulates the entire application lifecycle.
type App struct {
	cfg        *config.Config
	logger     *applogger.Logger
	dashboards *usecase.DashboardService
	httpServer *xhttp.Server
	publishers []repository.DashboardPublisher
}

// New creates a new App instance with all dependencies.
func New(
	cfg *config.Config,
	logger *applogger.Logger,
	dashboards *usecase.DashboardService,
	httpServer *xhttp.Server,
	publishers []repository.DashboardPublisher,
) *App {
	return &App{
		cfg:        cfg,
		logger:     logger,
		dashboards: dashboards,
		httpServer: httpServer,
		publishers: publishers,
	}
}

// Run starts the refresh loop and the HTTP server and blocks until ctx ends,
// SIGINT/SIGTERM arrives or the listener fails.
func (a *App) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	loopCtx, cancelLoop := context.WithCancel(ctx)
	loopDone := make(chan struct{})
	go func() {
		defer close(loopDone)
		a.dashboards.Start(loopCtx)
	}()
	a.logger.Info("dashboard refresh loop started",
		applogger.String("station", a.cfg.Engine.Station.IATA),
		applogger.Duration("interval", a.cfg.Engine.RefreshInterval),
	)

	if err := a.httpServer.Start(); err != nil {
		cancelLoop()
		return fmt.Errorf("http server start: %w", err)
	}

	var runErr error
	select {
	case <-ctx.Done():
		a.logger.Info("shutdown signal received")
	case err := <-a.httpServer.Errors():
		runErr = err
	}

	cancelLoop()
	a.shutdown(loopDone)
	return runErr
}

// shutdown gracefully stops all services.
func (a *App) shutdown(loopDone <-chan struct{}) {
	a.logger.Info("shutting down...")

	if err := a.httpServer.Stop(context.Background()); err != nil {
		a.logger.Error("http shutdown error", applogger.Error(err))
	}

	select {
	case <-loopDone:
	case <-time.After(a.cfg.Server.ShutdownTimeout):
		a.logger.Warn("refresh loop did not stop in time")
	}

	// websocket subscribers are hijacked and outlive the HTTP server
	for _, p := range a.publishers {
		if err := p.Close(); err != nil {
			a.logger.Warn("publisher close error", applogger.Error(err))
		}
	}

	a.logger.Info("shutdown complete")
}
