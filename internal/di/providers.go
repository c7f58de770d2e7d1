package di

import (
	"fmt"
	"time"

	"AeroPulse/internal/connectors"
	"AeroPulse/internal/domain/repository"
	"AeroPulse/internal/handler/api"
	internalrepo "AeroPulse/internal/repository"
	"AeroPulse/internal/service/apiclient"
	icache "AeroPulse/internal/service/cache"
	"AeroPulse/internal/service/credentials"
	"AeroPulse/internal/service/ratelimit"
	"AeroPulse/internal/usecase"
	pkgcache "AeroPulse/pkg/cache"
	"AeroPulse/pkg/config"
	xhttp "AeroPulse/pkg/http"
	pkgkafka "AeroPulse/pkg/kafka"
	xlogger "AeroPulse/pkg/logger"
	"AeroPulse/pkg/metrics"
	"AeroPulse/pkg/server"
)

// ProvideLogger creates the application logger from the log section.
func ProvideLogger(cfg *config.Config) (*xlogger.Logger, error) {
	l, err := xlogger.New(&xlogger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}
	return l.With(xlogger.String("env", cfg.Environment)), nil
}

// ProvideMetrics creates a Prometheus metrics recorder.
func ProvideMetrics(cfg *config.Config) repository.Metrics {
	if !cfg.Metrics.Enabled {
		return repository.NoopMetrics{}
	}
	return metrics.New()
}

// ProvideCacheStore creates the in-process store, or a layered memory+redis
// store when the redis backend is selected.
func ProvideCacheStore(cfg *config.Config, logger *xlogger.Logger) (pkgcache.Store, func(), error) {
	var store pkgcache.Store
	switch cfg.Cache.Backend {
	case "redis":
		rs, err := pkgcache.NewRedisStore(
			pkgcache.WithRedisAddr(cfg.Cache.Redis.Addr),
			pkgcache.WithRedisPassword(cfg.Cache.Redis.Password),
			pkgcache.WithRedisDB(cfg.Cache.Redis.DB),
			pkgcache.WithRedisPrefix(cfg.Cache.Redis.Prefix),
			pkgcache.WithRedisPool(cfg.Cache.Redis.PoolSize, cfg.Cache.Redis.MinIdleConns, cfg.Cache.Redis.PoolTimeout),
		)
		if err != nil {
			return nil, nil, fmt.Errorf("redis cache: %w", err)
		}
		store = pkgcache.NewLayeredStore(rs,
			pkgcache.WithLayeredMemorySize(cfg.Cache.L1.MaxSize),
			pkgcache.WithLayeredL1TTL(cfg.Cache.L1.TTL),
		)
	default:
		store = pkgcache.NewMemoryStore(pkgcache.WithMemoryShards(cfg.Cache.Shards))
	}
	logger.Info("response cache ready", xlogger.String("backend", cfg.Cache.Backend))

	cleanup := func() {
		if err := store.Close(); err != nil {
			logger.Warn("cache close error", xlogger.Error(err))
		}
	}
	return store, cleanup, nil
}

// ProvideResponseCache wraps the store with provider-aware keys.
func ProvideResponseCache(store pkgcache.Store, cfg *config.Config) *icache.ResponseCache {
	return icache.NewResponseCache(store, icache.WithMaxTTL(cfg.Cache.MaxTTL))
}

// ProvideRateLimiter creates the per-source sliding window limiter.
func ProvideRateLimiter() *ratelimit.Limiter {
	return ratelimit.New()
}

// ProvideHTTPClient creates the shared outbound HTTP client.
func ProvideHTTPClient() *xhttp.Client {
	return xhttp.NewClient(xhttp.WithTimeout(30 * time.Second))
}

// ProvideCredentials creates the OAuth2 token manager.
func ProvideCredentials(hc *xhttp.Client, m repository.Metrics, logger *xlogger.Logger) *credentials.Manager {
	return credentials.NewManager(hc,
		credentials.WithMetrics(m),
		credentials.WithLogger(logger.With(xlogger.Component("credentials"))),
	)
}

// ProvideAPIClient creates the unified request client.
func ProvideAPIClient(
	hc *xhttp.Client,
	limiter *ratelimit.Limiter,
	cache *icache.ResponseCache,
	creds *credentials.Manager,
	m repository.Metrics,
	logger *xlogger.Logger,
) *apiclient.Client {
	return apiclient.New(hc, limiter, cache, creds, m, logger.With(xlogger.Component("apiclient")))
}

// ProvideSources builds every connector from its YAML block.
func ProvideSources(cfg *config.Config, client *apiclient.Client, fallback *connectors.SimulatedProvider, logger *xlogger.Logger) usecase.Sources {
	logger = logger.With(xlogger.Component("connectors"))
	ttl := cfg.Cache.TTL
	src := func(name string, sc config.SourceConfig) apiclient.SourceConfig {
		return apiclient.FromConfig(name, sc, ttl.For(sc.CacheCategory))
	}
	s := cfg.Sources

	return usecase.Sources{
		Traffic:     connectors.NewTrafficConnector(client, src(connectors.SourceTraffic, s.Traffic), fallback, logger),
		Punctuality: connectors.NewPunctualityConnector(client, src(connectors.SourcePunctuality, s.Punctuality), fallback, logger),
		Weather:     connectors.NewWeatherConnector(client, src(connectors.SourceWeather, s.Weather), fallback, logger),
		Aircraft:    connectors.NewAircraftConnector(client, src(connectors.SourceAircraft, s.Aircraft), fallback, logger),
		Stats:       connectors.NewGovStatsConnector(),
	}
}

// ProvideKPIEngine creates the aggregation engine.
func ProvideKPIEngine(sources usecase.Sources, cfg *config.Config, m repository.Metrics, logger *xlogger.Logger) *usecase.KPIEngine {
	return usecase.NewKPIEngine(sources, usecase.EngineConfigFrom(cfg.Engine), m, logger.With(xlogger.Component("engine")))
}

// ProvideScorecardHub creates the websocket broadcaster.
func ProvideScorecardHub(logger *xlogger.Logger) *api.ScorecardHub {
	return api.NewScorecardHub(logger)
}

// ProvidePublishers returns the websocket hub plus a Kafka publisher when enabled.
func ProvidePublishers(cfg *config.Config, hub *api.ScorecardHub, logger *xlogger.Logger) ([]repository.DashboardPublisher, error) {
	pubs := []repository.DashboardPublisher{hub}
	if !cfg.Kafka.Enabled {
		return pubs, nil
	}

	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithCompression(cfg.Kafka.Compression),
		pkgkafka.WithRequiredAcks(cfg.Kafka.RequiredAcks),
		pkgkafka.WithMaxAttempts(cfg.Kafka.MaxAttempts),
		pkgkafka.WithTimeouts(cfg.Kafka.WriteTimeout, cfg.Kafka.WriteTimeout),
		pkgkafka.WithHashByKey(true),
		pkgkafka.WithAutoCreateTopic(cfg.Kafka.AutoCreate),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka producer: %w", err)
	}
	logger.Info("kafka publisher enabled",
		xlogger.Strings("brokers", cfg.Kafka.Brokers),
		xlogger.String("topic", cfg.Kafka.Topic),
	)
	return append(pubs, internalrepo.NewKafkaDashboardPublisher(producer, cfg.Kafka.Topic, cfg.Engine.Station.IATA)), nil
}

// ProvideDashboardService creates the scheduled dashboard service.
func ProvideDashboardService(engine *usecase.KPIEngine, cfg *config.Config, logger *xlogger.Logger, pubs []repository.DashboardPublisher) *usecase.DashboardService {
	return usecase.NewDashboardService(engine, cfg.Engine.RefreshInterval, logger, pubs...)
}

// ProvideHTTPServer creates the Echo server with the dashboard API and websocket routes.
func ProvideHTTPServer(cfg *config.Config, logger *xlogger.Logger, svc *usecase.DashboardService, hub *api.ScorecardHub) *xhttp.Server {
	metricsPath := ""
	if cfg.Metrics.Enabled {
		metricsPath = cfg.Metrics.Path
	}
	return xhttp.NewServer(logger,
		[]xhttp.Handler{api.NewDashboardEchoHandler(logger, svc), hub},
		xhttp.WithPort(cfg.Server.Port),
		xhttp.WithTimeouts(cfg.Server.ReadTimeout, cfg.Server.WriteTimeout, cfg.Server.ShutdownTimeout),
		xhttp.WithMetrics(metricsPath, nil, nil),
		xhttp.WithClientRateLimit(cfg.Server.ClientRPS, cfg.Server.ClientBurst),
	)
}

// ProvideApp creates the application server.
func ProvideApp(
	cfg *config.Config,
	logger *xlogger.Logger,
	svc *usecase.DashboardService,
	srv *xhttp.Server,
	pubs []repository.DashboardPublisher,
) *server.App {
	return server.New(cfg, logger, svc, srv, pubs)
}
