package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/utafrali/rocketshoes/internal/catalog"
	"github.com/utafrali/rocketshoes/internal/config"
	"github.com/utafrali/rocketshoes/internal/event"
	handler "github.com/utafrali/rocketshoes/internal/handler/http"
	"github.com/utafrali/rocketshoes/internal/repository"
	"github.com/utafrali/rocketshoes/internal/repository/memory"
	"github.com/utafrali/rocketshoes/internal/repository/postgres"
	redisrepo "github.com/utafrali/rocketshoes/internal/repository/redis"
	"github.com/utafrali/rocketshoes/internal/repository/sqlite"
	"github.com/utafrali/rocketshoes/internal/service"
	"github.com/utafrali/rocketshoes/internal/session"
	"github.com/utafrali/rocketshoes/pkg/database"
	"github.com/utafrali/rocketshoes/pkg/health"
	"github.com/utafrali/rocketshoes/pkg/httpclient"
	pkgkafka "github.com/utafrali/rocketshoes/pkg/kafka"
	"github.com/utafrali/rocketshoes/pkg/middleware"
	"github.com/utafrali/rocketshoes/pkg/tracing"
)

// App wires together all dependencies and runs the cart service.
type App struct {
	cfg            *config.Config
	logger         *slog.Logger
	kv             repository.KV
	closeStorage   func()
	producer       *pkgkafka.Producer
	httpServer     *http.Server
	tracerShutdown func(context.Context) error
}

// NewApp creates a new application instance, initializing all dependencies.
func NewApp(cfg *config.Config, logger *slog.Logger) (*App, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	tracerShutdown, err := tracing.InitTracer(ctx, cfg.Tracing())
	if err != nil {
		return nil, fmt.Errorf("init tracer: %w", err)
	}

	if cfg.SlowQueryThresholdMs > 0 {
		database.SetSlowQueryLogging(cfg.SlowQueryThreshold(), logger)
	}

	kv, closeStorage, err := openStorage(ctx, cfg, logger)
	if err != nil {
		_ = tracerShutdown(context.Background())
		return nil, err
	}

	// Catalog client behind retries and a circuit breaker.
	cbCfg := cfg.CircuitBreaker()
	cbClient := httpclient.NewCircuitBreakerClient(httpclient.New(cfg.HTTPClient()), cbCfg, logger).
		WithFallback(httpclient.CircuitOpenFallback("catalog"))
	catalogClient := catalog.NewClient(cfg.CatalogURL, cbClient)
	logger.Info("catalog client initialized",
		slog.String("url", cfg.CatalogURL),
		slog.Uint64("cb_min_requests", uint64(cbCfg.MinRequests)),
		slog.Int("cb_timeout_seconds", cfg.CBTimeout),
	)

	healthHandler := health.NewHandler()
	healthHandler.Register("storage", func(ctx context.Context) error {
		return repository.Ping(ctx, kv)
	})

	// Event publishing is optional. The registry must see a nil interface,
	// not a nil *event.Producer, when it is off.
	var (
		producer  *pkgkafka.Producer
		publisher service.EventPublisher
	)
	if kafkaCfg, enabled := cfg.Kafka(); enabled {
		producer = pkgkafka.NewProducer(kafkaCfg, logger)
		publisher = event.NewProducer(producer, logger)
		healthHandler.Register("kafka", producer.Ping)
		logger.Info("kafka producer initialized", slog.Any("brokers", cfg.KafkaBrokers))
	} else {
		logger.Info("kafka disabled, cart events will not be published")
	}

	logger.Info("health checks registered", slog.Any("checks", healthHandler.Names()))

	registry := session.NewRegistry(kv, catalogClient, publisher, service.LogNotifier{Logger: logger}, logger).
		WithLimits(cfg.SessionIdleTTL(), cfg.SessionMax)

	cors := middleware.DefaultCORSConfig()
	cors.AllowedOrigins = cfg.CORSAllowedOrigins
	router := handler.NewRouter(registry, healthHandler, logger, handler.RouterConfig{
		ServiceName:    config.ServiceName,
		CORS:           cors,
		PprofCIDRs:     cfg.PprofAllowedCIDRs,
		RequestTimeout: cfg.RequestTimeout(),
		RateLimitRPS:   cfg.RateLimitRPS,
		RateLimitBurst: cfg.RateLimitBurst,
	})

	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           router,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      cfg.RequestTimeout() + 5*time.Second,
		IdleTimeout:       60 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
	}

	return &App{
		cfg:            cfg,
		logger:         logger,
		kv:             kv,
		closeStorage:   closeStorage,
		producer:       producer,
		httpServer:     httpServer,
		tracerShutdown: tracerShutdown,
	}, nil
}

// openStorage connects the configured KV driver. The returned func releases
// its resources.
func openStorage(ctx context.Context, cfg *config.Config, logger *slog.Logger) (repository.KV, func(), error) {
	switch cfg.StorageDriver {
	case config.DriverRedis:
		rdb, err := database.NewRedisClient(ctx, cfg.Redis(), logger)
		if err != nil {
			return nil, nil, fmt.Errorf("connect to redis: %w", err)
		}
		logger.Info("connected to Redis",
			slog.String("addr", cfg.RedisAddr),
			slog.Int("db", cfg.RedisDB),
		)
		closeFn := func() {
			if err := rdb.Close(); err != nil {
				logger.Error("redis close error", slog.String("error", err.Error()))
			}
		}
		return redisrepo.New(rdb, time.Duration(cfg.CartTTL)*time.Hour), closeFn, nil

	case config.DriverSQLite:
		store, err := sqlite.Open(ctx, cfg.SQLitePath)
		if err != nil {
			return nil, nil, fmt.Errorf("open sqlite: %w", err)
		}
		logger.Info("opened SQLite store", slog.String("path", cfg.SQLitePath))
		closeFn := func() {
			if err := store.Close(); err != nil {
				logger.Error("sqlite close error", slog.String("error", err.Error()))
			}
		}
		return store, closeFn, nil

	case config.DriverPostgres:
		pool, err := database.NewPostgresPool(ctx, cfg.Postgres(), logger)
		if err != nil {
			return nil, nil, fmt.Errorf("connect to postgres: %w", err)
		}
		logger.Info("connected to PostgreSQL",
			slog.String("host", cfg.PostgresHost),
			slog.Int("port", cfg.PostgresPort),
			slog.String("database", cfg.PostgresDB),
		)
		if err := database.RegisterPoolMetrics(prometheus.DefaultRegisterer, pool, config.ServiceName); err != nil {
			var already prometheus.AlreadyRegisteredError
			if !errors.As(err, &already) {
				pool.Close()
				return nil, nil, fmt.Errorf("register pool metrics: %w", err)
			}
		}
		store := postgres.New(pool)
		if err := store.Migrate(ctx, logger); err != nil {
			pool.Close()
			return nil, nil, fmt.Errorf("run migrations: %w", err)
		}
		logger.Info("database migrations completed")
		return store, pool.Close, nil

	default:
		logger.Warn("using in-memory storage, carts are lost on restart")
		return memory.New(), func() {}, nil
	}
}

// Run starts the HTTP server and blocks until the context is canceled.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1)

	go func() {
		a.logger.Info("starting HTTP server",
			slog.String("addr", a.httpServer.Addr),
			slog.String("storage", a.cfg.StorageDriver),
		)
		if err := a.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		a.logger.Info("shutdown signal received")
	case err := <-errCh:
		_ = a.Shutdown()
		return err
	}

	return a.Shutdown()
}

// Shutdown gracefully stops all components in order: the HTTP server drains
// in-flight requests, the tracer flushes their spans, then the Kafka producer
// and the storage driver are closed.
func (a *App) Shutdown() error {
	a.logger.Info("shutting down application...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout())
	defer cancel()

	if err := a.httpServer.Shutdown(shutdownCtx); err != nil {
		a.logger.Error("http server shutdown error", slog.String("error", err.Error()))
	}

	if a.tracerShutdown != nil {
		if err := a.tracerShutdown(shutdownCtx); err != nil {
			a.logger.Error("tracer shutdown error", slog.String("error", err.Error()))
		}
	}

	if a.producer != nil {
		if err := a.producer.Close(); err != nil {
			a.logger.Error("kafka producer close error", slog.String("error", err.Error()))
		}
	}

	a.closeStorage()

	a.logger.Info("application shutdown complete")
	return nil
}
