package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net"
	"net/http"
	"os"

	"github.com/go-redis/redis/v8"
	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/sync/errgroup"

	"github.com/openbay/openbay/pkg/api"
	"github.com/openbay/openbay/pkg/audit"
	"github.com/openbay/openbay/pkg/authz"
	"github.com/openbay/openbay/pkg/config"
	"github.com/openbay/openbay/pkg/middleware"
	"github.com/openbay/openbay/pkg/observability"
	"github.com/openbay/openbay/pkg/storage"
	"github.com/openbay/openbay/pkg/storage/postgres"
)

func main() {
	configPath := flag.String("config", "", "Path to YAML config file (env vars override it)")
	flag.Parse()

	if err := run(*configPath); err != nil {
		fmt.Fprintf(os.Stderr, "openbay: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	logger := observability.NewLogger(
		observability.ParseLogLevel(cfg.Observability.LogLevel), os.Stdout)
	logger.WithField("driver", cfg.Database.Driver).Info("starting openbay server")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	shutdown := observability.NewShutdownManager(logger, cfg.Server.ShutdownTimeout)

	var metrics *observability.Metrics
	registry := prometheus.NewRegistry()
	if cfg.Observability.MetricsEnabled {
		metrics = observability.NewMetrics(registry)
	}

	if cfg.Observability.OTelEnabled {
		providers, err := observability.InitOTel(ctx, observability.OTelConfig{
			Enabled:        true,
			Endpoint:       cfg.Observability.OTelEndpoint,
			ServiceName:    cfg.Observability.OTelServiceName,
			ServiceVersion: cfg.Observability.OTelServiceVersion,
			Environment:    cfg.Observability.OTelEnvironment,
			SampleRate:     cfg.Observability.OTelSampleRate,
		}, logger)
		if err != nil {
			return fmt.Errorf("initializing OpenTelemetry: %w", err)
		}
		shutdown.Register("otel", func(ctx context.Context) error {
			observability.ShutdownOTel(ctx, providers, logger)
			return nil
		})
	}

	store, err := openStore(ctx, cfg, logger, metrics)
	if err != nil {
		return err
	}
	shutdown.Register("store", func(context.Context) error { return store.Close() })

	var redisClient *redis.Client
	if cfg.Redis.Enabled {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := redisClient.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("connecting to redis at %s: %w", cfg.Redis.Addr, err)
		}
		shutdown.Register("redis", func(context.Context) error { return redisClient.Close() })
	}

	recorder, auditLog, err := buildRecorder(cfg, store, metrics)
	if err != nil {
		return err
	}
	shutdown.Register("audit", func(context.Context) error { return recorder.Close() })

	engine := authz.NewEngine(store, logger, decisionObserver(metrics))

	server := api.NewServer(api.Options{
		Store:     store,
		Engine:    engine,
		Recorder:  recorder,
		AuditLog:  auditLog,
		Logger:    logger,
		Metrics:   metrics,
		RateLimit: buildRateLimit(cfg, redisClient, metrics),
	})

	var handler http.Handler = server
	if cfg.Observability.OTelEnabled {
		handler = otelhttp.NewHandler(handler, "openbay-api")
	}

	apiServer := &http.Server{
		Addr:         net.JoinHostPort(cfg.Server.Host, cfg.Server.Port),
		Handler:      handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}
	healthServer := buildHealthServer(cfg, store, redisClient, registry)
	shutdown.Register("health-server", func(ctx context.Context) error {
		return healthServer.Shutdown(ctx)
	})

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.WithField("addr", apiServer.Addr).Info("API server listening")
		if err := apiServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("API server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		logger.WithField("addr", healthServer.Addr).Info("health server listening")
		if err := healthServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("health server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		shutdown.Wait(gctx, apiServer)
		return nil
	})

	return g.Wait()
}

func openStore(ctx context.Context, cfg *config.Config, logger *observability.Logger, metrics *observability.Metrics) (storage.Store, error) {
	switch cfg.Database.Driver {
	case "memory":
		logger.Warn("using in-memory storage; data will not survive restarts")
		return storage.NewMemoryStore(), nil
	case "postgres":
		store, err := postgres.Open(ctx, postgres.Config{
			URL:             cfg.Database.URL,
			MaxOpenConns:    cfg.Database.MaxOpenConns,
			MaxIdleConns:    cfg.Database.MaxIdleConns,
			ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
		}, logger, metrics)
		if err != nil {
			return nil, fmt.Errorf("opening postgres store: %w", err)
		}
		if metrics != nil {
			metrics.CollectDBStats(store.DB())
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unknown database driver %q", cfg.Database.Driver)
	}
}

// buildRecorder assembles the audit fan-out. The DB sink requires the
// postgres driver; the file sink works everywhere.
func buildRecorder(cfg *config.Config, store storage.Store, metrics *observability.Metrics) (audit.Recorder, *audit.DBRecorder, error) {
	var observer audit.SinkObserver
	if metrics != nil {
		observer = metrics
	}
	multi := audit.NewMultiRecorder(observer)

	var dbRecorder *audit.DBRecorder
	if cfg.Audit.DBEnabled {
		pg, ok := store.(*postgres.Store)
		if !ok {
			return nil, nil, fmt.Errorf("audit db sink requires the postgres driver")
		}
		rec, err := audit.NewDBRecorder(pg.DB())
		if err != nil {
			return nil, nil, fmt.Errorf("initializing audit db sink: %w", err)
		}
		dbRecorder = rec
		multi.Add("db", rec)
	}

	if cfg.Audit.FilePath != "" {
		rec, err := audit.NewFileRecorder(audit.FileRecorderConfig{
			Path:      cfg.Audit.FilePath,
			MaxSizeMB: cfg.Audit.FileMaxSizeMB,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("initializing audit file sink: %w", err)
		}
		multi.Add("file", rec)
	}

	return multi, dbRecorder, nil
}

func buildRateLimit(cfg *config.Config, redisClient *redis.Client, metrics *observability.Metrics) func(http.Handler) http.Handler {
	if !cfg.RateLimit.Enabled {
		return nil
	}
	if cfg.RateLimit.Distributed {
		limiter := middleware.NewDistributedRateLimiter(
			redisClient, cfg.RateLimit.Burst, middleware.DefaultWindow)
		return middleware.DistributedRateLimit(limiter, metrics)
	}
	limiter := middleware.NewRateLimiter(middleware.RateLimitConfig{
		RequestsPerSecond: cfg.RateLimit.RequestsPerSecond,
		Burst:             cfg.RateLimit.Burst,
	}, middleware.DefaultMaxKeys)
	return middleware.RateLimit(limiter, metrics)
}

func buildHealthServer(cfg *config.Config, store storage.Store, redisClient *redis.Client, registry *prometheus.Registry) *http.Server {
	mux := http.NewServeMux()

	var checker *observability.HealthChecker
	if pg, ok := store.(*postgres.Store); ok {
		checker = observability.NewHealthChecker(pg.DB(), redisClient)
	} else {
		checker = observability.NewHealthChecker(nil, redisClient)
	}
	observability.RegisterHealthRoutes(mux, checker)
	mux.Handle("/metrics", observability.Handler(registry))

	return &http.Server{
		Addr:    net.JoinHostPort(cfg.Server.Host, cfg.Server.HealthPort),
		Handler: mux,
	}
}

// decisionObserver adapts nil metrics to a nil interface so the engine skips
// observation entirely
func decisionObserver(metrics *observability.Metrics) authz.DecisionObserver {
	if metrics == nil {
		return nil
	}
	return metrics
}
