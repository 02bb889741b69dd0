// Package main is the entrypoint for the redirect service.
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	_ "go.uber.org/automaxprocs"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/refract/redirector/internal/analytics"
	"github.com/refract/redirector/internal/cache"
	"github.com/refract/redirector/internal/config"
	"github.com/refract/redirector/internal/geo"
	"github.com/refract/redirector/internal/handler"
	"github.com/refract/redirector/internal/metrics"
	"github.com/refract/redirector/internal/middleware"
	"github.com/refract/redirector/internal/repository"
	"github.com/refract/redirector/internal/resolver"
	"github.com/refract/redirector/internal/server"
	"github.com/refract/redirector/internal/useragent"
)

func main() {
	if err := run(context.Background()); err != nil {
		slog.Error("redirector exited", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logger, logCloser, err := initLogger(cfg)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer logCloser.Close()

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	recorder := metrics.NewPrometheus(registry)

	// Durable store
	repo, err := repository.New(ctx, cfg.DatabaseURL, repository.PoolConfig{
		MaxConns:     cfg.DBMaxConns,
		MinConns:     cfg.DBMinConns,
		QueryTimeout: cfg.DBQueryTimeout,
	})
	if err != nil {
		logger.Error("failed to connect to database",
			slog.String("error", sanitizeError(err, cfg.DatabaseURL)),
			slog.String("database_url", redactURL(cfg.DatabaseURL)),
		)
		return fmt.Errorf("connect database: %s", sanitizeError(err, cfg.DatabaseURL))
	}
	logger.Info("connected to database")

	// Redis backs both the shared cache tier and the click stream
	redisClient, err := cache.NewRedisClient(ctx, cfg.RedisURL)
	if err != nil {
		repo.Close()
		logger.Error("failed to connect to Redis",
			slog.String("error", sanitizeError(err, cfg.RedisURL)),
			slog.String("redis_url", redactURL(cfg.RedisURL)),
		)
		return fmt.Errorf("connect redis: %s", sanitizeError(err, cfg.RedisURL))
	}
	logger.Info("connected to Redis")

	l1, err := cache.NewLocalTier(cfg.L1CacheCapacity, cfg.L1CacheTTL)
	if err != nil {
		repo.Close()
		_ = redisClient.Close()
		return fmt.Errorf("init local cache: %w", err)
	}

	breakerCfg := cache.BreakerConfig{
		Name:        "redis-cache",
		MaxFailures: cfg.CacheBreakerFailures,
		OpenTimeout: cfg.CacheBreakerTimeout,
	}
	l2 := cache.NewRedisTier(redisClient, breakerCfg, logger)
	tiered := cache.NewTiered(l1, l2, cfg.CacheDefaultTTL, logger, recorder)

	// Enrichment
	geoLookup := geo.Disabled()
	if cfg.GeoIPEnabled() {
		geoLookup, err = geo.Open(cfg.GeoIPDBPath, logger)
		if err != nil {
			// Click events are still captured without location data
			logger.Warn("geoip database unavailable, geo enrichment disabled",
				"path", cfg.GeoIPDBPath,
				"error", err,
			)
			geoLookup = geo.Disabled()
		}
	}

	streamBreaker := breakerCfg
	streamBreaker.Name = "redis-stream"
	stream := analytics.NewRedisStream(redisClient, cfg.StreamKey, streamBreaker, logger)

	pipeline := analytics.NewPipeline(analytics.Config{
		BatchSize:      cfg.EventsBatchSize,
		FlushInterval:  cfg.EventsFlushInterval,
		MaxBufferSize:  cfg.EventsMaxBufferSize,
		MaxStreamLen:   cfg.EventsMaxStreamLen,
		PublishTimeout: cfg.EventsPublishTimeout,
	}, stream, geoLookup, useragent.NewParser(), logger, recorder)
	pipeline.Start()

	res := resolver.New(repo, tiered, cache.NewCoalescer(cfg.DBQueryTimeout), pipeline, logger, recorder)

	r := setupRouter(routes{
		base:     handler.New(),
		health:   handler.NewHealthHandler(repo, l2),
		redirect: handler.NewRedirectHandler(res, logger),
		stats:    handler.NewStatsHandler(res),
		metrics:  promhttp.HandlerFor(registry, promhttp.HandlerOpts{Registry: registry}),
	}, logger)

	srv := server.New(r, server.Config{
		Addr:            fmt.Sprintf(":%d", cfg.AppPort),
		ReadTimeout:     cfg.ReadTimeout,
		WriteTimeout:    cfg.WriteTimeout,
		ShutdownTimeout: cfg.ShutdownTimeout,
	}, logger)

	// Hooks run last-registered-first: the pipeline drains before Redis closes.
	srv.OnShutdown("postgres", func(ctx context.Context) error {
		repo.Close()
		return nil
	})
	srv.OnShutdown("geoip", func(ctx context.Context) error {
		return geoLookup.Close()
	})
	srv.OnShutdown("redis", func(ctx context.Context) error {
		l1.Close()
		return redisClient.Close()
	})
	srv.OnShutdown("click-pipeline", pipeline.Shutdown)

	logger.Info("starting server",
		"port", cfg.AppPort,
		"env", cfg.AppEnv,
		"geoip_enabled", geoLookup.Enabled(),
		"stream_key", cfg.StreamKey,
	)

	return srv.Run(ctx)
}

type routes struct {
	base     *handler.Handler
	health   *handler.HealthHandler
	redirect *handler.RedirectHandler
	stats    *handler.StatsHandler
	metrics  http.Handler
}

// setupRouter configures the chi router with all routes and middleware.
func setupRouter(rt routes, logger *slog.Logger) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Logger(logger))
	r.Use(middleware.Recoverer(logger))

	r.Get("/healthz", rt.health.Healthz)
	r.Get("/readyz", rt.health.Readyz)
	r.Get("/internal/cache-stats", rt.stats.CacheStats)
	r.Method(http.MethodGet, "/metrics", rt.metrics)

	r.Get("/{shortCode}", rt.redirect.Redirect)

	r.NotFound(rt.base.NotFound)
	r.MethodNotAllowed(rt.base.MethodNotAllowed)

	return r
}

// initLogger builds the process logger. When LOG_OUTPUT_PATH is set, output
// is also written to a rotated file.
func initLogger(cfg *config.Config) (*slog.Logger, io.Closer, error) {
	var writer io.Writer = os.Stdout
	var closer io.Closer = nopCloser{}

	if cfg.LogOutputPath != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.LogOutputPath), 0o755); err != nil {
			return nil, nil, err
		}
		fileWriter := &lumberjack.Logger{
			Filename:   cfg.LogOutputPath,
			MaxSize:    100,
			MaxBackups: 5,
			MaxAge:     14,
			Compress:   true,
		}
		writer = io.MultiWriter(os.Stdout, fileWriter)
		closer = fileWriter
	}

	level := parseLogLevel(cfg.LogLevel)
	opts := &slog.HandlerOptions{
		Level:     level,
		AddSource: level == slog.LevelDebug,
	}

	var h slog.Handler
	if cfg.LogFormat == "json" {
		h = slog.NewJSONHandler(writer, opts)
	} else {
		h = slog.NewTextHandler(writer, opts)
	}

	logger := slog.New(h)
	slog.SetDefault(logger)

	return logger, closer, nil
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// parseLogLevel converts string log level to slog.Level.
func parseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
