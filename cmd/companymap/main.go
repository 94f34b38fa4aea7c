package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"

	"github.com/trikala-registry/companymap/internal/app"
	"github.com/trikala-registry/companymap/internal/dashboard"
	"github.com/trikala-registry/companymap/internal/observability"
	"github.com/trikala-registry/companymap/internal/platform/cache"
	"github.com/trikala-registry/companymap/internal/registry"
	"github.com/trikala-registry/companymap/internal/shared"
	"github.com/trikala-registry/companymap/internal/view"
	"github.com/trikala-registry/companymap/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)
	metrics := observability.NewMetrics()

	source, closeSource, err := app.OpenRegistrySource(ctx, cfg)
	if err != nil {
		logger.Error("open registry source", slog.Any("error", err))
		os.Exit(1)
	}
	defer closeSource()

	// The registry never changes while the process runs; load it once up front so
	// a malformed file stops startup instead of the first request.
	store := registry.NewStore(source, logger)
	snap, err := store.Snapshot(ctx)
	if err != nil {
		app.LogLoadError(logger, source, err)
		os.Exit(1)
	}
	metrics.SetRegistrySize(cfg.RegistrySource, snap.Len())

	redisClient, err := cache.New(ctx, cache.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisDB})
	if err != nil {
		logger.Error("connect redis", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	sessionManager := shared.NewSessionManager(redisClient, "companymap_session", cfg.SessionSecret, cfg.SessionTTL, cfg.IsProduction())
	csrfManager := shared.NewCSRFManager(cfg.CSRFSecret)

	templates, err := view.NewEngine()
	if err != nil {
		logger.Error("parse templates", slog.Any("error", err))
		os.Exit(1)
	}

	var markerCache *cache.JSONCache
	if cfg.MarkerCacheTTL > 0 {
		markerCache = cache.NewJSONCache(redisClient, cfg.MarkerCacheTTL)
	}

	dashboardHandler := dashboard.NewHandler(dashboard.Params{
		Logger:                 logger,
		Registry:               store,
		Templates:              templates,
		CSRF:                   csrfManager,
		Metrics:                metrics,
		Cache:                  markerCache,
		Map:                    cfg.MapOptions(),
		DefaultRangeAsNoFilter: cfg.DefaultRangeAsNoFilter,
		ExportRateLimit:        cfg.ExportLimitPerMinute,
	})

	inspector := asynq.NewInspector(app.AsynqRedisOpt(cfg))
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()
	jobHandler := jobs.NewHandler(inspector, logger)

	router := app.NewRouter(app.RouterParams{
		Logger:           logger,
		Config:           cfg,
		SessionManager:   sessionManager,
		CSRFManager:      csrfManager,
		DashboardHandler: dashboardHandler,
		JobHandler:       jobHandler,
		Metrics:          metrics,
	})

	server := &http.Server{
		Addr:              cfg.AppAddr,
		Handler:           router,
		ReadTimeout:       cfg.AppReadTimeout,
		ReadHeaderTimeout: cfg.AppReadTimeout,
		WriteTimeout:      cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr), slog.Int("companies", snap.Len()))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
}
