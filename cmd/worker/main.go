package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"

	"github.com/trikala-registry/companymap/internal/app"
	jobmetrics "github.com/trikala-registry/companymap/internal/jobs"
	"github.com/trikala-registry/companymap/internal/platform/cache"
	"github.com/trikala-registry/companymap/internal/registry"
	"github.com/trikala-registry/companymap/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping worker startup")
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
	if cfg.MarkerCacheTTL <= 0 {
		logger.Info("marker cache disabled, nothing to warm")
		return
	}

	source, closeSource, err := app.OpenRegistrySource(ctx, cfg)
	if err != nil {
		logger.Error("open registry source", slog.Any("error", err))
		os.Exit(1)
	}
	defer closeSource()

	store := registry.NewStore(source, logger)
	if _, err := store.Snapshot(ctx); err != nil {
		app.LogLoadError(logger, source, err)
		os.Exit(1)
	}

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

	markerCache := cache.NewJSONCache(redisClient, cfg.MarkerCacheTTL)
	warmupJob := jobs.NewMarkerWarmupJob(store, markerCache, logger, jobmetrics.NewMetrics(nil), cfg.DefaultRangeAsNoFilter)

	warmupTask, err := jobs.NewMarkerWarmupTask(cfg.WarmupScope)
	if err != nil {
		logger.Error("build warmup task", slog.Any("error", err))
		os.Exit(1)
	}

	redisOpt := app.AsynqRedisOpt(cfg)
	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts: redisOpt,
		Logger:    logger,
		Handlers: []jobs.TaskHandler{
			{Type: jobs.TaskMarkerWarmup, Handler: warmupJob.Handle},
		},
		Cron: []jobs.CronRegistration{
			{Spec: cfg.WarmupCron, Task: warmupTask, Options: []asynq.Option{asynq.MaxRetry(3)}},
		},
	})
	if err != nil {
		logger.Error("init worker", slog.Any("error", err))
		os.Exit(1)
	}

	// Warm once at startup rather than waiting for the first cron tick.
	client, err := jobs.NewClient(redisOpt)
	if err != nil {
		logger.Error("init job client", slog.Any("error", err))
		os.Exit(1)
	}
	if _, err := client.EnqueueMarkerWarmup(ctx, cfg.WarmupScope); err != nil && !errors.Is(err, asynq.ErrTaskIDConflict) {
		logger.Warn("enqueue startup warmup", slog.Any("error", err))
	}
	if err := client.Close(); err != nil {
		logger.Warn("job client close", slog.Any("error", err))
	}

	if err := worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("worker run", slog.Any("error", err))
		os.Exit(1)
	}
}
