package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"github.com/trikala-registry/companymap/internal/dashboard"
	"github.com/trikala-registry/companymap/internal/filter"
	jobmetrics "github.com/trikala-registry/companymap/internal/jobs"
	"github.com/trikala-registry/companymap/internal/platform/cache"
	"github.com/trikala-registry/companymap/internal/registry"
)

var defaultJobMetrics = jobmetrics.NewMetrics(nil)

// MarkerWarmupJob fills the marker cache for the sidebar selections visitors land
// on most, so the first request after a deploy or a TTL expiry is served from Redis.
type MarkerWarmupJob struct {
	Registry               dashboard.SnapshotProvider
	Cache                  *cache.JSONCache
	Logger                 *slog.Logger
	Metrics                *jobmetrics.Metrics
	DefaultRangeAsNoFilter bool
	clock                  func() time.Time
}

// NewMarkerWarmupJob wires dependencies for the warmup handler.
func NewMarkerWarmupJob(store dashboard.SnapshotProvider, markerCache *cache.JSONCache, logger *slog.Logger, metrics *jobmetrics.Metrics, defaultAsNoFilter bool) *MarkerWarmupJob {
	return &MarkerWarmupJob{
		Registry:               store,
		Cache:                  markerCache,
		Logger:                 logger,
		Metrics:                metrics,
		DefaultRangeAsNoFilter: defaultAsNoFilter,
		clock: func() time.Time {
			return time.Now().UTC()
		},
	}
}

// Handle processes marker warmup tasks.
func (j *MarkerWarmupJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.Registry == nil || j.Cache == nil {
		return errors.New("marker warmup: handler not configured")
	}
	var payload MarkerWarmupPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	if payload.Scope == "" {
		payload.Scope = ScopeMarkets
	}

	tracker := j.metrics().Track(TaskMarkerWarmup)
	var resultErr error
	defer func() {
		resultErr = tracker.End(resultErr)
	}()

	logger := j.logger().With(slog.String("scope", payload.Scope))
	logger.Info("starting marker warmup")
	start := j.now()

	snap, err := j.Registry.Snapshot(ctx)
	if err != nil {
		resultErr = err
		logger.Error("load registry", slog.Any("error", err))
		return resultErr
	}

	warmed := 0
	for _, controls := range WarmupControls(payload.Scope) {
		if err := j.warm(ctx, snap, controls); err != nil {
			resultErr = err
			logger.Error("warm selection", slog.String("activity", controls.Activity), slog.String("status", controls.Status), slog.Any("error", err))
			return resultErr
		}
		warmed++
	}
	j.metrics().AddWarmed(warmed)

	logger.Info("completed marker warmup",
		slog.Int("selections", warmed),
		slog.String("fingerprint", snap.Fingerprint()),
		slog.Duration("duration", j.now().Sub(start)))
	return resultErr
}

func (j *MarkerWarmupJob) warm(ctx context.Context, snap *registry.Snapshot, controls filter.Controls) error {
	selCtx, cancel := context.WithTimeout(ctx, 20*time.Second)
	defer cancel()

	sel := filter.FromControls(controls, j.DefaultRangeAsNoFilter)
	resp, err := dashboard.BuildMarkers(filter.Apply(snap.Table(), sel))
	if err != nil {
		return err
	}
	resp.Selection = controls
	return j.Cache.Set(selCtx, dashboard.MarkersCacheKey(snap, sel), resp)
}

// WarmupControls lists the sidebar states a warmup run precomputes, starting with
// the untouched sidebar.
func WarmupControls(scope string) []filter.Controls {
	base := filter.DefaultControls()
	out := []filter.Controls{base}
	for _, market := range registry.Markets {
		c := base
		c.Activity = market
		out = append(out, c)
		if scope != ScopeAll {
			continue
		}
		for _, status := range []string{filter.StatusActive, filter.StatusClosed} {
			cs := c
			cs.Status = status
			out = append(out, cs)
		}
	}
	return out
}

func (j *MarkerWarmupJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger.With(slog.String("job", TaskMarkerWarmup))
	}
	return slog.Default().With(slog.String("job", TaskMarkerWarmup))
}

func (j *MarkerWarmupJob) metrics() *jobmetrics.Metrics {
	if j.Metrics != nil {
		return j.Metrics
	}
	return defaultJobMetrics
}

func (j *MarkerWarmupJob) now() time.Time {
	if j.clock != nil {
		return j.clock()
	}
	return time.Now().UTC()
}
