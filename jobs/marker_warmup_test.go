package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-chi/chi/v5"
	"github.com/hibiken/asynq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trikala-registry/companymap/internal/dashboard"
	"github.com/trikala-registry/companymap/internal/filter"
	jobmetrics "github.com/trikala-registry/companymap/internal/jobs"
	"github.com/trikala-registry/companymap/internal/platform/cache"
	"github.com/trikala-registry/companymap/internal/registry"
)

type stubRegistry struct {
	snap *registry.Snapshot
	err  error
}

func (s stubRegistry) Snapshot(context.Context) (*registry.Snapshot, error) {
	return s.snap, s.err
}

func sampleSnapshot() *registry.Snapshot {
	table := registry.Table{
		{
			Name:         "Alpha Bakery",
			LegalType:    registry.LegalTypePublicCapital,
			ActivityCode: "56.10",
			Status:       registry.StatusActive,
			Started:      time.Date(2005, time.March, 1, 0, 0, 0, 0, time.UTC),
			Capital:      decimal.NewNullDecimal(decimal.NewFromInt(120000)),
			Latitude:     39.5551,
			Longitude:    21.7679,
		},
		{
			Name:         "Gamma Clinic",
			LegalType:    registry.LegalTypePrivateCapital,
			ActivityCode: "86.21",
			Status:       registry.StatusActive,
			Started:      time.Date(2018, time.September, 10, 0, 0, 0, 0, time.UTC),
			Latitude:     39.5601,
			Longitude:    21.7712,
		},
	}
	return registry.NewSnapshot("test", table, time.Now())
}

func newCache(t *testing.T) (*miniredis.Miniredis, *cache.JSONCache) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, cache.NewJSONCache(client, time.Minute)
}

func TestMarkerWarmupFillsCache(t *testing.T) {
	mr, markerCache := newCache(t)
	snap := sampleSnapshot()
	metrics := jobmetrics.NewMetrics(prometheus.NewRegistry())
	job := NewMarkerWarmupJob(stubRegistry{snap: snap}, markerCache, nil, metrics, true)

	task, err := NewMarkerWarmupTask(ScopeMarkets)
	require.NoError(t, err)
	require.NoError(t, job.Handle(context.Background(), task))

	controls := WarmupControls(ScopeMarkets)
	require.Len(t, controls, 1+len(registry.Markets))
	for _, c := range controls {
		key := dashboard.MarkersCacheKey(snap, filter.FromControls(c, true))
		assert.True(t, mr.Exists(key), "missing %s", key)
	}

	raw, err := mr.Get(dashboard.MarkersCacheKey(snap, filter.FromControls(filter.DefaultControls(), true)))
	require.NoError(t, err)
	var resp dashboard.MarkersResponse
	require.NoError(t, json.Unmarshal([]byte(raw), &resp))
	assert.Equal(t, 2, resp.Metrics.Count)
	assert.Len(t, resp.Markers, 2)

	health := controls[2]
	assert.Equal(t, registry.MarketHealth, health.Activity)
	raw, err = mr.Get(dashboard.MarkersCacheKey(snap, filter.FromControls(health, true)))
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal([]byte(raw), &resp))
	assert.Equal(t, 1, resp.Metrics.Count)
}

func TestWarmupControlsAllScope(t *testing.T) {
	controls := WarmupControls(ScopeAll)
	assert.Len(t, controls, 1+3*len(registry.Markets))
	assert.Equal(t, filter.DefaultControls(), controls[0])
}

func TestMarkerWarmupRejectsBadPayload(t *testing.T) {
	_, markerCache := newCache(t)
	job := NewMarkerWarmupJob(stubRegistry{snap: sampleSnapshot()}, markerCache, nil, nil, true)
	err := job.Handle(context.Background(), asynq.NewTask(TaskMarkerWarmup, []byte("{")))
	assert.ErrorIs(t, err, asynq.SkipRetry)
}

func TestMarkerWarmupReportsRegistryFailure(t *testing.T) {
	_, markerCache := newCache(t)
	boom := errors.New("registry down")
	job := NewMarkerWarmupJob(stubRegistry{err: boom}, markerCache, nil, jobmetrics.NewMetrics(prometheus.NewRegistry()), true)
	task, err := NewMarkerWarmupTask("")
	require.NoError(t, err)
	assert.ErrorIs(t, job.Handle(context.Background(), task), boom)
}

func TestMarkerWarmupRequiresCache(t *testing.T) {
	job := NewMarkerWarmupJob(stubRegistry{snap: sampleSnapshot()}, nil, nil, nil, true)
	task, err := NewMarkerWarmupTask(ScopeMarkets)
	require.NoError(t, err)
	assert.Error(t, job.Handle(context.Background(), task))
}

func TestJobsHealthWithoutInspector(t *testing.T) {
	r := chi.NewRouter()
	r.Route("/jobs", NewHandler(nil, nil).MountRoutes)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/jobs/health", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var body queueHealth
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, QueueDefault, body.Queue)
	assert.Zero(t, body.Pending)
}
