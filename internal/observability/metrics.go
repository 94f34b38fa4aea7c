package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics collects the Prometheus series exposed on /metrics.
type Metrics struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	filterPasses    prometheus.Counter
	visible         prometheus.Gauge
	registrySize    *prometheus.GaugeVec
	exports         *prometheus.CounterVec
}

// NewMetrics builds a private registry with the HTTP and dashboard series.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()
	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "companymap_http_requests_total",
		Help: "HTTP requests by route and status code.",
	}, []string{"route", "code"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "companymap_http_request_duration_seconds",
		Help:    "HTTP request latency by route.",
		Buckets: prometheus.DefBuckets,
	}, []string{"route"})
	filterPasses := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "companymap_filter_passes_total",
		Help: "Filter pipeline runs over the registry snapshot.",
	})
	visible := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "companymap_visible_companies",
		Help: "Companies left after the most recent filter pass.",
	})
	registrySize := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "companymap_registry_companies",
		Help: "Companies in the loaded registry snapshot.",
	}, []string{"source"})
	exports := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "companymap_exports_total",
		Help: "Spreadsheet exports by outcome.",
	}, []string{"outcome"})
	registry.MustRegister(requests, duration, filterPasses, visible, registrySize, exports)
	return &Metrics{
		registry:        registry,
		handler:         promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestsTotal:   requests,
		requestDuration: duration,
		filterPasses:    filterPasses,
		visible:         visible,
		registrySize:    registrySize,
		exports:         exports,
	}
}

// Handler returns the /metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// Middleware records count and latency for every request.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	if m == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		recorder := statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(&recorder, r)
		route := routePattern(r)
		m.requestsTotal.WithLabelValues(route, strconv.Itoa(recorder.status)).Inc()
		m.requestDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
	})
}

// ObserveFilterPass records one pipeline run that left visible rows.
func (m *Metrics) ObserveFilterPass(visible int) {
	if m == nil {
		return
	}
	m.filterPasses.Inc()
	m.visible.Set(float64(visible))
}

// SetRegistrySize records the size of the loaded snapshot.
func (m *Metrics) SetRegistrySize(source string, n int) {
	if m == nil {
		return
	}
	m.registrySize.WithLabelValues(source).Set(float64(n))
}

// ObserveExport counts an export attempt; outcome is "ok" or "error".
func (m *Metrics) ObserveExport(outcome string) {
	if m == nil {
		return
	}
	m.exports.WithLabelValues(outcome).Inc()
}

// Registerer exposes the registry for extra collectors.
func (m *Metrics) Registerer() prometheus.Registerer {
	if m == nil {
		return prometheus.DefaultRegisterer
	}
	return m.registry
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func routePattern(r *http.Request) string {
	if routeCtx := chi.RouteContext(r.Context()); routeCtx != nil {
		if pattern := routeCtx.RoutePattern(); pattern != "" {
			return pattern
		}
	}
	return "unknown"
}
