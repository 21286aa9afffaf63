// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the service.
type Metrics struct {
	registry *prometheus.Registry

	// Cache metrics
	CacheRequests *prometheus.CounterVec
	CacheErrors   *prometheus.CounterVec

	// Upstream metrics
	UpstreamLatency *prometheus.HistogramVec
	UpstreamErrors  *prometheus.CounterVec

	// HTTP metrics
	HTTPRequests *prometheus.CounterVec
}

// NewMetrics creates a Metrics instance registered on its own registry.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "identity"
	}

	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)

	return &Metrics{
		registry: registry,

		CacheRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cache",
			Name:      "requests_total",
			Help:      "Cache lookups by kind and result (hit, miss)",
		}, []string{"kind", "result"}),
		CacheErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cache",
			Name:      "errors_total",
			Help:      "Cache backend errors by kind and operation",
		}, []string{"kind", "op"}),

		UpstreamLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "upstream",
			Name:      "call_duration_seconds",
			Help:      "Upstream call latency by provider and operation",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
		}, []string{"provider", "operation"}),
		UpstreamErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "upstream",
			Name:      "errors_total",
			Help:      "Upstream call failures by provider and operation",
		}, []string{"provider", "operation"}),

		HTTPRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP requests by route and status code",
		}, []string{"route", "status"}),
	}
}

// Handler returns the HTTP handler for the /metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveUpstream records latency and failure of one upstream call.
func (m *Metrics) ObserveUpstream(provider, operation string, start time.Time, err error) {
	if m == nil {
		return
	}
	m.UpstreamLatency.WithLabelValues(provider, operation).Observe(time.Since(start).Seconds())
	if err != nil {
		m.UpstreamErrors.WithLabelValues(provider, operation).Inc()
	}
}

// CacheHit records a cache hit for kind.
func (m *Metrics) CacheHit(kind string) {
	if m == nil {
		return
	}
	m.CacheRequests.WithLabelValues(kind, "hit").Inc()
}

// CacheMiss records a cache miss for kind.
func (m *Metrics) CacheMiss(kind string) {
	if m == nil {
		return
	}
	m.CacheRequests.WithLabelValues(kind, "miss").Inc()
}

// CacheError records a swallowed or surfaced backend error.
func (m *Metrics) CacheError(kind, op string) {
	if m == nil {
		return
	}
	m.CacheErrors.WithLabelValues(kind, op).Inc()
}

// HTTPRequest records one served request under its route template.
func (m *Metrics) HTTPRequest(route string, status int) {
	if m == nil {
		return
	}
	m.HTTPRequests.WithLabelValues(route, strconv.Itoa(status)).Inc()
}
