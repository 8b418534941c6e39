// Package metrics provides Prometheus metrics for the webloader service.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsNamespace is the namespace for all webloader metrics.
const MetricsNamespace = "webloader"

// Render outcome label values.
const (
	OutcomeOK      = "ok"
	OutcomeEmpty   = "empty"
	OutcomeError   = "error"
	OutcomeBlocked = "blocked"
)

// Metrics holds all Prometheus metrics for the scrape pipeline.
type Metrics struct {
	RendersTotal          *prometheus.CounterVec
	RenderDurationSeconds *prometheus.HistogramVec
	RendersInFlight       prometheus.Gauge
	CacheHitsTotal        prometheus.Counter
	CacheMissesTotal      prometheus.Counter
	BreakerState          prometheus.Gauge
	RequestURLs           prometheus.Histogram

	registry *prometheus.Registry
}

// New creates and registers all webloader metrics on a private registry.
func New() *Metrics {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)

	m := &Metrics{registry: registry}

	m.RendersTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: MetricsNamespace,
			Name:      "renders_total",
			Help:      "Total number of page renders by outcome and mode",
		},
		[]string{"outcome", "mode"},
	)

	m.RenderDurationSeconds = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: MetricsNamespace,
			Name:      "render_duration_seconds",
			Help:      "Duration of page renders in seconds",
			Buckets:   prometheus.ExponentialBuckets(0.05, 2, 12), // 50ms to ~100s
		},
		[]string{"mode"},
	)

	m.RendersInFlight = factory.NewGauge(
		prometheus.GaugeOpts{
			Namespace: MetricsNamespace,
			Name:      "renders_in_flight",
			Help:      "Number of renders currently in progress",
		},
	)

	m.CacheHitsTotal = factory.NewCounter(
		prometheus.CounterOpts{
			Namespace: MetricsNamespace,
			Name:      "cache_hits_total",
			Help:      "Total number of render cache hits",
		},
	)

	m.CacheMissesTotal = factory.NewCounter(
		prometheus.CounterOpts{
			Namespace: MetricsNamespace,
			Name:      "cache_misses_total",
			Help:      "Total number of render cache misses",
		},
	)

	m.BreakerState = factory.NewGauge(
		prometheus.GaugeOpts{
			Namespace: MetricsNamespace,
			Name:      "browser_breaker_state",
			Help:      "Browser circuit breaker state (0=closed, 1=open, 2=half-open)",
		},
	)

	m.RequestURLs = factory.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: MetricsNamespace,
			Name:      "request_urls",
			Help:      "Number of URLs per load request",
			Buckets:   prometheus.LinearBuckets(1, 2, 10),
		},
	)

	return m
}

// Handler returns an HTTP handler exposing the registered metrics.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
