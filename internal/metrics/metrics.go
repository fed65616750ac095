// Package metrics exposes query engine activity as Prometheus metrics.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/homiodev/homio-hquery/internal/query"
)

// Config controls metric collection.
type Config struct {
	Enabled   bool
	Namespace string
	Buckets   []float64
}

// Metrics records engine and cache activity. A disabled instance is a no-op.
// It satisfies engine.Observer and cache.Observer.
type Metrics struct {
	enabled bool

	calls        *prometheus.CounterVec
	callDuration *prometheus.HistogramVec
	errors       *prometheus.CounterVec
	invocations  *prometheus.CounterVec
	invokeTime   *prometheus.HistogramVec
	cacheLookups *prometheus.CounterVec
	cacheStores  prometheus.Counter
	activeCalls  prometheus.Gauge

	registry *prometheus.Registry
}

// New creates a Metrics instance with its own registry.
func New(cfg Config) *Metrics {
	if !cfg.Enabled {
		return &Metrics{}
	}

	ns := cfg.Namespace
	if ns == "" {
		ns = "hquery"
	}
	buckets := cfg.Buckets
	if len(buckets) == 0 {
		buckets = prometheus.DefBuckets
	}

	m := &Metrics{
		enabled:  true,
		registry: prometheus.NewRegistry(),

		calls: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: ns,
				Name:      "calls_total",
				Help:      "Total number of query calls",
			},
			[]string{"query", "result"},
		),
		callDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: ns,
				Name:      "call_duration_seconds",
				Help:      "Duration of query calls including parsing",
				Buckets:   buckets,
			},
			[]string{"query"},
		),
		errors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: ns,
				Name:      "errors_total",
				Help:      "Total number of failed query calls by failure kind",
			},
			[]string{"query", "kind"},
		),
		invocations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: ns,
				Name:      "invocations_total",
				Help:      "Total number of external processes and HTTP requests",
			},
			[]string{"query", "transport", "exit_code"},
		),
		invokeTime: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: ns,
				Name:      "invocation_duration_seconds",
				Help:      "Duration of external processes and HTTP requests",
				Buckets:   buckets,
			},
			[]string{"query", "transport"},
		),
		cacheLookups: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: ns,
				Name:      "cache_lookups_total",
				Help:      "Total number of result cache lookups",
			},
			[]string{"result"},
		),
		cacheStores: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: ns,
				Name:      "cache_stores_total",
				Help:      "Total number of outcomes stored in the result cache",
			},
		),
		activeCalls: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: ns,
				Name:      "active_calls",
				Help:      "Number of query calls in progress",
			},
		),
	}

	m.registry.MustRegister(
		m.calls, m.callDuration, m.errors,
		m.invocations, m.invokeTime,
		m.cacheLookups, m.cacheStores, m.activeCalls,
	)
	return m
}

// CallStarted marks a call in progress.
func (m *Metrics) CallStarted(string) {
	if !m.enabled {
		return
	}
	m.activeCalls.Inc()
}

// CallFinished records a completed call.
func (m *Metrics) CallFinished(name string, cached bool, d time.Duration, err error) {
	if !m.enabled {
		return
	}
	m.activeCalls.Dec()
	result := "ok"
	switch {
	case err != nil:
		result = "error"
		m.errors.WithLabelValues(name, query.KindName(err)).Inc()
	case cached:
		result = "cached"
	}
	m.calls.WithLabelValues(name, result).Inc()
	m.callDuration.WithLabelValues(name).Observe(d.Seconds())
}

// Invoked records one process run or HTTP request.
func (m *Metrics) Invoked(name, transport string, exitCode int, d time.Duration) {
	if !m.enabled {
		return
	}
	m.invocations.WithLabelValues(name, transport, strconv.Itoa(exitCode)).Inc()
	m.invokeTime.WithLabelValues(name, transport).Observe(d.Seconds())
}

// CacheHit implements cache.Observer.
func (m *Metrics) CacheHit(string) {
	if m.enabled {
		m.cacheLookups.WithLabelValues("hit").Inc()
	}
}

// CacheMiss implements cache.Observer.
func (m *Metrics) CacheMiss(string) {
	if m.enabled {
		m.cacheLookups.WithLabelValues("miss").Inc()
	}
}

// CacheStore implements cache.Observer.
func (m *Metrics) CacheStore(string) {
	if m.enabled {
		m.cacheStores.Inc()
	}
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	if !m.enabled {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry returns the underlying registry, nil when disabled.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}
