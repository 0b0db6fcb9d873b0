// Package metrics exposes Prometheus collectors for TMDB traffic and catalog imports.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector groups the process metrics. A nil *Collector is valid and records nothing.
type Collector struct {
	registry       *prometheus.Registry
	tmdbRequests   *prometheus.CounterVec
	keyRotations   prometheus.Counter
	imports        *prometheus.CounterVec
	importDuration *prometheus.HistogramVec
}

// New registers the catalog collectors on a fresh registry.
func New() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		tmdbRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "cinemax",
			Name:      "tmdb_requests_total",
			Help:      "TMDB requests by response status class.",
		}, []string{"status"}),
		keyRotations: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "cinemax",
			Name:      "tmdb_key_rotations_total",
			Help:      "API key rotations after 401/429 responses.",
		}),
		imports: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "cinemax",
			Name:      "imports_total",
			Help:      "Catalog import results by kind and status.",
		}, []string{"kind", "status"}),
		importDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "cinemax",
			Name:      "import_duration_seconds",
			Help:      "Wall time of single-item imports.",
			Buckets:   []float64{.1, .25, .5, 1, 2.5, 5, 10, 30, 60},
		}, []string{"kind"}),
	}

	c.registry.MustRegister(
		c.tmdbRequests,
		c.keyRotations,
		c.imports,
		c.importDuration,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return c
}

// Handler serves the registry in the Prometheus exposition format.
func (c *Collector) Handler() http.Handler {
	if c == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// Registry exposes the underlying registry for tests.
func (c *Collector) Registry() *prometheus.Registry {
	if c == nil {
		return nil
	}
	return c.registry
}

// ObserveRequest records one TMDB response (status 0 means a transport failure).
func (c *Collector) ObserveRequest(status int) {
	if c == nil {
		return
	}
	c.tmdbRequests.WithLabelValues(statusClass(status)).Inc()
}

// ObserveRotation records one key rotation.
func (c *Collector) ObserveRotation() {
	if c == nil {
		return
	}
	c.keyRotations.Inc()
}

// ObserveImport records the outcome and duration of one import.
func (c *Collector) ObserveImport(kind, status string, elapsed time.Duration) {
	if c == nil {
		return
	}
	c.imports.WithLabelValues(kind, status).Inc()
	c.importDuration.WithLabelValues(kind).Observe(elapsed.Seconds())
}

func statusClass(status int) string {
	if status <= 0 {
		return "error"
	}
	switch status {
	case http.StatusUnauthorized, http.StatusTooManyRequests:
		return strconv.Itoa(status)
	}
	return strconv.Itoa(status/100) + "xx"
}
