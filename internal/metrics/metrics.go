// ABOUTME: Prometheus metrics registry and instruments for the hearth server
// ABOUTME: HTTP request counts/latency, mutation outcomes, and view invalidations

package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics bundles the server's instruments on a private registry so tests can
// create instances without duplicate-registration panics.
type Metrics struct {
	registry *prometheus.Registry

	HTTPRequests      *prometheus.CounterVec
	HTTPDuration      *prometheus.HistogramVec
	Mutations         *prometheus.CounterVec
	ViewInvalidations prometheus.Counter
}

// New creates a registry with all hearth instruments plus the standard Go and
// process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()

	m := &Metrics{
		registry: reg,
		HTTPRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "hearth_http_requests_total",
			Help: "HTTP requests by method, route, and status code.",
		}, []string{"method", "route", "status"}),
		HTTPDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "hearth_http_request_seconds",
			Help:    "HTTP request latency in seconds.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
		Mutations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "hearth_mutations_total",
			Help: "State mutations by entity and outcome.",
		}, []string{"entity", "outcome"}),
		ViewInvalidations: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "hearth_view_invalidations_total",
			Help: "Cached views invalidated after successful mutations.",
		}),
	}

	reg.MustRegister(
		m.HTTPRequests,
		m.HTTPDuration,
		m.Mutations,
		m.ViewInvalidations,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Handler returns the scrape endpoint for this registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
