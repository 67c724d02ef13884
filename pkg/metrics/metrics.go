package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ha1tch/tabgraph/pkg/models"
)

// Registry holds the service metrics
type Registry struct {
	registry *prometheus.Registry

	ConversionsTotal   *prometheus.CounterVec
	ConversionDuration prometheus.Histogram
	NodesTotal         prometheus.Counter
	EdgesTotal         *prometheus.CounterVec
	RowsSkippedTotal   prometheus.Counter
	CacheRequestsTotal *prometheus.CounterVec

	HTTPRequestsTotal *prometheus.CounterVec
}

// NewRegistry creates a registry with all metrics registered
func NewRegistry() *Registry {
	r := &Registry{
		registry: prometheus.NewRegistry(),
	}

	r.initConversionMetrics()
	r.initHTTPMetrics()

	return r
}

func (r *Registry) initConversionMetrics() {
	r.ConversionsTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "tabgraph_conversions_total",
			Help: "Total number of table conversions",
		},
		[]string{"status"},
	)

	r.ConversionDuration = promauto.With(r.registry).NewHistogram(
		prometheus.HistogramOpts{
			Name:    "tabgraph_conversion_duration_seconds",
			Help:    "Table conversion duration in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1.0, 5.0},
		},
	)

	r.NodesTotal = promauto.With(r.registry).NewCounter(
		prometheus.CounterOpts{
			Name: "tabgraph_nodes_total",
			Help: "Total number of nodes produced",
		},
	)

	r.EdgesTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "tabgraph_edges_total",
			Help: "Total number of edges produced",
		},
		[]string{"type"},
	)

	r.RowsSkippedTotal = promauto.With(r.registry).NewCounter(
		prometheus.CounterOpts{
			Name: "tabgraph_rows_skipped_total",
			Help: "Total number of source rows skipped for a missing id",
		},
	)

	r.CacheRequestsTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "tabgraph_cache_requests_total",
			Help: "Conversion cache lookups",
		},
		[]string{"result"},
	)
}

func (r *Registry) initHTTPMetrics() {
	r.HTTPRequestsTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "tabgraph_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)
}

// RecordConversion records a successful conversion
func (r *Registry) RecordConversion(g *models.Graph, duration time.Duration) {
	r.ConversionsTotal.WithLabelValues("ok").Inc()
	r.ConversionDuration.Observe(duration.Seconds())
	r.NodesTotal.Add(float64(len(g.Nodes)))
	r.RowsSkippedTotal.Add(float64(g.Skipped))
	for edgeType, count := range g.EdgeCounts() {
		r.EdgesTotal.WithLabelValues(string(edgeType)).Add(float64(count))
	}
}

// RecordConversionError records a failed conversion
func (r *Registry) RecordConversionError() {
	r.ConversionsTotal.WithLabelValues("error").Inc()
}

// RecordCache records a cache lookup
func (r *Registry) RecordCache(hit bool) {
	if hit {
		r.CacheRequestsTotal.WithLabelValues("hit").Inc()
	} else {
		r.CacheRequestsTotal.WithLabelValues("miss").Inc()
	}
}

// RecordHTTPRequest records an HTTP request
func (r *Registry) RecordHTTPRequest(method, route, status string) {
	r.HTTPRequestsTotal.WithLabelValues(method, route, status).Inc()
}

// Handler returns the Prometheus scrape handler for this registry
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}

// GetPrometheusRegistry returns the underlying Prometheus registry
func (r *Registry) GetPrometheusRegistry() *prometheus.Registry {
	return r.registry
}
