// Package observability holds the Prometheus collector and the OpenTelemetry
// tracer setup.
package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/SubjectCarterSoftware/WhoOwnsThis/domain/events"
)

// Collector holds all Prometheus metrics for the application. Each
// collector owns its registry, so several can coexist in tests.
type Collector struct {
	registry *prometheus.Registry

	// HTTP metrics
	HTTPRequests *prometheus.CounterVec
	HTTPDuration *prometheus.HistogramVec

	// Store metrics
	Mutations        *prometheus.CounterVec
	MutationDuration *prometheus.HistogramVec
	DocumentEvents   *prometheus.CounterVec

	// Filter metrics
	FacetRecomputes prometheus.Counter
	FacetDuration   prometheus.Histogram
	FacetGroups     prometheus.Gauge

	// Live feed
	LiveClients prometheus.Gauge
}

// NewCollector creates a collector with its own registry. The registry also
// carries the Go runtime and process collectors.
func NewCollector(namespace string) *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		HTTPRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		}, []string{"method", "route", "status"}),
		HTTPDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
		Mutations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "store",
			Name:      "operations_total",
			Help:      "Store operations by name and outcome",
		}, []string{"operation", "status"}),
		MutationDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "store",
			Name:      "operation_duration_seconds",
			Help:      "Store operation duration in seconds",
			Buckets:   []float64{.0001, .0005, .001, .005, .01, .05, .1, .5, 1},
		}, []string{"operation"}),
		DocumentEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "store",
			Name:      "events_total",
			Help:      "Change events emitted by the store",
		}, []string{"type"}),
		FacetRecomputes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "filters",
			Name:      "recomputes_total",
			Help:      "Facet index recomputations",
		}),
		FacetDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "filters",
			Name:      "recompute_duration_seconds",
			Help:      "Facet index recomputation time in seconds",
			Buckets:   []float64{.0005, .001, .005, .01, .05, .1, .25, .5, 1},
		}),
		FacetGroups: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "filters",
			Name:      "facet_groups",
			Help:      "Facet groups in the last published index",
		}),
		LiveClients: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "ws",
			Name:      "clients",
			Help:      "Connected live feed clients",
		}),
	}

	c.registry.MustRegister(
		c.HTTPRequests,
		c.HTTPDuration,
		c.Mutations,
		c.MutationDuration,
		c.DocumentEvents,
		c.FacetRecomputes,
		c.FacetDuration,
		c.FacetGroups,
		c.LiveClients,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return c
}

// Registry returns the underlying registry
func (c *Collector) Registry() *prometheus.Registry { return c.registry }

// Handler serves the registry in the Prometheus exposition format
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{Registry: c.registry})
}

// ObserveMutation records one store operation
func (c *Collector) ObserveMutation(operation string, elapsed time.Duration, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	c.Mutations.WithLabelValues(operation, status).Inc()
	c.MutationDuration.WithLabelValues(operation).Observe(elapsed.Seconds())
}

// ObserveRecompute records one facet recomputation
func (c *Collector) ObserveRecompute(elapsed time.Duration, groups int) {
	c.FacetRecomputes.Inc()
	c.FacetDuration.Observe(elapsed.Seconds())
	c.FacetGroups.Set(float64(groups))
}

// ObserveEvent counts a store change event
func (c *Collector) ObserveEvent(event events.DomainEvent) {
	c.DocumentEvents.WithLabelValues(event.GetEventType()).Inc()
}

// HTTPMiddleware records request counts and latency by chi route pattern
func (c *Collector) HTTPMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if pattern := rctx.RoutePattern(); pattern != "" {
				route = pattern
			}
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		c.HTTPRequests.WithLabelValues(r.Method, route, strconv.Itoa(status)).Inc()
		c.HTTPDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}
