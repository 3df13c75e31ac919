// Package metrics defines the Prometheus metrics of the Pabliki server.
//
// Metrics are registered on a dedicated registry rather than the global
// default. Every recording method is safe on a nil *Metrics, so components
// built without metrics need no guards.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Namespace prefixes every metric name.
const Namespace = "pabliki"

// Metrics holds the server's collectors.
type Metrics struct {
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	EntityMutations *prometheus.CounterVec
	PreviewFetches  *prometheus.CounterVec
	SearchQueries   *prometheus.CounterVec
	SSEClients      prometheus.Gauge

	JobRuns     *prometheus.CounterVec
	JobDuration *prometheus.HistogramVec
}

// NewRegistry returns a registry carrying the Go runtime and process collectors.
func NewRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

// New creates and registers the server metrics on reg.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		HTTPRequestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP requests by method, route pattern and status.",
		}, []string{"method", "route", "status"}),

		HTTPRequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: Namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency by method and route pattern.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),

		EntityMutations: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "entity_mutations_total",
			Help:      "Created, updated and deleted entities by kind.",
		}, []string{"entity", "op"}),

		PreviewFetches: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: "preview",
			Name:      "fetches_total",
			Help:      "Link preview fetches by result.",
		}, []string{"result"}),

		SearchQueries: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: "search",
			Name:      "queries_total",
			Help:      "Link searches by the backend that answered them.",
		}, []string{"backend"}),

		SSEClients: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: Namespace,
			Subsystem: "sse",
			Name:      "clients",
			Help:      "Connected event stream clients.",
		}),

		JobRuns: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: "jobs",
			Name:      "runs_total",
			Help:      "Scheduled job runs by job and status.",
		}, []string{"job", "status"}),

		JobDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: Namespace,
			Subsystem: "jobs",
			Name:      "duration_seconds",
			Help:      "Scheduled job duration.",
			Buckets:   prometheus.ExponentialBuckets(0.01, 4, 8),
		}, []string{"job"}),
	}
}

// Mutation ops.
const (
	OpCreate = "create"
	OpUpdate = "update"
	OpDelete = "delete"
)

// EntityMutated counts one mutation of an entity kind.
func (m *Metrics) EntityMutated(entity, op string) {
	if m == nil {
		return
	}
	m.EntityMutations.WithLabelValues(entity, op).Inc()
}

// PreviewFetched counts a preview fetch; result is "ok", "error" or "disabled".
func (m *Metrics) PreviewFetched(result string) {
	if m == nil {
		return
	}
	m.PreviewFetches.WithLabelValues(result).Inc()
}

// Searched counts a link search answered by backend ("index" or "store").
func (m *Metrics) Searched(backend string) {
	if m == nil {
		return
	}
	m.SearchQueries.WithLabelValues(backend).Inc()
}

// SetSSEClients records the connected client count.
func (m *Metrics) SetSSEClients(n int) {
	if m == nil {
		return
	}
	m.SSEClients.Set(float64(n))
}

// JobFinished records one job run.
func (m *Metrics) JobFinished(job string, took time.Duration, err error) {
	if m == nil {
		return
	}
	status := "ok"
	if err != nil {
		status = "error"
	}
	m.JobRuns.WithLabelValues(job, status).Inc()
	m.JobDuration.WithLabelValues(job).Observe(took.Seconds())
}

// Handler serves the registry in the Prometheus exposition format.
func Handler(reg *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg})
}

// Middleware records request counts and latency labelled by the chi route
// pattern, so path parameters do not explode label cardinality.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	if m == nil {
		return next
	}
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
		m.HTTPRequestsTotal.WithLabelValues(r.Method, route, strconv.Itoa(status)).Inc()
		m.HTTPRequestDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}
