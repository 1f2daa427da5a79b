// Package metric provides Prometheus metrics for the token registry.
//
// It exposes metrics in Prometheus format for monitoring token mutation
// outcomes, lock contention, reindex runs, and request rates/latencies.
package metric

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry holds every metric the server exposes, namespaced "tokenreg"
// (§10 "Metrics"). It wraps a private *prometheus.Registry rather than
// using the global default, so a server can run more than one registry
// (e.g. in tests) without collector-registration collisions.
type Registry struct {
	registry *prometheus.Registry

	TokensCreated        prometheus.Counter
	TokensUpdated        prometheus.Counter
	TokensDeleted        prometheus.Counter
	TokensHardDeleted    prometheus.Counter
	QuotaRejections      prometheus.Counter
	PreconditionFailures prometheus.Counter
	ReindexRuns          prometheus.Counter
	ReindexFailures      prometheus.Counter

	LockHolders  prometheus.Gauge
	LockWaitTime prometheus.Histogram

	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
}

var (
	globalOnce sync.Once
	global     *Registry
)

// NewRegistry creates a metrics registry and registers every collector with
// it, including the Go runtime and process collectors the teacher's engine
// also exposed.
func NewRegistry() *Registry {
	reg := prometheus.NewRegistry()
	r := &Registry{
		registry: reg,

		TokensCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "tokenreg", Subsystem: "tokens", Name: "created_total",
			Help: "Tokens created via POST /token.",
		}),
		TokensUpdated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "tokenreg", Subsystem: "tokens", Name: "updated_total",
			Help: "Tokens updated via POST /token.",
		}),
		TokensDeleted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "tokenreg", Subsystem: "tokens", Name: "deleted_total",
			Help: "Tokens soft-deleted via DELETE /token.",
		}),
		TokensHardDeleted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "tokenreg", Subsystem: "tokens", Name: "hard_deleted_total",
			Help: "Tokens hard-deleted via DELETE /token.",
		}),
		QuotaRejections: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "tokenreg", Subsystem: "tokens", Name: "quota_rejections_total",
			Help: "Creates rejected because the owner reached its token quota.",
		}),
		PreconditionFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "tokenreg", Subsystem: "tokens", Name: "precondition_failures_total",
			Help: "Writes rejected because If-Match did not match the current hash.",
		}),
		ReindexRuns: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "tokenreg", Subsystem: "reindex", Name: "runs_total",
			Help: "Completed reindex runs.",
		}),
		ReindexFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "tokenreg", Subsystem: "reindex", Name: "failures_total",
			Help: "Reindex runs that failed to complete.",
		}),
		LockHolders: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "tokenreg", Subsystem: "locks", Name: "holders",
			Help: "Number of token locks currently held.",
		}),
		LockWaitTime: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "tokenreg", Subsystem: "locks", Name: "wait_seconds",
			Help:    "Time spent waiting to acquire a token lock.",
			Buckets: prometheus.DefBuckets,
		}),
		RequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "tokenreg", Subsystem: "http", Name: "requests_total",
			Help: "HTTP requests by method, path pattern, and status.",
		}, []string{"method", "path", "status"}),
		RequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "tokenreg", Subsystem: "http", Name: "request_duration_seconds",
			Help:    "HTTP request latency by method and path pattern.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "path"}),
	}

	reg.MustRegister(
		r.TokensCreated, r.TokensUpdated, r.TokensDeleted, r.TokensHardDeleted,
		r.QuotaRejections, r.PreconditionFailures, r.ReindexRuns, r.ReindexFailures,
		r.LockHolders, r.LockWaitTime, r.RequestsTotal, r.RequestDuration,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return r
}

// Global returns a lazily-initialized process-wide registry, for callers
// that don't carry one through explicitly (e.g. package-level instruments
// elsewhere that fire before a *Registry is threaded to them).
func Global() *Registry {
	globalOnce.Do(func() { global = NewRegistry() })
	return global
}

// Prometheus exposes the underlying *prometheus.Registry so collaborators
// like service.HTTPPeerBroadcaster can register their own metrics onto the
// same registry this server scrapes.
func (r *Registry) Prometheus() *prometheus.Registry {
	return r.registry
}

// RegisterCollector adds c's live-gauge metrics to the registry. Callers
// wire this once a registry.Registry (service package) exists to back an
// OwnerLister.
func (r *Registry) RegisterCollector(c *Collector) {
	r.registry.MustRegister(c)
}

// Handler returns the /metrics HTTP handler for this registry.
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}

// RecordRequest increments the request counter for one completed request.
func (r *Registry) RecordRequest(method, path, status string) {
	r.RequestsTotal.WithLabelValues(method, path, status).Inc()
}

// ObserveRequestDuration records one request's latency, in seconds.
func (r *Registry) ObserveRequestDuration(method, path string, seconds float64) {
	r.RequestDuration.WithLabelValues(method, path).Observe(seconds)
}
