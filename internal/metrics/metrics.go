// Package metrics exposes prometheus collectors for the index pipeline.
//
// A nil *Metrics is valid and records nothing, so components can be built
// without a registry in tests.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "taste_index"

// Metrics holds every collector the service registers.
type Metrics struct {
	registry *prometheus.Registry

	mutations       *prometheus.CounterVec
	applyDuration   *prometheus.HistogramVec
	writeRetries    prometheus.Counter
	ingestRejected  *prometheus.CounterVec
	ingestRetries   prometheus.Counter
	reconcileRuns   *prometheus.CounterVec
	reconcileFacts  *prometheus.CounterVec
	searchIndexErrs prometheus.Counter
}

// New creates collectors on a fresh registry, along with the Go runtime and
// process collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		mutations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "writer",
			Name:      "mutations_total",
			Help:      "Mutations handled by the index writer, by fact kind and result.",
		}, []string{"kind", "result"}),
		applyDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "writer",
			Name:      "apply_duration_seconds",
			Help:      "Time spent applying one mutation, retries included.",
			Buckets:   prometheus.ExponentialBuckets(0.0005, 2, 14),
		}, []string{"kind"}),
		writeRetries: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "writer",
			Name:      "conflict_retries_total",
			Help:      "Write conflicts retried by the index writer.",
		}),
		ingestRejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingest",
			Name:      "rejected_total",
			Help:      "Facts rejected by the ingestor, by error code.",
		}, []string{"code"}),
		ingestRetries: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingest",
			Name:      "unavailable_retries_total",
			Help:      "Deliveries retried because the store was unavailable.",
		}),
		reconcileRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "reconcile",
			Name:      "runs_total",
			Help:      "Reconcile runs, by outcome.",
		}, []string{"outcome"}),
		reconcileFacts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "reconcile",
			Name:      "facts_total",
			Help:      "Facts re-fed by reconcile runs, by result.",
		}, []string{"result"}),
		searchIndexErrs: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "search",
			Name:      "index_errors_total",
			Help:      "Posts that could not be added to the caption index.",
		}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.mutations,
		m.applyDuration,
		m.writeRetries,
		m.ingestRejected,
		m.ingestRetries,
		m.reconcileRuns,
		m.reconcileFacts,
		m.searchIndexErrs,
	)
	return m
}

// Handler serves the registry in the prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// ObserveApply records one writer outcome. result is "applied",
// "already_applied" or an error code.
func (m *Metrics) ObserveApply(kind, result string, took time.Duration) {
	if m == nil {
		return
	}
	m.mutations.WithLabelValues(kind, result).Inc()
	m.applyDuration.WithLabelValues(kind).Observe(took.Seconds())
}

// WriteConflictRetried counts one retried write conflict.
func (m *Metrics) WriteConflictRetried() {
	if m == nil {
		return
	}
	m.writeRetries.Inc()
}

// FactRejected counts a fact dropped by the ingestor.
func (m *Metrics) FactRejected(code string) {
	if m == nil {
		return
	}
	m.ingestRejected.WithLabelValues(code).Inc()
}

// StoreUnavailableRetried counts one delivery retry.
func (m *Metrics) StoreUnavailableRetried() {
	if m == nil {
		return
	}
	m.ingestRetries.Inc()
}

// ReconcileFinished records a finished run and its per-fact results.
func (m *Metrics) ReconcileFinished(outcome string, applied, alreadyApplied, rejected int) {
	if m == nil {
		return
	}
	m.reconcileRuns.WithLabelValues(outcome).Inc()
	m.reconcileFacts.WithLabelValues("applied").Add(float64(applied))
	m.reconcileFacts.WithLabelValues("already_applied").Add(float64(alreadyApplied))
	m.reconcileFacts.WithLabelValues("rejected").Add(float64(rejected))
}

// SearchIndexFailed counts a post missing from the caption index.
func (m *Metrics) SearchIndexFailed() {
	if m == nil {
		return
	}
	m.searchIndexErrs.Inc()
}
