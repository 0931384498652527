// Package metrics exposes Prometheus collectors for the reconciliation engine.
//
// All methods are safe to call on a nil *Metrics, so tests and tools can run
// without a registry.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

const namespace = "splitsettle"

// Metrics holds the collectors registered on its own registry.
type Metrics struct {
	Registry *prometheus.Registry

	reconciliations     *prometheus.CounterVec
	conflicts           prometheus.Counter
	retriesExhausted    prometheus.Counter
	unresolved          prometheus.Counter
	invariantViolations prometheus.Counter
	surplusPasses       prometheus.Histogram
	notificationsQueued prometheus.Counter
	notificationsSent   *prometheus.CounterVec
}

// New creates the collectors and registers them, along with the Go and
// process collectors, on a fresh registry.
func New() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		reconciliations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reconciliations_total",
			Help:      "Reconciliations run, by trigger.",
		}, []string{"reason"}),
		conflicts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "version_conflicts_total",
			Help:      "Conditional split updates rejected because the version moved.",
		}),
		retriesExhausted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "concurrent_modification_errors_total",
			Help:      "Updates abandoned after exhausting retries.",
		}),
		unresolved: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "unresolved_allocations_total",
			Help:      "Payment allocations that matched no breakdown entry.",
		}),
		invariantViolations: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "invariant_violations_total",
			Help:      "Reconciliations whose share sum diverged from the split total.",
		}),
		surplusPasses: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "surplus_passes",
			Help:      "Passes needed for surplus resolution to settle.",
			Buckets:   []float64{1, 2, 3, 4, 6, 8, 12, 16, 32},
		}),
		notificationsQueued: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notifications_queued_total",
			Help:      "Nudge notifications written to the outbox.",
		}),
		notificationsSent: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notifications_delivered_total",
			Help:      "Outbox deliveries, by result.",
		}, []string{"result"}),
	}

	m.Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.reconciliations,
		m.conflicts,
		m.retriesExhausted,
		m.unresolved,
		m.invariantViolations,
		m.surplusPasses,
		m.notificationsQueued,
		m.notificationsSent,
	)
	return m
}

func (m *Metrics) Reconciled(reason string, passes int) {
	if m == nil {
		return
	}
	m.reconciliations.WithLabelValues(reason).Inc()
	m.surplusPasses.Observe(float64(passes))
}

func (m *Metrics) VersionConflict() {
	if m == nil {
		return
	}
	m.conflicts.Inc()
}

func (m *Metrics) RetriesExhausted() {
	if m == nil {
		return
	}
	m.retriesExhausted.Inc()
}

func (m *Metrics) UnresolvedAllocations(n int) {
	if m == nil || n == 0 {
		return
	}
	m.unresolved.Add(float64(n))
}

func (m *Metrics) InvariantViolation() {
	if m == nil {
		return
	}
	m.invariantViolations.Inc()
}

func (m *Metrics) NotificationsQueued(n int) {
	if m == nil || n == 0 {
		return
	}
	m.notificationsQueued.Add(float64(n))
}

// NotificationDelivered counts one delivery attempt.
func (m *Metrics) NotificationDelivered(ok bool) {
	if m == nil {
		return
	}
	result := "ok"
	if !ok {
		result = "error"
	}
	m.notificationsSent.WithLabelValues(result).Inc()
}
