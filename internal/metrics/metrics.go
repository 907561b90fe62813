package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the edit engine.
type Metrics struct {
	// Batch lifecycle
	BatchesSubmitted prometheus.Counter
	BatchesRejected  *prometheus.CounterVec
	BatchesUndone    prometheus.Counter
	UndoRejected     *prometheus.CounterVec
	EditsApplied     prometheus.Counter
	EditsReverted    prometheus.Counter

	// Propagation
	PropagationDuration prometheus.Histogram
	PropagationFailures prometheus.Counter

	// Reconciliation
	ReconcileOrphans   prometheus.Gauge
	ReconcileNameDrift prometheus.Gauge

	// HTTP
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
}

// New creates a Metrics instance registered on the given registerer.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		BatchesSubmitted: factory.NewCounter(prometheus.CounterOpts{
			Name: "agent_edit_batches_submitted_total",
			Help: "Total number of edit batches applied successfully",
		}),
		BatchesRejected: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "agent_edit_batches_rejected_total",
				Help: "Total number of edit batches rejected before any write",
			},
			[]string{"stage"},
		),
		BatchesUndone: factory.NewCounter(prometheus.CounterOpts{
			Name: "agent_edit_batches_undone_total",
			Help: "Total number of edit batches reverted",
		}),
		UndoRejected: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "agent_edit_undo_rejected_total",
				Help: "Total number of undo requests rejected, by reason",
			},
			[]string{"reason"},
		),
		EditsApplied: factory.NewCounter(prometheus.CounterOpts{
			Name: "agent_edit_edits_applied_total",
			Help: "Total number of individual identity edits propagated",
		}),
		EditsReverted: factory.NewCounter(prometheus.CounterOpts{
			Name: "agent_edit_edits_reverted_total",
			Help: "Total number of individual identity edits reverted",
		}),
		PropagationDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "agent_edit_propagation_duration_seconds",
			Help:    "Time spent propagating one identity edit across all collections",
			Buckets: prometheus.DefBuckets,
		}),
		PropagationFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "agent_edit_propagation_failures_total",
			Help: "Total number of edits left partially applied by a mid-propagation failure",
		}),
		ReconcileOrphans: factory.NewGauge(prometheus.GaugeOpts{
			Name: "agent_edit_reconcile_orphan_identities",
			Help: "Denormalized identity pairs whose phone matches no live agent, per last scan",
		}),
		ReconcileNameDrift: factory.NewGauge(prometheus.GaugeOpts{
			Name: "agent_edit_reconcile_name_drift",
			Help: "Denormalized identity pairs whose name contradicts the live agent, per last scan",
		}),
		HTTPRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path", "status"},
		),
	}
}
