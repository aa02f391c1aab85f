package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	StudentSyncs = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "tracker_student_syncs_total", Help: "Student syncs by trigger and result"},
		[]string{"trigger", "result"},
	)
	SyncDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{Name: "tracker_student_sync_seconds", Help: "Duration of a single student sync", Buckets: prometheus.DefBuckets},
	)
	BatchRuns = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "tracker_batch_runs_total", Help: "Scheduled batch firings by outcome"},
		[]string{"outcome"},
	)
	BatchDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{Name: "tracker_batch_seconds", Help: "Duration of a full roster sync", Buckets: prometheus.ExponentialBuckets(1, 2, 12)},
	)

	ProcessedEvents = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "tracker_outbox_processed_total", Help: "Total processed outbox events"},
	)
	FailedEvents = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "tracker_outbox_failed_total", Help: "Total failed outbox events"},
	)
	DLQEvents = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "tracker_dlq_total", Help: "Total events inserted into DLQ"},
	)
)

func Register() {
	prometheus.MustRegister(
		StudentSyncs, SyncDuration, BatchRuns, BatchDuration,
		ProcessedEvents, FailedEvents, DLQEvents,
	)
}
