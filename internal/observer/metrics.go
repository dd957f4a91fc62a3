package observer

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	metricsEnabled = true // Flag to control metric collection

	// Labels for record-level metrics
	recordLabels = []string{"direction"}
	// Labels for match-outcome counting
	outcomeLabels = []string{"outcome", "direction"}
	// Labels for database operations
	dbOperationLabels = []string{"operation", "entity", "status"}

	RecordsProcessedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "call_reconciler_records_processed_total",
			Help: "Total number of source call records run through the matching pipeline.",
		},
		recordLabels,
	)

	MatchOutcomesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "call_reconciler_match_outcomes_total",
			Help: "Total match outcomes by kind (matched, fallback_matched, unmatched, direct_transfer, no_transfer, no_anchor).",
		},
		outcomeLabels,
	)

	RecordDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "call_reconciler_record_duration_seconds",
			Help:    "Histogram of per-record reconciliation durations.",
			Buckets: prometheus.ExponentialBuckets(0.0001, 2, 14), // 0.1ms to ~1.6s
		},
		recordLabels,
	)

	BatchDurationSeconds = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "call_reconciler_batch_duration_seconds",
			Help:    "Histogram of full batch reconciliation durations.",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 14), // 10ms to ~160s
		},
	)

	DatabaseOperationDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "call_reconciler_db_operation_duration_seconds",
			Help:    "Histogram of database operation durations.",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 15), // 1ms to ~16s
		},
		dbOperationLabels,
	)

	workerQueueLength = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "call_reconciler_worker_queue_length",
		Help: "Approximate number of records waiting in the reconcile worker pool queue.",
	})

	outcomePublishErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "call_reconciler_outcome_publish_errors_total",
			Help: "Total number of errors publishing outcome events to the broker.",
		},
		[]string{"subject"},
	)
)

// InitMetrics enables or disables metric collection. Call during startup.
func InitMetrics(enabled bool) {
	metricsEnabled = enabled
}

// IncRecordsProcessed increments the processed-records counter.
func IncRecordsProcessed(direction string) {
	if !metricsEnabled {
		return
	}
	RecordsProcessedTotal.WithLabelValues(sanitizeLabel(direction)).Inc()
}

// IncMatchOutcome increments the outcome counter for one record.
func IncMatchOutcome(outcome, direction string) {
	if !metricsEnabled {
		return
	}
	MatchOutcomesTotal.WithLabelValues(outcome, sanitizeLabel(direction)).Inc()
}

// ObserveRecordDuration records the time spent reconciling one record.
func ObserveRecordDuration(direction string, duration time.Duration) {
	if !metricsEnabled {
		return
	}
	IncRecordsProcessed(direction)
	RecordDurationSeconds.WithLabelValues(sanitizeLabel(direction)).Observe(duration.Seconds())
}

// ObserveBatchDuration records the time spent on a full batch pass.
func ObserveBatchDuration(duration time.Duration) {
	if !metricsEnabled {
		return
	}
	BatchDurationSeconds.Observe(duration.Seconds())
}

// ObserveDbOperationDuration records the duration for a database operation.
func ObserveDbOperationDuration(operation, entity string, duration time.Duration, err error) {
	if !metricsEnabled {
		return
	}
	status := "success"
	if err != nil {
		status = "error"
	}
	DatabaseOperationDurationSeconds.WithLabelValues(operation, entity, status).Observe(duration.Seconds())
}

// SetWorkerQueueLength sets the current reconcile pool queue length.
func SetWorkerQueueLength(length int) {
	if !metricsEnabled {
		return
	}
	workerQueueLength.Set(float64(length))
}

// IncOutcomePublishError increments the publish-error counter for a subject.
func IncOutcomePublishError(subject string) {
	if !metricsEnabled {
		return
	}
	outcomePublishErrorsTotal.WithLabelValues(subject).Inc()
}

// sanitizeLabel ensures a label is valid or returns a default value.
func sanitizeLabel(v string) string {
	if v == "" {
		return "unknown"
	}
	return v
}
