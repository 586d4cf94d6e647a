package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Sweep run duration (seconds)
	SweepRunDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "sweep_run_duration_seconds",
			Help:    "Duration of a full sweep run in seconds",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 12), // 10ms to ~40s
		},
		[]string{"sweep"},
	)

	// Records that failed inside a sweep run (logged and skipped)
	SweepRecordFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sweep_record_failures_total",
			Help: "Total number of records skipped due to per-record failures",
		},
		[]string{"sweep"},
	)

	// Notifications actually inserted
	NotificationsCreated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notifications_created_total",
			Help: "Total number of notifications created",
		},
		[]string{"type"},
	)

	// Inserts absorbed by the same-day uniqueness constraint
	NotificationsSuppressed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notifications_suppressed_total",
			Help: "Total number of duplicate notifications suppressed by dedup",
		},
		[]string{"type"},
	)

	// Push delivery outcomes
	PushDeliveries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "push_deliveries_total",
			Help: "Total number of push delivery attempts",
		},
		[]string{"status"}, // status: sent, failed, no_devices
	)

	// Outbox dispatch outcomes
	OutboxDispatches = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "outbox_dispatches_total",
			Help: "Total number of outbox events dispatched to MQ",
		},
		[]string{"status"}, // status: sent, failed
	)

	// MQ consume latency (milliseconds)
	MQConsumeLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "mq_consume_latency_ms",
			Help:    "MQ message consumption latency in milliseconds",
			Buckets: prometheus.ExponentialBuckets(10, 2, 10), // 10ms to ~10s
		},
		[]string{"routing_key", "queue"},
	)

	// Queries over the slow threshold
	SlowQueryCount = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "db_slow_queries_total",
			Help: "Total number of queries exceeding the slow query threshold",
		},
	)
)

// RecordSweepRun records how long a sweep took.
func RecordSweepRun(sweep string, duration time.Duration) {
	SweepRunDuration.WithLabelValues(sweep).Observe(duration.Seconds())
}

// IncrementRecordFailure counts a skipped record in a sweep.
func IncrementRecordFailure(sweep string) {
	SweepRecordFailures.WithLabelValues(sweep).Inc()
}

// IncrementNotificationCreated counts a created notification.
func IncrementNotificationCreated(notificationType string) {
	NotificationsCreated.WithLabelValues(notificationType).Inc()
}

// IncrementNotificationSuppressed counts a dedup-suppressed notification.
func IncrementNotificationSuppressed(notificationType string) {
	NotificationsSuppressed.WithLabelValues(notificationType).Inc()
}

// IncrementPushDelivery counts a push delivery outcome.
func IncrementPushDelivery(status string) {
	PushDeliveries.WithLabelValues(status).Inc()
}

// IncrementOutboxDispatch counts an outbox dispatch outcome.
func IncrementOutboxDispatch(status string) {
	OutboxDispatches.WithLabelValues(status).Inc()
}

// RecordMQConsumeLatency records MQ consumption latency.
func RecordMQConsumeLatency(routingKey, queue string, duration time.Duration) {
	MQConsumeLatency.WithLabelValues(routingKey, queue).Observe(float64(duration.Milliseconds()))
}
