// Package metrics holds the process-wide Prometheus collectors, registered
// at package init time and scraped via /metrics on the metrics.bind
// listener. Grounded on jordigilh-kubernaut's pkg/metrics: package-level
// vars, promauto registration, a small Timer helper.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	MessagesForwardedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "shadowd_messages_forwarded_total",
		Help: "Inbound MQTT messages handed to the processor.",
	})

	MessagesDroppedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "shadowd_messages_dropped_total",
		Help: "Inbound MQTT messages dropped: processor queue full, undecodable payload, or shadow storage error.",
	})

	MessagesSentTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "shadowd_messages_sent_total",
		Help: "Messages published back to devices, by topic kind.",
	}, []string{"topic_kind"})

	ShadowUpdatesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "shadowd_shadow_updates_total",
		Help: "Shadow update documents successfully applied.",
	})

	TxnRetriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "shadowd_txn_retries_total",
		Help: "Storage transaction retry attempts, by operation.",
	}, []string{"operation"})

	TxnExhaustedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "shadowd_txn_exhausted_total",
		Help: "Storage transactions that failed to commit within the retry budget.",
	}, []string{"operation"})

	ShadowUpdateDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "shadowd_shadow_update_duration_seconds",
		Help:    "Time to apply and persist a single shadow update.",
		Buckets: prometheus.DefBuckets,
	})

	ConnectedDevices = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "shadowd_connected_devices",
		Help: "Devices currently holding an open MQTT connection.",
	})

	BackupsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "shadowd_backups_total",
		Help: "Database backup attempts, by outcome.",
	}, []string{"outcome"})

	PoolQueueDepth = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "shadowd_pool_queue_depth",
		Help: "Jobs currently queued for the storage worker pool.",
	})

	PoolJobsRejectedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "shadowd_pool_jobs_rejected_total",
		Help: "Storage worker pool jobs rejected because the queue was full, by kind.",
	}, []string{"kind"})
)

// Timer measures an operation's duration for a histogram observation.
type Timer struct {
	start time.Time
}

func NewTimer() Timer {
	return Timer{start: time.Now()}
}

func (t Timer) ObserveShadowUpdate() {
	ShadowUpdateDuration.Observe(time.Since(t.start).Seconds())
}
