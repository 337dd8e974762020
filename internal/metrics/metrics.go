package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Tracks records accepted into the queue.
	TradesIngestedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "trade_ingest_trades_total",
			Help: "Total number of trades validated, stamped and enqueued (by source).",
		},
		[]string{"source"},
	)

	// Tracks candidates rejected by validation.
	TradesRejectedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "trade_ingest_rejected_total",
			Help: "Total number of candidates discarded by validation (by field and reason).",
		},
		[]string{"reason"},
	)

	// Tracks empty fetches (no-data ticks from the API/stream sources).
	EmptyFetchesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "trade_ingest_empty_fetches_total",
			Help: "Total number of source ticks that yielded no candidate.",
		},
		[]string{"source"},
	)

	// Measures duration of candidate fetches.
	FetchDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "trade_ingest_fetch_duration_seconds",
			Help:    "Duration of source fetch calls in seconds.",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 15), // 1ms → ~16s
		},
		[]string{"source"},
	)

	// Gauges the number of records currently buffered in the queue.
	QueueDepth = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "trade_ingest_queue_depth",
			Help: "Number of validated records waiting in the ingestion queue.",
		},
	)

	// Tracks egress publishes by sink and result.
	EgressPublishedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "trade_ingest_egress_published_total",
			Help: "Total number of envelopes published downstream.",
		},
		[]string{"sink", "result"}, // result = "ok" | "error"
	)

	EgressPublishLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "trade_ingest_egress_latency_seconds",
			Help:    "Time taken to publish envelopes downstream.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"sink"},
	)

	// Tracks total errors (aggregated).
	ErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "trade_ingest_errors_total",
			Help: "Count of service-level errors by component.",
		},
		[]string{"component", "reason"},
	)

	// Gauges the last successful ingest time (seconds since epoch).
	LastIngestTimestamp = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "trade_ingest_last_ingest_timestamp",
			Help: "Timestamp (unix seconds) of the last record accepted into the queue.",
		},
		[]string{"source"},
	)
)

// ObserveDuration records the time taken for a function and updates the given histogram.
func ObserveDuration(v interface{}, start time.Time, labels ...string) {
	duration := time.Since(start).Seconds()

	switch metric := v.(type) {
	case *prometheus.HistogramVec:
		metric.WithLabelValues(labels...).Observe(duration)
	case *prometheus.SummaryVec:
		metric.WithLabelValues(labels...).Observe(duration)
	default:
		// silently ignore counters; they're not meant for duration tracking
	}
}

func IncIngested(source string) {
	TradesIngestedTotal.WithLabelValues(source).Inc()
}

func IncRejected(reason string) {
	TradesRejectedTotal.WithLabelValues(reason).Inc()
}

func IncEmptyFetch(source string) {
	EmptyFetchesTotal.WithLabelValues(source).Inc()
}

func IncEgress(sink, result string) {
	EgressPublishedTotal.WithLabelValues(sink, result).Inc()
}

func IncError(component, reason string) {
	ErrorsTotal.WithLabelValues(component, reason).Inc()
}

func SetQueueDepth(n int) {
	QueueDepth.Set(float64(n))
}

func SetLastIngest(source string, t time.Time) {
	LastIngestTimestamp.WithLabelValues(source).Set(float64(t.Unix()))
}
