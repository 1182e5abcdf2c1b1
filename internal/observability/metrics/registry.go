// Package metrics provides the pipeline's Prometheus metrics registry.
//
// This package owns the scheduler/queue/fetch/extract/storage metrics
// emitted by the pipeline itself. It defines no HTTP request metrics
// (request count, duration, size).
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Pipeline metrics track the scheduler/consumer/fetch/extract pipeline.
var (
	// FeedsTotal tracks the total number of feeds under management.
	FeedsTotal = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "feeds_total",
			Help: "Total number of feeds in the database",
		},
	)

	// ItemsTotal tracks the total number of items stored.
	ItemsTotal = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "items_total",
			Help: "Total number of items in the database",
		},
	)

	// SchedulerTicksTotal counts scheduler ticks by outcome.
	SchedulerTicksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scheduler_ticks_total",
			Help: "Total number of scheduler ticks",
		},
		[]string{"outcome"}, // outcome: ok, error
	)

	// SchedulerEnqueuedTotal counts feeds promoted to jobs by the scheduler.
	SchedulerEnqueuedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "scheduler_feeds_enqueued_total",
			Help: "Total number of feeds enqueued as fetch jobs",
		},
	)

	// QueueDepth tracks the number of jobs pending in the job bus.
	QueueDepth = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "job_queue_depth",
			Help: "Number of fetch jobs awaiting a consumer",
		},
	)

	// ConsumerPoolActive tracks how many consumer workers are mid-job.
	ConsumerPoolActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "consumer_pool_active",
			Help: "Number of consumer workers currently processing a job",
		},
	)

	// FetchOutcomesTotal counts feed fetch attempts by outcome.
	FetchOutcomesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fetch_outcomes_total",
			Help: "Total number of feed fetch attempts by outcome",
		},
		[]string{"outcome"}, // outcome: not_modified, ok, transport_error, http_status, parse_error, db_error
	)

	// FetchDuration measures the time to fetch and parse one feed.
	FetchDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "fetch_duration_seconds",
			Help:    "Time taken to fetch and parse a feed",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 10),
		},
	)

	// ItemsInsertedTotal counts items actually persisted by the normalizer.
	ItemsInsertedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "items_inserted_total",
			Help: "Total number of new items persisted across all feeds",
		},
	)

	// ContentExtractAttemptsTotal counts content-extraction attempts by result.
	ContentExtractAttemptsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "content_extract_attempts_total",
			Help: "Total number of content extraction attempts",
		},
		[]string{"engine", "result"}, // result: success, failure, skipped
	)

	// ContentExtractDuration measures time spent extracting one article.
	ContentExtractDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "content_extract_duration_seconds",
			Help:    "Time taken to extract article content",
			Buckets: []float64{0.1, 0.2, 0.4, 0.8, 1.6, 3.2, 6.4, 12.8},
		},
	)
)

// Database metrics track database performance
var (
	// DBQueryDuration measures database query duration
	DBQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "db_query_duration_seconds",
			Help:    "Database query duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 10),
		},
		[]string{"operation"},
	)

	// DBConnectionsActive tracks active database connections
	DBConnectionsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "db_connections_active",
			Help: "Number of active database connections",
		},
	)

	// DBConnectionsIdle tracks idle database connections
	DBConnectionsIdle = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "db_connections_idle",
			Help: "Number of idle database connections",
		},
	)
)

// RecordOperationDuration records the duration of a named operation
func RecordOperationDuration(operation string, duration time.Duration) {
	DBQueryDuration.WithLabelValues(operation).Observe(duration.Seconds())
}
