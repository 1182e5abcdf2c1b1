package metrics

import "time"

// RecordSchedulerTick records one scheduler tick outcome and how many feeds
// it promoted to jobs.
func RecordSchedulerTick(ok bool, enqueued int) {
	outcome := "ok"
	if !ok {
		outcome = "error"
	}
	SchedulerTicksTotal.WithLabelValues(outcome).Inc()
	if enqueued > 0 {
		SchedulerEnqueuedTotal.Add(float64(enqueued))
	}
}

// UpdateQueueDepth reports the job bus's current pending count.
func UpdateQueueDepth(depth int64) {
	QueueDepth.Set(float64(depth))
}

// SetConsumerPoolActive reports how many consumer workers are mid-job.
func SetConsumerPoolActive(active int) {
	ConsumerPoolActive.Set(float64(active))
}

// RecordFetchOutcome records one feed fetch attempt and its duration.
// outcome is one of "not_modified", "ok", "transport_error", "http_status",
// "parse_error", "db_error".
func RecordFetchOutcome(outcome string, duration time.Duration) {
	FetchOutcomesTotal.WithLabelValues(outcome).Inc()
	FetchDuration.Observe(duration.Seconds())
}

// RecordItemsInserted adds count to the running total of persisted items.
func RecordItemsInserted(count int) {
	if count > 0 {
		ItemsInsertedTotal.Add(float64(count))
	}
}

// RecordContentExtract records one extraction attempt for the given engine.
// result is one of "success", "failure", "skipped".
func RecordContentExtract(engine, result string, duration time.Duration) {
	ContentExtractAttemptsTotal.WithLabelValues(engine, result).Inc()
	if result != "skipped" {
		ContentExtractDuration.Observe(duration.Seconds())
	}
}

// UpdateFeedsTotal updates the gauge tracking total feeds under management.
func UpdateFeedsTotal(count int) {
	FeedsTotal.Set(float64(count))
}

// UpdateItemsTotal updates the gauge tracking total items stored.
func UpdateItemsTotal(count int) {
	ItemsTotal.Set(float64(count))
}

// RecordDBQuery records the duration of a database query operation.
func RecordDBQuery(operation string, duration time.Duration) {
	DBQueryDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

// UpdateDBConnectionStats updates database connection pool statistics.
func UpdateDBConnectionStats(active, idle int) {
	DBConnectionsActive.Set(float64(active))
	DBConnectionsIdle.Set(float64(idle))
}
