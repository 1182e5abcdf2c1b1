// Package metrics provides the pipeline's Prometheus metrics registry.
//
// This package centralizes the fetch pipeline's own metrics:
//   - Scheduler tick and enqueue counts
//   - Job queue depth and consumer pool utilization
//   - Fetch outcome counts and durations
//   - Content extraction attempts and durations
//   - Database query performance
//
// All metrics are automatically registered with the Prometheus default registry
// and exposed via the /metrics endpoint.
//
// Example usage:
//
//	import "feedpipe/internal/observability/metrics"
//
//	func runTick(due []*entity.Feed) {
//	    start := time.Now()
//	    // ... enqueue due feeds ...
//	    metrics.RecordSchedulerTick(true, len(due))
//	    metrics.RecordOperationDuration("scheduler_tick", time.Since(start))
//	}
package metrics
