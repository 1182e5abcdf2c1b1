// Package config holds environment-driven configuration for the feed
// pipeline, loaded with the fail-open loader in internal/pkg/config.
package config

import (
	"time"

	pkgconfig "feedpipe/internal/pkg/config"
)

// PipelineConfig holds every tunable named in the fetch pipeline's
// configuration surface. Every field has a default that keeps the pipeline
// operable even when no environment variables are set.
type PipelineConfig struct {
	// FetchDefaultInterval is assigned to newly created feeds lacking an
	// explicit interval.
	FetchDefaultInterval time.Duration

	// FetchConcurrency bounds the number of in-flight HTTP requests across
	// all feeds, and sizes the consumer pool (min(FetchConcurrency, 5)).
	FetchConcurrency int

	// PerHostConcurrency bounds concurrent in-flight requests to a single
	// origin host.
	PerHostConcurrency int

	// FetchTimeout is the hard deadline applied to every outbound HTTP
	// request, feed or article.
	FetchTimeout time.Duration

	// SchedulerTick is the period between scheduler ticks.
	SchedulerTick time.Duration

	// SchedulerBatchSize bounds how many due feeds one tick promotes.
	SchedulerBatchSize int

	// ExtractionEngine selects the content extractor: "trafilatura",
	// "readability", or "none".
	ExtractionEngine string

	// ShutdownDrain bounds how long graceful shutdown waits for in-flight
	// consumer jobs before abandoning them.
	ShutdownDrain time.Duration
}

// DefaultPipelineConfig returns the configuration surface's defaults,
// exactly the values named in the pipeline's configuration table.
func DefaultPipelineConfig() PipelineConfig {
	return PipelineConfig{
		FetchDefaultInterval: 900 * time.Second,
		FetchConcurrency:     10,
		PerHostConcurrency:   2,
		FetchTimeout:         30 * time.Second,
		SchedulerTick:        10 * time.Second,
		SchedulerBatchSize:   25,
		ExtractionEngine:     "trafilatura",
		ShutdownDrain:        30 * time.Second,
	}
}

// loadMetrics instruments every LoadPipelineConfig call: load timestamp,
// per-field validation errors and fallbacks, and whether any fallback is
// currently active. Registered once at package init since promauto panics on
// re-registration.
var loadMetrics = pkgconfig.NewConfigMetrics("pipeline")

// LoadPipelineConfig loads the pipeline configuration from the environment,
// falling back to defaults (with a warning) on any parse or validation
// failure, following this project's fail-open loader convention. Each
// fallback is also recorded to the pipeline_config_* Prometheus metrics so
// an operator can alert on a worker running on defaults it did not intend.
func LoadPipelineConfig() (PipelineConfig, []string) {
	cfg := DefaultPipelineConfig()
	var warnings []string

	collect := func(field string, r pkgconfig.ConfigLoadResult) {
		warnings = append(warnings, r.Warnings...)
		if r.FallbackApplied {
			loadMetrics.RecordValidationError(field)
			loadMetrics.RecordFallback(field, "default")
		}
	}

	durResult := pkgconfig.LoadEnvDuration("FETCH_DEFAULT_INTERVAL", cfg.FetchDefaultInterval, func(d time.Duration) error {
		return pkgconfig.ValidateDuration(d, 60*time.Second, 24*time.Hour)
	})
	collect("fetch_default_interval", durResult)
	cfg.FetchDefaultInterval = durResult.Value.(time.Duration)

	intResult := pkgconfig.LoadEnvInt("FETCH_CONCURRENCY", cfg.FetchConcurrency, func(v int) error {
		return pkgconfig.ValidateIntRange(v, 1, 200)
	})
	collect("fetch_concurrency", intResult)
	cfg.FetchConcurrency = intResult.Value.(int)

	intResult = pkgconfig.LoadEnvInt("PER_HOST_CONCURRENCY", cfg.PerHostConcurrency, func(v int) error {
		return pkgconfig.ValidateIntRange(v, 1, 50)
	})
	collect("per_host_concurrency", intResult)
	cfg.PerHostConcurrency = intResult.Value.(int)

	durResult = pkgconfig.LoadEnvDuration("FETCH_TIMEOUT_SECONDS", cfg.FetchTimeout, pkgconfig.ValidatePositiveDuration)
	collect("fetch_timeout_seconds", durResult)
	cfg.FetchTimeout = durResult.Value.(time.Duration)

	durResult = pkgconfig.LoadEnvDuration("SCHEDULER_TICK_SECONDS", cfg.SchedulerTick, pkgconfig.ValidatePositiveDuration)
	collect("scheduler_tick_seconds", durResult)
	cfg.SchedulerTick = durResult.Value.(time.Duration)

	intResult = pkgconfig.LoadEnvInt("SCHEDULER_BATCH_SIZE", cfg.SchedulerBatchSize, func(v int) error {
		return pkgconfig.ValidateIntRange(v, 1, 1000)
	})
	collect("scheduler_batch_size", intResult)
	cfg.SchedulerBatchSize = intResult.Value.(int)

	strResult := pkgconfig.LoadEnvWithFallback("EXTRACTION_ENGINE", cfg.ExtractionEngine, func(v string) error {
		return pkgconfig.ValidateOneOf(v, "trafilatura", "readability", "none")
	})
	collect("extraction_engine", strResult)
	cfg.ExtractionEngine = strResult.Value.(string)

	durResult = pkgconfig.LoadEnvDuration("SHUTDOWN_DRAIN_SECONDS", cfg.ShutdownDrain, pkgconfig.ValidatePositiveDuration)
	collect("shutdown_drain_seconds", durResult)
	cfg.ShutdownDrain = durResult.Value.(time.Duration)

	loadMetrics.RecordLoadTimestamp()
	loadMetrics.SetFallbackActive("any", len(warnings) > 0)

	return cfg, warnings
}

// ConsumerPoolSize returns the number of consumer workers, min(FetchConcurrency, 5)
// per the pipeline's consumer-pool sizing rule.
func (c PipelineConfig) ConsumerPoolSize() int {
	if c.FetchConcurrency < 5 {
		return c.FetchConcurrency
	}
	return 5
}
