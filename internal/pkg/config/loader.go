package config

import (
	"fmt"
	"os"
	"time"
)

// ConfigLoadResult represents the result of loading one configuration value.
// It carries the loaded value, any warnings generated during loading, and a
// flag indicating whether the default was substituted for a bad input.
//
// Every loader in this package is fail-open: a malformed or out-of-range
// environment value never aborts startup. The pipeline comes up on its
// defaults and the operator learns about the bad value from the warning,
// not from a crash loop.
//
// Fields:
//   - Value: The loaded configuration value (the default if validation failed)
//   - Warnings: List of warning messages (one per fallback applied)
//   - FallbackApplied: True if the default value was used due to a bad input
//
// Example:
//
//	result := LoadEnvDuration("FETCH_TIMEOUT_SECONDS", 30*time.Second, ValidatePositiveDuration)
//	if result.FallbackApplied {
//	    for _, warning := range result.Warnings {
//	        slog.Warn("configuration fallback", slog.String("warning", warning))
//	    }
//	}
//	timeout := result.Value.(time.Duration)
type ConfigLoadResult struct {
	Value           interface{}
	Warnings        []string
	FallbackApplied bool
}

// LoadEnvWithFallback loads a string value from an environment variable
// with validation and automatic fallback to the default on failure.
//
// Loading behavior:
//  1. Read environment variable
//  2. If not set or empty: use the default (no warning)
//  3. If set: validate using the provided validator
//  4. If validation fails: use the default and generate a warning
//
// Parameters:
//   - envKey: Environment variable name to read
//   - defaultValue: Value to use if the variable is unset or invalid
//   - validator: Validation function (nil skips validation)
//
// Example:
//
//	result := LoadEnvWithFallback(
//	    "EXTRACTION_ENGINE",
//	    "trafilatura",
//	    func(v string) error { return ValidateOneOf(v, "trafilatura", "readability", "none") },
//	)
//	engine := result.Value.(string)
//
// Warning format:
//
//	"Invalid {envKey}='{value}': {error}, falling back to default '{default}'"
func LoadEnvWithFallback(envKey, defaultValue string, validator func(string) error) ConfigLoadResult {
	value := os.Getenv(envKey)

	if value == "" {
		return ConfigLoadResult{
			Value:           defaultValue,
			Warnings:        nil,
			FallbackApplied: false,
		}
	}

	if validator != nil {
		if err := validator(value); err != nil {
			warning := fmt.Sprintf(
				"Invalid %s='%s': %v, falling back to default '%s'",
				envKey,
				value,
				err,
				defaultValue,
			)
			return ConfigLoadResult{
				Value:           defaultValue,
				Warnings:        []string{warning},
				FallbackApplied: true,
			}
		}
	}

	return ConfigLoadResult{
		Value:           value,
		Warnings:        nil,
		FallbackApplied: false,
	}
}

// LoadEnvDuration loads a duration value from an environment variable with
// parsing, validation, and automatic fallback to the default on failure.
//
// Loading behavior:
//  1. Read environment variable
//  2. If not set or empty: use the default (no warning)
//  3. If set: parse using time.ParseDuration ("30s", "5m", "1h30m", ...)
//  4. If parsing fails: use the default and generate a warning
//  5. If parsing succeeds: validate using the provided validator
//  6. If validation fails: use the default and generate a warning
//
// Example:
//
//	result := LoadEnvDuration(
//	    "SCHEDULER_TICK_SECONDS",
//	    10*time.Second,
//	    ValidatePositiveDuration,
//	)
//	tick := result.Value.(time.Duration)
//
// Used for the fetch timeout, scheduler tick, default feed interval, and
// shutdown drain bound.
func LoadEnvDuration(envKey string, defaultValue time.Duration, validator func(time.Duration) error) ConfigLoadResult {
	valueStr := os.Getenv(envKey)

	if valueStr == "" {
		return ConfigLoadResult{
			Value:           defaultValue,
			Warnings:        nil,
			FallbackApplied: false,
		}
	}

	parsedDuration, err := time.ParseDuration(valueStr)
	if err != nil {
		warning := fmt.Sprintf(
			"Invalid %s='%s': %v, falling back to default '%v'",
			envKey,
			valueStr,
			err,
			defaultValue,
		)
		return ConfigLoadResult{
			Value:           defaultValue,
			Warnings:        []string{warning},
			FallbackApplied: true,
		}
	}

	if validator != nil {
		if err := validator(parsedDuration); err != nil {
			warning := fmt.Sprintf(
				"Invalid %s='%s': %v, falling back to default '%v'",
				envKey,
				valueStr,
				err,
				defaultValue,
			)
			return ConfigLoadResult{
				Value:           defaultValue,
				Warnings:        []string{warning},
				FallbackApplied: true,
			}
		}
	}

	return ConfigLoadResult{
		Value:           parsedDuration,
		Warnings:        nil,
		FallbackApplied: false,
	}
}

// LoadEnvInt loads an integer value from an environment variable with
// parsing, validation, and automatic fallback to the default on failure.
//
// Loading behavior:
//  1. Read environment variable
//  2. If not set or empty: use the default (no warning)
//  3. If set: parse as an integer
//  4. If parsing fails: use the default and generate a warning
//  5. If parsing succeeds: validate using the provided validator
//  6. If validation fails: use the default and generate a warning
//
// Example:
//
//	result := LoadEnvInt(
//	    "SCHEDULER_BATCH_SIZE",
//	    25,
//	    func(v int) error { return ValidateIntRange(v, 1, 1000) },
//	)
//	batch := result.Value.(int)
//
// Used for the global and per-host concurrency caps and the scheduler batch
// size, each with a range validator.
func LoadEnvInt(envKey string, defaultValue int, validator func(int) error) ConfigLoadResult {
	valueStr := os.Getenv(envKey)

	if valueStr == "" {
		return ConfigLoadResult{
			Value:           defaultValue,
			Warnings:        nil,
			FallbackApplied: false,
		}
	}

	var parsedInt int
	_, err := fmt.Sscanf(valueStr, "%d", &parsedInt)
	if err != nil {
		warning := fmt.Sprintf(
			"Invalid %s='%s': invalid integer format, falling back to default '%d'",
			envKey,
			valueStr,
			defaultValue,
		)
		return ConfigLoadResult{
			Value:           defaultValue,
			Warnings:        []string{warning},
			FallbackApplied: true,
		}
	}

	if validator != nil {
		if err := validator(parsedInt); err != nil {
			warning := fmt.Sprintf(
				"Invalid %s='%s': %v, falling back to default '%d'",
				envKey,
				valueStr,
				err,
				defaultValue,
			)
			return ConfigLoadResult{
				Value:           defaultValue,
				Warnings:        []string{warning},
				FallbackApplied: true,
			}
		}
	}

	return ConfigLoadResult{
		Value:           parsedInt,
		Warnings:        nil,
		FallbackApplied: false,
	}
}
