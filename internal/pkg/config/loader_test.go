package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

// ============================================================================
// Test Group 1: LoadEnvWithFallback - Basic Loading
// ============================================================================

func engineValidator(v string) error {
	return ValidateOneOf(v, "trafilatura", "readability", "none")
}

func TestLoadEnvWithFallback_WithValidValue(t *testing.T) {
	t.Setenv("TEST_ENGINE", "readability")

	result := LoadEnvWithFallback("TEST_ENGINE", "trafilatura", engineValidator)

	assert.Equal(t, "readability", result.Value)
	assert.Empty(t, result.Warnings)
	assert.False(t, result.FallbackApplied)
}

func TestLoadEnvWithFallback_WithoutValue(t *testing.T) {
	// Don't set TEST_ENGINE

	result := LoadEnvWithFallback("TEST_ENGINE", "trafilatura", engineValidator)

	assert.Equal(t, "trafilatura", result.Value)
	assert.Empty(t, result.Warnings)
	assert.False(t, result.FallbackApplied)
}

func TestLoadEnvWithFallback_EmptyValue(t *testing.T) {
	t.Setenv("TEST_ENGINE", "")

	result := LoadEnvWithFallback("TEST_ENGINE", "trafilatura", engineValidator)

	// Empty string should use default without a warning
	assert.Equal(t, "trafilatura", result.Value)
	assert.Empty(t, result.Warnings)
	assert.False(t, result.FallbackApplied)
}

func TestLoadEnvWithFallback_NoValidator(t *testing.T) {
	t.Setenv("TEST_ENGINE", "anything-goes")

	result := LoadEnvWithFallback("TEST_ENGINE", "trafilatura", nil)

	assert.Equal(t, "anything-goes", result.Value)
	assert.False(t, result.FallbackApplied)
}

// ============================================================================
// Test Group 2: LoadEnvWithFallback - Validation Failure and Fallback
// ============================================================================

func TestLoadEnvWithFallback_InvalidEngine(t *testing.T) {
	t.Setenv("TEST_ENGINE", "boilerpipe")

	result := LoadEnvWithFallback("TEST_ENGINE", "trafilatura", engineValidator)

	// Should fall back to default
	assert.Equal(t, "trafilatura", result.Value)
	assert.True(t, result.FallbackApplied)

	// Check warning message
	assert.Len(t, result.Warnings, 1)
	assert.Contains(t, result.Warnings[0], "Invalid TEST_ENGINE='boilerpipe'")
	assert.Contains(t, result.Warnings[0], "falling back to default 'trafilatura'")
}

// ============================================================================
// Test Group 3: LoadEnvDuration
// ============================================================================

func TestLoadEnvDuration_WithValidValue(t *testing.T) {
	t.Setenv("TEST_TIMEOUT", "45s")

	result := LoadEnvDuration("TEST_TIMEOUT", 30*time.Second, ValidatePositiveDuration)

	assert.Equal(t, 45*time.Second, result.Value)
	assert.Empty(t, result.Warnings)
	assert.False(t, result.FallbackApplied)
}

func TestLoadEnvDuration_WithoutValue(t *testing.T) {
	result := LoadEnvDuration("TEST_TIMEOUT", 30*time.Second, ValidatePositiveDuration)

	assert.Equal(t, 30*time.Second, result.Value)
	assert.False(t, result.FallbackApplied)
}

func TestLoadEnvDuration_InvalidFormat(t *testing.T) {
	t.Setenv("TEST_TIMEOUT", "not-a-duration")

	result := LoadEnvDuration("TEST_TIMEOUT", 30*time.Second, ValidatePositiveDuration)

	assert.Equal(t, 30*time.Second, result.Value)
	assert.True(t, result.FallbackApplied)
	assert.Len(t, result.Warnings, 1)
	assert.Contains(t, result.Warnings[0], "Invalid TEST_TIMEOUT='not-a-duration'")
}

func TestLoadEnvDuration_NegativeDuration(t *testing.T) {
	t.Setenv("TEST_TIMEOUT", "-5m")

	result := LoadEnvDuration("TEST_TIMEOUT", 30*time.Second, ValidatePositiveDuration)

	// Parses fine but fails validation
	assert.Equal(t, 30*time.Second, result.Value)
	assert.True(t, result.FallbackApplied)
}

func TestLoadEnvDuration_WithRangeValidator(t *testing.T) {
	t.Setenv("TEST_INTERVAL", "10s")

	validator := func(d time.Duration) error {
		return ValidateDuration(d, 60*time.Second, 24*time.Hour)
	}
	result := LoadEnvDuration("TEST_INTERVAL", 900*time.Second, validator)

	// 10s is below the 60s floor
	assert.Equal(t, 900*time.Second, result.Value)
	assert.True(t, result.FallbackApplied)
}

func TestLoadEnvDuration_CompoundDuration(t *testing.T) {
	t.Setenv("TEST_INTERVAL", "1h30m")

	result := LoadEnvDuration("TEST_INTERVAL", 900*time.Second, nil)

	assert.Equal(t, 90*time.Minute, result.Value)
	assert.False(t, result.FallbackApplied)
}

// ============================================================================
// Test Group 4: LoadEnvInt
// ============================================================================

func TestLoadEnvInt_WithValidValue(t *testing.T) {
	t.Setenv("TEST_BATCH", "50")

	validator := func(v int) error { return ValidateIntRange(v, 1, 1000) }
	result := LoadEnvInt("TEST_BATCH", 25, validator)

	assert.Equal(t, 50, result.Value)
	assert.Empty(t, result.Warnings)
	assert.False(t, result.FallbackApplied)
}

func TestLoadEnvInt_WithoutValue(t *testing.T) {
	result := LoadEnvInt("TEST_BATCH", 25, nil)

	assert.Equal(t, 25, result.Value)
	assert.False(t, result.FallbackApplied)
}

func TestLoadEnvInt_InvalidFormat(t *testing.T) {
	t.Setenv("TEST_BATCH", "not-a-number")

	result := LoadEnvInt("TEST_BATCH", 25, nil)

	assert.Equal(t, 25, result.Value)
	assert.True(t, result.FallbackApplied)
	assert.Len(t, result.Warnings, 1)
	assert.Contains(t, result.Warnings[0], "invalid integer format")
}

func TestLoadEnvInt_BelowMinimum(t *testing.T) {
	t.Setenv("TEST_CONCURRENCY", "0")

	validator := func(v int) error { return ValidateIntRange(v, 1, 200) }
	result := LoadEnvInt("TEST_CONCURRENCY", 10, validator)

	assert.Equal(t, 10, result.Value)
	assert.True(t, result.FallbackApplied)
}

func TestLoadEnvInt_AboveMaximum(t *testing.T) {
	t.Setenv("TEST_CONCURRENCY", "10000")

	validator := func(v int) error { return ValidateIntRange(v, 1, 200) }
	result := LoadEnvInt("TEST_CONCURRENCY", 10, validator)

	assert.Equal(t, 10, result.Value)
	assert.True(t, result.FallbackApplied)
}

func TestLoadEnvInt_NegativeValue(t *testing.T) {
	t.Setenv("TEST_BATCH", "-5")

	result := LoadEnvInt("TEST_BATCH", 25, nil)

	// No validator: negative integers parse fine
	assert.Equal(t, -5, result.Value)
	assert.False(t, result.FallbackApplied)
}

// ============================================================================
// Test Group 5: Multiple Fallbacks Scenario
// ============================================================================

func TestMultipleFallbacks_Simulation(t *testing.T) {
	// Simulate one pipeline-config load where several values are bad
	t.Setenv("TEST_ENGINE", "invalid")
	t.Setenv("TEST_TIMEOUT", "-5m")
	t.Setenv("TEST_BATCH", "abc")

	var allWarnings []string
	fallbackCount := 0

	engineResult := LoadEnvWithFallback("TEST_ENGINE", "trafilatura", engineValidator)
	if engineResult.FallbackApplied {
		fallbackCount++
		allWarnings = append(allWarnings, engineResult.Warnings...)
	}

	timeoutResult := LoadEnvDuration("TEST_TIMEOUT", 30*time.Second, ValidatePositiveDuration)
	if timeoutResult.FallbackApplied {
		fallbackCount++
		allWarnings = append(allWarnings, timeoutResult.Warnings...)
	}

	batchResult := LoadEnvInt("TEST_BATCH", 25, nil)
	if batchResult.FallbackApplied {
		fallbackCount++
		allWarnings = append(allWarnings, batchResult.Warnings...)
	}

	assert.Equal(t, 3, fallbackCount)
	assert.Len(t, allWarnings, 3)

	// Every value landed on its default
	assert.Equal(t, "trafilatura", engineResult.Value)
	assert.Equal(t, 30*time.Second, timeoutResult.Value)
	assert.Equal(t, 25, batchResult.Value)
}

// ============================================================================
// Test Group 6: Type Assertion Verification
// ============================================================================

func TestConfigLoadResult_TypeAssertion_String(t *testing.T) {
	t.Setenv("TEST_ENGINE", "none")

	result := LoadEnvWithFallback("TEST_ENGINE", "trafilatura", nil)

	value, ok := result.Value.(string)
	assert.True(t, ok)
	assert.Equal(t, "none", value)
}

func TestConfigLoadResult_TypeAssertion_Duration(t *testing.T) {
	t.Setenv("TEST_TIMEOUT", "1h")

	result := LoadEnvDuration("TEST_TIMEOUT", 30*time.Minute, nil)

	value, ok := result.Value.(time.Duration)
	assert.True(t, ok)
	assert.Equal(t, 1*time.Hour, value)
}

func TestConfigLoadResult_TypeAssertion_Int(t *testing.T) {
	t.Setenv("TEST_BATCH", "80")

	result := LoadEnvInt("TEST_BATCH", 25, nil)

	value, ok := result.Value.(int)
	assert.True(t, ok)
	assert.Equal(t, 80, value)
}
