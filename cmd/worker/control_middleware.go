package main

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	httphandler "feedpipe/internal/handler/http"
	"feedpipe/internal/handler/http/middleware"
	"feedpipe/internal/handler/http/requestid"
	"feedpipe/internal/observability/tracing"
	pkgconfig "feedpipe/pkg/config"
	"feedpipe/pkg/ratelimit"
)

// controlRequestTimeout bounds how long a single control-plane request may
// run before the timeout middleware aborts it with 504.
const controlRequestTimeout = 10 * time.Second

// wireControlMiddleware wraps the control-plane mux with the same ambient
// stack the rest of this codebase applies to inbound HTTP: request-id
// propagation, structured request logging, panic recovery, tracing,
// input-size validation, and an IP-keyed rate limiter guarding the control
// surface from accidental or abusive flooding (there is no per-user
// concept here, since the pipeline has no multi-tenant auth, so only the IP
// limiter applies).
func wireControlMiddleware(ctx context.Context, mux *http.ServeMux, logger *slog.Logger) http.Handler {
	rlConfig, err := pkgconfig.LoadRateLimitConfig()
	if err != nil {
		logger.Warn("control: rate limit config load failed, using defaults", slog.Any("error", err))
		rlConfig = ratelimit.DefaultConfig()
	}

	store := ratelimit.NewInMemoryRateLimitStore(ratelimit.InMemoryStoreConfig{MaxKeys: rlConfig.MaxActiveKeys})
	algorithm := ratelimit.NewSlidingWindowAlgorithm(&ratelimit.SystemClock{})
	metricsCollector := ratelimit.NewPrometheusMetrics()
	breaker := ratelimit.NewCircuitBreaker(ratelimit.CircuitBreakerConfig{
		FailureThreshold: rlConfig.CircuitBreakerFailureThreshold,
		RecoveryTimeout:  rlConfig.CircuitBreakerResetTimeout,
		Metrics:          metricsCollector,
	})

	ipLimiter := middleware.NewIPRateLimiter(
		middleware.IPRateLimiterConfig{
			Limit:   rlConfig.DefaultIPLimit,
			Window:  rlConfig.DefaultIPWindow,
			Enabled: rlConfig.Enabled,
		},
		&middleware.RemoteAddrExtractor{},
		store,
		algorithm,
		metricsCollector,
		breaker,
	)

	go httphandler.StartRateLimitCleanup(ctx, store, rlConfig.CleanupInterval, rlConfig.DefaultIPWindow, "ip")

	var handler http.Handler = mux
	handler = ipLimiter.Middleware()(handler)
	handler = httphandler.InputValidation()(handler)
	handler = httphandler.Timeout(controlRequestTimeout)(handler)
	handler = tracing.Middleware(handler)
	handler = httphandler.Recover(logger)(handler)
	handler = httphandler.Logging(logger)(handler)
	handler = requestid.Middleware(handler)

	return handler
}
