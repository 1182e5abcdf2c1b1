// Package tracing provides OpenTelemetry tracing integration.
//
// It exposes the process-wide tracer through GetTracer, and an HTTP
// Middleware that extracts W3C trace context from incoming request headers,
// starts one server span per request, and returns the trace ID in the
// X-Trace-Id response header. Spans go to whatever TracerProvider is
// registered with otel; this package configures no provider or exporter.
//
// Example usage:
//
//	import "feedpipe/internal/observability/tracing"
//
//	handler := tracing.Middleware(mux)
//
//	func processRequest(ctx context.Context) {
//	    ctx, span := tracing.GetTracer().Start(ctx, "process-request")
//	    defer span.End()
//	    // ... process request ...
//	}
package tracing
