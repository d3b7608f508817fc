// Package observability provides logging, metrics, and tracing
// functionality for the ingress pipeline.
//
// # Logging
//
// The Logger interface wraps zap. Every request runs inside a correlation
// scope carried by its context.Context; a logger obtained through
// LoggerFromContext or Logger.WithContext stamps each record with the
// scope's trace_id:
//
//	ctx = observability.ContextWithTraceID(ctx, observability.NewTraceID())
//	observability.LoggerFromContext(ctx).Info("ticket created")
//
// # Metrics
//
// Prometheus counters for requests, admission decisions and rejected
// credentials, exposed through Metrics.Handler.
//
// # Tracing
//
// OpenTelemetry spans exported over OTLP/gRPC when enabled; otherwise a
// no-op provider is used.
package observability
