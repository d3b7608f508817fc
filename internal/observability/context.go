package observability

import (
	"context"

	"github.com/google/uuid"
)

// TraceIDHeader carries the correlation id in both directions.
const TraceIDHeader = "X-Trace-ID"

type contextKey string

const (
	traceIDKey contextKey = "trace_id"
	loggerKey  contextKey = "logger"
)

// NewTraceID mints a random (version 4) UUID.
func NewTraceID() string {
	return uuid.NewString()
}

// ContextWithTraceID opens a correlation scope on ctx. Every context derived
// from the result, including ones handed to goroutines, observes the same id;
// contexts of other requests never do.
func ContextWithTraceID(ctx context.Context, traceID string) context.Context {
	return context.WithValue(ctx, traceIDKey, traceID)
}

// TraceIDFromContext returns the id of the enclosing scope, or "" when ctx
// carries none.
func TraceIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if traceID, ok := ctx.Value(traceIDKey).(string); ok {
		return traceID
	}
	return ""
}

// ContextWithLogger stores a request-scoped logger in ctx.
func ContextWithLogger(ctx context.Context, logger Logger) context.Context {
	return context.WithValue(ctx, loggerKey, logger)
}

// LoggerFromContext returns the request-scoped logger if one was stored,
// otherwise the global logger bound to ctx's trace id.
func LoggerFromContext(ctx context.Context) Logger {
	if ctx != nil {
		if logger, ok := ctx.Value(loggerKey).(Logger); ok && logger != nil {
			return logger
		}
	}
	return L().WithContext(ctx)
}

// extractContextFields extracts logging fields from context.
func extractContextFields(ctx context.Context) []Field {
	if traceID := TraceIDFromContext(ctx); traceID != "" {
		return []Field{String("trace_id", traceID)}
	}
	return nil
}
