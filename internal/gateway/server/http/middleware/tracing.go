package middleware

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	"github.com/vyrodovalexey/apigate/internal/observability"
)

// AttrCorrelationID is the span attribute carrying the X-Trace-ID value.
const AttrCorrelationID = "trace.correlation_id"

// TracingConfig holds configuration for the tracing middleware.
type TracingConfig struct {
	Tracer      *observability.Tracer
	Propagators propagation.TextMapPropagator
}

// Tracing returns a middleware that opens an OpenTelemetry server span per
// request. It must run after TraceContext so the span can carry the
// correlation id.
func Tracing(tracer *observability.Tracer) gin.HandlerFunc {
	return TracingWithConfig(TracingConfig{Tracer: tracer})
}

// TracingWithConfig returns a tracing middleware with custom configuration.
func TracingWithConfig(config TracingConfig) gin.HandlerFunc {
	if config.Propagators == nil {
		config.Propagators = otel.GetTextMapPropagator()
	}

	return func(c *gin.Context) {
		if config.Tracer == nil || !config.Tracer.Enabled() {
			c.Next()
			return
		}

		ctx := config.Propagators.Extract(c.Request.Context(), propagation.HeaderCarrier(c.Request.Header))

		spanName := c.Request.Method + " " + routeOf(c)
		ctx, span := config.Tracer.StartSpan(ctx, spanName, trace.WithSpanKind(trace.SpanKindServer))

		span.SetAttributes(
			attribute.String("http.request.method", c.Request.Method),
			attribute.String("url.path", c.Request.URL.Path),
			attribute.String("client.address", c.ClientIP()),
			attribute.String("user_agent.original", c.Request.UserAgent()),
		)
		if traceID := GetTraceID(c); traceID != "" {
			span.SetAttributes(attribute.String(AttrCorrelationID, traceID))
		}

		c.Set(SpanKey, span)
		c.Request = c.Request.WithContext(ctx)

		defer func() {
			if recovered := recover(); recovered != nil {
				span.RecordError(fmt.Errorf("panic: %v", recovered))
				span.SetStatus(codes.Error, "panic")
				span.End()
				panic(recovered)
			}

			status := c.Writer.Status()
			span.SetAttributes(attribute.Int("http.response.status_code", status))
			if len(c.Errors) > 0 {
				span.RecordError(c.Errors.Last().Err)
			}
			if status >= http.StatusInternalServerError {
				span.SetStatus(codes.Error, http.StatusText(status))
			}
			span.End()
		}()

		c.Next()
	}
}

// GetSpan returns the request's server span, or nil when tracing is off.
func GetSpan(c *gin.Context) trace.Span {
	if span, exists := c.Get(SpanKey); exists {
		if s, ok := span.(trace.Span); ok {
			return s
		}
	}
	return nil
}

// routeOf returns the matched route pattern, falling back to the raw path
// for unmatched requests.
func routeOf(c *gin.Context) string {
	if route := c.FullPath(); route != "" {
		return route
	}
	return c.Request.URL.Path
}
