package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/vyrodovalexey/apigate/internal/observability"
)

// TraceContextConfig holds configuration for the trace context middleware.
type TraceContextConfig struct {
	// Logger is bound to the trace id and stored in the request context.
	Logger observability.Logger

	// Generator mints ids for requests arriving without one.
	Generator func() string
}

// TraceContext returns a middleware that opens a correlation scope for the
// request.
func TraceContext(logger observability.Logger) gin.HandlerFunc {
	return TraceContextWithConfig(TraceContextConfig{Logger: logger})
}

// TraceContextWithConfig returns a trace context middleware with custom
// configuration.
//
// A non-empty inbound X-Trace-ID is reused verbatim, otherwise a fresh UUID
// is minted. The id is echoed on the response before any downstream
// handler runs, so rejections and failures carry it too. The request
// context gains the id and a logger that stamps it on every record.
func TraceContextWithConfig(config TraceContextConfig) gin.HandlerFunc {
	if config.Logger == nil {
		config.Logger = observability.NopLogger()
	}
	if config.Generator == nil {
		config.Generator = observability.NewTraceID
	}

	return func(c *gin.Context) {
		traceID := c.GetHeader(observability.TraceIDHeader)
		if traceID == "" {
			traceID = config.Generator()
		}

		c.Set(TraceIDKey, traceID)
		c.Header(observability.TraceIDHeader, traceID)

		ctx := observability.ContextWithTraceID(c.Request.Context(), traceID)
		ctx = observability.ContextWithLogger(ctx, config.Logger.WithContext(ctx))
		c.Request = c.Request.WithContext(ctx)

		c.Next()
	}
}

// GetTraceID returns the correlation id of the request, or "" when the
// trace context middleware did not run.
func GetTraceID(c *gin.Context) string {
	if traceID, ok := c.Get(TraceIDKey); ok {
		if s, ok := traceID.(string); ok {
			return s
		}
	}
	return ""
}
