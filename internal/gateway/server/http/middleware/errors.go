package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/vyrodovalexey/apigate/internal/observability"
	"github.com/vyrodovalexey/apigate/internal/util"
)

// ErrorReporter turns errors into JSON responses and log records. Client
// errors are logged at warn level without a stack; server errors at error
// level with one.
type ErrorReporter struct {
	logger      observability.Logger
	development bool
}

// NewErrorReporter creates an ErrorReporter. In development mode responses
// also carry the error text under "details".
func NewErrorReporter(logger observability.Logger, development bool) *ErrorReporter {
	if logger == nil {
		logger = observability.NopLogger()
	}
	return &ErrorReporter{
		logger:      logger,
		development: development,
	}
}

// Report aborts the request with a response derived from err.
func (r *ErrorReporter) Report(c *gin.Context, err error, fields ...observability.Field) {
	status := util.StatusCode(err)
	logger := r.logger.WithContext(c.Request.Context())

	logFields := append([]observability.Field{
		observability.String("client_ip", c.ClientIP()),
		observability.String("method", c.Request.Method),
		observability.String("path", c.Request.URL.Path),
		observability.Int("status", status),
		observability.Error(err),
	}, fields...)

	if status >= http.StatusInternalServerError {
		logFields = append(logFields, observability.Stack("stack"))
		logger.Error("request failed", logFields...)
	} else {
		logger.Warn("request rejected", logFields...)
	}

	body := gin.H{
		"error":   http.StatusText(status),
		"message": util.PublicMessage(err),
	}
	if r.development {
		body["details"] = err.Error()
	}

	_ = c.Error(err)
	c.AbortWithStatusJSON(status, body)
}

// Development reports whether responses include error details.
func (r *ErrorReporter) Development() bool {
	return r.development
}
