package middleware

import (
	"fmt"

	"github.com/gin-gonic/gin"

	"github.com/vyrodovalexey/apigate/internal/observability"
)

// PanicError wraps a value recovered from a panicking handler.
type PanicError struct {
	Value interface{}
}

// Error implements the error interface.
func (e *PanicError) Error() string {
	return fmt.Sprintf("panic: %v", e.Value)
}

// Recovery returns a middleware that turns handler panics into 500
// responses through reporter. The reporter logs the stack.
func Recovery(reporter *ErrorReporter) gin.HandlerFunc {
	if reporter == nil {
		reporter = NewErrorReporter(nil, false)
	}

	return func(c *gin.Context) {
		defer func() {
			if recovered := recover(); recovered != nil {
				reporter.Report(c, &PanicError{Value: recovered},
					observability.String("action", actionRequestFailed),
				)
			}
		}()

		c.Next()
	}
}
