package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/vyrodovalexey/apigate/internal/observability"
)

// Metrics returns a middleware that records request counts, latency and
// in-flight requests. Requests are labelled by route pattern so raw paths
// cannot inflate cardinality.
func Metrics(metrics *observability.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		if metrics == nil {
			c.Next()
			return
		}

		start := time.Now()
		metrics.IncrementActiveRequests()
		defer metrics.DecrementActiveRequests()

		c.Next()

		metrics.RecordRequest(c.Request.Method, c.FullPath(), c.Writer.Status(), time.Since(start))
	}
}
