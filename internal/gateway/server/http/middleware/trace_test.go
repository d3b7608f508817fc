package middleware

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vyrodovalexey/apigate/internal/observability"
)

func TestTraceContext_ReusesInboundID(t *testing.T) {
	t.Parallel()

	var seen string
	router := gin.New()
	router.Use(TraceContext(nil))
	router.GET("/x", func(c *gin.Context) {
		seen = observability.TraceIDFromContext(c.Request.Context())
		c.Status(http.StatusNoContent)
	})

	w := doRequest(router, http.MethodGet, "/x", "", map[string]string{
		observability.TraceIDHeader: "abc-123",
	})

	assert.Equal(t, "abc-123", w.Header().Get(observability.TraceIDHeader))
	assert.Equal(t, "abc-123", seen)
}

func TestTraceContext_MintsUUIDWhenAbsent(t *testing.T) {
	t.Parallel()

	var seen string
	router := gin.New()
	router.Use(TraceContext(nil))
	router.GET("/x", func(c *gin.Context) {
		seen = GetTraceID(c)
		c.Status(http.StatusNoContent)
	})

	w := doRequest(router, http.MethodGet, "/x", "", nil)

	echoed := w.Header().Get(observability.TraceIDHeader)
	parsed, err := uuid.Parse(echoed)
	require.NoError(t, err)
	assert.Equal(t, uuid.Version(4), parsed.Version())
	assert.Equal(t, echoed, seen)

	second := doRequest(router, http.MethodGet, "/x", "", nil)
	assert.NotEqual(t, echoed, second.Header().Get(observability.TraceIDHeader))
}

func TestTraceContext_CustomGenerator(t *testing.T) {
	t.Parallel()

	router := gin.New()
	router.Use(TraceContextWithConfig(TraceContextConfig{
		Generator: func() string { return "fixed" },
	}))
	router.GET("/x", okHandler)

	w := doRequest(router, http.MethodGet, "/x", "", nil)
	assert.Equal(t, "fixed", w.Header().Get(observability.TraceIDHeader))
}

func TestTraceContext_EchoedOnAbortedResponses(t *testing.T) {
	t.Parallel()

	router := gin.New()
	router.Use(TraceContext(nil))
	router.Use(func(c *gin.Context) {
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Forbidden"})
	})
	router.GET("/x", okHandler)

	w := doRequest(router, http.MethodGet, "/x", "", map[string]string{
		observability.TraceIDHeader: "keep-me",
	})
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "keep-me", w.Header().Get(observability.TraceIDHeader))
}

func TestTraceContext_LoggerCarriesTraceID(t *testing.T) {
	t.Parallel()

	logger, logs := observedLogger()
	router := gin.New()
	router.Use(TraceContext(logger))
	router.GET("/x", func(c *gin.Context) {
		observability.LoggerFromContext(c.Request.Context()).Info("handling")
		c.Status(http.StatusNoContent)
	})

	doRequest(router, http.MethodGet, "/x", "", map[string]string{
		observability.TraceIDHeader: "log-trace",
	})

	entries := logs.FilterMessage("handling").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "log-trace", entries[0].ContextMap()["trace_id"])
}

func TestTraceContext_SpawnedGoroutinesInheritID(t *testing.T) {
	t.Parallel()

	router := gin.New()
	router.Use(TraceContext(nil))
	router.GET("/x", func(c *gin.Context) {
		ctx := c.Request.Context()
		result := make(chan string, 1)
		go func(ctx context.Context) {
			result <- observability.TraceIDFromContext(ctx)
		}(ctx)
		c.String(http.StatusOK, <-result)
	})

	w := doRequest(router, http.MethodGet, "/x", "", map[string]string{
		observability.TraceIDHeader: "child-sees-me",
	})
	assert.Equal(t, "child-sees-me", w.Body.String())
}

func TestTraceContext_ConcurrentRequestsAreIsolated(t *testing.T) {
	t.Parallel()

	router := gin.New()
	router.Use(TraceContext(nil))
	router.GET("/x", func(c *gin.Context) {
		c.String(http.StatusOK, observability.TraceIDFromContext(c.Request.Context()))
	})

	const n = 100
	var wg sync.WaitGroup
	mismatches := make(chan string, n)

	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id := fmt.Sprintf("req-%d", i)
			w := doRequest(router, http.MethodGet, "/x", "", map[string]string{
				observability.TraceIDHeader: id,
			})
			if w.Body.String() != id || w.Header().Get(observability.TraceIDHeader) != id {
				mismatches <- id
			}
		}(i)
	}
	wg.Wait()
	close(mismatches)

	var failed []string
	for id := range mismatches {
		failed = append(failed, id)
	}
	assert.Empty(t, failed)
}

func TestGetTraceID_WithoutMiddleware(t *testing.T) {
	t.Parallel()

	router := gin.New()
	router.GET("/x", func(c *gin.Context) {
		c.String(http.StatusOK, "[%s]", GetTraceID(c))
	})

	w := doRequest(router, http.MethodGet, "/x", "", nil)
	assert.Equal(t, "[]", w.Body.String())
}
