package middleware

import (
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"

	"github.com/vyrodovalexey/apigate/internal/observability"
	"github.com/vyrodovalexey/apigate/internal/util"
)

func reportingRouter(reporter *ErrorReporter, err error) *gin.Engine {
	router := gin.New()
	router.Use(TraceContext(nil))
	router.GET("/x", func(c *gin.Context) {
		reporter.Report(c, err)
	})
	return router
}

func TestErrorReporter_StatusAndBody(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		err         error
		wantStatus  int
		wantError   string
		wantMessage string
	}{
		{
			name:        "rate limited",
			err:         util.NewRateLimitError(5, 90*time.Second),
			wantStatus:  http.StatusTooManyRequests,
			wantError:   "Too Many Requests",
			wantMessage: "Rate limit exceeded. Try again in 90s.",
		},
		{
			name:        "configuration fault",
			err:         util.NewConfigError("auth.secret", "missing"),
			wantStatus:  http.StatusInternalServerError,
			wantError:   "Internal Server Error",
			wantMessage: "An unexpected error occurred",
		},
		{
			name:        "unclassified",
			err:         errors.New("database exploded"),
			wantStatus:  http.StatusInternalServerError,
			wantError:   "Internal Server Error",
			wantMessage: "An unexpected error occurred",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			w := doRequest(reportingRouter(NewErrorReporter(nil, false), tt.err), http.MethodGet, "/x", "", nil)

			require.Equal(t, tt.wantStatus, w.Code)
			body := decodeBody(t, w.Body.Bytes())
			assert.Equal(t, tt.wantError, body["error"])
			assert.Equal(t, tt.wantMessage, body["message"])
			assert.NotContains(t, body, "details")
			assert.NotEmpty(t, w.Header().Get(observability.TraceIDHeader))
		})
	}
}

func TestErrorReporter_LogLevels(t *testing.T) {
	t.Parallel()

	logger, logs := observedLogger()
	reporter := NewErrorReporter(logger, false)

	doRequest(reportingRouter(reporter, util.NewRateLimitError(1, time.Second)), http.MethodGet, "/x", "", nil)
	doRequest(reportingRouter(reporter, errors.New("boom")), http.MethodGet, "/x", "", nil)

	warn := logs.FilterMessage("request rejected").All()
	require.Len(t, warn, 1)
	assert.Equal(t, zapcore.WarnLevel, warn[0].Level)
	assert.NotContains(t, warn[0].ContextMap(), "stack")

	errs := logs.FilterMessage("request failed").All()
	require.Len(t, errs, 1)
	assert.Equal(t, zapcore.ErrorLevel, errs[0].Level)
	assert.Contains(t, errs[0].ContextMap(), "stack")
	assert.Equal(t, "boom", errs[0].ContextMap()["error"])
	assert.NotEmpty(t, errs[0].ContextMap()["trace_id"])
}

func TestErrorReporter_Development(t *testing.T) {
	t.Parallel()

	reporter := NewErrorReporter(nil, true)
	assert.True(t, reporter.Development())

	w := doRequest(reportingRouter(reporter, errors.New("disk full")), http.MethodGet, "/x", "", nil)
	require.Equal(t, http.StatusInternalServerError, w.Code)

	body := decodeBody(t, w.Body.Bytes())
	assert.Equal(t, "An unexpected error occurred", body["message"])
	assert.Equal(t, "disk full", body["details"])
}

func TestRecovery(t *testing.T) {
	t.Parallel()

	logger, logs := observedLogger()
	router := gin.New()
	router.Use(Recovery(NewErrorReporter(logger, false)))
	router.Use(TraceContext(logger))
	router.GET("/panic", func(c *gin.Context) {
		panic("kaboom")
	})

	w := doRequest(router, http.MethodGet, "/panic", "", map[string]string{
		observability.TraceIDHeader: "panic-trace",
	})

	require.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "panic-trace", w.Header().Get(observability.TraceIDHeader))

	body := decodeBody(t, w.Body.Bytes())
	assert.Equal(t, "An unexpected error occurred", body["message"])

	entries := logs.FilterMessage("request failed").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "panic: kaboom", entries[0].ContextMap()["error"])
	assert.Equal(t, "panic-trace", entries[0].ContextMap()["trace_id"])
	assert.Contains(t, entries[0].ContextMap(), "stack")
	assert.Equal(t, actionRequestFailed, entries[0].ContextMap()["action"])
}

func TestRecovery_NoPanic(t *testing.T) {
	t.Parallel()

	router := gin.New()
	router.Use(Recovery(nil))
	router.GET("/x", okHandler)

	w := doRequest(router, http.MethodGet, "/x", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestPanicError(t *testing.T) {
	t.Parallel()

	err := &PanicError{Value: 42}
	assert.Equal(t, "panic: 42", err.Error())
	assert.Equal(t, http.StatusInternalServerError, util.StatusCode(err))
}
