package health

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/vyrodovalexey/apigate/internal/observability"
)

// Status represents the health status.
type Status string

const (
	// StatusOK indicates the service is healthy.
	StatusOK Status = "ok"
	// StatusUnavailable indicates the service must not receive traffic.
	StatusUnavailable Status = "unavailable"
)

// DefaultCheckTimeout bounds the total time spent running readiness checks.
const DefaultCheckTimeout = 5 * time.Second

// ErrDraining is reported by readiness while the service shuts down.
var ErrDraining = errors.New("service is draining")

// HealthResponse is the liveness body.
type HealthResponse struct {
	Status    Status  `json:"status"`
	Version   string  `json:"version,omitempty"`
	Uptime    float64 `json:"uptime"`
	Timestamp string  `json:"timestamp"`
}

// ReadinessResponse is the readiness body.
type ReadinessResponse struct {
	Status    Status                 `json:"status"`
	Checks    map[string]CheckResult `json:"checks,omitempty"`
	Timestamp string                 `json:"timestamp"`
}

// CheckResult is the outcome of one readiness check.
type CheckResult struct {
	Status   Status `json:"status"`
	Error    string `json:"error,omitempty"`
	Duration string `json:"duration"`
}

// CheckFunc reports whether a dependency is ready.
type CheckFunc func(ctx context.Context) error

// Checker serves liveness and readiness.
type Checker struct {
	version   string
	startTime time.Time
	timeout   time.Duration
	now       func() time.Time
	logger    observability.Logger

	mu       sync.RWMutex
	checks   map[string]CheckFunc
	draining atomic.Bool
}

// Option configures a Checker.
type Option func(*Checker)

// WithLogger sets the logger used for failed checks.
func WithLogger(logger observability.Logger) Option {
	return func(c *Checker) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithTimeout bounds readiness evaluation.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Checker) {
		if timeout > 0 {
			c.timeout = timeout
		}
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(c *Checker) {
		if now != nil {
			c.now = now
		}
	}
}

// NewChecker creates a new health checker.
func NewChecker(version string, opts ...Option) *Checker {
	c := &Checker{
		version: version,
		timeout: DefaultCheckTimeout,
		now:     time.Now,
		logger:  observability.NopLogger(),
		checks:  make(map[string]CheckFunc),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.startTime = c.now()
	return c
}

// RegisterCheck registers a readiness check under name, replacing any
// previous one.
func (c *Checker) RegisterCheck(name string, check CheckFunc) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.checks[name] = check
}

// UnregisterCheck removes a readiness check.
func (c *Checker) UnregisterCheck(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.checks, name)
}

// SetDraining marks the service as shutting down. Readiness fails from then on.
func (c *Checker) SetDraining(draining bool) {
	c.draining.Store(draining)
}

// IsDraining reports whether the service is shutting down.
func (c *Checker) IsDraining() bool {
	return c.draining.Load()
}

// Health returns the liveness status.
func (c *Checker) Health() HealthResponse {
	now := c.now()
	return HealthResponse{
		Status:    StatusOK,
		Version:   c.version,
		Uptime:    now.Sub(c.startTime).Seconds(),
		Timestamp: now.UTC().Format(time.RFC3339),
	}
}

// Readiness runs every registered check concurrently.
func (c *Checker) Readiness(ctx context.Context) ReadinessResponse {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	c.mu.RLock()
	checks := make(map[string]CheckFunc, len(c.checks))
	for name, fn := range c.checks {
		checks[name] = fn
	}
	c.mu.RUnlock()

	response := ReadinessResponse{
		Status:    StatusOK,
		Checks:    make(map[string]CheckResult, len(checks)),
		Timestamp: c.now().UTC().Format(time.RFC3339),
	}

	var (
		wg sync.WaitGroup
		mu sync.Mutex
	)
	for name, check := range checks {
		wg.Add(1)
		go func(name string, check CheckFunc) {
			defer wg.Done()

			start := time.Now()
			err := check(ctx)
			result := CheckResult{Status: StatusOK, Duration: time.Since(start).String()}
			if err != nil {
				result.Status = StatusUnavailable
				result.Error = err.Error()
				c.logger.WithContext(ctx).Warn("readiness check failed",
					observability.String("check", name),
					observability.Error(err),
				)
			}

			mu.Lock()
			response.Checks[name] = result
			if err != nil {
				response.Status = StatusUnavailable
			}
			mu.Unlock()
		}(name, check)
	}
	wg.Wait()

	if c.IsDraining() {
		response.Status = StatusUnavailable
		response.Checks["draining"] = CheckResult{
			Status: StatusUnavailable,
			Error:  ErrDraining.Error(),
		}
	}

	return response
}

// HealthHandler returns a handler for liveness probes.
func (c *Checker) HealthHandler() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		ctx.JSON(http.StatusOK, c.Health())
	}
}

// ReadinessHandler returns a handler for readiness probes.
func (c *Checker) ReadinessHandler() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		response := c.Readiness(ctx.Request.Context())

		statusCode := http.StatusOK
		if response.Status != StatusOK {
			statusCode = http.StatusServiceUnavailable
		}
		ctx.JSON(statusCode, response)
	}
}
