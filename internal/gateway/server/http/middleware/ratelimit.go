package middleware

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/vyrodovalexey/apigate/internal/observability"
	"github.com/vyrodovalexey/apigate/internal/ratelimit"
	"github.com/vyrodovalexey/apigate/internal/util"
)

// Admitter decides whether a request from a client key may proceed.
type Admitter interface {
	Allow(key string) ratelimit.Decision
}

// KeyFunc derives the client key of a request.
type KeyFunc func(c *gin.Context) string

// ClientIPKey keys requests by the resolved client address.
func ClientIPKey(c *gin.Context) string {
	return c.ClientIP()
}

// RateLimitConfig holds configuration for the rate limit middleware.
type RateLimitConfig struct {
	Limiter Admitter
	KeyFunc KeyFunc
	Logger  observability.Logger
	Metrics *observability.Metrics
}

// RateLimit returns a middleware that gates every request through limiter,
// keyed by client address.
func RateLimit(limiter Admitter, logger observability.Logger) gin.HandlerFunc {
	return RateLimitWithConfig(RateLimitConfig{
		Limiter: limiter,
		Logger:  logger,
	})
}

// RateLimitWithConfig returns a rate limit middleware with custom configuration.
//
// Trusted keys pass untouched. Every other evaluation sets X-RateLimit-Limit
// and X-RateLimit-Remaining; a rejection also sets Retry-After and answers
// 429 without reaching later handlers.
func RateLimitWithConfig(config RateLimitConfig) gin.HandlerFunc {
	if config.KeyFunc == nil {
		config.KeyFunc = ClientIPKey
	}
	if config.Logger == nil {
		config.Logger = observability.NopLogger()
	}

	return func(c *gin.Context) {
		if config.Limiter == nil {
			c.Next()
			return
		}

		key := config.KeyFunc(c)
		decision := config.Limiter.Allow(key)

		if decision.Trusted {
			config.recordAdmission(observability.AdmissionTrusted)
			c.Next()
			return
		}

		c.Header(HeaderRateLimitLimit, strconv.Itoa(decision.Limit))
		c.Header(HeaderRateLimitRemaining, strconv.Itoa(decision.Remaining))

		if decision.Allowed {
			config.recordAdmission(observability.AdmissionAllowed)
			c.Next()
			return
		}

		config.recordAdmission(observability.AdmissionRejected)

		rejection := util.NewRateLimitError(decision.Limit, decision.RetryAfter)
		c.Header(HeaderRetryAfter, strconv.Itoa(rejection.RetryAfterSeconds()))

		config.Logger.WithContext(c.Request.Context()).Warn("rate limit exceeded",
			observability.String("module", moduleSecurity),
			observability.String("action", actionRateLimitBlock),
			observability.String("client_ip", key),
			observability.String("method", c.Request.Method),
			observability.String("path", c.Request.URL.Path),
			observability.Int("limit", decision.Limit),
		)

		_ = c.Error(rejection)
		c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
			"error":   http.StatusText(http.StatusTooManyRequests),
			"message": rejection.PublicMessage(),
			"status":  http.StatusTooManyRequests,
		})
	}
}

func (config *RateLimitConfig) recordAdmission(outcome string) {
	if config.Metrics != nil {
		config.Metrics.RecordAdmission(outcome)
	}
}
