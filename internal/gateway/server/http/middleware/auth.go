package middleware

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/vyrodovalexey/apigate/internal/auth/jwt"
	"github.com/vyrodovalexey/apigate/internal/observability"
	"github.com/vyrodovalexey/apigate/internal/util"
)

// Verifier authenticates a raw Authorization header value.
type Verifier interface {
	Verify(ctx context.Context, header string) (*jwt.Claims, error)
}

// AuthConfig holds configuration for the auth middleware.
type AuthConfig struct {
	Authenticator Verifier
	Reporter      *ErrorReporter
	Metrics       *observability.Metrics
}

// Auth returns a middleware that requires a valid bearer token.
func Auth(authenticator Verifier, reporter *ErrorReporter) gin.HandlerFunc {
	return AuthWithConfig(AuthConfig{
		Authenticator: authenticator,
		Reporter:      reporter,
	})
}

// AuthWithConfig returns an auth middleware with custom configuration.
//
// Rejected requests are answered 401 through the error reporter and never
// reach later handlers. Verified claims are stored under ClaimsKey and in
// the request context.
func AuthWithConfig(config AuthConfig) gin.HandlerFunc {
	if config.Reporter == nil {
		config.Reporter = NewErrorReporter(nil, false)
	}

	return func(c *gin.Context) {
		if config.Authenticator == nil {
			config.Reporter.Report(c, util.NewConfigError("auth", "authenticator is not configured"))
			return
		}

		claims, err := config.Authenticator.Verify(c.Request.Context(), c.GetHeader(jwt.AuthorizationHeader))
		if err != nil {
			reason := jwt.ReasonOf(err)
			if reason != "" && config.Metrics != nil {
				config.Metrics.RecordAuthFailure(string(reason))
			}
			config.Reporter.Report(c, err,
				observability.String("module", moduleSecurity),
				observability.String("action", actionAuthReject),
				observability.String("reason", string(reason)),
			)
			return
		}

		c.Set(ClaimsKey, claims)
		c.Request = c.Request.WithContext(jwt.ContextWithClaims(c.Request.Context(), claims))

		c.Next()
	}
}

// GetClaims returns the verified claims of an authenticated request.
func GetClaims(c *gin.Context) (*jwt.Claims, bool) {
	if v, ok := c.Get(ClaimsKey); ok {
		if claims, ok := v.(*jwt.Claims); ok && claims != nil {
			return claims, true
		}
	}
	return nil, false
}
