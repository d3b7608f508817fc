package middleware

// gin context keys.
const (
	// TraceIDKey holds the request's correlation id.
	TraceIDKey = "traceID"
	// ClaimsKey holds the verified *jwt.Claims of an authenticated request.
	ClaimsKey = "claims"
	// SpanKey holds the request's server span.
	SpanKey = "otel-span"
)

// Rate limit response headers.
const (
	HeaderRateLimitLimit     = "X-RateLimit-Limit"
	HeaderRateLimitRemaining = "X-RateLimit-Remaining"
	HeaderRetryAfter         = "Retry-After"
)

// Log field values identifying the emitting concern.
const (
	moduleSecurity       = "security"
	actionRateLimitBlock = "rate_limit_block"
	actionAuthReject     = "auth_reject"
	actionRequestFailed  = "request_failed"
)
