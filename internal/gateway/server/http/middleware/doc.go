// Package middleware provides the gin middleware forming the ingress
// pipeline.
//
// The server installs them in this order:
//
//	Recovery -> TraceContext -> Tracing -> Logging -> Metrics -> RateLimit -> [Auth] -> handler
//
// Recovery sits outermost so a panic anywhere below still yields a 500
// carrying the X-Trace-ID set by TraceContext. RateLimit runs before Auth so
// unauthenticated floods are throttled before any signature check.
package middleware
