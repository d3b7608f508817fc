// Package util provides the error types shared across apigate.
//
// Errors that reach an HTTP response implement StatusCoder and, when their
// text is safe to show to clients, PublicMessager:
//
//   - ConfigError: a startup or wiring fault, answered 500
//   - RateLimitError: a rejected admission, answered 429
//
// StatusCode and PublicMessage resolve both through wrapped error chains.
package util
