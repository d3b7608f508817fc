// Package util provides error types and helpers shared by the ingress
// pipeline.
//
// # Error Conventions
//
// This project follows a standardized error pattern across all packages:
//
//   - Sentinel errors (errors.New) for well-known, stable conditions
//     that callers check with errors.Is(). Example: ErrRateLimited.
//   - Structured error types for context-rich errors that carry
//     additional fields (e.g., ConfigError, RateLimitError). Each type
//     implements Error(), Unwrap() (if wrapping), and Is().
//   - fmt.Errorf with %w for ad-hoc wrapping that adds context to an
//     existing error without introducing a new type.
//
// Errors that should reach the client with a specific HTTP status
// implement StatusCoder; everything else is reported as a 500.
package util

import (
	"errors"
	"fmt"
	"math"
	"net/http"
	"time"
)

// Common sentinel errors.
var (
	ErrRateLimited   = errors.New("rate limit exceeded")
	ErrConfigInvalid = errors.New("invalid configuration")
)

// StatusCoder is implemented by errors that map to a client-facing HTTP status.
type StatusCoder interface {
	StatusCode() int
}

// PublicMessager is implemented by errors whose message is safe to return
// to the client verbatim.
type PublicMessager interface {
	PublicMessage() string
}

// ConfigError represents a configuration-related error. At runtime it is a
// configuration fault: not recoverable by the client, reported as a 500.
type ConfigError struct {
	Field   string
	Message string
	Cause   error
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("config error at %s: %s", e.Field, e.Message)
	}
	return fmt.Sprintf("config error: %s", e.Message)
}

// Unwrap returns the underlying error.
func (e *ConfigError) Unwrap() error {
	return e.Cause
}

// Is checks if the error matches the target.
func (e *ConfigError) Is(target error) bool {
	if target == ErrConfigInvalid {
		return true
	}
	_, ok := target.(*ConfigError)
	return ok || errors.Is(e.Cause, target)
}

// StatusCode implements StatusCoder.
func (e *ConfigError) StatusCode() int {
	return http.StatusInternalServerError
}

// NewConfigError creates a new ConfigError.
func NewConfigError(field, message string) *ConfigError {
	return &ConfigError{Field: field, Message: message}
}

// NewConfigErrorWithCause creates a new ConfigError with a cause.
func NewConfigErrorWithCause(field, message string, cause error) *ConfigError {
	return &ConfigError{Field: field, Message: message, Cause: cause}
}

// RateLimitError represents a rejected admission.
type RateLimitError struct {
	Limit      int
	RetryAfter time.Duration
}

// Error implements the error interface.
func (e *RateLimitError) Error() string {
	return fmt.Sprintf("rate limit exceeded (limit: %d, retry after: %v)", e.Limit, e.RetryAfter)
}

// Is checks if the error matches the target.
func (e *RateLimitError) Is(target error) bool {
	if target == ErrRateLimited {
		return true
	}
	_, ok := target.(*RateLimitError)
	return ok
}

// StatusCode implements StatusCoder.
func (e *RateLimitError) StatusCode() int {
	return http.StatusTooManyRequests
}

// RetryAfterSeconds rounds RetryAfter up to whole seconds.
func (e *RateLimitError) RetryAfterSeconds() int {
	return CeilSeconds(e.RetryAfter)
}

// PublicMessage implements PublicMessager.
func (e *RateLimitError) PublicMessage() string {
	return fmt.Sprintf("Rate limit exceeded. Try again in %ds.", e.RetryAfterSeconds())
}

// NewRateLimitError creates a new RateLimitError.
func NewRateLimitError(limit int, retryAfter time.Duration) *RateLimitError {
	return &RateLimitError{Limit: limit, RetryAfter: retryAfter}
}

// CeilSeconds rounds d up to whole seconds.
func CeilSeconds(d time.Duration) int {
	if d <= 0 {
		return 0
	}
	return int(math.Ceil(d.Seconds()))
}

// StatusCode returns the HTTP status an error should be reported with.
func StatusCode(err error) int {
	if err == nil {
		return http.StatusOK
	}
	var sc StatusCoder
	if errors.As(err, &sc) {
		return sc.StatusCode()
	}
	return http.StatusInternalServerError
}

// PublicMessage returns the client-facing message for err. Errors that do
// not opt in through PublicMessager get a generic text.
func PublicMessage(err error) string {
	var pm PublicMessager
	if errors.As(err, &pm) {
		return pm.PublicMessage()
	}
	return "An unexpected error occurred"
}

// WrapError wraps an error with additional context.
func WrapError(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// IsClientError returns true if the error maps to a 4xx status.
func IsClientError(err error) bool {
	if err == nil {
		return false
	}
	status := StatusCode(err)
	return status >= 400 && status < 500
}

// IsServerError returns true if the error maps to a 5xx status.
func IsServerError(err error) bool {
	if err == nil {
		return false
	}
	return StatusCode(err) >= 500
}
