package jwt

import (
	"errors"
	"fmt"
	"net/http"
)

// Sentinel errors for credential verification. Callers distinguish them
// with errors.Is.
var (
	// ErrMissingCredential indicates the Authorization header is absent or
	// not of the Bearer scheme.
	ErrMissingCredential = errors.New("credential not provided")

	// ErrExpiredCredential indicates a correctly signed token whose expiry
	// has passed.
	ErrExpiredCredential = errors.New("credential expired")

	// ErrInvalidCredential covers every other verification failure. Causes
	// are collapsed so a caller cannot tell which check failed.
	ErrInvalidCredential = errors.New("credential invalid")
)

// Reason classifies a rejected credential.
type Reason string

// Rejection reasons.
const (
	ReasonMissing Reason = "missing"
	ReasonExpired Reason = "expired"
	ReasonInvalid Reason = "invalid"
)

// Client-facing messages, one per reason.
const (
	MessageMissing = "Token not provided"
	MessageExpired = "Token expired. Please log in again"
	MessageInvalid = "Invalid token"
)

// CredentialError is returned by Authenticator when a request cannot be
// authenticated. Cause is kept for server-side logging only and never
// reaches the client.
type CredentialError struct {
	Reason Reason
	Cause  error
}

// Error implements the error interface.
func (e *CredentialError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("jwt: %v: %v", e.sentinel(), e.Cause)
	}
	return fmt.Sprintf("jwt: %v", e.sentinel())
}

// Unwrap returns the underlying error.
func (e *CredentialError) Unwrap() error {
	return e.Cause
}

// Is matches the sentinel for the error's reason.
func (e *CredentialError) Is(target error) bool {
	return target == e.sentinel()
}

// StatusCode implements util.StatusCoder.
func (e *CredentialError) StatusCode() int {
	return http.StatusUnauthorized
}

// PublicMessage implements util.PublicMessager.
func (e *CredentialError) PublicMessage() string {
	switch e.Reason {
	case ReasonMissing:
		return MessageMissing
	case ReasonExpired:
		return MessageExpired
	default:
		return MessageInvalid
	}
}

func (e *CredentialError) sentinel() error {
	switch e.Reason {
	case ReasonMissing:
		return ErrMissingCredential
	case ReasonExpired:
		return ErrExpiredCredential
	default:
		return ErrInvalidCredential
	}
}

func missing(cause error) *CredentialError {
	return &CredentialError{Reason: ReasonMissing, Cause: cause}
}

func expired(cause error) *CredentialError {
	return &CredentialError{Reason: ReasonExpired, Cause: cause}
}

func invalid(cause error) *CredentialError {
	return &CredentialError{Reason: ReasonInvalid, Cause: cause}
}

// ReasonOf returns the rejection reason carried by err, or "" when err is
// not a credential error.
func ReasonOf(err error) Reason {
	var credErr *CredentialError
	if errors.As(err, &credErr) {
		return credErr.Reason
	}
	return ""
}
