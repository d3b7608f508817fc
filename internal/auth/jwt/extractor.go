package jwt

import (
	"errors"
	"net/http"
	"strings"
)

// AuthorizationHeader is the header carrying bearer credentials.
const AuthorizationHeader = "Authorization"

const bearerPrefix = "Bearer "

// Extraction errors. Both classify as a missing credential.
var (
	ErrMissingHeader = errors.New("missing authorization header")
	ErrInvalidPrefix = errors.New("authorization header is not a bearer credential")
)

// ExtractBearer returns the token part of a "Bearer <token>" header value.
// The scheme is matched case-insensitively. The returned token may be empty
// when the header holds the scheme alone.
func ExtractBearer(header string) (string, error) {
	if header == "" {
		return "", ErrMissingHeader
	}
	if len(header) < len(bearerPrefix) || !strings.EqualFold(header[:len(bearerPrefix)], bearerPrefix) {
		return "", ErrInvalidPrefix
	}
	return strings.TrimSpace(header[len(bearerPrefix):]), nil
}

// ExtractFromRequest reads the bearer token from r's Authorization header.
func ExtractFromRequest(r *http.Request) (string, error) {
	return ExtractBearer(r.Header.Get(AuthorizationHeader))
}
