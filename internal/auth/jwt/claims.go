package jwt

import (
	"context"
	"fmt"
	"time"

	"github.com/lestrrat-go/jwx/v2/jwt"
)

// Private claim names carried by issued tokens.
const (
	ClaimID    = "id"
	ClaimEmail = "email"
	ClaimRole  = "role"
	ClaimName  = "name"
)

// Principal is the identity a token is issued for.
type Principal struct {
	ID    string
	Email string
	Role  string
	Name  string
}

// Claims are the attributes recovered from a verified token. A *Claims value
// is only ever produced after signature and expiry checks succeeded.
type Claims struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Role      string    `json:"role"`
	Name      string    `json:"name"`
	IssuedAt  time.Time `json:"iat"`
	ExpiresAt time.Time `json:"exp"`
}

// claimsFromToken maps a validated token onto Claims. The subject claim wins
// over the private id claim when both are present.
func claimsFromToken(tok jwt.Token) *Claims {
	private := tok.PrivateClaims()

	c := &Claims{
		ID:        tok.Subject(),
		Email:     stringClaim(private, ClaimEmail),
		Role:      stringClaim(private, ClaimRole),
		Name:      stringClaim(private, ClaimName),
		IssuedAt:  tok.IssuedAt(),
		ExpiresAt: tok.Expiration(),
	}
	if c.ID == "" {
		c.ID = stringClaim(private, ClaimID)
	}
	return c
}

// stringClaim renders a private claim as a string. Numeric ids decode as
// float64 and are printed without a fractional part.
func stringClaim(claims map[string]interface{}, name string) string {
	v, ok := claims[name]
	if !ok || v == nil {
		return ""
	}
	switch val := v.(type) {
	case string:
		return val
	case float64:
		return fmt.Sprintf("%.0f", val)
	default:
		return fmt.Sprint(val)
	}
}

type claimsContextKey struct{}

// ContextWithClaims attaches verified claims to ctx.
func ContextWithClaims(ctx context.Context, claims *Claims) context.Context {
	return context.WithValue(ctx, claimsContextKey{}, claims)
}

// ClaimsFromContext returns the verified claims attached to ctx, if any.
func ClaimsFromContext(ctx context.Context) (*Claims, bool) {
	claims, ok := ctx.Value(claimsContextKey{}).(*Claims)
	return claims, ok && claims != nil
}
