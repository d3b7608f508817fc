package jwt

import (
	"context"
	"errors"
	"time"

	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jwt"

	"github.com/vyrodovalexey/apigate/internal/observability"
)

// ErrEmptyToken is the cause recorded when a bearer header carries no token.
var ErrEmptyToken = errors.New("empty token")

// Authenticator verifies and issues HMAC signed tokens with a shared secret.
// It holds no mutable state and is safe for concurrent use.
type Authenticator struct {
	key      []byte
	alg      jwa.SignatureAlgorithm
	lifetime time.Duration
	issuer   string
	skew     time.Duration
	logger   observability.Logger
	now      func() time.Time
}

// Option configures an Authenticator.
type Option func(*Authenticator)

// WithLogger sets the logger.
func WithLogger(logger observability.Logger) Option {
	return func(a *Authenticator) {
		if logger != nil {
			a.logger = logger
		}
	}
}

// WithClock overrides the time source used for expiry checks and issuing.
func WithClock(now func() time.Time) Option {
	return func(a *Authenticator) {
		if now != nil {
			a.now = now
		}
	}
}

// NewAuthenticator creates an Authenticator. It fails with a configuration
// error when no secret is set.
func NewAuthenticator(cfg Config, opts ...Option) (*Authenticator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	a := &Authenticator{
		key:      []byte(cfg.Secret),
		alg:      supportedAlgorithms[cfg.GetAlgorithm()],
		lifetime: cfg.GetTokenLifetime(),
		issuer:   cfg.Issuer,
		skew:     cfg.ClockSkew,
		logger:   observability.NopLogger(),
		now:      time.Now,
	}

	for _, opt := range opts {
		opt(a)
	}

	return a, nil
}

// Verify authenticates a raw Authorization header value.
//
// An absent header or one without the Bearer scheme yields a missing
// credential. A correctly signed token past its expiry yields an expired
// credential. Every other failure yields an invalid credential.
func (a *Authenticator) Verify(ctx context.Context, header string) (*Claims, error) {
	token, err := ExtractBearer(header)
	if err != nil {
		return nil, missing(err)
	}
	return a.VerifyToken(ctx, token)
}

// VerifyToken authenticates a bare token.
func (a *Authenticator) VerifyToken(ctx context.Context, token string) (*Claims, error) {
	if token == "" {
		return nil, invalid(ErrEmptyToken)
	}

	parseOpts := []jwt.ParseOption{
		jwt.WithKey(a.alg, a.key),
		jwt.WithValidate(true),
		jwt.WithClock(jwt.ClockFunc(a.now)),
		jwt.WithAcceptableSkew(a.skew),
		jwt.WithRequiredClaim(jwt.ExpirationKey),
	}
	if a.issuer != "" {
		parseOpts = append(parseOpts, jwt.WithIssuer(a.issuer))
	}

	tok, err := jwt.Parse([]byte(token), parseOpts...)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired()) {
			return nil, expired(err)
		}
		return nil, invalid(err)
	}

	claims := claimsFromToken(tok)

	a.logger.WithContext(ctx).Debug("token verified",
		observability.String("subject", claims.ID),
		observability.Time("expires_at", claims.ExpiresAt),
	)

	return claims, nil
}

// Issue signs a token for p valid for the configured lifetime.
func (a *Authenticator) Issue(ctx context.Context, p Principal) (string, error) {
	return a.IssueWithLifetime(ctx, p, a.lifetime)
}

// IssueWithLifetime signs a token for p valid for lifetime. A non-positive
// lifetime produces a token that is already expired.
func (a *Authenticator) IssueWithLifetime(ctx context.Context, p Principal, lifetime time.Duration) (string, error) {
	now := a.now()

	builder := jwt.NewBuilder().
		Subject(p.ID).
		IssuedAt(now).
		Expiration(now.Add(lifetime)).
		Claim(ClaimID, p.ID).
		Claim(ClaimEmail, p.Email).
		Claim(ClaimRole, p.Role).
		Claim(ClaimName, p.Name)
	if a.issuer != "" {
		builder = builder.Issuer(a.issuer)
	}

	tok, err := builder.Build()
	if err != nil {
		return "", err
	}

	signed, err := jwt.Sign(tok, jwt.WithKey(a.alg, a.key))
	if err != nil {
		return "", err
	}

	a.logger.WithContext(ctx).Debug("token issued",
		observability.String("subject", p.ID),
		observability.Duration("lifetime", lifetime),
	)

	return string(signed), nil
}

// Lifetime returns the validity applied by Issue.
func (a *Authenticator) Lifetime() time.Duration {
	return a.lifetime
}
