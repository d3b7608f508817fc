package jwt

import (
	"context"
	"encoding/base64"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jwt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vyrodovalexey/apigate/internal/util"
)

const testSecret = "test-secret-key-with-enough-entropy"

var testPrincipal = Principal{
	ID:    "42",
	Email: "ada@example.com",
	Role:  "admin",
	Name:  "Ada",
}

func newTestAuthenticator(t *testing.T, now func() time.Time) *Authenticator {
	t.Helper()
	a, err := NewAuthenticator(Config{Secret: testSecret}, WithClock(now))
	require.NoError(t, err)
	return a
}

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

// ============================================================
// Construction
// ============================================================

func TestNewAuthenticator_MissingSecret(t *testing.T) {
	t.Parallel()

	a, err := NewAuthenticator(Config{})
	require.Error(t, err)
	assert.Nil(t, a)
	assert.ErrorIs(t, err, util.ErrConfigInvalid)
	assert.Equal(t, http.StatusInternalServerError, util.StatusCode(err))
}

func TestNewAuthenticator_Defaults(t *testing.T) {
	t.Parallel()

	a, err := NewAuthenticator(Config{Secret: testSecret})
	require.NoError(t, err)
	assert.Equal(t, DefaultTokenLifetime, a.Lifetime())
	assert.Equal(t, jwa.HS256, a.alg)
}

func TestConfig_Validate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{name: "valid", cfg: Config{Secret: "s"}},
		{name: "valid HS512", cfg: Config{Secret: "s", Algorithm: "HS512"}},
		{name: "missing secret", cfg: Config{}, wantErr: true},
		{name: "asymmetric algorithm", cfg: Config{Secret: "s", Algorithm: "RS256"}, wantErr: true},
		{name: "negative lifetime", cfg: Config{Secret: "s", TokenLifetime: -time.Second}, wantErr: true},
		{name: "negative skew", cfg: Config{Secret: "s", ClockSkew: -time.Second}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := tt.cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

// ============================================================
// Round trip
// ============================================================

func TestAuthenticator_IssueAndVerify(t *testing.T) {
	t.Parallel()

	issuedAt := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	a := newTestAuthenticator(t, fixedClock(issuedAt))
	ctx := context.Background()

	token, err := a.Issue(ctx, testPrincipal)
	require.NoError(t, err)
	assert.Len(t, strings.Split(token, "."), 3)

	claims, err := a.Verify(ctx, "Bearer "+token)
	require.NoError(t, err)
	assert.Equal(t, "42", claims.ID)
	assert.Equal(t, "ada@example.com", claims.Email)
	assert.Equal(t, "admin", claims.Role)
	assert.Equal(t, "Ada", claims.Name)
	assert.True(t, claims.IssuedAt.Equal(issuedAt))
	assert.True(t, claims.ExpiresAt.Equal(issuedAt.Add(time.Hour)))
}

func TestAuthenticator_SchemeIsCaseInsensitive(t *testing.T) {
	t.Parallel()

	a := newTestAuthenticator(t, time.Now)
	token, err := a.Issue(context.Background(), testPrincipal)
	require.NoError(t, err)

	_, err = a.Verify(context.Background(), "bearer "+token)
	assert.NoError(t, err)
}

func TestAuthenticator_NumericIDClaim(t *testing.T) {
	t.Parallel()

	tok, err := jwt.NewBuilder().
		Claim(ClaimID, 7).
		Claim(ClaimEmail, "n@example.com").
		Expiration(time.Now().Add(time.Hour)).
		Build()
	require.NoError(t, err)
	signed, err := jwt.Sign(tok, jwt.WithKey(jwa.HS256, []byte(testSecret)))
	require.NoError(t, err)

	a := newTestAuthenticator(t, time.Now)
	claims, err := a.VerifyToken(context.Background(), string(signed))
	require.NoError(t, err)
	assert.Equal(t, "7", claims.ID)
}

// ============================================================
// Failure classification
// ============================================================

func TestAuthenticator_Missing(t *testing.T) {
	t.Parallel()

	a := newTestAuthenticator(t, time.Now)

	for _, header := range []string{"", "Basic dXNlcjpwYXNz", "Token abc", "Bearer"} {
		t.Run(header, func(t *testing.T) {
			t.Parallel()
			claims, err := a.Verify(context.Background(), header)
			assert.Nil(t, claims)
			assert.ErrorIs(t, err, ErrMissingCredential)
			assert.Equal(t, ReasonMissing, ReasonOf(err))
			assert.Equal(t, http.StatusUnauthorized, util.StatusCode(err))
			assert.Equal(t, MessageMissing, util.PublicMessage(err))
		})
	}
}

func TestAuthenticator_Expired(t *testing.T) {
	t.Parallel()

	issuedAt := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	now := issuedAt
	a := newTestAuthenticator(t, func() time.Time { return now })

	token, err := a.Issue(context.Background(), testPrincipal)
	require.NoError(t, err)

	now = issuedAt.Add(2 * time.Hour)

	claims, err := a.Verify(context.Background(), "Bearer "+token)
	assert.Nil(t, claims)
	assert.ErrorIs(t, err, ErrExpiredCredential)
	assert.NotErrorIs(t, err, ErrInvalidCredential)
	assert.Equal(t, MessageExpired, util.PublicMessage(err))
}

func TestAuthenticator_ExpiredWithinSkew(t *testing.T) {
	t.Parallel()

	issuedAt := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	now := issuedAt
	a, err := NewAuthenticator(Config{Secret: testSecret, ClockSkew: time.Minute},
		WithClock(func() time.Time { return now }))
	require.NoError(t, err)

	token, err := a.Issue(context.Background(), testPrincipal)
	require.NoError(t, err)

	now = issuedAt.Add(time.Hour + 30*time.Second)
	_, err = a.Verify(context.Background(), "Bearer "+token)
	assert.NoError(t, err)
}

func TestAuthenticator_Invalid(t *testing.T) {
	t.Parallel()

	a := newTestAuthenticator(t, time.Now)
	ctx := context.Background()

	valid, err := a.Issue(ctx, testPrincipal)
	require.NoError(t, err)

	other, err := NewAuthenticator(Config{Secret: "another-secret"})
	require.NoError(t, err)
	foreign, err := other.Issue(ctx, testPrincipal)
	require.NoError(t, err)

	noExp, err := jwt.NewBuilder().Subject("42").Build()
	require.NoError(t, err)
	noExpSigned, err := jwt.Sign(noExp, jwt.WithKey(jwa.HS256, []byte(testSecret)))
	require.NoError(t, err)

	withExp, err := jwt.NewBuilder().Subject("42").Expiration(time.Now().Add(time.Hour)).Build()
	require.NoError(t, err)
	wrongAlg, err := jwt.Sign(withExp, jwt.WithKey(jwa.HS512, []byte(testSecret)))
	require.NoError(t, err)

	tests := []struct {
		name  string
		token string
	}{
		{name: "empty token after scheme", token: ""},
		{name: "garbage", token: "not-a-token"},
		{name: "two segments", token: "abc.def"},
		{name: "tampered payload", token: tamperPayload(t, valid)},
		{name: "truncated signature", token: valid[:len(valid)-4]},
		{name: "foreign secret", token: foreign},
		{name: "missing expiry", token: string(noExpSigned)},
		{name: "algorithm mismatch", token: string(wrongAlg)},
		{name: "unsigned", token: unsigned(t)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			claims, err := a.Verify(ctx, "Bearer "+tt.token)
			assert.Nil(t, claims)
			assert.ErrorIs(t, err, ErrInvalidCredential)
			assert.NotErrorIs(t, err, ErrExpiredCredential)
			assert.NotErrorIs(t, err, ErrMissingCredential)
			assert.Equal(t, MessageInvalid, util.PublicMessage(err))
		})
	}
}

func TestAuthenticator_ExpiredAndTamperedIsInvalid(t *testing.T) {
	t.Parallel()

	issuedAt := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	now := issuedAt
	a := newTestAuthenticator(t, func() time.Time { return now })

	token, err := a.Issue(context.Background(), testPrincipal)
	require.NoError(t, err)
	now = issuedAt.Add(2 * time.Hour)

	_, err = a.Verify(context.Background(), "Bearer "+tamperPayload(t, token))
	assert.ErrorIs(t, err, ErrInvalidCredential)
}

func TestAuthenticator_IssueWithNonPositiveLifetime(t *testing.T) {
	t.Parallel()

	a := newTestAuthenticator(t, time.Now)
	token, err := a.IssueWithLifetime(context.Background(), testPrincipal, -time.Minute)
	require.NoError(t, err)

	_, err = a.VerifyToken(context.Background(), token)
	assert.ErrorIs(t, err, ErrExpiredCredential)
}

func TestAuthenticator_Issuer(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	withIssuer, err := NewAuthenticator(Config{Secret: testSecret, Issuer: "apigate"})
	require.NoError(t, err)
	without := newTestAuthenticator(t, time.Now)

	token, err := withIssuer.Issue(ctx, testPrincipal)
	require.NoError(t, err)
	_, err = withIssuer.VerifyToken(ctx, token)
	assert.NoError(t, err)

	plain, err := without.Issue(ctx, testPrincipal)
	require.NoError(t, err)
	_, err = withIssuer.VerifyToken(ctx, plain)
	assert.ErrorIs(t, err, ErrInvalidCredential)
}

func TestAuthenticator_ConcurrentVerify(t *testing.T) {
	t.Parallel()

	a := newTestAuthenticator(t, time.Now)
	token, err := a.Issue(context.Background(), testPrincipal)
	require.NoError(t, err)

	errs := make(chan error, 32)
	for i := 0; i < cap(errs); i++ {
		go func() {
			_, err := a.Verify(context.Background(), "Bearer "+token)
			errs <- err
		}()
	}
	for i := 0; i < cap(errs); i++ {
		assert.NoError(t, <-errs)
	}
}

// ============================================================
// Helpers
// ============================================================

func tamperPayload(t *testing.T, token string) string {
	t.Helper()
	parts := strings.Split(token, ".")
	require.Len(t, parts, 3)
	payload, err := base64.RawURLEncoding.DecodeString(parts[1])
	require.NoError(t, err)
	tampered := strings.Replace(string(payload), `"admin"`, `"owner"`, 1)
	require.NotEqual(t, string(payload), tampered)
	parts[1] = base64.RawURLEncoding.EncodeToString([]byte(tampered))
	return strings.Join(parts, ".")
}

func unsigned(t *testing.T) string {
	t.Helper()
	header := base64.RawURLEncoding.EncodeToString([]byte(`{"alg":"none","typ":"JWT"}`))
	exp := time.Now().Add(time.Hour).Unix()
	payload := base64.RawURLEncoding.EncodeToString(
		[]byte(`{"sub":"42","exp":` + strconv.FormatInt(exp, 10) + `}`))
	return header + "." + payload + "."
}

func TestCredentialError(t *testing.T) {
	t.Parallel()

	cause := errors.New("boom")
	err := &CredentialError{Reason: ReasonInvalid, Cause: cause}

	assert.ErrorIs(t, err, ErrInvalidCredential)
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "credential invalid")
	assert.Contains(t, err.Error(), "boom")
	assert.Equal(t, "jwt: credential not provided", (&CredentialError{Reason: ReasonMissing}).Error())
	assert.Equal(t, Reason(""), ReasonOf(cause))
}
