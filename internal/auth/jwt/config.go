package jwt

import (
	"fmt"
	"time"

	"github.com/lestrrat-go/jwx/v2/jwa"

	"github.com/vyrodovalexey/apigate/internal/util"
)

// Defaults for Config.
const (
	DefaultAlgorithm     = "HS256"
	DefaultTokenLifetime = time.Hour
)

// supportedAlgorithms lists the HMAC algorithms accepted for the shared secret.
var supportedAlgorithms = map[string]jwa.SignatureAlgorithm{
	"HS256": jwa.HS256,
	"HS384": jwa.HS384,
	"HS512": jwa.HS512,
}

// Config configures an Authenticator.
type Config struct {
	// Secret is the shared HMAC key. Required.
	Secret string `yaml:"secret" json:"-"`

	// Algorithm is the signing algorithm. Defaults to HS256.
	Algorithm string `yaml:"algorithm,omitempty" json:"algorithm,omitempty"`

	// TokenLifetime is the validity of issued tokens. Defaults to one hour.
	TokenLifetime time.Duration `yaml:"tokenLifetime,omitempty" json:"tokenLifetime,omitempty"`

	// Issuer, when set, is written into issued tokens and required on
	// verified ones.
	Issuer string `yaml:"issuer,omitempty" json:"issuer,omitempty"`

	// ClockSkew is the tolerance applied to time based claims.
	ClockSkew time.Duration `yaml:"clockSkew,omitempty" json:"clockSkew,omitempty"`
}

// Validate checks the configuration. A missing secret is a configuration
// fault, never an authentication failure.
func (c *Config) Validate() error {
	if c.Secret == "" {
		return util.NewConfigError("auth.secret", "signing secret is required")
	}
	if c.Algorithm != "" {
		if _, ok := supportedAlgorithms[c.Algorithm]; !ok {
			return util.NewConfigError("auth.algorithm",
				fmt.Sprintf("unsupported algorithm %q", c.Algorithm))
		}
	}
	if c.TokenLifetime < 0 {
		return util.NewConfigError("auth.tokenLifetime", "must not be negative")
	}
	if c.ClockSkew < 0 {
		return util.NewConfigError("auth.clockSkew", "must not be negative")
	}
	return nil
}

// GetAlgorithm returns the configured algorithm or the default.
func (c *Config) GetAlgorithm() string {
	if c.Algorithm == "" {
		return DefaultAlgorithm
	}
	return c.Algorithm
}

// GetTokenLifetime returns the configured lifetime or the default.
func (c *Config) GetTokenLifetime() time.Duration {
	if c.TokenLifetime == 0 {
		return DefaultTokenLifetime
	}
	return c.TokenLifetime
}
