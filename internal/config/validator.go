package config

import (
	"fmt"
	"net"
	"strings"

	"github.com/vyrodovalexey/apigate/internal/util"
)

var (
	validLogLevels  = map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	validLogFormats = map[string]bool{"json": true, "console": true}
	validAlgorithms = map[string]bool{"HS256": true, "HS384": true, "HS512": true}
)

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Path    string
	Message string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("%s: %s", e.Path, e.Message)
	}
	return e.Message
}

// ValidationErrors is a collection of validation errors.
type ValidationErrors []ValidationError

// Error implements the error interface.
func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return "no validation errors"
	}
	if len(e) == 1 {
		return e[0].Error()
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%d validation errors:\n", len(e)))
	for i, err := range e {
		sb.WriteString(fmt.Sprintf("  %d. %s\n", i+1, err.Error()))
	}
	return sb.String()
}

// Is reports configuration errors as util.ErrConfigInvalid.
func (e ValidationErrors) Is(target error) bool {
	return target == util.ErrConfigInvalid
}

// HasErrors returns true if there are validation errors.
func (e ValidationErrors) HasErrors() bool {
	return len(e) > 0
}

// Validator validates configuration. Problems that prevent startup are
// errors; suspicious but usable settings are warnings.
type Validator struct {
	errors   ValidationErrors
	warnings []string
}

// NewValidator creates a new configuration validator.
func NewValidator() *Validator {
	return &Validator{
		errors: make(ValidationErrors, 0),
	}
}

// ValidateConfig validates cfg and returns its warnings alongside any error.
func ValidateConfig(cfg *Config) ([]string, error) {
	v := NewValidator()
	err := v.Validate(cfg)
	return v.Warnings(), err
}

// Validate validates the configuration and returns any errors.
func (v *Validator) Validate(cfg *Config) error {
	v.errors = make(ValidationErrors, 0)
	v.warnings = nil

	if cfg == nil {
		v.addError("", "configuration is nil")
		return v.errors
	}

	v.validateServer(&cfg.Server)
	v.validateLogging(&cfg.Logging)
	v.validateRateLimit(&cfg.RateLimit)
	v.validateAuth(&cfg.Auth)
	v.validateTracing(&cfg.Observability.Tracing)

	if v.errors.HasErrors() {
		return v.errors
	}
	return nil
}

// Warnings returns the warnings collected by the last Validate call.
func (v *Validator) Warnings() []string {
	return v.warnings
}

func (v *Validator) validateServer(s *ServerConfig) {
	if s.Port < 1 || s.Port > 65535 {
		v.addError("server.port", fmt.Sprintf("port must be between 1 and 65535, got %d", s.Port))
	}
	for i, proxy := range s.TrustedProxies {
		if !isIPOrCIDR(proxy) {
			v.addError(fmt.Sprintf("server.trustedProxies[%d]", i),
				fmt.Sprintf("%q is not an IP address or CIDR", proxy))
		}
	}
	if s.ShutdownTimeout < 0 {
		v.addError("server.shutdownTimeout", "must not be negative")
	}
}

func (v *Validator) validateLogging(l *LoggingConfig) {
	if !validLogLevels[strings.ToLower(l.Level)] {
		v.addError("logging.level", fmt.Sprintf("invalid log level %q", l.Level))
	}
	if !validLogFormats[strings.ToLower(l.Format)] {
		v.addError("logging.format", fmt.Sprintf("invalid log format %q", l.Format))
	}
}

func (v *Validator) validateRateLimit(r *RateLimitConfig) {
	if r.Max < 0 {
		v.addError("rateLimit.max", "must not be negative")
	} else if r.Max == 0 {
		v.addWarning("rateLimit.max is 0: every untrusted request will be rejected")
	}

	if r.Window < 0 {
		v.addError("rateLimit.window", "must not be negative")
	} else if r.Window == 0 {
		v.addWarning("rateLimit.window is 0: requests are never counted and the limiter admits everything")
	}

	if r.Shards < 0 {
		v.addError("rateLimit.shards", "must not be negative")
	}
	if r.SweepInterval < 0 {
		v.addError("rateLimit.sweepInterval", "must not be negative")
	}
}

func (v *Validator) validateAuth(a *AuthConfig) {
	if a.Secret == "" {
		v.addError("auth.secret", "signing secret is required")
	}
	if a.Algorithm != "" && !validAlgorithms[a.Algorithm] {
		v.addError("auth.algorithm", fmt.Sprintf("unsupported algorithm %q", a.Algorithm))
	}
	if a.ExpiresIn < 0 {
		v.addError("auth.expiresIn", "must not be negative")
	}
	if a.ClockSkew < 0 {
		v.addError("auth.clockSkew", "must not be negative")
	}
}

func (v *Validator) validateTracing(t *TracingConfig) {
	if t.SamplingRate < 0 || t.SamplingRate > 1 {
		v.addError("observability.tracing.samplingRate", "must be between 0 and 1")
	}
}

func (v *Validator) addError(path, message string) {
	v.errors = append(v.errors, ValidationError{Path: path, Message: message})
}

func (v *Validator) addWarning(message string) {
	v.warnings = append(v.warnings, message)
}

func isIPOrCIDR(s string) bool {
	if net.ParseIP(s) != nil {
		return true
	}
	_, _, err := net.ParseCIDR(s)
	return err == nil
}
