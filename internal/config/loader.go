package config

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Environment variables that override file configuration.
const (
	EnvPort                 = "PORT"
	EnvEnvironment          = "NODE_ENV"
	EnvRateLimitWindowMs    = "RATE_LIMIT_WINDOW_MS"
	EnvRateLimitMaxRequests = "RATE_LIMIT_MAX_REQUESTS"
	EnvTrustedIPs           = "TRUSTED_IPS"
	EnvJWTSecret            = "JWT_SECRET"
	EnvJWTExpiresIn         = "JWT_EXPIRES_IN"
	EnvLogLevel             = "LOG_LEVEL"
	EnvLogFormat            = "LOG_FORMAT"
	EnvOTLPEndpoint         = "OTEL_EXPORTER_OTLP_ENDPOINT"
)

// envVarPattern matches ${VAR} and ${VAR:-default} patterns.
var envVarPattern = regexp.MustCompile(`\$\{([^}:]+)(?::-([^}]*))?\}`)

// Loader builds a Config from defaults, an optional YAML file, optional
// dotenv files and the process environment, in that order of precedence
// (later wins).
type Loader struct {
	lookupEnv func(string) (string, bool)
	envFiles  []string
}

// LoaderOption configures a Loader.
type LoaderOption func(*Loader)

// WithEnvFiles sets dotenv files loaded before environment overrides are
// applied. Missing files are ignored. Variables already present in the
// process environment are not overwritten.
func WithEnvFiles(files ...string) LoaderOption {
	return func(l *Loader) {
		l.envFiles = files
	}
}

// WithLookupEnv replaces the environment lookup.
func WithLookupEnv(fn func(string) (string, bool)) LoaderOption {
	return func(l *Loader) {
		if fn != nil {
			l.lookupEnv = fn
		}
	}
}

// NewLoader creates a new configuration loader.
func NewLoader(opts ...LoaderOption) *Loader {
	l := &Loader{lookupEnv: os.LookupEnv}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Load loads configuration from path, or defaults only when path is empty,
// then applies environment overrides.
func Load(path string, opts ...LoaderOption) (*Config, error) {
	return NewLoader(opts...).Load(path)
}

// Load loads configuration from path. An empty path skips the file.
func (l *Loader) Load(path string) (*Config, error) {
	if err := l.loadEnvFiles(); err != nil {
		return nil, err
	}

	cfg := DefaultConfig()

	if path != "" {
		absPath, err := filepath.Abs(path)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve path %s: %w", path, err)
		}
		data, err := os.ReadFile(absPath) //nolint:gosec // operator supplied path
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
		if err := l.parseInto(cfg, data); err != nil {
			return nil, err
		}
	}

	if err := l.applyEnv(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// LoadFromReader parses YAML from r over the defaults and applies
// environment overrides.
func (l *Loader) LoadFromReader(r io.Reader) (*Config, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	cfg := DefaultConfig()
	if err := l.parseInto(cfg, data); err != nil {
		return nil, err
	}
	if err := l.applyEnv(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (l *Loader) loadEnvFiles() error {
	for _, file := range l.envFiles {
		if err := godotenv.Load(file); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("failed to load env file %s: %w", file, err)
		}
	}
	return nil
}

// parseInto decodes YAML over cfg. Keys absent from the document keep
// their current values.
func (l *Loader) parseInto(cfg *Config, data []byte) error {
	content := l.substituteEnvVars(string(data))
	if strings.TrimSpace(content) == "" {
		return nil
	}
	if err := yaml.Unmarshal([]byte(content), cfg); err != nil {
		return fmt.Errorf("failed to parse YAML: %w", err)
	}
	return nil
}

// substituteEnvVars replaces ${VAR} and ${VAR:-default} patterns with environment variable values.
func (l *Loader) substituteEnvVars(content string) string {
	content = strings.ReplaceAll(content, "$$", "\x00ESCAPED_DOLLAR\x00")

	result := envVarPattern.ReplaceAllStringFunc(content, func(match string) string {
		submatches := envVarPattern.FindStringSubmatch(match)
		if len(submatches) < 2 {
			return match
		}

		varName := submatches[1]
		defaultValue := ""
		if len(submatches) >= 3 {
			defaultValue = submatches[2]
		}

		if value, exists := l.lookupEnv(varName); exists {
			return value
		}
		return defaultValue
	})

	return strings.ReplaceAll(result, "\x00ESCAPED_DOLLAR\x00", "$")
}

// applyEnv overlays the recognised environment variables on cfg. Empty
// values are ignored.
func (l *Loader) applyEnv(cfg *Config) error {
	if v, ok := l.env(EnvPort); ok {
		port, err := strconv.Atoi(v)
		if err != nil {
			return NewEnvError(EnvPort, v, err)
		}
		cfg.Server.Port = port
	}

	if v, ok := l.env(EnvEnvironment); ok {
		cfg.App.Env = v
	}

	if v, ok := l.env(EnvRateLimitWindowMs); ok {
		ms, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return NewEnvError(EnvRateLimitWindowMs, v, err)
		}
		cfg.RateLimit.Window = Duration(time.Duration(ms) * time.Millisecond)
	}

	if v, ok := l.env(EnvRateLimitMaxRequests); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return NewEnvError(EnvRateLimitMaxRequests, v, err)
		}
		cfg.RateLimit.Max = n
	}

	if v, ok := l.env(EnvTrustedIPs); ok {
		cfg.RateLimit.TrustedIdentities = splitList(v)
	}

	if v, ok := l.env(EnvJWTSecret); ok {
		cfg.Auth.Secret = v
	}

	if v, ok := l.env(EnvJWTExpiresIn); ok {
		d, err := parseLifetime(v)
		if err != nil {
			return NewEnvError(EnvJWTExpiresIn, v, err)
		}
		cfg.Auth.ExpiresIn = Duration(d)
	}

	if v, ok := l.env(EnvLogLevel); ok {
		cfg.Logging.Level = v
	}

	if v, ok := l.env(EnvLogFormat); ok {
		cfg.Logging.Format = v
	}

	if v, ok := l.env(EnvOTLPEndpoint); ok {
		cfg.Observability.Tracing.Enabled = true
		cfg.Observability.Tracing.OTLPEndpoint = v
	}

	return nil
}

func (l *Loader) env(key string) (string, bool) {
	v, ok := l.lookupEnv(key)
	v = strings.TrimSpace(v)
	return v, ok && v != ""
}

// parseLifetime reads a token lifetime. Bare integers are seconds, other
// values follow ParseDuration.
func parseLifetime(v string) (time.Duration, error) {
	if secs, err := strconv.ParseInt(v, 10, 64); err == nil {
		return time.Duration(secs) * time.Second, nil
	}
	return ParseDuration(v)
}

// splitList splits a comma separated list, trimming blanks.
func splitList(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// EnvError reports an environment variable that could not be parsed.
type EnvError struct {
	Key   string
	Value string
	Err   error
}

// NewEnvError creates an EnvError.
func NewEnvError(key, value string, err error) *EnvError {
	return &EnvError{Key: key, Value: value, Err: err}
}

// Error implements the error interface.
func (e *EnvError) Error() string {
	return fmt.Sprintf("invalid value %q for %s: %v", e.Value, e.Key, e.Err)
}

// Unwrap returns the underlying error.
func (e *EnvError) Unwrap() error {
	return e.Err
}
