package config

import (
	"time"
)

// Default values.
const (
	DefaultAppName         = "apigate"
	DefaultEnv             = "development"
	DefaultPort            = 3000
	DefaultRateLimitWindow = time.Minute
	DefaultRateLimitMax    = 100
	DefaultSweepInterval   = time.Minute
	DefaultTokenLifetime   = time.Hour
	DefaultShutdownTimeout = 30 * time.Second
	DefaultReadTimeout     = 30 * time.Second
	DefaultWriteTimeout    = 30 * time.Second
	DefaultIdleTimeout     = 120 * time.Second
	DefaultSamplingRate    = 1.0
)

// DefaultTrustedIdentities are exempt from rate limiting unless configured
// otherwise: loopback in both families and the default container bridge gateway.
var DefaultTrustedIdentities = []string{
	"127.0.0.1",
	"::1",
	"::ffff:127.0.0.1",
	"::ffff:172.18.0.1",
}

// Config holds all configuration settings for apigate.
type Config struct {
	App           AppConfig           `yaml:"app" json:"app"`
	Server        ServerConfig        `yaml:"server" json:"server"`
	Logging       LoggingConfig       `yaml:"logging" json:"logging"`
	RateLimit     RateLimitConfig     `yaml:"rateLimit" json:"rateLimit"`
	Auth          AuthConfig          `yaml:"auth" json:"auth"`
	Observability ObservabilityConfig `yaml:"observability" json:"observability"`
}

// AppConfig identifies the running instance.
type AppConfig struct {
	Name string `yaml:"name" json:"name"`
	// Env is the deployment environment. "development" enables error
	// details in responses.
	Env string `yaml:"env" json:"env"`
}

// IsDevelopment reports whether the instance runs in development mode.
func (a AppConfig) IsDevelopment() bool {
	return a.Env == "development"
}

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	Address string `yaml:"address" json:"address"`
	Port    int    `yaml:"port" json:"port"`

	// TrustedProxies lists proxies whose forwarding headers are honored
	// when resolving the client address. Empty means the socket peer is
	// always used.
	TrustedProxies []string `yaml:"trustedProxies,omitempty" json:"trustedProxies,omitempty"`

	ReadTimeout     Duration `yaml:"readTimeout" json:"readTimeout"`
	WriteTimeout    Duration `yaml:"writeTimeout" json:"writeTimeout"`
	IdleTimeout     Duration `yaml:"idleTimeout" json:"idleTimeout"`
	ShutdownTimeout Duration `yaml:"shutdownTimeout" json:"shutdownTimeout"`
}

// LoggingConfig configures the process logger.
type LoggingConfig struct {
	Level  string `yaml:"level" json:"level"`
	Format string `yaml:"format" json:"format"`
	Output string `yaml:"output" json:"output"`
}

// RateLimitConfig configures the global sliding window limiter.
type RateLimitConfig struct {
	// Window is the trailing interval admissions are counted over.
	Window Duration `yaml:"window" json:"window"`

	// Max is the number of admissions allowed per key per window.
	Max int `yaml:"max" json:"max"`

	// TrustedIdentities are client keys exempt from limiting. Entries may
	// be exact addresses or CIDR ranges.
	TrustedIdentities []string `yaml:"trustedIdentities" json:"trustedIdentities"`

	// Shards partitions limiter state. Zero selects the limiter default.
	Shards int `yaml:"shards,omitempty" json:"shards,omitempty"`

	// SweepInterval is how often idle keys are evicted. Zero disables it.
	SweepInterval Duration `yaml:"sweepInterval" json:"sweepInterval"`
}

// AuthConfig configures bearer token authentication.
type AuthConfig struct {
	Secret    string   `yaml:"secret" json:"-"`
	Algorithm string   `yaml:"algorithm,omitempty" json:"algorithm,omitempty"`
	ExpiresIn Duration `yaml:"expiresIn" json:"expiresIn"`
	Issuer    string   `yaml:"issuer,omitempty" json:"issuer,omitempty"`
	ClockSkew Duration `yaml:"clockSkew,omitempty" json:"clockSkew,omitempty"`
}

// ObservabilityConfig configures metrics and tracing.
type ObservabilityConfig struct {
	Metrics MetricsConfig `yaml:"metrics" json:"metrics"`
	Tracing TracingConfig `yaml:"tracing" json:"tracing"`
}

// MetricsConfig configures Prometheus metrics.
type MetricsConfig struct {
	Enabled   bool   `yaml:"enabled" json:"enabled"`
	Namespace string `yaml:"namespace,omitempty" json:"namespace,omitempty"`
}

// TracingConfig configures OpenTelemetry tracing.
type TracingConfig struct {
	Enabled      bool    `yaml:"enabled" json:"enabled"`
	OTLPEndpoint string  `yaml:"otlpEndpoint,omitempty" json:"otlpEndpoint,omitempty"`
	SamplingRate float64 `yaml:"samplingRate" json:"samplingRate"`
	ServiceName  string  `yaml:"serviceName,omitempty" json:"serviceName,omitempty"`
}

// DefaultConfig returns a configuration with default values.
func DefaultConfig() *Config {
	trusted := make([]string, len(DefaultTrustedIdentities))
	copy(trusted, DefaultTrustedIdentities)

	return &Config{
		App: AppConfig{
			Name: DefaultAppName,
			Env:  DefaultEnv,
		},
		Server: ServerConfig{
			Port:            DefaultPort,
			ReadTimeout:     Duration(DefaultReadTimeout),
			WriteTimeout:    Duration(DefaultWriteTimeout),
			IdleTimeout:     Duration(DefaultIdleTimeout),
			ShutdownTimeout: Duration(DefaultShutdownTimeout),
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
		RateLimit: RateLimitConfig{
			Window:            Duration(DefaultRateLimitWindow),
			Max:               DefaultRateLimitMax,
			TrustedIdentities: trusted,
			SweepInterval:     Duration(DefaultSweepInterval),
		},
		Auth: AuthConfig{
			Algorithm: "HS256",
			ExpiresIn: Duration(DefaultTokenLifetime),
		},
		Observability: ObservabilityConfig{
			Metrics: MetricsConfig{
				Enabled:   true,
				Namespace: DefaultAppName,
			},
			Tracing: TracingConfig{
				SamplingRate: DefaultSamplingRate,
				ServiceName:  DefaultAppName,
			},
		},
	}
}
