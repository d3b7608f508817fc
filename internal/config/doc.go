// Package config provides configuration loading and validation for apigate.
//
// Configuration is assembled in layers, later layers winning:
//
//  1. DefaultConfig
//  2. an optional YAML file, with ${VAR:-default} substitution
//  3. dotenv files (see WithEnvFiles)
//  4. the process environment (PORT, NODE_ENV, RATE_LIMIT_WINDOW_MS,
//     RATE_LIMIT_MAX_REQUESTS, TRUSTED_IPS, JWT_SECRET, JWT_EXPIRES_IN,
//     LOG_LEVEL, LOG_FORMAT, OTEL_EXPORTER_OTLP_ENDPOINT)
//
// # Loading
//
//	cfg, err := config.Load("configs/apigate.yaml", config.WithEnvFiles(".env"))
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	warnings, err := config.ValidateConfig(cfg)
//
// A missing signing secret fails validation: it is a deployment fault and
// the process must not start without one.
package config
