package main

import (
	"fmt"

	authjwt "github.com/vyrodovalexey/apigate/internal/auth/jwt"
	"github.com/vyrodovalexey/apigate/internal/config"
	httpserver "github.com/vyrodovalexey/apigate/internal/gateway/server/http"
	"github.com/vyrodovalexey/apigate/internal/health"
	"github.com/vyrodovalexey/apigate/internal/observability"
	"github.com/vyrodovalexey/apigate/internal/ratelimit"
)

// application holds all application components.
type application struct {
	config        *config.Config
	logger        observability.Logger
	server        *httpserver.Server
	limiter       *ratelimit.SlidingWindowLimiter
	authenticator *authjwt.Authenticator
	metrics       *observability.Metrics
	tracer        *observability.Tracer
	health        *health.Checker
}

// newApplication wires the ingress pipeline from cfg.
func newApplication(cfg *config.Config, logger observability.Logger) (*application, error) {
	app := &application{
		config: cfg,
		logger: logger,
		health: health.NewChecker(version, health.WithLogger(logger)),
	}

	if cfg.Observability.Metrics.Enabled {
		app.metrics = observability.NewMetrics(cfg.Observability.Metrics.Namespace)
		app.metrics.SetBuildInfo(version, gitCommit)
	}

	tracer, err := initTracer(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize tracer: %w", err)
	}
	app.tracer = tracer

	app.limiter = initLimiter(cfg, logger, app.metrics)

	authenticator, err := authjwt.NewAuthenticator(authjwt.Config{
		Secret:        cfg.Auth.Secret,
		Algorithm:     cfg.Auth.Algorithm,
		TokenLifetime: cfg.Auth.ExpiresIn.Duration(),
		Issuer:        cfg.Auth.Issuer,
		ClockSkew:     cfg.Auth.ClockSkew.Duration(),
	}, authjwt.WithLogger(logger))
	if err != nil {
		return nil, fmt.Errorf("failed to create authenticator: %w", err)
	}
	app.authenticator = authenticator

	opts := []httpserver.Option{
		httpserver.WithLogger(logger),
		httpserver.WithLimiter(app.limiter),
		httpserver.WithAuthenticator(authenticator),
		httpserver.WithTracer(tracer),
		httpserver.WithHealthChecker(app.health),
	}
	if app.metrics != nil {
		opts = append(opts, httpserver.WithMetrics(app.metrics))
	}

	server, err := httpserver.NewServer(&httpserver.ServerConfig{
		Address:        cfg.Server.Address,
		Port:           cfg.Server.Port,
		ReadTimeout:    cfg.Server.ReadTimeout.Duration(),
		WriteTimeout:   cfg.Server.WriteTimeout.Duration(),
		IdleTimeout:    cfg.Server.IdleTimeout.Duration(),
		MaxHeaderBytes: 1 << 20,
		TrustedProxies: cfg.Server.TrustedProxies,
		Development:    cfg.App.IsDevelopment(),
	}, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create server: %w", err)
	}
	app.server = server

	logger.Info("application initialized",
		observability.String("env", cfg.App.Env),
		observability.Int("rate_limit_max", cfg.RateLimit.Max),
		observability.Duration("rate_limit_window", cfg.RateLimit.Window.Duration()),
		observability.Int("trusted_identities", app.limiter.Trust().Len()),
		observability.Duration("token_lifetime", authenticator.Lifetime()),
		observability.Bool("metrics", app.metrics != nil),
		observability.Bool("tracing", tracer.Enabled()),
	)

	return app, nil
}

// initLimiter builds the global sliding window limiter and its trust list.
func initLimiter(
	cfg *config.Config,
	logger observability.Logger,
	metrics *observability.Metrics,
) *ratelimit.SlidingWindowLimiter {
	opts := []ratelimit.Option{ratelimit.WithLogger(logger)}
	if metrics != nil {
		opts = append(opts, ratelimit.WithSweepHook(func(_, remaining int) {
			metrics.SetTrackedKeys(remaining)
		}))
	}

	return ratelimit.NewSlidingWindowLimiter(
		ratelimit.Config{
			Limit:  cfg.RateLimit.Max,
			Window: cfg.RateLimit.Window.Duration(),
			Shards: cfg.RateLimit.Shards,
		},
		ratelimit.NewTrustList(cfg.RateLimit.TrustedIdentities),
		opts...,
	)
}

// initTracer initializes the tracer. APIGATE_TRACING_ENABLED overrides the
// configured switch.
func initTracer(cfg *config.Config) (*observability.Tracer, error) {
	tracing := cfg.Observability.Tracing

	serviceName := tracing.ServiceName
	if serviceName == "" {
		serviceName = cfg.App.Name
	}

	return observability.NewTracer(observability.TracerConfig{
		ServiceName:  serviceName,
		OTLPEndpoint: tracing.OTLPEndpoint,
		SamplingRate: tracing.SamplingRate,
		Enabled:      getEnvBool("APIGATE_TRACING_ENABLED", tracing.Enabled),
	})
}
