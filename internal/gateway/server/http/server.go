// Package http provides the HTTP server fronting the API: the gin engine,
// the ingress middleware chain and the built-in routes.
package http

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/vyrodovalexey/apigate/internal/gateway/server/http/middleware"
	"github.com/vyrodovalexey/apigate/internal/health"
	"github.com/vyrodovalexey/apigate/internal/observability"
)

// APIPrefix is the mount point of every route.
const APIPrefix = "/api/v1"

// ginModeOnce ensures gin.SetMode is only called once to avoid race conditions
var ginModeOnce sync.Once

// ServerConfig holds configuration for the HTTP server.
type ServerConfig struct {
	Port           int
	Address        string
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	IdleTimeout    time.Duration
	MaxHeaderBytes int

	// TrustedProxies lists proxies allowed to set X-Forwarded-For. When
	// empty the socket peer address is the client key.
	TrustedProxies []string

	// Development adds error details to response bodies.
	Development bool
}

// DefaultServerConfig returns a ServerConfig with default values.
func DefaultServerConfig() *ServerConfig {
	return &ServerConfig{
		Port:           3000,
		ReadTimeout:    30 * time.Second,
		WriteTimeout:   30 * time.Second,
		IdleTimeout:    120 * time.Second,
		MaxHeaderBytes: 1 << 20,
	}
}

// Server is the HTTP front of the ingress pipeline. Every route passes the
// global rate limiter; routes on the Protected group additionally require a
// bearer token.
type Server struct {
	engine     *gin.Engine
	httpServer *http.Server
	config     *ServerConfig
	logger     observability.Logger

	limiter       middleware.Admitter
	authenticator middleware.Verifier
	metrics       *observability.Metrics
	tracer        *observability.Tracer
	reporter      *middleware.ErrorReporter
	health        *health.Checker

	api       *gin.RouterGroup
	protected *gin.RouterGroup

	mu      sync.RWMutex
	running bool
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the logger.
func WithLogger(logger observability.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithLimiter sets the admission gate applied to every request.
func WithLimiter(limiter middleware.Admitter) Option {
	return func(s *Server) {
		s.limiter = limiter
	}
}

// WithAuthenticator sets the verifier guarding the protected group.
func WithAuthenticator(authenticator middleware.Verifier) Option {
	return func(s *Server) {
		s.authenticator = authenticator
	}
}

// WithMetrics enables request metrics and the metrics route.
func WithMetrics(metrics *observability.Metrics) Option {
	return func(s *Server) {
		s.metrics = metrics
	}
}

// WithTracer enables per-request server spans.
func WithTracer(tracer *observability.Tracer) Option {
	return func(s *Server) {
		s.tracer = tracer
	}
}

// WithHealthChecker sets the checker answering the health and ready routes.
func WithHealthChecker(checker *health.Checker) Option {
	return func(s *Server) {
		s.health = checker
	}
}

// NewServer creates the server and installs the middleware chain and the
// built-in routes.
func NewServer(config *ServerConfig, opts ...Option) (*Server, error) {
	if config == nil {
		config = DefaultServerConfig()
	}

	ginModeOnce.Do(func() {
		gin.SetMode(gin.ReleaseMode)
	})

	s := &Server{
		engine: gin.New(),
		config: config,
		logger: observability.NopLogger(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.health == nil {
		s.health = health.NewChecker("", health.WithLogger(s.logger))
	}

	if err := s.engine.SetTrustedProxies(config.TrustedProxies); err != nil {
		return nil, fmt.Errorf("invalid trusted proxies: %w", err)
	}

	s.reporter = middleware.NewErrorReporter(s.logger, config.Development)

	s.engine.Use(
		middleware.Recovery(s.reporter),
		middleware.TraceContext(s.logger),
		middleware.Tracing(s.tracer),
		middleware.Logging(s.logger),
		middleware.Metrics(s.metrics),
		middleware.RateLimitWithConfig(middleware.RateLimitConfig{
			Limiter: s.limiter,
			Logger:  s.logger,
			Metrics: s.metrics,
		}),
	)

	s.engine.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{
			"error":   http.StatusText(http.StatusNotFound),
			"message": "Route not found",
		})
	})

	s.api = s.engine.Group(APIPrefix)
	s.api.GET("/health", s.health.HealthHandler())
	s.api.GET("/ready", s.health.ReadinessHandler())
	if s.metrics != nil {
		s.api.GET("/metrics", gin.WrapH(s.metrics.Handler()))
	}

	s.protected = s.api.Group("", middleware.AuthWithConfig(middleware.AuthConfig{
		Authenticator: s.authenticator,
		Reporter:      s.reporter,
		Metrics:       s.metrics,
	}))
	s.protected.GET("/auth/me", s.handleMe)

	return s, nil
}

// Engine returns the underlying gin engine.
func (s *Server) Engine() *gin.Engine {
	return s.engine
}

// API returns the public route group mounted at APIPrefix.
func (s *Server) API() *gin.RouterGroup {
	return s.api
}

// Protected returns the route group requiring authentication.
func (s *Server) Protected() *gin.RouterGroup {
	return s.protected
}

// Health returns the server's health checker.
func (s *Server) Health() *health.Checker {
	return s.health
}

// Reporter returns the error reporter handlers should use for failures.
func (s *Server) Reporter() *middleware.ErrorReporter {
	return s.reporter
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.engine.ServeHTTP(w, r)
}

// Addr returns the listen address.
func (s *Server) Addr() string {
	return net.JoinHostPort(s.config.Address, strconv.Itoa(s.config.Port))
}

// Start serves until Stop is called or the listener fails.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return fmt.Errorf("server already running")
	}

	addr := s.Addr()
	s.httpServer = &http.Server{
		Addr:           addr,
		Handler:        s.engine,
		ReadTimeout:    s.config.ReadTimeout,
		WriteTimeout:   s.config.WriteTimeout,
		IdleTimeout:    s.config.IdleTimeout,
		MaxHeaderBytes: s.config.MaxHeaderBytes,
		BaseContext: func(net.Listener) context.Context {
			return context.WithoutCancel(ctx)
		},
	}
	s.running = true
	s.mu.Unlock()

	s.logger.Info("starting HTTP server",
		observability.String("address", addr),
		observability.Duration("read_timeout", s.config.ReadTimeout),
		observability.Duration("write_timeout", s.config.WriteTimeout),
	)

	err := s.httpServer.ListenAndServe()

	s.mu.Lock()
	s.running = false
	s.mu.Unlock()

	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

// Stop gracefully shuts the server down, waiting for in-flight requests
// until ctx expires.
func (s *Server) Stop(ctx context.Context) error {
	s.mu.RLock()
	running := s.running
	httpServer := s.httpServer
	s.mu.RUnlock()

	if !running || httpServer == nil {
		return nil
	}

	s.logger.Info("stopping HTTP server")

	if err := httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shutdown server: %w", err)
	}

	s.logger.Info("HTTP server stopped")
	return nil
}

// IsRunning returns whether the server is running.
func (s *Server) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.running
}

func (s *Server) handleMe(c *gin.Context) {
	claims, ok := middleware.GetClaims(c)
	if !ok {
		s.reporter.Report(c, errors.New("claims missing on authenticated route"))
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": claims})
}
