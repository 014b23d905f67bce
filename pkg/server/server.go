package server

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"

	"mercator-hq/ldatranslate/pkg/audit"
	"mercator-hq/ldatranslate/pkg/config"
	"mercator-hq/ldatranslate/pkg/limits/ratelimit"
	"mercator-hq/ldatranslate/pkg/security/auth"
	"mercator-hq/ldatranslate/pkg/telemetry/health"
	"mercator-hq/ldatranslate/pkg/telemetry/metrics"
	"mercator-hq/ldatranslate/pkg/telemetry/tracing"
	"mercator-hq/ldatranslate/pkg/voting/engine"
)

// Server is the HTTP bridge to an evaluation engine.
type Server struct {
	config  *config.ServerConfig
	engine  *engine.Engine
	logger  *slog.Logger
	metrics *metrics.Collector
	mpath   string
	tracer  *tracing.Tracer
	health  *health.Checker
	audit   audit.Storage
	query   config.QueryConfig
	auth    *auth.APIKeyMiddleware
	limits  *ratelimit.Keyed
	tls     *tls.Config
	idsrc   string

	httpServer   *http.Server
	shutdownOnce sync.Once
	mu           sync.RWMutex
	isRunning    bool
}

// Option configures optional server dependencies.
type Option func(*Server)

// WithMetrics serves the collector's registry on path, /metrics when empty.
func WithMetrics(c *metrics.Collector, path string) Option {
	return func(s *Server) {
		s.metrics = c
		if path != "" {
			s.mpath = path
		}
	}
}

// WithTracer wraps every request in a server span.
func WithTracer(t *tracing.Tracer) Option {
	return func(s *Server) {
		if t != nil {
			s.tracer = t
		}
	}
}

// WithHealth serves the checker's readiness checks on /readyz.
func WithHealth(h *health.Checker) Option {
	return func(s *Server) {
		if h != nil {
			s.health = h
		}
	}
}

// WithAudit exposes storage on GET /v1/audit using the query limits in q.
func WithAudit(storage audit.Storage, q config.QueryConfig) Option {
	return func(s *Server) {
		s.audit = storage
		s.query = q
	}
}

// WithAuth requires an API key with the route's scope on every /v1 route.
func WithAuth(mw *auth.APIKeyMiddleware) Option {
	return func(s *Server) {
		s.auth = mw
	}
}

// WithRateLimit admits /v1 requests through per-client limiters. Clients
// are identified by API key when auth is configured, otherwise by address.
func WithRateLimit(k *ratelimit.Keyed) Option {
	return func(s *Server) {
		s.limits = k
	}
}

// WithTLS serves HTTPS using cfg. identity names the client certificate
// field logged per request when clients present one.
func WithTLS(cfg *tls.Config, identity string) Option {
	return func(s *Server) {
		s.tls = cfg
		s.idsrc = identity
	}
}

// NewServer creates a server for eng.
func NewServer(cfg *config.ServerConfig, eng *engine.Engine, logger *slog.Logger, opts ...Option) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		config: cfg,
		engine: eng,
		logger: logger.With("component", "server"),
		mpath:  "/metrics",
		tracer: tracing.Noop(),
		health: health.New(0),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start serves until ctx is cancelled or the listener fails, then shuts
// down gracefully.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return fmt.Errorf("server is already running")
	}
	s.isRunning = true
	s.httpServer = &http.Server{
		Addr:         s.config.ListenAddress,
		Handler:      s.Handler(),
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
		IdleTimeout:  s.config.IdleTimeout,
		TLSConfig:    s.tls,
	}
	s.mu.Unlock()

	errChan := make(chan error, 1)
	go func() {
		s.logger.Info("starting server", "address", s.config.ListenAddress, "tls", s.tls != nil, "auth", s.auth != nil)
		var err error
		if s.tls != nil {
			err = s.httpServer.ListenAndServeTLS("", "")
		} else {
			err = s.httpServer.ListenAndServe()
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- fmt.Errorf("server error: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("context cancelled, initiating shutdown")
		return s.Shutdown(context.Background())
	case err := <-errChan:
		s.mu.Lock()
		s.isRunning = false
		s.mu.Unlock()
		return err
	}
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error

	s.shutdownOnce.Do(func() {
		s.mu.Lock()
		if !s.isRunning {
			s.mu.Unlock()
			return
		}
		s.mu.Unlock()

		s.logger.Info("initiating graceful shutdown", "timeout", s.config.ShutdownTimeout.String())

		shutdownCtx, cancel := context.WithTimeout(ctx, s.config.ShutdownTimeout)
		defer cancel()

		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			s.logger.Error("error during server shutdown", "error", err)
			shutdownErr = fmt.Errorf("server shutdown error: %w", err)
		}

		s.mu.Lock()
		s.isRunning = false
		s.mu.Unlock()

		s.logger.Info("server stopped")
	})

	return shutdownErr
}

// IsRunning returns true if the server is running.
func (s *Server) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

// Handler returns the routes wrapped in the middleware chain.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.Handle("GET /healthz", s.health.LivenessHandler())
	mux.Handle("GET /readyz", s.health.ReadinessHandler())
	if s.metrics != nil {
		mux.Handle("GET "+s.mpath, s.metrics.Handler())
	}

	mux.Handle("GET /v1/votings", s.protect(auth.ScopeRead, s.handleListVotings))
	mux.Handle("GET /v1/votings/{name}", s.protect(auth.ScopeRead, s.handleGetVoting))
	mux.Handle("POST /v1/votings", s.protect(auth.ScopeRegister, s.handleRegisterVoting))
	mux.Handle("POST /v1/evaluate", s.protect(auth.ScopeEvaluate, s.handleEvaluate))
	if s.audit != nil {
		mux.Handle("GET /v1/audit", s.protect(auth.ScopeAudit, s.handleAuditQuery))
	}

	var handler http.Handler = mux
	handler = maxBodyMiddleware(s.config.MaxBodyBytes)(handler)
	handler = tracing.HTTPMiddleware(s.tracer, handler)
	handler = requestIDMiddleware(handler)
	handler = loggingMiddleware(s.logger, s.idsrc)(handler)
	handler = recoveryMiddleware(s.logger)(handler)
	return handler
}

// protect applies rate limiting and, when auth is configured, the API key
// check for scope. Authentication runs first so limits apply per key.
func (s *Server) protect(scope auth.Scope, h http.HandlerFunc) http.Handler {
	handler := s.rateLimit(h)
	if s.auth == nil {
		return handler
	}
	return s.auth.Require(scope, handler)
}

// AuthErrorWriter writes authentication failures in the bridge's JSON error
// format. Pass it to auth.NewAPIKeyMiddleware.
func AuthErrorWriter(w http.ResponseWriter, _ *http.Request, status int, err error) {
	errType := "unauthorized"
	if status == http.StatusForbidden {
		errType = "forbidden"
	}
	writeError(w, status, errType, err.Error(), "")
}
