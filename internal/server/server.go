// Package server exposes redaction and troubleshooting over HTTP.
//
// Routes:
//
//	GET  /                 service banner and endpoint list
//	GET  /health           liveness with the active LLM provider
//	POST /redact_log       {text} -> {redacted, redacted_count}
//	POST /ai_troubleshoot  {text, mode, metadata} -> troubleshoot.Result
//
// Request bodies are never logged. Redaction failures return 500 without
// echoing the input.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/bimmerbailey/loglore/internal/config"
	"github.com/bimmerbailey/loglore/internal/troubleshoot"
)

// Version is reported by / and /health.
const Version = "1.0"

const (
	defaultAddr         = ":8000"
	defaultMaxBodyBytes = 1 << 20
	defaultReadTimeout  = 15 * time.Second
	defaultWriteTimeout = 2 * time.Minute
)

// DefaultAllowedOrigins mirrors the hosted frontends the API was built for.
var DefaultAllowedOrigins = []string{
	"http://localhost:3000",
	"https://*.vercel.app",
	"https://*.netlify.app",
}

// Server is the HTTP API.
type Server struct {
	cfg      config.ServerConfig
	redactor troubleshoot.Redactor
	service  *troubleshoot.Service
	logger   *slog.Logger
	router   *mux.Router
	limiter  *clientLimiter
	server   *http.Server
}

// New builds a Server. redactor backs /redact_log and should be the same
// instance the service uses, so a config reload affects both endpoints.
func New(cfg config.ServerConfig, redactor troubleshoot.Redactor, service *troubleshoot.Service, logger *slog.Logger) (*Server, error) {
	if redactor == nil {
		return nil, errors.New("server: redactor is required")
	}
	if service == nil {
		return nil, errors.New("server: troubleshoot service is required")
	}
	if logger == nil {
		return nil, errors.New("server: logger is required")
	}

	if cfg.Addr == "" {
		cfg.Addr = defaultAddr
	}
	if cfg.MaxBodyBytes == 0 {
		cfg.MaxBodyBytes = defaultMaxBodyBytes
	}
	if cfg.ReadTimeout == 0 {
		cfg.ReadTimeout = defaultReadTimeout
	}
	if cfg.WriteTimeout == 0 {
		cfg.WriteTimeout = defaultWriteTimeout
	}
	if cfg.AllowedOrigins == nil {
		cfg.AllowedOrigins = DefaultAllowedOrigins
	}

	s := &Server{
		cfg:      cfg,
		redactor: redactor,
		service:  service,
		logger:   logger.With("component", "server"),
		router:   mux.NewRouter(),
	}
	if cfg.RateLimit > 0 {
		s.limiter = newClientLimiter(cfg.RateLimit, cfg.RateBurst)
	}

	s.setupRoutes()

	s.server = &http.Server{
		Addr:              cfg.Addr,
		Handler:           s.Handler(),
		ReadTimeout:       cfg.ReadTimeout,
		ReadHeaderTimeout: cfg.ReadTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       2 * cfg.ReadTimeout,
	}
	return s, nil
}

// setupRoutes configures all HTTP routes.
func (s *Server) setupRoutes() {
	s.router.HandleFunc("/", s.handleRoot).Methods(http.MethodGet)
	s.router.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)

	api := s.router.NewRoute().Subrouter()
	api.Use(s.rateLimitMiddleware)
	api.HandleFunc("/redact_log", s.handleRedact).Methods(http.MethodPost)
	api.HandleFunc("/ai_troubleshoot", s.handleTroubleshoot).Methods(http.MethodPost)

	s.router.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "not found")
	})
	s.router.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	})
}

// Handler returns the router wrapped in recovery, logging and CORS.
func (s *Server) Handler() http.Handler {
	return s.recoverMiddleware(s.loggingMiddleware(s.corsMiddleware(s.router)))
}

// Addr returns the configured listen address.
func (s *Server) Addr() string { return s.cfg.Addr }

// Start listens on the configured address and blocks until Shutdown.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", s.cfg.Addr, err)
	}
	return s.Serve(ln)
}

// Serve accepts connections on ln and blocks until Shutdown.
func (s *Server) Serve(ln net.Listener) error {
	s.logger.Info("starting loglore API",
		"addr", ln.Addr().String(),
		"provider", s.service.ProviderName(),
		"rate_limit", s.cfg.RateLimit,
	)
	if err := s.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("stopping loglore API")
	return s.server.Shutdown(ctx)
}
