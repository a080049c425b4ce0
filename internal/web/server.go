// Package web provides the HTTP service that validates uploaded submissions.
package web

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/JonMunkholm/subcheck/internal/config"
	"github.com/JonMunkholm/subcheck/internal/core"
	"github.com/JonMunkholm/subcheck/internal/history"
	"github.com/JonMunkholm/subcheck/internal/logging"
	submw "github.com/JonMunkholm/subcheck/internal/web/middleware"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// RunStore persists validation reports. *history.Store satisfies it.
type RunStore interface {
	Record(ctx context.Context, report core.Report) (*history.Run, error)
	Get(ctx context.Context, id string) (*history.Run, error)
}

// Server is the HTTP server for the validation service.
type Server struct {
	cfg     *config.Config
	logger  *slog.Logger
	limiter *core.ValidationLimiter
	runs    RunStore
	router  *chi.Mux
	server  *http.Server
}

// NewServer creates a Server. runs may be nil, in which case reports are not
// stored and /api/runs answers 404.
func NewServer(cfg *config.Config, logger *slog.Logger, runs RunStore) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		cfg:     cfg,
		logger:  logger,
		limiter: core.NewValidationLimiter(cfg.Upload.MaxConcurrent, cfg.Upload.MaxWaitTime),
		runs:    runs,
		router:  chi.NewRouter(),
	}
	s.setupMiddleware()
	s.setupRoutes()

	s.server = &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      s.router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}
	return s
}

func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(submw.Logger(s.logger))
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.Compress(5))
	if s.cfg.Server.RequestTimeout > 0 {
		s.router.Use(middleware.Timeout(s.cfg.Server.RequestTimeout))
	}
	s.router.Use(securityHeaders)
}

func (s *Server) setupRoutes() {
	s.router.Get("/", s.handleIndex)
	s.router.Get("/healthz", s.handleHealth)

	s.router.Route("/api", func(r chi.Router) {
		r.Get("/template", s.handleTemplate)
		r.Post("/validate", s.handleValidate)
		r.Get("/runs/{runID}", s.handleGetRun)
	})
}

// Start begins listening for HTTP requests. It returns http.ErrServerClosed
// after Shutdown.
func (s *Server) Start() error {
	s.logger.Info("starting server", "addr", s.server.Addr)
	return s.server.ListenAndServe()
}

// Shutdown stops accepting connections and waits for in-flight validations.
func (s *Server) Shutdown(ctx context.Context) error {
	err := s.server.Shutdown(ctx)
	if drainErr := s.limiter.WaitForDrain(ctx); drainErr != nil {
		s.logger.Warn("validations still running at shutdown",
			"active", s.limiter.Status().Active,
			"error", drainErr,
		)
		err = errors.Join(err, drainErr)
	}
	return err
}

// Router returns the underlying chi router for testing.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// securityHeaders adds security headers to all responses.
func securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Content-Security-Policy", "default-src 'self'; style-src 'self' 'unsafe-inline'")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
		next.ServeHTTP(w, r)
	})
}

// writeJSON encodes v as JSON with the given status.
// Encoding errors are only logged since headers are already sent.
func (s *Server) writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.FromContext(r.Context(), s.logger).Error("json encode error", "error", err)
	}
}
