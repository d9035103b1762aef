package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/iddaa-lens/jobrunner/internal/config"
	"github.com/iddaa-lens/jobrunner/pkg/handlers/health"
	jobshandler "github.com/iddaa-lens/jobrunner/pkg/handlers/jobs"
	"github.com/iddaa-lens/jobrunner/pkg/jobs"
	"github.com/iddaa-lens/jobrunner/pkg/logger"
	"github.com/iddaa-lens/jobrunner/pkg/middleware"
)

// Server represents the API server
type Server struct {
	router   chi.Router
	http     *http.Server
	logger   *logger.Logger
	handlers struct {
		health *health.Handler
		jobs   *jobshandler.Handler
	}
}

// New creates a new server instance around a job manager. dbStats may be
// nil when no database is configured.
func New(cfg *config.Config, log *logger.Logger, manager *jobs.Manager, dbStats health.StatsFunc) *Server {
	server := &Server{
		router: chi.NewRouter(),
		logger: log,
	}

	server.handlers.health = health.NewHandler(manager, dbStats, log)
	server.handlers.jobs = jobshandler.NewHandler(manager, log)

	server.setupRoutes()

	server.http = &http.Server{
		Addr:              cfg.Addr(),
		Handler:           server.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	return server
}

// setupRoutes configures all the API routes
func (s *Server) setupRoutes() {
	s.router.Use(middleware.RequestID(s.logger))
	s.router.Use(middleware.CORS)

	s.router.Get("/health", s.handlers.health.HealthCheck)
	s.handlers.jobs.Routes(s.router)
}

// Handler exposes the router, mainly for tests
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start serves HTTP until Shutdown is called
func (s *Server) Start() error {
	s.logger.Info().
		Str("action", "server_start").
		Str("addr", s.http.Addr).
		Msg("Starting API server")

	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server failed on %s: %w", s.http.Addr, err)
	}

	return nil
}

// Shutdown stops accepting requests and waits for in-flight ones
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info().
		Str("action", "server_shutdown").
		Msg("Shutting down API server")
	return s.http.Shutdown(ctx)
}
