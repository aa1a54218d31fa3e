package http

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/custodia-labs/sercha-sync/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-sync/internal/core/ports/driving"
)

// Pinger is a simple health check interface
type Pinger interface {
	Ping(ctx context.Context) error
}

// Server is the operator HTTP surface of the sync controller
type Server struct {
	httpServer *http.Server
	router     *http.ServeMux
	handler    http.Handler
	version    string
	logger     *slog.Logger

	syncService    driving.SyncService
	catalogService driving.CatalogService

	taskQueue   driven.TaskQueue // optional
	db          Pinger
	redisClient Pinger // optional
}

// Config holds server configuration
type Config struct {
	Host           string
	Port           int
	Version        string
	AllowedOrigins []string
	Logger         *slog.Logger
}

// DefaultConfig returns sensible defaults
func DefaultConfig() Config {
	return Config{
		Host:    "0.0.0.0",
		Port:    8080,
		Version: "dev",
	}
}

// Dependencies are the services and health targets the server exposes
type Dependencies struct {
	SyncService    driving.SyncService
	CatalogService driving.CatalogService
	TaskQueue      driven.TaskQueue
	DB             Pinger
	Redis          Pinger
}

// NewServer creates a new HTTP server
func NewServer(cfg Config, deps Dependencies) *Server {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{
		router:         http.NewServeMux(),
		version:        cfg.Version,
		logger:         logger,
		syncService:    deps.SyncService,
		catalogService: deps.CatalogService,
		taskQueue:      deps.TaskQueue,
		db:             deps.DB,
		redisClient:    deps.Redis,
	}
	s.setupRoutes()

	var handler http.Handler = s.router
	handler = NewLoggingMiddleware(logger).Handler(handler)
	handler = NewRecoveryMiddleware(logger).Handler(handler)
	if len(cfg.AllowedOrigins) > 0 {
		handler = NewCORSMiddleware(cfg.AllowedOrigins).Handler(handler)
	}
	s.handler = handler

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:      handler,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return s
}

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() {
	s.router.HandleFunc("GET /health", s.handleHealth)
	s.router.HandleFunc("GET /ready", s.handleReady)
	s.router.HandleFunc("GET /version", s.handleVersion)

	// Syncs
	s.router.HandleFunc("POST /api/v1/syncs", s.handleCreateSync)
	s.router.HandleFunc("GET /api/v1/syncs", s.handleListSyncs)
	s.router.HandleFunc("GET /api/v1/syncs/{id}", s.handleGetSync)
	s.router.HandleFunc("PUT /api/v1/syncs/{id}", s.handleUpdateSync)
	s.router.HandleFunc("DELETE /api/v1/syncs/{id}", s.handleDeleteSync)
	s.router.HandleFunc("POST /api/v1/syncs/{id}/events/{event}", s.handleFireEvent)
	s.router.HandleFunc("POST /api/v1/syncs/{id}/run", s.handleTriggerRun)
	s.router.HandleFunc("GET /api/v1/syncs/{id}/runs", s.handleListRuns)
	s.router.HandleFunc("GET /api/v1/syncs/{id}/descriptor", s.handleGetDescriptor)

	// Catalogs
	s.router.HandleFunc("PUT /api/v1/connectors/{id}/catalog", s.handleReplaceCatalog)
	s.router.HandleFunc("GET /api/v1/connectors/{id}/catalog", s.handleGetCatalog)
	s.router.HandleFunc("GET /api/v1/connectors/{id}/catalog/streams/{name}", s.handleGetStream)

	// Queue
	s.router.HandleFunc("GET /api/v1/queue/stats", s.handleQueueStats)
}

// Handler returns the fully wrapped handler, mainly for tests
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Start serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("starting server", "addr", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	s.logger.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	s.logger.Info("server stopped")
	return nil
}

// Stop stops the server
func (s *Server) Stop(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
