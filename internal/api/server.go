package api

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/eshaffer321/marketplace-order-sync/internal/api/handlers"
	"github.com/eshaffer321/marketplace-order-sync/internal/api/middleware"
	"github.com/eshaffer321/marketplace-order-sync/internal/application/service"
	"github.com/eshaffer321/marketplace-order-sync/internal/infrastructure/storage"
)

// Config holds API server configuration.
type Config struct {
	Port           int
	AllowedOrigins []string

	// Marketplace names the configured client in /health
	Marketplace string
}

// DefaultConfig returns sensible defaults for the API server.
func DefaultConfig() Config {
	return Config{
		Port:           8080,
		AllowedOrigins: middleware.DefaultCORSConfig().AllowedOrigins,
	}
}

// Server is the HTTP API server.
type Server struct {
	config      Config
	router      chi.Router
	httpServer  *http.Server
	logger      *slog.Logger
	repo        storage.Repository
	syncService *service.SyncService
	oauth       handlers.OAuthFlow
	credentials handlers.CredentialStatus
}

// NewServer creates a new API server.
// Sync endpoints are mounted only when syncService is non-nil, OAuth and
// credential endpoints only when oauth and credentials are non-nil.
func NewServer(cfg Config, repo storage.Repository, syncService *service.SyncService, oauth handlers.OAuthFlow, credentials handlers.CredentialStatus, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{
		config:      cfg,
		router:      chi.NewRouter(),
		logger:      logger,
		repo:        repo,
		syncService: syncService,
		oauth:       oauth,
		credentials: credentials,
	}

	s.setupMiddleware()
	s.setupRoutes()

	return s
}

// setupMiddleware configures global middleware.
func (s *Server) setupMiddleware() {
	corsConfig := middleware.DefaultCORSConfig()
	corsConfig.AllowedOrigins = s.config.AllowedOrigins
	s.router.Use(middleware.CORS(corsConfig))

	s.router.Use(middleware.Logging(s.logger))
}

// setupRoutes configures all API routes.
func (s *Server) setupRoutes() {
	// Health check (no /api prefix - for load balancers)
	healthHandler := handlers.NewHealthHandler(s.repo, s.config.Marketplace, s.logger)
	s.router.Get("/health", healthHandler.ServeHTTP)

	if s.oauth != nil {
		authHandler := handlers.NewAuthHandler(s.oauth, s.credentials)
		s.router.Get("/auth/marketplace/connect", authHandler.Connect)
		s.router.Get("/auth/marketplace/callback", authHandler.Callback)
	}

	s.router.Route("/api", func(r chi.Router) {
		// Orders
		ordersHandler := handlers.NewOrdersHandler(s.repo)
		r.Get("/orders", ordersHandler.List)
		r.Get("/orders/{orderId}", ordersHandler.Get)

		// Sync runs (historical)
		runsHandler := handlers.NewRunsHandler(s.repo)
		r.Get("/runs", runsHandler.List)
		r.Get("/runs/{id}", runsHandler.Get)

		if s.credentials != nil {
			authHandler := handlers.NewAuthHandler(s.oauth, s.credentials)
			r.Get("/credentials/{principalId}", authHandler.Status)
		}

		// Sync operations (live sync jobs)
		if s.syncService != nil {
			syncHandler := handlers.NewSyncHandler(s.syncService)
			r.Post("/sync/orders", syncHandler.SyncOrders)
			r.Post("/sync", syncHandler.StartSync)
			r.Get("/sync", syncHandler.ListAllSyncs)
			r.Get("/sync/active", syncHandler.ListActiveSyncs)
			r.Get("/sync/{jobId}", syncHandler.GetSyncStatus)
			r.Delete("/sync/{jobId}", syncHandler.CancelSync)
		}
	})
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	addr := fmt.Sprintf(":%d", s.config.Port)

	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	s.logger.Info("starting API server", "addr", addr)

	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server error: %w", err)
	}

	return nil
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down API server")

	if s.httpServer == nil {
		return nil
	}

	return s.httpServer.Shutdown(ctx)
}

// Router returns the chi router for testing.
func (s *Server) Router() chi.Router {
	return s.router
}
