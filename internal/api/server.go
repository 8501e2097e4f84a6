// Package api exposes the wrapped service over HTTP.
package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/sui-wrapped/internal/config"
	"github.com/sui-wrapped/internal/indexer"
	"github.com/sui-wrapped/internal/logging"
	"github.com/sui-wrapped/internal/pricing"
)

// HealthChecker is a dependency that can report connectivity
type HealthChecker interface {
	Health(ctx context.Context) error
}

// Server is the HTTP front of the wrapped service
type Server struct {
	router  *mux.Router
	server  *http.Server
	status  *indexer.StatusService
	pricing *pricing.Service
	db      HealthChecker
	redis   HealthChecker
	logger  *logging.Logger
}

// NewServer creates the HTTP server with routes and middleware wired
func NewServer(cfg config.ServerConfig, rateCfg config.RateLimitConfig,
	status *indexer.StatusService, priceSvc *pricing.Service,
	db, redis HealthChecker, logger *logging.Logger) *Server {

	s := &Server{
		router:  mux.NewRouter(),
		status:  status,
		pricing: priceSvc,
		db:      db,
		redis:   redis,
		logger:  logger,
	}

	s.setupRoutes(rateCfg)

	s.server = &http.Server{
		Addr:         fmt.Sprintf("%s:%s", cfg.Host, cfg.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return s
}

func (s *Server) setupRoutes(rateCfg config.RateLimitConfig) {
	s.router.Use(LoggingMiddleware(s.logger))
	s.router.Use(RecoveryMiddleware(s.logger))
	s.router.Use(CORSMiddleware)
	s.router.Use(RateLimitMiddleware(NewRateLimiter(rateCfg)))
	s.router.Use(CompressionMiddleware)

	s.router.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)

	apiRouter := s.router.PathPrefix("/api").Subrouter()
	apiRouter.HandleFunc("/wrapped/{address}", s.handleWrapped).Methods(http.MethodGet, http.MethodOptions)
	apiRouter.HandleFunc("/price", s.handlePrice).Methods(http.MethodGet, http.MethodOptions)
}

// Router returns the underlying router, used by handler tests
func (s *Server) Router() http.Handler {
	return s.router
}

// Start begins serving HTTP requests, blocking until shutdown
func (s *Server) Start() error {
	s.logger.WithField("addr", s.server.Addr).Info("http server starting")
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown gracefully stops the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("http server shutting down")
	return s.server.Shutdown(ctx)
}
