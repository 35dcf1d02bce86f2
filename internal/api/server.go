package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/ignite/offer-diagnostics/internal/config"
	"github.com/ignite/offer-diagnostics/internal/metrics"
	"github.com/ignite/offer-diagnostics/internal/service/diagnostics"
)

// Server represents the API server
type Server struct {
	config  config.ServerConfig
	router  *chi.Mux
	server  *http.Server
	handler *Handlers
}

// NewServer wires the report handlers, health checks and metrics onto one router.
// health and reg may be nil.
func NewServer(cfg config.ServerConfig, svc *diagnostics.Service, health *HealthChecker, reg *metrics.Registry) *Server {
	h := NewHandlers(svc, int64(cfg.MaxUploadMB)<<20)
	return &Server{
		config:  cfg,
		router:  SetupRoutes(cfg, h, health, reg),
		handler: h,
	}
}

// ListenAndServe starts the HTTP server
func (s *Server) ListenAndServe() error {
	s.server = &http.Server{
		Addr:    s.config.Addr(),
		Handler: s.router,
		// report runs over a full workbook can take a while to write back
		ReadTimeout:       2 * time.Minute,
		ReadHeaderTimeout: 15 * time.Second,
		WriteTimeout:      5 * time.Minute,
		IdleTimeout:       120 * time.Second,
	}
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// Handler returns the HTTP handler for testing
func (s *Server) Handler() http.Handler {
	return s.router
}
