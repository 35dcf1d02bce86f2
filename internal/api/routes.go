package api

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/ignite/offer-diagnostics/internal/config"
	"github.com/ignite/offer-diagnostics/internal/metrics"
)

// SetupRoutes configures all API routes.
func SetupRoutes(cfg config.ServerConfig, h *Handlers, health *HealthChecker, reg *metrics.Registry) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)
	r.Use(middleware.RequestID)
	if reg != nil {
		r.Use(countRequests(reg))
	}

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"Content-Disposition"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	if health == nil {
		health = NewHealthChecker()
	}
	r.Get("/health", health.HandleHealth)
	r.Get("/health/live", health.HandleLiveness)
	r.Get("/health/ready", health.HandleReadiness)
	if reg != nil {
		r.Handle("/metrics", reg.Handler())
	}

	r.Route("/api/reports", func(r chi.Router) {
		r.Get("/", h.ListReports)
		r.Post("/", h.CreateReport)
		r.Post("/json", h.CreateReportJSON)
		r.Get("/{id}", h.GetReport)
		r.Get("/{id}/actions", h.GetActions)
		r.Get("/{id}/workbook", h.DownloadWorkbook)
	})

	return r
}

// countRequests labels requests by matched route pattern and status class.
func countRequests(reg *metrics.Registry) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			route := "unmatched"
			if rc := chi.RouteContext(r.Context()); rc != nil && rc.RoutePattern() != "" {
				route = rc.RoutePattern()
			}
			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			reg.HTTPRequests.WithLabelValues(route, strconv.Itoa(status/100)+"xx").Inc()
		})
	}
}
