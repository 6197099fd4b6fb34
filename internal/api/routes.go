package api

import (
	"net/http"
	"time"

	"sentinel/config"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// NewRouter creates and configures a Chi router with all routes
func NewRouter(h *Handler, cfg *config.Config) http.Handler {
	r := chi.NewRouter()

	// Middleware stack
	r.Use(middleware.RealIP)
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(CORSMiddleware(cfg.HTTP.CORSAllowedOrigins))
	r.Use(MetricsMiddleware)

	// Health check and Prometheus metrics
	r.Get("/health", h.HandleHealth)
	r.Handle("/metrics", promhttp.Handler())

	// API routes
	r.Route("/api", func(r chi.Router) {
		r.Get("/health", h.HandleHealth)

		// Portfolio
		r.Get("/portfolio", h.HandleGetPortfolio)

		// On-demand analysis. A cycle can outlive the analysis timeout, so
		// only this subtree gets the request deadline.
		r.With(middleware.Timeout(time.Duration(cfg.Agent.TimeoutSeconds)*time.Second)).
			Post("/analyze", h.HandleAnalyzeTicker)

		// Trading cycles
		r.Route("/cycles", func(r chi.Router) {
			r.Post("/run", h.HandleRunCycle)
			r.Get("/", h.HandleListCycles)
			r.Get("/{id}", h.HandleGetCycle)
		})

		// Order approval workflow
		r.Route("/orders", func(r chi.Router) {
			r.Get("/pending", h.HandleGetPendingOrders)
			r.Post("/{id}/approve", h.HandleApproveOrder)
			r.Post("/{id}/reject", h.HandleRejectOrder)
			r.Post("/submit", h.HandleSubmitOrders)
		})
	})

	return r
}
