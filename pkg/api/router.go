// Package api provides HTTP API server components.
package api

import (
	"github.com/go-chi/chi/v5"

	"github.com/orderflow/orderflow/config"
	"github.com/orderflow/orderflow/pkg/api/handlers"
	"github.com/orderflow/orderflow/pkg/api/middleware"
	"github.com/orderflow/orderflow/pkg/logger"
)

// Handlers holds all HTTP handlers.
type Handlers struct {
	// Orders handles order and saga endpoints
	Orders *handlers.OrderHandler

	// Health handles health check endpoints
	Health *handlers.HealthHandler

	// Metrics is the optional metrics recorder
	Metrics middleware.MetricsRecorder
}

// NewRouter creates a new chi router with middleware and routes.
func NewRouter(cfg *config.Config, log logger.Logger, h *Handlers) chi.Router {
	r := chi.NewRouter()

	// Register global middleware
	r.Use(middleware.RequestID())
	r.Use(middleware.Tracing(middleware.DefaultTracingOptions()))
	r.Use(middleware.Logger(log))
	r.Use(middleware.Recovery(log))

	// Add metrics middleware if provided
	if h.Metrics != nil {
		r.Use(middleware.Metrics(h.Metrics))
	}

	r.Use(middleware.CORS(&cfg.Server.CORS))
	r.Use(middleware.RateLimit(cfg.Server.RateLimit))
	r.Use(middleware.Timeout(cfg.Server.HTTP.ReadTimeout))

	RegisterRoutes(r, h)

	return r
}

// RegisterRoutes registers all API routes.
func RegisterRoutes(r chi.Router, h *Handlers) {
	// API v1 routes
	r.Route("/api/v1", func(r chi.Router) {
		if h.Orders != nil {
			r.Route("/orders", func(r chi.Router) {
				r.Post("/", h.Orders.CreateOrder)
				r.Get("/{id}", h.Orders.GetOrder)
				r.Get("/{id}/saga", h.Orders.GetSaga)
			})
		}
	})

	// Health check routes (not versioned)
	if h.Health != nil {
		r.Get("/healthz", h.Health.Health)
		r.Get("/readyz", h.Health.Ready)
		r.Get("/status", h.Health.Status)
	}
}
