// internal/api/router.go
package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"streamcart-orders/internal/api/handler"
	apimw "streamcart-orders/internal/api/middleware"
	"streamcart-orders/internal/api/types"
)

// RouterDeps carries everything the HTTP surface is built from.
type RouterDeps struct {
	AuthHandler   *handler.AuthHandler
	OrderHandler  *handler.OrderHandler
	Authenticator *apimw.Authenticator
	Metrics       *apimw.HTTPMetrics // Optional
	Gatherer      prometheus.Gatherer
}

// NewRouter sets up and returns a new HTTP router.
func NewRouter(deps RouterDeps) http.Handler {
	r := chi.NewRouter()

	// Global middlewares
	r.Use(middleware.RequestID)                       // Add a request ID to the context
	r.Use(middleware.RealIP)                          // Use the real IP address
	r.Use(middleware.Logger)                          // Log HTTP requests
	r.Use(middleware.Recoverer)                       // Recover from panics and return 500
	r.Use(middleware.Timeout(handler.DefaultTimeout)) // Bound every request
	if deps.Metrics != nil {
		r.Use(deps.Metrics.Middleware)
	}

	// Health check endpoint
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(types.HealthResponse{Status: "ok"})
	})

	if deps.Gatherer != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{}))
	}

	// Public authentication routes
	r.Route("/auth", func(r chi.Router) {
		r.Post("/register", deps.AuthHandler.Register)
		r.Post("/login", deps.AuthHandler.Login)
	})

	// Order routes run with the caller's identity attached
	r.Route("/orders", func(r chi.Router) {
		r.Use(deps.Authenticator.Middleware)
		r.Post("/", deps.OrderHandler.CreateOrder)
		r.Get("/mine", deps.OrderHandler.ListMyOrders) // Must precede /{orderID}
		r.Get("/{orderID}", deps.OrderHandler.GetOrder)
	})

	return r
}
