package routes

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/PxPatel/auction-engine/internal/api/handlers"
	"github.com/PxPatel/auction-engine/internal/api/middleware"
)

// Options selects optional endpoints
type Options struct {
	// MetricsPath exposes Prometheus metrics when not empty
	MetricsPath string
}

// SetupRoutes configures all API routes with middleware
func SetupRoutes(engineHolder *handlers.EngineHolder, opts Options) http.Handler {
	mux := http.NewServeMux()

	// Health check
	mux.HandleFunc("GET /api/v1/health", engineHolder.HealthHandler)

	// Order endpoints
	mux.HandleFunc("POST /api/v1/orders", engineHolder.SubmitOrderHandler)
	mux.HandleFunc("POST /api/v1/orders/batch", engineHolder.BatchOrderHandler)
	mux.HandleFunc("GET /api/v1/orders/{id}", engineHolder.GetOrderHandler)
	mux.HandleFunc("PATCH /api/v1/orders/{id}", engineHolder.AmendOrderHandler)
	mux.HandleFunc("DELETE /api/v1/orders/{id}", engineHolder.CancelOrderHandler)
	mux.HandleFunc("POST /api/v1/orders/{id}/match", engineHolder.MatchOrderHandler)

	// Asset endpoints
	mux.HandleFunc("GET /api/v1/assets/{id}", engineHolder.GetAssetHandler)
	mux.HandleFunc("GET /api/v1/assets/{id}/orderbook", engineHolder.GetOrderBookHandler)
	mux.HandleFunc("GET /api/v1/assets/{id}/trades", engineHolder.GetTradesHandler)

	// Stateless matcher
	mux.HandleFunc("POST /api/v1/simulate", handlers.SimulateHandler)

	if opts.MetricsPath != "" {
		mux.Handle("GET "+opts.MetricsPath, promhttp.Handler())
	}

	// Apply middleware (order matters: Logging -> CORS -> Recovery -> Handler)
	handler := middleware.Recovery(mux)
	handler = middleware.CORS(handler)
	handler = middleware.Logging(handler)

	return handler
}
