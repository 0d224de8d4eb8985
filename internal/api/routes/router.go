package routes

import (
	"net/http"

	"github.com/seanokelly/analogmarket/internal/api/handlers"
	"github.com/seanokelly/analogmarket/internal/api/middleware"
	"github.com/seanokelly/analogmarket/internal/infrastructure/observability"
)

// Router holds all route handlers
type Router struct {
	mux *http.ServeMux

	productHandler         *handlers.ProductHandler
	rationalizationHandler *handlers.RationalizationHandler

	cacheMiddleware *middleware.CacheMiddleware
	adminToken      string
	metrics         *observability.Metrics
}

// NewRouter creates a new router
func NewRouter(
	productHandler *handlers.ProductHandler,
	rationalizationHandler *handlers.RationalizationHandler,
	cacheMiddleware *middleware.CacheMiddleware,
	adminToken string,
	metrics *observability.Metrics,
) *Router {
	return &Router{
		mux:                    http.NewServeMux(),
		productHandler:         productHandler,
		rationalizationHandler: rationalizationHandler,
		cacheMiddleware:        cacheMiddleware,
		adminToken:             adminToken,
		metrics:                metrics,
	}
}

// SetupRoutes configures all application routes
func (r *Router) SetupRoutes() http.Handler {
	// Health check endpoint
	r.mux.HandleFunc("GET /health", func(w http.ResponseWriter, req *http.Request) {
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte("OK")); err != nil {
			return
		}
	})

	// Storefront product endpoints
	r.mux.HandleFunc("GET /api/products", r.productHandler.ListProducts)
	r.mux.HandleFunc("GET /api/products/{id}", r.productHandler.GetProduct)

	// Admin pipeline endpoints, guarded by bearer token
	admin := middleware.AdminAuthMiddleware(r.adminToken)

	r.mux.Handle("POST /api/admin/products/rationalize", admin(http.HandlerFunc(r.rationalizationHandler.RationalizeCatalog)))
	r.mux.Handle("POST /api/admin/products/{id}/rationalize", admin(http.HandlerFunc(r.rationalizationHandler.RationalizeProduct)))
	r.mux.Handle("POST /api/admin/products/categorize", admin(http.HandlerFunc(r.rationalizationHandler.CategorizeCatalog)))
	r.mux.Handle("POST /api/admin/products/{id}/categorize", admin(http.HandlerFunc(r.rationalizationHandler.CategorizeProduct)))
	r.mux.Handle("GET /api/admin/products/rationalize/status", admin(http.HandlerFunc(r.rationalizationHandler.GetCatalogStatus)))

	// Apply middleware in reverse order (last middleware wraps first)
	// CORS must be outermost so cached responses also get CORS headers.

	var handler http.Handler = r.mux
	handler = middleware.LoggingMiddleware(handler)

	// Apply cache middleware if available
	if r.cacheMiddleware != nil {
		handler = r.cacheMiddleware.Middleware(handler)
	}

	handler = middleware.ObservabilityMiddleware(r.metrics)(handler)

	// Apply HTTP performance optimizations (compression, ETag, cache headers)
	handler = middleware.ResponseOptimization(handler)

	// CORS wraps everything so headers are set even on cache HITs
	handler = middleware.CORSMiddleware(handler)

	return handler
}
