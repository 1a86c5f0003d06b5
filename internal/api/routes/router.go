package routes

import (
	"net/http"

	"github.com/carebook/carebook/backend/internal/api/handlers"
	"github.com/carebook/carebook/backend/internal/api/middleware"
	"github.com/carebook/carebook/backend/internal/infrastructure/observability"
)

// Router holds all route handlers
type Router struct {
	mux *http.ServeMux

	bookabilityHandler    *handlers.BookabilityHandler
	availabilityHandler   *handlers.AvailabilityHandler
	bookingHandler        *handlers.BookingHandler
	providerSearchHandler *handlers.ProviderSearchHandler

	cacheMiddleware *middleware.CacheMiddleware
	metrics         *observability.Metrics
}

// NewRouter creates a new router
func NewRouter(
	bookabilityHandler *handlers.BookabilityHandler,
	availabilityHandler *handlers.AvailabilityHandler,
	bookingHandler *handlers.BookingHandler,
	providerSearchHandler *handlers.ProviderSearchHandler,
	cacheMiddleware *middleware.CacheMiddleware,
	metrics *observability.Metrics,
) *Router {
	return &Router{
		mux:                   http.NewServeMux(),
		bookabilityHandler:    bookabilityHandler,
		availabilityHandler:   availabilityHandler,
		bookingHandler:        bookingHandler,
		providerSearchHandler: providerSearchHandler,
		cacheMiddleware:       cacheMiddleware,
		metrics:               metrics,
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

	// Bookability endpoints
	r.mux.HandleFunc("GET /api/payers/{id}/bookable-providers", r.bookabilityHandler.GetBookableProviders)

	// Availability endpoints
	r.mux.HandleFunc("GET /api/providers/{id}/availability", r.availabilityHandler.GetProviderAvailability)
	r.mux.HandleFunc("GET /api/availability/search", r.availabilityHandler.SearchAvailability)
	r.mux.HandleFunc("POST /api/availability/populate", r.availabilityHandler.PopulateAvailability)
	r.mux.HandleFunc("POST /api/availability/invalidate", r.availabilityHandler.InvalidateAvailability)

	// Appointment endpoints
	r.mux.HandleFunc("POST /api/appointments", r.bookingHandler.BookAppointment)
	r.mux.HandleFunc("GET /api/appointments/{id}", r.bookingHandler.GetAppointment)
	r.mux.HandleFunc("DELETE /api/appointments/{id}", r.bookingHandler.CancelAppointment)

	// Provider directory endpoints
	if r.providerSearchHandler != nil {
		r.mux.HandleFunc("GET /api/providers/search", r.providerSearchHandler.SearchProviders)
	}

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
