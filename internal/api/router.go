package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// buildRouter creates the HTTP router with all routes and middleware.
func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(s.requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoveryMiddleware)
	r.Use(s.bodySizeLimitMiddleware)

	// Prometheus exposition endpoint
	if s.gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	}

	// API v1 routes
	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", s.handleHealth)
		r.Get("/system", s.handleSystem)

		// Shelf endpoints
		r.Route("/shelves", func(r chi.Router) {
			r.Get("/", s.handleListShelves)

			r.Route("/{id}", func(r chi.Router) {
				if s.store != nil {
					r.Get("/events/count", s.handleEventCount)
				}

				r.Route("/slots/{index}", func(r chi.Router) {
					r.Get("/weight", s.handleSlotWeight)
					r.Put("/conversion-factor", s.handleSetConversionFactor)
					r.Post("/calibrate", s.handleCalibrate)
					r.Post("/tare", s.handleTare)
					r.Post("/rebaseline", s.handleRebaseline)
				})
			})
		})

		// Cart endpoints
		if s.cart != nil {
			r.Route("/cart", func(r chi.Router) {
				r.Get("/", s.handleGetCart)
				r.Post("/clear", s.handleClearCart)
			})
		}
	})

	return r
}

// handleHealth returns the server health status.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"version": s.version,
	})
}
