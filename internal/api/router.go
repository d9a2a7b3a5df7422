package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// buildRouter creates the HTTP router with all routes and middleware.
func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(s.requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoveryMiddleware)
	r.Use(s.corsMiddleware)
	r.Use(s.bodySizeLimitMiddleware)

	// Moonraker-compatible endpoints used by existing dashboards
	r.Route("/server/ace", func(r chi.Router) {
		r.Get("/status", s.handleAceStatus)
		r.Get("/slots", s.handleAceSlots)
		r.Post("/command", s.handleAceCommand)
		r.Post("/update_slot", s.handleUpdateSlot)
		r.Post("/set_slot_color", s.handleSetSlotColor)
		r.Post("/set_slot_type", s.handleSetSlotType)
	})

	// API v1 routes
	r.Route("/api/v1", func(r chi.Router) {
		// Health and monitoring (no auth required)
		r.Get("/health", s.handleHealth)
		r.Get("/metrics", s.handleMetrics)

		r.Route("/ace", func(r chi.Router) {
			r.Get("/state", s.handleGetState)
			r.Get("/history", s.handleGetHistory)
			r.Get("/variables", s.handleGetVariables)
			r.Get("/thermal", s.handleGetThermal)

			// Commands
			r.Group(func(r chi.Router) {
				r.Use(s.authMiddleware)

				r.Post("/load", s.handleLoad)
				r.Post("/unload", s.handleUnload)
				r.Put("/slots/{index}", s.handleConfigureSlot)
				r.Post("/slots/{index}/empty", s.handleMarkEmpty)
				r.Put("/endless-spool", s.handleSetEndlessSpool)
				r.Post("/dryer/start", s.handleStartDryer)
				r.Post("/dryer/stop", s.handleStopDryer)
				r.Post("/refresh", s.handleRefresh)
			})
		})

		r.With(s.authMiddleware).Get("/ws", s.handleWebSocket)
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
