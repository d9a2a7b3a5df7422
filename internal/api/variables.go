package api

import (
	"net/http"
)

// handleGetVariables lists the persisted variables with their source.
func (s *Server) handleGetVariables(w http.ResponseWriter, r *http.Request) {
	if s.variables == nil {
		writeError(w, http.StatusServiceUnavailable, ErrCodeUnavailable, "variable store unavailable")
		return
	}

	vars, err := s.variables.All(r.Context())
	if err != nil {
		s.logger.Error("failed to load variables", "error", err)
		writeInternalError(w, "failed to load variables")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"variables": vars,
		"count":     len(vars),
	})
}
