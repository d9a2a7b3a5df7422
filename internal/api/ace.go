package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/ace-core/internal/ace"
)

// loadRequest is the body for POST /ace/load.
type loadRequest struct {
	Slot *int `json:"slot"`
}

// endlessSpoolRequest is the body for PUT /ace/endless-spool.
type endlessSpoolRequest struct {
	Enabled *bool `json:"enabled"`
}

// dryerRequest is the body for POST /ace/dryer/start. A zero duration uses
// the configured default.
type dryerRequest struct {
	Temp     int `json:"temp"`
	Duration int `json:"duration"`
}

// acceptedResponse is returned once a command has been handed to the
// command channel. State is the optimistic snapshot.
type acceptedResponse struct {
	Status string          `json:"status"`
	State  ace.DeviceState `json:"state"`
}

// handleGetState returns the current reconciled state.
func (s *Server) handleGetState(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.cache.Read())
}

func (s *Server) handleLoad(w http.ResponseWriter, r *http.Request) {
	var req loadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	if req.Slot == nil {
		writeBadRequest(w, "slot is required")
		return
	}
	s.accept(w, s.dispatcher.Load(r.Context(), *req.Slot))
}

func (s *Server) handleUnload(w http.ResponseWriter, r *http.Request) {
	s.accept(w, s.dispatcher.Unload(r.Context()))
}

func (s *Server) handleConfigureSlot(w http.ResponseWriter, r *http.Request) {
	index, ok := slotParam(w, r)
	if !ok {
		return
	}

	var cfg ace.SlotConfig
	if err := json.NewDecoder(r.Body).Decode(&cfg); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	s.accept(w, s.dispatcher.ConfigureSlot(r.Context(), index, cfg))
}

func (s *Server) handleMarkEmpty(w http.ResponseWriter, r *http.Request) {
	index, ok := slotParam(w, r)
	if !ok {
		return
	}
	s.accept(w, s.dispatcher.MarkEmpty(r.Context(), index))
}

func (s *Server) handleSetEndlessSpool(w http.ResponseWriter, r *http.Request) {
	var req endlessSpoolRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	if req.Enabled == nil {
		writeBadRequest(w, "enabled is required")
		return
	}
	s.accept(w, s.dispatcher.SetEndlessSpool(r.Context(), *req.Enabled))
}

func (s *Server) handleStartDryer(w http.ResponseWriter, r *http.Request) {
	var req dryerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	s.accept(w, s.dispatcher.StartDryer(r.Context(), req.Temp, req.Duration))
}

func (s *Server) handleStopDryer(w http.ResponseWriter, r *http.Request) {
	s.accept(w, s.dispatcher.StopDryer(r.Context()))
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	s.accept(w, s.dispatcher.Refresh(r.Context()))
}

// handleGetThermal returns the temperature guard's readings.
func (s *Server) handleGetThermal(w http.ResponseWriter, _ *http.Request) {
	if s.thermal == nil {
		writeError(w, http.StatusServiceUnavailable, ErrCodeUnavailable, "thermal monitor disabled")
		return
	}
	writeJSON(w, http.StatusOK, s.thermal.Status())
}

// accept writes 202 with the current snapshot, or the mapped error.
func (s *Server) accept(w http.ResponseWriter, err error) {
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, acceptedResponse{
		Status: "accepted",
		State:  s.cache.Read(),
	})
}

// slotParam parses the {index} URL parameter. Range checks are left to the
// dispatcher so they report the domain error.
func slotParam(w http.ResponseWriter, r *http.Request) (int, bool) {
	index, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil {
		writeBadRequest(w, "slot index must be an integer")
		return 0, false
	}
	return index, true
}
