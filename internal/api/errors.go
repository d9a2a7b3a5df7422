package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/nerrad567/ace-core/internal/ace"
)

// Error represents a structured error response.
type Error struct {
	Status  int    `json:"status"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Common error codes.
const (
	ErrCodeBadRequest     = "bad_request"
	ErrCodeNotFound       = "not_found"
	ErrCodeUnauthorized   = "unauthorised"
	ErrCodeForbidden      = "forbidden"
	ErrCodeConflict       = "conflict"
	ErrCodeInternal       = "internal_error"
	ErrCodeValidation     = "validation_error"
	ErrCodeMethodNotAllow = "method_not_allowed"
	ErrCodeUnavailable    = "service_unavailable"
	ErrCodeSendFailed     = "send_failed"
)

// writeJSON writes a JSON response with the given status code and payload.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		//nolint:errcheck // Best-effort write to response; connection may be closed
		json.NewEncoder(w).Encode(v)
	}
}

// writeError writes a structured error response.
func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, Error{
		Status:  status,
		Code:    code,
		Message: message,
	})
}

// writeBadRequest writes a 400 error response.
func writeBadRequest(w http.ResponseWriter, message string) {
	writeError(w, http.StatusBadRequest, ErrCodeBadRequest, message)
}

// writeNotFound writes a 404 error response.
func writeNotFound(w http.ResponseWriter, message string) {
	writeError(w, http.StatusNotFound, ErrCodeNotFound, message)
}

// writeUnauthorized writes a 401 error response.
func writeUnauthorized(w http.ResponseWriter, message string) {
	writeError(w, http.StatusUnauthorized, ErrCodeUnauthorized, message)
}

// writeInternalError writes a 500 error response.
func writeInternalError(w http.ResponseWriter, message string) {
	writeError(w, http.StatusInternalServerError, ErrCodeInternal, message)
}

// writeResult writes a Moonraker-style {"result": ...} envelope.
func writeResult(w http.ResponseWriter, status int, v any) {
	writeJSON(w, status, map[string]any{"result": v})
}

// writeDomainError maps ace errors onto HTTP responses. Validation failures
// are 400, state conflicts 409, missing stored slots 404 and transport
// failures 502.
func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ace.ErrInvalidSlot),
		errors.Is(err, ace.ErrInvalidMaterial),
		errors.Is(err, ace.ErrInvalidColor),
		errors.Is(err, ace.ErrInvalidTemperature),
		errors.Is(err, ace.ErrInvalidDryerTemp),
		errors.Is(err, ace.ErrInvalidDuration):
		writeError(w, http.StatusBadRequest, ErrCodeValidation, err.Error())
	case errors.Is(err, ace.ErrSlotEmpty), errors.Is(err, ace.ErrInventoryMissing):
		writeError(w, http.StatusConflict, ErrCodeConflict, err.Error())
	case errors.Is(err, ace.ErrSlotNotFound):
		writeNotFound(w, err.Error())
	case errors.Is(err, ace.ErrSendFailed):
		writeError(w, http.StatusBadGateway, ErrCodeSendFailed, err.Error())
	default:
		writeInternalError(w, err.Error())
	}
}
