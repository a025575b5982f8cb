package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/snapwatch/worker/internal/domain"
)

// errorResponse is the envelope every failed request is wrapped in
type errorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

// respondJSON writes a JSON response with the given status code
func respondJSON(w http.ResponseWriter, data interface{}, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// respondError writes an error JSON response
func respondError(w http.ResponseWriter, message string, status int) {
	respondJSON(w, errorResponse{Success: false, Error: message}, status)
}

// respondDomainError maps a usecase error to a status code. Internal
// errors are logged here since the handler is their last stop.
func respondDomainError(w http.ResponseWriter, err error) {
	status := statusForError(err)
	if status == http.StatusInternalServerError {
		log.Printf("[HTTP] request failed: %v", err)
	}
	respondError(w, err.Error(), status)
}

func statusForError(err error) int {
	switch {
	case errors.Is(err, domain.ErrInvalidInput),
		errors.Is(err, domain.ErrInvalidID),
		errors.Is(err, domain.ErrInvalidDomain),
		errors.Is(err, domain.ErrInvalidViewport),
		errors.Is(err, domain.ErrScriptInvalid),
		errors.Is(err, domain.ErrUnknownActionType),
		errors.Is(err, domain.ErrSameScreenshot),
		errors.Is(err, domain.ErrDifferentPageOwner):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrScreenshotNotFound),
		errors.Is(err, domain.ErrPageNotFound),
		errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	}
	return http.StatusInternalServerError
}

// decodeJSON decodes JSON request body with error handling
func decodeJSON[T any](r *http.Request, w http.ResponseWriter) (*T, bool) {
	// Add request body size limit
	r.Body = http.MaxBytesReader(w, r.Body, 1024*1024) // 1MB limit

	var req T
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, "invalid request body", http.StatusBadRequest)
		return nil, false
	}
	return &req, true
}
