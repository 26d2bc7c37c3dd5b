package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"auravox/internal/chat"
)

const maxJSONBody = 1 << 20

type errorBody struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, message string, details string) {
	writeJSON(w, status, errorBody{Error: message, Details: details})
}

// writeServiceError maps domain errors onto HTTP statuses.
func (s *Server) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, chat.ErrNotFound):
		writeError(w, http.StatusNotFound, "Not found", err.Error())
	case errors.Is(err, chat.ErrInvalidInput):
		writeError(w, http.StatusBadRequest, "Invalid request", err.Error())
	default:
		s.logger.Error(err, "request failed", "method", r.Method, "path", r.URL.Path)
		writeError(w, http.StatusInternalServerError, "Internal server error", "")
	}
}

func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxJSONBody))
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return fmt.Errorf("%w: request body is empty", chat.ErrInvalidInput)
		}
		return fmt.Errorf("%w: %v", chat.ErrInvalidInput, err)
	}
	return nil
}
