// Package httpx holds small JSON response helpers shared by the API handlers.
package httpx

import (
	"encoding/json"
	"net/http"
)

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Errors []string `json:"errors"`
}

func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// WriteErrors writes an ErrorResponse with the given messages.
func WriteErrors(w http.ResponseWriter, status int, msgs ...string) {
	WriteJSON(w, status, ErrorResponse{Errors: msgs})
}
