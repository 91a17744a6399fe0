package server

import (
	"encoding/json"
	"log"
	"net/http"
)

// errorResponse is the error payload shape for every endpoint,
// including the canned timeout body in middleware.go.
type errorResponse struct {
	Error string `json:"error"`
}

// writeJSON encodes v with the given status. Encoding failures
// are only logged; the status line is already on the wire by
// then.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("encoding %T response: %v", v, err)
	}
}

// writeError sends the standard error payload.
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}
