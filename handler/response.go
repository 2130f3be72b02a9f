// Package handler exposes the tenant-management HTTP endpoints. They are
// mounted under the reserved prefix the resolution gate bypasses, so no
// tenant binding is ever present here.
package handler

import (
	"encoding/json"
	"net/http"
)

// Envelope is the application-level response wrapper used across the
// API, including the gate's "tenant not found" rejection.
type Envelope struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Data    any    `json:"data,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, body Envelope) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func respondData(w http.ResponseWriter, status int, data any) {
	writeJSON(w, status, Envelope{Success: true, Data: data})
}

func respondError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, Envelope{Success: false, Message: message})
}
