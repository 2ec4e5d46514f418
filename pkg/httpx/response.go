package httpx

import (
	"encoding/json"
	"net/http"
)

// Envelope is the response wrapper every storefront API endpoint returns.
type Envelope struct {
	IsSuccess  bool   `json:"isSuccess"`
	StatusCode int    `json:"statusCode"`
	Message    string `json:"message,omitempty"`
	Data       any    `json:"data,omitempty"`
}

// WriteJSON writes a JSON response with the given status code.
// It automatically sets the Content-Type header and Cache-Control headers.
func WriteJSON(w http.ResponseWriter, code int, v any) {
	NoCache(w)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// NoCache sets the Cache-Control and Pragma headers to prevent caching.
// This is commonly required for sensitive responses like tokens.
func NoCache(w http.ResponseWriter) {
	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("Pragma", "no-cache")
}

// WriteSuccess wraps data in a successful envelope.
func WriteSuccess(w http.ResponseWriter, code int, data any) {
	WriteJSON(w, code, Envelope{IsSuccess: true, StatusCode: code, Data: data})
}

// WriteFailure writes a failed envelope with the given message.
func WriteFailure(w http.ResponseWriter, code int, message string) {
	WriteJSON(w, code, Envelope{IsSuccess: false, StatusCode: code, Message: message})
}
