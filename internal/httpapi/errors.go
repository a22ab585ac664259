package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
)

// Error codes returned in error payloads.
const (
	codeInvalidRequest = "invalid_request"
	codeRateLimited    = "rate_limited"
	codeInternal       = "internal_error"
	codeUnavailable    = "unavailable"
)

// Client-facing messages.
const (
	msgMissingAPIKey = "TMDB API key not provided. Please provide your TMDB API key or configure TMDB_API_KEY environment variable."
	msgMissingMovies = "Invalid request: movies array required"
	msgMalformedBody = "Invalid request: body must be a JSON object"
	msgUnexpected    = "An unexpected error occurred while fetching movie metadata"
)

type errorResponse struct {
	Error     string `json:"error"`
	Code      string `json:"code"`
	RequestID string `json:"requestId,omitempty"`
}

func writeError(w http.ResponseWriter, r *http.Request, status int, code, message string) {
	writeJSON(w, status, errorResponse{
		Error:     message,
		Code:      code,
		RequestID: middleware.GetReqID(r.Context()),
	})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
