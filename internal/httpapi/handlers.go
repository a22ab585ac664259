package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/Sternrassler/moviemeta/pkg/enrich"
	"github.com/Sternrassler/moviemeta/pkg/movie"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
)

const readyTimeout = 2 * time.Second

type handlers struct {
	cfg    Config
	logger zerolog.Logger
}

type fetchMetadataRequest struct {
	Movies     json.RawMessage `json:"movies"`
	UserAPIKey string          `json:"userApiKey"`
}

type fetchMetadataResponse struct {
	Movies []movie.Record `json:"movies"`
}

// fetchMetadata handles POST /api/fetch-metadata.
func (h *handlers) fetchMetadata(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.cfg.MaxBodyBytes)

	var req fetchMetadataRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, r, http.StatusBadRequest, codeInvalidRequest, msgMalformedBody)
		return
	}

	credential := strings.TrimSpace(req.UserAPIKey)
	if credential == "" {
		credential = h.cfg.ServerAPIKey
	}
	if credential == "" {
		writeError(w, r, http.StatusBadRequest, codeInvalidRequest, msgMissingAPIKey)
		return
	}

	movies, ok := decodeMovies(req.Movies)
	if !ok {
		writeError(w, r, http.StatusBadRequest, codeInvalidRequest, msgMissingMovies)
		return
	}

	records, err := h.cfg.Enricher.Enrich(r.Context(), movies, credential)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, fetchMetadataResponse{Movies: records})
	case errors.Is(err, enrich.ErrMissingCredential):
		writeError(w, r, http.StatusBadRequest, codeInvalidRequest, msgMissingAPIKey)
	case errors.Is(err, enrich.ErrMissingMovies):
		writeError(w, r, http.StatusBadRequest, codeInvalidRequest, msgMissingMovies)
	case errors.Is(err, enrich.ErrInvalidRequest):
		writeError(w, r, http.StatusBadRequest, codeInvalidRequest, "Invalid request: "+strings.TrimPrefix(err.Error(), enrich.ErrInvalidRequest.Error()+": "))
	default:
		h.logger.Error().
			Err(err).
			Str("request_id", middleware.GetReqID(r.Context())).
			Int("movies", len(movies)).
			Msg("Enrichment failed")
		writeError(w, r, http.StatusInternalServerError, codeInternal, msgUnexpected)
	}
}

// decodeMovies accepts only a JSON array. Null, a missing field or any
// other JSON type is rejected.
func decodeMovies(raw json.RawMessage) ([]movie.Input, bool) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || trimmed[0] != '[' {
		return nil, false
	}
	movies := []movie.Input{}
	if err := json.Unmarshal(trimmed, &movies); err != nil {
		return nil, false
	}
	return movies, true
}

// health handles GET /health.
func (h *handlers) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// ready handles GET /ready.
func (h *handlers) ready(w http.ResponseWriter, r *http.Request) {
	if h.cfg.Ready != nil {
		ctx, cancel := context.WithTimeout(r.Context(), readyTimeout)
		defer cancel()

		if err := h.cfg.Ready(ctx); err != nil {
			h.logger.Warn().Err(err).Msg("Readiness check failed")
			writeError(w, r, http.StatusServiceUnavailable, codeUnavailable, "dependency unavailable")
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}
