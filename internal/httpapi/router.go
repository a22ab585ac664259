// Package httpapi exposes the enrichment pipeline over HTTP.
package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/Sternrassler/moviemeta/pkg/metrics"
	"github.com/Sternrassler/moviemeta/pkg/movie"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
)

// Enricher is the pipeline behind POST /api/fetch-metadata.
type Enricher interface {
	Enrich(ctx context.Context, movies []movie.Input, credential string) ([]movie.Record, error)
}

// ReadinessCheck reports whether a dependency is reachable.
type ReadinessCheck func(ctx context.Context) error

// Config holds the dependencies and settings of the HTTP API.
type Config struct {
	Enricher Enricher

	// ServerAPIKey is used when a request carries no userApiKey.
	ServerAPIKey string

	// Ready is consulted by GET /ready; nil means always ready.
	Ready ReadinessCheck

	// Inbound throttles /api routes per client; nil disables it.
	Inbound *ClientLimiter

	// MaxBodyBytes bounds request bodies.
	MaxBodyBytes int64

	Logger zerolog.Logger
}

// NewRouter constructs the API HTTP router.
func NewRouter(cfg Config) http.Handler {
	if cfg.Enricher == nil {
		panic("enricher cannot be nil")
	}
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = 4 << 20
	}
	h := &handlers{cfg: cfg, logger: cfg.Logger}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(cfg.Logger))
	r.Use(middleware.Recoverer)

	r.Get("/health", h.health)
	r.Get("/ready", h.ready)
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	r.Route("/api", func(r chi.Router) {
		if cfg.Inbound != nil {
			r.Use(cfg.Inbound.Middleware)
		}
		r.Post("/fetch-metadata", h.fetchMetadata)
	})

	return r
}

// requestLogger logs one line per request at debug level, or warn for 5xx.
func requestLogger(logger zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r)

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			event := logger.Debug()
			if status >= 500 {
				event = logger.Warn()
			}
			event.
				Str("request_id", middleware.GetReqID(r.Context())).
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", status).
				Int("bytes", ww.BytesWritten()).
				Dur("duration", time.Since(start)).
				Msg("HTTP request")
		})
	}
}
