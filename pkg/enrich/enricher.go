package enrich

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Sternrassler/moviemeta/pkg/logging"
	"github.com/Sternrassler/moviemeta/pkg/movie"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// Prometheus metrics for enrichment runs.
var (
	enrichTitlesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "moviemeta_enrich_titles_total",
		Help: "Total unique titles resolved by outcome",
	}, []string{"outcome"})

	enrichBatchesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "moviemeta_enrich_batches_total",
		Help: "Total number of batches processed",
	})

	enrichDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "moviemeta_enrich_duration_seconds",
		Help:    "Duration of complete enrichment requests",
		Buckets: []float64{0.1, 0.5, 1, 5, 10, 30, 60, 120, 300},
	})
)

// DefaultBatchSize is the number of titles resolved concurrently.
const DefaultBatchSize = 10

// Errors returned for requests that cannot be processed.
var (
	// ErrInvalidRequest is wrapped by every validation error.
	ErrInvalidRequest = errors.New("invalid request")

	// ErrMissingMovies is returned when no movie list was supplied.
	ErrMissingMovies = fmt.Errorf("%w: movies array required", ErrInvalidRequest)

	// ErrMissingCredential is returned when no TMDB API key is available.
	ErrMissingCredential = fmt.Errorf("%w: TMDB API key not provided", ErrInvalidRequest)
)

// Resolver resolves a single title. It must never fail; *catalog.Client
// implements it.
type Resolver interface {
	Resolve(ctx context.Context, title, credential string) movie.Result
}

// ProgressFunc is called after each batch with the number of unique titles
// resolved so far and the total.
type ProgressFunc func(done, total int)

// Config holds enricher configuration.
type Config struct {
	// BatchSize is the maximum number of lookups in flight per request.
	BatchSize int
}

// DefaultConfig returns the default enricher configuration.
func DefaultConfig() Config {
	return Config{BatchSize: DefaultBatchSize}
}

// Option configures an Enricher.
type Option func(*Enricher)

// WithProgress registers a callback invoked after every batch.
func WithProgress(fn ProgressFunc) Option {
	return func(e *Enricher) {
		e.progress = fn
	}
}

// WithLogger overrides the component logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(e *Enricher) {
		e.logger = logger
	}
}

// WithClock overrides the time source used for generated ids.
func WithClock(now func() time.Time) Option {
	return func(e *Enricher) {
		if now != nil {
			e.now = now
		}
	}
}

// Enricher runs the batch enrichment pipeline.
type Enricher struct {
	resolver Resolver
	config   Config
	logger   zerolog.Logger
	progress ProgressFunc
	now      func() time.Time
}

// New creates a new enricher.
func New(resolver Resolver, config Config, opts ...Option) *Enricher {
	if resolver == nil {
		panic("resolver cannot be nil")
	}
	if config.BatchSize <= 0 {
		config.BatchSize = DefaultBatchSize
	}

	e := &Enricher{
		resolver: resolver,
		config:   config,
		logger:   logging.NewLogger("enrich"),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Enrich resolves every unique title in movies and returns the deduplicated
// records. The result never has more entries than movies.
func (e *Enricher) Enrich(ctx context.Context, movies []movie.Input, credential string) ([]movie.Record, error) {
	start := time.Now()

	// Step 1: Validate
	if err := Validate(movies, credential); err != nil {
		return nil, err
	}

	// Step 2: Deduplicate by normalized title
	unique := DedupInputs(movies)

	// Step 3: Partition
	batches := Partition(unique, e.config.BatchSize)

	e.logger.Info().
		Int("movies", len(movies)).
		Int("unique_titles", len(unique)).
		Int("batches", len(batches)).
		Msg("Starting enrichment")

	// Step 4: Resolve batches sequentially
	results := make([]movie.Result, 0, len(unique))
	for i, batch := range batches {
		if err := ctx.Err(); err != nil {
			e.logger.Warn().
				Int("batches_done", i).
				Int("batches", len(batches)).
				Msg("Enrichment cancelled")
			return nil, fmt.Errorf("enrich cancelled after %d of %d batches: %w", i, len(batches), err)
		}

		batchResults, err := e.resolveBatch(ctx, batch, credential)
		if err != nil {
			return nil, fmt.Errorf("resolve batch %d: %w", i+1, err)
		}
		results = append(results, batchResults...)
		enrichBatchesTotal.Inc()

		e.logger.Info().
			Int("batch", i+1).
			Int("batches", len(batches)).
			Int("resolved", len(results)).
			Int("total", len(unique)).
			Msg("Batch complete")

		if e.progress != nil {
			e.progress(len(results), len(unique))
		}
	}

	// Step 5: Final dedup by catalog id
	records := FinalizeRecords(results, e.now())

	counts := countOutcomes(results)
	for outcome, n := range counts {
		enrichTitlesTotal.WithLabelValues(string(outcome)).Add(float64(n))
	}
	duration := time.Since(start)
	enrichDuration.Observe(duration.Seconds())

	e.logger.Info().
		Int("unique_titles", len(unique)).
		Int("records", len(records)).
		Int("matched", counts[movie.OutcomeMatched]).
		Int("no_match", counts[movie.OutcomeNoMatch]).
		Int("failed", counts[movie.OutcomeFailed]).
		Dur("duration", duration).
		Msg("Enrichment complete")

	return records, nil
}

// resolveBatch resolves every title of a batch concurrently. Results keep
// the batch order.
func (e *Enricher) resolveBatch(ctx context.Context, batch []movie.Input, credential string) ([]movie.Result, error) {
	results := make([]movie.Result, len(batch))

	var g errgroup.Group
	for i, in := range batch {
		g.Go(func() error {
			results[i] = e.resolver.Resolve(ctx, in.Title, credential)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func countOutcomes(results []movie.Result) map[movie.Outcome]int {
	counts := make(map[movie.Outcome]int, 3)
	for _, r := range results {
		counts[r.Outcome]++
	}
	return counts
}
