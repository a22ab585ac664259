// Package catalog resolves free-text movie titles against the TMDB search
// API, with shared caching, admission control and 429 handling.
package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/Sternrassler/moviemeta/pkg/cache"
	"github.com/Sternrassler/moviemeta/pkg/logging"
	"github.com/Sternrassler/moviemeta/pkg/movie"
	"github.com/Sternrassler/moviemeta/pkg/ratelimit"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"
)

// Prometheus metrics for catalog requests.
var (
	catalogRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "moviemeta_catalog_requests_total",
		Help: "Total TMDB search requests by HTTP status",
	}, []string{"status"})

	catalogRequestDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "moviemeta_catalog_request_duration_seconds",
		Help:    "TMDB search request duration in seconds",
		Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5},
	})

	catalogErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "moviemeta_catalog_errors_total",
		Help: "Total failed lookups by error class",
	}, []string{"class"})
)

// Catalog defaults.
const (
	DefaultBaseURL      = "https://api.themoviedb.org/3"
	DefaultImageBaseURL = "https://image.tmdb.org/t/p/w500"
	DefaultTimeout      = 10 * time.Second

	searchPath   = "/search/movie"
	maxBodyBytes = 4 << 20
)

// Config holds the client configuration.
type Config struct {
	// BaseURL is the TMDB API root, without trailing slash.
	BaseURL string

	// ImageBaseURL is prefixed to poster paths.
	ImageBaseURL string

	// Language is sent as the language query parameter when set.
	Language string

	// MaxThrottleRetries is the number of retries after a 429.
	MaxThrottleRetries int

	// DefaultRetryAfter is waited after a 429 without a usable Retry-After.
	DefaultRetryAfter time.Duration

	// Timeout bounds a single HTTP call.
	Timeout time.Duration
}

// DefaultConfig returns the default client configuration.
func DefaultConfig() Config {
	return Config{
		BaseURL:            DefaultBaseURL,
		ImageBaseURL:       DefaultImageBaseURL,
		MaxThrottleRetries: DefaultMaxThrottleRetries,
		DefaultRetryAfter:  DefaultRetryAfter,
		Timeout:            DefaultTimeout,
	}
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithLogger overrides the component logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithSleep replaces the function used to wait after a 429 (for testing).
func WithSleep(sleep func(ctx context.Context, d time.Duration) error) Option {
	return func(c *Client) {
		if sleep != nil {
			c.sleep = sleep
		}
	}
}

// WithClock overrides the time source used for Retry-After dates and
// fallback ids.
func WithClock(now func() time.Time) Option {
	return func(c *Client) {
		if now != nil {
			c.now = now
		}
	}
}

// Client looks up titles in the TMDB catalog.
type Client struct {
	httpClient *http.Client
	admitter   ratelimit.Admitter
	cache      *cache.Manager
	cfg        Config
	logger     zerolog.Logger
	flights    singleflight.Group
	sleep      func(ctx context.Context, d time.Duration) error
	now        func() time.Time
}

// New creates a new catalog client. The admitter and lookup cache are
// usually shared by every client in the process.
func New(cfg Config, admitter ratelimit.Admitter, lookupCache *cache.Manager, opts ...Option) (*Client, error) {
	if admitter == nil {
		return nil, fmt.Errorf("admitter is required")
	}
	if lookupCache == nil {
		return nil, fmt.Errorf("lookup cache is required")
	}

	cfg.BaseURL = strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("base url is required")
	}
	if _, err := url.Parse(cfg.BaseURL); err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if cfg.ImageBaseURL == "" {
		cfg.ImageBaseURL = DefaultImageBaseURL
	}
	if cfg.MaxThrottleRetries < 0 {
		return nil, fmt.Errorf("max_throttle_retries must be >= 0 (got %d)", cfg.MaxThrottleRetries)
	}
	if cfg.DefaultRetryAfter < 0 {
		return nil, fmt.Errorf("default_retry_after must be >= 0 (got %v)", cfg.DefaultRetryAfter)
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}

	c := &Client{
		httpClient: &http.Client{Timeout: cfg.Timeout},
		admitter:   admitter,
		cache:      lookupCache,
		cfg:        cfg,
		logger:     logging.NewLogger("catalog"),
		sleep:      sleepContext,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Config returns the effective configuration.
func (c *Client) Config() Config {
	return c.cfg
}

// Resolve returns the record for title and never fails. Lookup errors are
// absorbed into a fallback record (Outcome failed) that is cached for the
// configured failure TTL. Concurrent calls for the same normalized title
// share one lookup.
//
// The shared lookup does not observe any caller's cancellation. A caller
// whose ctx is done gets an uncached fallback record while the lookup keeps
// running for the others.
func (c *Client) Resolve(ctx context.Context, title, credential string) movie.Result {
	key := cache.KeyFor(title)

	if err := ctx.Err(); err != nil {
		return c.abandoned(title, err)
	}

	lookupCtx := context.WithoutCancel(ctx)
	ch := c.flights.DoChan(key.String(), func() (interface{}, error) {
		return c.resolve(lookupCtx, key, title, credential), nil
	})

	select {
	case res := <-ch:
		if res.Shared {
			c.logger.Debug().Str("title", title).Msg("Joined in-flight lookup")
		}
		return res.Val.(movie.Result)
	case <-ctx.Done():
		return c.abandoned(title, ctx.Err())
	}
}

// abandoned builds the result for a caller that stopped waiting.
func (c *Client) abandoned(title string, err error) movie.Result {
	c.logger.Debug().
		Err(err).
		Str("title", title).
		Msg("Lookup abandoned by caller")
	return movie.Failed(c.fallback(title), err)
}

func (c *Client) resolve(ctx context.Context, key cache.Key, title, credential string) movie.Result {
	result, err := c.Lookup(ctx, title, credential)
	if err == nil {
		return result
	}
	if result.Outcome == movie.OutcomeFailed {
		// Cached failure from an earlier call.
		return result
	}

	failed := movie.Failed(c.fallback(title), err)
	if !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
		c.cache.Set(key, failed)
	}

	c.logger.Warn().
		Err(err).
		Str("title", title).
		Str("error_class", string(ClassOf(err))).
		Str("fallback_id", failed.Record.ID).
		Msg("Lookup failed - using fallback record")
	return failed
}

// Lookup resolves title and returns lookup errors instead of absorbing them.
// Successful results (matched or no match) are cached. A cached failure is
// returned together with its error.
func (c *Client) Lookup(ctx context.Context, title, credential string) (movie.Result, error) {
	key := cache.KeyFor(title)

	for attempt := 0; ; attempt++ {
		// Step 1: Check Cache
		if cached, ok := c.cache.Get(key); ok {
			c.logger.Debug().
				Str("title", title).
				Str("outcome", string(cached.Outcome)).
				Msg("Cache hit")
			return cached, cached.Err
		}

		// Step 2: Acquire Admission Slot
		if err := c.admitter.Acquire(ctx, credential); err != nil {
			return movie.Result{}, fmt.Errorf("acquire admission slot: %w", err)
		}

		// Step 3: Search
		payload, err := c.search(ctx, title, credential)

		var throttled *throttledError
		if errors.As(err, &throttled) {
			if attempt >= c.cfg.MaxThrottleRetries {
				throttleExhaustedTotal.Inc()
				catalogErrorsTotal.WithLabelValues(string(ErrorClassRateLimit)).Inc()
				return movie.Result{}, &RateLimitExceededError{
					Attempts:   attempt + 1,
					RetryAfter: throttled.retryAfter,
				}
			}
			if err := c.waitThrottled(ctx, title, attempt, throttled.retryAfter); err != nil {
				return movie.Result{}, err
			}
			continue
		}
		if err != nil {
			catalogErrorsTotal.WithLabelValues(string(ClassOf(err))).Inc()
			return movie.Result{}, err
		}

		// Step 4: Map and Cache
		result := c.toResult(title, payload)
		c.cache.Set(key, result)

		c.logger.Debug().
			Str("title", title).
			Str("outcome", string(result.Outcome)).
			Str("id", result.Record.ID).
			Int("attempts", attempt+1).
			Msg("Lookup completed")
		return result, nil
	}
}

// search performs one GET /search/movie call.
func (c *Client) search(ctx context.Context, title, credential string) (*SearchResponse, error) {
	endpoint, err := url.Parse(c.cfg.BaseURL + searchPath)
	if err != nil {
		return nil, fmt.Errorf("parse tmdb url: %w", err)
	}
	params := url.Values{}
	params.Set("api_key", credential)
	params.Set("query", strings.TrimSpace(title))
	params.Set("page", "1")
	if c.cfg.Language != "" {
		params.Set("language", c.cfg.Language)
	}
	endpoint.RawQuery = params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	catalogRequestDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		catalogRequestsTotal.WithLabelValues("network_error").Inc()
		return nil, newNetworkError(err)
	}
	defer resp.Body.Close()

	catalogRequestsTotal.WithLabelValues(strconv.Itoa(resp.StatusCode)).Inc()

	if resp.StatusCode == http.StatusTooManyRequests {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxBodyBytes))
		delay := ParseRetryAfter(resp.Header.Get("Retry-After"), c.now(), c.cfg.DefaultRetryAfter)
		return nil, &throttledError{retryAfter: delay}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		errClass := ClassForStatus(resp.StatusCode)
		c.logger.Warn().
			Str("title", title).
			Int("status", resp.StatusCode).
			Str("error_class", string(errClass)).
			Msg("TMDB request error")
		return nil, &APIError{
			StatusCode: resp.StatusCode,
			ErrorClass: errClass,
			Message:    resp.Status,
		}
	}

	var payload SearchResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxBodyBytes)).Decode(&payload); err != nil {
		return nil, &DecodeError{Err: err}
	}
	return &payload, nil
}

// fallback builds the record used when a lookup fails.
func (c *Client) fallback(title string) movie.Record {
	rec := movie.Bare(title)
	rec.ID = fmt.Sprintf("fallback-%d-%s", c.now().UnixMilli(), uuid.NewString())
	return rec
}
