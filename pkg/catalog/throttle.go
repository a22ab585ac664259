package catalog

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus metrics for 429 handling.
var (
	throttleRetriesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "moviemeta_throttle_retries_total",
		Help: "Total number of lookups retried after a 429 response",
	})

	throttleBackoffSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "moviemeta_throttle_backoff_seconds",
		Help:    "Delay waited before retrying a throttled lookup",
		Buckets: []float64{0, 0.5, 1, 2, 5, 10, 30},
	})

	throttleExhaustedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "moviemeta_throttle_exhausted_total",
		Help: "Total number of lookups that stayed throttled after every retry",
	})
)

// Throttle defaults.
const (
	// DefaultMaxThrottleRetries is the number of retries after the first 429.
	DefaultMaxThrottleRetries = 3

	// DefaultRetryAfter is used when a 429 carries no usable Retry-After.
	DefaultRetryAfter = 2 * time.Second
)

// throttledError signals a 429 response to the lookup loop.
type throttledError struct {
	retryAfter time.Duration
}

func (e *throttledError) Error() string {
	return fmt.Sprintf("TMDB throttled request (retry after %v)", e.retryAfter)
}

// ParseRetryAfter interprets a Retry-After header value. It accepts a
// non-negative number of seconds or an HTTP-date. Other values starting
// with digits use those digits as whole seconds ("1.5" waits 1s); anything
// else yields fallback. Dates in the past yield 0.
func ParseRetryAfter(value string, now time.Time, fallback time.Duration) time.Duration {
	value = strings.TrimSpace(value)
	if value == "" {
		return fallback
	}

	if secs, err := strconv.Atoi(value); err == nil {
		if secs < 0 {
			return fallback
		}
		return time.Duration(secs) * time.Second
	}

	if at, err := http.ParseTime(value); err == nil {
		if d := at.Sub(now); d > 0 {
			return d
		}
		return 0
	}

	if secs, ok := leadingSeconds(value); ok {
		return time.Duration(secs) * time.Second
	}

	return fallback
}

// leadingSeconds parses the ASCII digits at the start of value.
func leadingSeconds(value string) (int, bool) {
	end := 0
	for end < len(value) && value[end] >= '0' && value[end] <= '9' {
		end++
	}
	if end == 0 {
		return 0, false
	}
	secs, err := strconv.Atoi(value[:end])
	if err != nil {
		return 0, false
	}
	return secs, true
}

// waitThrottled sleeps for delay before the next attempt of a throttled lookup.
func (c *Client) waitThrottled(ctx context.Context, title string, attempt int, delay time.Duration) error {
	throttleRetriesTotal.Inc()
	throttleBackoffSeconds.Observe(delay.Seconds())

	c.logger.Warn().
		Str("title", title).
		Int("attempt", attempt+1).
		Int("max_retries", c.cfg.MaxThrottleRetries).
		Dur("retry_after", delay).
		Msg("Throttled by TMDB - retrying after delay")

	if err := c.sleep(ctx, delay); err != nil {
		c.logger.Warn().
			Str("title", title).
			Int("attempt", attempt+1).
			Msg("Context cancelled during throttle backoff")
		return fmt.Errorf("wait after throttling: %w", err)
	}
	return nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
