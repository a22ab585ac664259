package ratelimit

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
)

// Prometheus metrics for admission control.
var (
	admissionAdmittedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "moviemeta_admission_admitted_total",
		Help: "Total number of outbound catalog calls admitted by backend",
	}, []string{"backend"})

	admissionWaitsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "moviemeta_admission_waits_total",
		Help: "Total number of Acquire calls that had to wait for a slot",
	}, []string{"backend"})

	admissionWaitSeconds = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "moviemeta_admission_wait_seconds",
		Help:    "Time spent waiting for an admission slot",
		Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 20},
	}, []string{"backend"})
)

const (
	backendMemory = "memory"
	backendRedis  = "redis"
)

// Admitter grants permission to issue one outbound call for a credential.
// Acquire blocks until a slot is free and only fails if ctx is done.
type Admitter interface {
	Acquire(ctx context.Context, credential string) error
}

// Config holds the sliding-window parameters.
type Config struct {
	// MaxRequests is the number of calls admitted per Window.
	MaxRequests int

	// Window is the rolling window length.
	Window time.Duration

	// SafetyMargin is added to each computed wait.
	SafetyMargin time.Duration
}

// DefaultConfig returns the 40 calls / 10 s window.
func DefaultConfig() Config {
	return Config{
		MaxRequests:  DefaultMaxRequests,
		Window:       DefaultWindow,
		SafetyMargin: DefaultSafetyMargin,
	}
}

func (c Config) normalize() Config {
	if c.MaxRequests <= 0 {
		c.MaxRequests = DefaultMaxRequests
	}
	if c.Window <= 0 {
		c.Window = DefaultWindow
	}
	if c.SafetyMargin < 0 {
		c.SafetyMargin = 0
	}
	return c
}

// Option configures a Limiter or RedisWindow.
type Option func(*clock)

// WithClock replaces the time source and the sleep function. Tests use it to
// drive the window without real waits.
func WithClock(now func() time.Time, sleep func(ctx context.Context, d time.Duration) error) Option {
	return func(c *clock) {
		if now != nil {
			c.now = now
		}
		if sleep != nil {
			c.sleep = sleep
		}
	}
}

type clock struct {
	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

func newClock(opts []Option) clock {
	c := clock{now: time.Now, sleep: sleepContext}
	for _, opt := range opts {
		opt(&c)
	}
	return c
}

// Limiter is the in-process admission controller. Windows are created lazily
// per credential and kept for the lifetime of the Limiter.
type Limiter struct {
	cfg    Config
	logger zerolog.Logger
	clock  clock

	mu      sync.Mutex
	windows map[string]*window
}

var _ Admitter = (*Limiter)(nil)

// NewLimiter creates an in-memory sliding-window limiter.
func NewLimiter(cfg Config, logger zerolog.Logger, opts ...Option) *Limiter {
	return &Limiter{
		cfg:     cfg.normalize(),
		logger:  logger,
		clock:   newClock(opts),
		windows: make(map[string]*window),
	}
}

// Config returns the effective configuration.
func (l *Limiter) Config() Config {
	return l.cfg
}

// Acquire blocks until the credential's window has room, then records the
// admitted call. The check is repeated after every wait because entries may
// expire, and other goroutines may take slots, while this one sleeps.
func (l *Limiter) Acquire(ctx context.Context, credential string) error {
	w := l.window(credential)
	var waitedSince time.Time

	for {
		now, wait, admitted := w.tryAdmit(l.clock.now, l.cfg)
		if admitted {
			admissionAdmittedTotal.WithLabelValues(backendMemory).Inc()
			if !waitedSince.IsZero() {
				waited := now.Sub(waitedSince)
				admissionWaitSeconds.WithLabelValues(backendMemory).Observe(waited.Seconds())
				l.logger.Debug().
					Str("credential", Fingerprint(credential)).
					Dur("waited", waited).
					Msg("Admission slot acquired after wait")
			}
			return nil
		}

		if waitedSince.IsZero() {
			waitedSince = now
			admissionWaitsTotal.WithLabelValues(backendMemory).Inc()
		}

		if e := l.logger.Debug(); e.Enabled() {
			state := l.State(credential)
			e.Str("credential", state.Credential).
				Int("limit", state.Limit).
				Int("used", state.Used).
				Int("remaining", state.Remaining()).
				Dur("until_slot", state.TimeUntilSlot()).
				Dur("wait", wait).
				Msg("Admission window full - waiting")
		}

		if err := l.clock.sleep(ctx, wait); err != nil {
			return fmt.Errorf("wait for admission slot: %w", err)
		}
	}
}

// State returns a snapshot of the credential's window without admitting.
func (l *Limiter) State(credential string) WindowState {
	w := l.window(credential)
	now := l.clock.now()

	w.mu.Lock()
	defer w.mu.Unlock()

	state := WindowState{
		Credential: Fingerprint(credential),
		Limit:      l.cfg.MaxRequests,
		Window:     l.cfg.Window,
		At:         now,
	}
	for _, ts := range w.stamps {
		if now.Sub(ts) >= l.cfg.Window {
			continue
		}
		if state.Used == 0 {
			state.Oldest = ts
		}
		state.Used++
	}
	return state
}

func (l *Limiter) window(credential string) *window {
	l.mu.Lock()
	defer l.mu.Unlock()

	w, ok := l.windows[credential]
	if !ok {
		w = &window{}
		l.windows[credential] = w
	}
	return w
}

// window is the ordered list of admitted-call timestamps for one credential.
type window struct {
	mu     sync.Mutex
	stamps []time.Time
}

// tryAdmit purges expired entries and either records the current time or
// returns how long to wait before trying again. The clock is read under the
// lock so stamps stay ordered.
func (w *window) tryAdmit(clockNow func() time.Time, cfg Config) (time.Time, time.Duration, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()

	now := clockNow()
	w.purge(now, cfg.Window)

	if len(w.stamps) < cfg.MaxRequests {
		w.stamps = append(w.stamps, now)
		return now, 0, true
	}

	oldest := w.stamps[0]
	return now, cfg.Window - now.Sub(oldest) + cfg.SafetyMargin, false
}

func (w *window) purge(now time.Time, length time.Duration) {
	i := 0
	for i < len(w.stamps) && now.Sub(w.stamps[i]) >= length {
		i++
	}
	if i > 0 {
		w.stamps = append(w.stamps[:0], w.stamps[i:]...)
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
