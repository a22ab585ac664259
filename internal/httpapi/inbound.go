package httpapi

import (
	"context"
	"math"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"golang.org/x/time/rate"
)

var inboundRejectedTotal = promauto.NewCounter(prometheus.CounterOpts{
	Name: "moviemeta_http_inbound_rejected_total",
	Help: "Total number of requests refused by the per-client limiter",
})

// Inbound limiter defaults.
const (
	DefaultIdleTTL      = 15 * time.Minute
	DefaultCleanupEvery = 2 * time.Minute
)

// ClientLimiter keeps one token bucket per client address. Idle clients are
// dropped by Cleanup.
type ClientLimiter struct {
	mu      sync.Mutex
	entries map[string]*clientEntry
	rps     rate.Limit
	burst   int
	idleTTL time.Duration
	now     func() time.Time
}

type clientEntry struct {
	lim      *rate.Limiter
	lastSeen time.Time
}

// NewClientLimiter creates a limiter allowing rps requests per second with
// the given burst for every client.
func NewClientLimiter(rps float64, burst int) *ClientLimiter {
	return &ClientLimiter{
		entries: make(map[string]*clientEntry),
		rps:     rate.Limit(rps),
		burst:   burst,
		idleTTL: DefaultIdleTTL,
		now:     time.Now,
	}
}

// Allow reports whether the client may proceed now.
func (l *ClientLimiter) Allow(client string) bool {
	return l.limiter(client).AllowN(l.now(), 1)
}

// Len returns the number of tracked clients.
func (l *ClientLimiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}

// Cleanup drops clients idle for longer than the idle TTL.
func (l *ClientLimiter) Cleanup() {
	cutoff := l.now().Add(-l.idleTTL)

	l.mu.Lock()
	defer l.mu.Unlock()

	for k, ent := range l.entries {
		if ent.lastSeen.Before(cutoff) {
			delete(l.entries, k)
		}
	}
}

// StartJanitor runs Cleanup periodically until ctx is done.
func (l *ClientLimiter) StartJanitor(ctx context.Context, every time.Duration) {
	if every <= 0 {
		return
	}

	t := time.NewTicker(every)
	go func() {
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				l.Cleanup()
			}
		}
	}()
}

// Middleware rejects requests over the client's budget with 429.
func (l *ClientLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !l.Allow(clientKey(r)) {
			inboundRejectedTotal.Inc()
			w.Header().Set("Retry-After", strconv.Itoa(l.retryAfterSeconds()))
			writeError(w, r, http.StatusTooManyRequests, codeRateLimited, "Too many requests, please retry later")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (l *ClientLimiter) limiter(client string) *rate.Limiter {
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	if ent, ok := l.entries[client]; ok {
		ent.lastSeen = now
		return ent.lim
	}

	lim := rate.NewLimiter(l.rps, l.burst)
	l.entries[client] = &clientEntry{lim: lim, lastSeen: now}
	return lim
}

func (l *ClientLimiter) retryAfterSeconds() int {
	if l.rps <= 0 {
		return 1
	}
	return max(1, int(math.Ceil(1/float64(l.rps))))
}

// clientKey identifies the caller. RealIP middleware has already replaced
// RemoteAddr with the forwarded address when present.
func clientKey(r *http.Request) string {
	host, _, err := net.SplitHostPort(strings.TrimSpace(r.RemoteAddr))
	if err == nil && host != "" {
		return host
	}
	if r.RemoteAddr != "" {
		return r.RemoteAddr
	}
	return "unknown"
}
