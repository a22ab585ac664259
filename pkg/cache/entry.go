package cache

import (
	"time"

	"github.com/Sternrassler/moviemeta/pkg/movie"
)

// Entry is a cached lookup result.
type Entry struct {
	// Result is returned as-is to every caller asking for the same key.
	Result movie.Result

	// CachedAt is when the result was stored.
	CachedAt time.Time

	// Expires is when the entry becomes stale. Zero means never.
	Expires time.Time
}

// ExpiredAt returns true if the entry is stale at the given time.
func (e *Entry) ExpiredAt(now time.Time) bool {
	if e.Expires.IsZero() {
		return false
	}
	return !now.Before(e.Expires)
}

// TTL returns the time until expiration at the given time.
// Returns -1 for entries that never expire and 0 for stale ones.
func (e *Entry) TTL(now time.Time) time.Duration {
	if e.Expires.IsZero() {
		return -1
	}
	ttl := e.Expires.Sub(now)
	if ttl < 0 {
		return 0
	}
	return ttl
}
