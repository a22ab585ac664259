// Package ratelimit implements the per-credential sliding-window admission
// controller that gates outbound catalog calls.
//
// Every credential owns a window of admitted-call timestamps. A call is
// admitted while fewer than MaxRequests timestamps fall inside the last
// Window; otherwise the caller waits until the oldest entry expires (plus a
// safety margin) and checks again.
package ratelimit

import (
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// Defaults mirror TMDB's documented soft limit with some headroom.
const (
	// DefaultMaxRequests is the number of calls admitted per window.
	DefaultMaxRequests = 40

	// DefaultWindow is the length of the rolling window.
	DefaultWindow = 10 * time.Second

	// DefaultSafetyMargin is added to every computed wait so that the
	// oldest entry has definitely left the window on recheck.
	DefaultSafetyMargin = 100 * time.Millisecond
)

// RedisKeyPrefix namespaces the shared admission windows in Redis.
const RedisKeyPrefix = "moviemeta:admission:"

// defaultCredentialLabel stands in for the empty (server) credential in logs.
const defaultCredentialLabel = "default"

// WindowState is a point-in-time snapshot of one credential's window.
type WindowState struct {
	// Credential is the fingerprint of the credential, never the raw key.
	Credential string

	// Used is the number of admitted calls still inside the window.
	Used int

	// Limit is the configured maximum per window.
	Limit int

	// Window is the configured window length.
	Window time.Duration

	// Oldest is the timestamp of the oldest admitted call inside the window.
	// Zero when Used is 0.
	Oldest time.Time

	// At is when the snapshot was taken.
	At time.Time
}

// Remaining returns how many calls can still be admitted right now.
func (s WindowState) Remaining() int {
	if s.Used >= s.Limit {
		return 0
	}
	return s.Limit - s.Used
}

// Saturated reports whether the next Acquire would have to wait.
func (s WindowState) Saturated() bool {
	return s.Used >= s.Limit
}

// TimeUntilSlot returns how long until the oldest entry leaves the window.
// Returns 0 if a slot is available now.
func (s WindowState) TimeUntilSlot() time.Duration {
	if !s.Saturated() || s.Oldest.IsZero() {
		return 0
	}
	d := s.Window - s.At.Sub(s.Oldest)
	if d < 0 {
		return 0
	}
	return d
}

// Fingerprint returns a short, stable identifier for a credential that is
// safe to log.
func Fingerprint(credential string) string {
	if credential == "" {
		return defaultCredentialLabel
	}
	return hashCredential(credential)[:12]
}

func hashCredential(credential string) string {
	sum := sha256.Sum256([]byte(credential))
	return hex.EncodeToString(sum[:])
}
