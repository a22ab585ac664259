package cache

import (
	"testing"
	"time"
)

func TestEntry_ExpiredAt(t *testing.T) {
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name    string
		expires time.Time
		want    bool
	}{
		{
			name:    "never expires",
			expires: time.Time{},
			want:    false,
		},
		{
			name:    "expired entry",
			expires: now.Add(-1 * time.Hour),
			want:    true,
		},
		{
			name:    "valid entry",
			expires: now.Add(1 * time.Hour),
			want:    false,
		},
		{
			name:    "expires exactly now",
			expires: now,
			want:    true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			entry := &Entry{Expires: tt.expires}
			if got := entry.ExpiredAt(now); got != tt.want {
				t.Errorf("ExpiredAt() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestEntry_TTL(t *testing.T) {
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name    string
		expires time.Time
		want    time.Duration
	}{
		{
			name:    "never expires",
			expires: time.Time{},
			want:    -1,
		},
		{
			name:    "already expired",
			expires: now.Add(-1 * time.Hour),
			want:    0,
		},
		{
			name:    "30 seconds remaining",
			expires: now.Add(30 * time.Second),
			want:    30 * time.Second,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			entry := &Entry{Expires: tt.expires}
			if got := entry.TTL(now); got != tt.want {
				t.Errorf("TTL() = %v, want %v", got, tt.want)
			}
		})
	}
}
