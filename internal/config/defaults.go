package config

import (
	"github.com/Sternrassler/moviemeta/pkg/cache"
	"github.com/Sternrassler/moviemeta/pkg/catalog"
	"github.com/Sternrassler/moviemeta/pkg/enrich"
	"github.com/Sternrassler/moviemeta/pkg/ratelimit"
)

const (
	defaultServerAddr      = ":8080"
	defaultReadTimeout     = 15
	defaultWriteTimeout    = 300
	defaultShutdownTimeout = 10
	defaultInboundRate     = 1
	defaultInboundBurst    = 5
	defaultMaxBodyBytes    = 4 << 20
)

// Default returns a Config populated with built-in defaults.
func Default() Config {
	return Config{
		TMDB: TMDB{
			BaseURL:        catalog.DefaultBaseURL,
			ImageBaseURL:   catalog.DefaultImageBaseURL,
			TimeoutSeconds: int(catalog.DefaultTimeout.Seconds()),
		},
		Admission: Admission{
			MaxRequests:    ratelimit.DefaultMaxRequests,
			WindowMS:       int(ratelimit.DefaultWindow.Milliseconds()),
			SafetyMarginMS: int(ratelimit.DefaultSafetyMargin.Milliseconds()),
		},
		Cache: Cache{
			Capacity:          cache.DefaultCapacity,
			NoMatchTTLSeconds: 0,
			FailureTTLSeconds: int(cache.DefaultFailureTTL.Seconds()),
		},
		Batch: Batch{
			Size: enrich.DefaultBatchSize,
		},
		Retry: Retry{
			MaxThrottleRetries:  catalog.DefaultMaxThrottleRetries,
			DefaultRetryAfterMS: int(catalog.DefaultRetryAfter.Milliseconds()),
		},
		Server: Server{
			Addr:                   defaultServerAddr,
			ReadTimeoutSeconds:     defaultReadTimeout,
			WriteTimeoutSeconds:    defaultWriteTimeout,
			ShutdownTimeoutSeconds: defaultShutdownTimeout,
			InboundRatePerSecond:   defaultInboundRate,
			InboundBurst:           defaultInboundBurst,
			MaxBodyBytes:           defaultMaxBodyBytes,
		},
		Log: Log{
			Level:  "info",
			Format: "auto",
		},
	}
}
