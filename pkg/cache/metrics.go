package cache

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// CacheHits tracks lookups answered from the cache
	CacheHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "moviemeta_cache_hits_total",
			Help: "Total number of title lookup cache hits",
		},
	)

	// CacheMisses tracks lookups that had to go to the catalog
	CacheMisses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "moviemeta_cache_misses_total",
			Help: "Total number of title lookup cache misses",
		},
	)

	// CacheEvictions tracks entries dropped by reason
	CacheEvictions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "moviemeta_cache_evictions_total",
			Help: "Total number of cache entries evicted",
		},
		[]string{"reason"}, // "capacity", "expired"
	)

	// CacheEntries tracks the current number of entries
	CacheEntries = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "moviemeta_cache_entries",
			Help: "Current number of entries in the title lookup cache",
		},
	)
)
