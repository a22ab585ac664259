// Package cache provides the process-wide lookup cache that memoizes title
// lookups against the movie catalog.
//
// The cache manager implements the following behaviour:
//
//   - Keys are normalized titles (lowercased, trimmed), shared by all credentials
//   - Bounded capacity with least-recently-used eviction (0 = unbounded)
//   - Per-outcome validity: matches never expire, "no match" results expire after
//     NoMatchTTL (0 = never) and failed lookups after FailureTTL
//   - Prometheus metrics for observability
//
// # Basic Usage
//
//	manager := cache.NewManager(cache.DefaultConfig())
//
//	key := cache.KeyFor("Inception ")
//	if result, ok := manager.Get(key); ok {
//		// Cache hit - no catalog call needed
//		return result
//	}
//
//	result := lookup(title)
//	manager.Set(key, result)
//
// # Metrics
//
// The cache manager exports Prometheus metrics:
//
//   - moviemeta_cache_hits_total - Cache hits
//   - moviemeta_cache_misses_total - Cache misses (including expired entries)
//   - moviemeta_cache_evictions_total{reason} - Entries dropped for capacity or expiry
//   - moviemeta_cache_entries - Current number of entries
//
// Nothing is persisted: the cache lives exactly as long as the process.
package cache
