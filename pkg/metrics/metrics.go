// Package metrics documents the Prometheus metrics exported by moviemeta.
// All metrics are defined in their respective packages (ratelimit, cache,
// catalog, enrich, httpapi) to maintain modularity and avoid circular
// dependencies.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry is the registerer all moviemeta metrics are registered with.
// All metrics are automatically registered via promauto in their respective packages.
var Registry = prometheus.DefaultRegisterer

// Gatherer is the source served by Handler.
var Gatherer = prometheus.DefaultGatherer

// Handler returns the HTTP handler exposing all registered metrics.
func Handler() http.Handler {
	return promhttp.HandlerFor(Gatherer, promhttp.HandlerOpts{})
}

// Metrics Documentation
//
// Admission Metrics (pkg/ratelimit):
//   - moviemeta_admission_admitted_total{backend} (Counter): Outbound calls admitted (memory, redis)
//   - moviemeta_admission_waits_total{backend} (Counter): Acquire calls that had to wait
//   - moviemeta_admission_wait_seconds{backend} (Histogram): Time spent waiting for a slot
//
// Cache Metrics (pkg/cache):
//   - moviemeta_cache_hits_total (Counter): Lookups answered from the cache
//   - moviemeta_cache_misses_total (Counter): Lookups not in the cache (or expired)
//   - moviemeta_cache_evictions_total{reason} (Counter): Entries removed (capacity, expired)
//   - moviemeta_cache_entries (Gauge): Current number of cached titles
//
// Catalog Metrics (pkg/catalog):
//   - moviemeta_catalog_requests_total{status} (Counter): TMDB calls by HTTP status or network_error
//   - moviemeta_catalog_request_duration_seconds (Histogram): TMDB call duration
//   - moviemeta_catalog_errors_total{class} (Counter): Failed lookups by class
//     (client, server, rate_limit, network, decode)
//
// Throttle Metrics (pkg/catalog):
//   - moviemeta_throttle_retries_total (Counter): Retries after a 429
//   - moviemeta_throttle_backoff_seconds (Histogram): Delay waited before a retry
//   - moviemeta_throttle_exhausted_total (Counter): Lookups still throttled after all retries
//
// Enrichment Metrics (pkg/enrich):
//   - moviemeta_enrich_titles_total{outcome} (Counter): Unique titles by outcome
//     (matched, no_match, failed)
//   - moviemeta_enrich_batches_total (Counter): Batches processed
//   - moviemeta_enrich_duration_seconds (Histogram): Duration of complete requests
//
// HTTP Metrics (internal/httpapi):
//   - moviemeta_http_inbound_rejected_total (Counter): Requests refused by the per-client limiter
//
// Example Prometheus Queries:
//
//	# Cache Hit Rate
//	sum(rate(moviemeta_cache_hits_total[5m])) /
//	(sum(rate(moviemeta_cache_hits_total[5m])) + sum(rate(moviemeta_cache_misses_total[5m])))
//
//	# Share of titles ending in a fallback record
//	rate(moviemeta_enrich_titles_total{outcome="failed"}[15m]) /
//	sum(rate(moviemeta_enrich_titles_total[15m]))
//
//	# Throttling pressure
//	rate(moviemeta_throttle_retries_total[5m])
//
//	# P95 TMDB Latency
//	histogram_quantile(0.95, rate(moviemeta_catalog_request_duration_seconds_bucket[5m]))
