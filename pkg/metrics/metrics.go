// Package metrics exposes the Prometheus registry used by the photo cache.
// Metrics are defined in their respective packages (cache, origin, warmup)
// via promauto to keep the packages independent.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry is the default Prometheus registry used by the photo cache.
// All metrics are automatically registered via promauto in their respective packages.
var Registry = prometheus.DefaultRegisterer

// Handler serves the default gatherer in the Prometheus text format.
func Handler() http.Handler {
	return promhttp.HandlerFor(prometheus.DefaultGatherer, promhttp.HandlerOpts{
		ErrorHandling: promhttp.ContinueOnError,
	})
}

// Metrics Documentation
//
// Cache Metrics (pkg/cache):
//   - photocache_cache_hits_total{resource} (Counter): Lookups answered from the store
//   - photocache_cache_misses_total{resource} (Counter): Lookups that went to the origin
//   - photocache_cache_bypass_total{resource} (Counter): Lookups served from origin because the store was down
//   - photocache_cache_write_errors_total (Counter): Failed writes after a miss
//   - photocache_store_errors_total{operation} (Counter): Store errors by operation (get, set, delete)
//   - photocache_origin_fetch_duration_seconds{resource} (Histogram): Origin callback duration on miss
//
// Origin Metrics (pkg/origin):
//   - photocache_origin_requests_total{endpoint, status} (Counter): Origin requests by endpoint and HTTP status
//   - photocache_origin_request_duration_seconds{endpoint} (Histogram): Origin request duration including retries
//   - photocache_origin_retries_total{error_class} (Counter): Retry attempts by error class
//   - photocache_origin_retry_exhausted_total{error_class} (Counter): Requests that exhausted all attempts
//
// Warmup Metrics (pkg/warmup):
//   - photocache_warmup_albums_total{result} (Counter): Albums prefetched at startup by result (ok, error)
//
// Example Prometheus Queries:
//
//   # Cache Hit Rate
//   sum(rate(photocache_cache_hits_total[5m])) /
//   (sum(rate(photocache_cache_hits_total[5m])) + sum(rate(photocache_cache_misses_total[5m])))
//
//   # Store Degradation
//   rate(photocache_cache_bypass_total[5m]) > 0
//
//   # Origin Error Rate
//   sum(rate(photocache_origin_requests_total{status!~"2.."}[5m]))
//
//   # P95 Origin Latency
//   histogram_quantile(0.95, rate(photocache_origin_request_duration_seconds_bucket[5m]))
