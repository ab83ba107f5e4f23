package cache

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// CacheHits tracks lookups answered from the store, by resource
	CacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "photocache_cache_hits_total",
			Help: "Total number of cache hits",
		},
		[]string{"resource"},
	)

	// CacheMisses tracks lookups that went to the origin, by resource
	CacheMisses = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "photocache_cache_misses_total",
			Help: "Total number of cache misses",
		},
		[]string{"resource"},
	)

	// CacheBypass tracks requests served straight from the origin because the store was unavailable
	CacheBypass = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "photocache_cache_bypass_total",
			Help: "Total number of requests that bypassed an unavailable cache store",
		},
		[]string{"resource"},
	)

	// CacheWriteErrors tracks best-effort writes that failed after a successful origin fetch
	CacheWriteErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "photocache_cache_write_errors_total",
			Help: "Total number of failed cache writes after an origin fetch",
		},
	)

	// StoreErrors tracks store operation errors
	StoreErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "photocache_store_errors_total",
			Help: "Total number of cache store operation errors",
		},
		[]string{"operation"}, // "get", "set", "delete"
	)

	// OriginFetchDuration tracks the time spent in origin fetch callbacks on a miss
	OriginFetchDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "photocache_origin_fetch_duration_seconds",
			Help:    "Duration of origin fetches performed on cache miss",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5},
		},
		[]string{"resource"},
	)
)
