// Package cache provides cache-aside lookups over a key-value store with
// per-entry expiry.
//
// The package has three parts:
//
// - DeriveKey: a pure function turning a resource name and labeled
//   attribute groups into one canonical store key
// - Store: Get, SetWithExpiry and Delete over Redis (RedisStore) or an
//   in-process map (MemoryStore)
// - Aside: the orchestrator that answers from the store, fills misses from
//   an origin callback and writes the result back with a TTL
//
// # Basic Usage
//
//	// Create Redis client
//	redisClient := redis.NewClient(&redis.Options{
//		Addr: "localhost:6379",
//	})
//
//	// Create orchestrator
//	aside := cache.NewAside(cache.NewRedisStore(redisClient))
//
//	// Fetch through the cache
//	body, err := aside.FetchWithCache(ctx, "photos",
//		[]cache.AttributeGroup{cache.QueryGroup(r.URL.Query())},
//		time.Hour,
//		func(ctx context.Context) ([]byte, error) {
//			return origin.ListPhotos(ctx, r.URL.Query())
//		})
//	if errors.Is(err, cache.ErrOriginFetch) {
//		// origin failed and nothing was cached
//	}
//
// # Keys
//
// Keys have the form resource_label-k1:v1,k2:v2. Pairs are sorted by key and
// empty groups are omitted:
//
//	cache.DeriveKey("photos", cache.AttributeGroup{
//		Label:      "query",
//		Attributes: cache.Attributes{"albumId": "3"},
//	}) // "photos_query-albumId:3"
//
// Bytes outside [A-Za-z0-9.~] are percent-encoded, so attribute values cannot
// forge a group or pair boundary.
//
// # Failure Handling
//
// A store that cannot be reached (ErrStoreUnavailable) is bypassed: the
// origin is called and its result returned without caching. A failed cache
// write is logged and ignored. Only origin failures (ErrOriginFetch) and the
// caller's own context errors reach the caller.
//
// # Metrics
//
//   - photocache_cache_hits_total{resource}
//   - photocache_cache_misses_total{resource}
//   - photocache_cache_bypass_total{resource}
//   - photocache_cache_write_errors_total
//   - photocache_store_errors_total{operation}
//   - photocache_origin_fetch_duration_seconds{resource}
package cache
