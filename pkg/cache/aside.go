package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"
)

// DefaultWriteTimeout bounds a background cache write once it is detached from its caller.
const DefaultWriteTimeout = 2 * time.Second

// ErrOriginFetch indicates the origin fetch callback failed.
var ErrOriginFetch = errors.New("origin fetch failed")

// FetchError wraps an origin fetch failure. It matches ErrOriginFetch via errors.Is.
type FetchError struct {
	Resource string
	Key      string
	Err      error
}

// Error implements the error interface.
func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch %s (key %q): %v", e.Resource, e.Key, e.Err)
}

// Unwrap implements error unwrapping for errors.Is/As.
func (e *FetchError) Unwrap() error {
	return e.Err
}

// Is reports whether target is ErrOriginFetch.
func (e *FetchError) Is(target error) bool {
	return target == ErrOriginFetch
}

// FetchFunc calls the origin for a value on cache miss.
type FetchFunc func(ctx context.Context) ([]byte, error)

// Status describes how a value was obtained.
type Status string

const (
	// StatusHit means the value came from the store and the origin was not contacted.
	StatusHit Status = "HIT"

	// StatusMiss means the value was fetched from the origin and written to the store.
	StatusMiss Status = "MISS"

	// StatusBypass means the store was unavailable and the origin was called directly.
	StatusBypass Status = "BYPASS"
)

// Result is the outcome of a cache-aside lookup.
type Result struct {
	Value  []byte
	Status Status
	Key    string
}

// Aside implements cache-aside lookups over a Store.
//
// A hit never contacts the origin. A miss calls the origin and writes the
// result with a TTL. Store failures degrade to a direct origin call and are
// never returned to the caller. Origin failures are never cached.
type Aside struct {
	store        Store
	logger       zerolog.Logger
	policy       Policy
	prefix       string
	writeTimeout time.Duration
	group        *singleflight.Group
}

// Option configures an Aside.
type Option func(*Aside)

// WithLogger sets the logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(a *Aside) {
		a.logger = logger
	}
}

// WithPolicy sets default and maximum TTLs.
func WithPolicy(p Policy) Option {
	return func(a *Aside) {
		a.policy = p
	}
}

// WithKeyPrefix namespaces every derived key as "prefix:key".
func WithKeyPrefix(prefix string) Option {
	return func(a *Aside) {
		a.prefix = prefix
	}
}

// WithWriteTimeout bounds each cache write.
func WithWriteTimeout(d time.Duration) Option {
	return func(a *Aside) {
		if d > 0 {
			a.writeTimeout = d
		}
	}
}

// WithSingleFlight collapses concurrent misses for the same key into one
// origin call when enabled. Disabled by default: concurrent misses each
// reach the origin and the last write wins.
func WithSingleFlight(enabled bool) Option {
	return func(a *Aside) {
		if enabled {
			a.group = &singleflight.Group{}
		} else {
			a.group = nil
		}
	}
}

// NewAside creates a cache-aside orchestrator over store.
func NewAside(store Store, opts ...Option) *Aside {
	if store == nil {
		panic("cache store cannot be nil")
	}

	a := &Aside{
		store:        store,
		logger:       log.With().Str("component", "cache").Logger(),
		policy:       DefaultPolicy(),
		writeTimeout: DefaultWriteTimeout,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Key returns the store key for a resource and its attribute groups.
func (a *Aside) Key(resource string, groups ...AttributeGroup) string {
	key := DeriveKey(resource, groups...)
	if a.prefix != "" {
		return a.prefix + ":" + key
	}
	return key
}

// FetchWithCache returns the cached value for the request, calling fetch and
// storing its result for ttl on a miss. A ttl <= 0 selects the default TTL.
// Errors are either ErrOriginFetch or the caller's context error.
func (a *Aside) FetchWithCache(ctx context.Context, resource string, groups []AttributeGroup, ttl time.Duration, fetch FetchFunc) ([]byte, error) {
	res, err := a.Fetch(ctx, resource, groups, ttl, fetch)
	if err != nil {
		return nil, err
	}
	return res.Value, nil
}

// Fetch is FetchWithCache reporting how the value was obtained.
func (a *Aside) Fetch(ctx context.Context, resource string, groups []AttributeGroup, ttl time.Duration, fetch FetchFunc) (Result, error) {
	if fetch == nil {
		panic("fetch func cannot be nil")
	}

	key := a.Key(resource, groups...)
	logger := a.logger.With().Str("resource", resource).Str("key", key).Logger()

	// Step 1: Lookup
	value, ok, err := a.store.Get(ctx, key)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return Result{Key: key}, ctxErr
		}

		// Store down: serve from origin, do not write
		logger.Warn().Err(err).Msg("Cache store unavailable, fetching from origin")
		CacheBypass.WithLabelValues(resource).Inc()

		data, err := a.callOrigin(ctx, resource, key, fetch)
		if err != nil {
			return Result{Key: key, Status: StatusBypass}, err
		}
		return Result{Value: data, Status: StatusBypass, Key: key}, nil
	}

	// Step 2: Hit
	if ok {
		CacheHits.WithLabelValues(resource).Inc()
		logger.Debug().Bool("cache_hit", true).Msg("Cache hit")
		return Result{Value: value, Status: StatusHit, Key: key}, nil
	}

	// Step 3: Miss
	CacheMisses.WithLabelValues(resource).Inc()
	logger.Debug().Bool("cache_hit", false).Msg("Cache miss")

	ttl = a.policy.EffectiveTTL(ttl)

	var data []byte
	if a.group != nil {
		data, err = a.fillShared(ctx, resource, key, ttl, fetch, logger)
	} else {
		data, err = a.fill(ctx, resource, key, ttl, fetch, logger)
	}
	if err != nil {
		return Result{Key: key, Status: StatusMiss}, err
	}

	return Result{Value: data, Status: StatusMiss, Key: key}, nil
}

// Invalidate removes the entry for a resource and its attribute groups.
func (a *Aside) Invalidate(ctx context.Context, resource string, groups ...AttributeGroup) error {
	key := a.Key(resource, groups...)
	if err := a.store.Delete(ctx, key); err != nil {
		return fmt.Errorf("invalidate %q: %w", key, err)
	}
	a.logger.Debug().Str("key", key).Msg("Cache entry invalidated")
	return nil
}

// fill fetches from the origin and writes the result back on success.
func (a *Aside) fill(ctx context.Context, resource, key string, ttl time.Duration, fetch FetchFunc, logger zerolog.Logger) ([]byte, error) {
	data, err := a.callOrigin(ctx, resource, key, fetch)
	if err != nil {
		return nil, err
	}

	a.write(ctx, key, data, ttl, logger)
	return data, nil
}

// fillShared runs fill once per key for all concurrent callers. The shared
// call is detached from any single caller's cancellation; each caller stops
// waiting when its own context ends.
func (a *Aside) fillShared(ctx context.Context, resource, key string, ttl time.Duration, fetch FetchFunc, logger zerolog.Logger) ([]byte, error) {
	ch := a.group.DoChan(key, func() (any, error) {
		return a.fill(context.WithoutCancel(ctx), resource, key, ttl, fetch, logger)
	})

	select {
	case res := <-ch:
		if res.Shared {
			logger.Debug().Msg("Shared in-flight origin fetch")
		}
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.([]byte), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (a *Aside) callOrigin(ctx context.Context, resource, key string, fetch FetchFunc) ([]byte, error) {
	start := time.Now()
	data, err := fetch(ctx)
	OriginFetchDuration.WithLabelValues(resource).Observe(time.Since(start).Seconds())

	if err != nil {
		a.logger.Warn().
			Err(err).
			Str("resource", resource).
			Str("key", key).
			Msg("Origin fetch failed")
		return nil, &FetchError{Resource: resource, Key: key, Err: err}
	}
	return data, nil
}

// write stores value best-effort. The write is detached from ctx cancellation:
// if the caller goes away first, the write finishes in the background.
func (a *Aside) write(ctx context.Context, key string, value []byte, ttl time.Duration, logger zerolog.Logger) {
	done := make(chan struct{})

	go func() {
		defer close(done)

		wctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), a.writeTimeout)
		defer cancel()

		if err := a.store.SetWithExpiry(wctx, key, value, ttl); err != nil {
			CacheWriteErrors.Inc()
			logger.Warn().Err(err).Msg("Failed to cache response")
			return
		}
		logger.Debug().Dur("ttl", ttl).Int("bytes", len(value)).Msg("Cached response")
	}()

	select {
	case <-done:
	case <-ctx.Done():
		logger.Debug().Msg("Caller cancelled, cache write continues in background")
	}
}
