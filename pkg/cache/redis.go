package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore is a Store backed by Redis. Expiry is enforced by Redis itself.
type RedisStore struct {
	redis redis.UniversalClient
}

// NewRedisStore creates a new store over an established Redis client.
// The client is shared and owned by the caller.
func NewRedisStore(redisClient redis.UniversalClient) *RedisStore {
	if redisClient == nil {
		panic("redis client cannot be nil")
	}
	return &RedisStore{
		redis: redisClient,
	}
}

// Get retrieves a value by key. redis.Nil is reported as absence, not as an error.
func (s *RedisStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	data, err := s.redis.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		StoreErrors.WithLabelValues("get").Inc()
		return nil, false, &StoreError{Op: "get", Key: key, Err: err}
	}

	return data, true, nil
}

// SetWithExpiry stores value with the given TTL.
func (s *RedisStore) SetWithExpiry(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl <= 0 {
		return fmt.Errorf("%w: %v", ErrInvalidTTL, ttl)
	}

	if err := s.redis.Set(ctx, key, value, ttl).Err(); err != nil {
		StoreErrors.WithLabelValues("set").Inc()
		return &StoreError{Op: "set", Key: key, Err: err}
	}

	return nil
}

// Delete removes a value. Deleting a missing key is not an error.
func (s *RedisStore) Delete(ctx context.Context, key string) error {
	if err := s.redis.Del(ctx, key).Err(); err != nil {
		StoreErrors.WithLabelValues("delete").Inc()
		return &StoreError{Op: "delete", Key: key, Err: err}
	}

	return nil
}

// Ping checks connectivity to Redis.
func (s *RedisStore) Ping(ctx context.Context) error {
	if err := s.redis.Ping(ctx).Err(); err != nil {
		return &StoreError{Op: "ping", Err: err}
	}
	return nil
}

// Ensure RedisStore implements Store
var _ Store = (*RedisStore)(nil)
