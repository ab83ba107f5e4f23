package cache

import (
	"context"
	"errors"
	"fmt"
	"time"
)

var (
	// ErrStoreUnavailable indicates a transport or connection failure talking
	// to the backing store. It is never returned for a missing key.
	ErrStoreUnavailable = errors.New("cache store unavailable")

	// ErrInvalidTTL indicates a non-positive expiry was passed to SetWithExpiry.
	ErrInvalidTTL = errors.New("cache ttl must be positive")
)

// Store is a key-value store with per-entry expiry.
//
// Implementations must be safe for concurrent use.
type Store interface {
	// Get returns the value for key. Returns (nil, false, nil) when the key
	// is unset or has expired.
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// SetWithExpiry stores value under key, overwriting any existing value
	// and resetting its expiry.
	SetWithExpiry(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Delete removes key. No-op if the key is not present.
	Delete(ctx context.Context, key string) error
}

// StoreError wraps a store failure with the operation and key involved.
// It matches ErrStoreUnavailable via errors.Is.
type StoreError struct {
	Op  string
	Key string
	Err error
}

// Error implements the error interface.
func (e *StoreError) Error() string {
	return fmt.Sprintf("cache store %s %q: %v", e.Op, e.Key, e.Err)
}

// Unwrap implements error unwrapping for errors.Is/As.
func (e *StoreError) Unwrap() error {
	return e.Err
}

// Is reports whether target is ErrStoreUnavailable.
func (e *StoreError) Is(target error) bool {
	return target == ErrStoreUnavailable
}
