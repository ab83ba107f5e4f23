package cache

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// MemoryStore is an in-process Store. Expired entries are removed lazily.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry
	now     func() time.Time
}

type memoryEntry struct {
	value     []byte
	expiresAt time.Time
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		entries: make(map[string]memoryEntry),
		now:     time.Now,
	}
}

// Get retrieves a value. Returns (nil, false, nil) on miss or expiry.
func (s *MemoryStore) Get(_ context.Context, key string) ([]byte, bool, error) {
	s.mu.RLock()
	entry, ok := s.entries[key]
	s.mu.RUnlock()

	if !ok {
		return nil, false, nil
	}

	if !s.now().Before(entry.expiresAt) {
		s.mu.Lock()
		// re-check: a concurrent set may have replaced it
		if cur, ok := s.entries[key]; ok && !s.now().Before(cur.expiresAt) {
			delete(s.entries, key)
		}
		s.mu.Unlock()
		return nil, false, nil
	}

	return entry.value, true, nil
}

// SetWithExpiry stores a copy of value with the given TTL.
func (s *MemoryStore) SetWithExpiry(_ context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl <= 0 {
		return fmt.Errorf("%w: %v", ErrInvalidTTL, ttl)
	}

	v := make([]byte, len(value))
	copy(v, value)

	s.mu.Lock()
	s.entries[key] = memoryEntry{
		value:     v,
		expiresAt: s.now().Add(ttl),
	}
	s.mu.Unlock()

	return nil
}

// Delete removes a value. Idempotent.
func (s *MemoryStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	delete(s.entries, key)
	s.mu.Unlock()
	return nil
}

// Len returns the number of stored entries, including expired ones not yet collected.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// Ensure MemoryStore implements Store
var _ Store = (*MemoryStore)(nil)
