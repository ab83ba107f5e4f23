package cache

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestMemoryStore_SetAndGet(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	value := []byte(`{"id":1}`)
	if err := store.SetWithExpiry(ctx, "photo_params-id:1", value, time.Minute); err != nil {
		t.Fatalf("SetWithExpiry failed: %v", err)
	}

	// Mutating the caller's slice must not change the stored copy
	value[0] = 'X'

	got, ok, err := store.Get(ctx, "photo_params-id:1")
	if err != nil || !ok {
		t.Fatalf("Get = (%v, %v), want hit", ok, err)
	}
	if string(got) != `{"id":1}` {
		t.Errorf("Get = %s, want {\"id\":1}", got)
	}
}

func TestMemoryStore_Miss(t *testing.T) {
	store := NewMemoryStore()

	got, ok, err := store.Get(context.Background(), "missing")
	if err != nil {
		t.Errorf("Get on missing key returned error: %v", err)
	}
	if ok || got != nil {
		t.Errorf("Get = (%s, %v), want (nil, false)", got, ok)
	}
}

func TestMemoryStore_Expiry(t *testing.T) {
	clock := &fakeClock{now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	store := NewMemoryStore()
	store.now = clock.Now
	ctx := context.Background()

	if err := store.SetWithExpiry(ctx, "k", []byte("v"), time.Second); err != nil {
		t.Fatalf("SetWithExpiry failed: %v", err)
	}

	clock.Advance(time.Second)
	if _, ok, _ := store.Get(ctx, "k"); ok {
		t.Error("entry should be expired at ttl")
	}
	if store.Len() != 0 {
		t.Errorf("Len = %d, want 0 after lazy expiry", store.Len())
	}
}

func TestMemoryStore_OverwriteResetsExpiry(t *testing.T) {
	clock := &fakeClock{now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	store := NewMemoryStore()
	store.now = clock.Now
	ctx := context.Background()

	_ = store.SetWithExpiry(ctx, "k", []byte("old"), 2*time.Second)
	clock.Advance(1500 * time.Millisecond)
	_ = store.SetWithExpiry(ctx, "k", []byte("new"), 2*time.Second)
	clock.Advance(1500 * time.Millisecond)

	got, ok, _ := store.Get(ctx, "k")
	if !ok || string(got) != "new" {
		t.Errorf("Get = (%s, %v), want (new, true)", got, ok)
	}
}

func TestMemoryStore_InvalidTTL(t *testing.T) {
	store := NewMemoryStore()

	for _, ttl := range []time.Duration{0, -time.Second} {
		err := store.SetWithExpiry(context.Background(), "k", []byte("v"), ttl)
		if !errors.Is(err, ErrInvalidTTL) {
			t.Errorf("SetWithExpiry(ttl=%v) error = %v, want ErrInvalidTTL", ttl, err)
		}
	}
	if store.Len() != 0 {
		t.Errorf("Len = %d, want 0", store.Len())
	}
}

func TestMemoryStore_Delete(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	_ = store.SetWithExpiry(ctx, "k", []byte("v"), time.Minute)
	if err := store.Delete(ctx, "k"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, ok, _ := store.Get(ctx, "k"); ok {
		t.Error("entry should be gone after Delete")
	}
	if err := store.Delete(ctx, "k"); err != nil {
		t.Errorf("Delete of missing key returned error: %v", err)
	}
}

func TestPolicy_EffectiveTTL(t *testing.T) {
	tests := []struct {
		name     string
		policy   Policy
		override time.Duration
		want     time.Duration
	}{
		{"zero policy falls back to package default", Policy{}, 0, DefaultTTL},
		{"default", DefaultPolicy(), 0, time.Hour},
		{"override", DefaultPolicy(), time.Second, time.Second},
		{"clamp", Policy{DefaultTTL: time.Minute, MaxTTL: 30 * time.Second}, 0, 30 * time.Second},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.policy.EffectiveTTL(tt.override); got != tt.want {
				t.Errorf("EffectiveTTL(%v) = %v, want %v", tt.override, got, tt.want)
			}
		})
	}
}
