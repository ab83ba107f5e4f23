package cache

import "time"

// DefaultTTL is the entry lifetime used when a caller passes no TTL.
const DefaultTTL = 3600 * time.Second

// Policy configures entry lifetimes.
type Policy struct {
	// DefaultTTL is the TTL used when a call specifies none.
	DefaultTTL time.Duration

	// MaxTTL clamps per-call TTL overrides. Zero means no maximum.
	MaxTTL time.Duration
}

// DefaultPolicy returns a one hour default TTL with no maximum.
func DefaultPolicy() Policy {
	return Policy{
		DefaultTTL: DefaultTTL,
	}
}

// EffectiveTTL returns the TTL to use, applying defaults and clamping.
func (p Policy) EffectiveTTL(override time.Duration) time.Duration {
	ttl := override
	if ttl <= 0 {
		ttl = p.DefaultTTL
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}

	if p.MaxTTL > 0 && ttl > p.MaxTTL {
		ttl = p.MaxTTL
	}

	return ttl
}
