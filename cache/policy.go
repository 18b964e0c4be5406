package cache

import "time"

// Policy configures how long breadcrumb records live in the backing store.
type Policy struct {
	// TTL is the lifetime of a written record.
	// If zero, records never expire and live until invalidated.
	TTL time.Duration

	// MaxTTL is the maximum allowed TTL. Override TTLs are clamped to this.
	// If zero, no maximum is enforced.
	MaxTTL time.Duration

	// Disabled turns persistence off: writes are skipped and reads miss.
	Disabled bool
}

// DefaultPolicy returns the default policy.
// TTL: none (records live until the page is saved), MaxTTL: none.
func DefaultPolicy() Policy {
	return Policy{}
}

// NoCachePolicy returns a policy that disables persistence entirely.
func NoCachePolicy() Policy {
	return Policy{Disabled: true}
}

// ShouldCache returns true if this policy persists records.
func (p Policy) ShouldCache() bool {
	return !p.Disabled
}

// EffectiveTTL returns the TTL to use, applying defaults and clamping.
// A zero result means no expiry.
func (p Policy) EffectiveTTL(override time.Duration) time.Duration {
	ttl := override
	if ttl <= 0 {
		ttl = p.TTL
	}

	// A record without expiry still honors MaxTTL when one is set
	if p.MaxTTL > 0 && (ttl <= 0 || ttl > p.MaxTTL) {
		ttl = p.MaxTTL
	}

	return ttl
}
