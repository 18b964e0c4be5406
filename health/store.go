package health

import (
	"bytes"
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/jonwraymond/breadcrumb/cache"
	"github.com/jonwraymond/breadcrumb/resilience"
)

// DefaultProbeKey is the key StoreChecker writes and removes. It sits
// outside cache.DefaultNamespace so record scans never visit it.
const DefaultProbeKey = "breadcrumb-health:probe"

// StoreChecker probes a cache.Cache and the breaker guarding it.
type StoreChecker struct {
	name     string
	store    cache.Cache
	breaker  *resilience.CircuitBreaker
	probeKey string
	now      func() time.Time
}

// StoreOption configures a StoreChecker.
type StoreOption func(*StoreChecker)

// WithProbeKey overrides DefaultProbeKey.
func WithProbeKey(key string) StoreOption {
	return func(c *StoreChecker) {
		if key != "" {
			c.probeKey = key
		}
	}
}

// NewStoreChecker creates a StoreChecker. breaker may be nil.
func NewStoreChecker(name string, store cache.Cache, breaker *resilience.CircuitBreaker, opts ...StoreOption) *StoreChecker {
	c := &StoreChecker{
		name:     name,
		store:    store,
		breaker:  breaker,
		probeKey: DefaultProbeKey,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Name returns the checker name.
func (c *StoreChecker) Name() string {
	return c.name
}

// Check writes, reads back, and deletes a probe value. A failed probe is
// Unhealthy. A healthy probe behind an open or half-open breaker is
// Degraded, since renders skip the store until the breaker closes.
func (c *StoreChecker) Check(ctx context.Context) Result {
	if c.store == nil {
		return Unhealthy("no store configured", cache.ErrNilCache)
	}

	details := map[string]any{}
	if c.breaker != nil {
		snap := c.breaker.Snapshot()
		details["breaker"] = snap.State.String()
		details["breaker_failures"] = snap.Failures
		if !snap.LastFailure.IsZero() {
			details["breaker_last_failure"] = snap.LastFailure.UTC().Format(time.RFC3339)
		}
	}

	if err := c.probe(ctx); err != nil {
		return Unhealthy("store probe failed", err).WithDetails(details)
	}

	if c.breaker != nil {
		switch state := c.breaker.State(); state {
		case resilience.StateOpen, resilience.StateHalfOpen:
			return Degraded(fmt.Sprintf("store circuit %s", state)).WithDetails(details)
		}
	}
	return Healthy("store reachable").WithDetails(details)
}

func (c *StoreChecker) probe(ctx context.Context) error {
	want := []byte(strconv.FormatInt(c.now().UnixNano(), 10))
	if err := c.store.Set(ctx, c.probeKey, want, time.Minute); err != nil {
		return fmt.Errorf("%w: set: %w", ErrCheckFailed, err)
	}
	got, ok, err := c.store.Get(ctx, c.probeKey)
	if err != nil {
		return fmt.Errorf("%w: get: %w", ErrCheckFailed, err)
	}
	if !ok || !bytes.Equal(got, want) {
		return ErrProbeMismatch
	}
	if err := c.store.Delete(ctx, c.probeKey); err != nil {
		return fmt.Errorf("%w: delete: %w", ErrCheckFailed, err)
	}
	return nil
}

var _ Checker = (*StoreChecker)(nil)
