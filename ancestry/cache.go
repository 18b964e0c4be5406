package ancestry

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sync/singleflight"

	"github.com/jonwraymond/breadcrumb/cache"
	"github.com/jonwraymond/breadcrumb/observe"
	"github.com/jonwraymond/breadcrumb/page"
	"github.com/jonwraymond/breadcrumb/resilience"
)

// Errors returned by Cache.
var (
	// ErrNilCache indicates NewCache was given no backing store.
	ErrNilCache = errors.New("ancestry: backing store is nil")

	// ErrCacheUnavailable wraps every backing store failure. Callers treat it
	// as "nothing cached" and keep rendering.
	ErrCacheUnavailable = errors.New("ancestry: cache unavailable")

	// ErrIdentifierRequired indicates identity keying without a way to map
	// titles to identities.
	ErrIdentifierRequired = errors.New("ancestry: identity key scheme requires a page.Identifier")

	// ErrUnidentified indicates a page whose identity could not be determined.
	ErrUnidentified = errors.New("ancestry: page has no identity")

	// ErrScanUnsupported indicates a backing store that cannot enumerate keys.
	ErrScanUnsupported = errors.New("ancestry: backing store does not support scanning")
)

// Cache stores Records in a cache.Cache.
//
// Contract:
//   - Concurrency: safe for concurrent use; concurrent Gets of one key share
//     a single store read.
//   - Errors: store failures are wrapped with ErrCacheUnavailable. A miss is
//     (Record{}, false, nil).
//   - Self-healing: a payload that does not decode is deleted and reported
//     as a miss.
type Cache struct {
	store      cache.Cache
	keyer      cache.Keyer
	identifier page.Identifier
	policy     cache.Policy
	exec       *resilience.Executor
	logger     observe.Logger
	metrics    observe.Metrics
	flight     singleflight.Group
}

// CacheOption configures a Cache.
type CacheOption func(*Cache)

// WithIdentifier sets the title to identity mapping used by KeyByID keyers.
func WithIdentifier(id page.Identifier) CacheOption {
	return func(c *Cache) {
		c.identifier = id
	}
}

// WithPolicy sets the TTL policy.
func WithPolicy(p cache.Policy) CacheOption {
	return func(c *Cache) {
		c.policy = p
	}
}

// WithExecutor replaces the default store guard.
func WithExecutor(e *resilience.Executor) CacheOption {
	return func(c *Cache) {
		if e != nil {
			c.exec = e
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l observe.Logger) CacheOption {
	return func(c *Cache) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithMetrics sets the lookup metrics sink.
func WithMetrics(m observe.Metrics) CacheOption {
	return func(c *Cache) {
		if m != nil {
			c.metrics = m
		}
	}
}

// NewCache creates a Cache over store. A nil keyer keys by title under
// cache.DefaultNamespace. Unless WithExecutor is given, store calls run
// behind a circuit breaker that opens after five consecutive failures.
func NewCache(store cache.Cache, keyer cache.Keyer, opts ...CacheOption) (*Cache, error) {
	if store == nil {
		return nil, ErrNilCache
	}
	if keyer == nil {
		keyer = cache.NewPageKeyer(cache.DefaultNamespace, cache.KeyByTitle)
	}

	c := &Cache{
		store:   store,
		keyer:   keyer,
		policy:  cache.DefaultPolicy(),
		logger:  observe.NopLogger(),
		metrics: observe.NopMetrics(),
	}
	for _, opt := range opts {
		opt(c)
	}

	if keyer.Scheme() == cache.KeyByID && c.identifier == nil {
		return nil, ErrIdentifierRequired
	}

	if c.exec == nil {
		c.exec = resilience.NewExecutor(resilience.WithCircuitBreaker(
			resilience.NewCircuitBreaker(resilience.CircuitBreakerConfig{
				Name:          "ancestry",
				OnStateChange: c.logStateChange,
			}),
		))
	}
	return c, nil
}

func (c *Cache) logStateChange(name string, from, to resilience.State) {
	c.logger.Warn(context.Background(), "breadcrumb cache circuit changed state",
		observe.Field{Key: "breaker", Value: name},
		observe.Field{Key: "from", Value: from.String()},
		observe.Field{Key: "to", Value: to.String()},
	)
}

// Scheme returns the key scheme in use.
func (c *Cache) Scheme() cache.KeyScheme {
	return c.keyer.Scheme()
}

// CircuitBreaker returns the breaker guarding the store, or nil.
func (c *Cache) CircuitBreaker() *resilience.CircuitBreaker {
	return c.exec.CircuitBreaker()
}

// KeyFor returns the store key for ref under the configured scheme.
// Identity keys use ref.ID, falling back to the Identifier.
func (c *Cache) KeyFor(ctx context.Context, ref page.Reference) (string, error) {
	if c.keyer.Scheme() != cache.KeyByID {
		return c.keyer.Key(ref.Title)
	}

	id := ref.ID
	if id == "" {
		var err error
		id, err = c.identifier.Identify(ctx, ref.Title)
		if err != nil {
			return "", fmt.Errorf("%w: %s: %w", ErrUnidentified, ref.Title, err)
		}
		if id == "" {
			return "", fmt.Errorf("%w: %s", ErrUnidentified, ref.Title)
		}
	}
	return c.keyer.Key(id)
}

// KeyForTitle is KeyFor for a bare title.
func (c *Cache) KeyForTitle(ctx context.Context, title string) (string, error) {
	return c.KeyFor(ctx, page.Reference{Title: title})
}

// Get reads the record stored under key.
func (c *Cache) Get(ctx context.Context, key string) (Record, bool, error) {
	if !c.policy.ShouldCache() {
		return Record{}, false, nil
	}

	// The load is shared by every caller waiting on key, so it must not end
	// when one of them is cancelled. The executor timeout still bounds it.
	ch := c.flight.DoChan(key, func() (any, error) {
		return c.load(context.WithoutCancel(ctx), key)
	})
	var res singleflight.Result
	select {
	case <-ctx.Done():
		return Record{}, false, ctx.Err()
	case res = <-ch:
	}
	if res.Err != nil {
		c.metrics.RecordCacheLookup(ctx, observe.LookupError)
		return Record{}, false, res.Err
	}

	rec, ok := res.Val.(*Record)
	if !ok || rec == nil {
		c.metrics.RecordCacheLookup(ctx, observe.LookupMiss)
		return Record{}, false, nil
	}
	c.metrics.RecordCacheLookup(ctx, observe.LookupHit)
	return *rec, true, nil
}

// load returns nil on a miss.
func (c *Cache) load(ctx context.Context, key string) (*Record, error) {
	var (
		data  []byte
		found bool
	)
	err := c.exec.Execute(ctx, func(ctx context.Context) error {
		var err error
		data, found, err = c.store.Get(ctx, key)
		return err
	})
	if err != nil {
		return nil, c.unavailable(ctx, "get", key, err)
	}
	if !found {
		return nil, nil
	}

	rec, err := decodeRecord(data)
	if err != nil {
		c.logger.Warn(ctx, "discarding undecodable breadcrumb record",
			observe.Field{Key: "key", Value: key},
			observe.Field{Key: "error", Value: err.Error()},
		)
		if err := c.delete(ctx, key); err != nil {
			return nil, err
		}
		return nil, nil
	}
	return &rec, nil
}

// Put stores rec under key, replacing any previous record.
func (c *Cache) Put(ctx context.Context, key string, rec Record) error {
	if !c.policy.ShouldCache() {
		return nil
	}

	data, err := encodeRecord(rec)
	if err != nil {
		return fmt.Errorf("ancestry: encode record %q: %w", rec.Title, err)
	}

	ttl := c.policy.EffectiveTTL(0)
	err = c.exec.Execute(ctx, func(ctx context.Context) error {
		return c.store.Set(ctx, key, data, ttl)
	})
	if err != nil {
		return c.unavailable(ctx, "put", key, err)
	}
	return nil
}

// Invalidate deletes the record under key. Missing keys are not an error.
func (c *Cache) Invalidate(ctx context.Context, key string) error {
	if !c.policy.ShouldCache() {
		return nil
	}
	return c.delete(ctx, key)
}

func (c *Cache) delete(ctx context.Context, key string) error {
	err := c.exec.Execute(ctx, func(ctx context.Context) error {
		return c.store.Delete(ctx, key)
	})
	if err != nil {
		return c.unavailable(ctx, "invalidate", key, err)
	}
	return nil
}

// Scan calls fn for every decodable record under the keyer's namespace, in
// key order. Undecodable payloads are skipped. The store must implement
// cache.Scanner.
func (c *Cache) Scan(ctx context.Context, fn func(key string, rec Record) error) error {
	scanner, ok := c.store.(cache.Scanner)
	if !ok {
		return ErrScanUnsupported
	}

	var prefix string
	if p, ok := c.keyer.(interface{ Prefix() string }); ok {
		prefix = p.Prefix()
	}

	return scanner.Scan(ctx, prefix, func(key string, value []byte) error {
		rec, err := decodeRecord(value)
		if err != nil {
			c.logger.Debug(ctx, "skipping undecodable breadcrumb record", observe.Field{Key: "key", Value: key})
			return nil
		}
		return fn(key, rec)
	})
}

func (c *Cache) unavailable(ctx context.Context, op, key string, err error) error {
	c.logger.Warn(ctx, "breadcrumb cache unavailable",
		observe.Field{Key: "op", Value: op},
		observe.Field{Key: "key", Value: key},
		observe.Field{Key: "error", Value: err.Error()},
	)
	return fmt.Errorf("%w: %s %s: %w", ErrCacheUnavailable, op, key, err)
}
