// Package resilience guards calls to backing stores.
//
// A breadcrumb build must never fail because its cache is slow or down, so
// store traffic runs through an Executor that composes three patterns:
//
//   - Circuit Breaker: after repeated failures, calls are rejected with
//     ErrCircuitOpen until a probe succeeds.
//
//   - Retry: transient failures (such as SQLite's busy lock) are retried with
//     exponential, linear, or constant backoff.
//
//   - Timeout: each call gets its own deadline.
//
// # Usage
//
//	exec := resilience.NewExecutor(
//	    resilience.WithCircuitBreaker(resilience.NewCircuitBreaker(resilience.CircuitBreakerConfig{
//	        Name:         "badger",
//	        MaxFailures:  5,
//	        ResetTimeout: 10 * time.Second,
//	    })),
//	    resilience.WithTimeout(250*time.Millisecond),
//	)
//
//	err := exec.Execute(ctx, func(ctx context.Context) error {
//	    return store.Set(ctx, key, value, 0)
//	})
package resilience
