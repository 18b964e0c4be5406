// Package health reports whether the breadcrumb store is usable.
//
// A Checker reports one component's Status: Healthy, Degraded, or
// Unhealthy. StoreChecker probes an ancestor store with a write, a read,
// and a delete, and reads the state of the circuit breaker guarding it. An
// open breaker is Degraded, not Unhealthy, because rendering continues
// without the store and only trail depth suffers.
//
// # Aggregating Checks
//
//	agg := health.NewAggregator()
//	agg.Register(health.NewStoreChecker("ancestors", store, breaker))
//
//	results := agg.CheckAll(ctx)
//	overall := health.Overall(results)
//
// # HTTP Endpoints
//
//	mux := http.NewServeMux()
//	health.RegisterHandlers(mux, agg)
//
// registers /healthz (liveness), /readyz (readiness), and /health (JSON
// detail).
package health
