package resilience

import "errors"

// Sentinel errors for guarded store calls.
var (
	// ErrCircuitOpen is returned when the circuit breaker rejects a call.
	ErrCircuitOpen = errors.New("resilience: circuit breaker is open")

	// ErrMaxRetriesExceeded wraps the last error once retry attempts run out.
	ErrMaxRetriesExceeded = errors.New("resilience: max retries exceeded")

	// ErrTimeout is returned when a call outlives its timeout.
	ErrTimeout = errors.New("resilience: operation timed out")
)
