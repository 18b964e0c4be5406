// Package observe provides observability primitives for breadcrumb builds.
//
// It is a pure instrumentation library: a JSON structured Logger, an
// OpenTelemetry-backed Tracer and Metrics, and a Middleware that wraps a
// build with all three. Exporter setup lives in the exporters subpackage.
package observe
