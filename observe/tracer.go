package observe

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
)

// Span operation names.
const (
	OpBuild      = "build"
	OpWalk       = "walk"
	OpInvalidate = "invalidate"
)

// PageMeta identifies the page a telemetry event is about.
type PageMeta struct {
	ID        string // storage identifier (optional)
	Title     string // normalized title (required)
	Namespace string // canonical namespace, empty for the main namespace
}

// SpanName returns the span name for an operation.
// Titles are kept out of span names to bound cardinality.
func SpanName(op string) string {
	return "breadcrumb." + op
}

func (m PageMeta) attributes() []attribute.KeyValue {
	attrs := []attribute.KeyValue{
		attribute.String("page.title", m.Title),
	}
	if m.ID != "" {
		attrs = append(attrs, attribute.String("page.id", m.ID))
	}
	if m.Namespace != "" {
		attrs = append(attrs, attribute.String("page.namespace", m.Namespace))
	}
	return attrs
}

// Tracer wraps OpenTelemetry tracing with page-scoped span management.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Context: StartSpan returns a context carrying the new span.
// - Errors: EndSpan must be best-effort and must not panic.
type Tracer interface {
	// StartSpan starts a span for op on the given page.
	StartSpan(ctx context.Context, op string, meta PageMeta) (context.Context, trace.Span)

	// EndSpan ends the span, recording any error.
	EndSpan(span trace.Span, err error)
}

type tracerImpl struct {
	tracer trace.Tracer
}

// NewTracer wraps an OpenTelemetry tracer.
func NewTracer(t trace.Tracer) Tracer {
	return &tracerImpl{tracer: t}
}

func (t *tracerImpl) StartSpan(ctx context.Context, op string, meta PageMeta) (context.Context, trace.Span) {
	attrs := append(meta.attributes(), attribute.Bool("breadcrumb.error", false))
	return t.tracer.Start(ctx, SpanName(op),
		trace.WithAttributes(attrs...),
		trace.WithSpanKind(trace.SpanKindInternal),
	)
}

func (t *tracerImpl) EndSpan(span trace.Span, err error) {
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		span.SetAttributes(attribute.Bool("breadcrumb.error", true))
		span.RecordError(err)
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}

type noopTracer struct {
	noop trace.Tracer
}

// NopTracer returns a Tracer whose spans are never recorded.
func NopTracer() Tracer {
	return &noopTracer{noop: tracenoop.NewTracerProvider().Tracer("noop")}
}

func (t *noopTracer) StartSpan(ctx context.Context, op string, _ PageMeta) (context.Context, trace.Span) {
	return t.noop.Start(ctx, SpanName(op))
}

func (t *noopTracer) EndSpan(span trace.Span, _ error) {
	span.End()
}
