package observe

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
)

// BuildFunc builds a breadcrumb for a page and reports how many ancestors
// the resulting chain contains.
type BuildFunc func(ctx context.Context, page PageMeta) (int, error)

// Middleware wraps breadcrumb builds with tracing, metrics, and logging.
//
// Contract:
//   - Concurrency: Wrap returns a BuildFunc safe for concurrent use.
//   - Context: the wrapped function receives a context carrying the build span.
//   - Errors: errors from the wrapped function are recorded and returned unchanged.
type Middleware struct {
	tracer  Tracer
	metrics Metrics
	logger  Logger
}

// NewMiddleware creates a Middleware. Nil components are replaced with no-ops.
func NewMiddleware(tracer Tracer, metrics Metrics, logger Logger) *Middleware {
	if tracer == nil {
		tracer = NopTracer()
	}
	if metrics == nil {
		metrics = NopMetrics()
	}
	if logger == nil {
		logger = NopLogger()
	}
	return &Middleware{
		tracer:  tracer,
		metrics: metrics,
		logger:  logger,
	}
}

// Tracer returns the middleware's tracer.
func (m *Middleware) Tracer() Tracer { return m.tracer }

// Metrics returns the middleware's metrics.
func (m *Middleware) Metrics() Metrics { return m.metrics }

// Logger returns the middleware's logger.
func (m *Middleware) Logger() Logger { return m.logger }

// Wrap wraps a BuildFunc with a build span, build metrics, and a log entry.
func (m *Middleware) Wrap(fn BuildFunc) BuildFunc {
	return func(ctx context.Context, page PageMeta) (int, error) {
		ctx, span := m.tracer.StartSpan(ctx, OpBuild, page)
		start := time.Now()

		n, err := fn(ctx, page)

		duration := time.Since(start)
		span.SetAttributes(attribute.Int("breadcrumb.chain.length", n))
		m.tracer.EndSpan(span, err)
		m.metrics.RecordBuild(ctx, page, duration, n, err)

		log := m.logger.WithPage(page)
		fields := []Field{
			{Key: "duration_ms", Value: float64(duration.Microseconds()) / 1000},
			{Key: "chain_length", Value: n},
		}
		if err != nil {
			fields = append(fields, Field{Key: "error", Value: err.Error()})
			log.Error(ctx, "breadcrumb build failed", fields...)
		} else {
			log.Debug(ctx, "breadcrumb built", fields...)
		}

		return n, err
	}
}

// MiddlewareFromObserver creates a Middleware from an Observer.
func MiddlewareFromObserver(obs Observer) (*Middleware, error) {
	if obs == nil {
		return nil, ErrNilObserver
	}

	metrics, err := NewMetrics(obs.Meter())
	if err != nil {
		return nil, err
	}

	return NewMiddleware(NewTracer(obs.Tracer()), metrics, obs.Logger()), nil
}
