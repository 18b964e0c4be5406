package observe

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// LookupResult classifies an ancestor cache lookup.
type LookupResult string

const (
	LookupHit   LookupResult = "hit"
	LookupMiss  LookupResult = "miss"
	LookupError LookupResult = "error"
)

// Metrics records breadcrumb build and cache metrics.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Context: must return quickly.
// - Errors: implementations must not panic.
type Metrics interface {
	// RecordBuild records one trail build with its duration and chain length.
	RecordBuild(ctx context.Context, meta PageMeta, duration time.Duration, chainLen int, err error)

	// RecordCacheLookup records the outcome of one ancestor cache lookup.
	RecordCacheLookup(ctx context.Context, result LookupResult)
}

type metricsImpl struct {
	totalCount   metric.Int64Counter
	errorCount   metric.Int64Counter
	durationHist metric.Float64Histogram
	chainHist    metric.Int64Histogram
	lookupCount  metric.Int64Counter
}

// NewMetrics creates the breadcrumb instruments on meter.
func NewMetrics(meter metric.Meter) (Metrics, error) {
	totalCount, err := meter.Int64Counter(
		"breadcrumb.build.total",
		metric.WithDescription("Total number of breadcrumb builds"),
		metric.WithUnit("{build}"),
	)
	if err != nil {
		return nil, err
	}

	errorCount, err := meter.Int64Counter(
		"breadcrumb.build.errors",
		metric.WithDescription("Total number of failed breadcrumb builds"),
		metric.WithUnit("{error}"),
	)
	if err != nil {
		return nil, err
	}

	durationHist, err := meter.Float64Histogram(
		"breadcrumb.build.duration_ms",
		metric.WithDescription("Breadcrumb build duration in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	chainHist, err := meter.Int64Histogram(
		"breadcrumb.chain.length",
		metric.WithDescription("Number of ancestors found per build"),
		metric.WithUnit("{page}"),
	)
	if err != nil {
		return nil, err
	}

	lookupCount, err := meter.Int64Counter(
		"breadcrumb.cache.lookups",
		metric.WithDescription("Ancestor cache lookups by result"),
		metric.WithUnit("{lookup}"),
	)
	if err != nil {
		return nil, err
	}

	return &metricsImpl{
		totalCount:   totalCount,
		errorCount:   errorCount,
		durationHist: durationHist,
		chainHist:    chainHist,
		lookupCount:  lookupCount,
	}, nil
}

func (m *metricsImpl) RecordBuild(ctx context.Context, meta PageMeta, duration time.Duration, chainLen int, err error) {
	// Titles are unbounded; only the namespace is used as a dimension.
	opt := metric.WithAttributes(attribute.String("page.namespace", meta.Namespace))

	m.totalCount.Add(ctx, 1, opt)
	if err != nil {
		m.errorCount.Add(ctx, 1, opt)
	}
	m.durationHist.Record(ctx, float64(duration.Microseconds())/1000, opt)
	m.chainHist.Record(ctx, int64(chainLen), opt)
}

func (m *metricsImpl) RecordCacheLookup(ctx context.Context, result LookupResult) {
	m.lookupCount.Add(ctx, 1, metric.WithAttributes(attribute.String("result", string(result))))
}

type noopMetrics struct{}

// NopMetrics returns a Metrics that records nothing.
func NopMetrics() Metrics {
	return noopMetrics{}
}

func (noopMetrics) RecordBuild(context.Context, PageMeta, time.Duration, int, error) {}
func (noopMetrics) RecordCacheLookup(context.Context, LookupResult)                  {}
