package observability

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

const upstreamInstrumentationName = "face-gallery/internal/platform/galleryapi"

// UpstreamMetrics holds the instruments for calls to the gallery endpoint
type UpstreamMetrics struct {
	requestCount    metric.Int64Counter
	requestDuration metric.Float64Histogram
}

// NewUpstreamMetrics creates and registers upstream client metrics
func NewUpstreamMetrics(meter metric.Meter) (*UpstreamMetrics, error) {
	requestCount, err := meter.Int64Counter(
		"gallery.upstream.request.count",
		metric.WithDescription("Total number of requests sent to the gallery endpoint"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, err
	}

	requestDuration, err := meter.Float64Histogram(
		"gallery.upstream.request.duration",
		metric.WithDescription("Duration of requests sent to the gallery endpoint"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	return &UpstreamMetrics{
		requestCount:    requestCount,
		requestDuration: requestDuration,
	}, nil
}

// Record stores one finished upstream call. outcome is a short error kind
// ("ok", "network", "status", "application", "malformed").
func (m *UpstreamMetrics) Record(ctx context.Context, operation, outcome string, started time.Time) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(
		attribute.String("gallery.operation", operation),
		attribute.String("gallery.outcome", outcome),
	)
	m.requestCount.Add(ctx, 1, attrs)
	m.requestDuration.Record(ctx, time.Since(started).Seconds(), attrs)
}

// GetUpstreamTracer returns the tracer used for upstream client spans
func GetUpstreamTracer() trace.Tracer {
	return otel.Tracer(upstreamInstrumentationName)
}

// GetUpstreamMeter returns the meter used for upstream client metrics
func GetUpstreamMeter() metric.Meter {
	return otel.Meter(upstreamInstrumentationName)
}
