package observability

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Ingest step names and outcomes used as metric attributes
const (
	StepSelect = "select"
	StepUpload = "upload"

	OutcomeSuccess    = "success"
	OutcomeError      = "error"
	OutcomeSuperseded = "superseded"
)

// IngestMetrics records image pipeline activity. A nil *IngestMetrics is a no-op.
type IngestMetrics struct {
	operations  metric.Int64Counter
	outputBytes metric.Int64Histogram
	duration    metric.Float64Histogram
}

// NewIngestMetrics registers the pipeline instruments on meter
func NewIngestMetrics(meter metric.Meter) (*IngestMetrics, error) {
	operations, err := meter.Int64Counter(
		"ingest.operations",
		metric.WithDescription("Image pipeline steps by outcome"),
		metric.WithUnit("{operation}"),
	)
	if err != nil {
		return nil, err
	}

	outputBytes, err := meter.Int64Histogram(
		"ingest.output.bytes",
		metric.WithDescription("Size of processed images ready for upload"),
		metric.WithUnit("By"),
	)
	if err != nil {
		return nil, err
	}

	duration, err := meter.Float64Histogram(
		"ingest.duration",
		metric.WithDescription("Duration of image pipeline steps"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	return &IngestMetrics{
		operations:  operations,
		outputBytes: outputBytes,
		duration:    duration,
	}, nil
}

// RecordStep counts one pipeline step and its duration
func (m *IngestMetrics) RecordStep(ctx context.Context, step, outcome, policy string, elapsed time.Duration) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(
		attribute.String("step", step),
		attribute.String("outcome", outcome),
		attribute.String("policy", policy),
	)
	m.operations.Add(ctx, 1, attrs)
	m.duration.Record(ctx, elapsed.Seconds(), attrs)
}

// RecordOutput records the size of a processed image
func (m *IngestMetrics) RecordOutput(ctx context.Context, policy string, size int) {
	if m == nil {
		return
	}
	m.outputBytes.Record(ctx, int64(size), metric.WithAttributes(attribute.String("policy", policy)))
}
