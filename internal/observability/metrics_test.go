package observability

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func collect(t *testing.T, reader *sdkmetric.ManualReader) map[string]metricdata.Metrics {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	out := make(map[string]metricdata.Metrics)
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			out[m.Name] = m
		}
	}
	return out
}

func TestIngestMetrics(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))

	metrics, err := NewIngestMetrics(provider.Meter("test"))
	require.NoError(t, err)

	ctx := context.Background()
	metrics.RecordStep(ctx, StepSelect, OutcomeSuccess, "crop(800x600)", 120*time.Millisecond)
	metrics.RecordStep(ctx, StepSelect, OutcomeSuccess, "crop(800x600)", 80*time.Millisecond)
	metrics.RecordStep(ctx, StepUpload, OutcomeError, "crop(800x600)", time.Second)
	metrics.RecordOutput(ctx, "crop(800x600)", 54_000)

	got := collect(t, reader)

	ops, ok := got["ingest.operations"].Data.(metricdata.Sum[int64])
	require.True(t, ok)
	counts := map[string]int64{}
	for _, dp := range ops.DataPoints {
		step, _ := dp.Attributes.Value(attribute.Key("step"))
		outcome, _ := dp.Attributes.Value(attribute.Key("outcome"))
		counts[step.AsString()+"/"+outcome.AsString()] = dp.Value
	}
	assert.Equal(t, map[string]int64{"select/success": 2, "upload/error": 1}, counts)

	size, ok := got["ingest.output.bytes"].Data.(metricdata.Histogram[int64])
	require.True(t, ok)
	require.Len(t, size.DataPoints, 1)
	assert.Equal(t, int64(54_000), size.DataPoints[0].Sum)

	var nilMetrics *IngestMetrics
	nilMetrics.RecordStep(ctx, StepSelect, OutcomeError, "", 0)
	nilMetrics.RecordOutput(ctx, "", 1)
}

func TestMiddleware_UsesRoutePattern(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	meterProvider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	httpMetrics, err := NewHTTPMetrics(meterProvider.Meter("test"))
	require.NoError(t, err)

	spans := tracetest.NewSpanRecorder()
	tracerProvider := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(spans))

	r := chi.NewRouter()
	r.Use(TracingMiddleware(tracerProvider.Tracer("test")))
	r.Use(MetricsMiddleware(httpMetrics))
	r.Get("/api/products/{slug}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	r.Get(healthzPath, func(w http.ResponseWriter, r *http.Request) {})

	for _, path := range []string{"/api/products/anillo-luna", "/api/products/collar-sol", healthzPath} {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	}

	ended := spans.Ended()
	require.Len(t, ended, 2)
	assert.Equal(t, "GET /api/products/{slug}", ended[0].Name())

	count, ok := collect(t, reader)["http.server.request.count"].Data.(metricdata.Sum[int64])
	require.True(t, ok)
	require.Len(t, count.DataPoints, 1)
	assert.Equal(t, int64(2), count.DataPoints[0].Value)
}
