package observability

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace"
)

func TestParseLogLevel(t *testing.T) {
	tests := map[string]zerolog.Level{
		"debug":   zerolog.DebugLevel,
		"INFO":    zerolog.InfoLevel,
		"warning": zerolog.WarnLevel,
		"error":   zerolog.ErrorLevel,
		"bogus":   zerolog.InfoLevel,
	}
	for in, want := range tests {
		assert.Equal(t, want, parseLogLevel(in), in)
	}
}

func TestLogger_TraceCorrelation(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerWithWriter(&buf, Config{ServiceName: "jewelry-catalog", LogLevel: "debug"}).With("pipeline")

	traceID, _ := trace.TraceIDFromHex("0af7651916cd43dd8448eb211c80319c")
	spanID, _ := trace.SpanIDFromHex("b7ad6b7169203331")
	ctx := trace.ContextWithSpanContext(context.Background(), trace.NewSpanContext(trace.SpanContextConfig{
		TraceID:    traceID,
		SpanID:     spanID,
		TraceFlags: trace.FlagsSampled,
	}))

	logger.Info(ctx).Str("target", "carousel").Msg("image processed")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "jewelry-catalog", entry["service"])
	assert.Equal(t, "pipeline", entry["component"])
	assert.Equal(t, "0af7651916cd43dd8448eb211c80319c", entry["trace_id"])
	assert.Equal(t, "b7ad6b7169203331", entry["span_id"])
	assert.Equal(t, "carousel", entry["target"])
}

func TestLogger_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerWithWriter(&buf, Config{LogLevel: "warn"})

	logger.Info(context.Background()).Msg("hidden")
	assert.Zero(t, buf.Len())

	logger.OTELErrorHandler()(errors.New("export failed"))
	assert.Contains(t, buf.String(), "otel_sdk")

	NopLogger().Error(context.Background()).Msg("discarded")
}
