package imageproc

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jewelry-catalog/internal/domain/ingest"
)

func TestCompressorUnderBudgetReturnsInput(t *testing.T) {
	data := encodeTestJPEG(t, gradientImage(200, 100), 90)
	src := &ingest.SourceImage{Data: data, ContentType: "image/jpeg", Filename: "anillo.jpg"}

	for _, useWorker := range []bool{false, true} {
		out, err := NewCompressor(2).Compress(context.Background(), src, ingest.CompressionOptions{
			MaxSizeMB:    0.3,
			MaxIteration: 10,
			UseWorker:    useWorker,
		})
		require.NoError(t, err)
		assert.Equal(t, data, out)
	}
}

func TestCompressorReducesOverBudgetImage(t *testing.T) {
	data := encodeTestJPEG(t, noiseImage(400, 300), 98)
	src := &ingest.SourceImage{Data: data, ContentType: "image/jpeg"}

	out, err := NewCompressor(1).Compress(context.Background(), src, ingest.CompressionOptions{
		MaxSizeMB:    0.02,
		MaxIteration: 10,
	})
	require.NoError(t, err)

	assert.Less(t, len(out), len(data))
	_, format := decodeConfig(t, out)
	assert.Equal(t, "jpeg", format)
}

func TestCompressorNeverGrowsInput(t *testing.T) {
	tests := []struct {
		name string
		data func(t *testing.T) []byte
	}{
		{"low quality jpeg", func(t *testing.T) []byte { return encodeTestJPEG(t, noiseImage(120, 80), 10) }},
		{"high quality jpeg", func(t *testing.T) []byte { return encodeTestJPEG(t, noiseImage(120, 80), 100) }},
		{"png", func(t *testing.T) []byte { return encodeTestPNG(t, gradientImage(120, 80)) }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data := tt.data(t)
			src := &ingest.SourceImage{Data: data}

			// A budget of one byte can never be met, so every iteration runs.
			out, err := NewCompressor(1).Compress(context.Background(), src, ingest.CompressionOptions{
				MaxSizeMB:    1.0 / (1024 * 1024),
				MaxIteration: 3,
			})
			require.NoError(t, err)
			assert.LessOrEqual(t, len(out), len(data))
		})
	}
}

func TestCompressorDecodeFailure(t *testing.T) {
	tests := []struct {
		name string
		src  *ingest.SourceImage
	}{
		{"nil source", nil},
		{"empty", &ingest.SourceImage{}},
		{"text", &ingest.SourceImage{Data: []byte("hello"), ContentType: "image/jpeg"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewCompressor(1).Compress(context.Background(), tt.src, ingest.CompressionOptions{MaxSizeMB: 0.3})
			require.Error(t, err)
			assert.True(t, ingest.IsKind(err, ingest.KindDecode), "got %v", err)
		})
	}
}

func TestCompressorCancelled(t *testing.T) {
	data := encodeTestJPEG(t, noiseImage(200, 200), 98)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	for _, useWorker := range []bool{false, true} {
		_, err := NewCompressor(1).Compress(ctx, &ingest.SourceImage{Data: data}, ingest.CompressionOptions{
			MaxSizeMB:    0.001,
			MaxIteration: 5,
			UseWorker:    useWorker,
		})
		require.Error(t, err)
		assert.True(t, ingest.IsKind(err, ingest.KindCompression), "got %v", err)
		assert.ErrorIs(t, err, context.Canceled)
	}
}
