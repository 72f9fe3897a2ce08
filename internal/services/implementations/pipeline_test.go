package implementations

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"math/rand/v2"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"jewelry-catalog/internal/domain/ingest"
	"jewelry-catalog/internal/observability"
	"jewelry-catalog/internal/platform/imageproc"
)

type pipelineFixture struct {
	pipeline    *Pipeline
	compressor  *fakeCompressor
	transformer *fakeTransformer
	uploader    *fakeUploader
	uploaded    []ingest.StoredImageReference
}

func newPipelineFixture(t *testing.T) *pipelineFixture {
	t.Helper()
	f := &pipelineFixture{
		compressor:  &fakeCompressor{},
		transformer: &fakeTransformer{},
		uploader:    &fakeUploader{},
	}

	p, err := NewPipeline(PipelineConfig{
		Bucket: "producto-images",
		Policy: ingest.Crop(800, 600),
		OnUploaded: func(_ context.Context, ref ingest.StoredImageReference) {
			f.uploaded = append(f.uploaded, ref)
		},
	}, PipelineDeps{
		Compressor:  f.compressor,
		Transformer: f.transformer,
		Uploader:    f.uploader,
	})
	require.NoError(t, err)
	f.pipeline = p
	return f
}

func TestNewPipeline_Validation(t *testing.T) {
	deps := PipelineDeps{Compressor: &fakeCompressor{}, Transformer: &fakeTransformer{}, Uploader: &fakeUploader{}}

	tests := []struct {
		name string
		cfg  PipelineConfig
		deps PipelineDeps
	}{
		{name: "missing bucket", cfg: PipelineConfig{Policy: ingest.Crop(800, 600)}, deps: deps},
		{name: "invalid policy", cfg: PipelineConfig{Bucket: "b", Policy: ingest.Crop(0, 600)}, deps: deps},
		{name: "missing uploader", cfg: PipelineConfig{Bucket: "b", Policy: ingest.Crop(800, 600)},
			deps: PipelineDeps{Compressor: &fakeCompressor{}, Transformer: &fakeTransformer{}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewPipeline(tt.cfg, tt.deps)
			assert.Error(t, err)
		})
	}
}

func TestPipeline_SelectThenUpload(t *testing.T) {
	f := newPipelineFixture(t)
	ctx := context.Background()

	assert.Equal(t, ingest.StateIdle, f.pipeline.State())

	src := testSource(t, "Anillo.PNG")
	processed, err := f.pipeline.Select(ctx, src)
	require.NoError(t, err)
	assert.Equal(t, 800, processed.Width)
	assert.Equal(t, src.Size(), processed.SourceSize)

	status := f.pipeline.Snapshot()
	assert.Equal(t, ingest.StateReady, status.State)
	assert.Equal(t, uint64(1), status.Generation)
	require.NotNil(t, status.Processed)
	assert.Equal(t, "Anillo.PNG", status.Filename)

	ref, err := f.pipeline.Upload(ctx)
	require.NoError(t, err)
	assert.Equal(t, "producto-images", ref.Bucket)
	assert.Equal(t, "key.png", ref.Key)

	status = f.pipeline.Snapshot()
	assert.Equal(t, ingest.StateDone, status.State)
	assert.Nil(t, status.Processed)
	assert.Empty(t, status.Filename)
	require.NotNil(t, status.Stored)
	assert.Equal(t, ref.URL, status.Stored.URL)

	_, ok := f.pipeline.Processed()
	assert.False(t, ok)
	require.Len(t, f.uploaded, 1)
	assert.Equal(t, *ref, f.uploaded[0])
}

func TestPipeline_InvalidInputSkipsProcessing(t *testing.T) {
	tests := []struct {
		name string
		src  *ingest.SourceImage
	}{
		{name: "nothing selected", src: nil},
		{name: "empty file", src: &ingest.SourceImage{Filename: "a.jpg", ContentType: "image/jpeg"}},
		{name: "declared non-image", src: &ingest.SourceImage{Data: []byte("%PDF-1.7"), ContentType: "application/pdf", Filename: "a.pdf"}},
		{name: "unrecognised bytes", src: &ingest.SourceImage{Data: []byte("just some text"), Filename: "a.jpg"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newPipelineFixture(t)

			_, err := f.pipeline.Select(context.Background(), tt.src)
			require.Error(t, err)
			assert.True(t, ingest.IsKind(err, ingest.KindInvalidInput))

			assert.Equal(t, ingest.StateError, f.pipeline.State())
			assert.Zero(t, f.compressor.Calls())
			assert.Zero(t, f.uploader.Calls())

			status := f.pipeline.Snapshot()
			assert.Equal(t, "invalid_input", status.ErrorKind)
			assert.NotEmpty(t, status.Message)
		})
	}
}

func TestPipeline_ProcessingFailures(t *testing.T) {
	decodeErr := ingest.NewError(ingest.KindDecode, "cannot decode", errors.New("bad huffman table"))

	tests := []struct {
		name       string
		compressFn compressFunc
		canvasErr  error
		wantKind   ingest.ErrorKind
	}{
		{
			name: "decode failure keeps its kind",
			compressFn: func(context.Context, *ingest.SourceImage, ingest.CompressionOptions) ([]byte, error) {
				return nil, decodeErr
			},
			wantKind: ingest.KindDecode,
		},
		{
			name: "untyped compressor error",
			compressFn: func(context.Context, *ingest.SourceImage, ingest.CompressionOptions) ([]byte, error) {
				return nil, errors.New("worker crashed")
			},
			wantKind: ingest.KindCompression,
		},
		{
			name:      "canvas failure",
			canvasErr: errors.New("out of memory"),
			wantKind:  ingest.KindCanvas,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newPipelineFixture(t)
			f.compressor.fn = tt.compressFn
			f.transformer.err = tt.canvasErr

			_, err := f.pipeline.Select(context.Background(), testSource(t, "a.png"))
			require.Error(t, err)

			kind, ok := ingest.KindOf(err)
			require.True(t, ok)
			assert.Equal(t, tt.wantKind, kind)
			assert.Equal(t, ingest.StateError, f.pipeline.State())

			_, err = f.pipeline.Upload(context.Background())
			assert.True(t, ingest.IsKind(err, ingest.KindNotReady))
			assert.Zero(t, f.uploader.Calls())
		})
	}
}

func TestPipeline_UploadRequiresReady(t *testing.T) {
	f := newPipelineFixture(t)

	_, err := f.pipeline.Upload(context.Background())
	require.Error(t, err)
	assert.True(t, ingest.IsKind(err, ingest.KindNotReady))
	assert.Equal(t, ingest.StateIdle, f.pipeline.State())

	_, err = f.pipeline.Ingest(context.Background(), testSource(t, "a.png"))
	require.NoError(t, err)

	// A second confirm after Done is also rejected and leaves Done intact.
	_, err = f.pipeline.Upload(context.Background())
	assert.True(t, ingest.IsKind(err, ingest.KindNotReady))
	assert.Equal(t, ingest.StateDone, f.pipeline.State())
	assert.Equal(t, 1, f.uploader.Calls())
}

func TestPipeline_UploadFailures(t *testing.T) {
	storageErr := errors.New("AccessDenied: bucket policy forbids writes")
	orphan := &ingest.StoredImageReference{Bucket: "producto-images", Key: "abc.png"}

	tests := []struct {
		name       string
		err        error
		wantKind   ingest.ErrorKind
		wantOrphan bool
	}{
		{name: "untyped storage error", err: storageErr, wantKind: ingest.KindUpload},
		{
			name:       "url resolution",
			err:        &ingest.Error{Kind: ingest.KindURLResolution, Message: "no url", Orphan: orphan},
			wantKind:   ingest.KindURLResolution,
			wantOrphan: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newPipelineFixture(t)
			f.uploader.fn = func(context.Context, *ingest.ProcessedImage, string, string) (*ingest.StoredImageReference, error) {
				return nil, tt.err
			}

			_, err := f.pipeline.Select(context.Background(), testSource(t, "a.png"))
			require.NoError(t, err)

			_, err = f.pipeline.Upload(context.Background())
			require.Error(t, err)

			var ie *ingest.Error
			require.ErrorAs(t, err, &ie)
			assert.Equal(t, tt.wantKind, ie.Kind)
			if tt.wantOrphan {
				assert.Equal(t, orphan, ie.Orphan)
			} else {
				assert.ErrorIs(t, err, storageErr)
			}

			assert.Equal(t, ingest.StateError, f.pipeline.State())
			_, ok := f.pipeline.Processed()
			assert.False(t, ok, "no partial image is retained after a failed upload")
			assert.Empty(t, f.uploaded)
		})
	}
}

func TestPipeline_NewSelectionSupersedesProcessing(t *testing.T) {
	f := newPipelineFixture(t)

	entered := make(chan struct{})
	f.compressor.fn = func(ctx context.Context, src *ingest.SourceImage, _ ingest.CompressionOptions) ([]byte, error) {
		if src.Filename == "first.png" {
			close(entered)
			<-ctx.Done()
			return nil, ctx.Err()
		}
		return src.Data, nil
	}

	firstErr := make(chan error, 1)
	go func() {
		_, err := f.pipeline.Select(context.Background(), testSource(t, "first.png"))
		firstErr <- err
	}()

	<-entered
	_, err := f.pipeline.Select(context.Background(), testSource(t, "second.png"))
	require.NoError(t, err)

	select {
	case err := <-firstErr:
		assert.True(t, ingest.IsKind(err, ingest.KindSuperseded))
	case <-time.After(5 * time.Second):
		t.Fatal("first selection was not cancelled")
	}

	status := f.pipeline.Snapshot()
	assert.Equal(t, ingest.StateReady, status.State)
	assert.Equal(t, uint64(2), status.Generation)
	assert.Equal(t, "second.png", status.Filename)
}

func TestPipeline_LateUploadIsDiscarded(t *testing.T) {
	f := newPipelineFixture(t)

	entered := make(chan struct{})
	f.uploader.fn = func(ctx context.Context, _ *ingest.ProcessedImage, bucket, _ string) (*ingest.StoredImageReference, error) {
		close(entered)
		<-ctx.Done()
		// The store accepted the object before noticing the cancellation.
		return &ingest.StoredImageReference{Bucket: bucket, Key: "late.png", URL: "http://cdn.test/late.png"}, nil
	}

	_, err := f.pipeline.Select(context.Background(), testSource(t, "first.png"))
	require.NoError(t, err)

	uploadErr := make(chan error, 1)
	go func() {
		_, err := f.pipeline.Upload(context.Background())
		uploadErr <- err
	}()

	<-entered
	_, err = f.pipeline.Select(context.Background(), testSource(t, "second.png"))
	require.NoError(t, err)

	select {
	case err := <-uploadErr:
		assert.True(t, ingest.IsKind(err, ingest.KindSuperseded))
	case <-time.After(5 * time.Second):
		t.Fatal("upload was not cancelled")
	}

	status := f.pipeline.Snapshot()
	assert.Equal(t, ingest.StateReady, status.State)
	assert.Nil(t, status.Stored)
	assert.Empty(t, f.uploaded)
}

// A selection that finishes releasing its context after an upload has armed
// its own must not leave that upload uncancellable.
func TestPipeline_StaleReleaseKeepsUploadCancellable(t *testing.T) {
	f := newPipelineFixture(t)
	p := f.pipeline

	p.mu.Lock()
	_, _, releaseSelect := p.beginLocked(context.Background())
	uploadCtx, releaseUpload := p.armLocked(context.Background())
	p.mu.Unlock()
	defer releaseUpload()

	releaseSelect()
	require.NoError(t, uploadCtx.Err())

	p.mu.Lock()
	p.beginLocked(context.Background())
	p.mu.Unlock()

	assert.ErrorIs(t, uploadCtx.Err(), context.Canceled)
}

func TestPipeline_Reset(t *testing.T) {
	f := newPipelineFixture(t)
	_, err := f.pipeline.Select(context.Background(), testSource(t, "a.png"))
	require.NoError(t, err)

	f.pipeline.Reset()

	status := f.pipeline.Snapshot()
	assert.Equal(t, ingest.StateIdle, status.State)
	assert.Nil(t, status.Processed)
	assert.Equal(t, uint64(2), status.Generation)
}

func TestPipeline_Telemetry(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	metrics, err := observability.NewIngestMetrics(sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader)).Meter("test"))
	require.NoError(t, err)

	spans := tracetest.NewSpanRecorder()
	tracer := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(spans)).Tracer("test")

	p, err := NewPipeline(PipelineConfig{Bucket: "carousel-images", Policy: ingest.Crop(800, 600)}, PipelineDeps{
		Compressor:  &fakeCompressor{},
		Transformer: &fakeTransformer{},
		Uploader:    &fakeUploader{},
		Metrics:     metrics,
		Tracer:      tracer,
	})
	require.NoError(t, err)

	_, err = p.Ingest(context.Background(), testSource(t, "slide.png"))
	require.NoError(t, err)

	var names []string
	for _, span := range spans.Ended() {
		names = append(names, span.Name())
	}
	assert.Equal(t, []string{"ingest.select", "ingest.upload"}, names)

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))
	found := map[string]bool{}
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			found[m.Name] = true
		}
	}
	assert.True(t, found["ingest.operations"])
	assert.True(t, found["ingest.output.bytes"])
	assert.True(t, found["ingest.duration"])
}

// recordingCompressor keeps the last output of the wrapped compressor.
type recordingCompressor struct {
	ingest.Compressor
	out []byte
}

func (r *recordingCompressor) Compress(ctx context.Context, src *ingest.SourceImage, opts ingest.CompressionOptions) ([]byte, error) {
	data, err := r.Compressor.Compress(ctx, src, opts)
	r.out = data
	return data, err
}

// texturedJPEG is a gradient with seeded noise so it does not compress trivially.
func texturedJPEG(t *testing.T, w, h, amplitude int) []byte {
	t.Helper()
	rng := rand.New(rand.NewPCG(3, 5))
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	jitter := func(base int) uint8 {
		v := base + rng.IntN(2*amplitude+1) - amplitude
		return uint8(min(max(v, 0), 255))
	}
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetRGBA(x, y, color.RGBA{
				R: jitter(x * 255 / w),
				G: jitter(y * 255 / h),
				B: jitter(140),
				A: 255,
			})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, img, &jpeg.Options{Quality: 92}))
	return buf.Bytes()
}

func TestPipeline_EndToEndWithImageProcessing(t *testing.T) {
	tests := []struct {
		name       string
		bucket     string
		policy     ingest.Policy
		opts       ingest.CompressionOptions
		src        func(t *testing.T) *ingest.SourceImage
		wantWidth  int
		wantHeight int
		wantKey    string
	}{
		{
			name:   "large photo cropped for the carousel",
			bucket: "carousel-images",
			policy: ingest.Crop(800, 600),
			opts:   ingest.CompressionOptions{MaxSizeMB: 0.3, MaxIteration: 10},
			src: func(t *testing.T) *ingest.SourceImage {
				return &ingest.SourceImage{Data: texturedJPEG(t, 3000, 2000, 24), ContentType: "image/jpeg", Filename: "collar.jpg"}
			},
			wantWidth:  800,
			wantHeight: 600,
			wantKey:    `^[0-9a-f-]{36}\.jpg$`,
		},
		{
			name:   "wide photo bounded for stock",
			bucket: "stock-images",
			policy: ingest.Bound(1200, 1200),
			opts:   ingest.CompressionOptions{MaxSizeMB: 0.3, MaxIteration: 10},
			src: func(t *testing.T) *ingest.SourceImage {
				return &ingest.SourceImage{Data: texturedJPEG(t, 2000, 500, 0), ContentType: "image/jpeg", Filename: "aretes.jpeg"}
			},
			wantWidth:  1200,
			wantHeight: 300,
			wantKey:    `^[0-9a-f-]{36}\.jpeg$`,
		},
		{
			name:   "small png keeps its extension",
			bucket: "stock-images",
			policy: ingest.Bound(1200, 1200),
			opts:   ingest.CompressionOptions{MaxSizeMB: 1, MaxIteration: 5},
			src: func(t *testing.T) *ingest.SourceImage {
				return testSource(t, "pulsera.png")
			},
			wantWidth:  40,
			wantHeight: 30,
			wantKey:    `^[0-9a-f-]{36}\.png$`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newMemoryStore()
			compressor := &recordingCompressor{Compressor: imageproc.NewCompressor(1)}
			p, err := NewPipeline(PipelineConfig{
				Bucket:      tt.bucket,
				Policy:      tt.policy,
				Compression: tt.opts,
			}, PipelineDeps{
				Compressor:  compressor,
				Transformer: imageproc.NewCanvas(),
				Uploader:    NewObjectUploader(store, "max-age=3600"),
			})
			require.NoError(t, err)

			ref, err := p.Ingest(context.Background(), tt.src(t))
			require.NoError(t, err)

			assert.Equal(t, tt.bucket, ref.Bucket)
			assert.Regexp(t, tt.wantKey, ref.Key)
			assert.Equal(t, ingest.OutputContentType, store.opts[tt.bucket+"/"+ref.Key].ContentType)

			budget := tt.opts.MaxBytes()
			assert.LessOrEqual(t, int64(len(compressor.out)), budget)

			stored, ok := store.objects[tt.bucket+"/"+ref.Key]
			require.True(t, ok)
			assert.LessOrEqual(t, int64(len(stored)), budget)

			cfg, format, err := image.DecodeConfig(bytes.NewReader(stored))
			require.NoError(t, err)
			assert.Equal(t, "jpeg", format)
			assert.Equal(t, tt.wantWidth, cfg.Width)
			assert.Equal(t, tt.wantHeight, cfg.Height)
		})
	}
}
