package implementations

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"jewelry-catalog/internal/domain/ingest"
	"jewelry-catalog/internal/observability"
	"jewelry-catalog/internal/platform/imageproc"
)

const pipelineTracerName = "jewelry-catalog/ingest"

// PipelineConfig fixes where a pipeline uploads and how it shapes images.
type PipelineConfig struct {
	Bucket      string
	Policy      ingest.Policy
	Compression ingest.CompressionOptions

	// OnUploaded runs after a successful, still-current upload.
	OnUploaded func(ctx context.Context, ref ingest.StoredImageReference)
}

// PipelineDeps are the collaborators shared by every pipeline.
type PipelineDeps struct {
	Compressor  ingest.Compressor
	Transformer ingest.Transformer
	Uploader    ingest.Uploader
	Logger      *observability.Logger
	Metrics     *observability.IngestMetrics
	Tracer      trace.Tracer
}

// ProcessedSummary describes a processed image without its bytes.
type ProcessedSummary struct {
	ContentType string `json:"content_type"`
	Width       int    `json:"width"`
	Height      int    `json:"height"`
	Size        int64  `json:"size"`
	SourceSize  int64  `json:"source_size"`
}

// Status is a point-in-time view of a pipeline.
type Status struct {
	State      ingest.State                 `json:"state"`
	Generation uint64                       `json:"generation"`
	Bucket     string                       `json:"bucket"`
	Policy     string                       `json:"policy"`
	Filename   string                       `json:"filename,omitempty"`
	Processed  *ProcessedSummary            `json:"processed,omitempty"`
	Stored     *ingest.StoredImageReference `json:"stored,omitempty"`
	ErrorKind  string                       `json:"error_kind,omitempty"`
	Message    string                       `json:"message,omitempty"`
	UpdatedAt  time.Time                    `json:"updated_at"`
}

// Pipeline drives one image from selection to a stored reference.
//
// Every Select bumps the generation and cancels the work in flight. A step
// that completes after its generation was replaced leaves state untouched and
// returns a KindSuperseded error.
type Pipeline struct {
	cfg  PipelineConfig
	deps PipelineDeps
	now  func() time.Time

	mu         sync.Mutex
	state      ingest.State
	generation uint64
	cancel     context.CancelFunc
	cancelOp   uint64
	opSeq      uint64
	source     *ingest.SourceImage
	processed  *ingest.ProcessedImage
	stored     *ingest.StoredImageReference
	lastErr    *ingest.Error
	updatedAt  time.Time
}

// NewPipeline validates cfg and returns an idle pipeline
func NewPipeline(cfg PipelineConfig, deps PipelineDeps) (*Pipeline, error) {
	if cfg.Bucket == "" {
		return nil, errors.New("pipeline bucket is required")
	}
	if err := cfg.Policy.Validate(); err != nil {
		return nil, err
	}
	if deps.Compressor == nil || deps.Transformer == nil || deps.Uploader == nil {
		return nil, errors.New("pipeline requires a compressor, a transformer and an uploader")
	}
	if deps.Logger == nil {
		deps.Logger = observability.NopLogger()
	}
	if deps.Tracer == nil {
		deps.Tracer = otel.Tracer(pipelineTracerName)
	}

	return &Pipeline{
		cfg:       cfg,
		deps:      deps,
		now:       time.Now,
		state:     ingest.StateIdle,
		updatedAt: time.Now(),
	}, nil
}

// Select validates, compresses and transforms src. It is valid from any state.
func (p *Pipeline) Select(ctx context.Context, src *ingest.SourceImage) (*ingest.ProcessedImage, error) {
	start := time.Now()
	policy := p.cfg.Policy.String()

	ctx, span := p.deps.Tracer.Start(ctx, "ingest.select", trace.WithAttributes(
		attribute.String("ingest.bucket", p.cfg.Bucket),
		attribute.String("ingest.policy", policy),
		attribute.Int64("ingest.source.size", src.Size()),
	))
	defer span.End()

	p.mu.Lock()
	gen, opCtx, release := p.beginLocked(ctx)
	p.state = ingest.StateProcessing
	p.source = src
	p.processed = nil
	p.stored = nil
	p.lastErr = nil
	p.mu.Unlock()
	defer release()

	span.SetAttributes(attribute.Int64("ingest.generation", int64(gen)))

	processed, err := p.process(opCtx, src)

	p.mu.Lock()
	if gen != p.generation {
		p.mu.Unlock()
		p.deps.Metrics.RecordStep(ctx, observability.StepSelect, observability.OutcomeSuperseded, policy, time.Since(start))
		span.SetAttributes(attribute.Bool("ingest.superseded", true))
		p.deps.Logger.Debug(ctx).Uint64("generation", gen).Msg("discarding superseded selection")
		return nil, supersededError()
	}

	if err != nil {
		ie := p.failLocked(err)
		p.mu.Unlock()
		p.deps.Metrics.RecordStep(ctx, observability.StepSelect, observability.OutcomeError, policy, time.Since(start))
		span.RecordError(err)
		span.SetStatus(codes.Error, ie.Kind.String())
		p.deps.Logger.Warn(ctx).Err(err).
			Str("kind", ie.Kind.String()).
			Str("filename", filenameOf(src)).
			Msg("image selection failed")
		return nil, ie
	}

	p.state = ingest.StateReady
	p.processed = processed
	p.touchLocked()
	p.mu.Unlock()

	p.deps.Metrics.RecordStep(ctx, observability.StepSelect, observability.OutcomeSuccess, policy, time.Since(start))
	p.deps.Metrics.RecordOutput(ctx, policy, len(processed.Data))
	span.SetAttributes(
		attribute.Int("ingest.output.width", processed.Width),
		attribute.Int("ingest.output.height", processed.Height),
		attribute.Int64("ingest.output.size", processed.Size()),
	)
	p.deps.Logger.Info(ctx).
		Str("filename", src.Filename).
		Int64("source_size", processed.SourceSize).
		Int64("output_size", processed.Size()).
		Int("width", processed.Width).
		Int("height", processed.Height).
		Msg("image ready for upload")

	return processed, nil
}

func (p *Pipeline) process(ctx context.Context, src *ingest.SourceImage) (*ingest.ProcessedImage, error) {
	if err := imageproc.ValidateSource(src); err != nil {
		return nil, err
	}

	data, err := p.deps.Compressor.Compress(ctx, src, p.cfg.Compression)
	if err != nil {
		return nil, classify(err, ingest.KindCompression, "compression failed")
	}

	processed, err := p.deps.Transformer.Transform(ctx, data, p.cfg.Policy)
	if err != nil {
		return nil, classify(err, ingest.KindCanvas, "canvas transform failed")
	}
	processed.SourceSize = src.Size()
	return processed, nil
}

// Upload stores the processed image. It is only valid from Ready; any other
// state yields KindNotReady and leaves the pipeline unchanged.
func (p *Pipeline) Upload(ctx context.Context) (*ingest.StoredImageReference, error) {
	start := time.Now()
	policy := p.cfg.Policy.String()

	ctx, span := p.deps.Tracer.Start(ctx, "ingest.upload", trace.WithAttributes(
		attribute.String("ingest.bucket", p.cfg.Bucket),
		attribute.String("ingest.policy", policy),
	))
	defer span.End()

	p.mu.Lock()
	if p.state != ingest.StateReady || p.processed == nil {
		state := p.state
		p.mu.Unlock()
		span.SetStatus(codes.Error, ingest.KindNotReady.String())
		return nil, ingest.NewError(ingest.KindNotReady,
			fmt.Sprintf("nothing to upload in state %s", state), nil)
	}

	gen := p.generation
	opCtx, release := p.armLocked(ctx)
	p.state = ingest.StateUploading
	img := p.processed
	filename := filenameOf(p.source)
	p.touchLocked()
	p.mu.Unlock()
	defer release()

	span.SetAttributes(attribute.Int64("ingest.generation", int64(gen)))

	ref, err := p.deps.Uploader.Upload(opCtx, img, p.cfg.Bucket, filename)

	p.mu.Lock()
	if gen != p.generation {
		p.mu.Unlock()
		p.deps.Metrics.RecordStep(ctx, observability.StepUpload, observability.OutcomeSuperseded, policy, time.Since(start))
		if err == nil {
			p.deps.Logger.Warn(ctx).
				Str("bucket", ref.Bucket).
				Str("key", ref.Key).
				Msg("upload finished after a newer selection; object may be orphaned")
		}
		return nil, supersededError()
	}

	if err != nil {
		ie := p.failLocked(classify(err, ingest.KindUpload, "upload failed"))
		p.processed = nil
		p.mu.Unlock()
		p.deps.Metrics.RecordStep(ctx, observability.StepUpload, observability.OutcomeError, policy, time.Since(start))
		span.RecordError(err)
		span.SetStatus(codes.Error, ie.Kind.String())

		event := p.deps.Logger.Error(ctx).Err(err).Str("kind", ie.Kind.String())
		if ie.Orphan != nil {
			event = event.Str("orphan_bucket", ie.Orphan.Bucket).Str("orphan_key", ie.Orphan.Key)
		}
		event.Msg("image upload failed")
		return nil, ie
	}

	p.state = ingest.StateDone
	p.stored = ref
	p.source = nil
	p.processed = nil
	p.touchLocked()
	p.mu.Unlock()

	p.deps.Metrics.RecordStep(ctx, observability.StepUpload, observability.OutcomeSuccess, policy, time.Since(start))
	span.SetAttributes(attribute.String("ingest.key", ref.Key))
	p.deps.Logger.Info(ctx).
		Str("bucket", ref.Bucket).
		Str("key", ref.Key).
		Str("url", ref.URL).
		Msg("image uploaded")

	if p.cfg.OnUploaded != nil {
		p.cfg.OnUploaded(ctx, *ref)
	}
	return ref, nil
}

// Ingest runs Select followed by Upload.
func (p *Pipeline) Ingest(ctx context.Context, src *ingest.SourceImage) (*ingest.StoredImageReference, error) {
	if _, err := p.Select(ctx, src); err != nil {
		return nil, err
	}
	return p.Upload(ctx)
}

// Reset cancels any in-flight step and returns the pipeline to Idle.
func (p *Pipeline) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.generation++
	if p.cancel != nil {
		p.cancel()
		p.cancel = nil
	}
	p.state = ingest.StateIdle
	p.source = nil
	p.processed = nil
	p.stored = nil
	p.lastErr = nil
	p.touchLocked()
}

// State returns the current lifecycle state.
func (p *Pipeline) State() ingest.State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// Snapshot returns the pipeline status.
func (p *Pipeline) Snapshot() Status {
	p.mu.Lock()
	defer p.mu.Unlock()

	status := Status{
		State:      p.state,
		Generation: p.generation,
		Bucket:     p.cfg.Bucket,
		Policy:     p.cfg.Policy.String(),
		UpdatedAt:  p.updatedAt,
	}
	if p.source != nil {
		status.Filename = p.source.Filename
	}
	if p.processed != nil {
		status.Processed = &ProcessedSummary{
			ContentType: p.processed.ContentType,
			Width:       p.processed.Width,
			Height:      p.processed.Height,
			Size:        p.processed.Size(),
			SourceSize:  p.processed.SourceSize,
		}
	}
	if p.stored != nil {
		stored := *p.stored
		status.Stored = &stored
	}
	if p.lastErr != nil {
		status.ErrorKind = p.lastErr.Kind.String()
		status.Message = p.lastErr.UserMessage()
	}
	return status
}

// Processed returns the image awaiting upload, if any.
func (p *Pipeline) Processed() (*ingest.ProcessedImage, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.processed, p.processed != nil
}

// LastActivity reports when the pipeline last changed state.
func (p *Pipeline) LastActivity() time.Time {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.updatedAt
}

// beginLocked starts a new generation, cancelling whatever was running.
func (p *Pipeline) beginLocked(ctx context.Context) (uint64, context.Context, func()) {
	p.generation++
	if p.cancel != nil {
		p.cancel()
	}
	p.touchLocked()
	opCtx, release := p.armLocked(ctx)
	return p.generation, opCtx, release
}

// armLocked registers a cancellable operation context. The returned release
// only forgets the cancel func if no later operation has replaced it.
func (p *Pipeline) armLocked(ctx context.Context) (context.Context, func()) {
	p.opSeq++
	op := p.opSeq
	opCtx, cancel := context.WithCancel(ctx)
	p.cancel = cancel
	p.cancelOp = op
	return opCtx, func() { p.releaseCancel(op, cancel) }
}

func (p *Pipeline) releaseCancel(op uint64, cancel context.CancelFunc) {
	cancel()
	p.mu.Lock()
	if p.cancelOp == op {
		p.cancel = nil
	}
	p.mu.Unlock()
}

func (p *Pipeline) failLocked(err error) *ingest.Error {
	ie := classify(err, ingest.KindCompression, "processing failed")
	p.state = ingest.StateError
	p.lastErr = ie
	p.touchLocked()
	return ie
}

func (p *Pipeline) touchLocked() {
	p.updatedAt = p.now()
}

func classify(err error, fallback ingest.ErrorKind, message string) *ingest.Error {
	var ie *ingest.Error
	if errors.As(err, &ie) {
		return ie
	}
	return ingest.NewError(fallback, message, err)
}

func supersededError() *ingest.Error {
	return ingest.NewError(ingest.KindSuperseded, "a newer file was selected", nil)
}

func filenameOf(src *ingest.SourceImage) string {
	if src == nil {
		return ""
	}
	return src.Filename
}
