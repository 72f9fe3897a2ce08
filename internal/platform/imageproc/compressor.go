package imageproc

import (
	"context"
	"image"

	"github.com/disintegration/imaging"
	"golang.org/x/sync/semaphore"

	"jewelry-catalog/internal/domain/ingest"
)

const (
	defaultInitialQuality = 92
	minQuality            = 10
	// stepFactor shrinks both quality and dimensions on every iteration.
	stepFactor = 0.95
)

// Compressor implements ingest.Compressor. Each iteration re-encodes the
// image at a lower quality and smaller size until the byte budget is met or
// the iteration cap is reached.
type Compressor struct {
	workers        *semaphore.Weighted
	initialQuality int
}

// NewCompressor creates a compressor whose offloaded work is bounded to
// workers concurrent jobs.
func NewCompressor(workers int) *Compressor {
	if workers < 1 {
		workers = 1
	}
	return &Compressor{
		workers:        semaphore.NewWeighted(int64(workers)),
		initialQuality: defaultInitialQuality,
	}
}

// Compress implements ingest.Compressor.
func (c *Compressor) Compress(ctx context.Context, src *ingest.SourceImage, opts ingest.CompressionOptions) ([]byte, error) {
	if src == nil {
		return nil, ingest.NewError(ingest.KindDecode, "empty image data", nil)
	}

	if !opts.UseWorker {
		return c.compress(ctx, src.Data, opts)
	}

	if err := c.workers.Acquire(ctx, 1); err != nil {
		return nil, ingest.NewError(ingest.KindCompression, "compression cancelled", err)
	}

	type result struct {
		data []byte
		err  error
	}
	done := make(chan result, 1)

	go func() {
		defer c.workers.Release(1)
		data, err := c.compress(ctx, src.Data, opts)
		done <- result{data: data, err: err}
	}()

	select {
	case r := <-done:
		return r.data, r.err
	case <-ctx.Done():
		return nil, ingest.NewError(ingest.KindCompression, "compression cancelled", ctx.Err())
	}
}

func (c *Compressor) compress(ctx context.Context, data []byte, opts ingest.CompressionOptions) ([]byte, error) {
	img, err := decode(data)
	if err != nil {
		return nil, err
	}

	budget := opts.MaxBytes()
	if budget == 0 || int64(len(data)) <= budget {
		return data, nil
	}

	iterations := max(opts.MaxIteration, 1)
	quality := c.initialQuality
	best := data

	var current image.Image = flatten(img)
	for i := 0; i < iterations; i++ {
		if err := ctx.Err(); err != nil {
			return nil, ingest.NewError(ingest.KindCompression, "compression cancelled", err)
		}

		out, err := encodeJPEG(current, quality)
		if err != nil {
			return nil, ingest.NewError(ingest.KindCompression, "failed to encode image", err)
		}

		if len(out) < len(best) {
			best = out
		}
		if int64(len(out)) <= budget {
			break
		}

		quality = max(int(float64(quality)*stepFactor), minQuality)
		b := current.Bounds()
		w := max(int(float64(b.Dx())*stepFactor), 1)
		h := max(int(float64(b.Dy())*stepFactor), 1)
		current = imaging.Resize(current, w, h, imaging.Lanczos)
	}

	return best, nil
}
