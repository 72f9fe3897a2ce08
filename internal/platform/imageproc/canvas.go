package imageproc

import (
	"context"
	"image"
	"math"

	"golang.org/x/image/draw"

	"jewelry-catalog/internal/domain/ingest"
)

// Canvas implements ingest.Transformer.
type Canvas struct {
	interpolator draw.Interpolator
}

// NewCanvas creates a canvas transform using Catmull-Rom resampling.
func NewCanvas() *Canvas {
	return &Canvas{interpolator: draw.CatmullRom}
}

// Transform decodes data, applies policy and re-encodes the result as JPEG.
func (c *Canvas) Transform(ctx context.Context, data []byte, policy ingest.Policy) (*ingest.ProcessedImage, error) {
	if err := policy.Validate(); err != nil {
		return nil, ingest.NewError(ingest.KindCanvas, "invalid target geometry", err)
	}

	src, err := decode(data)
	if err != nil {
		return nil, err
	}

	if err := ctx.Err(); err != nil {
		return nil, ingest.NewError(ingest.KindCanvas, "transform cancelled", err)
	}

	bounds := src.Bounds()
	srcRect := bounds
	width, height := policy.Width, policy.Height

	switch policy.Kind {
	case ingest.PolicyCrop:
		srcRect = CropRect(bounds.Dx(), bounds.Dy(), policy.Width, policy.Height).Add(bounds.Min)
	case ingest.PolicyBound:
		width, height = BoundedSize(bounds.Dx(), bounds.Dy(), policy.Width, policy.Height)
	}

	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.Draw(dst, dst.Bounds(), image.White, image.Point{}, draw.Src)
	c.interpolator.Scale(dst, dst.Bounds(), src, srcRect, draw.Over, nil)

	out, err := encodeJPEG(dst, policy.Quality)
	if err != nil {
		return nil, ingest.NewError(ingest.KindCanvas, "failed to encode image", err)
	}

	return &ingest.ProcessedImage{
		Data:        out,
		ContentType: ingest.OutputContentType,
		Width:       width,
		Height:      height,
		Policy:      policy,
		SourceSize:  int64(len(data)),
	}, nil
}

// CropRect returns the centered region of a srcW x srcH surface that has the
// aspect ratio of targetW x targetH. Wider sources lose columns on both sides,
// taller sources lose rows top and bottom.
func CropRect(srcW, srcH, targetW, targetH int) image.Rectangle {
	srcAspect := float64(srcW) / float64(srcH)
	targetAspect := float64(targetW) / float64(targetH)

	if srcAspect > targetAspect {
		w := clamp(int(math.Round(float64(srcH)*targetAspect)), 1, srcW)
		x := (srcW - w) / 2
		return image.Rect(x, 0, x+w, srcH)
	}

	h := clamp(int(math.Round(float64(srcW)/targetAspect)), 1, srcH)
	y := (srcH - h) / 2
	return image.Rect(0, y, srcW, y+h)
}

// BoundedSize scales w x h down to fit maxW x maxH. Width is bounded first,
// then the (possibly already scaled) height.
func BoundedSize(w, h, maxW, maxH int) (int, int) {
	fw, fh := float64(w), float64(h)

	if fw > float64(maxW) {
		fh = fh * float64(maxW) / fw
		fw = float64(maxW)
	}
	if fh > float64(maxH) {
		fw = fw * float64(maxH) / fh
		fh = float64(maxH)
	}

	return max(1, int(math.Round(fw))), max(1, int(math.Round(fh)))
}

func clamp(v, lo, hi int) int {
	return min(max(v, lo), hi)
}
