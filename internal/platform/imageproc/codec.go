package imageproc

import (
	"bytes"
	"image"
	"image/color"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/webp" // register webp decoding

	"jewelry-catalog/internal/domain/ingest"
)

// decode loads data as a pixel surface, applying EXIF orientation.
func decode(data []byte) (image.Image, error) {
	if len(data) == 0 {
		return nil, ingest.NewError(ingest.KindDecode, "empty image data", nil)
	}

	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, ingest.NewError(ingest.KindDecode, "failed to decode image", err)
	}

	if b := img.Bounds(); b.Dx() <= 0 || b.Dy() <= 0 {
		return nil, ingest.NewError(ingest.KindDecode, "image has no pixels", nil)
	}

	return img, nil
}

func encodeJPEG(img image.Image, quality int) ([]byte, error) {
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(quality)); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// flatten composites img over white so transparent regions do not turn
// black once encoded as JPEG.
func flatten(img image.Image) *image.NRGBA {
	b := img.Bounds()
	bg := imaging.New(b.Dx(), b.Dy(), color.White)
	return imaging.Overlay(bg, img, image.Pt(0, 0), 1.0)
}
