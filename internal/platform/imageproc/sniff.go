// Package imageproc implements the CPU-bound stages of image ingestion:
// content sniffing, budgeted compression and the geometry canvas transform.
package imageproc

import (
	"bytes"
	"fmt"
	"mime"
	"strings"

	"jewelry-catalog/internal/domain/ingest"
)

type signature struct {
	format string
	magic  []byte
}

// Known raster signatures. WebP additionally requires "WEBP" at offset 8.
var signatures = []signature{
	{"jpeg", []byte{0xFF, 0xD8, 0xFF}},
	{"png", []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A}},
	{"gif", []byte("GIF87a")},
	{"gif", []byte("GIF89a")},
	{"webp", []byte("RIFF")},
}

// DetectFormat identifies the raster format from the leading bytes of data.
func DetectFormat(data []byte) (string, bool) {
	for _, sig := range signatures {
		if !bytes.HasPrefix(data, sig.magic) {
			continue
		}
		if sig.format == "webp" {
			if len(data) < 12 || !bytes.Equal(data[8:12], []byte("WEBP")) {
				return "", false
			}
		}
		return sig.format, true
	}
	return "", false
}

// ValidateSource rejects empty selections and non-image files before any
// decoding work is done.
func ValidateSource(src *ingest.SourceImage) error {
	if src == nil || len(src.Data) == 0 {
		return ingest.NewError(ingest.KindInvalidInput, "no file selected", ingest.ErrNoFileSelected)
	}

	if declared := mediaType(src.ContentType); declared != "" && !strings.HasPrefix(declared, "image/") {
		return ingest.NewError(ingest.KindInvalidInput, "selected file is not an image",
			fmt.Errorf("%w: declared type %s", ingest.ErrNotAnImage, declared))
	}

	if _, ok := DetectFormat(src.Data); !ok {
		return ingest.NewError(ingest.KindInvalidInput, "selected file is not an image",
			fmt.Errorf("%w: unrecognised file signature", ingest.ErrNotAnImage))
	}

	return nil
}

func mediaType(contentType string) string {
	contentType = strings.TrimSpace(contentType)
	if contentType == "" {
		return ""
	}
	mt, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return strings.ToLower(contentType)
	}
	return mt
}
