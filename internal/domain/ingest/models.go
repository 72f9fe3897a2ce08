package ingest

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
)

// OutputContentType is the single format every processed image is encoded to.
const OutputContentType = "image/jpeg"

// Default encoder qualities per geometry policy.
const (
	DefaultCropQuality  = 90
	DefaultBoundQuality = 95
)

// PolicyKind selects the output-sizing strategy.
type PolicyKind int

const (
	// PolicyCrop center-crops the source to the target aspect ratio and
	// scales it to exactly Width x Height.
	PolicyCrop PolicyKind = iota + 1
	// PolicyBound scales the source down to fit within Width x Height,
	// preserving its aspect ratio. Sources already within bounds keep their size.
	PolicyBound
)

func (k PolicyKind) String() string {
	switch k {
	case PolicyCrop:
		return "crop"
	case PolicyBound:
		return "bound"
	default:
		return "unknown"
	}
}

// Policy is the geometry policy applied by the canvas transform.
// For PolicyCrop Width and Height are the exact target; for PolicyBound they are maxima.
type Policy struct {
	Kind    PolicyKind `json:"kind"`
	Width   int        `json:"width"`
	Height  int        `json:"height"`
	Quality int        `json:"quality"`
}

// Crop returns a fixed crop-to-fit policy.
func Crop(w, h int) Policy {
	return Policy{Kind: PolicyCrop, Width: w, Height: h, Quality: DefaultCropQuality}
}

// Bound returns a bounded scale-preserving policy.
func Bound(maxW, maxH int) Policy {
	return Policy{Kind: PolicyBound, Width: maxW, Height: maxH, Quality: DefaultBoundQuality}
}

// WithQuality returns a copy of p encoding at quality q.
func (p Policy) WithQuality(q int) Policy {
	p.Quality = q
	return p
}

// Validate reports whether the policy describes a drawable target.
func (p Policy) Validate() error {
	if p.Kind != PolicyCrop && p.Kind != PolicyBound {
		return fmt.Errorf("%w: unknown policy kind %d", ErrInvalidPolicy, int(p.Kind))
	}
	if p.Width <= 0 || p.Height <= 0 {
		return fmt.Errorf("%w: zero-sized target %dx%d", ErrInvalidPolicy, p.Width, p.Height)
	}
	if p.Quality < 1 || p.Quality > 100 {
		return fmt.Errorf("%w: quality %d out of range", ErrInvalidPolicy, p.Quality)
	}
	return nil
}

func (p Policy) String() string {
	return fmt.Sprintf("%s(%dx%d)", p.Kind, p.Width, p.Height)
}

// ParsePolicy parses "crop:800x600" or "bound:1200x1200" into a Policy with
// the default quality for its kind.
func ParsePolicy(s string) (Policy, error) {
	kind, dims, ok := strings.Cut(strings.ToLower(strings.TrimSpace(s)), ":")
	if !ok {
		return Policy{}, fmt.Errorf("%w: %q", ErrInvalidPolicy, s)
	}

	ws, hs, ok := strings.Cut(dims, "x")
	if !ok {
		return Policy{}, fmt.Errorf("%w: %q", ErrInvalidPolicy, s)
	}
	w, errW := strconv.Atoi(ws)
	h, errH := strconv.Atoi(hs)
	if errW != nil || errH != nil {
		return Policy{}, fmt.Errorf("%w: %q", ErrInvalidPolicy, s)
	}

	var p Policy
	switch kind {
	case "crop":
		p = Crop(w, h)
	case "bound":
		p = Bound(w, h)
	default:
		return Policy{}, fmt.Errorf("%w: unknown kind %q", ErrInvalidPolicy, kind)
	}

	if err := p.Validate(); err != nil {
		return Policy{}, err
	}
	return p, nil
}

// SourceImage is the raw file handed to the pipeline.
type SourceImage struct {
	Data        []byte
	ContentType string
	Filename    string
}

// Size returns the byte size of the source.
func (s *SourceImage) Size() int64 {
	if s == nil {
		return 0
	}
	return int64(len(s.Data))
}

// Extension returns the lowercased extension of the original filename,
// including the leading dot, or "" when there is none.
func (s *SourceImage) Extension() string {
	if s == nil {
		return ""
	}
	return FileExtension(s.Filename)
}

// FileExtension returns the lowercased extension of name including the dot.
func FileExtension(name string) string {
	ext := strings.ToLower(filepath.Ext(filepath.Base(name)))
	if ext == "." {
		return ""
	}
	return ext
}

// ProcessedImage is the compressed and transformed artifact awaiting upload.
type ProcessedImage struct {
	Data        []byte `json:"-"`
	ContentType string `json:"content_type"`
	Width       int    `json:"width"`
	Height      int    `json:"height"`
	Policy      Policy `json:"policy"`
	SourceSize  int64  `json:"source_size"`
}

// Size returns the byte size of the encoded image.
func (p *ProcessedImage) Size() int64 {
	if p == nil {
		return 0
	}
	return int64(len(p.Data))
}

// StoredImageReference is the durable outcome of an upload.
type StoredImageReference struct {
	Bucket string `json:"bucket"`
	Key    string `json:"key"`
	URL    string `json:"url"`
}

// CompressionOptions is the size budget handed to the compressor.
type CompressionOptions struct {
	MaxSizeMB    float64
	MaxIteration int
	UseWorker    bool
}

// MaxBytes converts the megabyte budget to bytes. Zero means unbounded.
func (o CompressionOptions) MaxBytes() int64 {
	if o.MaxSizeMB <= 0 {
		return 0
	}
	return int64(o.MaxSizeMB * 1024 * 1024)
}

// PutOptions carries object metadata for a storage put.
type PutOptions struct {
	ContentType  string
	CacheControl string
	// NoOverwrite makes the put fail with ErrObjectExists instead of
	// replacing an existing key.
	NoOverwrite bool
	Metadata    map[string]string
}

// State is the orchestrator lifecycle state.
type State int

const (
	StateIdle State = iota
	StateProcessing
	StateReady
	StateUploading
	StateDone
	StateError
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateProcessing:
		return "processing"
	case StateReady:
		return "ready"
	case StateUploading:
		return "uploading"
	case StateDone:
		return "done"
	case StateError:
		return "error"
	default:
		return "unknown"
	}
}

// MarshalText renders the state by name in JSON payloads.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}
