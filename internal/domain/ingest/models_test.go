package ingest

import (
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPolicyValidate(t *testing.T) {
	tests := []struct {
		name    string
		policy  Policy
		wantErr bool
	}{
		{"crop", Crop(800, 600), false},
		{"bound", Bound(1200, 1200), false},
		{"zero width", Crop(0, 600), true},
		{"negative height", Bound(100, -1), true},
		{"unknown kind", Policy{Width: 10, Height: 10, Quality: 90}, true},
		{"quality too high", Crop(10, 10).WithQuality(101), true},
		{"quality zero", Bound(10, 10).WithQuality(0), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.policy.Validate()
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidPolicy)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestPolicyDefaults(t *testing.T) {
	assert.Equal(t, DefaultCropQuality, Crop(1, 1).Quality)
	assert.Equal(t, DefaultBoundQuality, Bound(1, 1).Quality)
	assert.Equal(t, "crop(800x600)", Crop(800, 600).String())
	assert.Equal(t, "bound(1200x1200)", Bound(1200, 1200).String())
}

func TestParsePolicy(t *testing.T) {
	tests := []struct {
		in      string
		want    Policy
		wantErr bool
	}{
		{in: "crop:800x600", want: Crop(800, 600)},
		{in: " Bound:1200x1200 ", want: Bound(1200, 1200)},
		{in: "crop:0x600", wantErr: true},
		{in: "crop800x600", wantErr: true},
		{in: "crop:800", wantErr: true},
		{in: "stretch:800x600", wantErr: true},
		{in: "crop:axb", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParsePolicy(tt.in)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidPolicy)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFileExtension(t *testing.T) {
	tests := map[string]string{
		"anillo.JPG":          ".jpg",
		"collar.final.png":    ".png",
		"dir/with.dot/aretes": "",
		"noext":               "",
		"trailing.":           "",
		"":                    "",
	}

	for in, want := range tests {
		assert.Equal(t, want, FileExtension(in), "input %q", in)
	}

	src := &SourceImage{Filename: "Pulsera.WebP", Data: []byte{1, 2, 3}}
	assert.Equal(t, ".webp", src.Extension())
	assert.Equal(t, int64(3), src.Size())

	var nilSrc *SourceImage
	assert.Equal(t, int64(0), nilSrc.Size())
	assert.Equal(t, "", nilSrc.Extension())
}

func TestCompressionOptionsMaxBytes(t *testing.T) {
	assert.Equal(t, int64(314572), CompressionOptions{MaxSizeMB: 0.3}.MaxBytes())
	assert.Equal(t, int64(0), CompressionOptions{}.MaxBytes())
	assert.Equal(t, int64(0), CompressionOptions{MaxSizeMB: -1}.MaxBytes())
}

func TestStateJSON(t *testing.T) {
	b, err := json.Marshal(map[string]State{"state": StateUploading})
	require.NoError(t, err)
	assert.JSONEq(t, `{"state":"uploading"}`, string(b))
	assert.Equal(t, "unknown", State(42).String())
}

func TestErrorKinds(t *testing.T) {
	cause := errors.New("bucket not found")
	err := NewError(KindUpload, "put rejected", cause)

	wrapped := fmt.Errorf("carousel: %w", err)

	kind, ok := KindOf(wrapped)
	require.True(t, ok)
	assert.Equal(t, KindUpload, kind)
	assert.True(t, IsKind(wrapped, KindUpload))
	assert.False(t, IsKind(wrapped, KindDecode))
	assert.ErrorIs(t, wrapped, cause)
	assert.Equal(t, "upload: put rejected: bucket not found", err.Error())
	assert.Contains(t, err.UserMessage(), "bucket not found")

	_, ok = KindOf(cause)
	assert.False(t, ok)
}

func TestURLResolutionMessageNamesOrphan(t *testing.T) {
	err := NewError(KindURLResolution, "public URL unavailable", errors.New("bad base"))
	err.Orphan = &StoredImageReference{Bucket: "producto-images", Key: "abc.jpg"}

	msg := err.UserMessage()
	assert.Contains(t, msg, "producto-images/abc.jpg")
	assert.Contains(t, msg, "out of sync")
	assert.NotEqual(t, NewError(KindUpload, "x", nil).UserMessage(), msg)
}

func TestInvalidInputMessage(t *testing.T) {
	err := NewError(KindInvalidInput, "no file selected", ErrNoFileSelected)
	assert.Equal(t, "no file selected", err.UserMessage())
	assert.Equal(t, "invalid_input: no file selected: no file selected", err.Error())
}
