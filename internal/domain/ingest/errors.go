package ingest

import (
	"errors"
	"fmt"
)

// Sentinel errors shared by the pipeline collaborators.
var (
	ErrInvalidPolicy  = errors.New("invalid geometry policy")
	ErrObjectExists   = errors.New("object already exists")
	ErrNoFileSelected = errors.New("no file selected")
	ErrNotAnImage     = errors.New("file is not a supported image")
)

// ErrorKind classifies pipeline failures.
type ErrorKind int

const (
	KindInvalidInput ErrorKind = iota + 1
	KindDecode
	KindCompression
	KindCanvas
	KindUpload
	KindURLResolution
	KindNotReady
	KindSuperseded
)

func (k ErrorKind) String() string {
	switch k {
	case KindInvalidInput:
		return "invalid_input"
	case KindDecode:
		return "decode"
	case KindCompression:
		return "compression"
	case KindCanvas:
		return "canvas"
	case KindUpload:
		return "upload"
	case KindURLResolution:
		return "url_resolution"
	case KindNotReady:
		return "not_ready"
	case KindSuperseded:
		return "superseded"
	default:
		return "unknown"
	}
}

// MarshalText renders the kind by name in JSON payloads.
func (k ErrorKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// Error is a classified pipeline failure.
type Error struct {
	Kind    ErrorKind
	Message string
	Err     error

	// Orphan is set for KindURLResolution: the object that was written but
	// could not be addressed.
	Orphan *StoredImageReference
}

// NewError builds an Error of the given kind.
func NewError(kind ErrorKind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// UserMessage returns the text shown to the person operating the form.
func (e *Error) UserMessage() string {
	switch e.Kind {
	case KindInvalidInput:
		return e.Message
	case KindDecode:
		return "The selected file could not be read as an image."
	case KindCompression:
		return "The image could not be compressed. Try a different file."
	case KindCanvas:
		return "The image could not be resized. Try a different file."
	case KindUpload:
		if e.Err != nil {
			return "Upload failed: " + e.Err.Error()
		}
		return "Upload failed."
	case KindURLResolution:
		if e.Orphan != nil {
			return fmt.Sprintf("The image was stored as %s/%s but its public address could not be resolved. "+
				"Storage and catalog are now out of sync; contact an administrator.", e.Orphan.Bucket, e.Orphan.Key)
		}
		return "The image was stored but its public address could not be resolved. " +
			"Storage and catalog are now out of sync; contact an administrator."
	case KindNotReady:
		return "There is no processed image to upload. Select a file first."
	case KindSuperseded:
		return "This image was replaced by a newer selection."
	default:
		return e.Message
	}
}

// KindOf returns the kind of the first *Error in err's chain.
func KindOf(err error) (ErrorKind, bool) {
	var ie *Error
	if errors.As(err, &ie) {
		return ie.Kind, true
	}
	return 0, false
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind ErrorKind) bool {
	k, ok := KindOf(err)
	return ok && k == kind
}
