package implementations

import "errors"

var (
	// ErrSessionNotFound is returned for unknown or expired upload sessions.
	ErrSessionNotFound = errors.New("upload session not found")
	// ErrUnknownTarget is returned when a session is opened for a target
	// with no bucket and policy configured.
	ErrUnknownTarget = errors.New("unknown upload target")

	errEmptyURL = errors.New("storage returned an empty URL")
)
