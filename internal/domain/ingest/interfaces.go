// Package ingest defines the image ingestion pipeline: the types passed
// between its stages and the contracts each stage implements.
package ingest

import "context"

// Compressor reduces an image to a byte budget.
type Compressor interface {
	// Compress returns a buffer no larger than the source. It fails with a
	// KindDecode error when the source is not a decodable image.
	Compress(ctx context.Context, src *SourceImage, opts CompressionOptions) ([]byte, error)
}

// Transformer applies a geometry policy and re-encodes to OutputContentType.
type Transformer interface {
	Transform(ctx context.Context, data []byte, policy Policy) (*ProcessedImage, error)
}

// Uploader persists a processed image under a fresh key.
type Uploader interface {
	// Upload stores img in bucket and returns its public reference.
	// originalFilename is used only to derive the key extension.
	Upload(ctx context.Context, img *ProcessedImage, bucket, originalFilename string) (*StoredImageReference, error)
}

// ObjectStore is the storage service boundary.
type ObjectStore interface {
	// Put writes data under bucket/key.
	Put(ctx context.Context, bucket, key string, data []byte, opts PutOptions) error

	// PublicURL resolves the public address of bucket/key.
	PublicURL(bucket, key string) (string, error)

	// ObjectKey recovers the key from a public address produced by PublicURL.
	ObjectKey(bucket, publicURL string) (string, error)

	// Remove deletes bucket/key.
	Remove(ctx context.Context, bucket, key string) error
}
