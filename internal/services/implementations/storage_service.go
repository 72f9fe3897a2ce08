package implementations

import (
	"context"
	"strconv"

	"github.com/google/uuid"

	"jewelry-catalog/internal/domain/ingest"
)

// defaultExtension is used when the original filename carries none.
const defaultExtension = ".jpg"

// ObjectUploader implements ingest.Uploader on top of an object store.
type ObjectUploader struct {
	store        ingest.ObjectStore
	cacheControl string
	newKey       func() string
}

// NewObjectUploader creates an uploader writing through store
func NewObjectUploader(store ingest.ObjectStore, cacheControl string) *ObjectUploader {
	return &ObjectUploader{
		store:        store,
		cacheControl: cacheControl,
		newKey:       uuid.NewString,
	}
}

// Upload writes img under a fresh "<uuid><ext>" key and resolves its public URL.
// Keys are never reused; a collision is reported as an upload failure.
func (u *ObjectUploader) Upload(ctx context.Context, img *ingest.ProcessedImage, bucket, originalFilename string) (*ingest.StoredImageReference, error) {
	if img == nil || len(img.Data) == 0 {
		return nil, ingest.NewError(ingest.KindNotReady, "no processed image to upload", nil)
	}

	ext := ingest.FileExtension(originalFilename)
	if ext == "" {
		ext = defaultExtension
	}
	key := u.newKey() + ext

	contentType := img.ContentType
	if contentType == "" {
		contentType = ingest.OutputContentType
	}

	err := u.store.Put(ctx, bucket, key, img.Data, ingest.PutOptions{
		ContentType:  contentType,
		CacheControl: u.cacheControl,
		NoOverwrite:  true,
		Metadata: map[string]string{
			"policy":      img.Policy.String(),
			"source-size": strconv.FormatInt(img.SourceSize, 10),
		},
	})
	if err != nil {
		return nil, ingest.NewError(ingest.KindUpload, "storage rejected the upload", err)
	}

	ref := &ingest.StoredImageReference{Bucket: bucket, Key: key}

	url, err := u.store.PublicURL(bucket, key)
	if err == nil && url == "" {
		err = errEmptyURL
	}
	if err != nil {
		return nil, &ingest.Error{
			Kind:    ingest.KindURLResolution,
			Message: "public URL could not be resolved",
			Err:     err,
			Orphan:  ref,
		}
	}

	ref.URL = url
	return ref, nil
}
