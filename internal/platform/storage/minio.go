package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"jewelry-catalog/internal/config"
	"jewelry-catalog/internal/domain/ingest"
)

var (
	ErrInvalidKey    = errors.New("invalid object key")
	ErrForeignURL    = errors.New("URL does not belong to this store")
	ErrEmptyObject   = errors.New("object data cannot be empty")
	ErrInvalidBucket = errors.New("bucket cannot be empty")
)

// MinIOClient is the S3-compatible object store behind the catalog images.
// Buckets are created on startup with an anonymous read policy so that
// PublicURL addresses resolve without signing.
type MinIOClient struct {
	client  *minio.Client
	region  string
	buckets []string
	baseURL *url.URL
}

// NewMinIOClient connects to the store and ensures every configured bucket exists.
func NewMinIOClient(ctx context.Context, cfg config.StorageConfig) (*MinIOClient, error) {
	var creds *credentials.Credentials

	// Use AWS credentials chain if no static credentials are provided
	if cfg.AccessKeyID == "" || cfg.SecretAccessKey == "" {
		creds = credentials.NewChainCredentials([]credentials.Provider{
			&credentials.EnvAWS{},
			&credentials.FileAWSCredentials{},
			&credentials.IAM{},
		})
	} else {
		creds = credentials.NewStaticV4(cfg.AccessKeyID, cfg.SecretAccessKey, "")
	}

	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  creds,
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create MinIO client: %w", err)
	}

	base, err := publicBase(cfg)
	if err != nil {
		return nil, err
	}

	m := &MinIOClient{
		client:  client,
		region:  cfg.Region,
		buckets: cfg.Buckets(),
		baseURL: base,
	}

	if err := m.EnsureBuckets(ctx, m.buckets...); err != nil {
		return nil, fmt.Errorf("failed to ensure buckets exist: %w", err)
	}

	return m, nil
}

// publicBase resolves the address objects are served from.
func publicBase(cfg config.StorageConfig) (*url.URL, error) {
	raw := cfg.PublicBaseURL
	if raw == "" {
		scheme := "http"
		if cfg.UseSSL {
			scheme = "https"
		}
		raw = scheme + "://" + cfg.Endpoint
	}

	u, err := url.Parse(strings.TrimSuffix(raw, "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid public base URL %q: %w", raw, err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid public base URL %q: scheme and host required", raw)
	}
	return u, nil
}

// EnsureBuckets creates missing buckets and makes their objects publicly readable.
func (m *MinIOClient) EnsureBuckets(ctx context.Context, buckets ...string) error {
	for _, bucket := range buckets {
		exists, err := m.client.BucketExists(ctx, bucket)
		if err != nil {
			return fmt.Errorf("failed to check bucket %s: %w", bucket, err)
		}

		if !exists {
			if err := m.client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{Region: m.region}); err != nil {
				return fmt.Errorf("failed to create bucket %s: %w", bucket, err)
			}
		}

		if err := m.client.SetBucketPolicy(ctx, bucket, publicReadPolicy(bucket)); err != nil {
			return fmt.Errorf("failed to set read policy on %s: %w", bucket, err)
		}
	}
	return nil
}

func publicReadPolicy(bucket string) string {
	return fmt.Sprintf(`{"Version":"2012-10-17","Statement":[{"Effect":"Allow","Principal":{"AWS":["*"]},`+
		`"Action":["s3:GetObject"],"Resource":["arn:aws:s3:::%s/*"]}]}`, bucket)
}

// Put implements ingest.ObjectStore.
func (m *MinIOClient) Put(ctx context.Context, bucket, key string, data []byte, opts ingest.PutOptions) error {
	if bucket == "" {
		return ErrInvalidBucket
	}
	if err := validateKey(key); err != nil {
		return err
	}
	if len(data) == 0 {
		return ErrEmptyObject
	}

	if opts.NoOverwrite {
		exists, err := m.Exists(ctx, bucket, key)
		if err != nil {
			return err
		}
		if exists {
			return fmt.Errorf("%w: %s/%s", ingest.ErrObjectExists, bucket, key)
		}
	}

	metadata := map[string]string{
		"upload-time": time.Now().UTC().Format(time.RFC3339),
	}
	for k, v := range opts.Metadata {
		metadata[k] = v
	}

	info, err := m.client.PutObject(ctx, bucket, key, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType:  opts.ContentType,
		CacheControl: opts.CacheControl,
		UserMetadata: metadata,
	})
	if err != nil {
		return fmt.Errorf("failed to upload %s/%s: %w", bucket, key, err)
	}

	if info.Size == 0 {
		_ = m.client.RemoveObject(ctx, bucket, key, minio.RemoveObjectOptions{})
		return fmt.Errorf("uploaded object %s/%s has zero size", bucket, key)
	}

	return nil
}

// Exists reports whether bucket/key is present.
func (m *MinIOClient) Exists(ctx context.Context, bucket, key string) (bool, error) {
	_, err := m.client.StatObject(ctx, bucket, key, minio.StatObjectOptions{})
	if err != nil {
		switch minio.ToErrorResponse(err).Code {
		case "NoSuchKey", "NoSuchObject":
			return false, nil
		}
		return false, fmt.Errorf("failed to stat %s/%s: %w", bucket, key, err)
	}
	return true, nil
}

// PublicURL implements ingest.ObjectStore.
func (m *MinIOClient) PublicURL(bucket, key string) (string, error) {
	return objectURL(m.baseURL, bucket, key)
}

// ObjectKey implements ingest.ObjectStore.
func (m *MinIOClient) ObjectKey(bucket, publicURL string) (string, error) {
	return objectKey(m.baseURL, bucket, publicURL)
}

// Remove implements ingest.ObjectStore.
func (m *MinIOClient) Remove(ctx context.Context, bucket, key string) error {
	if bucket == "" {
		return ErrInvalidBucket
	}
	if err := validateKey(key); err != nil {
		return err
	}

	if err := m.client.RemoveObject(ctx, bucket, key, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("failed to remove %s/%s: %w", bucket, key, err)
	}
	return nil
}

// Health checks that every configured bucket is reachable.
func (m *MinIOClient) Health(ctx context.Context) error {
	for _, bucket := range m.buckets {
		exists, err := m.client.BucketExists(ctx, bucket)
		if err != nil {
			return fmt.Errorf("storage health check failed: %w", err)
		}
		if !exists {
			return fmt.Errorf("storage health check failed: bucket %s missing", bucket)
		}
	}
	return nil
}

func objectURL(base *url.URL, bucket, key string) (string, error) {
	if base == nil {
		return "", errors.New("public base URL not configured")
	}
	if bucket == "" {
		return "", ErrInvalidBucket
	}
	if err := validateKey(key); err != nil {
		return "", err
	}
	return base.JoinPath(bucket, key).String(), nil
}

func objectKey(base *url.URL, bucket, publicURL string) (string, error) {
	u, err := url.Parse(publicURL)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrForeignURL, err)
	}
	if base == nil || !strings.EqualFold(u.Host, base.Host) {
		return "", fmt.Errorf("%w: %s", ErrForeignURL, publicURL)
	}

	prefix := strings.TrimSuffix(base.Path, "/") + "/" + bucket + "/"
	if !strings.HasPrefix(u.Path, prefix) {
		return "", fmt.Errorf("%w: %s is not in bucket %s", ErrForeignURL, publicURL, bucket)
	}

	key := strings.TrimPrefix(u.Path, prefix)
	if err := validateKey(key); err != nil {
		return "", err
	}
	return key, nil
}

// validateKey rejects keys that could escape the bucket namespace.
func validateKey(key string) error {
	switch {
	case key == "":
		return fmt.Errorf("%w: empty", ErrInvalidKey)
	case len(key) > 255:
		return fmt.Errorf("%w: too long", ErrInvalidKey)
	case strings.Contains(key, ".."):
		return fmt.Errorf("%w: path traversal", ErrInvalidKey)
	case strings.HasPrefix(key, "/") || strings.HasPrefix(key, "\\"):
		return fmt.Errorf("%w: absolute path", ErrInvalidKey)
	case strings.Contains(key, "\x00"):
		return fmt.Errorf("%w: null byte", ErrInvalidKey)
	}
	return nil
}
