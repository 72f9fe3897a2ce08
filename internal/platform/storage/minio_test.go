package storage

import (
	"context"
	"encoding/json"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jewelry-catalog/internal/config"
	"jewelry-catalog/internal/domain/ingest"
)

func mustURL(t *testing.T, raw string) *url.URL {
	t.Helper()
	u, err := url.Parse(raw)
	require.NoError(t, err)
	return u
}

func TestPublicBase(t *testing.T) {
	tests := []struct {
		name    string
		cfg     config.StorageConfig
		want    string
		wantErr bool
	}{
		{"endpoint without ssl", config.StorageConfig{Endpoint: "localhost:9000"}, "http://localhost:9000", false},
		{"endpoint with ssl", config.StorageConfig{Endpoint: "s3.example.com", UseSSL: true}, "https://s3.example.com", false},
		{"explicit public url", config.StorageConfig{Endpoint: "minio:9000", PublicBaseURL: "https://cdn.example.com/storage/"}, "https://cdn.example.com/storage", false},
		{"relative public url", config.StorageConfig{PublicBaseURL: "/storage"}, "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := publicBase(tt.cfg)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got.String())
		})
	}
}

func TestObjectURLRoundTrip(t *testing.T) {
	bases := []string{"http://localhost:9000", "https://cdn.example.com/storage"}

	for _, raw := range bases {
		t.Run(raw, func(t *testing.T) {
			m := &MinIOClient{baseURL: mustURL(t, raw)}
			key := "0b7c6d1e-8f1a-4a43-9d55-1c2f3e4a5b6c.jpg"

			u, err := m.PublicURL("producto-images", key)
			require.NoError(t, err)
			assert.Equal(t, raw+"/producto-images/"+key, u)

			got, err := m.ObjectKey("producto-images", u)
			require.NoError(t, err)
			assert.Equal(t, key, got)
		})
	}
}

func TestObjectKeyRejectsForeignURLs(t *testing.T) {
	m := &MinIOClient{baseURL: mustURL(t, "http://localhost:9000")}

	tests := []struct {
		name string
		url  string
	}{
		{"other host", "http://evil.example.com/carousel-images/a.jpg"},
		{"other bucket", "http://localhost:9000/stock-images/a.jpg"},
		{"bucket root", "http://localhost:9000/carousel-images/"},
		{"traversal", "http://localhost:9000/carousel-images/../stock-images/a.jpg"},
		{"garbage", "::not a url"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := m.ObjectKey("carousel-images", tt.url)
			assert.Error(t, err)
		})
	}
}

func TestPublicURLValidation(t *testing.T) {
	m := &MinIOClient{baseURL: mustURL(t, "http://localhost:9000")}

	_, err := m.PublicURL("", "a.jpg")
	assert.ErrorIs(t, err, ErrInvalidBucket)

	_, err = m.PublicURL("carousel-images", "")
	assert.ErrorIs(t, err, ErrInvalidKey)

	_, err = (&MinIOClient{}).PublicURL("carousel-images", "a.jpg")
	assert.Error(t, err)
}

func TestValidateKey(t *testing.T) {
	tests := []struct {
		key   string
		valid bool
	}{
		{"abc.jpg", true},
		{"nested/abc.jpg", true},
		{"", false},
		{"../etc/passwd", false},
		{"/abs.jpg", false},
		{"\\abs.jpg", false},
		{"nul\x00.jpg", false},
		{strings.Repeat("a", 256), false},
	}

	for _, tt := range tests {
		err := validateKey(tt.key)
		if tt.valid {
			assert.NoError(t, err, "key %q", tt.key)
		} else {
			assert.ErrorIs(t, err, ErrInvalidKey, "key %q", tt.key)
		}
	}
}

func TestPutValidatesBeforeNetwork(t *testing.T) {
	// client is nil: any validation failure must return before it is used.
	m := &MinIOClient{baseURL: mustURL(t, "http://localhost:9000")}
	ctx := context.Background()

	assert.ErrorIs(t, m.Put(ctx, "", "a.jpg", []byte{1}, ingest.PutOptions{}), ErrInvalidBucket)
	assert.ErrorIs(t, m.Put(ctx, "b-images", "../a.jpg", []byte{1}, ingest.PutOptions{}), ErrInvalidKey)
	assert.ErrorIs(t, m.Put(ctx, "b-images", "a.jpg", nil, ingest.PutOptions{}), ErrEmptyObject)
	assert.ErrorIs(t, m.Remove(ctx, "b-images", ""), ErrInvalidKey)
}

func TestPublicReadPolicy(t *testing.T) {
	var policy struct {
		Statement []struct {
			Effect   string
			Action   []string
			Resource []string
		}
	}
	require.NoError(t, json.Unmarshal([]byte(publicReadPolicy("carousel-images")), &policy))
	require.Len(t, policy.Statement, 1)
	assert.Equal(t, "Allow", policy.Statement[0].Effect)
	assert.Equal(t, []string{"s3:GetObject"}, policy.Statement[0].Action)
	assert.Equal(t, []string{"arn:aws:s3:::carousel-images/*"}, policy.Statement[0].Resource)
}
