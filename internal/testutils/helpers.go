package testutils

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"math/rand/v2"
	"mime/multipart"
	"net/textproto"
	"time"

	"jewelry-catalog/internal/config"
	"jewelry-catalog/internal/domain/catalog"
	"jewelry-catalog/internal/observability"
	"jewelry-catalog/internal/platform/database"
	"jewelry-catalog/internal/services"
)

// TestSuite provides common test utilities for integration tests
type TestSuite struct {
	Containers *TestContainers
	Repos      *database.Repositories
	Config     *config.Config
}

// SetupTestSuite starts the containers and builds a configuration pointing at them
func SetupTestSuite(ctx context.Context) (*TestSuite, error) {
	containers, err := SetupTestContainers(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to setup test containers: %w", err)
	}

	return &TestSuite{
		Containers: containers,
		Repos:      database.NewRepositories(containers.DB),
		Config:     TestConfig(containers),
	}, nil
}

// TestConfig returns a configuration for the running containers
func TestConfig(tc *TestContainers) *config.Config {
	return &config.Config{
		Environment: "test",
		Port:        "0",
		Host:        "localhost",
		DatabaseURL: tc.DatabaseURL,
		Storage:     tc.StorageConfig,
		Cache:       tc.CacheConfig,
		Ingest: config.IngestConfig{
			MaxSizeMB:    0.3,
			MaxIteration: 10,
			Workers:      2,
			CropWidth:    800,
			CropHeight:   600,
			CropQuality:  90,
			BoundWidth:   1200,
			BoundHeight:  1200,
			BoundQuality: 95,
			SessionTTL:   time.Minute,
		},
		Logging: &config.LoggingConfig{Level: "debug", Format: "json", Output: "stdout"},
		Server:  &config.ServerConfig{},
	}
}

// NewContainer wires the service container onto the test infrastructure
func (ts *TestSuite) NewContainer() (*services.Container, error) {
	return services.NewContainer(ts.Config, ts.Containers.DB, ts.Containers.MinioClient,
		ts.Containers.RedisClient, observability.NopLogger())
}

// Cleanup cleans up all test resources
func (ts *TestSuite) Cleanup(ctx context.Context) error {
	return ts.Containers.Cleanup(ctx)
}

// ResetData clears rows, objects and cached listings
func (ts *TestSuite) ResetData(ctx context.Context) error {
	if err := ts.Containers.ResetDatabase(ctx); err != nil {
		return err
	}
	if err := ts.Containers.CleanBuckets(ctx); err != nil {
		return err
	}
	return ts.Containers.FlushRedis(ctx)
}

// CreateTestProduct stores an active product in the first seeded category and material
func (ts *TestSuite) CreateTestProduct(ctx context.Context, title string) (*catalog.Product, error) {
	categories, err := ts.Repos.Taxonomy.ListCategories(ctx)
	if err != nil {
		return nil, err
	}
	materials, err := ts.Repos.Taxonomy.ListMaterials(ctx)
	if err != nil {
		return nil, err
	}
	if len(categories) == 0 || len(materials) == 0 {
		return nil, fmt.Errorf("taxonomy is not seeded")
	}

	p := &catalog.Product{
		Title:        title,
		Description:  "Pieza de prueba " + title,
		MainImageURL: "http://example.test/" + RandomString(8) + ".jpg",
		Price:        float64(100 + rand.IntN(900)),
		Slug:         catalog.Slugify(title),
		Active:       true,
		CategoryID:   categories[0].ID,
		MaterialIDs:  []int{materials[0].ID},
	}
	if err := ts.Repos.Products.Create(ctx, p); err != nil {
		return nil, fmt.Errorf("failed to create test product: %w", err)
	}
	return p, nil
}

// GenerateTestJPEG returns a real w x h JPEG with a gradient so it compresses
// like a photograph rather than a flat fill
func GenerateTestJPEG(w, h int) []byte {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{
				R: uint8(x * 255 / max(w, 1)),
				G: uint8(y * 255 / max(h, 1)),
				B: uint8(rand.IntN(256)),
				A: 255,
			})
		}
	}
	var buf bytes.Buffer
	_ = jpeg.Encode(&buf, img, &jpeg.Options{Quality: 95}) //nolint:errcheck // in-memory writer
	return buf.Bytes()
}

// CreateMultipartFormData builds an upload form with the file under "file"
func CreateMultipartFormData(filename, contentType string, data []byte, fields map[string]string) ([]byte, string, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	for key, value := range fields {
		if err := writer.WriteField(key, value); err != nil {
			return nil, "", err
		}
	}

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename="%s"`, filename))
	header.Set("Content-Type", contentType)
	part, err := writer.CreatePart(header)
	if err != nil {
		return nil, "", err
	}
	if _, err := part.Write(data); err != nil {
		return nil, "", err
	}

	if err := writer.Close(); err != nil {
		return nil, "", err
	}
	return buf.Bytes(), writer.FormDataContentType(), nil
}

// RandomString generates a random lowercase string of the given length
func RandomString(length int) string {
	const charset = "abcdefghijklmnopqrstuvwxyz0123456789"
	b := make([]byte, length)
	for i := range b {
		b[i] = charset[rand.IntN(len(charset))]
	}
	return string(b)
}
