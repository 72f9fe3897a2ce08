package testutils

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	minioClient "github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/minio"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	redisModule "github.com/testcontainers/testcontainers-go/modules/redis"
	"github.com/testcontainers/testcontainers-go/wait"

	"jewelry-catalog/internal/config"
	"jewelry-catalog/internal/platform/cache"
	"jewelry-catalog/internal/platform/database"
	"jewelry-catalog/internal/platform/storage"
)

// TestContainers manages test containers for integration testing
type TestContainers struct {
	PostgresContainer testcontainers.Container
	MinioContainer    testcontainers.Container
	RedisContainer    testcontainers.Container
	DB                *sql.DB
	MinioClient       *storage.MinIOClient
	RedisClient       *cache.RedisClient
	StorageConfig     config.StorageConfig
	CacheConfig       config.CacheConfig
	DatabaseURL       string
	MinioEndpoint     string
	MinioUsername     string
	MinioPassword     string
	RedisEndpoint     string

	rawMinio *minioClient.Client
}

// SetupTestContainers initializes and starts test containers
func SetupTestContainers(ctx context.Context) (*TestContainers, error) {
	containers := &TestContainers{
		MinioUsername: "testuser",
		MinioPassword: "testpass123",
	}

	if err := containers.setupPostgres(ctx); err != nil {
		return nil, fmt.Errorf("failed to setup postgres container: %w", err)
	}

	if err := containers.setupMinio(ctx); err != nil {
		_ = containers.Cleanup(ctx)
		return nil, fmt.Errorf("failed to setup minio container: %w", err)
	}

	if err := containers.setupRedis(ctx); err != nil {
		_ = containers.Cleanup(ctx)
		return nil, fmt.Errorf("failed to setup redis container: %w", err)
	}

	if _, err := database.RunMigrations(ctx, containers.DB); err != nil {
		_ = containers.Cleanup(ctx)
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return containers, nil
}

func (tc *TestContainers) setupPostgres(ctx context.Context) error {
	postgresContainer, err := postgres.Run(ctx,
		"postgres:15-alpine",
		postgres.WithDatabase("catalog"),
		postgres.WithUsername("testuser"),
		postgres.WithPassword("testpass"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	if err != nil {
		return fmt.Errorf("failed to start postgres container: %w", err)
	}

	tc.PostgresContainer = postgresContainer

	connStr, err := postgresContainer.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		return fmt.Errorf("failed to get postgres connection string: %w", err)
	}
	tc.DatabaseURL = connStr

	db, err := database.NewConnection(ctx, connStr)
	if err != nil {
		return fmt.Errorf("failed to connect to postgres: %w", err)
	}

	tc.DB = db
	return nil
}

func (tc *TestContainers) setupMinio(ctx context.Context) error {
	minioContainer, err := minio.Run(ctx,
		"minio/minio:latest",
		minio.WithUsername(tc.MinioUsername),
		minio.WithPassword(tc.MinioPassword),
	)
	if err != nil {
		return fmt.Errorf("failed to start minio container: %w", err)
	}

	tc.MinioContainer = minioContainer

	endpoint, err := minioContainer.ConnectionString(ctx)
	if err != nil {
		return fmt.Errorf("failed to get minio endpoint: %w", err)
	}
	tc.MinioEndpoint = endpoint

	tc.rawMinio, err = minioClient.New(endpoint, &minioClient.Options{
		Creds:  credentials.NewStaticV4(tc.MinioUsername, tc.MinioPassword, ""),
		Secure: false,
	})
	if err != nil {
		return fmt.Errorf("failed to create minio client: %w", err)
	}

	tc.StorageConfig = config.StorageConfig{
		Endpoint:        endpoint,
		AccessKeyID:     tc.MinioUsername,
		SecretAccessKey: tc.MinioPassword,
		UseSSL:          false,
		Region:          "us-east-1",
		PublicBaseURL:   "http://" + endpoint,
		CacheControl:    "max-age=3600",
		CarouselBucket:  "carousel-images",
		ProductBucket:   "producto-images",
		StockBucket:     "stock-images",
		MaxUploadSize:   10 << 20,
	}

	// buckets are created here
	storageClient, err := storage.NewMinIOClient(ctx, tc.StorageConfig)
	if err != nil {
		return fmt.Errorf("failed to create storage client: %w", err)
	}

	tc.MinioClient = storageClient
	return nil
}

// setupRedis starts a Valkey container (Redis-compatible)
func (tc *TestContainers) setupRedis(ctx context.Context) error {
	redisContainer, err := redisModule.Run(ctx,
		"valkey/valkey:7-alpine",
		redisModule.WithLogLevel(redisModule.LogLevelVerbose),
	)
	if err != nil {
		return fmt.Errorf("failed to start valkey container: %w", err)
	}

	tc.RedisContainer = redisContainer

	endpoint, err := redisContainer.ConnectionString(ctx)
	if err != nil {
		return fmt.Errorf("failed to get valkey endpoint: %w", err)
	}
	tc.RedisEndpoint = endpoint

	tc.CacheConfig = config.CacheConfig{
		Enabled:     true,
		Address:     endpoint,
		DefaultTTL:  time.Hour,
		DialTimeout: 5 * time.Second,
	}

	redisClient, err := cache.NewRedisClient(tc.CacheConfig)
	if err != nil {
		return fmt.Errorf("failed to create redis client: %w", err)
	}
	tc.RedisClient = redisClient

	if err := tc.RedisClient.Health(ctx); err != nil {
		return fmt.Errorf("failed to connect to valkey: %w", err)
	}

	return nil
}

// Cleanup terminates all test containers and closes connections
func (tc *TestContainers) Cleanup(ctx context.Context) error {
	var errs []error

	if tc.DB != nil {
		if err := tc.DB.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close database: %w", err))
		}
	}

	if tc.RedisClient != nil {
		if err := tc.RedisClient.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close valkey client: %w", err))
		}
	}

	for name, c := range map[string]testcontainers.Container{
		"postgres": tc.PostgresContainer,
		"minio":    tc.MinioContainer,
		"valkey":   tc.RedisContainer,
	} {
		if c == nil {
			continue
		}
		if err := c.Terminate(ctx); err != nil {
			errs = append(errs, fmt.Errorf("failed to terminate %s container: %w", name, err))
		}
	}

	return errors.Join(errs...)
}

var seedCategories = []string{"aretes", "pulseras", "anillos", "collares"}
var seedMaterials = []string{"plata", "alpaca", "cobre"}

// ResetDatabase removes every catalog row while keeping the seeded taxonomy
func (tc *TestContainers) ResetDatabase(ctx context.Context) error {
	tx, err := tc.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	statements := []string{
		"TRUNCATE custom_orders, carousel_items, stock_items, product_materials, products RESTART IDENTITY",
		fmt.Sprintf("DELETE FROM categories WHERE slug NOT IN (%s)", quoteList(seedCategories)),
		fmt.Sprintf("DELETE FROM materials WHERE slug NOT IN (%s)", quoteList(seedMaterials)),
	}
	for _, stmt := range statements {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to reset database: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit reset transaction: %w", err)
	}
	return nil
}

func quoteList(values []string) string {
	out := ""
	for i, v := range values {
		if i > 0 {
			out += ", "
		}
		out += "'" + v + "'"
	}
	return out
}

// CleanBuckets removes every object from the catalog buckets
func (tc *TestContainers) CleanBuckets(ctx context.Context) error {
	for _, bucket := range tc.StorageConfig.Buckets() {
		for obj := range tc.rawMinio.ListObjects(ctx, bucket, minioClient.ListObjectsOptions{Recursive: true}) {
			if obj.Err != nil {
				return fmt.Errorf("failed to list %s: %w", bucket, obj.Err)
			}
			if err := tc.rawMinio.RemoveObject(ctx, bucket, obj.Key, minioClient.RemoveObjectOptions{}); err != nil {
				return fmt.Errorf("failed to remove %s/%s: %w", bucket, obj.Key, err)
			}
		}
	}
	return nil
}

// ObjectCount returns the number of objects stored in bucket
func (tc *TestContainers) ObjectCount(ctx context.Context, bucket string) (int, error) {
	n := 0
	for obj := range tc.rawMinio.ListObjects(ctx, bucket, minioClient.ListObjectsOptions{Recursive: true}) {
		if obj.Err != nil {
			return 0, obj.Err
		}
		n++
	}
	return n, nil
}

// FlushRedis clears every cached listing
func (tc *TestContainers) FlushRedis(ctx context.Context) error {
	if tc.RedisClient == nil {
		return errors.New("valkey client not available")
	}
	return tc.RedisClient.InvalidatePrefix(ctx, "")
}
