// Package config loads the catalog service configuration from the environment
// and validates it before the process starts serving.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config represents the application configuration
type Config struct {
	Environment string
	Port        string
	Host        string
	DatabaseURL string
	Storage     StorageConfig
	Cache       CacheConfig
	Ingest      IngestConfig
	Logging     *LoggingConfig
	Server      *ServerConfig
}

// StorageConfig holds object storage configuration
type StorageConfig struct {
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	UseSSL          bool
	Region          string
	// PublicBaseURL is the address images are served from. When empty the
	// endpoint itself is used.
	PublicBaseURL  string
	CacheControl   string
	CarouselBucket string
	ProductBucket  string
	StockBucket    string
	MaxUploadSize  int64
}

// Buckets returns every bucket the service writes to.
func (s StorageConfig) Buckets() []string {
	return []string{s.CarouselBucket, s.ProductBucket, s.StockBucket}
}

// CacheConfig holds the Redis settings used for public listing caches
type CacheConfig struct {
	Enabled     bool
	Address     string
	Password    string
	Database    int
	DefaultTTL  time.Duration
	DialTimeout time.Duration
}

// IngestConfig holds image ingestion settings
type IngestConfig struct {
	MaxSizeMB    float64
	MaxIteration int
	UseWorker    bool
	Workers      int

	CropWidth   int
	CropHeight  int
	CropQuality int

	BoundWidth   int
	BoundHeight  int
	BoundQuality int

	// Optional per-target overrides such as "crop:800x600" or "bound:1200x1200".
	CarouselPolicy string
	ProductPolicy  string
	StockPolicy    string

	SessionTTL time.Duration
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string
	Format string
	Output string
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

// Load creates a new configuration from environment variables with validation
func Load() (*Config, error) {
	useSSL, _ := strconv.ParseBool(getEnv("STORAGE_USE_SSL", "false"))
	maxUploadSize := parseSize(getEnv("MAX_UPLOAD_SIZE", "10MB"))

	readTimeout, _ := time.ParseDuration(getEnv("READ_TIMEOUT", "30s"))
	writeTimeout, _ := time.ParseDuration(getEnv("WRITE_TIMEOUT", "60s"))
	idleTimeout, _ := time.ParseDuration(getEnv("SERVER_TIMEOUT", "60s"))

	config := &Config{
		Environment: getEnv("GO_ENV", "development"),
		Port:        getEnv("PORT", "8080"),
		Host:        getEnv("HOST", "localhost"),
		DatabaseURL: getEnv("DATABASE_URL", ""),
		Storage: StorageConfig{
			Endpoint:        getEnv("STORAGE_ENDPOINT", "localhost:9000"),
			AccessKeyID:     getEnv("STORAGE_ACCESS_KEY", "minioadmin"),
			SecretAccessKey: getEnv("STORAGE_SECRET_KEY", "minioadmin"),
			UseSSL:          useSSL,
			Region:          getEnv("STORAGE_REGION", "us-east-1"),
			PublicBaseURL:   getEnv("STORAGE_PUBLIC_URL", ""),
			CacheControl:    getEnv("STORAGE_CACHE_CONTROL", "max-age=3600"),
			CarouselBucket:  getEnv("CAROUSEL_BUCKET", "carousel-images"),
			ProductBucket:   getEnv("PRODUCT_BUCKET", "producto-images"),
			StockBucket:     getEnv("STOCK_BUCKET", "stock-images"),
			MaxUploadSize:   maxUploadSize,
		},
		Cache: CacheConfig{
			Enabled:     getEnvBool("REDIS_ENABLED", false),
			Address:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password:    getEnv("REDIS_PASSWORD", ""),
			Database:    getEnvInt("REDIS_DB", 0),
			DefaultTTL:  getEnvDuration("CACHE_TTL", 5*time.Minute),
			DialTimeout: getEnvDuration("REDIS_DIAL_TIMEOUT", 5*time.Second),
		},
		Ingest: IngestConfig{
			MaxSizeMB:    getEnvFloat("INGEST_MAX_SIZE_MB", 0.3),
			MaxIteration: getEnvInt("INGEST_MAX_ITERATION", 10),
			UseWorker:    getEnvBool("INGEST_USE_WORKER", true),
			Workers:      getEnvInt("INGEST_WORKERS", 4),
			CropWidth:    getEnvInt("INGEST_CROP_WIDTH", 800),
			CropHeight:   getEnvInt("INGEST_CROP_HEIGHT", 600),
			CropQuality:  getEnvInt("INGEST_CROP_QUALITY", 90),
			BoundWidth:   getEnvInt("INGEST_BOUND_WIDTH", 1200),
			BoundHeight:  getEnvInt("INGEST_BOUND_HEIGHT", 1200),
			BoundQuality: getEnvInt("INGEST_BOUND_QUALITY", 95),

			CarouselPolicy: getEnv("INGEST_CAROUSEL_POLICY", ""),
			ProductPolicy:  getEnv("INGEST_PRODUCT_POLICY", ""),
			StockPolicy:    getEnv("INGEST_STOCK_POLICY", ""),

			SessionTTL: getEnvDuration("INGEST_SESSION_TTL", 30*time.Minute),
		},
		Logging: &LoggingConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
			Output: getEnv("LOG_OUTPUT", "stdout"),
		},
		Server: &ServerConfig{
			ReadTimeout:  readTimeout,
			WriteTimeout: writeTimeout,
			IdleTimeout:  idleTimeout,
		},
	}

	// Validate configuration before returning
	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseFloat(value, 64); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

// parseSize parses size strings like "10MB", "512KB" into bytes
func parseSize(sizeStr string) int64 {
	sizeStr = strings.ToUpper(strings.TrimSpace(sizeStr))

	if strings.HasSuffix(sizeStr, "MB") {
		numStr := strings.TrimSuffix(sizeStr, "MB")
		if num, err := strconv.ParseInt(numStr, 10, 64); err == nil {
			return num * 1024 * 1024
		}
	}

	if strings.HasSuffix(sizeStr, "KB") {
		numStr := strings.TrimSuffix(sizeStr, "KB")
		if num, err := strconv.ParseInt(numStr, 10, 64); err == nil {
			return num * 1024
		}
	}

	// Default to 10MB if parsing fails
	return 10 * 1024 * 1024
}
