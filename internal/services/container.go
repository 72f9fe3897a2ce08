package services

import (
	"context"
	"database/sql"
	"fmt"

	"go.opentelemetry.io/otel"

	"jewelry-catalog/internal/config"
	"jewelry-catalog/internal/content"
	"jewelry-catalog/internal/observability"
	"jewelry-catalog/internal/platform/cache"
	"jewelry-catalog/internal/platform/database"
	"jewelry-catalog/internal/platform/imageproc"
	"jewelry-catalog/internal/platform/storage"
	"jewelry-catalog/internal/services/implementations"
)

const ingestInstrumentationName = "jewelry-catalog/ingest"

// Container holds all the application dependencies
type Container struct {
	config *config.Config
	db     *sql.DB
	logger *observability.Logger

	// Storage
	storageClient *storage.MinIOClient
	redisClient   *cache.RedisClient // nil when caching is disabled

	// Repositories
	repositories *database.Repositories

	// Ingestion
	uploader *implementations.ObjectUploader
	sessions *implementations.UploadSessions

	// Catalog services
	cacheService       *implementations.CacheService
	productService     *implementations.ProductService
	taxonomyService    *implementations.TaxonomyService
	stockService       *implementations.StockService
	carouselService    *implementations.CarouselService
	customOrderService *implementations.CustomOrderService

	pages *content.Pages
}

// NewContainer creates a new dependency injection container.
// redisClient may be nil.
func NewContainer(
	cfg *config.Config,
	db *sql.DB,
	storageClient *storage.MinIOClient,
	redisClient *cache.RedisClient,
	logger *observability.Logger,
) (*Container, error) {
	if logger == nil {
		logger = observability.NopLogger()
	}

	container := &Container{
		config:        cfg,
		db:            db,
		logger:        logger,
		storageClient: storageClient,
		redisClient:   redisClient,
	}

	if err := container.initializeServices(); err != nil {
		return nil, err
	}

	return container, nil
}

// initializeServices initializes all services in the correct dependency order
func (c *Container) initializeServices() error {
	c.repositories = database.NewRepositories(c.db)
	c.cacheService = implementations.NewCacheService(c.redisClient)

	metrics, err := observability.NewIngestMetrics(otel.Meter(ingestInstrumentationName))
	if err != nil {
		return fmt.Errorf("failed to register ingest metrics: %w", err)
	}

	c.uploader = implementations.NewObjectUploader(c.storageClient, c.config.Storage.CacheControl)
	c.sessions = implementations.NewUploadSessions(
		implementations.ProfilesFromConfig(c.config),
		implementations.CompressionFromConfig(c.config.Ingest),
		c.config.Ingest.SessionTTL,
		implementations.PipelineDeps{
			Compressor:  imageproc.NewCompressor(c.config.Ingest.Workers),
			Transformer: imageproc.NewCanvas(),
			Uploader:    c.uploader,
			Logger:      c.logger.With("pipeline"),
			Metrics:     metrics,
			Tracer:      otel.Tracer(ingestInstrumentationName),
		},
	)

	ttl := c.config.Cache.DefaultTTL
	catalogLogger := c.logger.With("catalog")
	c.productService = implementations.NewProductService(c.repositories.Products, c.cacheService, ttl, catalogLogger)
	c.taxonomyService = implementations.NewTaxonomyService(c.repositories.Taxonomy, c.cacheService, ttl, catalogLogger)
	c.stockService = implementations.NewStockService(c.repositories.Stock, c.cacheService, ttl, catalogLogger)
	c.carouselService = implementations.NewCarouselService(
		c.repositories.Carousel,
		c.storageClient,
		c.config.Storage.CarouselBucket,
		c.cacheService,
		ttl,
		catalogLogger,
	)
	c.customOrderService = implementations.NewCustomOrderService(c.repositories.CustomOrders, catalogLogger)

	c.pages, err = content.Load()
	if err != nil {
		return fmt.Errorf("failed to load pages: %w", err)
	}

	c.logger.Info(context.Background()).
		Bool("cache_enabled", c.cacheService.Available()).
		Msg("Dependency injection container initialized successfully")
	return nil
}

// Getters for accessing services

func (c *Container) Config() *config.Config {
	return c.config
}

func (c *Container) DB() *sql.DB {
	return c.db
}

func (c *Container) Logger() *observability.Logger {
	return c.logger
}

func (c *Container) StorageClient() *storage.MinIOClient {
	return c.storageClient
}

func (c *Container) Repositories() *database.Repositories {
	return c.repositories
}

func (c *Container) Uploader() *implementations.ObjectUploader {
	return c.uploader
}

func (c *Container) UploadSessions() *implementations.UploadSessions {
	return c.sessions
}

func (c *Container) CacheService() *implementations.CacheService {
	return c.cacheService
}

func (c *Container) ProductService() *implementations.ProductService {
	return c.productService
}

func (c *Container) TaxonomyService() *implementations.TaxonomyService {
	return c.taxonomyService
}

func (c *Container) StockService() *implementations.StockService {
	return c.stockService
}

func (c *Container) CarouselService() *implementations.CarouselService {
	return c.carouselService
}

func (c *Container) CustomOrderService() *implementations.CustomOrderService {
	return c.customOrderService
}

func (c *Container) Pages() *content.Pages {
	return c.pages
}

// Close cleans up resources
func (c *Container) Close() error {
	var firstErr error
	if c.redisClient != nil {
		if err := c.redisClient.Close(); err != nil {
			firstErr = err
		}
	}
	if c.db != nil {
		if err := c.db.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
