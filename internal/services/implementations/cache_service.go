package implementations

import (
	"context"
	"errors"
	"time"

	"jewelry-catalog/internal/platform/cache"
)

// ErrCacheUnavailable is returned by Health when no cache is configured.
var ErrCacheUnavailable = errors.New("cache unavailable")

// CacheService implements catalog.Cache using Redis/Valkey. With a nil client
// every read misses and every write is a no-op.
type CacheService struct {
	client *cache.RedisClient
}

// NewCacheService creates a new cache service
func NewCacheService(client *cache.RedisClient) *CacheService {
	return &CacheService{
		client: client,
	}
}

// Available reports whether a backing client is configured
func (c *CacheService) Available() bool {
	return c != nil && c.client != nil
}

// Get retrieves a cached value into result
func (c *CacheService) Get(ctx context.Context, key string, result any) error {
	if !c.Available() {
		return cache.ErrCacheMiss
	}
	return c.client.Get(ctx, key, result)
}

// Set caches value; a zero ttl uses the client default
func (c *CacheService) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	if !c.Available() {
		return nil
	}
	return c.client.Set(ctx, key, value, ttl)
}

// InvalidatePrefix clears every cached listing under prefix
func (c *CacheService) InvalidatePrefix(ctx context.Context, prefix string) error {
	if !c.Available() {
		return nil
	}
	return c.client.InvalidatePrefix(ctx, prefix)
}

// Health checks if the cache service is healthy
func (c *CacheService) Health(ctx context.Context) error {
	if !c.Available() {
		return ErrCacheUnavailable
	}
	return c.client.Health(ctx)
}
