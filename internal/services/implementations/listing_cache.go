package implementations

import (
	"context"
	"errors"
	"time"

	"jewelry-catalog/internal/domain/catalog"
	"jewelry-catalog/internal/observability"
	"jewelry-catalog/internal/platform/cache"
)

// Cache key prefixes, one per invalidation scope.
const (
	productsCachePrefix = "products:"
	taxonomyCachePrefix = "taxonomy:"
	stockCachePrefix    = "stock:"
	carouselCachePrefix = "carousel:"
)

// listingCache reads public listings through the cache. Cache errors are
// logged and fall back to the loader.
type listingCache struct {
	cache  catalog.Cache
	ttl    time.Duration
	logger *observability.Logger
}

func newListingCache(c catalog.Cache, ttl time.Duration, logger *observability.Logger) listingCache {
	if logger == nil {
		logger = observability.NopLogger()
	}
	return listingCache{cache: c, ttl: ttl, logger: logger}
}

func readThrough[T any](ctx context.Context, lc listingCache, key string, load func(context.Context) (T, error)) (T, error) {
	var cached T
	if lc.cache != nil {
		err := lc.cache.Get(ctx, key, &cached)
		if err == nil {
			return cached, nil
		}
		if !errors.Is(err, cache.ErrCacheMiss) {
			lc.logger.Warn(ctx).Err(err).Str("key", key).Msg("cache read failed")
		}
	}

	value, err := load(ctx)
	if err != nil {
		return value, err
	}

	if lc.cache != nil {
		if err := lc.cache.Set(ctx, key, value, lc.ttl); err != nil {
			lc.logger.Warn(ctx).Err(err).Str("key", key).Msg("cache write failed")
		}
	}
	return value, nil
}

func (lc listingCache) invalidate(ctx context.Context, prefixes ...string) {
	if lc.cache == nil {
		return
	}
	for _, prefix := range prefixes {
		if err := lc.cache.InvalidatePrefix(ctx, prefix); err != nil {
			lc.logger.Warn(ctx).Err(err).Str("prefix", prefix).Msg("cache invalidation failed")
		}
	}
}
