package implementations

import (
	"context"
	"fmt"
	"time"

	"jewelry-catalog/internal/domain/catalog"
	"jewelry-catalog/internal/domain/ingest"
	"jewelry-catalog/internal/observability"
)

// CarouselService manages home page slides and their stored images
type CarouselService struct {
	repo   catalog.CarouselRepository
	store  ingest.ObjectStore
	bucket string
	cache  listingCache
	logger *observability.Logger
}

// NewCarouselService creates a new carousel service. cache may be nil.
func NewCarouselService(
	repo catalog.CarouselRepository,
	store ingest.ObjectStore,
	bucket string,
	c catalog.Cache,
	ttl time.Duration,
	logger *observability.Logger,
) *CarouselService {
	if logger == nil {
		logger = observability.NopLogger()
	}
	return &CarouselService{
		repo:   repo,
		store:  store,
		bucket: bucket,
		cache:  newListingCache(c, ttl, logger),
		logger: logger,
	}
}

// List returns every slide
func (s *CarouselService) List(ctx context.Context) ([]*catalog.CarouselItem, error) {
	return readThrough(ctx, s.cache, carouselCachePrefix+"list", s.repo.List)
}

// Get returns one slide
func (s *CarouselService) Get(ctx context.Context, id int) (*catalog.CarouselItem, error) {
	return s.repo.GetByID(ctx, id)
}

// Create validates and stores a slide
func (s *CarouselService) Create(ctx context.Context, item *catalog.CarouselItem) error {
	if item == nil {
		return fmt.Errorf("carousel item cannot be nil")
	}
	if err := item.Validate(); err != nil {
		return err
	}
	if err := s.repo.Create(ctx, item); err != nil {
		return err
	}

	s.cache.invalidate(ctx, carouselCachePrefix)
	s.logger.Info(ctx).Int("carousel_id", item.ID).Msg("carousel item created")
	return nil
}

// Update validates and replaces a slide
func (s *CarouselService) Update(ctx context.Context, item *catalog.CarouselItem) error {
	if item == nil {
		return fmt.Errorf("carousel item cannot be nil")
	}
	if err := item.Validate(); err != nil {
		return err
	}
	if err := s.repo.Update(ctx, item); err != nil {
		return err
	}

	s.cache.invalidate(ctx, carouselCachePrefix)
	return nil
}

// Delete removes the slide row, then its image. A failed image removal after
// the row is gone returns an error wrapping catalog.ErrImageCleanup.
func (s *CarouselService) Delete(ctx context.Context, id int) error {
	item, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.cache.invalidate(ctx, carouselCachePrefix)

	key, err := s.store.ObjectKey(s.bucket, item.ImageURL)
	if err == nil {
		err = s.store.Remove(ctx, s.bucket, key)
	}
	if err != nil {
		s.logger.Warn(ctx).Err(err).
			Int("carousel_id", id).
			Str("image_url", item.ImageURL).
			Msg("carousel item deleted but its image was not removed")
		return fmt.Errorf("%w: %w", catalog.ErrImageCleanup, err)
	}

	s.logger.Info(ctx).Int("carousel_id", id).Str("key", key).Msg("carousel item deleted")
	return nil
}
