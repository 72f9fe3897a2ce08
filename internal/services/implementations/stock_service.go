package implementations

import (
	"context"
	"fmt"
	"time"

	"jewelry-catalog/internal/domain/catalog"
	"jewelry-catalog/internal/observability"
)

// StockService manages in-store inventory and the storefront view
type StockService struct {
	repo   catalog.StockRepository
	cache  listingCache
	logger *observability.Logger
}

// NewStockService creates a new stock service. cache may be nil.
func NewStockService(repo catalog.StockRepository, c catalog.Cache, ttl time.Duration, logger *observability.Logger) *StockService {
	if logger == nil {
		logger = observability.NopLogger()
	}
	return &StockService{
		repo:   repo,
		cache:  newListingCache(c, ttl, logger),
		logger: logger,
	}
}

// List returns every item, newest first
func (s *StockService) List(ctx context.Context) ([]*catalog.StockItem, error) {
	return s.repo.List(ctx)
}

// Get returns one item
func (s *StockService) Get(ctx context.Context, id int) (*catalog.StockItem, error) {
	return s.repo.GetByID(ctx, id)
}

// Storefront returns the items matching filter along with the category and
// price facets used to build the filter controls.
func (s *StockService) Storefront(ctx context.Context, filter catalog.StockFilter) (catalog.Storefront, error) {
	items, err := readThrough(ctx, s.cache, stockCachePrefix+"items", func(ctx context.Context) ([]catalog.StockItem, error) {
		rows, err := s.repo.List(ctx)
		if err != nil {
			return nil, err
		}
		items := make([]catalog.StockItem, 0, len(rows))
		for _, row := range rows {
			items = append(items, *row)
		}
		return items, nil
	})
	if err != nil {
		return catalog.Storefront{}, err
	}
	return catalog.BuildStorefront(items, filter), nil
}

// Create validates and stores an item
func (s *StockService) Create(ctx context.Context, item *catalog.StockItem) error {
	if item == nil {
		return fmt.Errorf("stock item cannot be nil")
	}
	if err := item.Validate(); err != nil {
		return err
	}
	if err := s.repo.Create(ctx, item); err != nil {
		return err
	}

	s.cache.invalidate(ctx, stockCachePrefix)
	s.logger.Info(ctx).Int("stock_id", item.ID).Str("category", item.Category).Msg("stock item created")
	return nil
}

// Update validates and replaces an item
func (s *StockService) Update(ctx context.Context, item *catalog.StockItem) error {
	if item == nil {
		return fmt.Errorf("stock item cannot be nil")
	}
	if err := item.Validate(); err != nil {
		return err
	}
	if err := s.repo.Update(ctx, item); err != nil {
		return err
	}

	s.cache.invalidate(ctx, stockCachePrefix)
	return nil
}

// Delete removes an item
func (s *StockService) Delete(ctx context.Context, id int) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.cache.invalidate(ctx, stockCachePrefix)
	return nil
}
