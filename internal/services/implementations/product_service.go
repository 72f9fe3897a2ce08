package implementations

import (
	"context"
	"fmt"
	"strings"
	"time"

	"jewelry-catalog/internal/domain/catalog"
	"jewelry-catalog/internal/observability"
)

// relatedLimit is the number of suggestions shown under a product.
const relatedLimit = 4

// ProductService manages the product catalog
type ProductService struct {
	repo   catalog.ProductRepository
	cache  listingCache
	logger *observability.Logger
	now    func() time.Time
}

// NewProductService creates a new product service. cache may be nil.
func NewProductService(repo catalog.ProductRepository, c catalog.Cache, ttl time.Duration, logger *observability.Logger) *ProductService {
	if logger == nil {
		logger = observability.NopLogger()
	}
	return &ProductService{
		repo:   repo,
		cache:  newListingCache(c, ttl, logger),
		logger: logger,
		now:    time.Now,
	}
}

// Create validates p, assigns a slug when none is given and stores it
func (s *ProductService) Create(ctx context.Context, p *catalog.Product) error {
	if p == nil {
		return fmt.Errorf("product cannot be nil")
	}

	p.Normalize()
	if p.Slug == "" {
		p.Slug = catalog.GenerateSlug(p.Title, s.now())
	} else {
		p.Slug = catalog.Slugify(p.Slug)
	}

	if err := p.Validate(); err != nil {
		return err
	}
	if err := catalog.ValidateProductSlug(p.Slug); err != nil {
		return err
	}

	if err := s.repo.Create(ctx, p); err != nil {
		return err
	}

	s.cache.invalidate(ctx, productsCachePrefix)
	s.logger.Info(ctx).Int("product_id", p.ID).Str("slug", p.Slug).Msg("product created")
	return nil
}

// Update replaces p. An empty slug keeps the stored one.
func (s *ProductService) Update(ctx context.Context, p *catalog.Product) error {
	if p == nil {
		return fmt.Errorf("product cannot be nil")
	}

	p.Normalize()
	if err := p.Validate(); err != nil {
		return err
	}

	if p.Slug == "" {
		existing, err := s.repo.GetByID(ctx, p.ID)
		if err != nil {
			return err
		}
		p.Slug = existing.Slug
	} else {
		p.Slug = catalog.Slugify(p.Slug)
		if err := catalog.ValidateProductSlug(p.Slug); err != nil {
			return err
		}
	}

	if err := s.repo.Update(ctx, p); err != nil {
		return err
	}

	s.cache.invalidate(ctx, productsCachePrefix)
	s.logger.Info(ctx).Int("product_id", p.ID).Msg("product updated")
	return nil
}

// Delete removes a product and its material links
func (s *ProductService) Delete(ctx context.Context, id int) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.cache.invalidate(ctx, productsCachePrefix)
	s.logger.Info(ctx).Int("product_id", id).Msg("product deleted")
	return nil
}

// Get returns a product by id
func (s *ProductService) Get(ctx context.Context, id int) (*catalog.Product, error) {
	return s.repo.GetByID(ctx, id)
}

// ListAll returns every product for the back office
func (s *ProductService) ListAll(ctx context.Context) ([]*catalog.Product, error) {
	return s.repo.List(ctx, catalog.ProductFilter{Order: catalog.OrderBySortOrder})
}

// ListPublic returns active products, optionally narrowed by category and
// material slug. Empty or "all" selects everything.
func (s *ProductService) ListPublic(ctx context.Context, categorySlug, materialSlug string) ([]*catalog.Product, error) {
	filter := catalog.ProductFilter{
		CategorySlug: normalizeSlugFilter(categorySlug),
		MaterialSlug: normalizeSlugFilter(materialSlug),
		ActiveOnly:   true,
		Order:        catalog.OrderBySortOrder,
	}
	return s.list(ctx, "list", filter)
}

// Showcase returns active new arrivals, newest first
func (s *ProductService) Showcase(ctx context.Context) ([]*catalog.Product, error) {
	return s.list(ctx, "showcase", catalog.ProductFilter{
		ActiveOnly: true,
		NewOnly:    true,
		Order:      catalog.OrderByNewest,
	})
}

// Related returns up to four new products other than the one at slug
func (s *ProductService) Related(ctx context.Context, slug string) ([]*catalog.Product, error) {
	product, err := s.Detail(ctx, slug)
	if err != nil {
		return nil, err
	}
	return s.list(ctx, "related", catalog.ProductFilter{
		NewOnly:   true,
		ExcludeID: product.ID,
		Limit:     relatedLimit,
		Order:     catalog.OrderBySortOrder,
	})
}

// Detail returns a product by slug
func (s *ProductService) Detail(ctx context.Context, slug string) (*catalog.Product, error) {
	return readThrough(ctx, s.cache, productsCachePrefix+"slug:"+slug, func(ctx context.Context) (*catalog.Product, error) {
		return s.repo.GetBySlug(ctx, slug)
	})
}

func (s *ProductService) list(ctx context.Context, name string, filter catalog.ProductFilter) ([]*catalog.Product, error) {
	key := productsCachePrefix + name + ":" + filter.CacheKey()
	return readThrough(ctx, s.cache, key, func(ctx context.Context) ([]*catalog.Product, error) {
		products, err := s.repo.List(ctx, filter)
		if err != nil {
			return nil, err
		}
		if products == nil {
			products = []*catalog.Product{}
		}
		return products, nil
	})
}

func normalizeSlugFilter(slug string) string {
	slug = strings.TrimSpace(strings.ToLower(slug))
	if slug == catalog.FilterAll || slug == "todos" {
		return ""
	}
	return slug
}
