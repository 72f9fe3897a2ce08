package implementations

import (
	"context"
	"strings"
	"time"

	"jewelry-catalog/internal/domain/catalog"
	"jewelry-catalog/internal/observability"
)

// TaxonomyService manages categories and materials
type TaxonomyService struct {
	repo   catalog.TaxonomyRepository
	cache  listingCache
	logger *observability.Logger
}

// NewTaxonomyService creates a new taxonomy service. cache may be nil.
func NewTaxonomyService(repo catalog.TaxonomyRepository, c catalog.Cache, ttl time.Duration, logger *observability.Logger) *TaxonomyService {
	if logger == nil {
		logger = observability.NopLogger()
	}
	return &TaxonomyService{
		repo:   repo,
		cache:  newListingCache(c, ttl, logger),
		logger: logger,
	}
}

// ListCategories returns every category
func (s *TaxonomyService) ListCategories(ctx context.Context) ([]*catalog.Category, error) {
	return readThrough(ctx, s.cache, taxonomyCachePrefix+"categories", s.repo.ListCategories)
}

// CreateCategory stores a category; the slug is derived from name when empty
func (s *TaxonomyService) CreateCategory(ctx context.Context, name, slug string) (*catalog.Category, error) {
	name, slug, err := taxonomyFields(name, slug)
	if err != nil {
		return nil, err
	}

	category := &catalog.Category{Name: name, Slug: slug}
	if err := s.repo.CreateCategory(ctx, category); err != nil {
		return nil, err
	}

	s.cache.invalidate(ctx, taxonomyCachePrefix)
	s.logger.Info(ctx).Int("category_id", category.ID).Str("slug", slug).Msg("category created")
	return category, nil
}

// DeleteCategory removes an unreferenced category
func (s *TaxonomyService) DeleteCategory(ctx context.Context, id int) error {
	if err := s.repo.DeleteCategory(ctx, id); err != nil {
		return err
	}
	s.cache.invalidate(ctx, taxonomyCachePrefix)
	return nil
}

// ListMaterials returns every material
func (s *TaxonomyService) ListMaterials(ctx context.Context) ([]*catalog.Material, error) {
	return readThrough(ctx, s.cache, taxonomyCachePrefix+"materials", s.repo.ListMaterials)
}

// CreateMaterial stores a material; the slug is derived from name when empty
func (s *TaxonomyService) CreateMaterial(ctx context.Context, name, slug string) (*catalog.Material, error) {
	name, slug, err := taxonomyFields(name, slug)
	if err != nil {
		return nil, err
	}

	material := &catalog.Material{Name: name, Slug: slug}
	if err := s.repo.CreateMaterial(ctx, material); err != nil {
		return nil, err
	}

	s.cache.invalidate(ctx, taxonomyCachePrefix)
	s.logger.Info(ctx).Int("material_id", material.ID).Str("slug", slug).Msg("material created")
	return material, nil
}

// DeleteMaterial removes an unreferenced material
func (s *TaxonomyService) DeleteMaterial(ctx context.Context, id int) error {
	if err := s.repo.DeleteMaterial(ctx, id); err != nil {
		return err
	}
	s.cache.invalidate(ctx, taxonomyCachePrefix)
	return nil
}

func taxonomyFields(name, slug string) (string, string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", "", &catalog.ValidationError{Field: "name", Message: "name is required"}
	}

	if strings.TrimSpace(slug) == "" {
		slug = name
	}
	slug = catalog.Slugify(slug)
	if slug == "" {
		return "", "", &catalog.ValidationError{Field: "slug", Message: "slug must contain letters or digits"}
	}
	return name, slug, nil
}
