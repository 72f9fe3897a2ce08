// Package catalog holds the storefront entities around the image pipeline:
// products, taxonomy, in-store stock, carousel slides and custom orders.
package catalog

import (
	"context"
	"time"
)

// ProductRepository defines product persistence
type ProductRepository interface {
	// Create stores p and its material links in one transaction
	Create(ctx context.Context, p *Product) error

	// Update replaces p's fields and material links in one transaction
	Update(ctx context.Context, p *Product) error

	Delete(ctx context.Context, id int) error
	GetByID(ctx context.Context, id int) (*Product, error)
	GetBySlug(ctx context.Context, slug string) (*Product, error)

	// List returns products matching filter with category and materials loaded
	List(ctx context.Context, filter ProductFilter) ([]*Product, error)
}

// TaxonomyRepository defines category and material persistence
type TaxonomyRepository interface {
	ListCategories(ctx context.Context) ([]*Category, error)
	CreateCategory(ctx context.Context, c *Category) error
	DeleteCategory(ctx context.Context, id int) error

	ListMaterials(ctx context.Context) ([]*Material, error)
	CreateMaterial(ctx context.Context, m *Material) error
	DeleteMaterial(ctx context.Context, id int) error
}

// StockRepository defines stock persistence
type StockRepository interface {
	// List returns every item, newest first
	List(ctx context.Context) ([]*StockItem, error)
	GetByID(ctx context.Context, id int) (*StockItem, error)
	Create(ctx context.Context, item *StockItem) error
	Update(ctx context.Context, item *StockItem) error
	Delete(ctx context.Context, id int) error
}

// CarouselRepository defines carousel persistence
type CarouselRepository interface {
	List(ctx context.Context) ([]*CarouselItem, error)
	GetByID(ctx context.Context, id int) (*CarouselItem, error)
	Create(ctx context.Context, item *CarouselItem) error
	Update(ctx context.Context, item *CarouselItem) error
	Delete(ctx context.Context, id int) error
}

// CustomOrderRepository defines custom order persistence
type CustomOrderRepository interface {
	Create(ctx context.Context, req *CustomOrderRequest) error
	List(ctx context.Context, limit int) ([]*CustomOrderRequest, error)
}

// Cache stores JSON-serialisable listings
type Cache interface {
	Get(ctx context.Context, key string, result any) error
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	InvalidatePrefix(ctx context.Context, prefix string) error
}
