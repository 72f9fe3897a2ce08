package database

import (
	"database/sql"

	"jewelry-catalog/internal/domain/catalog"
)

// Repositories aggregates all repository interfaces
type Repositories struct {
	Products     catalog.ProductRepository
	Taxonomy     catalog.TaxonomyRepository
	Stock        catalog.StockRepository
	Carousel     catalog.CarouselRepository
	CustomOrders catalog.CustomOrderRepository
}

// NewRepositories wires every Postgres repository onto db
func NewRepositories(db *sql.DB) *Repositories {
	return &Repositories{
		Products:     NewProductRepository(db),
		Taxonomy:     NewTaxonomyRepository(db),
		Stock:        NewStockRepository(db),
		Carousel:     NewCarouselRepository(db),
		CustomOrders: NewCustomOrderRepository(db),
	}
}
