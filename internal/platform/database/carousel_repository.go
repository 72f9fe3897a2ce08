package database

import (
	"context"
	"database/sql"

	"jewelry-catalog/internal/domain/catalog"
)

// carouselRepository implements catalog.CarouselRepository
type carouselRepository struct {
	db *sql.DB
}

// NewCarouselRepository creates a new CarouselRepository
func NewCarouselRepository(db *sql.DB) catalog.CarouselRepository {
	return &carouselRepository{db: db}
}

func (r *carouselRepository) List(ctx context.Context) ([]*catalog.CarouselItem, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT id, image_url, description, created_at FROM carousel_items ORDER BY created_at, id")
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }() //nolint:errcheck // Resource cleanup

	items := []*catalog.CarouselItem{}
	for rows.Next() {
		item := &catalog.CarouselItem{}
		if err := rows.Scan(&item.ID, &item.ImageURL, &item.Description, &item.CreatedAt); err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

func (r *carouselRepository) GetByID(ctx context.Context, id int) (*catalog.CarouselItem, error) {
	item := &catalog.CarouselItem{}
	err := r.db.QueryRowContext(ctx,
		"SELECT id, image_url, description, created_at FROM carousel_items WHERE id = $1", id,
	).Scan(&item.ID, &item.ImageURL, &item.Description, &item.CreatedAt)
	if err != nil {
		return nil, translateError(err, "carousel item", id)
	}
	return item, nil
}

func (r *carouselRepository) Create(ctx context.Context, item *catalog.CarouselItem) error {
	err := r.db.QueryRowContext(ctx,
		"INSERT INTO carousel_items (image_url, description) VALUES ($1, $2) RETURNING id, created_at",
		item.ImageURL, item.Description,
	).Scan(&item.ID, &item.CreatedAt)
	return translateError(err, "carousel item", item.ImageURL)
}

func (r *carouselRepository) Update(ctx context.Context, item *catalog.CarouselItem) error {
	err := r.db.QueryRowContext(ctx,
		"UPDATE carousel_items SET image_url = $2, description = $3 WHERE id = $1 RETURNING created_at",
		item.ID, item.ImageURL, item.Description,
	).Scan(&item.CreatedAt)
	return translateError(err, "carousel item", item.ID)
}

func (r *carouselRepository) Delete(ctx context.Context, id int) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM carousel_items WHERE id = $1", id)
	if err != nil {
		return translateError(err, "carousel item", id)
	}
	return expectAffected(res, "carousel item", id)
}
