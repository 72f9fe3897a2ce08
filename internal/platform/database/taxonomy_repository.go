package database

import (
	"context"
	"database/sql"

	"jewelry-catalog/internal/domain/catalog"
)

// taxonomyRepository implements catalog.TaxonomyRepository
type taxonomyRepository struct {
	db *sql.DB
}

// NewTaxonomyRepository creates a new TaxonomyRepository
func NewTaxonomyRepository(db *sql.DB) catalog.TaxonomyRepository {
	return &taxonomyRepository{db: db}
}

func (r *taxonomyRepository) ListCategories(ctx context.Context) ([]*catalog.Category, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT id, name, slug, created_at FROM categories ORDER BY name")
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }() //nolint:errcheck // Resource cleanup

	categories := []*catalog.Category{}
	for rows.Next() {
		c := &catalog.Category{}
		if err := rows.Scan(&c.ID, &c.Name, &c.Slug, &c.CreatedAt); err != nil {
			return nil, err
		}
		categories = append(categories, c)
	}
	return categories, rows.Err()
}

func (r *taxonomyRepository) CreateCategory(ctx context.Context, c *catalog.Category) error {
	err := r.db.QueryRowContext(ctx,
		"INSERT INTO categories (name, slug) VALUES ($1, $2) RETURNING id, created_at",
		c.Name, c.Slug,
	).Scan(&c.ID, &c.CreatedAt)
	return translateError(err, "category", c.Slug)
}

// DeleteCategory fails with catalog.ErrConflict while products reference it
func (r *taxonomyRepository) DeleteCategory(ctx context.Context, id int) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM categories WHERE id = $1", id)
	if err != nil {
		return translateError(err, "category", id)
	}
	return expectAffected(res, "category", id)
}

func (r *taxonomyRepository) ListMaterials(ctx context.Context) ([]*catalog.Material, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT id, name, slug, created_at FROM materials ORDER BY name")
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }() //nolint:errcheck // Resource cleanup

	materials := []*catalog.Material{}
	for rows.Next() {
		m := &catalog.Material{}
		if err := rows.Scan(&m.ID, &m.Name, &m.Slug, &m.CreatedAt); err != nil {
			return nil, err
		}
		materials = append(materials, m)
	}
	return materials, rows.Err()
}

func (r *taxonomyRepository) CreateMaterial(ctx context.Context, m *catalog.Material) error {
	err := r.db.QueryRowContext(ctx,
		"INSERT INTO materials (name, slug) VALUES ($1, $2) RETURNING id, created_at",
		m.Name, m.Slug,
	).Scan(&m.ID, &m.CreatedAt)
	return translateError(err, "material", m.Slug)
}

// DeleteMaterial fails with catalog.ErrConflict while products reference it
func (r *taxonomyRepository) DeleteMaterial(ctx context.Context, id int) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM materials WHERE id = $1", id)
	if err != nil {
		return translateError(err, "material", id)
	}
	return expectAffected(res, "material", id)
}
