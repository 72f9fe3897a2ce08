package database

import (
	"context"
	"database/sql"

	"jewelry-catalog/internal/domain/catalog"
)

type customOrderRepository struct {
	db *sql.DB
}

// NewCustomOrderRepository creates a new CustomOrderRepository
func NewCustomOrderRepository(db *sql.DB) catalog.CustomOrderRepository {
	return &customOrderRepository{db: db}
}

func (r *customOrderRepository) Create(ctx context.Context, req *catalog.CustomOrderRequest) error {
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO custom_orders (
			name, email, phone, material, category, description, reference_image_url
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at
	`,
		req.Name,
		nullString(req.Email),
		nullString(req.Phone),
		nullString(req.Material),
		nullString(req.Category),
		req.Description,
		nullString(req.ReferenceImageURL),
	).Scan(&req.ID, &req.CreatedAt)
	return translateError(err, "custom order", req.Name)
}

// List returns the most recent requests; limit <= 0 returns all
func (r *customOrderRepository) List(ctx context.Context, limit int) ([]*catalog.CustomOrderRequest, error) {
	query := `
		SELECT id, name, email, phone, material, category, description,
			   reference_image_url, created_at
		FROM custom_orders
		ORDER BY created_at DESC, id DESC
	`
	args := []any{}
	if limit > 0 {
		query += " LIMIT $1"
		args = append(args, limit)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }() //nolint:errcheck // Resource cleanup

	orders := []*catalog.CustomOrderRequest{}
	for rows.Next() {
		o := &catalog.CustomOrderRequest{}
		var email, phone, material, category, ref sql.NullString
		if err := rows.Scan(
			&o.ID, &o.Name, &email, &phone, &material, &category,
			&o.Description, &ref, &o.CreatedAt,
		); err != nil {
			return nil, err
		}
		o.Email = email.String
		o.Phone = phone.String
		o.Material = material.String
		o.Category = category.String
		o.ReferenceImageURL = ref.String
		orders = append(orders, o)
	}
	return orders, rows.Err()
}
