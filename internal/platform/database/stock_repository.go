package database

import (
	"context"
	"database/sql"

	"jewelry-catalog/internal/domain/catalog"
)

const stockColumns = "id, name, category, price, stock, image_url, created_at, updated_at"

// stockRepository implements catalog.StockRepository
type stockRepository struct {
	db *sql.DB
}

// NewStockRepository creates a new StockRepository
func NewStockRepository(db *sql.DB) catalog.StockRepository {
	return &stockRepository{db: db}
}

// List returns all stock, newest first
func (r *stockRepository) List(ctx context.Context) ([]*catalog.StockItem, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT "+stockColumns+" FROM stock_items ORDER BY created_at DESC, id DESC")
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }() //nolint:errcheck // Resource cleanup

	items := []*catalog.StockItem{}
	for rows.Next() {
		item, err := scanStockItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

func (r *stockRepository) GetByID(ctx context.Context, id int) (*catalog.StockItem, error) {
	item, err := scanStockItem(r.db.QueryRowContext(ctx, "SELECT "+stockColumns+" FROM stock_items WHERE id = $1", id))
	if err != nil {
		return nil, translateError(err, "stock item", id)
	}
	return item, nil
}

func (r *stockRepository) Create(ctx context.Context, item *catalog.StockItem) error {
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO stock_items (name, category, price, stock, image_url)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at, updated_at
	`,
		item.Name,
		item.Category,
		item.Price,
		item.Stock,
		nullString(item.ImageURL),
	).Scan(&item.ID, &item.CreatedAt, &item.UpdatedAt)
	return translateError(err, "stock item", item.Name)
}

func (r *stockRepository) Update(ctx context.Context, item *catalog.StockItem) error {
	err := r.db.QueryRowContext(ctx, `
		UPDATE stock_items SET
			name = $2,
			category = $3,
			price = $4,
			stock = $5,
			image_url = $6,
			updated_at = NOW()
		WHERE id = $1
		RETURNING created_at, updated_at
	`,
		item.ID,
		item.Name,
		item.Category,
		item.Price,
		item.Stock,
		nullString(item.ImageURL),
	).Scan(&item.CreatedAt, &item.UpdatedAt)
	return translateError(err, "stock item", item.ID)
}

func (r *stockRepository) Delete(ctx context.Context, id int) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM stock_items WHERE id = $1", id)
	if err != nil {
		return translateError(err, "stock item", id)
	}
	return expectAffected(res, "stock item", id)
}

func scanStockItem(row rowScanner) (*catalog.StockItem, error) {
	item := &catalog.StockItem{}
	var imageURL sql.NullString
	err := row.Scan(
		&item.ID,
		&item.Name,
		&item.Category,
		&item.Price,
		&item.Stock,
		&imageURL,
		&item.CreatedAt,
		&item.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	item.ImageURL = imageURL.String
	return item, nil
}
