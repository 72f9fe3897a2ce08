package database

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"

	"jewelry-catalog/internal/domain/catalog"
)

const productColumns = `
	p.id, p.title, p.description, p.main_image_url, p.image2_url, p.image3_url,
	p.price, p.slug, p.sort_order, p.active, p.is_new, p.meta_description,
	p.keywords, p.category_id, p.created_at, p.updated_at,
	c.id, c.name, c.slug, c.created_at`

const productFrom = `
	FROM products p
	JOIN categories c ON c.id = p.category_id`

// productRepository implements catalog.ProductRepository
type productRepository struct {
	db *sql.DB
}

// NewProductRepository creates a new ProductRepository
func NewProductRepository(db *sql.DB) catalog.ProductRepository {
	return &productRepository{db: db}
}

// Create inserts a product and links its materials
func (r *productRepository) Create(ctx context.Context, p *catalog.Product) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }() //nolint:errcheck // No-op after commit

	query := `
		INSERT INTO products (
			title, description, main_image_url, image2_url, image3_url, price,
			slug, sort_order, active, is_new, meta_description, keywords, category_id
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING id, created_at, updated_at
	`

	err = tx.QueryRowContext(
		ctx, query,
		p.Title,
		p.Description,
		p.MainImageURL,
		nullString(p.Image2URL),
		nullString(p.Image3URL),
		p.Price,
		p.Slug,
		p.SortOrder,
		p.Active,
		p.IsNew,
		nullString(p.MetaDescription),
		nullString(p.Keywords),
		p.CategoryID,
	).Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return translateError(err, "product", p.Slug)
	}

	if err := linkMaterials(ctx, tx, p.ID, p.MaterialIDs); err != nil {
		p.ID = 0
		return err
	}

	return tx.Commit()
}

// Update rewrites a product and replaces its material links
func (r *productRepository) Update(ctx context.Context, p *catalog.Product) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }() //nolint:errcheck // No-op after commit

	query := `
		UPDATE products SET
			title = $2,
			description = $3,
			main_image_url = $4,
			image2_url = $5,
			image3_url = $6,
			price = $7,
			slug = $8,
			sort_order = $9,
			active = $10,
			is_new = $11,
			meta_description = $12,
			keywords = $13,
			category_id = $14,
			updated_at = NOW()
		WHERE id = $1
		RETURNING created_at, updated_at
	`

	err = tx.QueryRowContext(
		ctx, query,
		p.ID,
		p.Title,
		p.Description,
		p.MainImageURL,
		nullString(p.Image2URL),
		nullString(p.Image3URL),
		p.Price,
		p.Slug,
		p.SortOrder,
		p.Active,
		p.IsNew,
		nullString(p.MetaDescription),
		nullString(p.Keywords),
		p.CategoryID,
	).Scan(&p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return translateError(err, "product", p.ID)
	}

	if _, err := tx.ExecContext(ctx, "DELETE FROM product_materials WHERE product_id = $1", p.ID); err != nil {
		return fmt.Errorf("failed to clear materials: %w", err)
	}
	if err := linkMaterials(ctx, tx, p.ID, p.MaterialIDs); err != nil {
		return err
	}

	return tx.Commit()
}

func linkMaterials(ctx context.Context, tx *sql.Tx, productID int, materialIDs []int) error {
	if len(materialIDs) == 0 {
		return nil
	}
	_, err := tx.ExecContext(ctx,
		`INSERT INTO product_materials (product_id, material_id)
		 SELECT $1, unnest($2::int[])`,
		productID, pq.Array(materialIDs),
	)
	if err != nil {
		return translateError(err, "material", materialIDs)
	}
	return nil
}

// Delete removes a product; material links cascade
func (r *productRepository) Delete(ctx context.Context, id int) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM products WHERE id = $1", id)
	if err != nil {
		return translateError(err, "product", id)
	}
	return expectAffected(res, "product", id)
}

// GetByID retrieves a product with its category and materials
func (r *productRepository) GetByID(ctx context.Context, id int) (*catalog.Product, error) {
	return r.getOne(ctx, "SELECT"+productColumns+productFrom+" WHERE p.id = $1", id)
}

// GetBySlug retrieves a product by its public slug
func (r *productRepository) GetBySlug(ctx context.Context, slug string) (*catalog.Product, error) {
	return r.getOne(ctx, "SELECT"+productColumns+productFrom+" WHERE p.slug = $1", slug)
}

func (r *productRepository) getOne(ctx context.Context, query string, key any) (*catalog.Product, error) {
	p, err := scanProduct(r.db.QueryRowContext(ctx, query, key))
	if err != nil {
		return nil, translateError(err, "product", key)
	}

	if err := r.loadMaterials(ctx, []*catalog.Product{p}); err != nil {
		return nil, err
	}
	return p, nil
}

// List returns products matching filter
func (r *productRepository) List(ctx context.Context, filter catalog.ProductFilter) ([]*catalog.Product, error) {
	var qb queryBuilder
	if filter.ActiveOnly {
		qb.addStatic("p.active")
	}
	if filter.NewOnly {
		qb.addStatic("p.is_new")
	}
	if filter.CategorySlug != "" {
		qb.add("c.slug = %s", filter.CategorySlug)
	}
	if filter.MaterialSlug != "" {
		qb.add(`EXISTS (
			SELECT 1 FROM product_materials pm
			JOIN materials m ON m.id = pm.material_id
			WHERE pm.product_id = p.id AND m.slug = %s)`, filter.MaterialSlug)
	}
	if filter.ExcludeID > 0 {
		qb.add("p.id <> %s", filter.ExcludeID)
	}

	query := "SELECT" + productColumns + productFrom + qb.where()
	switch filter.Order {
	case catalog.OrderByNewest:
		query += " ORDER BY p.created_at DESC, p.id DESC"
	default:
		query += " ORDER BY p.sort_order ASC, p.id ASC"
	}

	args := qb.args
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}

	products, err := scanProducts(rows)
	if err != nil {
		return nil, err
	}

	if err := r.loadMaterials(ctx, products); err != nil {
		return nil, err
	}
	return products, nil
}

// loadMaterials fills Materials and MaterialIDs with one query for all products
func (r *productRepository) loadMaterials(ctx context.Context, products []*catalog.Product) error {
	if len(products) == 0 {
		return nil
	}

	ids := make([]int, len(products))
	byID := make(map[int]*catalog.Product, len(products))
	for i, p := range products {
		ids[i] = p.ID
		byID[p.ID] = p
		p.MaterialIDs = []int{}
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT pm.product_id, m.id, m.name, m.slug, m.created_at
		FROM product_materials pm
		JOIN materials m ON m.id = pm.material_id
		WHERE pm.product_id = ANY($1)
		ORDER BY pm.product_id, m.name
	`, pq.Array(ids))
	if err != nil {
		return fmt.Errorf("failed to load materials: %w", err)
	}
	defer func() { _ = rows.Close() }() //nolint:errcheck // Resource cleanup

	for rows.Next() {
		var productID int
		var m catalog.Material
		if err := rows.Scan(&productID, &m.ID, &m.Name, &m.Slug, &m.CreatedAt); err != nil {
			return err
		}
		if p, ok := byID[productID]; ok {
			p.Materials = append(p.Materials, m)
			p.MaterialIDs = append(p.MaterialIDs, m.ID)
		}
	}

	return rows.Err()
}

func scanProduct(row rowScanner) (*catalog.Product, error) {
	p := &catalog.Product{Category: &catalog.Category{}}
	var image2, image3, meta, keywords sql.NullString

	err := row.Scan(
		&p.ID,
		&p.Title,
		&p.Description,
		&p.MainImageURL,
		&image2,
		&image3,
		&p.Price,
		&p.Slug,
		&p.SortOrder,
		&p.Active,
		&p.IsNew,
		&meta,
		&keywords,
		&p.CategoryID,
		&p.CreatedAt,
		&p.UpdatedAt,
		&p.Category.ID,
		&p.Category.Name,
		&p.Category.Slug,
		&p.Category.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	p.Image2URL = image2.String
	p.Image3URL = image3.String
	p.MetaDescription = meta.String
	p.Keywords = keywords.String
	return p, nil
}

func scanProducts(rows *sql.Rows) ([]*catalog.Product, error) {
	defer func() { _ = rows.Close() }() //nolint:errcheck // Resource cleanup

	products := []*catalog.Product{}
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		products = append(products, p)
	}

	return products, rows.Err()
}
