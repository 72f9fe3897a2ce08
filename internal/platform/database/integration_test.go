package database

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"jewelry-catalog/internal/domain/catalog"
)

func setupTestDatabase(t *testing.T) *sql.DB {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping postgres integration test in short mode")
	}

	ctx := context.Background()
	container, err := postgres.Run(ctx,
		"postgres:15-alpine",
		postgres.WithDatabase("catalog"),
		postgres.WithUsername("catalog"),
		postgres.WithPassword("catalog"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	require.NoError(t, err, "Failed to start postgres container")
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	db, err := NewConnection(ctx, dsn)
	require.NoError(t, err, "Failed to connect to test database")
	t.Cleanup(func() { _ = db.Close() })

	ran, err := RunMigrations(ctx, db)
	require.NoError(t, err, "Failed to run migrations")
	require.Equal(t, []string{"001", "002"}, ran)

	return db
}

func TestDatabaseIntegration_CatalogWorkflow(t *testing.T) {
	db := setupTestDatabase(t)
	ctx := context.Background()
	repos := NewRepositories(db)

	// Migrations are idempotent
	ran, err := RunMigrations(ctx, db)
	require.NoError(t, err)
	assert.Empty(t, ran)

	categories, err := repos.Taxonomy.ListCategories(ctx)
	require.NoError(t, err)
	require.Len(t, categories, 4)

	materials, err := repos.Taxonomy.ListMaterials(ctx)
	require.NoError(t, err)
	require.Len(t, materials, 3)

	var rings *catalog.Category
	for _, c := range categories {
		if c.Slug == "anillos" {
			rings = c
		}
	}
	require.NotNil(t, rings)

	silver, copper := materials[2], materials[1] // alpaca, cobre, plata by name
	require.Equal(t, "plata", silver.Slug)

	p := &catalog.Product{
		Title:        "Anillo Luna",
		Description:  "Plata 950",
		MainImageURL: "http://localhost:9000/producto-images/a.jpg",
		Price:        85.5,
		Slug:         catalog.GenerateSlug("Anillo Luna", time.Now()),
		Active:       true,
		IsNew:        true,
		CategoryID:   rings.ID,
		MaterialIDs:  []int{silver.ID},
	}
	require.NoError(t, repos.Products.Create(ctx, p))

	listed, err := repos.Products.List(ctx, catalog.ProductFilter{CategorySlug: "anillos", MaterialSlug: "plata", ActiveOnly: true})
	require.NoError(t, err)
	require.Len(t, listed, 1)
	assert.Equal(t, 85.5, listed[0].Price)
	assert.Equal(t, []int{silver.ID}, listed[0].MaterialIDs)

	// Material links are replaced, not appended
	p.MaterialIDs = []int{copper.ID}
	require.NoError(t, repos.Products.Update(ctx, p))

	got, err := repos.Products.GetBySlug(ctx, p.Slug)
	require.NoError(t, err)
	assert.Equal(t, []int{copper.ID}, got.MaterialIDs)

	listed, err = repos.Products.List(ctx, catalog.ProductFilter{MaterialSlug: "plata"})
	require.NoError(t, err)
	assert.Empty(t, listed)

	// Referenced taxonomy cannot be deleted
	assert.ErrorIs(t, repos.Taxonomy.DeleteCategory(ctx, rings.ID), catalog.ErrConflict)
	assert.ErrorIs(t, repos.Taxonomy.DeleteMaterial(ctx, copper.ID), catalog.ErrConflict)

	require.NoError(t, repos.Products.Delete(ctx, p.ID))
	require.NoError(t, repos.Taxonomy.DeleteMaterial(ctx, copper.ID))

	_, err = repos.Products.GetByID(ctx, p.ID)
	assert.ErrorIs(t, err, catalog.ErrNotFound)
}

func TestDatabaseIntegration_StockOrdering(t *testing.T) {
	db := setupTestDatabase(t)
	ctx := context.Background()
	repo := NewStockRepository(db)

	for _, name := range []string{"primero", "segundo", "tercero"} {
		require.NoError(t, repo.Create(ctx, &catalog.StockItem{Name: name, Category: catalog.StockRings, Price: 20}))
	}

	items, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, items, 3)
	assert.Equal(t, "tercero", items[0].Name)

	err = repo.Create(ctx, &catalog.StockItem{Name: "broche", Category: "Broches", Price: 20})
	assert.ErrorIs(t, err, catalog.ErrValidation)
}
