package service

import (
	"context"
	"sync"
	"testing"

	"storefront-service/internal/models"
	"storefront-service/internal/store"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveCategory_MatchesCaseAndAccents(t *testing.T) {
	repo := store.NewMemory()
	svc := newCatalog(repo)
	ctx := context.Background()

	first, err := svc.ResolveCategory(ctx, "  Papelería ")
	require.NoError(t, err)
	assert.Equal(t, "Papelería", first.Name)

	for _, name := range []string{"Papelería", "papeleria", "PAPELERÍA", "papelería  "} {
		got, err := svc.ResolveCategory(ctx, name)
		require.NoError(t, err)
		assert.Equal(t, first.ID, got.ID, name)
	}

	categories, err := svc.ListCategories(ctx)
	require.NoError(t, err)
	assert.Len(t, categories, 1)
}

func TestResolveCategory_EmptyNameUsesFallback(t *testing.T) {
	svc := newCatalog(store.NewMemory())

	c, err := svc.ResolveCategory(context.Background(), "   ")
	require.NoError(t, err)
	assert.Equal(t, "Uncategorized", c.Name)
}

func TestResolveCategory_ConcurrentCreatorsConverge(t *testing.T) {
	repo := store.NewMemory()
	svc := newCatalog(repo)
	ctx := context.Background()

	ids := make([]int64, 20)
	var wg sync.WaitGroup
	for i := range ids {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			name := "Útiles"
			if i%2 == 0 {
				name = "utiles"
			}
			c, err := svc.ResolveCategory(ctx, name)
			if assert.NoError(t, err) {
				ids[i] = c.ID
			}
		}(i)
	}
	wg.Wait()

	for _, id := range ids {
		assert.Equal(t, ids[0], id)
	}
	categories, err := svc.ListCategories(ctx)
	require.NoError(t, err)
	assert.Len(t, categories, 1)
}

func TestCreateCategory_RejectsFoldedDuplicate(t *testing.T) {
	svc := newCatalog(store.NewMemory())
	ctx := context.Background()

	_, err := svc.CreateCategory(ctx, "Arte")
	require.NoError(t, err)

	_, err = svc.CreateCategory(ctx, " ARTE ")
	assert.ErrorIs(t, err, models.ErrConflict)

	_, err = svc.CreateCategory(ctx, "  ")
	assert.ErrorIs(t, err, models.ErrValidation)
}

func TestRenameCategory(t *testing.T) {
	repo := store.NewMemory()
	svc := newCatalog(repo)
	ctx := context.Background()

	_, err := svc.CreateProduct(ctx, ProductInput{Name: "Pen", Category: "Writing", Price: decimal.NewFromInt(2)})
	require.NoError(t, err)
	_, err = svc.CreateProduct(ctx, ProductInput{Name: "Pencil", Category: "writing", Price: decimal.NewFromInt(1)})
	require.NoError(t, err)

	t.Run("unknown source", func(t *testing.T) {
		_, err := svc.RenameCategory(ctx, "Nope", "Other")
		assert.ErrorIs(t, err, models.ErrNotFound)
	})

	t.Run("folded equal names are a no-op", func(t *testing.T) {
		moved, err := svc.RenameCategory(ctx, "writing", "WRITING")
		require.NoError(t, err)
		assert.Zero(t, moved)
		c, err := repo.GetCategoryByName(ctx, "Writing")
		require.NoError(t, err)
		assert.NotNil(t, c)
	})

	t.Run("moves products and drops the old category", func(t *testing.T) {
		moved, err := svc.RenameCategory(ctx, "WRITING", "Stationery")
		require.NoError(t, err)
		assert.Equal(t, int64(2), moved)

		old, err := repo.GetCategoryByKey(ctx, "writing")
		require.NoError(t, err)
		assert.Nil(t, old)

		page, err := svc.ListProducts(ctx, ProductQuery{Category: "stationery"})
		require.NoError(t, err)
		assert.Equal(t, 2, page.Pagination.Total)
		for _, p := range page.Products {
			assert.Equal(t, "Stationery", p.Category)
		}
	})

	t.Run("merges into an existing category", func(t *testing.T) {
		_, err := svc.CreateProduct(ctx, ProductInput{Name: "Glue", Category: "Crafts", Price: decimal.NewFromInt(3)})
		require.NoError(t, err)

		moved, err := svc.RenameCategory(ctx, "Crafts", "stationery")
		require.NoError(t, err)
		assert.Equal(t, int64(1), moved)

		categories, err := svc.ListCategories(ctx)
		require.NoError(t, err)
		assert.Len(t, categories, 1)
	})

	t.Run("new name is required", func(t *testing.T) {
		_, err := svc.RenameCategory(ctx, "Stationery", " ")
		assert.ErrorIs(t, err, models.ErrValidation)
	})
}

func TestDeleteCategory(t *testing.T) {
	repo := store.NewMemory()
	svc := newCatalog(repo)
	ctx := context.Background()

	_, err := svc.CreateProduct(ctx, ProductInput{Name: "Atlas", Category: "Maps", Price: decimal.NewFromInt(20)})
	require.NoError(t, err)

	_, err = svc.DeleteCategory(ctx, "Missing")
	assert.ErrorIs(t, err, models.ErrNotFound)

	moved, err := svc.DeleteCategory(ctx, "maps")
	require.NoError(t, err)
	assert.Equal(t, int64(1), moved)

	p, err := repo.GetProductByName(ctx, "Atlas")
	require.NoError(t, err)
	require.NotNil(t, p.CategoryName)
	assert.Equal(t, "Uncategorized", *p.CategoryName)

	moved, err = svc.DeleteCategory(ctx, "uncategorized")
	require.NoError(t, err)
	assert.Zero(t, moved)
	fallback, err := repo.GetCategoryByName(ctx, "Uncategorized")
	require.NoError(t, err)
	assert.NotNil(t, fallback, "fallback category is never removed")
}

func TestListProducts(t *testing.T) {
	svc := newCatalog(store.NewMemory())
	ctx := context.Background()

	for i, name := range []string{"Blue pen", "Red pen", "Notebook", "Marker"} {
		_, err := svc.CreateProduct(ctx, ProductInput{
			Name:     name,
			Category: "Útiles",
			Price:    decimal.NewFromInt(int64(i + 1)),
			Stock:    i,
		})
		require.NoError(t, err)
	}

	page, err := svc.ListProducts(ctx, ProductQuery{Category: "UTILES", InStock: true, Sort: store.SortPriceDesc, Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, Pagination{Total: 3, Page: 1, PerPage: 2, TotalPages: 2}, page.Pagination)
	require.Len(t, page.Products, 2)
	assert.Equal(t, "Marker", page.Products[0].Name)

	page, err = svc.ListProducts(ctx, ProductQuery{Category: "Toys"})
	require.NoError(t, err)
	assert.Empty(t, page.Products)
	assert.Zero(t, page.Pagination.Total)

	page, err = svc.ListProducts(ctx, ProductQuery{Query: "pen", Page: 0, Limit: 0})
	require.NoError(t, err)
	assert.Equal(t, 1, page.Pagination.Page)
	assert.Equal(t, 12, page.Pagination.PerPage)
	assert.Len(t, page.Products, 2)
}

func TestProductWrites(t *testing.T) {
	repo := store.NewMemory()
	svc := newCatalog(repo)
	ctx := context.Background()

	created, err := svc.CreateProduct(ctx, ProductInput{Name: " Eraser ", Category: "Útiles", Price: decimal.RequireFromString("0.90"), Stock: 5})
	require.NoError(t, err)
	assert.Equal(t, "Eraser", created.Name)
	assert.Equal(t, testPlaceholder, created.Image)
	assert.Equal(t, "Product Eraser", created.Description)

	_, err = svc.CreateProduct(ctx, ProductInput{Name: "Bad", Price: decimal.NewFromInt(-1)})
	assert.ErrorIs(t, err, models.ErrValidation)

	p, err := repo.GetProductByName(ctx, "Eraser")
	require.NoError(t, err)

	updated, err := svc.UpdateProduct(ctx, p.ID, ProductInput{Name: "Eraser XL", Category: "utiles", Price: decimal.NewFromInt(1), Stock: 2})
	require.NoError(t, err)
	assert.Equal(t, "Eraser XL", updated.Name)
	assert.Equal(t, "Útiles", updated.Category)
	assert.Equal(t, "Product Eraser", updated.Description, "empty description keeps the stored one")

	_, err = svc.UpdateProduct(ctx, 999, ProductInput{Name: "Ghost"})
	assert.ErrorIs(t, err, models.ErrNotFound)

	require.NoError(t, svc.DeleteProduct(ctx, p.ID))
	_, err = svc.GetProduct(ctx, p.ID)
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestView_FillsDefaults(t *testing.T) {
	svc := newCatalog(store.NewMemory())

	view := svc.View(&models.Product{ID: 7, Name: "Loose", Price: decimal.NewFromInt(3)})
	assert.Equal(t, "7", view.ID)
	assert.Equal(t, "Uncategorized", view.Category)
	assert.Equal(t, testPlaceholder, view.Image)
	assert.Equal(t, defaultDescription, view.Description)
}
