package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"storefront-service/internal/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedCategory(t *testing.T, repo Repository, name, key string) *models.Category {
	t.Helper()
	c := &models.Category{Name: name, NameKey: key}
	created, err := repo.CreateCategory(context.Background(), c)
	require.NoError(t, err)
	require.True(t, created)
	return c
}

func seedProduct(t *testing.T, repo Repository, name string, price int64, stock int, categoryID int64) *models.Product {
	t.Helper()
	p := &models.Product{Name: name, NameKey: name, Price: decimal.NewFromInt(price), Stock: stock, CategoryID: categoryID}
	require.NoError(t, repo.CreateProduct(context.Background(), p))
	return p
}

func TestMemory_CreateCategoryIgnoresDuplicateKey(t *testing.T) {
	repo := NewMemory()
	seedCategory(t, repo, "Papelería", "papeleria")

	dup := &models.Category{Name: "PAPELERIA", NameKey: "papeleria"}
	created, err := repo.CreateCategory(context.Background(), dup)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Zero(t, dup.ID)
}

func TestMemory_NaturalKeyLookupsReturnNil(t *testing.T) {
	repo := NewMemory()
	ctx := context.Background()

	c, err := repo.GetCategoryByName(ctx, "nope")
	assert.NoError(t, err)
	assert.Nil(t, c)

	cust, err := repo.GetCustomerByEmail(ctx, "nobody@example.com")
	assert.NoError(t, err)
	assert.Nil(t, cust)

	_, err = repo.GetProductByID(ctx, 42)
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestMemory_CustomerEmailIsCaseInsensitive(t *testing.T) {
	repo := NewMemory()
	ctx := context.Background()

	require.NoError(t, repo.CreateCustomer(ctx, &models.Customer{Name: "Ana", Email: "ana@example.com"}))
	err := repo.CreateCustomer(ctx, &models.Customer{Name: "Ana", Email: "ANA@example.com"})
	assert.ErrorIs(t, err, models.ErrConflict)

	found, err := repo.GetCustomerByEmail(ctx, " Ana@Example.com ")
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, "Ana", found.Name)
}

func TestMemory_InTxRollsBackOnError(t *testing.T) {
	repo := NewMemory()
	ctx := context.Background()
	cat := seedCategory(t, repo, "Books", "books")

	boom := errors.New("boom")
	err := repo.InTx(ctx, func(tx Repository) error {
		seedProduct(t, tx, "Novel", 10, 1, cat.ID)
		return boom
	})
	assert.ErrorIs(t, err, boom)

	products, total, err := repo.ListProducts(ctx, ProductFilter{})
	require.NoError(t, err)
	assert.Zero(t, total)
	assert.Empty(t, products)
}

func TestMemory_InTxCommits(t *testing.T) {
	repo := NewMemory()
	ctx := context.Background()
	cat := seedCategory(t, repo, "Books", "books")

	err := repo.InTx(ctx, func(tx Repository) error {
		seedProduct(t, tx, "Novel", 10, 1, cat.ID)
		return nil
	})
	require.NoError(t, err)

	p, err := repo.GetProductByName(ctx, "Novel")
	require.NoError(t, err)
	require.NotNil(t, p)
	require.NotNil(t, p.CategoryName)
	assert.Equal(t, "Books", *p.CategoryName)
}

func TestMemory_ListProductsFiltersAndPages(t *testing.T) {
	repo := NewMemory()
	ctx := context.Background()
	books := seedCategory(t, repo, "Books", "books")
	pens := seedCategory(t, repo, "Pens", "pens")

	seedProduct(t, repo, "Blue pen", 3, 10, pens.ID)
	seedProduct(t, repo, "Red pen", 5, 0, pens.ID)
	seedProduct(t, repo, "Atlas", 40, 2, books.ID)
	seedProduct(t, repo, "Pen pal letters", 12, 4, books.ID)

	products, total, err := repo.ListProducts(ctx, ProductFilter{Query: "PEN", InStock: true, Sort: SortPriceAsc})
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	require.Len(t, products, 2)
	assert.Equal(t, "Blue pen", products[0].Name)
	assert.Equal(t, "Pen pal letters", products[1].Name)

	min := decimal.NewFromInt(4)
	max := decimal.NewFromInt(20)
	products, total, err = repo.ListProducts(ctx, ProductFilter{MinPrice: &min, MaxPrice: &max, CategoryID: &pens.ID})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	assert.Equal(t, "Red pen", products[0].Name)

	products, total, err = repo.ListProducts(ctx, ProductFilter{Limit: 3, Offset: 3})
	require.NoError(t, err)
	assert.Equal(t, 4, total)
	require.Len(t, products, 1)
	assert.Equal(t, "Blue pen", products[0].Name, "default order is newest first")
}

func TestMemory_CustomerSummariesSkipCustomersWithoutBills(t *testing.T) {
	repo := NewMemory()
	ctx := context.Background()

	ana := &models.Customer{Name: "Ana", Email: "ana@example.com"}
	luis := &models.Customer{Name: "Luis", Email: "luis@example.com"}
	require.NoError(t, repo.CreateCustomer(ctx, ana))
	require.NoError(t, repo.CreateCustomer(ctx, luis))

	for i, total := range []string{"10.50", "4.50"} {
		bill := &models.Bill{
			BillNumber:    "B-" + string(rune('1'+i)),
			Total:         decimal.RequireFromString(total),
			IssuedOn:      time.Now(),
			PaymentMethod: models.PaymentMethodCard,
			CustomerID:    ana.ID,
		}
		require.NoError(t, repo.CreateBill(ctx, bill))
	}

	summaries, err := repo.ListCustomerSummaries(ctx)
	require.NoError(t, err)
	require.Len(t, summaries, 1)
	assert.Equal(t, "ana@example.com", summaries[0].Email)
	assert.Equal(t, 2, summaries[0].BillCount)
	assert.True(t, decimal.NewFromInt(15).Equal(summaries[0].Total))
}

func TestMemory_OrderDetailsKeepLinesAfterProductDelete(t *testing.T) {
	repo := NewMemory()
	ctx := context.Background()
	cat := seedCategory(t, repo, "Books", "books")
	product := seedProduct(t, repo, "Atlas", 40, 2, cat.ID)

	customer := &models.Customer{Name: "Ana", Email: "ana@example.com"}
	require.NoError(t, repo.CreateCustomer(ctx, customer))
	bill := &models.Bill{BillNumber: "B-1", IssuedOn: time.Now(), Total: decimal.NewFromInt(40), PaymentMethod: models.PaymentMethodCard, CustomerID: customer.ID}
	require.NoError(t, repo.CreateBill(ctx, bill))
	order := &models.Order{CreatedAt: time.Now(), Status: models.StatusPending, DeliveryMethod: models.DeliveryMethodHome, CustomerID: customer.ID, BillID: bill.ID}
	require.NoError(t, repo.CreateOrder(ctx, order))
	name := product.Name
	require.NoError(t, repo.CreateOrderLine(ctx, &models.OrderLine{OrderID: order.ID, ProductID: &product.ID, ProductName: &name, Quantity: 1, UnitPrice: product.Price}))

	require.NoError(t, repo.DeleteProduct(ctx, product.ID))

	details, err := repo.GetOrderDetailsByBillID(ctx, bill.ID)
	require.NoError(t, err)
	require.Len(t, details.Lines, 1)
	assert.Nil(t, details.Lines[0].ProductID)
	require.NotNil(t, details.Lines[0].ProductName)
	assert.Equal(t, "Atlas", *details.Lines[0].ProductName)
	assert.Equal(t, "ana@example.com", details.Customer.Email)
}

func TestMemory_CreateOrderLineChecksReferences(t *testing.T) {
	repo := NewMemory()
	ctx := context.Background()

	customer := &models.Customer{Name: "Ana", Email: "ana@example.com"}
	require.NoError(t, repo.CreateCustomer(ctx, customer))
	bill := &models.Bill{BillNumber: "B-1", IssuedOn: time.Now(), Total: decimal.NewFromInt(4), PaymentMethod: models.PaymentMethodCard, CustomerID: customer.ID}
	require.NoError(t, repo.CreateBill(ctx, bill))
	order := &models.Order{CreatedAt: time.Now(), Status: models.StatusPending, DeliveryMethod: models.DeliveryMethodHome, CustomerID: customer.ID, BillID: bill.ID}
	require.NoError(t, repo.CreateOrder(ctx, order))

	missing := int64(42)
	err := repo.CreateOrderLine(ctx, &models.OrderLine{OrderID: order.ID, ProductID: &missing, Quantity: 1})
	assert.ErrorIs(t, err, models.ErrNotFound)

	err = repo.CreateOrderLine(ctx, &models.OrderLine{OrderID: 999, Quantity: 1})
	assert.ErrorIs(t, err, models.ErrNotFound)

	line := &models.OrderLine{OrderID: order.ID, Quantity: 2, UnitPrice: decimal.NewFromInt(2)}
	require.NoError(t, repo.CreateOrderLine(ctx, line))
	require.NotNil(t, line.ProductName, "an unnamed line stores an empty snapshot")
	assert.Equal(t, "", *line.ProductName)
}
