package store

import (
	"context"

	"storefront-service/internal/models"

	"github.com/shopspring/decimal"
)

// Repository is the relational store used by the services. Lookups by a
// natural key (name, email) return nil, nil when nothing matches; lookups by
// id return models.ErrNotFound.
type Repository interface {
	GetCategoryByID(ctx context.Context, id int64) (*models.Category, error)
	GetCategoryByName(ctx context.Context, name string) (*models.Category, error)
	GetCategoryByKey(ctx context.Context, key string) (*models.Category, error)
	// CreateCategory inserts c unless its NameKey is taken. It reports
	// whether a row was inserted; c is only filled in when it was.
	CreateCategory(ctx context.Context, c *models.Category) (bool, error)
	ListCategories(ctx context.Context) ([]models.Category, error)
	ReassignProducts(ctx context.Context, fromCategoryID, toCategoryID int64) (int64, error)
	DeleteCategory(ctx context.Context, id int64) error

	GetProductByID(ctx context.Context, id int64) (*models.Product, error)
	GetProductByName(ctx context.Context, name string) (*models.Product, error)
	GetProductByKey(ctx context.Context, key string) (*models.Product, error)
	CreateProduct(ctx context.Context, p *models.Product) error
	UpdateProduct(ctx context.Context, p *models.Product) error
	DeleteProduct(ctx context.Context, id int64) error
	ListProducts(ctx context.Context, filter ProductFilter) ([]models.Product, int, error)

	GetCustomerByEmail(ctx context.Context, email string) (*models.Customer, error)
	// CreateCustomer returns models.ErrConflict when the email is taken.
	CreateCustomer(ctx context.Context, c *models.Customer) error
	UpdateCustomerPassword(ctx context.Context, email, passwordHash string) error
	ListCustomerSummaries(ctx context.Context) ([]models.CustomerSummary, error)

	CreateBill(ctx context.Context, b *models.Bill) error
	CreateOrder(ctx context.Context, o *models.Order) error
	CreateOrderLine(ctx context.Context, l *models.OrderLine) error
	GetOrderDetails(ctx context.Context, orderID int64) (*models.OrderDetails, error)
	GetOrderDetailsByBillID(ctx context.Context, billID int64) (*models.OrderDetails, error)
	// ListOrderDetails returns orders newest first. An empty email lists
	// every customer's orders.
	ListOrderDetails(ctx context.Context, email string) ([]models.OrderDetails, error)
	UpdateOrderStatus(ctx context.Context, orderID int64, status models.Status) error

	// InTx runs fn against a repository bound to a single transaction. The
	// transaction commits when fn returns nil and rolls back otherwise.
	InTx(ctx context.Context, fn func(Repository) error) error
}

// Product sort orders accepted by ListProducts
const (
	SortNewest    = ""
	SortNameAsc   = "name_asc"
	SortNameDesc  = "name_desc"
	SortPriceAsc  = "price_asc"
	SortPriceDesc = "price_desc"
)

// ProductFilter narrows a product listing. Zero values disable a filter.
type ProductFilter struct {
	Query      string
	CategoryID *int64
	MinPrice   *decimal.Decimal
	MaxPrice   *decimal.Decimal
	InStock    bool
	Sort       string
	Limit      int
	Offset     int
}
