package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Customer represents a buyer, created on first purchase or on registration
type Customer struct {
	ID           int64     `db:"id" json:"id"`
	Name         string    `db:"name" json:"name"`
	Email        string    `db:"email" json:"email"`
	Phone        string    `db:"phone" json:"phone"`
	PasswordHash string    `db:"password_hash" json:"-"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}

// Category groups products. NameKey holds the folded name and is unique.
type Category struct {
	ID        int64     `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	NameKey   string    `db:"name_key" json:"-"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// Product represents a catalog entry
type Product struct {
	ID           int64           `db:"id" json:"id"`
	Name         string          `db:"name" json:"name"`
	NameKey      string          `db:"name_key" json:"-"`
	Price        decimal.Decimal `db:"price" json:"price"`
	Stock        int             `db:"stock" json:"stock"`
	CategoryID   int64           `db:"category_id" json:"category_id"`
	CategoryName *string         `db:"category_name" json:"category_name,omitempty"`
	Image        *string         `db:"image" json:"image,omitempty"`
	Description  *string         `db:"description" json:"description,omitempty"`
	CreatedAt    time.Time       `db:"created_at" json:"created_at"`
}

// Bill is the invoice side of a purchase
type Bill struct {
	ID            int64           `db:"id" json:"id"`
	BillNumber    string          `db:"bill_number" json:"bill_number"`
	Discount      decimal.Decimal `db:"discount" json:"discount"`
	IssuedOn      time.Time       `db:"issued_on" json:"issued_on"`
	Total         decimal.Decimal `db:"total" json:"total"`
	PaymentMethod string          `db:"payment_method" json:"payment_method"`
	CustomerID    int64           `db:"customer_id" json:"customer_id"`
}

// Order represents a customer order, one per bill
type Order struct {
	ID             int64            `db:"id" json:"id"`
	CreatedAt      time.Time        `db:"created_at" json:"created_at"`
	Total          *decimal.Decimal `db:"total" json:"total"`
	DeliveryMethod string           `db:"delivery_method" json:"delivery_method"`
	Status         Status           `db:"status" json:"status"`
	CustomerID     int64            `db:"customer_id" json:"customer_id"`
	BillID         int64            `db:"bill_id" json:"bill_id"`
}

// OrderLine represents one purchased product. UnitPrice is the price at time of sale.
type OrderLine struct {
	ID          int64           `db:"id" json:"id"`
	OrderID     int64           `db:"order_id" json:"order_id"`
	ProductID   *int64          `db:"product_id" json:"product_id,omitempty"`
	ProductName *string         `db:"product_name" json:"product_name,omitempty"`
	Quantity    int             `db:"quantity" json:"quantity"`
	UnitPrice   decimal.Decimal `db:"unit_price" json:"unit_price"`
}

// OrderDetails is an order loaded with all of its relations
type OrderDetails struct {
	Order    Order
	Bill     *Bill
	Customer *Customer
	Lines    []OrderLine
}

// CustomerSummary aggregates billing activity per customer
type CustomerSummary struct {
	Email     string          `db:"email" json:"email"`
	Name      string          `db:"name" json:"name"`
	Total     decimal.Decimal `db:"total" json:"total"`
	BillCount int             `db:"bill_count" json:"bill_count"`
}

// Payment methods
const (
	PaymentMethodCard = "card"
)

// Delivery methods
const (
	DeliveryMethodHome = "home_delivery"
)
