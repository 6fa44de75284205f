package models

import "github.com/shopspring/decimal"

// CartEntry is a product snapshot held in a customer's cart
type CartEntry struct {
	ProductID string          `json:"product_id"`
	Name      string          `json:"name"`
	Price     decimal.Decimal `json:"price"`
	Image     string          `json:"image,omitempty"`
	Category  string          `json:"category,omitempty"`
	Quantity  int             `json:"quantity"`
}

// FavoriteEntry is a product a customer marked as favorite
type FavoriteEntry struct {
	ProductID string          `json:"product_id"`
	Name      string          `json:"name"`
	Price     decimal.Decimal `json:"price"`
	Image     string          `json:"image,omitempty"`
	Category  string          `json:"category,omitempty"`
}

// ResetToken binds a password reset token to an email until ExpiresAt (unix seconds)
type ResetToken struct {
	Email     string `json:"email"`
	ExpiresAt int64  `json:"expires_at"`
}
