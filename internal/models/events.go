package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Event types
const (
	EventTypeOrderPlaced            = "ORDER_PLACED"
	EventTypePasswordResetRequested = "PASSWORD_RESET_REQUESTED"
)

// BaseEvent contains common fields for all events
type BaseEvent struct {
	EventID   string    `json:"event_id"`
	EventType string    `json:"event_type"`
	Timestamp time.Time `json:"timestamp"`
}

// Notification is the envelope handed to the notification collaborator
type Notification struct {
	BaseEvent
	Recipient string      `json:"recipient"`
	Payload   interface{} `json:"payload"`
}

// OrderPlacedPayload is sent once an order has been committed
type OrderPlacedPayload struct {
	CustomerName string          `json:"customer_name"`
	BillID       int64           `json:"bill_id"`
	BillNumber   string          `json:"bill_number"`
	Date         string          `json:"date"`
	Time         string          `json:"time"`
	Lines        []NotifiedLine  `json:"lines"`
	Total        decimal.Decimal `json:"total"`
	Status       string          `json:"status"`
}

// NotifiedLine is a receipt line with its subtotal
type NotifiedLine struct {
	Name     string          `json:"name"`
	Quantity int             `json:"quantity"`
	Price    decimal.Decimal `json:"price"`
	Subtotal decimal.Decimal `json:"subtotal"`
}

// PasswordResetPayload carries the reset link for out-of-band delivery
type PasswordResetPayload struct {
	CustomerName string `json:"customer_name"`
	Token        string `json:"token"`
	ResetLink    string `json:"reset_link"`
	ExpiresIn    string `json:"expires_in"`
}
