// Package notify delivers customer notifications (receipts, reset links)
// to an out-of-band collaborator.
package notify

import (
	"context"
	"time"

	"storefront-service/internal/models"

	"github.com/google/uuid"
)

// Notifier delivers a single notification
type Notifier interface {
	Notify(ctx context.Context, n *models.Notification) error
}

// NewNotification wraps payload in an envelope with a fresh event id
func NewNotification(eventType, recipient string, payload interface{}) *models.Notification {
	return &models.Notification{
		BaseEvent: models.BaseEvent{
			EventID:   uuid.New().String(),
			EventType: eventType,
			Timestamp: time.Now().UTC(),
		},
		Recipient: recipient,
		Payload:   payload,
	}
}

// Noop drops every notification. Used when no collaborator is configured.
type Noop struct{}

func (Noop) Notify(context.Context, *models.Notification) error { return nil }

// NotifierFunc adapts a function to Notifier
type NotifierFunc func(ctx context.Context, n *models.Notification) error

func (f NotifierFunc) Notify(ctx context.Context, n *models.Notification) error { return f(ctx, n) }
