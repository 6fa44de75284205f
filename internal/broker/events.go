package broker

import (
	"context"
	"encoding/json"
	"fmt"

	"storefront-service/internal/models"
	"storefront-service/internal/util"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// publisher is the part of Producer the EventPublisher needs
type publisher interface {
	PublishEvent(ctx context.Context, key string, event interface{}) error
}

// EventPublisher publishes notifications to the notifications topic. It
// satisfies notify.Notifier.
type EventPublisher struct {
	producer publisher
}

// NewEventPublisher creates a new event publisher
func NewEventPublisher(producer publisher) *EventPublisher {
	return &EventPublisher{producer: producer}
}

// Notify publishes n keyed by recipient so a customer's events stay ordered
func (ep *EventPublisher) Notify(ctx context.Context, n *models.Notification) error {
	ctx, span := util.StartSpan(ctx, "EventPublisher.Notify")
	defer span.End()

	key := fmt.Sprintf("customer-%s", n.Recipient)
	return util.RecordError(span, ep.producer.PublishEvent(ctx, key, n))
}

// NotificationHandlerFunc handles one decoded notification
type NotificationHandlerFunc func(context.Context, *models.Notification) error

// EventHandler routes incoming events by type
type EventHandler struct {
	handlers map[string]NotificationHandlerFunc
	logger   *zap.Logger
}

// NewEventHandler creates a new event handler
func NewEventHandler() *EventHandler {
	return &EventHandler{
		handlers: make(map[string]NotificationHandlerFunc),
		logger:   util.GetLogger(),
	}
}

// On registers handler for eventType
func (eh *EventHandler) On(eventType string, handler NotificationHandlerFunc) {
	eh.handlers[eventType] = handler
}

// HandleMessage routes messages to appropriate handlers. Unknown event
// types are acknowledged and skipped.
func (eh *EventHandler) HandleMessage(ctx context.Context, msg kafka.Message) error {
	var n models.Notification
	if err := json.Unmarshal(msg.Value, &n); err != nil {
		return fmt.Errorf("failed to unmarshal notification: %w", err)
	}

	eh.logger.Debug("Handling event",
		zap.String("type", n.EventType),
		zap.String("id", n.EventID))

	handler, ok := eh.handlers[n.EventType]
	if !ok {
		eh.logger.Warn("Unhandled event type", zap.String("type", n.EventType))
		return nil
	}
	return handler(ctx, &n)
}
