package worker

import (
	"context"
	"fmt"
	"time"

	"storefront-service/internal/broker"
	"storefront-service/internal/models"
	"storefront-service/internal/notify"
	"storefront-service/internal/util"

	"go.uber.org/zap"
)

// consumer is the part of broker.Consumer the worker drives
type consumer interface {
	StartConsuming(ctx context.Context, handler broker.MessageHandler) error
	Close() error
}

// NotificationWorker relays notifications from Kafka to the delivery
// collaborator (normally the webhook).
type NotificationWorker struct {
	consumer     consumer
	eventHandler *broker.EventHandler
	relay        notify.Notifier
	timeout      time.Duration
	logger       *zap.Logger
}

// NewNotificationWorker creates a worker that hands every known event type
// to relay, each delivery bounded by timeout.
func NewNotificationWorker(c consumer, relay notify.Notifier, timeout time.Duration) *NotificationWorker {
	w := &NotificationWorker{
		consumer:     c,
		eventHandler: broker.NewEventHandler(),
		relay:        relay,
		timeout:      timeout,
		logger:       util.GetLogger(),
	}

	w.eventHandler.On(models.EventTypeOrderPlaced, w.deliver)
	w.eventHandler.On(models.EventTypePasswordResetRequested, w.deliver)
	return w
}

// Start consumes until ctx is cancelled
func (w *NotificationWorker) Start(ctx context.Context) error {
	w.logger.Info("Starting notification worker")
	return w.consumer.StartConsuming(ctx, w.eventHandler.HandleMessage)
}

// Stop stops the worker
func (w *NotificationWorker) Stop() error {
	w.logger.Info("Stopping notification worker")
	return w.consumer.Close()
}

func (w *NotificationWorker) deliver(ctx context.Context, n *models.Notification) error {
	if w.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, w.timeout)
		defer cancel()
	}

	ctx, span := util.StartSpan(ctx, "NotificationWorker.deliver")
	defer span.End()

	if err := w.relay.Notify(ctx, n); err != nil {
		util.NotificationsFailedTotal.WithLabelValues(n.EventType).Inc()
		return util.RecordError(span, fmt.Errorf("relay %s %s: %w", n.EventType, n.EventID, err))
	}

	util.NotificationsSentTotal.WithLabelValues(n.EventType).Inc()
	w.logger.Info("Notification relayed",
		zap.String("event_type", n.EventType),
		zap.String("event_id", n.EventID),
		zap.String("recipient", n.Recipient))
	return nil
}
