package notify

import (
	"context"
	"sync"
	"time"

	"storefront-service/internal/models"
	"storefront-service/internal/util"

	"go.uber.org/zap"
)

const defaultDispatchTimeout = 10 * time.Second

// Dispatcher sends notifications in the background so the caller never
// waits on, or fails because of, the collaborator.
type Dispatcher struct {
	notifier Notifier
	timeout  time.Duration
	logger   *zap.Logger
	wg       sync.WaitGroup
}

// NewDispatcher creates a dispatcher. A nil notifier drops everything.
func NewDispatcher(notifier Notifier, timeout time.Duration) *Dispatcher {
	if notifier == nil {
		notifier = Noop{}
	}
	if timeout <= 0 {
		timeout = defaultDispatchTimeout
	}
	return &Dispatcher{
		notifier: notifier,
		timeout:  timeout,
		logger:   util.GetLogger(),
	}
}

// Dispatch fires n on its own goroutine with its own deadline
func (d *Dispatcher) Dispatch(n *models.Notification) {
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()

		ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
		defer cancel()

		ctx, span := util.StartSpan(ctx, "Dispatcher.Dispatch")
		defer span.End()

		if err := d.notifier.Notify(ctx, n); err != nil {
			util.RecordError(span, err)
			util.NotificationsFailedTotal.WithLabelValues(n.EventType).Inc()
			d.logger.Warn("Notification failed",
				zap.String("event_type", n.EventType),
				zap.String("event_id", n.EventID),
				zap.String("recipient", n.Recipient),
				zap.Error(err))
			return
		}

		util.NotificationsSentTotal.WithLabelValues(n.EventType).Inc()
		d.logger.Debug("Notification sent",
			zap.String("event_type", n.EventType),
			zap.String("event_id", n.EventID))
	}()
}

// Wait blocks until every dispatched notification has finished
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}
