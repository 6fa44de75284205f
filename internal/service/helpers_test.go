package service

import (
	"context"
	"errors"
	"sync"

	"storefront-service/internal/models"
	"storefront-service/internal/store"
)

const testPlaceholder = "https://img.example.com/placeholder.png"

type recordingDispatcher struct {
	mu   sync.Mutex
	sent []*models.Notification
}

func (d *recordingDispatcher) Dispatch(n *models.Notification) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.sent = append(d.sent, n)
}

func (d *recordingDispatcher) all() []*models.Notification {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]*models.Notification(nil), d.sent...)
}

// failingLines breaks CreateOrderLine, inside transactions too
type failingLines struct {
	store.Repository
}

var errLineWrite = errors.New("line write failed")

func (r *failingLines) InTx(ctx context.Context, fn func(store.Repository) error) error {
	return r.Repository.InTx(ctx, func(tx store.Repository) error {
		return fn(&failingLines{Repository: tx})
	})
}

func (r *failingLines) CreateOrderLine(context.Context, *models.OrderLine) error {
	return errLineWrite
}

func newCatalog(repo store.Repository) *CatalogService {
	return NewCatalogService(repo, "Uncategorized", testPlaceholder)
}
