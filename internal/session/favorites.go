package session

import (
	"context"
	"sync"

	"storefront-service/internal/models"
)

// FavoriteStore keeps favorites per customer in memory and rewrites the
// whole collection to its backend after every change.
type FavoriteStore struct {
	mu      sync.Mutex
	backend Backend
	items   map[string][]models.FavoriteEntry
}

// NewFavoriteStore creates an empty store. Call Load once at startup.
func NewFavoriteStore(backend Backend) *FavoriteStore {
	return &FavoriteStore{
		backend: backend,
		items:   make(map[string][]models.FavoriteEntry),
	}
}

// Load replaces the in-memory state with the backend document. A missing or
// malformed document leaves the store empty; only read failures are returned.
func (s *FavoriteStore) Load(ctx context.Context) error {
	var doc map[string][]models.FavoriteEntry
	ok, err := loadDocument(ctx, s.backend, &doc)

	s.mu.Lock()
	defer s.mu.Unlock()
	if !ok || doc == nil {
		s.items = make(map[string][]models.FavoriteEntry)
		return err
	}
	s.items = doc
	return nil
}

// Get returns a copy of the customer's favorites
func (s *FavoriteStore) Get(key string) []models.FavoriteEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshot(key)
}

// Add appends entry unless its product id is already present. The returned
// error wraps ErrPersist when the document could not be written; the list
// reflects the in-memory state either way.
func (s *FavoriteStore) Add(ctx context.Context, key string, entry models.FavoriteEntry) ([]models.FavoriteEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.items[key] {
		if existing.ProductID == entry.ProductID {
			return s.snapshot(key), nil
		}
	}

	s.items[key] = append(s.items[key], entry)
	err := saveDocument(ctx, s.backend, s.items)
	return s.snapshot(key), err
}

// Remove drops productID from the customer's favorites and persists,
// whether or not it was present.
func (s *FavoriteStore) Remove(ctx context.Context, key, productID string) ([]models.FavoriteEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	kept := make([]models.FavoriteEntry, 0, len(s.items[key]))
	for _, existing := range s.items[key] {
		if existing.ProductID != productID {
			kept = append(kept, existing)
		}
	}
	s.items[key] = kept

	err := saveDocument(ctx, s.backend, s.items)
	return s.snapshot(key), err
}

// All returns a deep copy of every customer's favorites
func (s *FavoriteStore) All() map[string][]models.FavoriteEntry {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make(map[string][]models.FavoriteEntry, len(s.items))
	for key := range s.items {
		out[key] = s.snapshot(key)
	}
	return out
}

func (s *FavoriteStore) snapshot(key string) []models.FavoriteEntry {
	out := make([]models.FavoriteEntry, len(s.items[key]))
	copy(out, s.items[key])
	return out
}
