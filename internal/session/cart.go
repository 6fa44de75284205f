package session

import (
	"sync"

	"storefront-service/internal/models"
)

// CartStore keeps carts in memory, keyed by customer email. Carts are lost
// on restart. Mutations on the same key are serialized.
type CartStore struct {
	mu      sync.RWMutex
	buckets map[string]*cartBucket
}

type cartBucket struct {
	mu      sync.Mutex
	entries []models.CartEntry
}

// NewCartStore creates an empty cart store
func NewCartStore() *CartStore {
	return &CartStore{buckets: make(map[string]*cartBucket)}
}

func (s *CartStore) bucket(key string) *cartBucket {
	s.mu.RLock()
	b, ok := s.buckets[key]
	s.mu.RUnlock()
	if ok {
		return b
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if b, ok = s.buckets[key]; !ok {
		b = &cartBucket{entries: []models.CartEntry{}}
		s.buckets[key] = b
	}
	return b
}

// Get returns a copy of the cart. Unknown keys yield an empty cart.
func (s *CartStore) Get(key string) []models.CartEntry {
	b := s.bucket(key)
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.snapshot()
}

// Add puts one unit of product into the cart, incrementing the quantity of
// an existing entry for the same product id.
func (s *CartStore) Add(key string, product models.CartEntry) []models.CartEntry {
	b := s.bucket(key)
	b.mu.Lock()
	defer b.mu.Unlock()

	if product.ProductID != "" {
		for i := range b.entries {
			if b.entries[i].ProductID == product.ProductID {
				b.entries[i].Quantity++
				return b.snapshot()
			}
		}
	}

	product.Quantity = 1
	b.entries = append(b.entries, product)
	return b.snapshot()
}

// SetQuantity overwrites the quantity of the entry for productID.
func (s *CartStore) SetQuantity(key, productID string, qty int) ([]models.CartEntry, error) {
	if qty < 1 {
		return nil, models.ErrInvalidQuantity
	}

	b := s.bucket(key)
	b.mu.Lock()
	defer b.mu.Unlock()

	for i := range b.entries {
		if b.entries[i].ProductID == productID {
			b.entries[i].Quantity = qty
			return b.snapshot(), nil
		}
	}
	return nil, models.ErrNotFound
}

// RemoveAt drops the entry at index. Out of range indexes are ignored.
func (s *CartStore) RemoveAt(key string, index int) []models.CartEntry {
	b := s.bucket(key)
	b.mu.Lock()
	defer b.mu.Unlock()

	if index >= 0 && index < len(b.entries) {
		b.entries = append(b.entries[:index], b.entries[index+1:]...)
	}
	return b.snapshot()
}

// Clear empties the cart
func (s *CartStore) Clear(key string) []models.CartEntry {
	b := s.bucket(key)
	b.mu.Lock()
	defer b.mu.Unlock()

	b.entries = []models.CartEntry{}
	return b.snapshot()
}

func (b *cartBucket) snapshot() []models.CartEntry {
	out := make([]models.CartEntry, len(b.entries))
	copy(out, b.entries)
	return out
}
