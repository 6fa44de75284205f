package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"storefront-service/internal/models"
	"storefront-service/internal/session"
	"storefront-service/internal/textkey"
	"storefront-service/internal/util"

	"go.uber.org/zap"
)

const defaultFavoriteCategory = "General"

// SessionService fronts the cart and favorites stores, keyed by the
// shopper's email.
type SessionService struct {
	carts            *session.CartStore
	favorites        *session.FavoriteStore
	placeholderImage string
	logger           *zap.Logger
}

// NewSessionService creates a new session service
func NewSessionService(carts *session.CartStore, favorites *session.FavoriteStore, placeholderImage string) *SessionService {
	return &SessionService{
		carts:            carts,
		favorites:        favorites,
		placeholderImage: placeholderImage,
		logger:           util.GetLogger(),
	}
}

// Cart returns the shopper's cart
func (s *SessionService) Cart(key string) []models.CartEntry {
	return s.carts.Get(sessionKey(key))
}

// AddToCart adds one unit of entry
func (s *SessionService) AddToCart(key string, entry models.CartEntry) ([]models.CartEntry, error) {
	entry.ProductID = strings.TrimSpace(entry.ProductID)
	entry.Name = textkey.Clean(entry.Name)
	if entry.ProductID == "" && entry.Name == "" {
		return nil, fmt.Errorf("%w: product is required", models.ErrValidation)
	}
	return s.carts.Add(sessionKey(key), entry), nil
}

// SetCartQuantity overwrites the quantity of a cart entry
func (s *SessionService) SetCartQuantity(key, productID string, qty int) ([]models.CartEntry, error) {
	return s.carts.SetQuantity(sessionKey(key), strings.TrimSpace(productID), qty)
}

// RemoveCartIndex drops the entry at index, ignoring bad indexes
func (s *SessionService) RemoveCartIndex(key string, index int) []models.CartEntry {
	return s.carts.RemoveAt(sessionKey(key), index)
}

// ClearCart empties the cart
func (s *SessionService) ClearCart(key string) []models.CartEntry {
	return s.carts.Clear(sessionKey(key))
}

// Favorites returns the shopper's favorites
func (s *SessionService) Favorites(key string) []models.FavoriteEntry {
	return s.favorites.Get(sessionKey(key))
}

// AddFavorite stores entry once per product id. A failed write is logged
// and the in-memory result is still returned.
func (s *SessionService) AddFavorite(ctx context.Context, key string, entry models.FavoriteEntry) ([]models.FavoriteEntry, error) {
	ctx, span := util.StartSpan(ctx, "SessionService.AddFavorite")
	defer span.End()

	entry.ProductID = strings.TrimSpace(entry.ProductID)
	if entry.ProductID == "" {
		return nil, fmt.Errorf("%w: product id is required", models.ErrValidation)
	}
	if entry.Image == "" {
		entry.Image = s.placeholderImage
	}
	if entry.Category == "" {
		entry.Category = defaultFavoriteCategory
	}

	items, err := s.favorites.Add(ctx, sessionKey(key), entry)
	return items, s.persistWarning(err, "add", entry.ProductID)
}

// RemoveFavorite drops productID from the favorites
func (s *SessionService) RemoveFavorite(ctx context.Context, key, productID string) ([]models.FavoriteEntry, error) {
	ctx, span := util.StartSpan(ctx, "SessionService.RemoveFavorite")
	defer span.End()

	items, err := s.favorites.Remove(ctx, sessionKey(key), strings.TrimSpace(productID))
	return items, s.persistWarning(err, "remove", productID)
}

func (s *SessionService) persistWarning(err error, op, productID string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, session.ErrPersist) {
		util.FavoritesPersistFailedTotal.Inc()
		s.logger.Warn("Favorites not persisted",
			zap.String("op", op),
			zap.String("product_id", productID),
			zap.Error(err))
		return nil
	}
	return err
}

func sessionKey(key string) string {
	return strings.ToLower(strings.TrimSpace(key))
}
