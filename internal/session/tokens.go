package session

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"strings"
	"sync"
	"time"

	"storefront-service/internal/models"
)

// DefaultResetTTL is how long an issued reset token stays valid
const DefaultResetTTL = 15 * time.Minute

// ResetTokenStore holds single-use password reset tokens. The whole table is
// rewritten to the backend on every change.
type ResetTokenStore struct {
	mu      sync.Mutex
	backend Backend
	ttl     time.Duration
	now     func() time.Time
	tokens  map[string]models.ResetToken
}

// NewResetTokenStore creates an empty store. Call Load once at startup.
func NewResetTokenStore(backend Backend, ttl time.Duration) *ResetTokenStore {
	if ttl <= 0 {
		ttl = DefaultResetTTL
	}
	return &ResetTokenStore{
		backend: backend,
		ttl:     ttl,
		now:     time.Now,
		tokens:  make(map[string]models.ResetToken),
	}
}

// SetClock replaces the time source
func (s *ResetTokenStore) SetClock(now func() time.Time) {
	s.mu.Lock()
	s.now = now
	s.mu.Unlock()
}

// TTL returns the token lifetime
func (s *ResetTokenStore) TTL() time.Duration {
	return s.ttl
}

// Load replaces the in-memory table with the backend document. A missing or
// malformed document leaves the table empty; only read failures are returned.
func (s *ResetTokenStore) Load(ctx context.Context) error {
	var doc map[string]models.ResetToken
	ok, err := loadDocument(ctx, s.backend, &doc)

	s.mu.Lock()
	defer s.mu.Unlock()
	if !ok || doc == nil {
		s.tokens = make(map[string]models.ResetToken)
		return err
	}
	s.tokens = doc
	return nil
}

// Issue creates a token for email and persists the table. It never sends
// the token anywhere. On a persist failure the token is still returned,
// valid in memory, together with an error wrapping ErrPersist.
func (s *ResetTokenStore) Issue(ctx context.Context, email string) (string, error) {
	token, err := randomToken()
	if err != nil {
		return "", fmt.Errorf("generate token: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.tokens[token] = models.ResetToken{
		Email:     strings.ToLower(strings.TrimSpace(email)),
		ExpiresAt: s.now().Add(s.ttl).Unix(),
	}
	return token, saveDocument(ctx, s.backend, s.tokens)
}

// Consume validates token and calls apply with its email. The token is
// removed only when apply succeeds; expired tokens are evicted on sight.
// The store lock is held across apply, so a token is consumed at most once.
func (s *ResetTokenStore) Consume(ctx context.Context, token string, apply func(email string) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	info, ok := s.tokens[token]
	if !ok {
		return models.ErrInvalidOrExpired
	}
	if info.ExpiresAt < s.now().Unix() || info.Email == "" {
		delete(s.tokens, token)
		if err := saveDocument(ctx, s.backend, s.tokens); err != nil {
			return fmt.Errorf("%w (%v)", models.ErrInvalidOrExpired, err)
		}
		return models.ErrInvalidOrExpired
	}

	if err := apply(info.Email); err != nil {
		return err
	}

	delete(s.tokens, token)
	return saveDocument(ctx, s.backend, s.tokens)
}

// Has reports whether token is currently stored, expired or not
func (s *ResetTokenStore) Has(token string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.tokens[token]
	return ok
}

// Len returns the number of stored tokens
func (s *ResetTokenStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.tokens)
}

// Sweep evicts every expired token and returns how many were removed
func (s *ResetTokenStore) Sweep(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now().Unix()
	removed := 0
	for token, info := range s.tokens {
		if info.ExpiresAt < now {
			delete(s.tokens, token)
			removed++
		}
	}
	if removed == 0 {
		return 0, nil
	}
	return removed, saveDocument(ctx, s.backend, s.tokens)
}

func randomToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
