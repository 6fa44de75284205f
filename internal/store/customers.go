package store

import (
	"context"
	"fmt"
	"strings"

	"storefront-service/internal/models"
)

const customerColumns = "id, name, email, phone, password_hash, created_at"

// GetCustomerByEmail retrieves a customer by case-insensitive email
func (s *Store) GetCustomerByEmail(ctx context.Context, email string) (*models.Customer, error) {
	var c models.Customer
	found, err := s.getOne(ctx, &c,
		"SELECT "+customerColumns+" FROM customers WHERE lower(email) = lower($1)",
		strings.TrimSpace(email))
	if err != nil || !found {
		return nil, err
	}
	return &c, nil
}

// CreateCustomer creates a new customer
func (s *Store) CreateCustomer(ctx context.Context, c *models.Customer) error {
	query := `
		INSERT INTO customers (name, email, phone, password_hash)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at`

	err := s.q.GetContext(ctx, c, query, c.Name, c.Email, c.Phone, c.PasswordHash)
	if isUniqueViolation(err) {
		return fmt.Errorf("customer %s: %w", c.Email, models.ErrConflict)
	}
	if err != nil {
		return fmt.Errorf("failed to create customer: %w", err)
	}
	return nil
}

// UpdateCustomerPassword replaces the stored credential
func (s *Store) UpdateCustomerPassword(ctx context.Context, email, passwordHash string) error {
	res, err := s.q.ExecContext(ctx,
		"UPDATE customers SET password_hash = $1 WHERE lower(email) = lower($2)",
		passwordHash, strings.TrimSpace(email))
	if err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}
	return requireAffected(res, "customer", email)
}

// ListCustomerSummaries aggregates bills per customer. Customers without
// bills are left out.
func (s *Store) ListCustomerSummaries(ctx context.Context) ([]models.CustomerSummary, error) {
	summaries := []models.CustomerSummary{}
	err := s.q.SelectContext(ctx, &summaries, `
		SELECT c.email, c.name, COALESCE(SUM(b.total), 0) AS total, COUNT(b.id) AS bill_count
		FROM customers c
		JOIN bills b ON b.customer_id = c.id
		GROUP BY c.id, c.email, c.name
		ORDER BY c.email`)
	return summaries, err
}
