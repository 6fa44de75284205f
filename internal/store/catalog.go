package store

import (
	"context"
	"fmt"
	"strings"

	"storefront-service/internal/models"
)

const categoryColumns = "id, name, name_key, created_at"

const productSelect = `
	SELECT p.id, p.name, p.name_key, p.price, p.stock, p.category_id,
	       c.name AS category_name, p.image, p.description, p.created_at
	FROM products p
	LEFT JOIN categories c ON c.id = p.category_id`

// GetCategoryByID retrieves a category by ID
func (s *Store) GetCategoryByID(ctx context.Context, id int64) (*models.Category, error) {
	var c models.Category
	found, err := s.getOne(ctx, &c, "SELECT "+categoryColumns+" FROM categories WHERE id = $1", id)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, fmt.Errorf("category %d: %w", id, models.ErrNotFound)
	}
	return &c, nil
}

// GetCategoryByName retrieves a category by its exact name
func (s *Store) GetCategoryByName(ctx context.Context, name string) (*models.Category, error) {
	var c models.Category
	found, err := s.getOne(ctx, &c, "SELECT "+categoryColumns+" FROM categories WHERE name = $1 ORDER BY id LIMIT 1", name)
	if err != nil || !found {
		return nil, err
	}
	return &c, nil
}

// GetCategoryByKey retrieves a category by its folded name
func (s *Store) GetCategoryByKey(ctx context.Context, key string) (*models.Category, error) {
	var c models.Category
	found, err := s.getOne(ctx, &c, "SELECT "+categoryColumns+" FROM categories WHERE name_key = $1", key)
	if err != nil || !found {
		return nil, err
	}
	return &c, nil
}

// CreateCategory inserts a category, doing nothing when the key exists
func (s *Store) CreateCategory(ctx context.Context, c *models.Category) (bool, error) {
	query := `
		INSERT INTO categories (name, name_key)
		VALUES ($1, $2)
		ON CONFLICT (name_key) DO NOTHING
		RETURNING id, created_at`

	found, err := s.getOne(ctx, c, query, c.Name, c.NameKey)
	if err != nil {
		return false, fmt.Errorf("failed to create category: %w", err)
	}
	return found, nil
}

// ListCategories returns all categories sorted by name
func (s *Store) ListCategories(ctx context.Context) ([]models.Category, error) {
	categories := []models.Category{}
	err := s.q.SelectContext(ctx, &categories, "SELECT "+categoryColumns+" FROM categories ORDER BY name, id")
	return categories, err
}

// ReassignProducts moves every product of one category to another
func (s *Store) ReassignProducts(ctx context.Context, fromCategoryID, toCategoryID int64) (int64, error) {
	res, err := s.q.ExecContext(ctx,
		"UPDATE products SET category_id = $1 WHERE category_id = $2",
		toCategoryID, fromCategoryID)
	if err != nil {
		return 0, fmt.Errorf("failed to reassign products: %w", err)
	}
	return res.RowsAffected()
}

// DeleteCategory removes a category
func (s *Store) DeleteCategory(ctx context.Context, id int64) error {
	res, err := s.q.ExecContext(ctx, "DELETE FROM categories WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("failed to delete category: %w", err)
	}
	return requireAffected(res, "category", id)
}

// GetProductByID retrieves a product by ID
func (s *Store) GetProductByID(ctx context.Context, id int64) (*models.Product, error) {
	var p models.Product
	found, err := s.getOne(ctx, &p, productSelect+" WHERE p.id = $1", id)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, fmt.Errorf("product %d: %w", id, models.ErrNotFound)
	}
	return &p, nil
}

// GetProductByName retrieves the oldest product with an exact name
func (s *Store) GetProductByName(ctx context.Context, name string) (*models.Product, error) {
	var p models.Product
	found, err := s.getOne(ctx, &p, productSelect+" WHERE p.name = $1 ORDER BY p.id LIMIT 1", name)
	if err != nil || !found {
		return nil, err
	}
	return &p, nil
}

// GetProductByKey retrieves the oldest product with a case-folded name
func (s *Store) GetProductByKey(ctx context.Context, key string) (*models.Product, error) {
	var p models.Product
	found, err := s.getOne(ctx, &p, productSelect+" WHERE p.name_key = $1 ORDER BY p.id LIMIT 1", key)
	if err != nil || !found {
		return nil, err
	}
	return &p, nil
}

// CreateProduct creates a new product
func (s *Store) CreateProduct(ctx context.Context, p *models.Product) error {
	query := `
		INSERT INTO products (name, name_key, price, stock, category_id, image, description)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at`

	err := s.q.GetContext(ctx, p, query,
		p.Name, p.NameKey, p.Price, p.Stock, p.CategoryID, p.Image, p.Description)
	if err != nil {
		return fmt.Errorf("failed to create product: %w", err)
	}
	return nil
}

// UpdateProduct overwrites the editable fields of a product
func (s *Store) UpdateProduct(ctx context.Context, p *models.Product) error {
	res, err := s.q.ExecContext(ctx, `
		UPDATE products
		SET name = $1, name_key = $2, price = $3, stock = $4, category_id = $5, image = $6, description = $7
		WHERE id = $8`,
		p.Name, p.NameKey, p.Price, p.Stock, p.CategoryID, p.Image, p.Description, p.ID)
	if err != nil {
		return fmt.Errorf("failed to update product: %w", err)
	}
	return requireAffected(res, "product", p.ID)
}

// DeleteProduct removes a product. Order lines keep their snapshot.
func (s *Store) DeleteProduct(ctx context.Context, id int64) error {
	res, err := s.q.ExecContext(ctx, "DELETE FROM products WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("failed to delete product: %w", err)
	}
	return requireAffected(res, "product", id)
}

// ListProducts returns one page of products and the total match count
func (s *Store) ListProducts(ctx context.Context, filter ProductFilter) ([]models.Product, int, error) {
	var where []string
	var args []interface{}

	if filter.Query != "" {
		where = append(where, "p.name ILIKE ?")
		args = append(args, "%"+filter.Query+"%")
	}
	if filter.CategoryID != nil {
		where = append(where, "p.category_id = ?")
		args = append(args, *filter.CategoryID)
	}
	if filter.MinPrice != nil {
		where = append(where, "p.price >= ?")
		args = append(args, *filter.MinPrice)
	}
	if filter.MaxPrice != nil {
		where = append(where, "p.price <= ?")
		args = append(args, *filter.MaxPrice)
	}
	if filter.InStock {
		where = append(where, "p.stock > 0")
	}

	clause := ""
	if len(where) > 0 {
		clause = " WHERE " + strings.Join(where, " AND ")
	}

	var total int
	countQuery := s.q.Rebind("SELECT COUNT(*) FROM products p" + clause)
	if err := s.q.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("failed to count products: %w", err)
	}

	query := productSelect + clause + " ORDER BY " + productOrder(filter.Sort)
	if filter.Limit > 0 {
		query += " LIMIT ? OFFSET ?"
		args = append(args, filter.Limit, filter.Offset)
	}

	products := []models.Product{}
	if err := s.q.SelectContext(ctx, &products, s.q.Rebind(query), args...); err != nil {
		return nil, 0, fmt.Errorf("failed to list products: %w", err)
	}
	return products, total, nil
}

func productOrder(sort string) string {
	switch sort {
	case SortNameAsc:
		return "p.name ASC, p.id ASC"
	case SortNameDesc:
		return "p.name DESC, p.id DESC"
	case SortPriceAsc:
		return "p.price ASC, p.id ASC"
	case SortPriceDesc:
		return "p.price DESC, p.id DESC"
	default:
		return "p.id DESC"
	}
}
