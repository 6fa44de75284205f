package service

import (
	"context"
	"fmt"
	"strconv"

	"storefront-service/internal/models"
	"storefront-service/internal/store"
	"storefront-service/internal/textkey"
	"storefront-service/internal/util"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const (
	defaultPageSize    = 12
	defaultDescription = "Quality product from our catalog, suited for school and office use."
)

// CatalogService owns category and product normalization. Every lookup by
// name goes exact match first and folded match second, and creation goes
// through the unique folded key so concurrent creators converge on one row.
type CatalogService struct {
	repo             store.Repository
	fallbackCategory string
	placeholderImage string
	logger           *zap.Logger
}

// NewCatalogService creates a new catalog service
func NewCatalogService(repo store.Repository, fallbackCategory, placeholderImage string) *CatalogService {
	if fallbackCategory = textkey.Clean(fallbackCategory); fallbackCategory == "" {
		fallbackCategory = "Uncategorized"
	}
	return &CatalogService{
		repo:             repo,
		fallbackCategory: fallbackCategory,
		placeholderImage: placeholderImage,
		logger:           util.GetLogger(),
	}
}

// FallbackCategory returns the reserved category name
func (s *CatalogService) FallbackCategory() string {
	return s.fallbackCategory
}

// ResolveCategory returns the category matching name, creating it when
// missing. An empty name resolves to the fallback category.
func (s *CatalogService) ResolveCategory(ctx context.Context, name string) (*models.Category, error) {
	ctx, span := util.StartSpan(ctx, "CatalogService.ResolveCategory")
	defer span.End()

	c, err := s.resolveCategory(ctx, s.repo, name)
	return c, util.RecordError(span, err)
}

// CreateCategory creates a category and fails when a folded match exists
func (s *CatalogService) CreateCategory(ctx context.Context, name string) (*models.Category, error) {
	ctx, span := util.StartSpan(ctx, "CatalogService.CreateCategory")
	defer span.End()

	name = textkey.Clean(name)
	if name == "" {
		return nil, fmt.Errorf("%w: category name is required", models.ErrValidation)
	}

	c := &models.Category{Name: name, NameKey: textkey.Key(name)}
	created, err := s.repo.CreateCategory(ctx, c)
	if err != nil {
		return nil, util.RecordError(span, err)
	}
	if !created {
		return nil, fmt.Errorf("category %q: %w", name, models.ErrConflict)
	}

	s.logger.Info("Category created", zap.Int64("category_id", c.ID), zap.String("name", c.Name))
	return c, nil
}

// ListCategories returns every category sorted by name
func (s *CatalogService) ListCategories(ctx context.Context) ([]models.Category, error) {
	ctx, span := util.StartSpan(ctx, "CatalogService.ListCategories")
	defer span.End()

	categories, err := s.repo.ListCategories(ctx)
	return categories, util.RecordError(span, err)
}

// RenameCategory moves every product of oldName to newName and removes the
// old category. Renaming to a folded-equal name is a no-op.
func (s *CatalogService) RenameCategory(ctx context.Context, oldName, newName string) (int64, error) {
	ctx, span := util.StartSpan(ctx, "CatalogService.RenameCategory")
	defer span.End()

	oldName = textkey.Clean(oldName)
	newName = textkey.Clean(newName)
	if newName == "" {
		return 0, fmt.Errorf("%w: new category name is required", models.ErrValidation)
	}

	var moved int64
	err := s.repo.InTx(ctx, func(tx store.Repository) error {
		src, err := s.findCategory(ctx, tx, oldName)
		if err != nil {
			return err
		}
		if src == nil {
			return fmt.Errorf("category %q: %w", oldName, models.ErrNotFound)
		}
		if textkey.Equal(oldName, newName) {
			return nil
		}

		target, err := s.resolveCategory(ctx, tx, newName)
		if err != nil {
			return err
		}
		if target.ID == src.ID {
			return nil
		}

		if moved, err = tx.ReassignProducts(ctx, src.ID, target.ID); err != nil {
			return err
		}
		return tx.DeleteCategory(ctx, src.ID)
	})
	if err != nil {
		return 0, util.RecordError(span, err)
	}

	s.logger.Info("Category renamed",
		zap.String("from", oldName),
		zap.String("to", newName),
		zap.Int64("products_moved", moved))
	return moved, nil
}

// DeleteCategory moves every product of name to the fallback category and
// removes name. The fallback category itself is never removed.
func (s *CatalogService) DeleteCategory(ctx context.Context, name string) (int64, error) {
	ctx, span := util.StartSpan(ctx, "CatalogService.DeleteCategory")
	defer span.End()

	name = textkey.Clean(name)

	var moved int64
	err := s.repo.InTx(ctx, func(tx store.Repository) error {
		src, err := s.findCategory(ctx, tx, name)
		if err != nil {
			return err
		}
		if src == nil {
			return fmt.Errorf("category %q: %w", name, models.ErrNotFound)
		}

		fallback, err := s.resolveCategory(ctx, tx, s.fallbackCategory)
		if err != nil {
			return err
		}
		if fallback.ID == src.ID {
			return nil
		}

		if moved, err = tx.ReassignProducts(ctx, src.ID, fallback.ID); err != nil {
			return err
		}
		return tx.DeleteCategory(ctx, src.ID)
	})
	if err != nil {
		return 0, util.RecordError(span, err)
	}

	s.logger.Info("Category deleted", zap.String("name", name), zap.Int64("products_moved", moved))
	return moved, nil
}

// ProductInput is the editable part of a product
type ProductInput struct {
	Name        string          `json:"name" binding:"required"`
	Category    string          `json:"category"`
	Price       decimal.Decimal `json:"price"`
	Stock       int             `json:"stock"`
	Image       string          `json:"image"`
	Description string          `json:"description"`
}

func (in *ProductInput) validate() error {
	in.Name = textkey.Clean(in.Name)
	if in.Name == "" {
		return fmt.Errorf("%w: product name is required", models.ErrValidation)
	}
	if in.Price.IsNegative() {
		return fmt.Errorf("%w: price must not be negative", models.ErrValidation)
	}
	if in.Stock < 0 {
		return fmt.Errorf("%w: stock must not be negative", models.ErrValidation)
	}
	return nil
}

// ProductView is a product as shown to shoppers
type ProductView struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Category    string          `json:"category"`
	Price       decimal.Decimal `json:"price"`
	Image       string          `json:"image"`
	Description string          `json:"description"`
	Stock       int             `json:"stock"`
}

// ProductQuery filters a product listing. Page and Limit start at 1.
type ProductQuery struct {
	Query    string
	Category string
	MinPrice *decimal.Decimal
	MaxPrice *decimal.Decimal
	InStock  bool
	Sort     string
	Page     int
	Limit    int
}

// Pagination describes the page returned by ListProducts
type Pagination struct {
	Total      int `json:"total"`
	Page       int `json:"page"`
	PerPage    int `json:"per_page"`
	TotalPages int `json:"total_pages"`
}

// ProductPage is one page of products
type ProductPage struct {
	Products   []ProductView `json:"products"`
	Pagination Pagination    `json:"pagination"`
}

// ListProducts returns one page of products. An unknown category filter
// matches nothing.
func (s *CatalogService) ListProducts(ctx context.Context, q ProductQuery) (*ProductPage, error) {
	ctx, span := util.StartSpan(ctx, "CatalogService.ListProducts")
	defer span.End()

	if q.Page < 1 {
		q.Page = 1
	}
	if q.Limit < 1 {
		q.Limit = defaultPageSize
	}

	page := &ProductPage{
		Products:   []ProductView{},
		Pagination: Pagination{Page: q.Page, PerPage: q.Limit},
	}

	filter := store.ProductFilter{
		Query:    textkey.Clean(q.Query),
		MinPrice: q.MinPrice,
		MaxPrice: q.MaxPrice,
		InStock:  q.InStock,
		Sort:     q.Sort,
		Limit:    q.Limit,
		Offset:   (q.Page - 1) * q.Limit,
	}
	if q.Category != "" {
		c, err := s.findCategory(ctx, s.repo, q.Category)
		if err != nil {
			return nil, util.RecordError(span, err)
		}
		if c == nil {
			return page, nil
		}
		filter.CategoryID = &c.ID
	}

	products, total, err := s.repo.ListProducts(ctx, filter)
	if err != nil {
		return nil, util.RecordError(span, err)
	}

	for i := range products {
		page.Products = append(page.Products, s.View(&products[i]))
	}
	page.Pagination.Total = total
	page.Pagination.TotalPages = (total + q.Limit - 1) / q.Limit
	return page, nil
}

// GetProduct returns a product by id
func (s *CatalogService) GetProduct(ctx context.Context, id int64) (*ProductView, error) {
	ctx, span := util.StartSpan(ctx, "CatalogService.GetProduct")
	defer span.End()

	p, err := s.repo.GetProductByID(ctx, id)
	if err != nil {
		return nil, util.RecordError(span, err)
	}
	view := s.View(p)
	return &view, nil
}

// CreateProduct creates a product, resolving its category by name
func (s *CatalogService) CreateProduct(ctx context.Context, in ProductInput) (*ProductView, error) {
	ctx, span := util.StartSpan(ctx, "CatalogService.CreateProduct")
	defer span.End()

	if err := in.validate(); err != nil {
		return nil, err
	}

	var product *models.Product
	err := s.repo.InTx(ctx, func(tx store.Repository) error {
		category, err := s.resolveCategory(ctx, tx, in.Category)
		if err != nil {
			return err
		}

		product = &models.Product{
			Name:        in.Name,
			NameKey:     textkey.Fold(in.Name),
			Price:       in.Price,
			Stock:       in.Stock,
			CategoryID:  category.ID,
			Image:       optional(in.Image, s.placeholderImage),
			Description: optional(in.Description, "Product "+in.Name),
		}
		if err := tx.CreateProduct(ctx, product); err != nil {
			return err
		}
		product.CategoryName = &category.Name
		return nil
	})
	if err != nil {
		return nil, util.RecordError(span, err)
	}

	s.logger.Info("Product created", zap.Int64("product_id", product.ID), zap.String("name", product.Name))
	view := s.View(product)
	return &view, nil
}

// UpdateProduct overwrites a product. Empty image and description keep
// the stored values.
func (s *CatalogService) UpdateProduct(ctx context.Context, id int64, in ProductInput) (*ProductView, error) {
	ctx, span := util.StartSpan(ctx, "CatalogService.UpdateProduct")
	defer span.End()

	if err := in.validate(); err != nil {
		return nil, err
	}

	var product *models.Product
	err := s.repo.InTx(ctx, func(tx store.Repository) error {
		var err error
		if product, err = tx.GetProductByID(ctx, id); err != nil {
			return err
		}
		category, err := s.resolveCategory(ctx, tx, in.Category)
		if err != nil {
			return err
		}

		product.Name = in.Name
		product.NameKey = textkey.Fold(in.Name)
		product.Price = in.Price
		product.Stock = in.Stock
		product.CategoryID = category.ID
		product.CategoryName = &category.Name
		if in.Image != "" {
			product.Image = &in.Image
		}
		if in.Description != "" {
			product.Description = &in.Description
		}
		return tx.UpdateProduct(ctx, product)
	})
	if err != nil {
		return nil, util.RecordError(span, err)
	}

	s.logger.Info("Product updated", zap.Int64("product_id", id))
	view := s.View(product)
	return &view, nil
}

// DeleteProduct removes a product
func (s *CatalogService) DeleteProduct(ctx context.Context, id int64) error {
	ctx, span := util.StartSpan(ctx, "CatalogService.DeleteProduct")
	defer span.End()

	if err := s.repo.DeleteProduct(ctx, id); err != nil {
		return util.RecordError(span, err)
	}
	s.logger.Info("Product deleted", zap.Int64("product_id", id))
	return nil
}

// View projects a product for shoppers, filling display defaults
func (s *CatalogService) View(p *models.Product) ProductView {
	view := ProductView{
		ID:          strconv.FormatInt(p.ID, 10),
		Name:        p.Name,
		Category:    s.fallbackCategory,
		Price:       p.Price,
		Image:       s.placeholderImage,
		Description: defaultDescription,
		Stock:       p.Stock,
	}
	if p.CategoryName != nil && *p.CategoryName != "" {
		view.Category = *p.CategoryName
	}
	if p.Image != nil && *p.Image != "" {
		view.Image = *p.Image
	}
	if p.Description != nil && *p.Description != "" {
		view.Description = *p.Description
	}
	return view
}

func (s *CatalogService) resolveCategory(ctx context.Context, repo store.Repository, name string) (*models.Category, error) {
	name = textkey.Clean(name)
	if name == "" {
		name = s.fallbackCategory
	}

	c, err := s.findCategory(ctx, repo, name)
	if err != nil || c != nil {
		return c, err
	}

	c = &models.Category{Name: name, NameKey: textkey.Key(name)}
	created, err := repo.CreateCategory(ctx, c)
	if err != nil {
		return nil, err
	}
	if created {
		s.logger.Info("Category created on demand", zap.Int64("category_id", c.ID), zap.String("name", name))
		return c, nil
	}

	// Another writer inserted the same key first
	c, err = repo.GetCategoryByKey(ctx, textkey.Key(name))
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, fmt.Errorf("category %q vanished after conflicting insert", name)
	}
	return c, nil
}

func (s *CatalogService) findCategory(ctx context.Context, repo store.Repository, name string) (*models.Category, error) {
	name = textkey.Clean(name)
	c, err := repo.GetCategoryByName(ctx, name)
	if err != nil || c != nil {
		return c, err
	}
	return repo.GetCategoryByKey(ctx, textkey.Key(name))
}

// resolveProduct finds a product by exact then folded name, or creates it
// under the fallback category with the given price floored at zero and
// no stock.
func (s *CatalogService) resolveProduct(ctx context.Context, repo store.Repository, name string, price decimal.Decimal) (*models.Product, bool, error) {
	name = textkey.Clean(name)

	p, err := repo.GetProductByName(ctx, name)
	if err != nil || p != nil {
		return p, false, err
	}
	if p, err = repo.GetProductByKey(ctx, textkey.Fold(name)); err != nil || p != nil {
		return p, false, err
	}

	fallback, err := s.resolveCategory(ctx, repo, s.fallbackCategory)
	if err != nil {
		return nil, false, err
	}

	if price.IsNegative() {
		price = decimal.Zero
	}
	p = &models.Product{
		Name:         name,
		NameKey:      textkey.Fold(name),
		Price:        price,
		Stock:        0,
		CategoryID:   fallback.ID,
		CategoryName: &fallback.Name,
	}
	if err := repo.CreateProduct(ctx, p); err != nil {
		return nil, false, err
	}
	return p, true, nil
}

func optional(val, fallback string) *string {
	if val == "" {
		val = fallback
	}
	if val == "" {
		return nil
	}
	return &val
}
