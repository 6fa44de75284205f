package api

import (
	"io"
	"net/http"
	"strconv"

	"storefront-service/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

// maxImageSize caps uploaded product images
const maxImageSize = 10 << 20

// listProducts handles catalog listing with search, filters, sort and paging
func (h *Handler) listProducts(c *gin.Context) {
	q := service.ProductQuery{
		Query:    c.Query("q"),
		Category: c.Query("category"),
		Sort:     c.Query("sort"),
	}

	var err error
	if q.MinPrice, err = decimalQuery(c, "min_price"); err != nil {
		badRequest(c, "Invalid min_price", err)
		return
	}
	if q.MaxPrice, err = decimalQuery(c, "max_price"); err != nil {
		badRequest(c, "Invalid max_price", err)
		return
	}
	if raw := c.Query("in_stock"); raw != "" {
		if q.InStock, err = strconv.ParseBool(raw); err != nil {
			badRequest(c, "Invalid in_stock", err)
			return
		}
	}
	if q.Page, err = intQuery(c, "page"); err != nil {
		badRequest(c, "Invalid page", err)
		return
	}
	if q.Limit, err = intQuery(c, "limit"); err != nil {
		badRequest(c, "Invalid limit", err)
		return
	}

	page, err := h.catalog.ListProducts(c.Request.Context(), q)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

// getProduct handles get product by ID
func (h *Handler) getProduct(c *gin.Context) {
	id, ok := int64Param(c, "id")
	if !ok {
		return
	}
	product, err := h.catalog.GetProduct(c.Request.Context(), id)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, product)
}

func (h *Handler) listCategories(c *gin.Context) {
	categories, err := h.catalog.ListCategories(c.Request.Context())
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"categories": categories})
}

func (h *Handler) createProduct(c *gin.Context) {
	var in service.ProductInput
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, "Invalid request body", err)
		return
	}
	product, err := h.catalog.CreateProduct(c.Request.Context(), in)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, product)
}

func (h *Handler) updateProduct(c *gin.Context) {
	id, ok := int64Param(c, "id")
	if !ok {
		return
	}
	var in service.ProductInput
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, "Invalid request body", err)
		return
	}
	product, err := h.catalog.UpdateProduct(c.Request.Context(), id, in)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, product)
}

func (h *Handler) deleteProduct(c *gin.Context) {
	id, ok := int64Param(c, "id")
	if !ok {
		return
	}
	if err := h.catalog.DeleteProduct(c.Request.Context(), id); err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Product deleted"})
}

// uploadImage accepts a multipart "image" field and returns the hosted URL
func (h *Handler) uploadImage(c *gin.Context) {
	header, err := c.FormFile("image")
	if err != nil {
		badRequest(c, "Image file is required", err)
		return
	}
	if header.Size > maxImageSize {
		badRequest(c, "Image file is too large", nil)
		return
	}

	f, err := header.Open()
	if err != nil {
		h.writeError(c, err)
		return
	}
	defer f.Close()

	content, err := io.ReadAll(io.LimitReader(f, maxImageSize))
	if err != nil {
		h.writeError(c, err)
		return
	}

	url, err := h.assets.Upload(c.Request.Context(), header.Filename, header.Header.Get("Content-Type"), content)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"url": url})
}

type categoryRequest struct {
	Name string `json:"name" binding:"required"`
}

func (h *Handler) createCategory(c *gin.Context) {
	var req categoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body", err)
		return
	}
	category, err := h.catalog.CreateCategory(c.Request.Context(), req.Name)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, category)
}

type renameCategoryRequest struct {
	NewName string `json:"new_name" binding:"required"`
}

func (h *Handler) renameCategory(c *gin.Context) {
	var req renameCategoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body", err)
		return
	}
	moved, err := h.catalog.RenameCategory(c.Request.Context(), c.Param("name"), req.NewName)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"products_moved": moved})
}

func (h *Handler) deleteCategory(c *gin.Context) {
	moved, err := h.catalog.DeleteCategory(c.Request.Context(), c.Param("name"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"products_moved": moved,
		"moved_to":       h.catalog.FallbackCategory(),
	})
}

func decimalQuery(c *gin.Context, key string) (*decimal.Decimal, error) {
	raw := c.Query(key)
	if raw == "" {
		return nil, nil
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func intQuery(c *gin.Context, key string) (int, error) {
	raw := c.Query(key)
	if raw == "" {
		return 0, nil
	}
	return strconv.Atoi(raw)
}
