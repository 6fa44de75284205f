package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"storefront-service/internal/service"
	"storefront-service/internal/session"
	"storefront-service/internal/store"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testAdminToken  = "admin-token"
	testPlaceholder = "https://img.test/placeholder.png"
)

func newTestRouter(t *testing.T, opts Options) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dir := t.TempDir()
	repo := store.NewMemory()
	catalog := service.NewCatalogService(repo, "Uncategorized", testPlaceholder)
	tokens := session.NewResetTokenStore(session.NewFileBackend(filepath.Join(dir, "tokens.json")), 0)
	favorites := session.NewFavoriteStore(session.NewFileBackend(filepath.Join(dir, "favorites.json")))

	h := NewHandler(Services{
		Catalog:  catalog,
		Orders:   service.NewOrderService(repo, catalog, nil),
		Accounts: service.NewAccountService(repo, tokens, nil, service.AdminCredentials{}, "http://shop.test"),
		Sessions: service.NewSessionService(session.NewCartStore(), favorites, testPlaceholder),
		Assets:   service.NewAssetUploader(service.AssetConfig{Placeholder: testPlaceholder}),
	}, opts)

	router := gin.New()
	h.SetupRoutes(router)
	return router
}

func defaultOptions() Options {
	return Options{AdminToken: testAdminToken, AllowedOrigins: []string{"*"}}
}

func doJSON(t *testing.T, router http.Handler, method, path string, body interface{}, admin bool) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if admin {
		req.Header.Set(adminTokenHeader, testAdminToken)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func TestHealthAndReadiness(t *testing.T) {
	router := newTestRouter(t, defaultOptions())

	rec := doJSON(t, router, http.MethodGet, "/health", nil, false)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "healthy", decode(t, rec)["status"])

	rec = doJSON(t, router, http.MethodGet, "/ready", nil, false)
	assert.Equal(t, http.StatusOK, rec.Code)

	opts := defaultOptions()
	opts.Ready = func(context.Context) error { return errors.New("db down") }
	router = newTestRouter(t, opts)
	rec = doJSON(t, router, http.MethodGet, "/ready", nil, false)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestAdminRoutesRequireToken(t *testing.T) {
	router := newTestRouter(t, defaultOptions())
	product := map[string]interface{}{"name": "Notebook", "price": "4.50"}

	rec := doJSON(t, router, http.MethodPost, "/api/v1/admin/products", product, false)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = doJSON(t, router, http.MethodPost, "/api/v1/admin/products", product, true)
	assert.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	unset := newTestRouter(t, Options{})
	rec = doJSON(t, unset, http.MethodGet, "/api/v1/admin/bills", nil, false)
	assert.Equal(t, http.StatusUnauthorized, rec.Code, "no configured token refuses everyone")
}

func TestCheckoutFlow(t *testing.T) {
	router := newTestRouter(t, defaultOptions())

	order := map[string]interface{}{
		"email": "Ana@Example.com",
		"name":  "Ana",
		"products": []map[string]interface{}{
			{"name": "Notebook", "quantity": 2, "price": "4.50"},
		},
		"total": "9.00",
	}
	rec := doJSON(t, router, http.MethodPost, "/api/v1/bills", order, false)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	receipt := decode(t, rec)
	assert.Equal(t, "Processing", receipt["status"])
	assert.Equal(t, "ana@example.com", receipt["email"])
	billID := receipt["id"].(string)

	rec = doJSON(t, router, http.MethodGet, "/api/v1/bills?email=ana@example.com", nil, false)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode(t, rec)["bills"], 1)

	rec = doJSON(t, router, http.MethodGet, "/api/v1/bills", nil, false)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(t, router, http.MethodPost, "/api/v1/bills", map[string]interface{}{"name": "No email"}, false)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(t, router, http.MethodPut, "/api/v1/admin/bills/"+billID+"/status", map[string]string{"status": "on the way"}, true)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "On the way", decode(t, rec)["status"])

	rec = doJSON(t, router, http.MethodPut, "/api/v1/admin/bills/999/status", map[string]string{"status": "Delivered"}, true)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = doJSON(t, router, http.MethodGet, "/api/v1/admin/customers", nil, true)
	require.Equal(t, http.StatusOK, rec.Code)
	customers := decode(t, rec)["customers"].([]interface{})
	require.Len(t, customers, 1)
	assert.Equal(t, "ana@example.com", customers[0].(map[string]interface{})["email"])

	rec = doJSON(t, router, http.MethodGet, "/api/v1/products?category=uncategorized", nil, false)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode(t, rec)["products"], 1, "checkout created the product under the fallback category")
}

func TestCartEndpoints(t *testing.T) {
	router := newTestRouter(t, defaultOptions())
	pen := map[string]interface{}{"product_id": "7", "name": "Pen", "price": "1.20"}

	doJSON(t, router, http.MethodPost, "/api/v1/cart/ana@example.com", pen, false)
	rec := doJSON(t, router, http.MethodPost, "/api/v1/cart/ANA@example.com", pen, false)
	require.Equal(t, http.StatusOK, rec.Code)
	items := decode(t, rec)["items"].([]interface{})
	require.Len(t, items, 1)
	assert.EqualValues(t, 2, items[0].(map[string]interface{})["quantity"])

	rec = doJSON(t, router, http.MethodPut, "/api/v1/cart/ana@example.com/items/7", map[string]int{"quantity": 0}, false)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(t, router, http.MethodPut, "/api/v1/cart/ana@example.com/items/99", map[string]int{"quantity": 3}, false)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = doJSON(t, router, http.MethodDelete, "/api/v1/cart/ana@example.com/positions/abc", nil, false)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(t, router, http.MethodDelete, "/api/v1/cart/ana@example.com/positions/4", nil, false)
	assert.Len(t, decode(t, rec)["items"], 1)

	rec = doJSON(t, router, http.MethodDelete, "/api/v1/cart/ana@example.com", nil, false)
	assert.Empty(t, decode(t, rec)["items"])
}

func TestFavoriteEndpoints(t *testing.T) {
	router := newTestRouter(t, defaultOptions())

	rec := doJSON(t, router, http.MethodPost, "/api/v1/favorites/ana@example.com", map[string]string{"product_id": "3", "name": "Ruler"}, false)
	require.Equal(t, http.StatusOK, rec.Code)
	items := decode(t, rec)["items"].([]interface{})
	require.Len(t, items, 1)
	assert.Equal(t, testPlaceholder, items[0].(map[string]interface{})["image"])

	rec = doJSON(t, router, http.MethodDelete, "/api/v1/favorites/ana@example.com/3", nil, false)
	assert.Empty(t, decode(t, rec)["items"])

	rec = doJSON(t, router, http.MethodPost, "/api/v1/favorites/ana@example.com", map[string]string{"name": "No id"}, false)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCategoryAdmin(t *testing.T) {
	router := newTestRouter(t, defaultOptions())

	rec := doJSON(t, router, http.MethodPost, "/api/v1/admin/categories", map[string]string{"name": "Office"}, true)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = doJSON(t, router, http.MethodPost, "/api/v1/admin/categories", map[string]string{"name": " office "}, true)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = doJSON(t, router, http.MethodPost, "/api/v1/admin/products",
		map[string]interface{}{"name": "Stapler", "category": "Office", "price": "8"}, true)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = doJSON(t, router, http.MethodPut, "/api/v1/admin/categories/OFFICE", map[string]string{"new_name": "Desk"}, true)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.EqualValues(t, 1, decode(t, rec)["products_moved"])

	rec = doJSON(t, router, http.MethodDelete, "/api/v1/admin/categories/Desk", nil, true)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.EqualValues(t, 1, body["products_moved"])
	assert.Equal(t, "Uncategorized", body["moved_to"])

	rec = doJSON(t, router, http.MethodDelete, "/api/v1/admin/categories/Missing", nil, true)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = doJSON(t, router, http.MethodGet, "/api/v1/categories", nil, false)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode(t, rec)["categories"], 1)
}

func TestProductEndpoints(t *testing.T) {
	router := newTestRouter(t, defaultOptions())

	rec := doJSON(t, router, http.MethodPost, "/api/v1/admin/products",
		map[string]interface{}{"name": "Notebook", "category": "Office", "price": "4.50", "stock": 3}, true)
	require.Equal(t, http.StatusCreated, rec.Code)
	id := decode(t, rec)["id"].(string)

	rec = doJSON(t, router, http.MethodGet, "/api/v1/products/"+id, nil, false)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Office", decode(t, rec)["category"])

	rec = doJSON(t, router, http.MethodPut, "/api/v1/admin/products/"+id,
		map[string]interface{}{"name": "Notebook A5", "price": "5", "stock": 1}, true)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "Notebook A5", decode(t, rec)["name"])

	rec = doJSON(t, router, http.MethodGet, "/api/v1/products?q=a5&min_price=1&in_stock=true&sort=price_asc", nil, false)
	require.Equal(t, http.StatusOK, rec.Code)
	page := decode(t, rec)
	assert.Len(t, page["products"], 1)
	assert.EqualValues(t, 1, page["pagination"].(map[string]interface{})["total"])

	for _, path := range []string{
		"/api/v1/products?min_price=cheap",
		"/api/v1/products?page=first",
		"/api/v1/products?in_stock=maybe",
		"/api/v1/products/abc",
	} {
		rec = doJSON(t, router, http.MethodGet, path, nil, false)
		assert.Equal(t, http.StatusBadRequest, rec.Code, path)
	}

	rec = doJSON(t, router, http.MethodDelete, "/api/v1/admin/products/"+id, nil, true)
	assert.Equal(t, http.StatusOK, rec.Code)
	rec = doJSON(t, router, http.MethodGet, "/api/v1/products/"+id, nil, false)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestUploadImage(t *testing.T) {
	router := newTestRouter(t, defaultOptions())

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, err := w.CreateFormFile("image", "photo.png")
	require.NoError(t, err)
	_, _ = part.Write([]byte("png-bytes"))
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/admin/uploads", &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	req.Header.Set(adminTokenHeader, testAdminToken)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, testPlaceholder, decode(t, rec)["url"])

	rec = doJSON(t, router, http.MethodPost, "/api/v1/admin/uploads", nil, true)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAuthEndpoints(t *testing.T) {
	router := newTestRouter(t, defaultOptions())
	creds := map[string]string{"name": "Ana", "email": "ana@example.com", "password": "hunter22"}

	rec := doJSON(t, router, http.MethodPost, "/api/v1/auth/register", creds, false)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, "customer", decode(t, rec)["role"])

	rec = doJSON(t, router, http.MethodPost, "/api/v1/auth/register", creds, false)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = doJSON(t, router, http.MethodPost, "/api/v1/auth/login", map[string]string{"email": "ana@example.com", "password": "hunter22"}, false)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, router, http.MethodPost, "/api/v1/auth/login", map[string]string{"email": "ana@example.com", "password": "nope"}, false)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	for _, email := range []string{"ana@example.com", "ghost@example.com"} {
		rec = doJSON(t, router, http.MethodPost, "/api/v1/auth/forgot-password", map[string]string{"email": email}, false)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, forgotPasswordReply, decode(t, rec)["message"], "same reply for registered and unknown emails")
	}

	rec = doJSON(t, router, http.MethodPost, "/api/v1/auth/reset-password",
		map[string]string{"token": "bogus", "new_password": "abcdef", "confirm_password": "abcdef"}, false)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(t, router, http.MethodPost, "/api/v1/auth/logout", nil, false)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestWriteError_HidesInternalErrors(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h := NewHandler(Services{}, Options{})

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)

	h.writeError(c, errors.New("pq: connection refused"))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "connection refused")
}
