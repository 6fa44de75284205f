package api

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"storefront-service/internal/service"
	"storefront-service/internal/util"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Services groups the application services the handlers call
type Services struct {
	Catalog  *service.CatalogService
	Orders   *service.OrderService
	Accounts *service.AccountService
	Sessions *service.SessionService
	Assets   *service.AssetUploader
}

// Options configures the router
type Options struct {
	AdminToken     string
	AllowedOrigins []string
	// Ready reports whether the backing stores are reachable. Nil means always ready.
	Ready func(ctx context.Context) error
}

// Handler contains HTTP handlers
type Handler struct {
	catalog  *service.CatalogService
	orders   *service.OrderService
	accounts *service.AccountService
	sessions *service.SessionService
	assets   *service.AssetUploader
	opts     Options
	logger   *zap.Logger
}

// NewHandler creates a new HTTP handler
func NewHandler(svc Services, opts Options) *Handler {
	return &Handler{
		catalog:  svc.Catalog,
		orders:   svc.Orders,
		accounts: svc.Accounts,
		sessions: svc.Sessions,
		assets:   svc.Assets,
		opts:     opts,
		logger:   util.GetLogger(),
	}
}

// SetupRoutes sets up HTTP routes
func (h *Handler) SetupRoutes(router *gin.Engine) {
	router.Use(gin.Recovery())
	router.Use(corsMiddleware(h.opts.AllowedOrigins))
	router.Use(prometheusMiddleware())
	router.Use(gin.Logger())

	router.GET("/health", h.healthCheck)
	router.GET("/ready", h.readinessCheck)

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := router.Group("/api/v1")
	{
		v1.GET("/products", h.listProducts)
		v1.GET("/products/:id", h.getProduct)
		v1.GET("/categories", h.listCategories)

		v1.GET("/cart/:email", h.getCart)
		v1.POST("/cart/:email", h.addToCart)
		v1.PUT("/cart/:email/items/:product_id", h.setCartQuantity)
		v1.DELETE("/cart/:email/positions/:index", h.removeCartIndex)
		v1.DELETE("/cart/:email", h.clearCart)

		v1.GET("/favorites/:email", h.getFavorites)
		v1.POST("/favorites/:email", h.addFavorite)
		v1.DELETE("/favorites/:email/:product_id", h.removeFavorite)

		v1.POST("/auth/register", h.register)
		v1.POST("/auth/login", h.login)
		v1.POST("/auth/logout", h.logout)
		v1.POST("/auth/forgot-password", h.forgotPassword)
		v1.POST("/auth/reset-password", h.resetPassword)

		v1.POST("/bills", h.createBill)
		v1.GET("/bills", h.listBills)
	}

	admin := v1.Group("/admin", adminAuth(h.opts.AdminToken))
	{
		admin.POST("/products", h.createProduct)
		admin.PUT("/products/:id", h.updateProduct)
		admin.DELETE("/products/:id", h.deleteProduct)
		admin.POST("/uploads", h.uploadImage)

		admin.POST("/categories", h.createCategory)
		admin.PUT("/categories/:name", h.renameCategory)
		admin.DELETE("/categories/:name", h.deleteCategory)

		admin.GET("/bills", h.listAllBills)
		admin.PUT("/bills/:id/status", h.updateBillStatus)
		admin.GET("/customers", h.listCustomers)
		admin.GET("/customers/:email/bills", h.listCustomerBills)
	}
}

// healthCheck handles health check requests
func (h *Handler) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "healthy",
		"time":   time.Now().Unix(),
	})
}

// readinessCheck handles readiness check requests
func (h *Handler) readinessCheck(c *gin.Context) {
	if h.opts.Ready != nil {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		if err := h.opts.Ready(ctx); err != nil {
			h.logger.Warn("Readiness check failed", zap.Error(err))
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status": "unavailable",
				"time":   time.Now().Unix(),
			})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{
		"status": "ready",
		"time":   time.Now().Unix(),
	})
}

func corsMiddleware(origins []string) gin.HandlerFunc {
	cfg := cors.Config{
		AllowMethods:  []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowHeaders:  []string{"Origin", "Content-Type", "Accept", adminTokenHeader},
		ExposeHeaders: []string{"Content-Length"},
		MaxAge:        12 * time.Hour,
	}
	for _, o := range origins {
		if o == "*" {
			cfg.AllowAllOrigins = true
		}
	}
	if !cfg.AllowAllOrigins {
		if len(origins) == 0 {
			cfg.AllowAllOrigins = true
		} else {
			cfg.AllowOrigins = origins
		}
	}
	return cors.New(cfg)
}

// prometheusMiddleware collects HTTP metrics
func prometheusMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(c.Writer.Status())

		util.HTTPRequestDuration.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			status,
		).Observe(duration)

		util.HTTPRequestsTotal.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			status,
		).Inc()
	}
}
