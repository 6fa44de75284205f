package api

import (
	"net/http"
	"strconv"

	"storefront-service/internal/models"

	"github.com/gin-gonic/gin"
)

func (h *Handler) getCart(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"items": h.sessions.Cart(c.Param("email"))})
}

func (h *Handler) addToCart(c *gin.Context) {
	var entry models.CartEntry
	if err := c.ShouldBindJSON(&entry); err != nil {
		badRequest(c, "Invalid request body", err)
		return
	}
	items, err := h.sessions.AddToCart(c.Param("email"), entry)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}

type quantityRequest struct {
	Quantity int `json:"quantity"`
}

func (h *Handler) setCartQuantity(c *gin.Context) {
	var req quantityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body", err)
		return
	}
	items, err := h.sessions.SetCartQuantity(c.Param("email"), c.Param("product_id"), req.Quantity)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}

// removeCartIndex drops a cart position. Bad indexes leave the cart unchanged.
func (h *Handler) removeCartIndex(c *gin.Context) {
	index, err := strconv.Atoi(c.Param("index"))
	if err != nil {
		badRequest(c, "Invalid index", nil)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": h.sessions.RemoveCartIndex(c.Param("email"), index)})
}

func (h *Handler) clearCart(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"items": h.sessions.ClearCart(c.Param("email"))})
}

func (h *Handler) getFavorites(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"items": h.sessions.Favorites(c.Param("email"))})
}

func (h *Handler) addFavorite(c *gin.Context) {
	var entry models.FavoriteEntry
	if err := c.ShouldBindJSON(&entry); err != nil {
		badRequest(c, "Invalid request body", err)
		return
	}
	items, err := h.sessions.AddFavorite(c.Request.Context(), c.Param("email"), entry)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}

func (h *Handler) removeFavorite(c *gin.Context) {
	items, err := h.sessions.RemoveFavorite(c.Request.Context(), c.Param("email"), c.Param("product_id"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}
