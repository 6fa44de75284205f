package api

import (
	"net/http"

	"storefront-service/internal/service"

	"github.com/gin-gonic/gin"
)

// createBill handles checkout
func (h *Handler) createBill(c *gin.Context) {
	var req service.CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body", err)
		return
	}
	receipt, err := h.orders.CreateOrder(c.Request.Context(), &req)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, receipt)
}

// listBills returns the receipts of the customer given by ?email=
func (h *Handler) listBills(c *gin.Context) {
	receipts, err := h.orders.ListReceipts(c.Request.Context(), c.Query("email"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"bills": receipts})
}

func (h *Handler) listAllBills(c *gin.Context) {
	receipts, err := h.orders.ListAllReceipts(c.Request.Context())
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"bills": receipts})
}

func (h *Handler) listCustomers(c *gin.Context) {
	summaries, err := h.orders.ListCustomerSummaries(c.Request.Context())
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"customers": summaries})
}

func (h *Handler) listCustomerBills(c *gin.Context) {
	receipts, err := h.orders.ListReceipts(c.Request.Context(), c.Param("email"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"bills": receipts})
}

type statusRequest struct {
	Status string `json:"status" binding:"required"`
}

// updateBillStatus sets an order status from its administrative label
func (h *Handler) updateBillStatus(c *gin.Context) {
	billID, ok := int64Param(c, "id")
	if !ok {
		return
	}
	var req statusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body", err)
		return
	}
	receipt, err := h.orders.UpdateStatus(c.Request.Context(), billID, req.Status)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, receipt)
}
