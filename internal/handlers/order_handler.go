package handlers

import (
	"net/http"

	"golang-storefront-backend/internal/middleware"
	"golang-storefront-backend/internal/services"

	"github.com/gin-gonic/gin"
)

type OrderHandler struct {
	orderService *services.OrderService
}

func NewOrderHandler(orderService *services.OrderService) *OrderHandler {
	return &OrderHandler{
		orderService: orderService,
	}
}

// RegisterRoutes registers the order tracking routes
func (h *OrderHandler) RegisterRoutes(router *gin.RouterGroup, authMiddleware *middleware.AuthMiddleware) {
	orders := router.Group("/orders", authMiddleware.AuthRequired())
	{
		orders.GET("", h.ListOrders)
		orders.POST("/:order_id/cancel", h.CancelOrder)
		orders.GET("/:order_id/invoice", h.GetInvoice)
	}
}

// ListOrders returns the user's orders, server-first. When the commerce API is
// unreachable the mirrored view is served and flagged stale.
func (h *OrderHandler) ListOrders(c *gin.Context) {
	orders, stale, err := h.orderService.List(c.Request.Context(), middleware.GetUserID(c), middleware.GetToken(c))
	if err != nil {
		respondError(c, "Failed to list orders", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"orders": orders,
		"stale":  stale,
	})
}

// CancelOrder requests cancellation of a pending order. A reason is required.
func (h *OrderHandler) CancelOrder(c *gin.Context) {
	var req CancelOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "Invalid request body",
			Message: err.Error(),
		})
		return
	}

	err := h.orderService.Cancel(c.Request.Context(), middleware.GetUserID(c), middleware.GetToken(c), c.Param("order_id"), req.Reason)
	if err != nil {
		respondError(c, "Failed to cancel order", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "cancelled"})
}

// GetInvoice streams the server-rendered invoice PDF.
func (h *OrderHandler) GetInvoice(c *gin.Context) {
	invoice, err := h.orderService.Invoice(c.Request.Context(), middleware.GetToken(c), c.Param("order_id"))
	if err != nil {
		respondError(c, "Failed to fetch invoice", err)
		return
	}
	c.Data(http.StatusOK, "application/pdf", invoice)
}

type CancelOrderRequest struct {
	Reason string `json:"reason" binding:"required"`
}
