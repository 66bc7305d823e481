package handlers

import (
	"net/http"

	"golang-storefront-backend/internal/middleware"
	"golang-storefront-backend/internal/models"
	"golang-storefront-backend/internal/money"
	"golang-storefront-backend/internal/services"

	"github.com/gin-gonic/gin"
)

type CartHandler struct {
	cartService *services.CartService
}

func NewCartHandler(cartService *services.CartService) *CartHandler {
	return &CartHandler{
		cartService: cartService,
	}
}

// RegisterRoutes registers the routes for cart management. Guests use the
// X-Device-Key header as their owner key.
func (h *CartHandler) RegisterRoutes(router *gin.RouterGroup, authMiddleware *middleware.AuthMiddleware) {
	cart := router.Group("/cart", authMiddleware.OptionalAuth())
	{
		cart.GET("", h.GetCart)
		cart.POST("/items", h.AddItem)
		cart.PUT("/items/:product_id", h.SetQuantity)
		cart.DELETE("/items/:product_id", h.RemoveItem)
		cart.DELETE("", h.ClearCart)
	}
}

// GetCart returns the owner's cart with derived totals.
func (h *CartHandler) GetCart(c *gin.Context) {
	snap, err := h.cartService.Snapshot(c.Request.Context(), middleware.GetOwnerKey(c))
	if err != nil {
		respondError(c, "Failed to get cart", err)
		return
	}
	c.JSON(http.StatusOK, snap)
}

// AddItem merges a product into the cart; an existing line gains quantity.
func (h *CartHandler) AddItem(c *gin.Context) {
	var req AddCartItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "Invalid request body",
			Message: err.Error(),
		})
		return
	}

	line := models.CartLine{
		ProductID:  req.ProductID,
		Name:       req.Name,
		UnitPrice:  money.Amount(req.UnitPrice),
		Quantity:   req.Quantity,
		Attributes: req.Attributes,
	}

	snap, err := h.cartService.Add(c.Request.Context(), middleware.GetOwnerKey(c), line)
	if err != nil {
		respondError(c, "Failed to add item to cart", err)
		return
	}
	c.JSON(http.StatusOK, snap)
}

// SetQuantity replaces a line's quantity; zero removes the line.
func (h *CartHandler) SetQuantity(c *gin.Context) {
	var req SetQuantityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "Invalid request body",
			Message: err.Error(),
		})
		return
	}

	snap, err := h.cartService.SetQuantity(c.Request.Context(), middleware.GetOwnerKey(c), c.Param("product_id"), req.Quantity)
	if err != nil {
		respondError(c, "Failed to update cart item", err)
		return
	}
	c.JSON(http.StatusOK, snap)
}

// RemoveItem deletes a line. Removing an absent product id is a no-op.
func (h *CartHandler) RemoveItem(c *gin.Context) {
	snap, err := h.cartService.Remove(c.Request.Context(), middleware.GetOwnerKey(c), c.Param("product_id"))
	if err != nil {
		respondError(c, "Failed to remove item from cart", err)
		return
	}
	c.JSON(http.StatusOK, snap)
}

// ClearCart empties the cart.
func (h *CartHandler) ClearCart(c *gin.Context) {
	if err := h.cartService.Clear(c.Request.Context(), middleware.GetOwnerKey(c)); err != nil {
		respondError(c, "Failed to clear cart", err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Request structs

type AddCartItemRequest struct {
	ProductID  string            `json:"product_id" binding:"required"`
	Name       string            `json:"name"`
	UnitPrice  int64             `json:"unit_price" binding:"required,min=0"` // minor units
	Quantity   int               `json:"quantity"`
	Attributes map[string]string `json:"attributes"`
}

type SetQuantityRequest struct {
	Quantity int `json:"quantity"`
}
