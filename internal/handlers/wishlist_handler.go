package handlers

import (
	"net/http"

	"golang-storefront-backend/internal/middleware"
	"golang-storefront-backend/internal/services"

	"github.com/gin-gonic/gin"
)

type WishlistHandler struct {
	wishlistService *services.WishlistService
}

func NewWishlistHandler(wishlistService *services.WishlistService) *WishlistHandler {
	return &WishlistHandler{
		wishlistService: wishlistService,
	}
}

// RegisterRoutes registers the wishlist routes. Membership operations accept
// guest traffic; sync and migrate require an authenticated session.
func (h *WishlistHandler) RegisterRoutes(router *gin.RouterGroup, authMiddleware *middleware.AuthMiddleware) {
	wishlist := router.Group("/wishlist", authMiddleware.OptionalAuth())
	{
		wishlist.GET("", h.GetWishlist)
		wishlist.POST("/items", h.AddItem)
		wishlist.DELETE("/items/:product_id", h.RemoveItem)
		wishlist.POST("/toggle", h.ToggleItem)
		wishlist.POST("/logout", h.Logout)
	}

	authed := router.Group("/wishlist", authMiddleware.AuthRequired())
	{
		authed.POST("/sync", h.Sync)
		authed.POST("/migrate", h.MigrateGuest)
	}
}

// GetWishlist returns the owner's wishlist product ids.
func (h *WishlistHandler) GetWishlist(c *gin.Context) {
	members, err := h.wishlistService.Members(c.Request.Context(), middleware.GetOwnerKey(c))
	if err != nil {
		respondError(c, "Failed to get wishlist", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"wishlist": members})
}

// AddItem puts a product on the wishlist. Adding an existing member is
// reported with added=false and no error.
func (h *WishlistHandler) AddItem(c *gin.Context) {
	var req WishlistItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "Invalid request body",
			Message: err.Error(),
		})
		return
	}

	added, err := h.wishlistService.Add(c.Request.Context(), middleware.GetOwnerKey(c), req.ProductID)
	if err != nil {
		respondError(c, "Failed to add to wishlist", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"added": added})
}

// RemoveItem takes a product off the wishlist.
func (h *WishlistHandler) RemoveItem(c *gin.Context) {
	removed, err := h.wishlistService.Remove(c.Request.Context(), middleware.GetOwnerKey(c), c.Param("product_id"))
	if err != nil {
		respondError(c, "Failed to remove from wishlist", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"removed": removed})
}

// ToggleItem flips membership and returns the resulting state.
func (h *WishlistHandler) ToggleItem(c *gin.Context) {
	var req WishlistItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "Invalid request body",
			Message: err.Error(),
		})
		return
	}

	member, err := h.wishlistService.Toggle(c.Request.Context(), middleware.GetOwnerKey(c), req.ProductID)
	if err != nil {
		respondError(c, "Failed to toggle wishlist item", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"member": member})
}

// Sync runs the login reconciliation: the server wishlist replaces the local
// view for this owner. Guest entries stay local until an explicit migrate.
func (h *WishlistHandler) Sync(c *gin.Context) {
	userID := middleware.GetUserID(c)
	err := h.wishlistService.Login(c.Request.Context(), userID, userID, middleware.GetToken(c))
	if err != nil {
		respondError(c, "Failed to sync wishlist", err)
		return
	}

	members, err := h.wishlistService.Members(c.Request.Context(), userID)
	if err != nil {
		respondError(c, "Failed to get wishlist", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"wishlist": members})
}

// MigrateGuest uploads a guest wishlist into the authenticated server set.
func (h *WishlistHandler) MigrateGuest(c *gin.Context) {
	var req MigrateGuestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "Invalid request body",
			Message: err.Error(),
		})
		return
	}

	userID := middleware.GetUserID(c)
	if err := h.wishlistService.MigrateGuest(c.Request.Context(), userID, req.GuestKey); err != nil {
		respondError(c, "Failed to migrate guest wishlist", err)
		return
	}

	members, err := h.wishlistService.Members(c.Request.Context(), userID)
	if err != nil {
		respondError(c, "Failed to get wishlist", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"wishlist": members})
}

// Logout discards the owner's in-memory wishlist session.
func (h *WishlistHandler) Logout(c *gin.Context) {
	h.wishlistService.Logout(middleware.GetOwnerKey(c))
	c.Status(http.StatusNoContent)
}

// Request structs

type WishlistItemRequest struct {
	ProductID string `json:"product_id" binding:"required"`
}

type MigrateGuestRequest struct {
	GuestKey string `json:"guest_key" binding:"required"`
}
