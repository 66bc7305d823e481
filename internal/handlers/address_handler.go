package handlers

import (
	"net/http"

	"golang-storefront-backend/internal/middleware"
	"golang-storefront-backend/internal/models"
	"golang-storefront-backend/internal/services"

	"github.com/gin-gonic/gin"
)

type AddressHandler struct {
	addressService *services.AddressService
}

func NewAddressHandler(addressService *services.AddressService) *AddressHandler {
	return &AddressHandler{
		addressService: addressService,
	}
}

// RegisterRoutes registers the address book routes
func (h *AddressHandler) RegisterRoutes(router *gin.RouterGroup, authMiddleware *middleware.AuthMiddleware) {
	addresses := router.Group("/addresses", authMiddleware.AuthRequired())
	{
		addresses.GET("", h.ListAddresses)
		addresses.POST("", h.CreateAddress)
		addresses.DELETE("/:address_id", h.DeleteAddress)
	}
}

// ListAddresses returns the user's saved addresses.
func (h *AddressHandler) ListAddresses(c *gin.Context) {
	addresses, err := h.addressService.List(c.Request.Context(), middleware.GetUserID(c))
	if err != nil {
		respondError(c, "Failed to list addresses", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"addresses": addresses})
}

// CreateAddress saves a new address; marking it default clears other defaults.
func (h *AddressHandler) CreateAddress(c *gin.Context) {
	var req CreateAddressRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "Invalid request body",
			Message: err.Error(),
		})
		return
	}

	address := &models.Address{
		Type:         req.Type,
		AddressLine1: req.AddressLine1,
		AddressLine2: req.AddressLine2,
		City:         req.City,
		State:        req.State,
		Country:      req.Country,
		PinCode:      req.PinCode,
		IsDefault:    req.IsDefault,
	}

	created, err := h.addressService.Create(c.Request.Context(), middleware.GetUserID(c), address)
	if err != nil {
		respondError(c, "Failed to create address", err)
		return
	}
	c.JSON(http.StatusCreated, created)
}

// DeleteAddress removes an address owned by the user.
func (h *AddressHandler) DeleteAddress(c *gin.Context) {
	if err := h.addressService.Delete(c.Request.Context(), middleware.GetUserID(c), c.Param("address_id")); err != nil {
		respondError(c, "Failed to delete address", err)
		return
	}
	c.Status(http.StatusNoContent)
}

type CreateAddressRequest struct {
	Type         string `json:"type"`
	AddressLine1 string `json:"address_line1" binding:"required"`
	AddressLine2 string `json:"address_line2"`
	City         string `json:"city" binding:"required"`
	State        string `json:"state" binding:"required"`
	Country      string `json:"country"`
	PinCode      string `json:"pin_code" binding:"required"`
	IsDefault    bool   `json:"is_default"`
}
