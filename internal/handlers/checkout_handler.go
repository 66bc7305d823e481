package handlers

import (
	"io"
	"net/http"

	"golang-storefront-backend/internal/gateway"
	"golang-storefront-backend/internal/middleware"
	"golang-storefront-backend/internal/models"
	"golang-storefront-backend/internal/services"

	"github.com/gin-gonic/gin"
)

type CheckoutHandler struct {
	checkoutService *services.CheckoutService
	razorpay        *gateway.RazorpayGateway
}

func NewCheckoutHandler(checkoutService *services.CheckoutService, razorpay *gateway.RazorpayGateway) *CheckoutHandler {
	return &CheckoutHandler{
		checkoutService: checkoutService,
		razorpay:        razorpay,
	}
}

// RegisterRoutes registers checkout routes. Everything but the gateway
// webhook requires an authenticated session.
func (h *CheckoutHandler) RegisterRoutes(router *gin.RouterGroup, authMiddleware *middleware.AuthMiddleware) {
	checkout := router.Group("/checkout", authMiddleware.AuthRequired())
	{
		checkout.POST("/address", h.SelectAddress)
		checkout.POST("/submit", h.Submit)
		checkout.POST("/abandon", h.Abandon)
		checkout.POST("/cancel", h.Cancel)
		checkout.GET("/status", h.Status)
		checkout.POST("/callback", h.PaymentCallback)
		checkout.POST("/failure", h.PaymentFailure)
	}

	// Gateway webhooks carry their own signature instead of a session.
	router.POST("/razorpay/webhook", h.Webhook)
}

// SelectAddress pins the shipping address for the next submit.
func (h *CheckoutHandler) SelectAddress(c *gin.Context) {
	var req SelectAddressRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "Invalid request body",
			Message: err.Error(),
		})
		return
	}

	if err := h.checkoutService.SelectAddress(c.Request.Context(), middleware.GetUserID(c), req.AddressID); err != nil {
		respondError(c, "Failed to select address", err)
		return
	}
	c.JSON(http.StatusOK, h.checkoutService.Status(middleware.GetUserID(c)))
}

// Submit starts the checkout protocol for the user's current cart.
func (h *CheckoutHandler) Submit(c *gin.Context) {
	var req SubmitCheckoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "Invalid request body",
			Message: err.Error(),
		})
		return
	}

	status, err := h.checkoutService.Submit(
		c.Request.Context(),
		middleware.GetUserID(c),
		middleware.GetToken(c),
		models.PaymentMethod(req.PaymentMethod),
	)
	if err != nil {
		respondError(c, "Checkout failed", err)
		return
	}
	c.JSON(http.StatusOK, status)
}

// Abandon returns an awaiting-gateway flow to address selection.
func (h *CheckoutHandler) Abandon(c *gin.Context) {
	if err := h.checkoutService.Abandon(middleware.GetUserID(c)); err != nil {
		respondError(c, "Failed to abandon checkout", err)
		return
	}
	c.JSON(http.StatusOK, h.checkoutService.Status(middleware.GetUserID(c)))
}

// Cancel abandons the whole checkout flow.
func (h *CheckoutHandler) Cancel(c *gin.Context) {
	if err := h.checkoutService.Cancel(middleware.GetUserID(c)); err != nil {
		respondError(c, "Failed to cancel checkout", err)
		return
	}
	c.JSON(http.StatusOK, h.checkoutService.Status(middleware.GetUserID(c)))
}

// Status reports the user's current checkout flow state.
func (h *CheckoutHandler) Status(c *gin.Context) {
	c.JSON(http.StatusOK, h.checkoutService.Status(middleware.GetUserID(c)))
}

// PaymentCallback receives the gateway's client-side success record and routes
// it into the waiting flow for verification.
func (h *CheckoutHandler) PaymentCallback(c *gin.Context) {
	var verification models.PaymentVerification
	if err := c.ShouldBindJSON(&verification); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "Invalid request body",
			Message: err.Error(),
		})
		return
	}

	if err := h.razorpay.HandleSuccess(verification); err != nil {
		respondError(c, "Failed to process payment callback", err)
		return
	}
	c.JSON(http.StatusOK, h.checkoutService.Status(middleware.GetUserID(c)))
}

// PaymentFailure receives a client-side declined/aborted payment.
func (h *CheckoutHandler) PaymentFailure(c *gin.Context) {
	var req PaymentFailureRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "Invalid request body",
			Message: err.Error(),
		})
		return
	}

	if err := h.razorpay.HandleFailure(req.GatewayOrderID, req.Reason); err != nil {
		respondError(c, "Failed to process payment failure", err)
		return
	}
	c.JSON(http.StatusOK, h.checkoutService.Status(middleware.GetUserID(c)))
}

// Webhook handles signed Razorpay webhooks.
func (h *CheckoutHandler) Webhook(c *gin.Context) {
	payload, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "Failed to read webhook payload",
			Message: err.Error(),
		})
		return
	}

	signature := c.GetHeader("X-Razorpay-Signature")
	if err := h.razorpay.HandleWebhook(payload, signature); err != nil {
		respondError(c, "Webhook rejected", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// Request structs

type SelectAddressRequest struct {
	AddressID string `json:"address_id" binding:"required"`
}

type SubmitCheckoutRequest struct {
	PaymentMethod string `json:"payment_method" binding:"required"`
}

type PaymentFailureRequest struct {
	GatewayOrderID string `json:"gateway_order_id" binding:"required"`
	Reason         string `json:"reason"`
}
