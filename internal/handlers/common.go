package handlers

import (
	"net/http"

	"golang-storefront-backend/internal/faults"

	"github.com/gin-gonic/gin"
)

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// respondError maps fault kinds onto HTTP statuses. Unknown errors are 500s
// with their message passed through, matching the rest of the API surface.
func respondError(c *gin.Context, title string, err error) {
	status := http.StatusInternalServerError
	switch faults.KindOf(err) {
	case faults.Validation:
		status = http.StatusBadRequest
	case faults.NotFound:
		status = http.StatusNotFound
	case faults.Conflict, faults.AmountMismatch:
		status = http.StatusConflict
	case faults.Network:
		status = http.StatusServiceUnavailable
	case faults.BackendRejected:
		status = http.StatusBadGateway
	case faults.PaymentDeclined, faults.VerificationFailed:
		status = http.StatusPaymentRequired
	}

	c.JSON(status, ErrorResponse{
		Error:   title,
		Message: err.Error(),
	})
}
