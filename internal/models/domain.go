package models

import (
	"golang-storefront-backend/internal/money"
)

// CartLine is one line item in a cart. Identity key is ProductID: a cart never
// holds two lines for the same product.
type CartLine struct {
	ProductID  string            `json:"product_id"`
	Name       string            `json:"name"`
	UnitPrice  money.Amount      `json:"unit_price"` // minor units
	Quantity   int               `json:"quantity"`
	Attributes map[string]string `json:"attributes,omitempty"` // size, color, ...
}

// OrderItem is a cart line frozen into an order payload. LineSubtotal is
// always UnitPrice * Quantity, computed before any network call.
type OrderItem struct {
	ProductID    string       `json:"product_id"`
	Name         string       `json:"name"`
	UnitPrice    money.Amount `json:"unit_price"`
	Quantity     int          `json:"quantity"`
	LineSubtotal money.Amount `json:"line_subtotal"`
}

type ShippingAddress struct {
	Address string `json:"address"`
	City    string `json:"city"`
	State   string `json:"state"`
	PinCode string `json:"pin_code"`
	Country string `json:"country"`
}

// PaymentSession is the gateway handle returned by the commerce API for online
// payment. Its amount must equal the locally computed order total exactly.
type PaymentSession struct {
	GatewayOrderID string       `json:"gateway_order_id"`
	Amount         money.Amount `json:"amount"`
	Currency       string       `json:"currency"`
}

// PaymentVerification is the gateway's client-side callback record, consumed
// once by the commerce API to confirm payment.
type PaymentVerification struct {
	GatewayOrderID   string `json:"razorpay_order_id"`
	GatewayPaymentID string `json:"razorpay_payment_id"`
	Signature        string `json:"razorpay_signature"`
	OrderID          string `json:"order_id"`
}

type PaymentMethod string

const (
	PaymentCOD    PaymentMethod = "cod"
	PaymentOnline PaymentMethod = "online"
)

// Order statuses as reported by the commerce API.
const (
	OrderStatusPending    = "pending"
	OrderStatusProcessing = "processing"
	OrderStatusShipped    = "shipped"
	OrderStatusDelivered  = "delivered"
	OrderStatusCancelled  = "cancelled"
)

// OrderSummary is the client's read-through view of a server-owned order.
type OrderSummary struct {
	OrderID         string          `json:"order_id"`
	Items           []OrderItem     `json:"items"`
	ShippingAddress ShippingAddress `json:"shipping_address"`
	TotalAmount     money.Amount    `json:"total_amount"`
	Status          string          `json:"status"`
	PaymentMethod   PaymentMethod   `json:"payment_method"`
	CreatedAt       int64           `json:"created_at"`
}
