package models

import (
	"time"

	"golang-storefront-backend/internal/money"
)

// OrderSnapshot is the MongoDB mirror of a server-owned order, refreshed on
// every successful list fetch and after checkout completion. It only serves
// reads when the commerce API is unreachable; the server stays authoritative.
type OrderSnapshot struct {
	OrderID         string          `bson:"_id" json:"order_id"`
	UserID          string          `bson:"user_id" json:"user_id"`
	Items           []OrderItem     `bson:"items" json:"items"`
	ShippingAddress ShippingAddress `bson:"shipping_address" json:"shipping_address"`
	TotalAmount     money.Amount    `bson:"total_amount" json:"total_amount"`
	Status          string          `bson:"status" json:"status"`
	PaymentMethod   PaymentMethod   `bson:"payment_method" json:"payment_method"`
	CreatedAt       int64           `bson:"created_at" json:"created_at"`
	MirroredAt      time.Time       `bson:"mirrored_at" json:"mirrored_at"`
}

// Summary converts the mirror document back to the read-through view.
func (s *OrderSnapshot) Summary() OrderSummary {
	return OrderSummary{
		OrderID:         s.OrderID,
		Items:           s.Items,
		ShippingAddress: s.ShippingAddress,
		TotalAmount:     s.TotalAmount,
		Status:          s.Status,
		PaymentMethod:   s.PaymentMethod,
		CreatedAt:       s.CreatedAt,
	}
}
