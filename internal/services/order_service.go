package services

import (
	"context"
	"log"
	"time"

	"golang-storefront-backend/internal/faults"
	"golang-storefront-backend/internal/models"
	"golang-storefront-backend/internal/repositories"
	"golang-storefront-backend/pkg/messaging"
)

// OrderService reads server-owned orders through the commerce API and keeps
// the MongoDB mirror fresh. The mirror answers only when the API is
// unreachable; it never overrides a reachable server.
type OrderService struct {
	backend  OrderBackend
	mirror   repositories.OrderSnapshotRepository
	producer *messaging.KafkaProducer
}

func NewOrderService(backend OrderBackend, mirror repositories.OrderSnapshotRepository, producer *messaging.KafkaProducer) *OrderService {
	return &OrderService{
		backend:  backend,
		mirror:   mirror,
		producer: producer,
	}
}

// List fetches the user's orders from the commerce API and refreshes the
// mirror. On a network fault the mirror serves the last known view; any other
// backend error propagates.
func (s *OrderService) List(ctx context.Context, userID, token string) ([]models.OrderSummary, bool, error) {
	orders, err := s.backend.ListOrders(ctx, token)
	if err != nil {
		if faults.Is(err, faults.Network) && s.mirror != nil {
			snapshots, mirrorErr := s.mirror.GetByUserID(ctx, userID)
			if mirrorErr != nil {
				return nil, false, err
			}
			summaries := make([]models.OrderSummary, 0, len(snapshots))
			for _, snap := range snapshots {
				summaries = append(summaries, snap.Summary())
			}
			return summaries, true, nil
		}
		return nil, false, err
	}

	if s.mirror != nil {
		for _, order := range orders {
			snapshot := &models.OrderSnapshot{
				OrderID:         order.OrderID,
				UserID:          userID,
				Items:           order.Items,
				ShippingAddress: order.ShippingAddress,
				TotalAmount:     order.TotalAmount,
				Status:          order.Status,
				PaymentMethod:   order.PaymentMethod,
				CreatedAt:       order.CreatedAt,
			}
			if err := s.mirror.Upsert(ctx, snapshot); err != nil {
				log.Printf("failed to mirror order %s: %v", order.OrderID, err)
			}
		}
	}

	return orders, false, nil
}

// Cancel requests cancellation of a pending order. A reason is mandatory; the
// server decides whether the order is still cancellable, the mirror follows.
func (s *OrderService) Cancel(ctx context.Context, userID, token, orderID, reason string) error {
	if orderID == "" {
		return faults.New(faults.Validation, "order id is required")
	}
	if reason == "" {
		return faults.New(faults.Validation, "cancellation reason is required")
	}

	if err := s.backend.CancelOrder(ctx, token, orderID, reason); err != nil {
		return err
	}

	if s.mirror != nil {
		if err := s.mirror.UpdateStatus(ctx, orderID, models.OrderStatusCancelled); err != nil {
			log.Printf("failed to update mirrored order %s: %v", orderID, err)
		}
	}

	if s.producer != nil {
		s.producer.SendMessage(messaging.TopicOrderEvents, orderID, messaging.OrderEvent{
			Type:    "order_cancelled",
			OrderID: orderID,
			UserID:  userID,
			Data: map[string]interface{}{
				"reason":       reason,
				"cancelled_at": time.Now().Unix(),
			},
		})
	}

	return nil
}

// Invoice fetches the server-rendered invoice PDF for an order.
func (s *OrderService) Invoice(ctx context.Context, token, orderID string) ([]byte, error) {
	if orderID == "" {
		return nil, faults.New(faults.Validation, "order id is required")
	}
	return s.backend.FetchInvoice(ctx, token, orderID)
}
