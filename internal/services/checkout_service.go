package services

import (
	"context"
	"log"
	"sync"
	"time"

	"golang-storefront-backend/internal/faults"
	"golang-storefront-backend/internal/models"
	"golang-storefront-backend/internal/money"
	"golang-storefront-backend/internal/repositories"
	"golang-storefront-backend/pkg/messaging"

	"github.com/google/uuid"
)

// CheckoutState is the orchestrator's per-owner state machine position.
type CheckoutState string

const (
	StateIdle            CheckoutState = "idle"
	StateAddressSelected CheckoutState = "address_selected"
	StateSubmitting      CheckoutState = "submitting"
	StateAwaitingGateway CheckoutState = "awaiting_gateway"
	StateVerifying       CheckoutState = "verifying"
	StateCompleted       CheckoutState = "completed"
	StateFailed          CheckoutState = "failed"
	StateCancelled       CheckoutState = "cancelled"
	// StatePaymentUnknown is entered when the gateway produced neither a
	// success nor a failure callback within the bounded wait. Recoverable: a
	// late gateway success is still verified, and resubmit is allowed.
	StatePaymentUnknown CheckoutState = "payment_status_unknown"
)

// FailureReason discriminates terminal checkout failures.
type FailureReason string

const (
	ReasonNone                  FailureReason = ""
	ReasonOrderCreationFailed   FailureReason = "order_creation_failed"
	ReasonPaymentSessionMissing FailureReason = "payment_session_missing"
	ReasonPaymentDeclined       FailureReason = "payment_declined"
	ReasonVerificationFailed    FailureReason = "verification_failed"
	ReasonAmountMismatch        FailureReason = "amount_mismatch"
)

// CreateOrderRequest is the order payload. Every amount is an integer in minor
// units; no floating-point currency value crosses the network boundary.
type CreateOrderRequest struct {
	Items           []models.OrderItem     `json:"items"`
	TotalAmount     money.Amount           `json:"total_amount"`
	Currency        string                 `json:"currency"`
	ShippingAddress models.ShippingAddress `json:"shipping_address"`
	PaymentMethod   models.PaymentMethod   `json:"payment_method"`
}

type CreateOrderResult struct {
	OrderID        string
	PaymentSession *models.PaymentSession // nil for cash on delivery
}

// OrderBackend is the commerce API consumed by checkout and order tracking.
type OrderBackend interface {
	CreateOrder(ctx context.Context, token string, req *CreateOrderRequest) (*CreateOrderResult, error)
	VerifyPayment(ctx context.Context, token string, verification models.PaymentVerification) error
	CancelOrder(ctx context.Context, token, orderID, reason string) error
	FetchInvoice(ctx context.Context, token, orderID string) ([]byte, error)
	ListOrders(ctx context.Context, token string) ([]models.OrderSummary, error)
}

// PaymentGateway hands a payment session to the external gateway UI. Exactly
// one of onSuccess/onFailure fires per session, or neither when the user never
// finishes; the orchestrator bounds that wait itself.
type PaymentGateway interface {
	Open(session models.PaymentSession, onSuccess func(models.PaymentVerification), onFailure func(reason string)) error
}

// CheckoutStatus is the externally visible flow state.
type CheckoutStatus struct {
	State   CheckoutState          `json:"state"`
	Reason  FailureReason          `json:"reason,omitempty"`
	OrderID string                 `json:"order_id,omitempty"`
	Session *models.PaymentSession `json:"payment_session,omitempty"`
}

// CheckoutService drives a cart snapshot through order creation, gateway
// handoff and payment verification to one consistent outcome. One in-flight
// checkout per owner; every terminal failure leaves the cart intact.
type CheckoutService struct {
	cart        *CartService
	addressRepo repositories.AddressRepository
	backend     OrderBackend
	gateway     PaymentGateway
	orderMirror repositories.OrderSnapshotRepository
	producer    *messaging.KafkaProducer
	taxBps      int
	gatewayWait time.Duration

	mu    sync.Mutex
	flows map[string]*checkoutFlow
}

type checkoutFlow struct {
	mu        sync.Mutex
	state     CheckoutState
	reason    FailureReason
	token     string
	addressID uuid.UUID
	address   *models.Address
	snapshot  *CartSnapshot
	orderID   string
	session   *models.PaymentSession
	method    models.PaymentMethod
	timer     *time.Timer
}

func NewCheckoutService(
	cart *CartService,
	addressRepo repositories.AddressRepository,
	backend OrderBackend,
	gateway PaymentGateway,
	orderMirror repositories.OrderSnapshotRepository,
	producer *messaging.KafkaProducer,
	taxBps int,
	gatewayWait time.Duration,
) *CheckoutService {
	return &CheckoutService{
		cart:        cart,
		addressRepo: addressRepo,
		backend:     backend,
		gateway:     gateway,
		orderMirror: orderMirror,
		producer:    producer,
		taxBps:      taxBps,
		gatewayWait: gatewayWait,
		flows:       make(map[string]*checkoutFlow),
	}
}

// SelectAddress pins the shipping address for the owner's next submit. The
// address is matched by id and must belong to the user.
func (s *CheckoutService) SelectAddress(ctx context.Context, userID, addressID string) error {
	addrUUID, err := uuid.Parse(addressID)
	if err != nil {
		return faults.New(faults.Validation, "invalid address id")
	}

	address, err := s.addressRepo.GetByID(ctx, addrUUID)
	if err != nil {
		return faults.New(faults.Validation, "address not found")
	}
	if address.UserID.String() != userID {
		return faults.New(faults.Validation, "address does not belong to user")
	}

	flow := s.flow(userID)
	flow.mu.Lock()
	defer flow.mu.Unlock()

	switch flow.state {
	case StateSubmitting, StateAwaitingGateway, StateVerifying:
		return faults.New(faults.Conflict, "checkout already in progress")
	}

	flow.addressID = addrUUID
	flow.address = address
	flow.state = StateAddressSelected
	flow.reason = ReasonNone
	return nil
}

// Submit runs the checkout protocol for the owner's current cart snapshot.
// Rejected while a previous submit is still in flight.
func (s *CheckoutService) Submit(ctx context.Context, userID, token string, method models.PaymentMethod) (*CheckoutStatus, error) {
	if method != models.PaymentCOD && method != models.PaymentOnline {
		return nil, faults.New(faults.Validation, "unknown payment method")
	}

	flow := s.flow(userID)
	flow.mu.Lock()

	switch flow.state {
	case StateSubmitting, StateAwaitingGateway, StateVerifying:
		flow.mu.Unlock()
		return nil, faults.New(faults.Conflict, "checkout already in progress")
	}
	if flow.address == nil {
		flow.mu.Unlock()
		return nil, faults.New(faults.Validation, "no shipping address selected")
	}

	// Preconditions are checked before any network call.
	snap, err := s.cart.Snapshot(ctx, userID)
	if err != nil {
		flow.mu.Unlock()
		return nil, err
	}
	if len(snap.Lines) == 0 {
		flow.mu.Unlock()
		return nil, faults.New(faults.Validation, "cart is empty")
	}
	if snap.Total <= 0 {
		flow.mu.Unlock()
		return nil, faults.New(faults.Validation, "order total must be positive")
	}

	req := buildOrderRequest(snap, flow.address.Shipping(), method)

	flow.state = StateSubmitting
	flow.reason = ReasonNone
	flow.token = token
	flow.snapshot = snap
	flow.method = method
	flow.orderID = ""
	flow.session = nil
	flow.mu.Unlock()

	result, err := s.backend.CreateOrder(ctx, token, req)
	if err != nil {
		s.fail(flow, ReasonOrderCreationFailed)
		return nil, err
	}

	flow.mu.Lock()
	flow.orderID = result.OrderID

	if method == models.PaymentCOD {
		flow.mu.Unlock()
		s.complete(ctx, userID, flow, req)
		return s.statusOf(flow), nil
	}

	session := result.PaymentSession
	if session == nil || session.GatewayOrderID == "" {
		flow.state = StateFailed
		flow.reason = ReasonPaymentSessionMissing
		flow.mu.Unlock()
		return nil, faults.New(faults.BackendRejected, "order created but payment session is missing")
	}
	if session.Amount != req.TotalAmount || session.Currency != req.Currency {
		flow.state = StateFailed
		flow.reason = ReasonAmountMismatch
		flow.mu.Unlock()
		// Never silently reconciled: this means client and server disagree on
		// the money.
		log.Printf("AMOUNT MISMATCH for order %s: local %d %s, gateway %d %s",
			result.OrderID, req.TotalAmount, req.Currency, session.Amount, session.Currency)
		return nil, faults.New(faults.AmountMismatch, "gateway amount does not match computed order total")
	}

	flow.session = session
	flow.state = StateAwaitingGateway
	if s.gatewayWait > 0 {
		flow.timer = time.AfterFunc(s.gatewayWait, func() { s.gatewayTimedOut(flow) })
	}
	flow.mu.Unlock()

	onSuccess, onFailure := s.gatewayCallbacks(userID, flow)
	if err := s.gateway.Open(*session, onSuccess, onFailure); err != nil {
		s.fail(flow, ReasonPaymentDeclined)
		return nil, err
	}

	return s.statusOf(flow), nil
}

// Abandon leaves AwaitingGateway (user closed the payment modal) and returns
// to AddressSelected with no side effects: no order duplication, no cart
// mutation.
func (s *CheckoutService) Abandon(userID string) error {
	flow := s.flow(userID)
	flow.mu.Lock()
	defer flow.mu.Unlock()

	if flow.state != StateAwaitingGateway && flow.state != StatePaymentUnknown {
		return faults.New(faults.Conflict, "nothing to abandon")
	}

	flow.stopTimer()
	flow.state = StateAddressSelected
	flow.reason = ReasonNone
	flow.session = nil
	return nil
}

// Cancel abandons the whole checkout. Not permitted mid-flight.
func (s *CheckoutService) Cancel(userID string) error {
	flow := s.flow(userID)
	flow.mu.Lock()
	defer flow.mu.Unlock()

	switch flow.state {
	case StateSubmitting, StateAwaitingGateway, StateVerifying:
		return faults.New(faults.Conflict, "checkout already in progress")
	}

	flow.stopTimer()
	flow.state = StateCancelled
	flow.reason = ReasonNone
	flow.session = nil
	return nil
}

// Status reports the owner's current flow state.
func (s *CheckoutService) Status(userID string) *CheckoutStatus {
	return s.statusOf(s.flow(userID))
}

func (s *CheckoutService) statusOf(flow *checkoutFlow) *CheckoutStatus {
	flow.mu.Lock()
	defer flow.mu.Unlock()

	status := &CheckoutStatus{
		State:   flow.state,
		Reason:  flow.reason,
		OrderID: flow.orderID,
	}
	if flow.state == StateAwaitingGateway && flow.session != nil {
		copied := *flow.session
		status.Session = &copied
	}
	return status
}

func (s *CheckoutService) flow(userID string) *checkoutFlow {
	s.mu.Lock()
	defer s.mu.Unlock()
	flow, ok := s.flows[userID]
	if !ok {
		flow = &checkoutFlow{state: StateIdle}
		s.flows[userID] = flow
	}
	return flow
}

func (s *CheckoutService) gatewayCallbacks(userID string, flow *checkoutFlow) (func(models.PaymentVerification), func(string)) {
	onSuccess := func(verification models.PaymentVerification) {
		s.verify(userID, flow, verification)
	}
	onFailure := func(reason string) {
		flow.mu.Lock()
		if flow.state != StateAwaitingGateway && flow.state != StatePaymentUnknown {
			flow.mu.Unlock()
			return
		}
		flow.stopTimer()
		flow.state = StateFailed
		flow.reason = ReasonPaymentDeclined
		orderID := flow.orderID
		flow.mu.Unlock()
		log.Printf("payment declined for order %s: %s", orderID, reason)
	}
	return onSuccess, onFailure
}

// verify runs the third leg. Verification failure leaves the order
// created-but-unpaid server-side; the cart is not cleared and no silent retry
// happens.
func (s *CheckoutService) verify(userID string, flow *checkoutFlow, verification models.PaymentVerification) {
	flow.mu.Lock()
	if flow.state != StateAwaitingGateway && flow.state != StatePaymentUnknown {
		flow.mu.Unlock()
		return
	}
	flow.stopTimer()
	flow.state = StateVerifying
	token := flow.token
	snap := flow.snapshot
	method := flow.method
	address := flow.address
	flow.mu.Unlock()

	ctx := context.Background()
	if verification.OrderID == "" {
		flow.mu.Lock()
		verification.OrderID = flow.orderID
		flow.mu.Unlock()
	}

	if err := s.backend.VerifyPayment(ctx, token, verification); err != nil {
		flow.mu.Lock()
		flow.state = StateFailed
		flow.reason = ReasonVerificationFailed
		flow.mu.Unlock()
		log.Printf("payment verification failed for order %s: %v", verification.OrderID, err)
		return
	}

	req := buildOrderRequest(snap, address.Shipping(), method)
	s.complete(ctx, userID, flow, req)
}

// complete is the single success exit: clears the cart, mirrors the order and
// emits events.
func (s *CheckoutService) complete(ctx context.Context, userID string, flow *checkoutFlow, req *CreateOrderRequest) {
	flow.mu.Lock()
	flow.stopTimer()
	flow.state = StateCompleted
	flow.reason = ReasonNone
	flow.session = nil
	orderID := flow.orderID
	flow.mu.Unlock()

	if err := s.cart.Clear(ctx, userID); err != nil {
		log.Printf("failed to clear cart after checkout for user %s: %v", userID, err)
	}

	if s.orderMirror != nil {
		snapshot := &models.OrderSnapshot{
			OrderID:         orderID,
			UserID:          userID,
			Items:           req.Items,
			ShippingAddress: req.ShippingAddress,
			TotalAmount:     req.TotalAmount,
			Status:          models.OrderStatusPending,
			PaymentMethod:   req.PaymentMethod,
			CreatedAt:       time.Now().Unix(),
		}
		if err := s.orderMirror.Upsert(ctx, snapshot); err != nil {
			log.Printf("failed to mirror order %s: %v", orderID, err)
		}
	}

	if s.producer != nil {
		s.producer.SendMessage(messaging.TopicOrderEvents, orderID, messaging.OrderEvent{
			Type:    "checkout_completed",
			OrderID: orderID,
			UserID:  userID,
			Data: map[string]interface{}{
				"total_amount":   req.TotalAmount,
				"currency":       req.Currency,
				"payment_method": req.PaymentMethod,
			},
		})
		s.producer.SendMessage(messaging.TopicNotificationEvents, userID, messaging.NotificationEvent{
			Type:    "order_confirmation",
			UserID:  userID,
			Title:   "Order Confirmed",
			Message: "Your order has been placed successfully",
			Metadata: map[string]interface{}{
				"order_id": orderID,
			},
		})
	}
}

func (s *CheckoutService) fail(flow *checkoutFlow, reason FailureReason) {
	flow.mu.Lock()
	flow.stopTimer()
	flow.state = StateFailed
	flow.reason = reason
	flow.session = nil
	flow.mu.Unlock()
}

func (s *CheckoutService) gatewayTimedOut(flow *checkoutFlow) {
	flow.mu.Lock()
	defer flow.mu.Unlock()
	if flow.state != StateAwaitingGateway {
		return
	}
	// Neither callback fired within the bounded wait. Assume nothing: the
	// payment status is unknown until the gateway or the user says otherwise.
	flow.state = StatePaymentUnknown
	log.Printf("payment status unknown for order %s: gateway produced no callback", flow.orderID)
}

func (flow *checkoutFlow) stopTimer() {
	if flow.timer != nil {
		flow.timer.Stop()
		flow.timer = nil
	}
}

// buildOrderRequest freezes a cart snapshot into the order payload, entirely
// in integer minor units.
func buildOrderRequest(snap *CartSnapshot, shipping models.ShippingAddress, method models.PaymentMethod) *CreateOrderRequest {
	items := make([]models.OrderItem, 0, len(snap.Lines))
	for _, line := range snap.Lines {
		items = append(items, models.OrderItem{
			ProductID:    line.ProductID,
			Name:         line.Name,
			UnitPrice:    line.UnitPrice,
			Quantity:     line.Quantity,
			LineSubtotal: money.Line(line.UnitPrice, line.Quantity),
		})
	}
	return &CreateOrderRequest{
		Items:           items,
		TotalAmount:     snap.Total,
		Currency:        money.CurrencyINR,
		ShippingAddress: shipping,
		PaymentMethod:   method,
	}
}
