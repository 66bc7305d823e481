package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"golang-storefront-backend/internal/faults"
	"golang-storefront-backend/internal/models"
	"golang-storefront-backend/internal/money"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockOrderBackend struct {
	mu          sync.Mutex
	createRes   *CreateOrderResult
	createErr   error
	createCalls int
	lastOrder   *CreateOrderRequest
	verifyErr   error
	verifyCalls []models.PaymentVerification
	orders      []models.OrderSummary
	listErr     error
	cancelErr   error
	cancelled   []string
	invoice     []byte
}

func (m *mockOrderBackend) CreateOrder(_ context.Context, _ string, req *CreateOrderRequest) (*CreateOrderResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.createCalls++
	m.lastOrder = req
	if m.createErr != nil {
		return nil, m.createErr
	}
	return m.createRes, nil
}

func (m *mockOrderBackend) VerifyPayment(_ context.Context, _ string, verification models.PaymentVerification) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.verifyCalls = append(m.verifyCalls, verification)
	return m.verifyErr
}

func (m *mockOrderBackend) CancelOrder(_ context.Context, _, orderID, _ string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.cancelErr != nil {
		return m.cancelErr
	}
	m.cancelled = append(m.cancelled, orderID)
	return nil
}

func (m *mockOrderBackend) FetchInvoice(_ context.Context, _, _ string) ([]byte, error) {
	return m.invoice, nil
}

func (m *mockOrderBackend) ListOrders(_ context.Context, _ string) ([]models.OrderSummary, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.listErr != nil {
		return nil, m.listErr
	}
	return m.orders, nil
}

type mockGateway struct {
	mu        sync.Mutex
	openErr   error
	opened    []models.PaymentSession
	onSuccess func(models.PaymentVerification)
	onFailure func(reason string)
}

func (m *mockGateway) Open(session models.PaymentSession, onSuccess func(models.PaymentVerification), onFailure func(string)) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.openErr != nil {
		return m.openErr
	}
	m.opened = append(m.opened, session)
	m.onSuccess = onSuccess
	m.onFailure = onFailure
	return nil
}

type mockAddressRepo struct {
	mu        sync.Mutex
	addresses map[uuid.UUID]*models.Address
}

func newMockAddressRepo() *mockAddressRepo {
	return &mockAddressRepo{addresses: make(map[uuid.UUID]*models.Address)}
}

func (m *mockAddressRepo) Create(_ context.Context, address *models.Address) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.addresses[address.ID] = address
	return nil
}

func (m *mockAddressRepo) GetByID(_ context.Context, id uuid.UUID) (*models.Address, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	address, ok := m.addresses[id]
	if !ok {
		return nil, faults.New(faults.NotFound, "address not found")
	}
	return address, nil
}

func (m *mockAddressRepo) GetByUserID(_ context.Context, userID uuid.UUID) ([]models.Address, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Address
	for _, address := range m.addresses {
		if address.UserID == userID {
			out = append(out, *address)
		}
	}
	return out, nil
}

func (m *mockAddressRepo) Delete(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.addresses, id)
	return nil
}

func (m *mockAddressRepo) UnsetDefaultAddresses(_ context.Context, _ uuid.UUID) error {
	return nil
}

type checkoutHarness struct {
	userID    uuid.UUID
	addressID uuid.UUID
	cartRepo  *mockCartRepo
	cart      *CartService
	backend   *mockOrderBackend
	gateway   *mockGateway
	svc       *CheckoutService
}

func newCheckoutHarness(t *testing.T, gatewayWait time.Duration) *checkoutHarness {
	t.Helper()

	userID := uuid.New()
	addressID := uuid.New()

	addrRepo := newMockAddressRepo()
	require.NoError(t, addrRepo.Create(context.Background(), &models.Address{
		ID:           addressID,
		UserID:       userID,
		Type:         "home",
		AddressLine1: "14 MG Road",
		City:         "Bengaluru",
		State:        "Karnataka",
		Country:      "India",
		PinCode:      "560001",
	}))

	cartRepo := newMockCartRepo()
	cart := NewCartService(cartRepo, nil, 500)
	backend := &mockOrderBackend{}
	gw := &mockGateway{}

	return &checkoutHarness{
		userID:    userID,
		addressID: addressID,
		cartRepo:  cartRepo,
		cart:      cart,
		backend:   backend,
		gateway:   gw,
		svc:       NewCheckoutService(cart, addrRepo, backend, gw, nil, nil, 500, gatewayWait),
	}
}

func (h *checkoutHarness) fillCart(t *testing.T) *CartSnapshot {
	t.Helper()
	_, err := h.cart.Add(context.Background(), h.userID.String(), shirt(2))
	require.NoError(t, err)
	snap, err := h.cart.Snapshot(context.Background(), h.userID.String())
	require.NoError(t, err)
	return snap
}

func (h *checkoutHarness) selectAddress(t *testing.T) {
	t.Helper()
	require.NoError(t, h.svc.SelectAddress(context.Background(), h.userID.String(), h.addressID.String()))
}

func (h *checkoutHarness) cartLineCount(t *testing.T) int {
	t.Helper()
	snap, err := h.cart.Snapshot(context.Background(), h.userID.String())
	require.NoError(t, err)
	return len(snap.Lines)
}

func TestCheckoutCODCompletesAndClearsCart(t *testing.T) {
	h := newCheckoutHarness(t, 0)
	snap := h.fillCart(t)
	h.selectAddress(t)
	h.backend.createRes = &CreateOrderResult{OrderID: "ord-1"}

	status, err := h.svc.Submit(context.Background(), h.userID.String(), "tok", models.PaymentCOD)
	require.NoError(t, err)
	assert.Equal(t, StateCompleted, status.State)
	assert.Equal(t, "ord-1", status.OrderID)
	assert.Equal(t, 0, h.cartLineCount(t))

	// The payload was frozen from the snapshot in minor units.
	require.NotNil(t, h.backend.lastOrder)
	assert.Equal(t, snap.Total, h.backend.lastOrder.TotalAmount)
	assert.Equal(t, money.CurrencyINR, h.backend.lastOrder.Currency)
	require.Len(t, h.backend.lastOrder.Items, 1)
	assert.Equal(t, money.Amount(129900*2), h.backend.lastOrder.Items[0].LineSubtotal)
}

func TestCheckoutOnlineHappyPath(t *testing.T) {
	h := newCheckoutHarness(t, 0)
	snap := h.fillCart(t)
	h.selectAddress(t)
	h.backend.createRes = &CreateOrderResult{
		OrderID: "ord-1",
		PaymentSession: &models.PaymentSession{
			GatewayOrderID: "rzp-1",
			Amount:         snap.Total,
			Currency:       money.CurrencyINR,
		},
	}

	status, err := h.svc.Submit(context.Background(), h.userID.String(), "tok", models.PaymentOnline)
	require.NoError(t, err)
	assert.Equal(t, StateAwaitingGateway, status.State)
	require.NotNil(t, status.Session)
	assert.Equal(t, "rzp-1", status.Session.GatewayOrderID)
	assert.Equal(t, 1, h.cartLineCount(t), "cart must survive until verification succeeds")

	// Gateway succeeds, verification passes.
	h.gateway.onSuccess(models.PaymentVerification{
		GatewayOrderID:   "rzp-1",
		GatewayPaymentID: "pay-1",
		Signature:        "sig",
	})

	final := h.svc.Status(h.userID.String())
	assert.Equal(t, StateCompleted, final.State)
	require.Len(t, h.backend.verifyCalls, 1)
	assert.Equal(t, "ord-1", h.backend.verifyCalls[0].OrderID)
	assert.Equal(t, 0, h.cartLineCount(t))
}

func TestCheckoutPaymentDeclinedKeepsCart(t *testing.T) {
	h := newCheckoutHarness(t, 0)
	snap := h.fillCart(t)
	h.selectAddress(t)
	h.backend.createRes = &CreateOrderResult{
		OrderID: "ord-1",
		PaymentSession: &models.PaymentSession{
			GatewayOrderID: "rzp-1",
			Amount:         snap.Total,
			Currency:       money.CurrencyINR,
		},
	}

	_, err := h.svc.Submit(context.Background(), h.userID.String(), "tok", models.PaymentOnline)
	require.NoError(t, err)

	h.gateway.onFailure("card declined")

	status := h.svc.Status(h.userID.String())
	assert.Equal(t, StateFailed, status.State)
	assert.Equal(t, ReasonPaymentDeclined, status.Reason)
	assert.Empty(t, h.backend.verifyCalls)
	assert.Equal(t, 1, h.cartLineCount(t))
}

func TestCheckoutVerificationFailureKeepsCart(t *testing.T) {
	h := newCheckoutHarness(t, 0)
	snap := h.fillCart(t)
	h.selectAddress(t)
	h.backend.createRes = &CreateOrderResult{
		OrderID: "ord-1",
		PaymentSession: &models.PaymentSession{
			GatewayOrderID: "rzp-1",
			Amount:         snap.Total,
			Currency:       money.CurrencyINR,
		},
	}
	h.backend.verifyErr = faults.New(faults.VerificationFailed, "signature mismatch")

	_, err := h.svc.Submit(context.Background(), h.userID.String(), "tok", models.PaymentOnline)
	require.NoError(t, err)

	h.gateway.onSuccess(models.PaymentVerification{GatewayOrderID: "rzp-1"})

	status := h.svc.Status(h.userID.String())
	assert.Equal(t, StateFailed, status.State)
	assert.Equal(t, ReasonVerificationFailed, status.Reason)
	assert.Equal(t, 1, h.cartLineCount(t), "unverified payment must not clear the cart")
}

func TestCheckoutAmountMismatchHardFails(t *testing.T) {
	h := newCheckoutHarness(t, 0)
	snap := h.fillCart(t)
	h.selectAddress(t)
	h.backend.createRes = &CreateOrderResult{
		OrderID: "ord-1",
		PaymentSession: &models.PaymentSession{
			GatewayOrderID: "rzp-1",
			Amount:         snap.Total + 1,
			Currency:       money.CurrencyINR,
		},
	}

	_, err := h.svc.Submit(context.Background(), h.userID.String(), "tok", models.PaymentOnline)
	require.Error(t, err)
	assert.Equal(t, faults.AmountMismatch, faults.KindOf(err))

	status := h.svc.Status(h.userID.String())
	assert.Equal(t, StateFailed, status.State)
	assert.Equal(t, ReasonAmountMismatch, status.Reason)
	assert.Empty(t, h.gateway.opened, "gateway must never open on mismatched amounts")
}

func TestCheckoutMissingPaymentSessionFails(t *testing.T) {
	h := newCheckoutHarness(t, 0)
	h.fillCart(t)
	h.selectAddress(t)
	h.backend.createRes = &CreateOrderResult{OrderID: "ord-1"}

	_, err := h.svc.Submit(context.Background(), h.userID.String(), "tok", models.PaymentOnline)
	require.Error(t, err)

	status := h.svc.Status(h.userID.String())
	assert.Equal(t, StateFailed, status.State)
	assert.Equal(t, ReasonPaymentSessionMissing, status.Reason)
}

func TestCheckoutOrderCreationFailure(t *testing.T) {
	h := newCheckoutHarness(t, 0)
	h.fillCart(t)
	h.selectAddress(t)
	h.backend.createErr = faults.New(faults.Network, "api down")

	_, err := h.svc.Submit(context.Background(), h.userID.String(), "tok", models.PaymentCOD)
	require.Error(t, err)

	status := h.svc.Status(h.userID.String())
	assert.Equal(t, StateFailed, status.State)
	assert.Equal(t, ReasonOrderCreationFailed, status.Reason)
	assert.Equal(t, 1, h.cartLineCount(t))
}

func TestCheckoutRejectsSecondSubmitInFlight(t *testing.T) {
	h := newCheckoutHarness(t, 0)
	snap := h.fillCart(t)
	h.selectAddress(t)
	h.backend.createRes = &CreateOrderResult{
		OrderID: "ord-1",
		PaymentSession: &models.PaymentSession{
			GatewayOrderID: "rzp-1",
			Amount:         snap.Total,
			Currency:       money.CurrencyINR,
		},
	}

	_, err := h.svc.Submit(context.Background(), h.userID.String(), "tok", models.PaymentOnline)
	require.NoError(t, err)

	_, err = h.svc.Submit(context.Background(), h.userID.String(), "tok", models.PaymentOnline)
	require.Error(t, err)
	assert.Equal(t, faults.Conflict, faults.KindOf(err))
	assert.Equal(t, 1, h.backend.createCalls, "no duplicate order while a submit is in flight")
}

func TestCheckoutSubmitPreconditions(t *testing.T) {
	h := newCheckoutHarness(t, 0)

	// No address selected.
	h.fillCart(t)
	_, err := h.svc.Submit(context.Background(), h.userID.String(), "tok", models.PaymentCOD)
	require.Error(t, err)
	assert.Equal(t, faults.Validation, faults.KindOf(err))

	// Empty cart.
	h.selectAddress(t)
	require.NoError(t, h.cart.Clear(context.Background(), h.userID.String()))
	_, err = h.svc.Submit(context.Background(), h.userID.String(), "tok", models.PaymentCOD)
	require.Error(t, err)
	assert.Equal(t, faults.Validation, faults.KindOf(err))
	assert.Equal(t, 0, h.backend.createCalls)
}

func TestCheckoutAbandonReturnsToAddressSelected(t *testing.T) {
	h := newCheckoutHarness(t, 0)
	snap := h.fillCart(t)
	h.selectAddress(t)
	h.backend.createRes = &CreateOrderResult{
		OrderID: "ord-1",
		PaymentSession: &models.PaymentSession{
			GatewayOrderID: "rzp-1",
			Amount:         snap.Total,
			Currency:       money.CurrencyINR,
		},
	}

	_, err := h.svc.Submit(context.Background(), h.userID.String(), "tok", models.PaymentOnline)
	require.NoError(t, err)

	require.NoError(t, h.svc.Abandon(h.userID.String()))
	status := h.svc.Status(h.userID.String())
	assert.Equal(t, StateAddressSelected, status.State)
	assert.Equal(t, 1, h.cartLineCount(t))

	// Resubmit creates a fresh order instead of duplicating the old one.
	_, err = h.svc.Submit(context.Background(), h.userID.String(), "tok", models.PaymentOnline)
	require.NoError(t, err)
	assert.Equal(t, 2, h.backend.createCalls)
}

func TestCheckoutGatewaySilenceBecomesPaymentUnknown(t *testing.T) {
	h := newCheckoutHarness(t, 20*time.Millisecond)
	snap := h.fillCart(t)
	h.selectAddress(t)
	h.backend.createRes = &CreateOrderResult{
		OrderID: "ord-1",
		PaymentSession: &models.PaymentSession{
			GatewayOrderID: "rzp-1",
			Amount:         snap.Total,
			Currency:       money.CurrencyINR,
		},
	}

	_, err := h.svc.Submit(context.Background(), h.userID.String(), "tok", models.PaymentOnline)
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		return h.svc.Status(h.userID.String()).State == StatePaymentUnknown
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, 1, h.cartLineCount(t))

	// A late gateway success is still verified and completes the flow.
	h.gateway.onSuccess(models.PaymentVerification{GatewayOrderID: "rzp-1"})
	assert.Equal(t, StateCompleted, h.svc.Status(h.userID.String()).State)
	assert.Equal(t, 0, h.cartLineCount(t))
}

func TestCheckoutCancel(t *testing.T) {
	h := newCheckoutHarness(t, 0)
	h.fillCart(t)
	h.selectAddress(t)

	require.NoError(t, h.svc.Cancel(h.userID.String()))
	assert.Equal(t, StateCancelled, h.svc.Status(h.userID.String()).State)
	assert.Equal(t, 1, h.cartLineCount(t))
}

func TestCheckoutSelectAddressOwnership(t *testing.T) {
	h := newCheckoutHarness(t, 0)

	otherUser := uuid.New()
	err := h.svc.SelectAddress(context.Background(), otherUser.String(), h.addressID.String())
	require.Error(t, err)
	assert.Equal(t, faults.Validation, faults.KindOf(err))
}
