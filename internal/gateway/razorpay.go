package gateway

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"log"
	"sync"

	"golang-storefront-backend/internal/faults"
	"golang-storefront-backend/internal/models"
)

// RazorpayGateway routes gateway callbacks to the checkout flow that opened
// the payment session. Each session resolves at most once: the first of
// success, failure or webhook wins, later signals for the same gateway order
// are dropped.
type RazorpayGateway struct {
	keyID         string
	webhookSecret string

	mu      sync.Mutex
	pending map[string]*pendingSession
}

type pendingSession struct {
	onSuccess func(models.PaymentVerification)
	onFailure func(reason string)
	consumed  bool
}

func NewRazorpayGateway(keyID, webhookSecret string) *RazorpayGateway {
	return &RazorpayGateway{
		keyID:         keyID,
		webhookSecret: webhookSecret,
		pending:       make(map[string]*pendingSession),
	}
}

// Open registers the session and waits for HandleSuccess/HandleFailure. The
// actual payment UI runs client-side against the gateway order id.
func (g *RazorpayGateway) Open(session models.PaymentSession, onSuccess func(models.PaymentVerification), onFailure func(reason string)) error {
	if session.GatewayOrderID == "" {
		return faults.New(faults.Validation, "gateway order id is required")
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	if existing, ok := g.pending[session.GatewayOrderID]; ok && !existing.consumed {
		return faults.New(faults.Conflict, "payment session already open")
	}
	g.pending[session.GatewayOrderID] = &pendingSession{
		onSuccess: onSuccess,
		onFailure: onFailure,
	}
	return nil
}

// KeyID is exposed for the client-side checkout widget.
func (g *RazorpayGateway) KeyID() string {
	return g.keyID
}

// HandleSuccess delivers the client's payment callback to the waiting flow.
func (g *RazorpayGateway) HandleSuccess(verification models.PaymentVerification) error {
	if verification.GatewayOrderID == "" {
		return faults.New(faults.Validation, "gateway order id is required")
	}

	session := g.consume(verification.GatewayOrderID)
	if session == nil {
		return faults.New(faults.NotFound, "no pending payment session for this order")
	}

	session.onSuccess(verification)
	return nil
}

// HandleFailure delivers a declined/aborted payment to the waiting flow.
func (g *RazorpayGateway) HandleFailure(gatewayOrderID, reason string) error {
	if gatewayOrderID == "" {
		return faults.New(faults.Validation, "gateway order id is required")
	}

	session := g.consume(gatewayOrderID)
	if session == nil {
		return faults.New(faults.NotFound, "no pending payment session for this order")
	}

	session.onFailure(reason)
	return nil
}

// consume resolves the session exactly once.
func (g *RazorpayGateway) consume(gatewayOrderID string) *pendingSession {
	g.mu.Lock()
	defer g.mu.Unlock()

	session, ok := g.pending[gatewayOrderID]
	if !ok || session.consumed {
		return nil
	}
	session.consumed = true
	delete(g.pending, gatewayOrderID)
	return session
}

type webhookEvent struct {
	Event   string `json:"event"`
	Payload struct {
		Payment struct {
			Entity struct {
				OrderID          string `json:"order_id"`
				ErrorDescription string `json:"error_description"`
			} `json:"entity"`
		} `json:"payment"`
	} `json:"payload"`
}

// HandleWebhook processes a signed Razorpay webhook. Only payment.failed is
// acted on here; successful payments must come through the verified client
// callback so the signature check happens server-side on the commerce API.
func (g *RazorpayGateway) HandleWebhook(payload []byte, signature string) error {
	if !g.verifyWebhookSignature(payload, signature) {
		return faults.New(faults.Validation, "invalid webhook signature")
	}

	var event webhookEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		return faults.New(faults.Validation, "malformed webhook payload")
	}

	switch event.Event {
	case "payment.failed":
		reason := event.Payload.Payment.Entity.ErrorDescription
		if reason == "" {
			reason = "payment failed"
		}
		if err := g.HandleFailure(event.Payload.Payment.Entity.OrderID, reason); err != nil {
			log.Printf("webhook payment.failed for %s: %v", event.Payload.Payment.Entity.OrderID, err)
		}
	default:
		// Acknowledged but not acted on.
	}
	return nil
}

func (g *RazorpayGateway) verifyWebhookSignature(payload []byte, signature string) bool {
	expectedSignature := g.generateWebhookSignature(payload)
	return hmac.Equal([]byte(signature), []byte(expectedSignature))
}

func (g *RazorpayGateway) generateWebhookSignature(payload []byte) string {
	h := hmac.New(sha256.New, []byte(g.webhookSecret))
	h.Write(payload)
	return hex.EncodeToString(h.Sum(nil))
}
