package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang-storefront-backend/internal/faults"
	"golang-storefront-backend/internal/models"
	"golang-storefront-backend/internal/money"
	"golang-storefront-backend/internal/services"
)

// CommerceClient talks to the commerce API. Every response is parsed into a
// canonical typed shape at this boundary; a payload that does not fit is a
// backend_rejected fault, never a partially filled struct.
type CommerceClient struct {
	baseURL    string
	httpClient *http.Client
}

func NewCommerceClient(baseURL string, timeout time.Duration) *CommerceClient {
	return &CommerceClient{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// Commerce API wire structures.

type orderResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Order   struct {
		ID string `json:"id"`
	} `json:"order"`
	Payment *struct {
		RazorpayOrderID string `json:"razorpay_order_id"`
		Amount          int64  `json:"amount"`
		Currency        string `json:"currency"`
	} `json:"payment"`
}

type orderListResponse struct {
	Success bool        `json:"success"`
	Orders  []wireOrder `json:"orders"`
}

type wireOrder struct {
	ID              string                 `json:"id"`
	Items           []wireOrderItem        `json:"items"`
	ShippingAddress models.ShippingAddress `json:"shipping_address"`
	TotalAmount     int64                  `json:"total_amount"`
	Status          string                 `json:"status"`
	PaymentMethod   string                 `json:"payment_method"`
	CreatedAt       int64                  `json:"created_at"`
}

type wireOrderItem struct {
	ProductID string `json:"product_id"`
	Name      string `json:"name"`
	UnitPrice int64  `json:"unit_price"`
	Quantity  int    `json:"quantity"`
}

type wishlistResponse struct {
	Success  bool     `json:"success"`
	Wishlist []string `json:"wishlist"`
}

type apiStatusResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// CreateOrder submits the frozen order payload. The returned payment session
// is nil for cash on delivery.
func (c *CommerceClient) CreateOrder(ctx context.Context, token string, req *services.CreateOrderRequest) (*services.CreateOrderResult, error) {
	body, err := c.do(ctx, token, "POST", "/api/orders/createOrderByCustomer", req)
	if err != nil {
		return nil, err
	}

	var resp orderResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, faults.New(faults.BackendRejected, fmt.Sprintf("malformed order response: %v", err))
	}
	if !resp.Success || resp.Order.ID == "" {
		return nil, faults.New(faults.BackendRejected, orDefault(resp.Message, "order was not created"))
	}

	result := &services.CreateOrderResult{OrderID: resp.Order.ID}
	if resp.Payment != nil {
		result.PaymentSession = &models.PaymentSession{
			GatewayOrderID: resp.Payment.RazorpayOrderID,
			Amount:         money.Amount(resp.Payment.Amount),
			Currency:       resp.Payment.Currency,
		}
	}
	return result, nil
}

// VerifyPayment posts the gateway callback record for server-side signature
// verification.
func (c *CommerceClient) VerifyPayment(ctx context.Context, token string, verification models.PaymentVerification) error {
	body, err := c.do(ctx, token, "POST", "/api/orders/razorpay/verify", verification)
	if err != nil {
		return err
	}

	var resp apiStatusResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return faults.New(faults.BackendRejected, fmt.Sprintf("malformed verification response: %v", err))
	}
	if !resp.Success {
		return faults.New(faults.VerificationFailed, orDefault(resp.Message, "payment verification rejected"))
	}
	return nil
}

func (c *CommerceClient) CancelOrder(ctx context.Context, token, orderID, reason string) error {
	payload := map[string]string{"reason": reason}
	body, err := c.do(ctx, token, "POST", "/api/orders/"+orderID+"/cancel", payload)
	if err != nil {
		return err
	}

	var resp apiStatusResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return faults.New(faults.BackendRejected, fmt.Sprintf("malformed cancel response: %v", err))
	}
	if !resp.Success {
		return faults.New(faults.BackendRejected, orDefault(resp.Message, "order could not be cancelled"))
	}
	return nil
}

func (c *CommerceClient) FetchInvoice(ctx context.Context, token, orderID string) ([]byte, error) {
	return c.do(ctx, token, "GET", "/api/orders/"+orderID+"/invoice", nil)
}

func (c *CommerceClient) ListOrders(ctx context.Context, token string) ([]models.OrderSummary, error) {
	body, err := c.do(ctx, token, "GET", "/api/orders/customer", nil)
	if err != nil {
		return nil, err
	}

	var resp orderListResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, faults.New(faults.BackendRejected, fmt.Sprintf("malformed order list: %v", err))
	}
	if !resp.Success {
		return nil, faults.New(faults.BackendRejected, "order list was not returned")
	}

	orders := make([]models.OrderSummary, 0, len(resp.Orders))
	for _, w := range resp.Orders {
		items := make([]models.OrderItem, 0, len(w.Items))
		for _, item := range w.Items {
			items = append(items, models.OrderItem{
				ProductID:    item.ProductID,
				Name:         item.Name,
				UnitPrice:    money.Amount(item.UnitPrice),
				Quantity:     item.Quantity,
				LineSubtotal: money.Line(money.Amount(item.UnitPrice), item.Quantity),
			})
		}
		orders = append(orders, models.OrderSummary{
			OrderID:         w.ID,
			Items:           items,
			ShippingAddress: w.ShippingAddress,
			TotalAmount:     money.Amount(w.TotalAmount),
			Status:          w.Status,
			PaymentMethod:   models.PaymentMethod(w.PaymentMethod),
			CreatedAt:       w.CreatedAt,
		})
	}
	return orders, nil
}

// Wishlist operations. The server keys the wishlist by the authenticated
// token; userID rides along for request payloads.

func (c *CommerceClient) Members(ctx context.Context, userID, token string) ([]string, error) {
	body, err := c.do(ctx, token, "GET", "/api/wishlist/getItemwishlist", nil)
	if err != nil {
		return nil, err
	}

	var resp wishlistResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, faults.New(faults.BackendRejected, fmt.Sprintf("malformed wishlist response: %v", err))
	}
	if !resp.Success {
		return nil, faults.New(faults.BackendRejected, "wishlist was not returned")
	}
	return resp.Wishlist, nil
}

func (c *CommerceClient) Add(ctx context.Context, userID, token, productID string) error {
	payload := map[string]string{"user_id": userID, "product_id": productID}
	return c.doStatus(ctx, token, "POST", "/api/wishlist/addItemwishlist", payload)
}

func (c *CommerceClient) Remove(ctx context.Context, userID, token, productID string) error {
	payload := map[string]string{"user_id": userID, "product_id": productID}
	return c.doStatus(ctx, token, "POST", "/api/wishlist/removeItemwishlist", payload)
}

func (c *CommerceClient) doStatus(ctx context.Context, token, method, path string, payload interface{}) error {
	body, err := c.do(ctx, token, method, path, payload)
	if err != nil {
		return err
	}

	var resp apiStatusResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return faults.New(faults.BackendRejected, fmt.Sprintf("malformed response: %v", err))
	}
	if !resp.Success {
		return faults.New(faults.BackendRejected, orDefault(resp.Message, "request rejected"))
	}
	return nil
}

// do runs one commerce API request. Transport failures map to network faults,
// non-2xx statuses to backend_rejected.
func (c *CommerceClient) do(ctx context.Context, token, method, path string, body interface{}) ([]byte, error) {
	var reqBody io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request body: %v", err)
		}
		reqBody = bytes.NewBuffer(jsonBody)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %v", err)
	}

	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, faults.New(faults.Network, fmt.Sprintf("commerce API unreachable: %v", err))
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, faults.New(faults.Network, fmt.Sprintf("failed to read response body: %v", err))
	}

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return nil, faults.New(faults.BackendRejected,
			fmt.Sprintf("commerce API error (status %d): %s", resp.StatusCode, string(respBody)))
	}

	return respBody, nil
}

func orDefault(message, fallback string) string {
	if message != "" {
		return message
	}
	return fallback
}
