package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/restoflow/orders-backend/models"
)

const mercadoPagoBaseURL = "https://api.mercadopago.com"

// PaymentInfo is the gateway-agnostic view of a payment the reconciler works
// with. ExternalReference carries our order id; Raw keeps the last-seen payload
// for audit.
type PaymentInfo struct {
	ID                string
	Status            string
	ExternalReference string
	TransactionAmount float64
	Raw               string
}

// CheckoutPreference is a hosted-checkout session created for an order.
type CheckoutPreference struct {
	ID          string
	CheckoutURL string
}

type MercadoPagoClient struct {
	httpClient *http.Client
	baseURL    string
}

func NewMercadoPagoClient() *MercadoPagoClient {
	return &MercadoPagoClient{
		httpClient: &http.Client{Timeout: 10 * time.Second},
		baseURL:    mercadoPagoBaseURL,
	}
}

// GetPayment fetches a payment by its MercadoPago id using one organization's
// credentials. A 401/403 means the credentials do not own the payment, a 404
// means the gateway does not know it; both are errors to the caller, which
// treats them as "not this organization".
func (c *MercadoPagoClient) GetPayment(ctx context.Context, access models.PaymentGatewayAccess, paymentID string) (*PaymentInfo, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/v1/payments/"+paymentID, nil)
	if err != nil {
		return nil, fmt.Errorf("mercadopago: build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+access.Credentials.AccessToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: mercadopago get payment: %v", models.ErrUpstreamPlatform, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: mercadopago read response: %v", models.ErrUpstreamPlatform, err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: mercadopago get payment %s: status %d", models.ErrUpstreamPlatform, paymentID, resp.StatusCode)
	}

	var payload struct {
		ID                json.Number `json:"id"`
		Status            string      `json:"status"`
		ExternalReference string      `json:"external_reference"`
		TransactionAmount float64     `json:"transaction_amount"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("%w: mercadopago decode payment: %v", models.ErrUpstreamPlatform, err)
	}

	return &PaymentInfo{
		ID:                payload.ID.String(),
		Status:            payload.Status,
		ExternalReference: payload.ExternalReference,
		TransactionAmount: payload.TransactionAmount,
		Raw:               string(body),
	}, nil
}

// CreatePreference opens a hosted checkout for an order. external_reference is
// set to the order id so the webhook can be correlated back.
func (c *MercadoPagoClient) CreatePreference(ctx context.Context, access models.PaymentGatewayAccess, order *models.Order) (*CheckoutPreference, error) {
	type prefItem struct {
		Title     string  `json:"title"`
		Quantity  int     `json:"quantity"`
		UnitPrice float64 `json:"unit_price"`
	}
	items := make([]prefItem, 0, len(order.Items))
	for _, item := range order.Items {
		items = append(items, prefItem{Title: item.Name, Quantity: item.Quantity, UnitPrice: item.Unit_price})
	}

	reqBody, err := json.Marshal(map[string]interface{}{
		"items":              items,
		"external_reference": order.Order_id,
	})
	if err != nil {
		return nil, fmt.Errorf("mercadopago: encode preference: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/checkout/preferences", bytes.NewReader(reqBody))
	if err != nil {
		return nil, fmt.Errorf("mercadopago: build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+access.Credentials.AccessToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: mercadopago create preference: %v", models.ErrUpstreamPlatform, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: mercadopago create preference: status %d", models.ErrUpstreamPlatform, resp.StatusCode)
	}

	var payload struct {
		ID               string `json:"id"`
		InitPoint        string `json:"init_point"`
		SandboxInitPoint string `json:"sandbox_init_point"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("%w: mercadopago decode preference: %v", models.ErrUpstreamPlatform, err)
	}

	checkoutURL := payload.InitPoint
	if access.Is_sandbox && payload.SandboxInitPoint != "" {
		checkoutURL = payload.SandboxInitPoint
	}
	return &CheckoutPreference{ID: payload.ID, CheckoutURL: checkoutURL}, nil
}

// MapMercadoPagoStatus maps a gateway-native status onto the order payment
// statuses. Unknown statuses map to pending: the notification is kept but the
// order is never optimistically marked paid.
func MapMercadoPagoStatus(native string) string {
	switch native {
	case "approved":
		return models.PaymentPaid
	case "refunded", "charged_back":
		return models.PaymentRefunded
	default:
		return models.PaymentPending
	}
}
