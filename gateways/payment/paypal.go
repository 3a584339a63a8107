package payment

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/restoflow/orders-backend/models"
)

const (
	payPalBaseURL        = "https://api-m.paypal.com"
	payPalSandboxBaseURL = "https://api-m.sandbox.paypal.com"
)

// CaptureResult is the outcome of capturing an approved PayPal checkout order.
type CaptureResult struct {
	ID     string
	Status string
	Raw    string
}

type PayPalClient struct {
	httpClient *http.Client
}

func NewPayPalClient() *PayPalClient {
	return &PayPalClient{httpClient: &http.Client{Timeout: 10 * time.Second}}
}

func (c *PayPalClient) base(access models.PaymentGatewayAccess) string {
	if access.Is_sandbox {
		return payPalSandboxBaseURL
	}
	return payPalBaseURL
}

func (c *PayPalClient) getToken(ctx context.Context, access models.PaymentGatewayAccess) (string, error) {
	form := url.Values{"grant_type": {"client_credentials"}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base(access)+"/v1/oauth2/token", strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("paypal: build token request: %w", err)
	}
	req.SetBasicAuth(access.Credentials.ClientID, access.Credentials.ClientSecret)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: paypal token: %v", models.ErrUpstreamPlatform, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: paypal token: status %d", models.ErrUpstreamPlatform, resp.StatusCode)
	}

	var payload struct {
		AccessToken string `json:"access_token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", fmt.Errorf("%w: paypal decode token: %v", models.ErrUpstreamPlatform, err)
	}
	return payload.AccessToken, nil
}

// CaptureOrder captures the funds of an approved checkout order. PayPal's
// redirect back to us carries the checkout order id as "token".
func (c *PayPalClient) CaptureOrder(ctx context.Context, access models.PaymentGatewayAccess, checkoutOrderID string) (*CaptureResult, error) {
	token, err := c.getToken(ctx, access)
	if err != nil {
		return nil, err
	}

	captureURL := c.base(access) + "/v2/checkout/orders/" + checkoutOrderID + "/capture"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, captureURL, nil)
	if err != nil {
		return nil, fmt.Errorf("paypal: build capture request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: paypal capture: %v", models.ErrUpstreamPlatform, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: paypal read capture: %v", models.ErrUpstreamPlatform, err)
	}
	if resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: paypal capture %s: status %d", models.ErrUpstreamPlatform, checkoutOrderID, resp.StatusCode)
	}

	var payload struct {
		ID     string `json:"id"`
		Status string `json:"status"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("%w: paypal decode capture: %v", models.ErrUpstreamPlatform, err)
	}

	return &CaptureResult{ID: payload.ID, Status: payload.Status, Raw: string(body)}, nil
}

// MapPayPalStatus maps a capture status onto the order payment statuses.
func MapPayPalStatus(native string) string {
	switch native {
	case "COMPLETED":
		return models.PaymentPaid
	case "REFUNDED":
		return models.PaymentRefunded
	default:
		return models.PaymentPending
	}
}
