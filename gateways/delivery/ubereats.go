package delivery

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/restoflow/orders-backend/models"
)

const (
	uberEatsAuthURL = "https://auth.uber.com/oauth/v2/token"
	uberEatsBaseURL = "https://api.uber.com"
)

type UberEatsClient struct {
	httpClient *http.Client
}

func NewUberEatsClient() *UberEatsClient {
	return &UberEatsClient{httpClient: newHTTPClient()}
}

// getToken exchanges the store's client credentials for a short-lived bearer
// token. A fresh token is acquired per call; tokens are not cached.
func (c *UberEatsClient) getToken(ctx context.Context, access models.DeliveryPlatformAccess) (string, error) {
	form := url.Values{
		"client_id":     {access.Credentials.ClientID},
		"client_secret": {access.Credentials.ClientSecret},
		"grant_type":    {"client_credentials"},
		"scope":         {"eats.order"},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, uberEatsAuthURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("uber eats: build token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: uber eats token: %v", models.ErrUpstreamPlatform, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: uber eats token: status %d", models.ErrUpstreamPlatform, resp.StatusCode)
	}

	var payload struct {
		AccessToken string `json:"access_token"`
	}
	if err := decodeJSON(resp.Body, &payload); err != nil {
		return "", fmt.Errorf("%w: uber eats decode token: %v", models.ErrUpstreamPlatform, err)
	}
	return payload.AccessToken, nil
}

// AcceptOrder confirms the order on Uber Eats with a preparation estimate.
func (c *UberEatsClient) AcceptOrder(ctx context.Context, access models.DeliveryPlatformAccess, externalOrderID string, prepMinutes int) error {
	token, err := c.getToken(ctx, access)
	if err != nil {
		return err
	}
	if prepMinutes <= 0 {
		prepMinutes = 20
	}

	body := map[string]interface{}{
		"reason":      "accepted by restaurant",
		"pickup_time": time.Now().Add(time.Duration(prepMinutes) * time.Minute).Unix(),
	}
	acceptURL := fmt.Sprintf("%s/v1/eats/orders/%s/accept_pos_order", uberEatsBaseURL, externalOrderID)
	return doJSON(ctx, c.httpClient, http.MethodPost, acceptURL, map[string]string{"Authorization": "Bearer " + token}, body, nil)
}

// DenyOrder rejects the order on Uber Eats.
func (c *UberEatsClient) DenyOrder(ctx context.Context, access models.DeliveryPlatformAccess, externalOrderID, reason string) error {
	token, err := c.getToken(ctx, access)
	if err != nil {
		return err
	}
	if reason == "" {
		reason = "rejected by restaurant"
	}

	body := map[string]interface{}{
		"reason": map[string]string{"explanation": reason},
	}
	denyURL := fmt.Sprintf("%s/v1/eats/orders/%s/deny_pos_order", uberEatsBaseURL, externalOrderID)
	return doJSON(ctx, c.httpClient, http.MethodPost, denyURL, map[string]string{"Authorization": "Bearer " + token}, body, nil)
}
