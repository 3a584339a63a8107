package delivery

import (
	"context"
	"fmt"
	"net/http"

	"github.com/restoflow/orders-backend/models"
)

const (
	rappiBaseURL        = "https://services.rappi.com"
	rappiSandboxBaseURL = "https://microservices.dev.rappi.com"
)

type RappiClient struct {
	httpClient *http.Client
}

func NewRappiClient() *RappiClient {
	return &RappiClient{httpClient: newHTTPClient()}
}

func (c *RappiClient) base(access models.DeliveryPlatformAccess) string {
	if access.Is_sandbox {
		return rappiSandboxBaseURL
	}
	return rappiBaseURL
}

func (c *RappiClient) getToken(ctx context.Context, access models.DeliveryPlatformAccess) (string, error) {
	body := map[string]string{
		"client_id":     access.Credentials.ClientID,
		"client_secret": access.Credentials.ClientSecret,
	}
	var payload struct {
		AccessToken string `json:"access_token"`
	}
	loginURL := c.base(access) + "/api/open-api/login"
	if err := doJSON(ctx, c.httpClient, http.MethodPost, loginURL, nil, body, &payload); err != nil {
		return "", err
	}
	return payload.AccessToken, nil
}

func (c *RappiClient) authHeader(token string) map[string]string {
	return map[string]string{"x-authorization": "bearer " + token}
}

// AcceptOrder takes the order on Rappi with a cooking-time estimate in minutes.
func (c *RappiClient) AcceptOrder(ctx context.Context, access models.DeliveryPlatformAccess, externalOrderID string, prepMinutes int) error {
	token, err := c.getToken(ctx, access)
	if err != nil {
		return err
	}
	if prepMinutes <= 0 {
		prepMinutes = 20
	}

	takeURL := fmt.Sprintf("%s/api/v2/restaurants-public-api/orders/%s/take", c.base(access), externalOrderID)
	return doJSON(ctx, c.httpClient, http.MethodPut, takeURL, c.authHeader(token), map[string]int{"cookingTime": prepMinutes}, nil)
}

// MarkReady tells Rappi the order is ready for pickup by the courier.
func (c *RappiClient) MarkReady(ctx context.Context, access models.DeliveryPlatformAccess, externalOrderID string) error {
	token, err := c.getToken(ctx, access)
	if err != nil {
		return err
	}

	readyURL := fmt.Sprintf("%s/api/v2/restaurants-public-api/orders/%s/ready-for-pickup", c.base(access), externalOrderID)
	return doJSON(ctx, c.httpClient, http.MethodPut, readyURL, c.authHeader(token), nil, nil)
}

// RejectOrder rejects the order on Rappi.
func (c *RappiClient) RejectOrder(ctx context.Context, access models.DeliveryPlatformAccess, externalOrderID, reason string) error {
	token, err := c.getToken(ctx, access)
	if err != nil {
		return err
	}
	if reason == "" {
		reason = "rejected by restaurant"
	}

	rejectURL := fmt.Sprintf("%s/api/v2/restaurants-public-api/orders/%s/reject", c.base(access), externalOrderID)
	return doJSON(ctx, c.httpClient, http.MethodPut, rejectURL, c.authHeader(token), map[string]string{"reason": reason}, nil)
}
