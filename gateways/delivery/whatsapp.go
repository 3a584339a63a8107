package delivery

import (
	"context"
	"fmt"
	"net/http"

	"github.com/restoflow/orders-backend/models"
)

const whatsAppGraphBaseURL = "https://graph.facebook.com/v18.0"

type WhatsAppClient struct {
	httpClient *http.Client
}

func NewWhatsAppClient() *WhatsAppClient {
	return &WhatsAppClient{httpClient: newHTTPClient()}
}

// SendStatusMessage sends a plain text message to the customer through the
// WhatsApp Business Cloud API.
func (c *WhatsAppClient) SendStatusMessage(ctx context.Context, access models.DeliveryPlatformAccess, customerPhone, message string) error {
	body := map[string]interface{}{
		"messaging_product": "whatsapp",
		"to":                customerPhone,
		"type":              "text",
		"text":              map[string]string{"body": message},
	}

	sendURL := fmt.Sprintf("%s/%s/messages", whatsAppGraphBaseURL, access.Credentials.PhoneNumberID)
	headers := map[string]string{"Authorization": "Bearer " + access.Credentials.AccessToken}
	return doJSON(ctx, c.httpClient, http.MethodPost, sendURL, headers, body, nil)
}
