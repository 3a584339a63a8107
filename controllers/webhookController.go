package controller

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"time"

	delivery "github.com/restoflow/orders-backend/gateways/delivery"
	payment "github.com/restoflow/orders-backend/gateways/payment"
	"github.com/restoflow/orders-backend/models"
	"github.com/restoflow/orders-backend/services"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

var reconciler = services.NewPaymentReconciler(
	orderRepo, paymentRepo, configRepo,
	mercadoPagoClient, payment.NewPayPalClient(),
)

// MercadoPagoWebhook receives asynchronous payment notifications. The gateway
// retries until it sees a 2xx, so the response is always 200 no matter what
// the payload resolved to.
func MercadoPagoWebhook(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Second)
	defer cancel()

	var notification services.WebhookNotification
	if err := json.NewDecoder(r.Body).Decode(&notification); err != nil {
		log.Printf("[webhooks] mercadopago: undecodable body: %v", err)
	} else {
		reconciler.HandleMercadoPagoWebhook(ctx, notification)
	}

	writeJSON(w, map[string]interface{}{
		"success": true,
		"message": "Notification received",
	})
}

// PayPalReturn is the synchronous redirect callback after a PayPal checkout.
// It carries our order id plus PayPal's checkout order id as "token".
func PayPalReturn(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Second)
	defer cancel()

	orderId := r.URL.Query().Get("order_id")
	token := r.URL.Query().Get("token")
	reconciler.HandlePayPalReturn(ctx, orderId, token)

	writeJSON(w, map[string]interface{}{
		"success": true,
		"message": "Payment processed",
	})
}

type deliveryWebhookItem struct {
	Name        string   `json:"name"`
	Quantity    int      `json:"quantity"`
	UnitPrice   float64  `json:"unit_price"`
	Station     string   `json:"station"`
	Ingredients []string `json:"ingredients"`
	Selections  []string `json:"selections"`
}

type deliveryWebhookPayload struct {
	ExternalOrderID string                `json:"external_order_id"`
	Type            string                `json:"type"`
	CustomerPhone   string                `json:"customer_phone"`
	Notes           string                `json:"notes"`
	Items           []deliveryWebhookItem `json:"items"`
}

// DeliveryWebhook ingests a new order pushed by a delivery platform. The raw
// body is verified against the platform config's webhook secret before being
// decoded; replayed orders are detected by their external id.
func DeliveryWebhook(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Second)
	defer cancel()

	vars := mux.Vars(r)
	platform := vars["platform"]
	orgID := vars["org_id"]

	switch platform {
	case models.PlatformUberEats, models.PlatformRappi, models.PlatformWhatsApp:
	default:
		http.Error(w, `{"success": false, "message": "Unknown platform"}`, http.StatusNotFound)
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, `{"success": false, "message": "Unreadable body"}`, http.StatusBadRequest)
		return
	}

	access, err := configRepo.GetDeliveryConfig(ctx, orgID, platform)
	if err != nil {
		http.Error(w, `{"success": false, "message": "Unauthorized"}`, http.StatusUnauthorized)
		return
	}

	if access.Webhook_secret != "" {
		signature := r.Header.Get("X-Webhook-Signature")
		if !delivery.VerifySignature(access.Webhook_secret, body, signature) {
			http.Error(w, `{"success": false, "message": "Invalid signature"}`, http.StatusUnauthorized)
			return
		}
	} else {
		log.Printf("[webhooks] org %s %s has no webhook secret configured, accepting unsigned payload", orgID, platform)
	}

	var payload deliveryWebhookPayload
	if err := json.Unmarshal(body, &payload); err != nil || payload.ExternalOrderID == "" || len(payload.Items) == 0 {
		http.Error(w, `{"success": false, "message": "Invalid payload"}`, http.StatusBadRequest)
		return
	}

	// Platforms redeliver webhooks; an order we already ingested is acked as-is.
	if existing, err := orderRepo.FindOrderByExternalID(ctx, orgID, payload.ExternalOrderID); err == nil {
		writeJSON(w, map[string]interface{}{
			"success": true,
			"message": "Order already registered",
			"data":    existing,
		})
		return
	} else if !errors.Is(err, models.ErrOrderNotFound) {
		http.Error(w, `{"success": false, "message": "Error checking order"}`, http.StatusInternalServerError)
		return
	}

	order := buildPlatformOrder(orgID, platform, &payload)
	if err := orderRepo.InsertOrder(ctx, order); err != nil {
		http.Error(w, `{"success": false, "message": "Order creation failed"}`, http.StatusInternalServerError)
		return
	}

	log.Printf("[webhooks] org %s: %s order %s registered as %s", orgID, platform, payload.ExternalOrderID, order.Order_id)

	writeJSON(w, map[string]interface{}{
		"success": true,
		"message": "Order created successfully",
		"data":    order,
	})
}

func buildPlatformOrder(orgID, platform string, payload *deliveryWebhookPayload) *models.Order {
	now := time.Now()

	orderType := payload.Type
	switch orderType {
	case models.TypeDineIn, models.TypeTakeaway, models.TypePickupScheduled:
	default:
		orderType = models.TypeTakeaway
	}

	externalID := payload.ExternalOrderID
	order := &models.Order{
		ID:                primitive.NewObjectID(),
		Order_id:          uuid.NewString(),
		Organization_id:   orgID,
		Source:            platform,
		Type:              orderType,
		Status:            models.StatusPending,
		// The platform collects the money; nothing to reconcile on our side.
		Payment_status:    models.PaymentPaid,
		External_order_id: &externalID,
		Notes:             payload.Notes,
		Created_at:        now,
		Updated_at:        now,
	}
	if payload.CustomerPhone != "" {
		phone := payload.CustomerPhone
		order.Customer_phone = &phone
	}

	for _, item := range payload.Items {
		quantity := item.Quantity
		if quantity < 1 {
			quantity = 1
		}
		order.Items = append(order.Items, models.OrderItem{
			Item_id:    uuid.NewString(),
			Name:       item.Name,
			Quantity:   quantity,
			Unit_price: item.UnitPrice,
			Station:    item.Station,
			Modifiers: models.ItemModifiers{
				Ingredients: item.Ingredients,
				Selections:  item.Selections,
			},
		})
	}
	return order
}
