package routes

import (
	"net/http"

	controller "github.com/restoflow/orders-backend/controllers"
	"github.com/gorilla/mux"
)

// PublicRoutes are the unauthenticated endpoints: gateway and platform
// callbacks authenticate by signature or by credential resolution, not by
// session.
func PublicRoutes(router *mux.Router) {
	router.HandleFunc("/webhooks/payments/mercadopago", controller.MercadoPagoWebhook).Methods(http.MethodPost)
	router.HandleFunc("/webhooks/payments/paypal/return", controller.PayPalReturn).Methods(http.MethodGet)
	router.HandleFunc("/webhooks/delivery/{platform}/{org_id}", controller.DeliveryWebhook).Methods(http.MethodPost)
}
