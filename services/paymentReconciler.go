package services

import (
	"context"
	"log"
	"time"

	payment "github.com/restoflow/orders-backend/gateways/payment"
	"github.com/restoflow/orders-backend/models"

	"github.com/google/uuid"
)

// OrderFinder locates orders for the reconciler. FindOrderByID is a global
// lookup: order ids are unique UUIDs, and the redirect callback carries no
// tenant context beyond the order id itself.
type OrderFinder interface {
	FindOrder(ctx context.Context, orgID, orderID string) (*models.Order, error)
	FindOrderByID(ctx context.Context, orderID string) (*models.Order, error)
}

// PaymentApplier persists a resolved payment notification: the payment row and
// the order's payment_status, nothing else.
type PaymentApplier interface {
	ApplyPaymentUpdate(ctx context.Context, update models.PaymentUpdate) error
}

type PaymentConfigSource interface {
	GetPaymentConfig(ctx context.Context, orgID, gateway string) (*models.PaymentGatewayAccess, error)
	ListActivePaymentConfigs(ctx context.Context, gateway string) ([]models.PaymentGatewayAccess, error)
}

type MercadoPagoGateway interface {
	GetPayment(ctx context.Context, access models.PaymentGatewayAccess, paymentID string) (*payment.PaymentInfo, error)
}

type PayPalGateway interface {
	CaptureOrder(ctx context.Context, access models.PaymentGatewayAccess, checkoutOrderID string) (*payment.CaptureResult, error)
}

// WebhookNotification is the inbound MercadoPago webhook body.
type WebhookNotification struct {
	Type string `json:"type"`
	Data struct {
		ID string `json:"id"`
	} `json:"data"`
}

// attemptTimeout caps each per-organization gateway probe so one unreachable
// tenant's credentials cannot stall resolution for the rest.
const attemptTimeout = 5 * time.Second

// PaymentReconciler turns inbound, organization-agnostic payment notifications
// into idempotent Order/Payment updates. It never returns an error to the
// webhook caller: unresolvable notifications are logged and acknowledged.
type PaymentReconciler struct {
	orders      OrderFinder
	payments    PaymentApplier
	configs     PaymentConfigSource
	mercadopago MercadoPagoGateway
	paypal      PayPalGateway
}

func NewPaymentReconciler(orders OrderFinder, payments PaymentApplier, configs PaymentConfigSource, mercadopago MercadoPagoGateway, paypal PayPalGateway) *PaymentReconciler {
	return &PaymentReconciler{
		orders:      orders,
		payments:    payments,
		configs:     configs,
		mercadopago: mercadopago,
		paypal:      paypal,
	}
}

// HandleMercadoPagoWebhook resolves a webhook that carries only a gateway-side
// payment id. Tenant resolution is derived from successful authentication: the
// first organization whose credentials resolve the payment, and for which the
// payment's external reference matches an existing order, owns the
// notification.
func (r *PaymentReconciler) HandleMercadoPagoWebhook(ctx context.Context, notification WebhookNotification) {
	if notification.Type != "payment" || notification.Data.ID == "" {
		log.Printf("[reconciler] ignoring mercadopago notification type=%q", notification.Type)
		return
	}
	paymentID := notification.Data.ID

	accesses, err := r.configs.ListActivePaymentConfigs(ctx, models.MethodMercadoPago)
	if err != nil {
		log.Printf("[reconciler] listing mercadopago configs: %v", err)
		return
	}

	for _, access := range accesses {
		attemptCtx, cancel := context.WithTimeout(ctx, attemptTimeout)
		info, err := r.mercadopago.GetPayment(attemptCtx, access, paymentID)
		cancel()
		if err != nil {
			// Not this organization's payment, or the gateway is unreachable
			// with these credentials. Either way, keep scanning.
			continue
		}
		if info.ExternalReference == "" {
			continue
		}

		order, err := r.orders.FindOrder(ctx, access.Organization_id, info.ExternalReference)
		if err != nil {
			continue
		}

		r.apply(ctx, order, models.MethodMercadoPago, payment.MapMercadoPagoStatus(info.Status), info.ID, info.Raw, info.TransactionAmount)
		return
	}

	log.Printf("[reconciler] mercadopago payment %s matched no organization", paymentID)
}

// HandlePayPalReturn processes the synchronous redirect callback, which
// carries our order id directly plus PayPal's checkout order id ("token").
func (r *PaymentReconciler) HandlePayPalReturn(ctx context.Context, orderID, checkoutOrderID string) {
	if _, err := uuid.Parse(orderID); err != nil {
		log.Printf("[reconciler] paypal return with malformed order id %q", orderID)
		return
	}
	if checkoutOrderID == "" {
		log.Printf("[reconciler] paypal return for order %s without token", orderID)
		return
	}

	order, err := r.orders.FindOrderByID(ctx, orderID)
	if err != nil {
		log.Printf("[reconciler] paypal return: order %s: %v", orderID, err)
		return
	}

	access, err := r.configs.GetPaymentConfig(ctx, order.Organization_id, models.MethodPayPal)
	if err != nil {
		log.Printf("[reconciler] paypal return: org %s config: %v", order.Organization_id, err)
		return
	}

	captureCtx, cancel := context.WithTimeout(ctx, attemptTimeout)
	result, err := r.paypal.CaptureOrder(captureCtx, *access, checkoutOrderID)
	cancel()
	if err != nil {
		log.Printf("[reconciler] paypal capture for order %s: %v", orderID, err)
		return
	}

	r.apply(ctx, order, models.MethodPayPal, payment.MapPayPalStatus(result.Status), result.ID, result.Raw, 0)
}

// apply writes the resolved notification. If the order is already paid the
// whole notification is a no-op: duplicate webhook deliveries must never be
// applied twice. Order status is deliberately left untouched.
func (r *PaymentReconciler) apply(ctx context.Context, order *models.Order, method, status, externalReference, gatewayData string, amount float64) {
	if order.Payment_status == models.PaymentPaid {
		log.Printf("[reconciler] order %s already paid, ignoring %s notification", order.Order_id, method)
		return
	}

	err := r.payments.ApplyPaymentUpdate(ctx, models.PaymentUpdate{
		Organization_id:    order.Organization_id,
		Order_id:           order.Order_id,
		Method:             method,
		Status:             status,
		Amount:             amount,
		External_reference: externalReference,
		Gateway_data:       gatewayData,
	})
	if err != nil {
		log.Printf("[reconciler] applying %s update for order %s: %v", method, order.Order_id, err)
		return
	}
	log.Printf("[reconciler] order %s payment_status -> %s (%s ref %s)", order.Order_id, status, method, externalReference)
}
