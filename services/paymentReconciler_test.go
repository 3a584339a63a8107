package services

import (
	"context"
	"sync"
	"testing"

	payment "github.com/restoflow/orders-backend/gateways/payment"
	"github.com/restoflow/orders-backend/models"
)

// Mock stores and gateways
type mockOrderFinder struct {
	orders map[string]*models.Order // order_id -> order
}

func (m *mockOrderFinder) FindOrder(ctx context.Context, orgID, orderID string) (*models.Order, error) {
	order, ok := m.orders[orderID]
	if !ok || order.Organization_id != orgID {
		return nil, models.ErrOrderNotFound
	}
	return order, nil
}

func (m *mockOrderFinder) FindOrderByID(ctx context.Context, orderID string) (*models.Order, error) {
	order, ok := m.orders[orderID]
	if !ok {
		return nil, models.ErrOrderNotFound
	}
	return order, nil
}

type mockPaymentApplier struct {
	mu      sync.Mutex
	applied []models.PaymentUpdate
}

func (m *mockPaymentApplier) ApplyPaymentUpdate(ctx context.Context, update models.PaymentUpdate) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.applied = append(m.applied, update)
	return nil
}

type mockConfigSource struct {
	paymentConfigs []models.PaymentGatewayAccess
}

func (m *mockConfigSource) GetPaymentConfig(ctx context.Context, orgID, gateway string) (*models.PaymentGatewayAccess, error) {
	for _, access := range m.paymentConfigs {
		if access.Organization_id == orgID && access.Gateway == gateway {
			return &access, nil
		}
	}
	return nil, models.ErrConfigNotFound
}

func (m *mockConfigSource) ListActivePaymentConfigs(ctx context.Context, gateway string) ([]models.PaymentGatewayAccess, error) {
	var matching []models.PaymentGatewayAccess
	for _, access := range m.paymentConfigs {
		if access.Gateway == gateway {
			matching = append(matching, access)
		}
	}
	return matching, nil
}

// mockMercadoPago resolves a payment only for the org whose access token is in
// payments; every other org gets an auth error, mimicking tenant resolution by
// successful authentication.
type mockMercadoPago struct {
	payments map[string]*payment.PaymentInfo // access token -> payment
	probes   int
}

func (m *mockMercadoPago) GetPayment(ctx context.Context, access models.PaymentGatewayAccess, paymentID string) (*payment.PaymentInfo, error) {
	m.probes++
	info, ok := m.payments[access.Credentials.AccessToken]
	if !ok {
		return nil, models.ErrUpstreamPlatform
	}
	return info, nil
}

type mockPayPal struct {
	result *payment.CaptureResult
	calls  int
}

func (m *mockPayPal) CaptureOrder(ctx context.Context, access models.PaymentGatewayAccess, checkoutOrderID string) (*payment.CaptureResult, error) {
	m.calls++
	if m.result == nil {
		return nil, models.ErrUpstreamPlatform
	}
	return m.result, nil
}

func mpAccess(orgID, token string) models.PaymentGatewayAccess {
	return models.PaymentGatewayAccess{
		Organization_id: orgID,
		Gateway:         models.MethodMercadoPago,
		Credentials:     models.PaymentCredentials{AccessToken: token},
	}
}

func mpNotification(paymentID string) WebhookNotification {
	var n WebhookNotification
	n.Type = "payment"
	n.Data.ID = paymentID
	return n
}

const reconcilerOrderID = "59f9dd93-6f0a-4f0b-8f3f-1f2d3c4b5a01"

func TestMercadoPagoWebhook_ResolvesOwnerByAuthentication(t *testing.T) {
	order := &models.Order{
		Order_id:        reconcilerOrderID,
		Organization_id: "org-3",
		Payment_status:  models.PaymentPending,
	}
	orders := &mockOrderFinder{orders: map[string]*models.Order{order.Order_id: order}}
	applier := &mockPaymentApplier{}
	configs := &mockConfigSource{paymentConfigs: []models.PaymentGatewayAccess{
		mpAccess("org-1", "token-1"),
		mpAccess("org-2", "token-2"),
		mpAccess("org-3", "token-3"),
	}}
	gateway := &mockMercadoPago{payments: map[string]*payment.PaymentInfo{
		"token-3": {ID: "mp-777", Status: "approved", ExternalReference: order.Order_id, TransactionAmount: 150.0},
	}}

	r := NewPaymentReconciler(orders, applier, configs, gateway, &mockPayPal{})
	r.HandleMercadoPagoWebhook(context.Background(), mpNotification("mp-777"))

	if len(applier.applied) != 1 {
		t.Fatalf("expected 1 payment update, got %d", len(applier.applied))
	}
	update := applier.applied[0]
	if update.Organization_id != "org-3" || update.Order_id != order.Order_id {
		t.Errorf("update addressed wrong owner: %+v", update)
	}
	if update.Status != models.PaymentPaid {
		t.Errorf("expected paid, got %s", update.Status)
	}
	if update.External_reference != "mp-777" {
		t.Errorf("expected gateway payment id as external reference, got %s", update.External_reference)
	}
}

func TestMercadoPagoWebhook_AlreadyPaidIsNoOp(t *testing.T) {
	order := &models.Order{
		Order_id:        reconcilerOrderID,
		Organization_id: "org-1",
		Payment_status:  models.PaymentPaid,
	}
	orders := &mockOrderFinder{orders: map[string]*models.Order{order.Order_id: order}}
	applier := &mockPaymentApplier{}
	configs := &mockConfigSource{paymentConfigs: []models.PaymentGatewayAccess{mpAccess("org-1", "token-1")}}
	gateway := &mockMercadoPago{payments: map[string]*payment.PaymentInfo{
		"token-1": {ID: "mp-777", Status: "approved", ExternalReference: order.Order_id},
	}}

	r := NewPaymentReconciler(orders, applier, configs, gateway, &mockPayPal{})
	r.HandleMercadoPagoWebhook(context.Background(), mpNotification("mp-777"))

	if len(applier.applied) != 0 {
		t.Errorf("duplicate paid notification produced %d writes", len(applier.applied))
	}
}

func TestMercadoPagoWebhook_UnresolvableAcrossOrganizations(t *testing.T) {
	orders := &mockOrderFinder{orders: map[string]*models.Order{}}
	applier := &mockPaymentApplier{}
	var accessList []models.PaymentGatewayAccess
	for _, org := range []string{"org-1", "org-2", "org-3", "org-4", "org-5"} {
		accessList = append(accessList, mpAccess(org, "token-"+org))
	}
	configs := &mockConfigSource{paymentConfigs: accessList}
	gateway := &mockMercadoPago{payments: map[string]*payment.PaymentInfo{}}

	r := NewPaymentReconciler(orders, applier, configs, gateway, &mockPayPal{})
	r.HandleMercadoPagoWebhook(context.Background(), mpNotification("mp-unknown"))

	if gateway.probes != 5 {
		t.Errorf("expected all 5 organizations probed, got %d", gateway.probes)
	}
	if len(applier.applied) != 0 {
		t.Errorf("unresolvable notification produced %d writes", len(applier.applied))
	}
}

func TestMercadoPagoWebhook_UnknownStatusMapsToPending(t *testing.T) {
	order := &models.Order{
		Order_id:        reconcilerOrderID,
		Organization_id: "org-1",
		Payment_status:  models.PaymentPending,
	}
	orders := &mockOrderFinder{orders: map[string]*models.Order{order.Order_id: order}}
	applier := &mockPaymentApplier{}
	configs := &mockConfigSource{paymentConfigs: []models.PaymentGatewayAccess{mpAccess("org-1", "token-1")}}
	gateway := &mockMercadoPago{payments: map[string]*payment.PaymentInfo{
		"token-1": {ID: "mp-778", Status: "in_mediation", ExternalReference: order.Order_id},
	}}

	r := NewPaymentReconciler(orders, applier, configs, gateway, &mockPayPal{})
	r.HandleMercadoPagoWebhook(context.Background(), mpNotification("mp-778"))

	if len(applier.applied) != 1 {
		t.Fatalf("expected 1 payment update, got %d", len(applier.applied))
	}
	if applier.applied[0].Status != models.PaymentPending {
		t.Errorf("unknown gateway status mapped to %s, want pending", applier.applied[0].Status)
	}
}

func TestMercadoPagoWebhook_IgnoresOtherNotificationTypes(t *testing.T) {
	applier := &mockPaymentApplier{}
	gateway := &mockMercadoPago{payments: map[string]*payment.PaymentInfo{}}
	r := NewPaymentReconciler(&mockOrderFinder{}, applier, &mockConfigSource{}, gateway, &mockPayPal{})

	var n WebhookNotification
	n.Type = "merchant_order"
	n.Data.ID = "123"
	r.HandleMercadoPagoWebhook(context.Background(), n)

	if gateway.probes != 0 || len(applier.applied) != 0 {
		t.Error("non-payment notification triggered gateway calls or writes")
	}
}

func TestPayPalReturn_CapturesAndApplies(t *testing.T) {
	order := &models.Order{
		Order_id:        reconcilerOrderID,
		Organization_id: "org-1",
		Payment_status:  models.PaymentPending,
	}
	orders := &mockOrderFinder{orders: map[string]*models.Order{order.Order_id: order}}
	applier := &mockPaymentApplier{}
	configs := &mockConfigSource{paymentConfigs: []models.PaymentGatewayAccess{{
		Organization_id: "org-1",
		Gateway:         models.MethodPayPal,
	}}}
	paypal := &mockPayPal{result: &payment.CaptureResult{ID: "pp-55", Status: "COMPLETED"}}

	r := NewPaymentReconciler(orders, applier, configs, &mockMercadoPago{}, paypal)
	r.HandlePayPalReturn(context.Background(), order.Order_id, "EC-TOKEN")

	if paypal.calls != 1 {
		t.Fatalf("expected 1 capture call, got %d", paypal.calls)
	}
	if len(applier.applied) != 1 {
		t.Fatalf("expected 1 payment update, got %d", len(applier.applied))
	}
	update := applier.applied[0]
	if update.Status != models.PaymentPaid || update.Method != models.MethodPayPal {
		t.Errorf("unexpected update: %+v", update)
	}
}

func TestPayPalReturn_MalformedOrderID(t *testing.T) {
	applier := &mockPaymentApplier{}
	paypal := &mockPayPal{result: &payment.CaptureResult{Status: "COMPLETED"}}
	r := NewPaymentReconciler(&mockOrderFinder{}, applier, &mockConfigSource{}, &mockMercadoPago{}, paypal)

	r.HandlePayPalReturn(context.Background(), "not-a-uuid", "EC-TOKEN")

	if paypal.calls != 0 || len(applier.applied) != 0 {
		t.Error("malformed order id reached the gateway or storage")
	}
}
