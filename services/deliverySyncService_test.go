package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/restoflow/orders-backend/models"
)

type mockDeliveryConfigs struct {
	mu      sync.Mutex
	lookups int
	access  map[string]*models.DeliveryPlatformAccess // platform -> access
}

func (m *mockDeliveryConfigs) GetDeliveryConfig(ctx context.Context, orgID, platform string) (*models.DeliveryPlatformAccess, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lookups++
	access, ok := m.access[platform]
	if !ok {
		return nil, models.ErrConfigNotFound
	}
	return access, nil
}

type mockUberEats struct {
	accepted, denied []string
	err              error
}

func (m *mockUberEats) AcceptOrder(ctx context.Context, access models.DeliveryPlatformAccess, externalOrderID string, prepMinutes int) error {
	m.accepted = append(m.accepted, externalOrderID)
	return m.err
}

func (m *mockUberEats) DenyOrder(ctx context.Context, access models.DeliveryPlatformAccess, externalOrderID, reason string) error {
	m.denied = append(m.denied, externalOrderID)
	return m.err
}

type mockRappi struct {
	accepted, ready, rejected []string
}

func (m *mockRappi) AcceptOrder(ctx context.Context, access models.DeliveryPlatformAccess, externalOrderID string, prepMinutes int) error {
	m.accepted = append(m.accepted, externalOrderID)
	return nil
}

func (m *mockRappi) MarkReady(ctx context.Context, access models.DeliveryPlatformAccess, externalOrderID string) error {
	m.ready = append(m.ready, externalOrderID)
	return nil
}

func (m *mockRappi) RejectOrder(ctx context.Context, access models.DeliveryPlatformAccess, externalOrderID, reason string) error {
	m.rejected = append(m.rejected, externalOrderID)
	return nil
}

type mockWhatsApp struct {
	mu       sync.Mutex
	messages []string
	panics   bool
	sent     chan struct{}
}

func (m *mockWhatsApp) SendStatusMessage(ctx context.Context, access models.DeliveryPlatformAccess, customerPhone, message string) error {
	m.mu.Lock()
	m.messages = append(m.messages, message)
	m.mu.Unlock()
	if m.sent != nil {
		close(m.sent)
	}
	if m.panics {
		panic("whatsapp client exploded")
	}
	return nil
}

func newSyncFixture() (*DeliverySyncService, *mockDeliveryConfigs, *mockUberEats, *mockRappi, *mockWhatsApp) {
	configs := &mockDeliveryConfigs{access: map[string]*models.DeliveryPlatformAccess{
		models.PlatformUberEats: {Organization_id: "org-1", Platform: models.PlatformUberEats},
		models.PlatformRappi:    {Organization_id: "org-1", Platform: models.PlatformRappi},
		models.PlatformWhatsApp: {Organization_id: "org-1", Platform: models.PlatformWhatsApp},
	}}
	uber := &mockUberEats{}
	rappi := &mockRappi{}
	whatsapp := &mockWhatsApp{}
	return NewDeliverySyncService(configs, uber, rappi, whatsapp), configs, uber, rappi, whatsapp
}

func strPtr(s string) *string { return &s }

func TestSync_InternalSourcesAreNoOps(t *testing.T) {
	svc, configs, uber, rappi, whatsapp := newSyncFixture()

	for _, source := range []string{models.SourceWeb, models.SourceQRTable, models.SourcePOSInhouse} {
		for _, status := range []string{models.StatusAccepted, models.StatusReady, models.StatusCancelled} {
			svc.Sync(context.Background(), SyncParams{
				OrderID:        "o-1",
				OrganizationID: "org-1",
				Source:         source,
				NewStatus:      status,
			})
		}
	}

	if configs.lookups != 0 {
		t.Errorf("internal sources looked up configs %d times", configs.lookups)
	}
	if len(uber.accepted)+len(uber.denied)+len(rappi.accepted)+len(rappi.ready)+len(rappi.rejected)+len(whatsapp.messages) != 0 {
		t.Error("internal source triggered a platform call")
	}
}

func TestSync_UberEatsStatusMapping(t *testing.T) {
	svc, _, uber, _, _ := newSyncFixture()
	params := SyncParams{
		OrderID:         "o-1",
		OrganizationID:  "org-1",
		Source:          models.SourceUberEats,
		ExternalOrderID: strPtr("uber-77"),
	}

	for _, status := range []string{models.StatusAccepted, models.StatusPreparing, models.StatusReady, models.StatusCancelled, models.StatusCompleted} {
		params.NewStatus = status
		svc.Sync(context.Background(), params)
	}

	if len(uber.accepted) != 1 || uber.accepted[0] != "uber-77" {
		t.Errorf("accept calls = %v, want exactly [uber-77]", uber.accepted)
	}
	if len(uber.denied) != 1 {
		t.Errorf("deny calls = %v, want exactly one", uber.denied)
	}
}

func TestSync_UberEatsMissingExternalIDIsNoOp(t *testing.T) {
	svc, configs, uber, _, _ := newSyncFixture()

	svc.Sync(context.Background(), SyncParams{
		OrderID:        "o-1",
		OrganizationID: "org-1",
		Source:         models.SourceUberEats,
		NewStatus:      models.StatusAccepted,
	})

	if configs.lookups != 0 || len(uber.accepted) != 0 {
		t.Error("sync without external order id reached the platform")
	}
}

func TestSync_RappiDistinguishesReady(t *testing.T) {
	svc, _, _, rappi, _ := newSyncFixture()
	params := SyncParams{
		OrderID:         "o-1",
		OrganizationID:  "org-1",
		Source:          models.SourceRappi,
		ExternalOrderID: strPtr("rappi-9"),
	}

	for _, status := range []string{models.StatusAccepted, models.StatusReady, models.StatusCancelled} {
		params.NewStatus = status
		svc.Sync(context.Background(), params)
	}

	if len(rappi.accepted) != 1 || len(rappi.ready) != 1 || len(rappi.rejected) != 1 {
		t.Errorf("rappi calls accepted=%v ready=%v rejected=%v", rappi.accepted, rappi.ready, rappi.rejected)
	}
}

func TestSync_WhatsAppPhraseTable(t *testing.T) {
	svc, _, _, _, whatsapp := newSyncFixture()
	params := SyncParams{
		OrderID:        "o-1",
		OrganizationID: "org-1",
		Source:         models.SourceWhatsApp,
		CustomerPhone:  strPtr("+5491122334455"),
	}

	params.NewStatus = models.StatusReady
	svc.Sync(context.Background(), params)
	// served has no phrase: the raw status string is sent instead
	params.NewStatus = models.StatusServed
	svc.Sync(context.Background(), params)

	if len(whatsapp.messages) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(whatsapp.messages))
	}
	if whatsapp.messages[0] != whatsAppPhrases[models.StatusReady] {
		t.Errorf("ready message = %q", whatsapp.messages[0])
	}
	if whatsapp.messages[1] != models.StatusServed {
		t.Errorf("unmapped status message = %q, want raw status", whatsapp.messages[1])
	}
}

func TestSync_WhatsAppMissingPhoneIsNoOp(t *testing.T) {
	svc, configs, _, _, whatsapp := newSyncFixture()

	svc.Sync(context.Background(), SyncParams{
		OrderID:        "o-1",
		OrganizationID: "org-1",
		Source:         models.SourceWhatsApp,
		NewStatus:      models.StatusReady,
	})

	if configs.lookups != 0 || len(whatsapp.messages) != 0 {
		t.Error("sync without customer phone reached the platform")
	}
}

func TestSync_PlatformErrorIsSwallowed(t *testing.T) {
	svc, _, uber, _, _ := newSyncFixture()
	uber.err = models.ErrUpstreamPlatform

	// Must not panic or propagate anything.
	svc.Sync(context.Background(), SyncParams{
		OrderID:         "o-1",
		OrganizationID:  "org-1",
		Source:          models.SourceUberEats,
		ExternalOrderID: strPtr("uber-77"),
		NewStatus:       models.StatusAccepted,
	})
}

func TestDispatch_RecoversPanicInBackground(t *testing.T) {
	svc, _, _, _, whatsapp := newSyncFixture()
	whatsapp.panics = true
	whatsapp.sent = make(chan struct{})

	svc.Dispatch(SyncParams{
		OrderID:        "o-1",
		OrganizationID: "org-1",
		Source:         models.SourceWhatsApp,
		CustomerPhone:  strPtr("+5491122334455"),
		NewStatus:      models.StatusReady,
	})

	select {
	case <-whatsapp.sent:
	case <-time.After(2 * time.Second):
		t.Fatal("dispatch never reached the platform client")
	}
	// Give the panic time to unwind; an unrecovered panic would crash the test
	// process here.
	time.Sleep(50 * time.Millisecond)
}
