package services

import (
	"context"
	"log"

	"github.com/restoflow/orders-backend/models"
)

type DeliveryConfigSource interface {
	GetDeliveryConfig(ctx context.Context, orgID, platform string) (*models.DeliveryPlatformAccess, error)
}

type UberEatsGateway interface {
	AcceptOrder(ctx context.Context, access models.DeliveryPlatformAccess, externalOrderID string, prepMinutes int) error
	DenyOrder(ctx context.Context, access models.DeliveryPlatformAccess, externalOrderID, reason string) error
}

type RappiGateway interface {
	AcceptOrder(ctx context.Context, access models.DeliveryPlatformAccess, externalOrderID string, prepMinutes int) error
	MarkReady(ctx context.Context, access models.DeliveryPlatformAccess, externalOrderID string) error
	RejectOrder(ctx context.Context, access models.DeliveryPlatformAccess, externalOrderID, reason string) error
}

type WhatsAppGateway interface {
	SendStatusMessage(ctx context.Context, access models.DeliveryPlatformAccess, customerPhone, message string) error
}

// SyncParams describes one status change to propagate to the order's
// originating platform.
type SyncParams struct {
	OrderID          string
	OrganizationID   string
	Source           string
	ExternalOrderID  *string
	NewStatus        string
	CustomerPhone    *string
	EstimatedMinutes int
}

// whatsAppPhrases maps order statuses to the customer-facing message. Unmapped
// statuses fall back to sending the raw status string.
var whatsAppPhrases = map[string]string{
	models.StatusAccepted:  "¡Tu pedido fue aceptado y ya está en proceso!",
	models.StatusPreparing: "Tu pedido se está preparando.",
	models.StatusReady:     "¡Tu pedido está listo!",
	models.StatusCompleted: "Tu pedido fue entregado. ¡Gracias por tu compra!",
	models.StatusCancelled: "Lo sentimos, tu pedido fue cancelado.",
}

// DeliverySyncService propagates confirmed status changes to the platform the
// order came from. Everything here is best effort: any failure is logged and
// swallowed so the triggering request can never fail because of it.
type DeliverySyncService struct {
	configs  DeliveryConfigSource
	uberEats UberEatsGateway
	rappi    RappiGateway
	whatsApp WhatsAppGateway
}

func NewDeliverySyncService(configs DeliveryConfigSource, uberEats UberEatsGateway, rappi RappiGateway, whatsApp WhatsAppGateway) *DeliverySyncService {
	return &DeliverySyncService{
		configs:  configs,
		uberEats: uberEats,
		rappi:    rappi,
		whatsApp: whatsApp,
	}
}

// Dispatch runs Sync on its own goroutine with a recover boundary. The caller
// never waits on it.
func (s *DeliverySyncService) Dispatch(params SyncParams) {
	go func() {
		defer func() {
			if rec := recover(); rec != nil {
				log.Printf("[delivery-sync] order %s: panic recovered: %v", params.OrderID, rec)
			}
		}()
		s.Sync(context.Background(), params)
	}()
}

// Sync performs the platform call for one status change. Internal orders and
// statuses a platform has no call for are no-ops.
func (s *DeliverySyncService) Sync(ctx context.Context, params SyncParams) {
	switch params.Source {
	case models.PlatformUberEats:
		s.syncUberEats(ctx, params)
	case models.PlatformRappi:
		s.syncRappi(ctx, params)
	case models.PlatformWhatsApp:
		s.syncWhatsApp(ctx, params)
	default:
		// web, qr_table, pos_inhouse: nothing to propagate
	}
}

func (s *DeliverySyncService) syncUberEats(ctx context.Context, params SyncParams) {
	if params.ExternalOrderID == nil || *params.ExternalOrderID == "" {
		log.Printf("[delivery-sync] order %s: uber_eats sync without external order id, skipping", params.OrderID)
		return
	}

	access, err := s.configs.GetDeliveryConfig(ctx, params.OrganizationID, models.PlatformUberEats)
	if err != nil {
		log.Printf("[delivery-sync] order %s: uber_eats config: %v", params.OrderID, err)
		return
	}

	externalID := *params.ExternalOrderID
	switch params.NewStatus {
	case models.StatusAccepted:
		err = s.uberEats.AcceptOrder(ctx, *access, externalID, params.EstimatedMinutes)
	case models.StatusCancelled:
		err = s.uberEats.DenyOrder(ctx, *access, externalID, "")
	default:
		return
	}
	if err != nil {
		log.Printf("[delivery-sync] order %s: uber_eats %s: %v", params.OrderID, params.NewStatus, err)
	}
}

func (s *DeliverySyncService) syncRappi(ctx context.Context, params SyncParams) {
	if params.ExternalOrderID == nil || *params.ExternalOrderID == "" {
		log.Printf("[delivery-sync] order %s: rappi sync without external order id, skipping", params.OrderID)
		return
	}

	access, err := s.configs.GetDeliveryConfig(ctx, params.OrganizationID, models.PlatformRappi)
	if err != nil {
		log.Printf("[delivery-sync] order %s: rappi config: %v", params.OrderID, err)
		return
	}

	externalID := *params.ExternalOrderID
	switch params.NewStatus {
	case models.StatusAccepted:
		err = s.rappi.AcceptOrder(ctx, *access, externalID, params.EstimatedMinutes)
	case models.StatusReady:
		err = s.rappi.MarkReady(ctx, *access, externalID)
	case models.StatusCancelled:
		err = s.rappi.RejectOrder(ctx, *access, externalID, "")
	default:
		return
	}
	if err != nil {
		log.Printf("[delivery-sync] order %s: rappi %s: %v", params.OrderID, params.NewStatus, err)
	}
}

func (s *DeliverySyncService) syncWhatsApp(ctx context.Context, params SyncParams) {
	if params.CustomerPhone == nil || *params.CustomerPhone == "" {
		log.Printf("[delivery-sync] order %s: whatsapp sync without customer phone, skipping", params.OrderID)
		return
	}

	access, err := s.configs.GetDeliveryConfig(ctx, params.OrganizationID, models.PlatformWhatsApp)
	if err != nil {
		log.Printf("[delivery-sync] order %s: whatsapp config: %v", params.OrderID, err)
		return
	}

	message, ok := whatsAppPhrases[params.NewStatus]
	if !ok {
		message = params.NewStatus
	}

	if err := s.whatsApp.SendStatusMessage(ctx, *access, *params.CustomerPhone, message); err != nil {
		log.Printf("[delivery-sync] order %s: whatsapp %s: %v", params.OrderID, params.NewStatus, err)
	}
}
