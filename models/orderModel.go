package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Order sources
const (
	SourceWeb        = "web"
	SourceQRTable    = "qr_table"
	SourcePOSInhouse = "pos_inhouse"
	SourceUberEats   = "uber_eats"
	SourceRappi      = "rappi"
	SourceWhatsApp   = "whatsapp"
)

// Order types
const (
	TypeDineIn          = "dine_in"
	TypeTakeaway        = "takeaway"
	TypePickupScheduled = "pickup_scheduled"
)

// Order payment statuses
const (
	PaymentPending  = "pending"
	PaymentPaid     = "paid"
	PaymentRefunded = "refunded"
)

// ItemModifiers packs the fixed ingredient snapshot, the customer's modifier
// selections and the kitchen bump flag. Only Bumped is ever written after the
// item is created, and once true it stays true.
type ItemModifiers struct {
	Ingredients []string `bson:"ingredients" json:"ingredients"`
	Selections  []string `bson:"selections" json:"selections"`
	Bumped      bool     `bson:"bumped" json:"bumped"`
}

type OrderItem struct {
	Item_id      string        `bson:"item_id" json:"item_id"`
	Menu_item_id string        `bson:"menu_item_id" json:"menu_item_id" validate:"required"`
	Name         string        `bson:"name" json:"name" validate:"required,min=1,max=150"`
	Quantity     int           `bson:"quantity" json:"quantity" validate:"required,gt=0"`
	Unit_price   float64       `bson:"unit_price" json:"unit_price" validate:"gte=0"`
	Station      string        `bson:"station" json:"station"`
	Modifiers    ItemModifiers `bson:"modifiers" json:"modifiers"`
}

// Order items are embedded in the order document so the all-bumped check, the
// status compare-and-swap and the event feed read are single-document operations.
type Order struct {
	ID                primitive.ObjectID `bson:"_id,omitempty" json:"-"`
	Order_id          string             `bson:"order_id" json:"order_id"`
	Organization_id   string             `bson:"organization_id" json:"organization_id"`
	Branch_id         string             `bson:"branch_id" json:"branch_id"`
	Source            string             `bson:"source" json:"source" validate:"required,oneof=web qr_table pos_inhouse uber_eats rappi whatsapp"`
	Type              string             `bson:"type" json:"type" validate:"required,oneof=dine_in takeaway pickup_scheduled"`
	Status            string             `bson:"status" json:"status"`
	Payment_status    string             `bson:"payment_status" json:"payment_status"`
	External_order_id *string            `bson:"external_order_id,omitempty" json:"external_order_id,omitempty"`
	Customer_phone    *string            `bson:"customer_phone,omitempty" json:"customer_phone,omitempty"`
	Notes             string             `bson:"notes" json:"notes"`
	Items             []OrderItem        `bson:"items" json:"items" validate:"required,min=1,dive"`
	Created_at        time.Time          `bson:"created_at" json:"created_at"`
	Updated_at        time.Time          `bson:"updated_at" json:"updated_at"`
}

// FindItem returns the embedded item with the given id, or nil.
func (o *Order) FindItem(itemID string) *OrderItem {
	for i := range o.Items {
		if o.Items[i].Item_id == itemID {
			return &o.Items[i]
		}
	}
	return nil
}

// AllItemsBumped reports whether every item on the order has been bumped.
func (o *Order) AllItemsBumped() bool {
	if len(o.Items) == 0 {
		return false
	}
	for i := range o.Items {
		if !o.Items[i].Modifiers.Bumped {
			return false
		}
	}
	return true
}

// IsExternalSource reports whether the order originated on a delivery platform
// that must be informed of status changes.
func (o *Order) IsExternalSource() bool {
	switch o.Source {
	case SourceUberEats, SourceRappi, SourceWhatsApp:
		return true
	}
	return false
}
