package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Payment gateways
const (
	MethodMercadoPago = "mercadopago"
	MethodPayPal      = "paypal"
)

// Payment is one gateway charge attempt against an order. An order may
// accumulate several rows when a checkout is retried; at most one reaches paid.
type Payment struct {
	ID                 primitive.ObjectID `bson:"_id,omitempty" json:"-"`
	Payment_id         string             `bson:"payment_id" json:"payment_id"`
	Order_id           string             `bson:"order_id" json:"order_id" validate:"required"`
	Organization_id    string             `bson:"organization_id" json:"organization_id"`
	Amount             float64            `bson:"amount" json:"amount" validate:"gte=0"`
	Method             string             `bson:"method" json:"method" validate:"required,oneof=mercadopago paypal"`
	Status             string             `bson:"status" json:"status"`
	External_reference string             `bson:"external_reference" json:"external_reference"`
	Gateway_data       string             `bson:"gateway_data" json:"gateway_data"`
	Created_at         time.Time          `bson:"created_at" json:"created_at"`
	Updated_at         time.Time          `bson:"updated_at" json:"updated_at"`
}

// PaymentUpdate is the write the reconciler applies once a notification has
// been resolved to an order: the payment row plus the order's payment_status.
type PaymentUpdate struct {
	Organization_id    string
	Order_id           string
	Method             string
	Status             string
	Amount             float64
	External_reference string
	Gateway_data       string
}
