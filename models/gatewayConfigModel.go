package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Delivery platforms
const (
	PlatformUberEats = "uber_eats"
	PlatformRappi    = "rappi"
	PlatformWhatsApp = "whatsapp"
)

// PaymentGatewayConfig is the stored, encrypted per-organization gateway
// configuration. The core only reads these; they are managed elsewhere.
type PaymentGatewayConfig struct {
	ID              primitive.ObjectID `bson:"_id,omitempty" json:"-"`
	Organization_id string             `bson:"organization_id" json:"organization_id"`
	Gateway         string             `bson:"gateway" json:"gateway"`
	Credentials     string             `bson:"credentials" json:"-"`
	Is_active       bool               `bson:"is_active" json:"is_active"`
	Is_sandbox      bool               `bson:"is_sandbox" json:"is_sandbox"`
	Created_at      time.Time          `bson:"created_at" json:"created_at"`
	Updated_at      time.Time          `bson:"updated_at" json:"updated_at"`
}

type DeliveryPlatformConfig struct {
	ID                primitive.ObjectID `bson:"_id,omitempty" json:"-"`
	Organization_id   string             `bson:"organization_id" json:"organization_id"`
	Platform          string             `bson:"platform" json:"platform"`
	Credentials       string             `bson:"credentials" json:"-"`
	External_store_id string             `bson:"external_store_id" json:"external_store_id"`
	Webhook_secret    string             `bson:"webhook_secret" json:"-"`
	Is_active         bool               `bson:"is_active" json:"is_active"`
	Is_sandbox        bool               `bson:"is_sandbox" json:"is_sandbox"`
	Created_at        time.Time          `bson:"created_at" json:"created_at"`
	Updated_at        time.Time          `bson:"updated_at" json:"updated_at"`
}

// PaymentCredentials is the decrypted credential blob of a payment gateway.
type PaymentCredentials struct {
	AccessToken  string `json:"access_token"`
	PublicKey    string `json:"public_key"`
	ClientID     string `json:"client_id"`
	ClientSecret string `json:"client_secret"`
}

// DeliveryCredentials is the decrypted credential blob of a delivery platform.
type DeliveryCredentials struct {
	ClientID      string `json:"client_id"`
	ClientSecret  string `json:"client_secret"`
	AccessToken   string `json:"access_token"`
	PhoneNumberID string `json:"phone_number_id"`
}

// PaymentGatewayAccess is a config row with its credentials decrypted, ready
// for a gateway call.
type PaymentGatewayAccess struct {
	Organization_id string
	Gateway         string
	Is_sandbox      bool
	Credentials     PaymentCredentials
}

type DeliveryPlatformAccess struct {
	Organization_id   string
	Platform          string
	Is_sandbox        bool
	External_store_id string
	Webhook_secret    string
	Credentials       DeliveryCredentials
}
