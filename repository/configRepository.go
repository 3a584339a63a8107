package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"

	database "github.com/restoflow/orders-backend/config"
	helper "github.com/restoflow/orders-backend/helper"
	"github.com/restoflow/orders-backend/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

var (
	paymentConfigCollection  *mongo.Collection = database.OpenCollection(database.Client, "payment_gateway_configs")
	deliveryConfigCollection *mongo.Collection = database.OpenCollection(database.Client, "delivery_platform_configs")
)

// ConfigRepository reads gateway/platform configurations and decrypts their
// credential blobs. Configs are owned by the configuration subsystem; the core
// never writes them. A blob that fails to decrypt is treated as if the config
// did not exist.
type ConfigRepository struct {
	key []byte
}

func NewConfigRepository(key []byte) *ConfigRepository {
	return &ConfigRepository{key: key}
}

func (r *ConfigRepository) GetPaymentConfig(ctx context.Context, orgID, gateway string) (*models.PaymentGatewayAccess, error) {
	var config models.PaymentGatewayConfig
	err := paymentConfigCollection.FindOne(ctx, bson.M{
		"organization_id": orgID,
		"gateway":         gateway,
		"is_active":       true,
	}).Decode(&config)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, models.ErrConfigNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get payment config: %w", err)
	}

	access, err := r.decryptPaymentConfig(&config)
	if err != nil {
		log.Printf("[config] org %s %s credentials unreadable: %v", orgID, gateway, err)
		return nil, models.ErrConfigNotFound
	}
	return access, nil
}

// ListActivePaymentConfigs returns every organization's active, decryptable
// config for a gateway. The reconciler scans these to resolve tenant-less
// webhooks; rows with unreadable credentials are skipped, not fatal.
func (r *ConfigRepository) ListActivePaymentConfigs(ctx context.Context, gateway string) ([]models.PaymentGatewayAccess, error) {
	cursor, err := paymentConfigCollection.Find(ctx, bson.M{"gateway": gateway, "is_active": true})
	if err != nil {
		return nil, fmt.Errorf("list payment configs: %w", err)
	}
	defer cursor.Close(ctx)

	var configs []models.PaymentGatewayConfig
	if err := cursor.All(ctx, &configs); err != nil {
		return nil, fmt.Errorf("decode payment configs: %w", err)
	}

	accesses := make([]models.PaymentGatewayAccess, 0, len(configs))
	for i := range configs {
		access, err := r.decryptPaymentConfig(&configs[i])
		if err != nil {
			log.Printf("[config] org %s %s credentials unreadable, skipping: %v", configs[i].Organization_id, gateway, err)
			continue
		}
		accesses = append(accesses, *access)
	}
	return accesses, nil
}

func (r *ConfigRepository) GetDeliveryConfig(ctx context.Context, orgID, platform string) (*models.DeliveryPlatformAccess, error) {
	var config models.DeliveryPlatformConfig
	err := deliveryConfigCollection.FindOne(ctx, bson.M{
		"organization_id": orgID,
		"platform":        platform,
		"is_active":       true,
	}).Decode(&config)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, models.ErrConfigNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get delivery config: %w", err)
	}

	plaintext, err := helper.DecryptCredentials(r.key, config.Credentials)
	if err != nil {
		log.Printf("[config] org %s %s credentials unreadable: %v", orgID, platform, err)
		return nil, models.ErrConfigNotFound
	}

	var credentials models.DeliveryCredentials
	if err := json.Unmarshal(plaintext, &credentials); err != nil {
		log.Printf("[config] org %s %s credentials malformed: %v", orgID, platform, err)
		return nil, models.ErrConfigNotFound
	}

	return &models.DeliveryPlatformAccess{
		Organization_id:   config.Organization_id,
		Platform:          config.Platform,
		Is_sandbox:        config.Is_sandbox,
		External_store_id: config.External_store_id,
		Webhook_secret:    config.Webhook_secret,
		Credentials:       credentials,
	}, nil
}

func (r *ConfigRepository) decryptPaymentConfig(config *models.PaymentGatewayConfig) (*models.PaymentGatewayAccess, error) {
	plaintext, err := helper.DecryptCredentials(r.key, config.Credentials)
	if err != nil {
		return nil, err
	}

	var credentials models.PaymentCredentials
	if err := json.Unmarshal(plaintext, &credentials); err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrCredentialDecryption, err)
	}

	return &models.PaymentGatewayAccess{
		Organization_id: config.Organization_id,
		Gateway:         config.Gateway,
		Is_sandbox:      config.Is_sandbox,
		Credentials:     credentials,
	}, nil
}
