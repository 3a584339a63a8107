package repository

import (
	"context"
	"fmt"
	"time"

	database "github.com/restoflow/orders-backend/config"
	"github.com/restoflow/orders-backend/models"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var paymentCollection *mongo.Collection = database.OpenCollection(database.Client, "payments")

type PaymentRepository struct {
	orders *OrderRepository
}

func NewPaymentRepository(orders *OrderRepository) *PaymentRepository {
	return &PaymentRepository{orders: orders}
}

func (r *PaymentRepository) InsertPayment(ctx context.Context, payment *models.Payment) error {
	if _, err := paymentCollection.InsertOne(ctx, payment); err != nil {
		return fmt.Errorf("insert payment: %w", err)
	}
	return nil
}

// ApplyPaymentUpdate persists a reconciled notification: it upserts the
// order+gateway payment row with the latest reference and raw payload, then
// writes the order's payment_status. The reconciler is the only caller.
func (r *PaymentRepository) ApplyPaymentUpdate(ctx context.Context, update models.PaymentUpdate) error {
	now := time.Now()

	set := bson.M{
		"status":             update.Status,
		"external_reference": update.External_reference,
		"gateway_data":       update.Gateway_data,
		"updated_at":         now,
	}
	if update.Amount > 0 {
		set["amount"] = update.Amount
	}

	_, err := paymentCollection.UpdateOne(ctx,
		bson.M{"order_id": update.Order_id, "organization_id": update.Organization_id, "method": update.Method},
		bson.M{
			"$set": set,
			"$setOnInsert": bson.M{
				"payment_id": uuid.NewString(),
				"created_at": now,
			},
		},
		options.Update().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("upsert payment: %w", err)
	}

	return r.orders.SetPaymentStatus(ctx, update.Organization_id, update.Order_id, update.Status)
}
