package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	database "github.com/restoflow/orders-backend/config"
	"github.com/restoflow/orders-backend/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var orderCollection *mongo.Collection = database.OpenCollection(database.Client, "orders")

// OrderRepository persists orders. Status writes go through a compare-and-swap
// filter so a transition validated against a stale status never lands.
type OrderRepository struct{}

func NewOrderRepository() *OrderRepository {
	return &OrderRepository{}
}

func (r *OrderRepository) InsertOrder(ctx context.Context, order *models.Order) error {
	if _, err := orderCollection.InsertOne(ctx, order); err != nil {
		return fmt.Errorf("insert order: %w", err)
	}
	return nil
}

func (r *OrderRepository) GetOrder(ctx context.Context, orgID, orderID string) (*models.Order, error) {
	var order models.Order
	err := orderCollection.FindOne(ctx, bson.M{"order_id": orderID, "organization_id": orgID}).Decode(&order)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, models.ErrOrderNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get order: %w", err)
	}
	return &order, nil
}

// FindOrder is GetOrder under the name the reconciler interfaces use.
func (r *OrderRepository) FindOrder(ctx context.Context, orgID, orderID string) (*models.Order, error) {
	return r.GetOrder(ctx, orgID, orderID)
}

// FindOrderByID looks an order up across organizations. Order ids are UUIDs,
// so the lookup is unambiguous; it exists for callbacks that carry no tenant.
func (r *OrderRepository) FindOrderByID(ctx context.Context, orderID string) (*models.Order, error) {
	var order models.Order
	err := orderCollection.FindOne(ctx, bson.M{"order_id": orderID}).Decode(&order)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, models.ErrOrderNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find order: %w", err)
	}
	return &order, nil
}

// FindOrderByExternalID locates an externally originated order by its platform
// order id, for webhook de-duplication.
func (r *OrderRepository) FindOrderByExternalID(ctx context.Context, orgID, externalOrderID string) (*models.Order, error) {
	var order models.Order
	err := orderCollection.FindOne(ctx, bson.M{"external_order_id": externalOrderID, "organization_id": orgID}).Decode(&order)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, models.ErrOrderNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find order by external id: %w", err)
	}
	return &order, nil
}

// CompareAndSwapStatus writes the new status only if the stored status still
// matches what the caller validated against. A miss on a live order reports
// models.ErrStatusConflict so the caller can re-validate and retry.
func (r *OrderRepository) CompareAndSwapStatus(ctx context.Context, orgID, orderID, current, next string, notes *string) (*models.Order, error) {
	set := bson.M{"status": next, "updated_at": time.Now()}
	if notes != nil {
		set["notes"] = *notes
	}

	var updated models.Order
	err := orderCollection.FindOneAndUpdate(ctx,
		bson.M{"order_id": orderID, "organization_id": orgID, "status": current},
		bson.M{"$set": set},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&updated)

	if errors.Is(err, mongo.ErrNoDocuments) {
		count, countErr := orderCollection.CountDocuments(ctx, bson.M{"order_id": orderID, "organization_id": orgID})
		if countErr != nil {
			return nil, fmt.Errorf("swap status: %w", countErr)
		}
		if count == 0 {
			return nil, models.ErrOrderNotFound
		}
		return nil, models.ErrStatusConflict
	}
	if err != nil {
		return nil, fmt.Errorf("swap status: %w", err)
	}
	return &updated, nil
}

// SetItemBumped sets one embedded item's bumped flag. It only ever writes
// true; the flag is never reset while the order is alive.
func (r *OrderRepository) SetItemBumped(ctx context.Context, orgID, orderID, itemID string) (*models.Order, error) {
	var updated models.Order
	err := orderCollection.FindOneAndUpdate(ctx,
		bson.M{"order_id": orderID, "organization_id": orgID, "items.item_id": itemID},
		bson.M{"$set": bson.M{"items.$.modifiers.bumped": true, "updated_at": time.Now()}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&updated)

	if errors.Is(err, mongo.ErrNoDocuments) {
		count, countErr := orderCollection.CountDocuments(ctx, bson.M{"order_id": orderID, "organization_id": orgID})
		if countErr != nil {
			return nil, fmt.Errorf("bump item: %w", countErr)
		}
		if count == 0 {
			return nil, models.ErrOrderNotFound
		}
		return nil, models.ErrItemNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("bump item: %w", err)
	}
	return &updated, nil
}

// SetPaymentStatus is the reconciler's write: payment_status and updated_at,
// nothing else.
func (r *OrderRepository) SetPaymentStatus(ctx context.Context, orgID, orderID, status string) error {
	result, err := orderCollection.UpdateOne(ctx,
		bson.M{"order_id": orderID, "organization_id": orgID},
		bson.M{"$set": bson.M{"payment_status": status, "updated_at": time.Now()}},
	)
	if err != nil {
		return fmt.Errorf("set payment status: %w", err)
	}
	if result.MatchedCount == 0 {
		return models.ErrOrderNotFound
	}
	return nil
}

// ListUpdatedSince returns an organization's orders touched at or after the
// given watermark, oldest first. The event feed polls through this.
func (r *OrderRepository) ListUpdatedSince(ctx context.Context, orgID string, since time.Time) ([]models.Order, error) {
	cursor, err := orderCollection.Find(ctx,
		bson.M{"organization_id": orgID, "updated_at": bson.M{"$gte": since}},
		options.Find().SetSort(bson.D{{Key: "updated_at", Value: 1}}),
	)
	if err != nil {
		return nil, fmt.Errorf("list updated orders: %w", err)
	}
	defer cursor.Close(ctx)

	var orders []models.Order
	if err := cursor.All(ctx, &orders); err != nil {
		return nil, fmt.Errorf("decode updated orders: %w", err)
	}
	return orders, nil
}

// ListOrders returns one organization's orders, newest first, paginated.
func (r *OrderRepository) ListOrders(ctx context.Context, orgID string, page, perPage int) ([]models.Order, int64, error) {
	filter := bson.M{"organization_id": orgID}
	skip := int64((page - 1) * perPage)

	cursor, err := orderCollection.Find(ctx, filter,
		options.Find().
			SetSort(bson.D{{Key: "created_at", Value: -1}}).
			SetSkip(skip).
			SetLimit(int64(perPage)),
	)
	if err != nil {
		return nil, 0, fmt.Errorf("list orders: %w", err)
	}
	defer cursor.Close(ctx)

	var orders []models.Order
	if err := cursor.All(ctx, &orders); err != nil {
		return nil, 0, fmt.Errorf("decode orders: %w", err)
	}

	total, err := orderCollection.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("count orders: %w", err)
	}
	return orders, total, nil
}
