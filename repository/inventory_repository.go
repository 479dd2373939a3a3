package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"

	"github.com/meatvault/stock-service/models"
	"github.com/meatvault/stock-service/realtime"
)

// ErrNotFound is returned when a document id does not exist (or is not
// visible to the caller).
var ErrNotFound = errors.New("document not found")

// InventoryCollection is the logical collection path for inventory records.
const InventoryCollection = "inventory_items"

// InventoryRepository is the store contract the inventory service depends
// on: one live-query subscription plus plain CRUD. Timestamps are assigned
// here, the closest analog of a server-assigned stamp.
type InventoryRepository interface {
	Subscribe(ctx context.Context, userID string) (<-chan realtime.Snapshot[models.InventoryItem], error)
	List(ctx context.Context, userID string) ([]models.InventoryItem, error)
	Create(ctx context.Context, item *models.InventoryItem) (string, error)
	Update(ctx context.Context, id string, updates bson.M) error
	Delete(ctx context.Context, id string) error
}

type MongoInventoryRepository struct {
	collection *mongo.Collection
	log        *zap.Logger
}

func NewMongoInventoryRepository(db *mongo.Database, log *zap.Logger) *MongoInventoryRepository {
	return &MongoInventoryRepository{
		collection: db.Collection(InventoryCollection),
		log:        log,
	}
}

// Subscribe opens a live query over the user's items, newest created first.
// The first snapshot is emitted immediately; later snapshots follow store
// changes and each one fully supersedes the previous.
func (r *MongoInventoryRepository) Subscribe(ctx context.Context, userID string) (<-chan realtime.Snapshot[models.InventoryItem], error) {
	return watchOwned[models.InventoryItem](ctx, r.collection, "userId", userID, r.log)
}

func (r *MongoInventoryRepository) List(ctx context.Context, userID string) ([]models.InventoryItem, error) {
	return listOwned[models.InventoryItem](ctx, r.collection, "userId", userID)
}

// Create inserts the item, stamping createdAt and updatedAt with the current
// server time, and returns the assigned id.
func (r *MongoInventoryRepository) Create(ctx context.Context, item *models.InventoryItem) (string, error) {
	now := time.Now().UTC()
	item.ID = primitive.NilObjectID
	item.CreatedAt = now
	item.UpdatedAt = now

	res, err := r.collection.InsertOne(ctx, item)
	if err != nil {
		return "", fmt.Errorf("failed to insert inventory item: %w", err)
	}

	oid := res.InsertedID.(primitive.ObjectID)
	item.ID = oid
	return oid.Hex(), nil
}

// Update applies a partial $set. Only the provided fields change; updatedAt
// is stamped here on every write.
func (r *MongoInventoryRepository) Update(ctx context.Context, id string, updates bson.M) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return ErrNotFound
	}

	updates["updatedAt"] = time.Now().UTC()

	res, err := r.collection.UpdateOne(ctx, bson.M{"_id": oid}, bson.M{"$set": updates})
	if err != nil {
		return fmt.Errorf("failed to update inventory item: %w", err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *MongoInventoryRepository) Delete(ctx context.Context, id string) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return ErrNotFound
	}

	res, err := r.collection.DeleteOne(ctx, bson.M{"_id": oid})
	if err != nil {
		return fmt.Errorf("failed to delete inventory item: %w", err)
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}
