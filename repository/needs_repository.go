package repository

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"

	"github.com/meatvault/stock-service/models"
	"github.com/meatvault/stock-service/realtime"
)

// NeedsCollection is the logical collection path for reorder entries.
const NeedsCollection = "need_items"

// NeedsRepository is the store contract for the reorder list.
type NeedsRepository interface {
	Subscribe(ctx context.Context, userID string) (<-chan realtime.Snapshot[models.NeedItem], error)
	List(ctx context.Context, userID string) ([]models.NeedItem, error)
	Create(ctx context.Context, need *models.NeedItem) (string, error)
	Update(ctx context.Context, id string, updates bson.M) error
	Delete(ctx context.Context, id string) error
}

type MongoNeedsRepository struct {
	collection *mongo.Collection
	log        *zap.Logger
}

func NewMongoNeedsRepository(db *mongo.Database, log *zap.Logger) *MongoNeedsRepository {
	return &MongoNeedsRepository{
		collection: db.Collection(NeedsCollection),
		log:        log,
	}
}

func (r *MongoNeedsRepository) Subscribe(ctx context.Context, userID string) (<-chan realtime.Snapshot[models.NeedItem], error) {
	return watchOwned[models.NeedItem](ctx, r.collection, "addedBy", userID, r.log)
}

func (r *MongoNeedsRepository) List(ctx context.Context, userID string) ([]models.NeedItem, error) {
	return listOwned[models.NeedItem](ctx, r.collection, "addedBy", userID)
}

func (r *MongoNeedsRepository) Create(ctx context.Context, need *models.NeedItem) (string, error) {
	need.ID = primitive.NilObjectID
	need.CreatedAt = time.Now().UTC()

	res, err := r.collection.InsertOne(ctx, need)
	if err != nil {
		return "", fmt.Errorf("failed to insert need item: %w", err)
	}

	oid := res.InsertedID.(primitive.ObjectID)
	need.ID = oid
	return oid.Hex(), nil
}

func (r *MongoNeedsRepository) Update(ctx context.Context, id string, updates bson.M) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return ErrNotFound
	}

	updates["updatedAt"] = time.Now().UTC()

	res, err := r.collection.UpdateOne(ctx, bson.M{"_id": oid}, bson.M{"$set": updates})
	if err != nil {
		return fmt.Errorf("failed to update need item: %w", err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *MongoNeedsRepository) Delete(ctx context.Context, id string) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return ErrNotFound
	}

	res, err := r.collection.DeleteOne(ctx, bson.M{"_id": oid})
	if err != nil {
		return fmt.Errorf("failed to delete need item: %w", err)
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}
