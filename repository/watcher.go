package repository

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"github.com/meatvault/stock-service/realtime"
)

// listOwned runs the canonical collection query: every document owned by the
// user, newest created first. Creation order is assigned by the store, so
// this ordering is stable across subscribers.
func listOwned[T any](ctx context.Context, coll *mongo.Collection, ownerField, ownerID string) ([]T, error) {
	cursor, err := coll.Find(ctx,
		bson.M{ownerField: ownerID},
		options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}}),
	)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	docs := []T{}
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, err
	}
	return docs, nil
}

// watchOwned implements the subscribe-to-query primitive on top of a change
// stream. The initial query runs synchronously so an access failure is
// reported before any snapshot is emitted; afterwards every relevant change
// event triggers a full re-query and the complete result set is emitted as
// one snapshot. Emitting whole snapshots rather than deltas keeps consumers
// trivially convergent with the store.
func watchOwned[T any](ctx context.Context, coll *mongo.Collection, ownerField, ownerID string, log *zap.Logger) (<-chan realtime.Snapshot[T], error) {
	docs, err := listOwned[T](ctx, coll, ownerField, ownerID)
	if err != nil {
		return nil, err
	}

	// Delete events carry no full document, so they always pass the filter;
	// the re-query scopes the result back down to this owner.
	pipeline := mongo.Pipeline{
		bson.D{{Key: "$match", Value: bson.D{{Key: "$or", Value: bson.A{
			bson.D{{Key: "fullDocument." + ownerField, Value: ownerID}},
			bson.D{{Key: "operationType", Value: "delete"}},
		}}}}},
	}

	stream, err := coll.Watch(ctx, pipeline,
		options.ChangeStream().SetFullDocument(options.UpdateLookup))
	if err != nil {
		return nil, err
	}

	ch := make(chan realtime.Snapshot[T], 1)
	ch <- realtime.Snapshot[T]{Docs: docs}

	go func() {
		defer close(ch)
		defer stream.Close(context.Background())

		for stream.Next(ctx) {
			docs, err := listOwned[T](ctx, coll, ownerField, ownerID)
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				send(ctx, ch, realtime.Snapshot[T]{Err: err})
				return
			}
			if !send(ctx, ch, realtime.Snapshot[T]{Docs: docs}) {
				return
			}
		}

		if err := stream.Err(); err != nil && ctx.Err() == nil {
			log.Warn("change stream ended",
				zap.String("collection", coll.Name()), zap.Error(err))
			send(ctx, ch, realtime.Snapshot[T]{Err: err})
		}
	}()

	return ch, nil
}

func send[T any](ctx context.Context, ch chan<- realtime.Snapshot[T], snap realtime.Snapshot[T]) bool {
	select {
	case ch <- snap:
		return true
	case <-ctx.Done():
		return false
	}
}
