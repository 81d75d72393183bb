package metadata

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

const collectionName = "url_metadata"

// Store is the URLMetadata Store contract (spec.md §4.5).
type Store interface {
	IncrementAndGetCount(ctx context.Context, url string, publisherID int64) (int, error)
	GetCount(ctx context.Context, url string) (int, error)
}

type mongoStore struct {
	coll *mongo.Collection
	log  *zap.Logger
}

// NewMongoStore wires the Metadata Store to the url_metadata collection.
func NewMongoStore(ctx context.Context, db *mongo.Database, log *zap.Logger) (Store, error) {
	coll := db.Collection(collectionName)
	_, err := coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "url", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return nil, err
	}
	return &mongoStore{coll: coll, log: log}, nil
}

// IncrementAndGetCount performs the upsert + $inc of spec.md §4.5 in a
// single round-trip via FindOneAndUpdate, returning the post-increment
// count without a separate read.
func (s *mongoStore) IncrementAndGetCount(ctx context.Context, url string, publisherID int64) (int, error) {
	now := time.Now().UTC()
	filter := bson.M{"url": url}
	update := bson.M{
		"$inc": bson.M{"request_count": 1},
		"$set": bson.M{"publisher_id": publisherID, "last_requested_at": now, "updated_at": now},
		"$setOnInsert": bson.M{"first_requested_at": now, "created_at": now},
	}
	opts := options.FindOneAndUpdate().
		SetUpsert(true).
		SetReturnDocument(options.After)

	var record Record
	if err := s.coll.FindOneAndUpdate(ctx, filter, update, opts).Decode(&record); err != nil {
		return 0, err
	}
	return record.RequestCount, nil
}

func (s *mongoStore) GetCount(ctx context.Context, url string) (int, error) {
	var record Record
	err := s.coll.FindOne(ctx, bson.M{"url": url}).Decode(&record)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return 0, nil
		}
		return 0, err
	}
	return record.RequestCount, nil
}
