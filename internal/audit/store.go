package audit

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

const collectionName = "processing_audit"

// Store is the Audit Store contract (spec.md §4.4): insert-only, with
// query paths reserved for reporting and never consulted on the
// processing path.
type Store interface {
	Append(ctx context.Context, entry *Entry) error
	ListByURL(ctx context.Context, url string, limit int64) ([]*Entry, error)
	ListByPublisher(ctx context.Context, publisherID int64, limit int64) ([]*Entry, error)
	ListByStatus(ctx context.Context, status Status, limit int64) ([]*Entry, error)
	ListByJobID(ctx context.Context, jobID string) ([]*Entry, error)
	ListRecent(ctx context.Context, limit int64) ([]*Entry, error)
}

type mongoStore struct {
	coll *mongo.Collection
	log  *zap.Logger
}

// NewMongoStore wires the Audit Store to the processing_audit collection
// with the indexes spec.md §4.4 requires for reporting queries.
func NewMongoStore(ctx context.Context, db *mongo.Database, log *zap.Logger) (Store, error) {
	coll := db.Collection(collectionName)
	_, err := coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "url", Value: 1}, {Key: "completed_at", Value: -1}}},
		{Keys: bson.D{{Key: "publisher_id", Value: 1}, {Key: "completed_at", Value: -1}}},
		{Keys: bson.D{{Key: "status", Value: 1}, {Key: "completed_at", Value: -1}}},
		{Keys: bson.D{{Key: "job_id", Value: 1}}},
		{Keys: bson.D{{Key: "completed_at", Value: -1}}},
	})
	if err != nil {
		return nil, err
	}
	return &mongoStore{coll: coll, log: log}, nil
}

func (s *mongoStore) Append(ctx context.Context, entry *Entry) error {
	_, err := s.coll.InsertOne(ctx, entry)
	return err
}

func (s *mongoStore) ListByURL(ctx context.Context, url string, limit int64) ([]*Entry, error) {
	return s.list(ctx, bson.M{"url": url}, limit)
}

func (s *mongoStore) ListByPublisher(ctx context.Context, publisherID int64, limit int64) ([]*Entry, error) {
	return s.list(ctx, bson.M{"publisher_id": publisherID}, limit)
}

func (s *mongoStore) ListByStatus(ctx context.Context, status Status, limit int64) ([]*Entry, error) {
	return s.list(ctx, bson.M{"status": string(status)}, limit)
}

func (s *mongoStore) ListByJobID(ctx context.Context, jobID string) ([]*Entry, error) {
	return s.list(ctx, bson.M{"job_id": jobID}, 0)
}

func (s *mongoStore) ListRecent(ctx context.Context, limit int64) ([]*Entry, error) {
	return s.list(ctx, bson.M{}, limit)
}

func (s *mongoStore) list(ctx context.Context, filter bson.M, limit int64) ([]*Entry, error) {
	opts := options.Find().SetSort(bson.D{{Key: "completed_at", Value: -1}})
	if limit > 0 {
		opts.SetLimit(limit)
	}
	cur, err := s.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := cur.Close(ctx); err != nil {
			s.log.Error("closing audit cursor", zap.Error(err))
		}
	}()

	var out []*Entry
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}
