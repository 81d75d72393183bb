package queue

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"github.com/the-monkeys/blogqa/constants"
)

const collectionName = "processing_queue"

// ErrNotFound is returned by GetByURL when no entry exists for the given
// URL. Both Store implementations (mongoStore, FakeStore) normalize to
// this sentinel so callers (internal/checkandload) can use errors.Is
// regardless of backend.
var ErrNotFound = errors.New("queue: entry not found")

// Store is the Queue Store contract (spec.md §4.3). All methods are
// race-free: the atomicity guarantees come from MongoDB's single-document
// update semantics, the same way the teacher leans on single-statement
// Postgres UPDATEs for its quota accounting.
type Store interface {
	GetOrCreate(ctx context.Context, url string, publisherID int64, reserved bool) (entry *Entry, created bool, err error)
	Transition(ctx context.Context, url string, from *Status, to Status, updates bson.M) (*Entry, error)
	RequeueFailed(ctx context.Context, url string, resetAttempts bool) (*Entry, error)
	WorkerLease(ctx context.Context, workerID string) (*Entry, error)
	Heartbeat(ctx context.Context, url, workerID string) (bool, error)
	DeleteIfQueued(ctx context.Context, url string) (bool, error)
	GetByURL(ctx context.Context, url string) (*Entry, error)
	GetByJobID(ctx context.Context, jobID string) (*Entry, error)
	ListStaleProcessing(ctx context.Context, olderThan time.Time) ([]*Entry, error)
	CountByStatus(ctx context.Context) (map[Status]int, error)
}

type mongoStore struct {
	coll *mongo.Collection
	log  *zap.Logger
}

// NewMongoStore wires the Queue Store to the processing_queue collection
// and ensures the unique url index invariant (a) holds at the database
// level (spec.md §3).
func NewMongoStore(ctx context.Context, db *mongo.Database, log *zap.Logger) (Store, error) {
	coll := db.Collection(collectionName)
	_, err := coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "url", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "status", Value: 1}, {Key: "created_at", Value: 1}}},
		{Keys: bson.D{{Key: "current_job_id", Value: 1}}},
	})
	if err != nil {
		return nil, err
	}
	return &mongoStore{coll: coll, log: log}, nil
}

func (s *mongoStore) GetOrCreate(ctx context.Context, url string, publisherID int64, reserved bool) (*Entry, bool, error) {
	now := time.Now().UTC()
	entry := Entry{
		URL:                  url,
		PublisherID:          publisherID,
		Status:               StatusQueued,
		CurrentJobID:         uuid.NewString(),
		HeartbeatIntervalSec: constants.DefaultHeartbeatIntervalSeconds,
		CreatedAt:            now,
		UpdatedAt:            now,
		Reserved:             reserved,
	}

	_, err := s.coll.InsertOne(ctx, entry)
	if err == nil {
		return &entry, true, nil
	}
	if !mongo.IsDuplicateKeyError(err) {
		return nil, false, err
	}

	existing, getErr := s.GetByURL(ctx, url)
	if getErr != nil {
		return nil, false, getErr
	}
	return existing, false, nil
}

func (s *mongoStore) GetByURL(ctx context.Context, url string) (*Entry, error) {
	var entry Entry
	err := s.coll.FindOne(ctx, bson.M{"url": url}).Decode(&entry)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &entry, nil
}

// GetByJobID looks up an entry by its current job id, for the job-status
// and job-cancel admin endpoints (SPEC_FULL.md §6): a widget or admin
// caller only ever learns the job id, never the underlying URL.
func (s *mongoStore) GetByJobID(ctx context.Context, jobID string) (*Entry, error) {
	var entry Entry
	err := s.coll.FindOne(ctx, bson.M{"current_job_id": jobID}).Decode(&entry)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &entry, nil
}

// Transition performs the conditional update of spec.md §4.3: when from is
// non-nil it is folded into the filter so the update only applies if the
// entry is still in that state, making concurrent transitions race-free.
func (s *mongoStore) Transition(ctx context.Context, url string, from *Status, to Status, updates bson.M) (*Entry, error) {
	filter := bson.M{"url": url}
	if from != nil {
		filter["status"] = string(*from)
	}

	set := bson.M{"status": string(to), "updated_at": time.Now().UTC()}
	for k, v := range updates {
		set[k] = v
	}

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var entry Entry
	err := s.coll.FindOneAndUpdate(ctx, filter, bson.M{"$set": set}, opts).Decode(&entry)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, err
	}
	return &entry, nil
}

// RequeueFailed implements spec.md §4.3's rollback path: only an entry
// currently `failed` can be requeued, clearing its error state.
func (s *mongoStore) RequeueFailed(ctx context.Context, url string, resetAttempts bool) (*Entry, error) {
	now := time.Now().UTC()
	set := bson.M{
		"status":               string(StatusQueued),
		"current_job_id":       uuid.NewString(),
		"updated_at":           now,
		"last_reprocessed_at":  now,
		// Requeuing starts a fresh reservation decision; whoever requeued
		// this entry (internal/checkandload) marks it reserved again once
		// its own ReserveBlogSlot call actually succeeds.
		"reserved": false,
	}
	unset := bson.M{
		"last_error":  "",
		"error_type":  "",
		"worker_id":   "",
		"started_at":  "",
		"heartbeat_at": "",
		"completed_at": "",
	}
	if resetAttempts {
		set["attempt_count"] = 0
	}

	update := bson.M{
		"$set":  set,
		"$unset": unset,
		"$inc":  bson.M{"reprocessed_count": 1},
	}

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var entry Entry
	err := s.coll.FindOneAndUpdate(ctx, bson.M{"url": url, "status": string(StatusFailed)}, update, opts).Decode(&entry)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, err
	}
	return &entry, nil
}

// WorkerLease implements the atomic lease acquisition of spec.md §4.3: a
// FindOneAndUpdate with a sort guarantees FIFO ordering and that no two
// concurrent callers can observe (and lease) the same document, since
// MongoDB applies the filter/sort/update as a single atomic operation per
// document.
func (s *mongoStore) WorkerLease(ctx context.Context, workerID string) (*Entry, error) {
	now := time.Now().UTC()
	filter := bson.M{"status": bson.M{"$in": []string{string(StatusQueued), string(StatusRetry)}}}
	update := bson.M{
		"$set": bson.M{
			"status":       string(StatusProcessing),
			"worker_id":    workerID,
			"started_at":   now,
			"heartbeat_at": now,
			"updated_at":   now,
		},
		"$inc": bson.M{"attempt_count": 1},
	}
	opts := options.FindOneAndUpdate().
		SetSort(bson.D{{Key: "created_at", Value: 1}, {Key: "url", Value: 1}}).
		SetReturnDocument(options.After)

	var entry Entry
	err := s.coll.FindOneAndUpdate(ctx, filter, update, opts).Decode(&entry)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, err
	}
	return &entry, nil
}

func (s *mongoStore) Heartbeat(ctx context.Context, url, workerID string) (bool, error) {
	res, err := s.coll.UpdateOne(ctx,
		bson.M{"url": url, "status": string(StatusProcessing), "worker_id": workerID},
		bson.M{"$set": bson.M{"heartbeat_at": time.Now().UTC()}},
	)
	if err != nil {
		return false, err
	}
	return res.ModifiedCount == 1, nil
}

func (s *mongoStore) DeleteIfQueued(ctx context.Context, url string) (bool, error) {
	res, err := s.coll.DeleteOne(ctx, bson.M{"url": url, "status": string(StatusQueued)})
	if err != nil {
		return false, err
	}
	return res.DeletedCount == 1, nil
}

// ListStaleProcessing finds entries stuck in `processing` whose last
// heartbeat predates olderThan, for the liveness reclaimer of spec.md
// §4.10.
func (s *mongoStore) ListStaleProcessing(ctx context.Context, olderThan time.Time) ([]*Entry, error) {
	filter := bson.M{
		"status":       string(StatusProcessing),
		"heartbeat_at": bson.M{"$lt": olderThan},
	}
	cur, err := s.coll.Find(ctx, filter)
	if err != nil {
		return nil, err
	}
	defer func() { _ = cur.Close(ctx) }()

	var entries []*Entry
	if err := cur.All(ctx, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}

// CountByStatus aggregates the current backlog per status, for the
// worker's queue-depth gauge (SPEC_FULL.md §4.14).
func (s *mongoStore) CountByStatus(ctx context.Context) (map[Status]int, error) {
	cur, err := s.coll.Aggregate(ctx, mongo.Pipeline{
		bson.D{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: "$status"},
			{Key: "count", Value: bson.D{{Key: "$sum", Value: 1}}},
		}}},
	})
	if err != nil {
		return nil, err
	}
	defer func() { _ = cur.Close(ctx) }()

	counts := make(map[Status]int)
	var rows []struct {
		ID    string `bson:"_id"`
		Count int    `bson:"count"`
	}
	if err := cur.All(ctx, &rows); err != nil {
		return nil, err
	}
	for _, row := range rows {
		counts[Status(row.ID)] = row.Count
	}
	return counts, nil
}
