package storage

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

const (
	filesCollection    = "files"
	messagesCollection = "messages"
)

// MongoStore owns the client shared by the file and message repositories
type MongoStore struct {
	client *mongo.Client
	db     *mongo.Database
}

// NewMongoStore connects to MongoDB and verifies the connection.
// timeout bounds every operation issued through the client.
func NewMongoStore(ctx context.Context, uri, database string, timeout time.Duration) (*MongoStore, error) {
	opts := options.Client().ApplyURI(uri)
	if timeout > 0 {
		opts.SetTimeout(timeout)
	}

	client, err := mongo.Connect(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	return &MongoStore{client: client, db: client.Database(database)}, nil
}

// Close disconnects the client
func (s *MongoStore) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

// Ping checks that the database is reachable
func (s *MongoStore) Ping(ctx context.Context) error {
	ctx, span := tracer.Start(ctx, "mongo.ping")
	defer span.End()

	if err := s.client.Ping(ctx, nil); err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to ping MongoDB: %w", err)
	}
	return nil
}

// EnsureFileIndexes creates the indexes backing the file listing filters
func (s *MongoStore) EnsureFileIndexes(ctx context.Context) error {
	return s.ensureIndexes(ctx, filesCollection, []mongo.IndexModel{
		{Keys: bson.D{{Key: "workspace_id", Value: 1}, {Key: "created_at", Value: -1}}},
		{Keys: bson.D{{Key: "channel_id", Value: 1}, {Key: "created_at", Value: -1}}},
		{Keys: bson.D{{Key: "uploaded_by", Value: 1}}},
		{Keys: bson.D{{Key: "deleted_at", Value: 1}}},
	})
}

// EnsureMessageIndexes creates the indexes backing channel and thread reads
func (s *MongoStore) EnsureMessageIndexes(ctx context.Context) error {
	return s.ensureIndexes(ctx, messagesCollection, []mongo.IndexModel{
		{Keys: bson.D{{Key: "channel_id", Value: 1}, {Key: "created_at", Value: -1}}},
		{Keys: bson.D{{Key: "thread_id", Value: 1}, {Key: "created_at", Value: 1}}},
		{Keys: bson.D{{Key: "user_id", Value: 1}}},
		{Keys: bson.D{{Key: "deleted_at", Value: 1}}},
	})
}

func (s *MongoStore) ensureIndexes(ctx context.Context, collection string, indexes []mongo.IndexModel) error {
	ctx, span := tracer.Start(ctx, "mongo.ensure_indexes")
	defer span.End()

	if _, err := s.db.Collection(collection).Indexes().CreateMany(ctx, indexes); err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to create indexes for %s: %w", collection, err)
	}
	return nil
}

// Files returns the repository over the files collection
func (s *MongoStore) Files() *MongoFileRepository {
	return &MongoFileRepository{coll: s.db.Collection(filesCollection)}
}

// Messages returns the repository over the messages collection
func (s *MongoStore) Messages() *MongoMessageRepository {
	return &MongoMessageRepository{coll: s.db.Collection(messagesCollection)}
}

func objectID(id string) (bson.ObjectID, error) {
	oid, err := bson.ObjectIDFromHex(id)
	if err != nil {
		return bson.ObjectID{}, fmt.Errorf("%w: %q", ErrInvalidID, id)
	}
	return oid, nil
}

func toInt64Ptr(v *uint32) *int64 {
	if v == nil {
		return nil
	}
	n := int64(*v)
	return &n
}

func toUint32Ptr(v *int64) *uint32 {
	if v == nil {
		return nil
	}
	n := uint32(*v)
	return &n
}
