package hashstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const connectTimeout = 10 * time.Second

// MongoStore keeps fingerprints as documents keyed by Key(sourceURL).
type MongoStore struct {
	client     *mongo.Client
	collection *mongo.Collection
	now        func() time.Time
}

// NewMongoStore connects to uri and verifies the connection with a ping.
func NewMongoStore(ctx context.Context, uri, database, collection string) (*MongoStore, error) {
	if uri == "" {
		return nil, errors.New("mongo uri is required")
	}

	ctx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connecting to mongo: %w", err)
	}

	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("pinging mongo: %w", err)
	}

	return &MongoStore{
		client:     client,
		collection: client.Database(database).Collection(collection),
		now:        time.Now,
	}, nil
}

// Get loads the stored fingerprint for sourceURL.
func (s *MongoStore) Get(ctx context.Context, sourceURL string) (Fingerprint, bool, error) {
	var entry Entry
	err := s.collection.FindOne(ctx, bson.M{"_id": Key(sourceURL)}).Decode(&entry)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("finding fingerprint: %w", err)
	}

	return entry.Fingerprint, entry.Fingerprint != "", nil
}

// Put upserts the fingerprint for sourceURL.
func (s *MongoStore) Put(ctx context.Context, sourceURL string, fp Fingerprint) error {
	key := Key(sourceURL)
	update := bson.M{"$set": bson.M{
		"source_url":  sourceURL,
		"fingerprint": fp,
		"updated_at":  s.now().UTC(),
	}}

	_, err := s.collection.UpdateOne(ctx, bson.M{"_id": key}, update, options.Update().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("saving fingerprint: %w", err)
	}
	return nil
}

// Close disconnects the client.
func (s *MongoStore) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}
