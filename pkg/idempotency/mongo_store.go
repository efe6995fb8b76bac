package idempotency

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const keysCollection = "idempotency_keys"

// MongoStore is a KeyStore backed by a MongoDB collection with a TTL
// index on expiresAt
type MongoStore struct {
	collection *mongo.Collection
	ttl        time.Duration
}

// NewMongoStore creates a MongoStore and ensures its indexes
func NewMongoStore(ctx context.Context, db *mongo.Database, ttl time.Duration) (*MongoStore, error) {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	store := &MongoStore{
		collection: db.Collection(keysCollection),
		ttl:        ttl,
	}
	if err := store.ensureIndexes(ctx); err != nil {
		return nil, err
	}
	return store, nil
}

func (s *MongoStore) ensureIndexes(ctx context.Context) error {
	indexes := []mongo.IndexModel{
		{
			Keys: bson.D{
				{Key: "itemId", Value: 1},
				{Key: "operation", Value: 1},
				{Key: "key", Value: 1},
			},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys:    bson.D{{Key: "expiresAt", Value: 1}},
			Options: options.Index().SetExpireAfterSeconds(0),
		},
	}
	if _, err := s.collection.Indexes().CreateMany(ctx, indexes); err != nil {
		return fmt.Errorf("create idempotency indexes: %w", err)
	}
	return nil
}

func (s *MongoStore) Claim(ctx context.Context, itemID, operation, key string) (*MutationKey, error) {
	now := time.Now().UTC()
	doc := MutationKey{
		ItemID:    itemID,
		Operation: operation,
		Key:       key,
		Status:    StatusInProgress,
		ClaimedAt: now,
		ExpiresAt: now.Add(s.ttl),
	}

	_, err := s.collection.InsertOne(ctx, doc)
	if err == nil {
		return nil, nil
	}
	if !mongo.IsDuplicateKeyError(err) {
		return nil, fmt.Errorf("claim idempotency key: %w", err)
	}

	// Key already exists: either a stored result to replay or a
	// concurrent in-flight mutation.
	var existing MutationKey
	filter := bson.M{"itemId": itemID, "operation": operation, "key": key}
	if err := s.collection.FindOne(ctx, filter).Decode(&existing); err != nil {
		if err == mongo.ErrNoDocuments {
			// Raced with a TTL expiry or a Release; treat as in progress
			// and let the client retry.
			return nil, ErrDuplicateInProgress
		}
		return nil, fmt.Errorf("load idempotency key: %w", err)
	}

	if existing.Status == StatusCompleted {
		return &existing, nil
	}
	return nil, ErrDuplicateInProgress
}

func (s *MongoStore) Complete(ctx context.Context, itemID, operation, key string, result Result) error {
	filter := bson.M{"itemId": itemID, "operation": operation, "key": key}
	update := bson.M{"$set": bson.M{
		"status": StatusCompleted,
		"result": result,
	}}
	if _, err := s.collection.UpdateOne(ctx, filter, update); err != nil {
		return fmt.Errorf("complete idempotency key: %w", err)
	}
	return nil
}

func (s *MongoStore) Release(ctx context.Context, itemID, operation, key string) error {
	filter := bson.M{
		"itemId":    itemID,
		"operation": operation,
		"key":       key,
		"status":    StatusInProgress,
	}
	if _, err := s.collection.DeleteOne(ctx, filter); err != nil {
		return fmt.Errorf("release idempotency key: %w", err)
	}
	return nil
}
