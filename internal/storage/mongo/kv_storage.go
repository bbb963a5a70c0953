package mongo

import (
	"context"
	"errors"
	"fmt"

	"github.com/bobmcallan/advisor-portal/internal/interfaces"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

const kvCollection = "kv"

type kvEntry struct {
	Key   string `bson:"_id"`
	Value string `bson:"value"`
}

// KVStorage implements interfaces.KeyValueStorage on a MongoDB collection.
type KVStorage struct {
	coll *mongo.Collection
}

func (s *KVStorage) Get(ctx context.Context, key string) (string, error) {
	var entry kvEntry
	err := s.coll.FindOne(ctx, bson.M{"_id": key}).Decode(&entry)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return "", fmt.Errorf("%s: %w", key, interfaces.ErrKeyNotFound)
	}
	if err != nil {
		return "", fmt.Errorf("error fetching key %s: %w", key, err)
	}
	return entry.Value, nil
}

func (s *KVStorage) Set(ctx context.Context, key, value string) error {
	_, err := s.coll.ReplaceOne(ctx, bson.M{"_id": key}, kvEntry{Key: key, Value: value}, options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("error setting key %s: %w", key, err)
	}
	return nil
}

func (s *KVStorage) Delete(ctx context.Context, key string) error {
	if _, err := s.coll.DeleteOne(ctx, bson.M{"_id": key}); err != nil {
		return fmt.Errorf("error deleting key %s: %w", key, err)
	}
	return nil
}

func (s *KVStorage) GetAll(ctx context.Context) (map[string]string, error) {
	cursor, err := s.coll.Find(ctx, bson.M{})
	if err != nil {
		return nil, fmt.Errorf("error listing keys: %w", err)
	}
	defer cursor.Close(ctx)

	var entries []kvEntry
	if err := cursor.All(ctx, &entries); err != nil {
		return nil, fmt.Errorf("error decoding keys: %w", err)
	}
	result := make(map[string]string, len(entries))
	for _, e := range entries {
		result[e.Key] = e.Value
	}
	return result, nil
}
