package storage

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func (db *DB) SaveSessionState(ctx context.Context, key, value string) error {
	filter := bson.M{"key": key}
	update := bson.M{
		"$set": bson.M{
			"value":      value,
			"updated_at": time.Now(),
		},
	}
	opts := options.Update().SetUpsert(true)

	_, err := db.sessionState.UpdateOne(ctx, filter, update, opts)
	if err != nil {
		return fmt.Errorf("failed to save session state: %w", err)
	}
	return nil
}

// GetSessionState returns "" without error when the key has never been
// stored.
func (db *DB) GetSessionState(ctx context.Context, key string) (string, error) {
	var state SessionState
	err := db.sessionState.FindOne(ctx, bson.M{"key": key}).Decode(&state)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return "", nil
		}
		return "", fmt.Errorf("failed to get session state: %w", err)
	}

	return state.Value, nil
}
