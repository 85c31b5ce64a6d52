package storage

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type DB struct {
	client   *mongo.Client
	database *mongo.Database

	// Collections
	navigations  *mongo.Collection
	sessionState *mongo.Collection
	rateLimits   *mongo.Collection
}

type Config struct {
	URI      string
	Database string
	Timeout  time.Duration
}

func New(cfg *Config) (*DB, error) {
	ctx, cancel := context.WithTimeout(context.Background(), cfg.Timeout)
	defer cancel()

	clientOptions := options.Client().
		ApplyURI(cfg.URI).
		SetMaxPoolSize(20).
		SetMaxConnIdleTime(30 * time.Second)

	client, err := mongo.Connect(ctx, clientOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}

	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	database := client.Database(cfg.Database)

	db := &DB{
		client:       client,
		database:     database,
		navigations:  database.Collection("navigations"),
		sessionState: database.Collection("session_state"),
		rateLimits:   database.Collection("rate_limits"),
	}

	if err := db.createIndexes(ctx); err != nil {
		return nil, fmt.Errorf("failed to create indexes: %w", err)
	}

	return db, nil
}

func (db *DB) createIndexes(ctx context.Context) error {
	navigationIndexes := []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "started_at", Value: -1}},
		},
		{
			Keys: bson.D{{Key: "outcome", Value: 1}, {Key: "started_at", Value: -1}},
		},
		{
			Keys: bson.D{{Key: "url", Value: 1}},
		},
	}

	if _, err := db.navigations.Indexes().CreateMany(ctx, navigationIndexes); err != nil {
		return fmt.Errorf("failed to create navigation indexes: %w", err)
	}

	sessionIndexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "key", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
	}

	if _, err := db.sessionState.Indexes().CreateMany(ctx, sessionIndexes); err != nil {
		return fmt.Errorf("failed to create session state indexes: %w", err)
	}

	rateLimitIndexes := []mongo.IndexModel{
		{
			Keys: bson.D{
				{Key: "action_type", Value: 1},
				{Key: "date", Value: 1},
			},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys: bson.D{
				{Key: "action_type", Value: 1},
				{Key: "date", Value: 1},
				{Key: "hour", Value: 1},
			},
		},
		{
			Keys: bson.D{
				{Key: "action_type", Value: 1},
				{Key: "week", Value: 1},
			},
		},
	}

	if _, err := db.rateLimits.Indexes().CreateMany(ctx, rateLimitIndexes); err != nil {
		return fmt.Errorf("failed to create rate limit indexes: %w", err)
	}

	return nil
}

func (db *DB) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return db.client.Disconnect(ctx)
}

func (db *DB) Ping() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return db.client.Ping(ctx, nil)
}
