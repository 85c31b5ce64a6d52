package storage

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func (db *DB) RecordNavigation(ctx context.Context, rec *NavigationRecord) error {
	if rec.StartedAt.IsZero() {
		rec.StartedAt = time.Now()
	}

	result, err := db.navigations.InsertOne(ctx, rec)
	if err != nil {
		return fmt.Errorf("failed to record navigation: %w", err)
	}

	if oid, ok := result.InsertedID.(primitive.ObjectID); ok {
		rec.ID = oid
	}

	return nil
}

func (db *DB) RecentNavigations(ctx context.Context, limit int) ([]NavigationRecord, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "started_at", Value: -1}}).
		SetLimit(int64(limit))

	cursor, err := db.navigations.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list navigations: %w", err)
	}
	defer cursor.Close(ctx)

	var records []NavigationRecord
	if err := cursor.All(ctx, &records); err != nil {
		return nil, fmt.Errorf("failed to decode navigations: %w", err)
	}

	return records, nil
}

// NavigationStats returns per-outcome counts plus a breakdown of denial
// reasons.
func (db *DB) NavigationStats(ctx context.Context) (map[string]int64, error) {
	pipeline := []bson.M{
		{
			"$group": bson.M{
				"_id":   "$outcome",
				"count": bson.M{"$sum": 1},
			},
		},
	}

	cursor, err := db.navigations.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate navigations: %w", err)
	}
	defer cursor.Close(ctx)

	var rows []struct {
		Outcome string `bson:"_id"`
		Count   int64  `bson:"count"`
	}
	if err := cursor.All(ctx, &rows); err != nil {
		return nil, fmt.Errorf("failed to decode navigation stats: %w", err)
	}

	stats := make(map[string]int64, len(rows))
	for _, row := range rows {
		stats[row.Outcome] = row.Count
	}

	return stats, nil
}

// DenialReasons returns how often each denial reason occurred, most common
// first.
func (db *DB) DenialReasons(ctx context.Context) (map[string]int64, error) {
	pipeline := []bson.M{
		{
			"$match": bson.M{"outcome": "denied"},
		},
		{
			"$group": bson.M{
				"_id":   "$reason",
				"count": bson.M{"$sum": 1},
			},
		},
		{
			"$sort": bson.M{"count": -1},
		},
	}

	cursor, err := db.navigations.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate denial reasons: %w", err)
	}
	defer cursor.Close(ctx)

	var rows []struct {
		Reason string `bson:"_id"`
		Count  int64  `bson:"count"`
	}
	if err := cursor.All(ctx, &rows); err != nil {
		return nil, fmt.Errorf("failed to decode denial reasons: %w", err)
	}

	reasons := make(map[string]int64, len(rows))
	for _, row := range rows {
		reasons[row.Reason] = row.Count
	}

	return reasons, nil
}
