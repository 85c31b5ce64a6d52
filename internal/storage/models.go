package storage

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type NavigationRecord struct {
	ID         primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	URL        string             `bson:"url" json:"url"`
	Outcome    string             `bson:"outcome" json:"outcome"` // succeeded, denied
	Reason     string             `bson:"reason,omitempty" json:"reason,omitempty"`
	Platform   string             `bson:"platform,omitempty" json:"platform,omitempty"`
	StartedAt  time.Time          `bson:"started_at" json:"started_at"`
	DurationMS int64              `bson:"duration_ms" json:"duration_ms"`
}

type SessionState struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Key       string             `bson:"key" json:"key"` // e.g. "cookies:<platform>"
	Value     string             `bson:"value" json:"value"`
	UpdatedAt time.Time          `bson:"updated_at" json:"updated_at"`
}

type RateLimitTracker struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	ActionType  string             `bson:"action_type" json:"action_type"` // navigate
	Date        string             `bson:"date" json:"date"`               // YYYY-MM-DD
	Hour        int                `bson:"hour" json:"hour"`               // 0-23
	Week        string             `bson:"week" json:"week"`               // YYYY-Www
	Count       int                `bson:"count" json:"count"`
	LastUpdated time.Time          `bson:"last_updated" json:"last_updated"`
}
