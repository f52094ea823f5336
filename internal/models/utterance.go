package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Utterance archives one debounced flush and its reasoning outcome.
type Utterance struct {
	ID       primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Username string             `bson:"username" json:"username"`
	Text     string             `bson:"text" json:"text"`

	Category string `bson:"category,omitempty" json:"category,omitempty"` // CHAT|FACT|EVENT
	Context  string `bson:"context,omitempty" json:"context,omitempty"`   // reasoning summary

	Timestamp time.Time `bson:"timestamp" json:"timestamp"`
	ExpiresAt time.Time `bson:"expires_at" json:"expires_at"` // for TTL index
}
