package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// SocketSessionRecord logs one socket connection lifecycle. A reconnect
// creates a fresh record; records are never reused.
type SocketSessionRecord struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	SessionID string             `bson:"session_id" json:"session_id"` // uuid v4
	Username  string             `bson:"username" json:"username"`
	Role      string             `bson:"role" json:"role"` // audio|cognition

	ConnectedAt    time.Time  `bson:"connected_at" json:"connected_at"`
	DisconnectedAt *time.Time `bson:"disconnected_at,omitempty" json:"disconnected_at,omitempty"`

	DurationSeconds int64 `bson:"duration_seconds" json:"duration_seconds"`
}
