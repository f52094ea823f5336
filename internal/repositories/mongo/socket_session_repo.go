package mongo

import (
	"context"
	"time"

	"github.com/yoockh/yoobuddy/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

type SocketSessionRepository interface {
	Create(ctx context.Context, rec *models.SocketSessionRecord) error
	MarkDisconnected(ctx context.Context, sessionID string, at time.Time, durationSeconds int64) error
}

type socketSessionRepo struct {
	col *mongo.Collection
}

func NewSocketSessionRepo(db *mongo.Database) SocketSessionRepository {
	return &socketSessionRepo{col: db.Collection("socket_sessions")}
}

func (r *socketSessionRepo) Create(ctx context.Context, rec *models.SocketSessionRecord) error {
	if rec.ConnectedAt.IsZero() {
		rec.ConnectedAt = time.Now().UTC()
	}
	_, err := r.col.InsertOne(ctx, rec)
	return err
}

func (r *socketSessionRepo) MarkDisconnected(ctx context.Context, sessionID string, at time.Time, durationSeconds int64) error {
	_, err := r.col.UpdateOne(ctx,
		bson.M{"session_id": sessionID},
		bson.M{"$set": bson.M{
			"disconnected_at":  at.UTC(),
			"duration_seconds": durationSeconds,
		}},
	)
	return err
}
