package mongo

import (
	"context"
	"time"

	"github.com/yoockh/yoobuddy/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type UtteranceRepository interface {
	Insert(ctx context.Context, u *models.Utterance) error
	ListByUser(ctx context.Context, username string, limit int64) ([]models.Utterance, error)
}

type utteranceRepo struct {
	col *mongo.Collection
}

func NewUtteranceRepo(db *mongo.Database) UtteranceRepository {
	return &utteranceRepo{col: db.Collection("utterances")}
}

func (r *utteranceRepo) Insert(ctx context.Context, u *models.Utterance) error {
	if u.Timestamp.IsZero() {
		u.Timestamp = time.Now().UTC()
	}
	_, err := r.col.InsertOne(ctx, u)
	return err
}

func (r *utteranceRepo) ListByUser(ctx context.Context, username string, limit int64) ([]models.Utterance, error) {
	if limit <= 0 {
		limit = 100
	}

	cur, err := r.col.Find(ctx,
		bson.M{"username": username},
		options.Find().
			SetSort(bson.D{{Key: "timestamp", Value: -1}}).
			SetLimit(limit),
	)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var out []models.Utterance
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}
