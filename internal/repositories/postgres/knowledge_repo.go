package postgres

import (
	"context"

	"github.com/pgvector/pgvector-go"
	"github.com/yoockh/yoobuddy/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type KnowledgeRepository interface {
	Upsert(ctx context.Context, k *models.UserKnowledge) error
	// SearchByEmbedding orders by cosine distance to the query vector.
	SearchByEmbedding(ctx context.Context, username string, query []float32, k int) ([]models.UserKnowledge, error)
	// ListRecent is the fallback ordering when no query embedding is available.
	ListRecent(ctx context.Context, username string, k int) ([]models.UserKnowledge, error)
	// SetEmbedding fills in the vector for an already stored fact.
	SetEmbedding(ctx context.Context, username, fact string, vec []float32) error
}

type knowledgeRepo struct {
	db *gorm.DB
}

func NewKnowledgeRepo(db *gorm.DB) KnowledgeRepository {
	return &knowledgeRepo{db: db}
}

func (r *knowledgeRepo) Upsert(ctx context.Context, k *models.UserKnowledge) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "username"}, {Name: "fact"}},
			DoUpdates: clause.AssignmentColumns([]string{"category", "importance", "keywords", "embedding", "last_updated"}),
		}).
		Create(k).Error
}

func (r *knowledgeRepo) SearchByEmbedding(ctx context.Context, username string, query []float32, k int) ([]models.UserKnowledge, error) {
	if k <= 0 {
		k = 5
	}

	var rows []models.UserKnowledge
	err := r.db.WithContext(ctx).
		Where("username = ?", username).
		Clauses(clause.OrderBy{
			Expression: clause.Expr{SQL: "embedding <=> ?", Vars: []interface{}{pgvector.NewVector(query)}},
		}).
		Limit(k).
		Find(&rows).Error
	return rows, err
}

func (r *knowledgeRepo) ListRecent(ctx context.Context, username string, k int) ([]models.UserKnowledge, error) {
	if k <= 0 {
		k = 5
	}

	var rows []models.UserKnowledge
	err := r.db.WithContext(ctx).
		Where("username = ?", username).
		Order("last_updated DESC").
		Limit(k).
		Find(&rows).Error
	return rows, err
}

func (r *knowledgeRepo) SetEmbedding(ctx context.Context, username, fact string, vec []float32) error {
	return r.db.WithContext(ctx).
		Model(&models.UserKnowledge{}).
		Where("username = ? AND fact = ?", username, fact).
		Updates(map[string]interface{}{
			"embedding":    pgvector.NewVector(vec),
			"last_updated": gorm.Expr("NOW()"),
		}).Error
}
