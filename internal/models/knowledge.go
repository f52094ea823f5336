package models

import (
	"time"

	"github.com/lib/pq"
	"github.com/pgvector/pgvector-go"
)

type KnowledgeCategory string

const (
	KnowledgePreference KnowledgeCategory = "preference"
	KnowledgeMemory     KnowledgeCategory = "memory"
	KnowledgeSkill      KnowledgeCategory = "skill"
	KnowledgeHabit      KnowledgeCategory = "habit"
	KnowledgeOther      KnowledgeCategory = "other"
)

// UserKnowledge stores one extracted fact. (username, fact) is unique so
// re-stating a fact only bumps last_updated.
type UserKnowledge struct {
	KnowledgeID string            `gorm:"column:knowledge_id;type:uuid;primaryKey" json:"knowledge_id"`
	Username    string            `gorm:"column:username;type:text;index;uniqueIndex:uniq_user_fact" json:"username"`
	Fact        string            `gorm:"column:fact;type:text;uniqueIndex:uniq_user_fact" json:"fact"`
	Category    KnowledgeCategory `gorm:"column:category;type:text" json:"category"`
	Importance  int               `gorm:"column:importance;type:integer" json:"importance"`

	Keywords pq.StringArray `gorm:"column:keywords;type:text[]" json:"keywords"`

	// pgvector, cosine distance ordering on retrieval
	Embedding pgvector.Vector `gorm:"column:embedding;type:vector(1536)" json:"-"`

	CreatedAt   time.Time `gorm:"column:created_at;type:timestamptz" json:"created_at"`
	LastUpdated time.Time `gorm:"column:last_updated;type:timestamptz" json:"last_updated"`
}

func (UserKnowledge) TableName() string { return "user_knowledge" }
