package services

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"
	"github.com/yoockh/yoobuddy/internal/models"
	"github.com/yoockh/yoobuddy/internal/providers/embed"
	pgrepo "github.com/yoockh/yoobuddy/internal/repositories/postgres"
	"github.com/yoockh/yoobuddy/internal/utils"
)

// MemoryService is the fact/event store behind the reasoning pipeline
// and the context injector.
type MemoryService interface {
	StoreFact(ctx context.Context, username, fact string, category models.KnowledgeCategory) error
	StoreEvent(ctx context.Context, username, description string, eventTime time.Time, eventType string) error
	RetrieveKnowledge(ctx context.Context, username, query string, k int) ([]models.UserKnowledge, error)
	UpcomingEvents(ctx context.Context, username string, limit int) ([]models.Event, error)
}

// EmbedQueue defers embedding computation for facts stored before a
// vector could be obtained inline.
type EmbedQueue interface {
	Enqueue(ctx context.Context, username, fact string) error
}

type memoryService struct {
	knowledge pgrepo.KnowledgeRepository
	events    pgrepo.EventRepository
	embedder  embed.Embedder // optional; nil degrades to recency ordering
	backfill  EmbedQueue     // optional
}

func NewMemoryService(knowledge pgrepo.KnowledgeRepository, events pgrepo.EventRepository, embedder embed.Embedder, backfill EmbedQueue) MemoryService {
	return &memoryService{knowledge: knowledge, events: events, embedder: embedder, backfill: backfill}
}

func (s *memoryService) StoreFact(ctx context.Context, username, fact string, category models.KnowledgeCategory) error {
	const op = "MemoryService.StoreFact"

	if username == "" || fact == "" {
		return utils.E(utils.CodeInvalidArgument, op, "username and fact are required", nil)
	}
	if category == "" {
		category = models.KnowledgeOther
	}

	now := time.Now().UTC()
	row := &models.UserKnowledge{
		KnowledgeID: uuid.NewString(),
		Username:    username,
		Fact:        fact,
		Category:    category,
		Importance:  1,
		CreatedAt:   now,
		LastUpdated: now,
	}

	embedded := false
	if s.embedder != nil {
		if vec, err := s.embedder.Embed(ctx, fact); err == nil {
			row.Embedding = pgvector.NewVector(vec)
			embedded = true
		}
		// embedding failure is not fatal; the row is still stored
	}

	if err := s.knowledge.Upsert(ctx, row); err != nil {
		return utils.E(utils.CodeInternal, op, "failed to store fact", err)
	}

	if !embedded && s.backfill != nil {
		// retrieval falls back to recency ordering until the backfill
		// worker fills the vector in
		_ = s.backfill.Enqueue(ctx, username, fact)
	}
	return nil
}

func (s *memoryService) StoreEvent(ctx context.Context, username, description string, eventTime time.Time, eventType string) error {
	const op = "MemoryService.StoreEvent"

	if username == "" || description == "" {
		return utils.E(utils.CodeInvalidArgument, op, "username and description are required", nil)
	}
	if eventType == "" {
		eventType = "task"
	}

	row := &models.Event{
		EventID:     uuid.NewString(),
		Username:    username,
		Type:        eventType,
		Description: description,
		EventTime:   eventTime.UTC(),
		Priority:    1,
		Status:      models.EventPending,
		CreatedAt:   time.Now().UTC(),
	}

	if err := s.events.Insert(ctx, row); err != nil {
		return utils.E(utils.CodeInternal, op, "failed to store event", err)
	}
	return nil
}

func (s *memoryService) RetrieveKnowledge(ctx context.Context, username, query string, k int) ([]models.UserKnowledge, error) {
	const op = "MemoryService.RetrieveKnowledge"

	if username == "" {
		return nil, utils.E(utils.CodeInvalidArgument, op, "username is required", nil)
	}

	if s.embedder != nil && query != "" {
		if vec, err := s.embedder.Embed(ctx, query); err == nil {
			rows, err := s.knowledge.SearchByEmbedding(ctx, username, vec, k)
			if err == nil {
				return rows, nil
			}
		}
	}

	// no embedder, empty query, or vector search failed: recency fallback
	rows, err := s.knowledge.ListRecent(ctx, username, k)
	if err != nil {
		return nil, utils.E(utils.CodeInternal, op, "failed to retrieve knowledge", err)
	}
	return rows, nil
}

func (s *memoryService) UpcomingEvents(ctx context.Context, username string, limit int) ([]models.Event, error) {
	const op = "MemoryService.UpcomingEvents"

	if username == "" {
		return nil, utils.E(utils.CodeInvalidArgument, op, "username is required", nil)
	}

	rows, err := s.events.ListUpcoming(ctx, username, time.Now().UTC(), limit)
	if err != nil {
		return nil, utils.E(utils.CodeInternal, op, "failed to list upcoming events", err)
	}
	return rows, nil
}
