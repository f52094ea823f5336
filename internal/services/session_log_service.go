package services

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/yoockh/yoobuddy/internal/models"
	mongorepo "github.com/yoockh/yoobuddy/internal/repositories/mongo"
	"github.com/yoockh/yoobuddy/internal/utils"
)

// SessionLogService records socket lifecycles and archives flushed
// utterances. All writes are best-effort from the callers' perspective.
type SessionLogService interface {
	Connected(ctx context.Context, role, username string) (*models.SocketSessionRecord, error)
	Disconnected(ctx context.Context, rec *models.SocketSessionRecord) error
	ArchiveUtterance(ctx context.Context, username, text, category, reasoningContext string) error
	History(ctx context.Context, username string, limit int64) ([]models.Utterance, error)
}

type sessionLogService struct {
	sessions   mongorepo.SocketSessionRepository
	utterances mongorepo.UtteranceRepository
	ttl        time.Duration
}

func NewSessionLogService(sessions mongorepo.SocketSessionRepository, utterances mongorepo.UtteranceRepository, ttl time.Duration) SessionLogService {
	if ttl <= 0 {
		ttl = 30 * 24 * time.Hour
	}
	return &sessionLogService{sessions: sessions, utterances: utterances, ttl: ttl}
}

func (s *sessionLogService) Connected(ctx context.Context, role, username string) (*models.SocketSessionRecord, error) {
	const op = "SessionLogService.Connected"

	if role == "" || username == "" {
		return nil, utils.E(utils.CodeInvalidArgument, op, "role and username are required", nil)
	}

	rec := &models.SocketSessionRecord{
		SessionID:   uuid.NewString(),
		Username:    username,
		Role:        role,
		ConnectedAt: time.Now().UTC(),
	}
	if err := s.sessions.Create(ctx, rec); err != nil {
		return nil, utils.E(utils.CodeInternal, op, "failed to record connection", err)
	}
	return rec, nil
}

func (s *sessionLogService) Disconnected(ctx context.Context, rec *models.SocketSessionRecord) error {
	const op = "SessionLogService.Disconnected"

	if rec == nil || rec.SessionID == "" {
		return utils.E(utils.CodeInvalidArgument, op, "session record is required", nil)
	}

	now := time.Now().UTC()
	dur := int64(now.Sub(rec.ConnectedAt).Seconds())
	if dur < 0 {
		dur = 0
	}

	if err := s.sessions.MarkDisconnected(ctx, rec.SessionID, now, dur); err != nil {
		return utils.E(utils.CodeInternal, op, "failed to record disconnection", err)
	}
	return nil
}

func (s *sessionLogService) ArchiveUtterance(ctx context.Context, username, text, category, reasoningContext string) error {
	const op = "SessionLogService.ArchiveUtterance"

	if username == "" || text == "" {
		return utils.E(utils.CodeInvalidArgument, op, "username and text are required", nil)
	}

	now := time.Now().UTC()
	doc := &models.Utterance{
		Username:  username,
		Text:      text,
		Category:  category,
		Context:   reasoningContext,
		Timestamp: now,
		ExpiresAt: now.Add(s.ttl),
	}
	if err := s.utterances.Insert(ctx, doc); err != nil {
		return utils.E(utils.CodeInternal, op, "failed to archive utterance", err)
	}
	return nil
}

func (s *sessionLogService) History(ctx context.Context, username string, limit int64) ([]models.Utterance, error) {
	const op = "SessionLogService.History"

	if username == "" {
		return nil, utils.E(utils.CodeInvalidArgument, op, "username is required", nil)
	}

	out, err := s.utterances.ListByUser(ctx, username, limit)
	if err != nil {
		return nil, utils.E(utils.CodeInternal, op, "failed to list utterances", err)
	}
	return out, nil
}
