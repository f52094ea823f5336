package postgres

import (
	"context"
	"time"

	"github.com/yoockh/yoobuddy/internal/models"
	"gorm.io/gorm"
)

type EventRepository interface {
	Insert(ctx context.Context, e *models.Event) error
	// ListUpcoming returns pending events after "after", soonest first.
	ListUpcoming(ctx context.Context, username string, after time.Time, limit int) ([]models.Event, error)
	SetStatus(ctx context.Context, eventID string, status models.EventStatus) error
}

type eventRepo struct {
	db *gorm.DB
}

func NewEventRepo(db *gorm.DB) EventRepository {
	return &eventRepo{db: db}
}

func (r *eventRepo) Insert(ctx context.Context, e *models.Event) error {
	return r.db.WithContext(ctx).Create(e).Error
}

func (r *eventRepo) ListUpcoming(ctx context.Context, username string, after time.Time, limit int) ([]models.Event, error) {
	if limit <= 0 {
		limit = 5
	}

	var rows []models.Event
	err := r.db.WithContext(ctx).
		Where("username = ? AND status = ? AND event_time > ?", username, models.EventPending, after).
		Order("event_time ASC").
		Limit(limit).
		Find(&rows).Error
	return rows, err
}

func (r *eventRepo) SetStatus(ctx context.Context, eventID string, status models.EventStatus) error {
	return r.db.WithContext(ctx).
		Model(&models.Event{}).
		Where("event_id = ?", eventID).
		Update("status", status).Error
}
