package models

import (
	"time"

	"gorm.io/datatypes"
)

type EventStatus string

const (
	EventPending    EventStatus = "pending"
	EventInProgress EventStatus = "in-progress"
	EventCompleted  EventStatus = "completed"
	EventDismissed  EventStatus = "dismissed"
)

// Event is a scheduled reminder/task extracted from an utterance.
type Event struct {
	EventID     string      `gorm:"column:event_id;type:uuid;primaryKey" json:"event_id"`
	Username    string      `gorm:"column:username;type:text;index" json:"username"`
	Type        string      `gorm:"column:type;type:text" json:"type"` // task|reminder|meeting|birthday|other
	Description string      `gorm:"column:description;type:text" json:"description"`
	EventTime   time.Time   `gorm:"column:event_time;type:timestamptz;index" json:"event_time"`
	Priority    int         `gorm:"column:priority;type:integer" json:"priority"`
	Status      EventStatus `gorm:"column:status;type:text" json:"status"`

	// free-form extraction extras (recurrence, source utterance, ...)
	Details datatypes.JSON `gorm:"column:details;type:jsonb" json:"details,omitempty"`

	CreatedAt time.Time `gorm:"column:created_at;type:timestamptz" json:"created_at"`
}

func (Event) TableName() string { return "events" }
