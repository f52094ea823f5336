package models

import "time"

// UserDetail is the account row behind both socket handshakes and the
// REST login flow. Username doubles as the session-pair key.
type UserDetail struct {
	Username     string    `gorm:"column:username;type:text;primaryKey" json:"username"`
	Name         string    `gorm:"column:name;type:text" json:"name"`
	PasswordHash string    `gorm:"column:password_hash;type:text" json:"-"`
	CreatedAt    time.Time `gorm:"column:created_at;type:timestamptz" json:"created_at"`
}

func (UserDetail) TableName() string { return "user_details" }
