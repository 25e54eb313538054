package model

import (
	"time"

	"comply-scheduler.com/comply-scheduler/internal/constants"
)

// NotificationEvent is an audit row written for every send attempt.
// TaskID is kept as plain text so the log outlives deleted tasks.
type NotificationEvent struct {
	ID        string                     `gorm:"primaryKey;size:36" json:"id"`
	TaskID    string                     `gorm:"size:36;not null;index" json:"taskId"`
	Recipient string                     `gorm:"not null" json:"recipient"`
	Kind      constants.NotificationKind `gorm:"type:varchar(20);not null" json:"kind"`
	Attempt   int                        `gorm:"not null" json:"attempt"`
	Success   bool                       `gorm:"not null" json:"success"`
	Error     string                     `json:"error,omitempty"`
	CreatedAt time.Time                  `json:"createdAt"`
}
