package model

import (
	"time"

	"comply-scheduler.com/comply-scheduler/internal/constants"
)

type Task struct {
	ID             string               `gorm:"primaryKey;size:36" json:"id"`
	Heading        string               `gorm:"not null" json:"heading"`
	Description    string               `json:"description"`
	DueDate        time.Time            `gorm:"not null;index" json:"dueDate"`
	Priority       constants.Priority   `gorm:"type:varchar(20);not null" json:"priority"`
	Status         constants.TaskStatus `gorm:"type:varchar(20);not null;index" json:"status"`
	Category       string               `gorm:"not null" json:"category"`
	Notes          string               `json:"notes"`
	PeopleInvolved []string             `gorm:"serializer:json" json:"peopleInvolved"`
	CreatedBy      string               `gorm:"not null" json:"createdBy"`
	Reminders      []Reminder           `gorm:"foreignKey:TaskID;constraint:OnDelete:CASCADE" json:"reminders"`
	Version        uint                 `gorm:"not null;default:1" json:"version"`
	CreatedAt      time.Time            `json:"createdAt"`
	UpdatedAt      time.Time            `json:"updatedAt"`
}

// Reminder is owned by exactly one Task. Sent only ever moves from false to true.
type Reminder struct {
	ID       string                 `gorm:"primaryKey;size:36" json:"id"`
	TaskID   string                 `gorm:"size:36;not null;index" json:"-"`
	Position int                    `gorm:"not null;default:0" json:"-"`
	Kind     constants.ReminderKind `gorm:"type:varchar(20);not null" json:"type"`
	Timing   int                    `gorm:"not null" json:"timing"`
	Sent     bool                   `gorm:"not null;default:false" json:"sent"`
	SentAt   *time.Time             `json:"sentAt,omitempty"`
}
