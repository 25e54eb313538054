package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	model "comply-scheduler.com/comply-scheduler/internal/models"
)

type NotificationRepository struct {
	db *gorm.DB
}

func NewNotificationRepository(db *gorm.DB) *NotificationRepository {
	return &NotificationRepository{db: db}
}

func (r *NotificationRepository) Record(ctx context.Context, event *model.NotificationEvent) error {
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now().UTC()
	}

	if err := r.db.WithContext(ctx).Create(event).Error; err != nil {
		return fmt.Errorf("record notification event: %w", err)
	}
	return nil
}

func (r *NotificationRepository) ListByTask(ctx context.Context, taskID string) ([]model.NotificationEvent, error) {
	var events []model.NotificationEvent
	err := r.db.WithContext(ctx).
		Where("task_id = ?", taskID).
		Order("created_at asc").Order("attempt asc").
		Find(&events).Error
	return events, err
}
