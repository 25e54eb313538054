package services

import (
	"context"
	"time"

	"comply-scheduler.com/comply-scheduler/internal/constants"
	model "comply-scheduler.com/comply-scheduler/internal/models"
)

// TaskStore is the persistence contract the services rely on.
// *repository.TaskRepository satisfies it.
type TaskStore interface {
	CreateTask(ctx context.Context, task *model.Task) error
	FindByID(ctx context.Context, id string) (*model.Task, error)
	List(ctx context.Context) ([]model.Task, error)
	ListIncomplete(ctx context.Context) ([]model.Task, error)
	Update(ctx context.Context, task *model.Task) error
	Delete(ctx context.Context, id string) error
	MarkReminderSent(ctx context.Context, reminderID string, at time.Time) (bool, error)
	TransitionStatus(ctx context.Context, id string, from, to constants.TaskStatus, at time.Time) (bool, error)
}
