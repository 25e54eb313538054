package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"comply-scheduler.com/comply-scheduler/internal/constants"
	apperrors "comply-scheduler.com/comply-scheduler/internal/errors"
	model "comply-scheduler.com/comply-scheduler/internal/models"
)

type TaskRepository struct {
	db *gorm.DB
}

func NewTaskRepository(db *gorm.DB) *TaskRepository {
	return &TaskRepository{db: db}
}

func orderedReminders(db *gorm.DB) *gorm.DB {
	return db.Order("position asc")
}

// CreateTask persists the task and its reminders. IDs, version and timestamps
// are assigned here.
func (r *TaskRepository) CreateTask(ctx context.Context, task *model.Task) error {
	now := time.Now().UTC()

	task.ID = uuid.NewString()
	task.Version = 1
	task.CreatedAt = now
	task.UpdatedAt = now

	for i := range task.Reminders {
		task.Reminders[i].ID = uuid.NewString()
		task.Reminders[i].TaskID = task.ID
		task.Reminders[i].Position = i
	}

	if err := r.db.WithContext(ctx).Create(task).Error; err != nil {
		return fmt.Errorf("create task: %w", err)
	}
	return nil
}

func (r *TaskRepository) FindByID(ctx context.Context, id string) (*model.Task, error) {
	var task model.Task
	err := r.db.WithContext(ctx).
		Preload("Reminders", orderedReminders).
		First(&task, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrTaskNotFound
		}
		return nil, fmt.Errorf("find task %s: %w", id, err)
	}
	return &task, nil
}

func (r *TaskRepository) List(ctx context.Context) ([]model.Task, error) {
	var tasks []model.Task
	err := r.db.WithContext(ctx).
		Preload("Reminders", orderedReminders).
		Order("due_date asc").Order("created_at asc").
		Find(&tasks).Error
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	return tasks, nil
}

// ListIncomplete returns every task the sweep still has to look at.
func (r *TaskRepository) ListIncomplete(ctx context.Context) ([]model.Task, error) {
	var tasks []model.Task
	err := r.db.WithContext(ctx).
		Preload("Reminders", orderedReminders).
		Where("status <> ?", constants.StatusComplete).
		Order("due_date asc").Order("id asc").
		Find(&tasks).Error
	if err != nil {
		return nil, fmt.Errorf("list incomplete tasks: %w", err)
	}
	return tasks, nil
}

// Update writes user-editable fields guarded by the task version and
// reconciles the reminder list. Sent flags are never written on this path.
func (r *TaskRepository) Update(ctx context.Context, task *model.Task) error {
	now := time.Now().UTC()

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&model.Task{}).
			Where("id = ? AND version = ?", task.ID, task.Version).
			Updates(map[string]interface{}{
				"heading":         task.Heading,
				"description":     task.Description,
				"due_date":        task.DueDate,
				"priority":        task.Priority,
				"status":          task.Status,
				"category":        task.Category,
				"notes":           task.Notes,
				"people_involved": peopleJSON(task.PeopleInvolved),
				"updated_at":      now,
				"version":         gorm.Expr("version + 1"),
			})

		if res.Error != nil {
			return res.Error
		}

		if res.RowsAffected == 0 {
			return apperrors.ErrOptimisticLock
		}

		return replaceReminders(tx, task)
	})
	if err != nil {
		if errors.Is(err, apperrors.ErrOptimisticLock) {
			return err
		}
		return fmt.Errorf("update task %s: %w", task.ID, err)
	}

	task.Version++
	task.UpdatedAt = now
	return nil
}

// Map updates bypass gorm serializers, so the JSON column is encoded here.
func peopleJSON(people []string) string {
	if people == nil {
		people = []string{}
	}
	b, _ := json.Marshal(people)
	return string(b)
}

func replaceReminders(tx *gorm.DB, task *model.Task) error {
	keep := make([]string, 0, len(task.Reminders))
	for i := range task.Reminders {
		rem := &task.Reminders[i]
		if rem.ID == "" {
			rem.ID = uuid.NewString()
		}
		rem.TaskID = task.ID
		rem.Position = i
		keep = append(keep, rem.ID)
	}

	stale := tx.Where("task_id = ?", task.ID)
	if len(keep) > 0 {
		stale = stale.Where("id NOT IN ?", keep)
	}
	if err := stale.Delete(&model.Reminder{}).Error; err != nil {
		return err
	}

	for i := range task.Reminders {
		rem := task.Reminders[i]
		err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns([]string{"kind", "timing", "position"}),
		}).Create(&rem).Error
		if err != nil {
			return err
		}
	}
	return nil
}

// Delete removes the task and every reminder it owns in one transaction.
func (r *TaskRepository) Delete(ctx context.Context, id string) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("task_id = ?", id).Delete(&model.Reminder{}).Error; err != nil {
			return err
		}

		res := tx.Delete(&model.Task{}, "id = ?", id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return apperrors.ErrTaskNotFound
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, apperrors.ErrTaskNotFound) {
			return err
		}
		return fmt.Errorf("delete task %s: %w", id, err)
	}
	return nil
}

// MarkReminderSent flips sent from false to true while the owning task is
// still open. It reports false when the reminder was already sent, the task
// was completed meanwhile, or the reminder no longer exists; the caller must
// not dispatch in those cases.
func (r *TaskRepository) MarkReminderSent(ctx context.Context, reminderID string, at time.Time) (bool, error) {
	res := r.db.WithContext(ctx).Model(&model.Reminder{}).
		Where("id = ? AND sent = ?", reminderID, false).
		Where("task_id IN (?)", r.db.Model(&model.Task{}).Select("id").Where("status <> ?", constants.StatusComplete)).
		Updates(map[string]interface{}{
			"sent":    true,
			"sent_at": at.UTC(),
		})
	if res.Error != nil {
		return false, fmt.Errorf("mark reminder %s sent: %w", reminderID, res.Error)
	}
	return res.RowsAffected == 1, nil
}

// TransitionStatus moves a task from one status to another only if nobody
// changed it in between. It reports whether the row was updated.
func (r *TaskRepository) TransitionStatus(ctx context.Context, id string, from, to constants.TaskStatus, at time.Time) (bool, error) {
	res := r.db.WithContext(ctx).Model(&model.Task{}).
		Where("id = ? AND status = ?", id, from).
		Updates(map[string]interface{}{
			"status":     to,
			"updated_at": at.UTC(),
			"version":    gorm.Expr("version + 1"),
		})
	if res.Error != nil {
		return false, fmt.Errorf("transition task %s %s->%s: %w", id, from, to, res.Error)
	}
	return res.RowsAffected == 1, nil
}
