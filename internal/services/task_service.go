package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"

	"comply-scheduler.com/comply-scheduler/internal/constants"
	apperrors "comply-scheduler.com/comply-scheduler/internal/errors"
	"comply-scheduler.com/comply-scheduler/internal/lifecycle"
	model "comply-scheduler.com/comply-scheduler/internal/models"
	"comply-scheduler.com/comply-scheduler/internal/notifications"
)

const maxHeadingLength = 200

var validate = validator.New()

type ReminderInput struct {
	ID     string
	Kind   constants.ReminderKind
	Timing int
}

// TaskInput carries a new task. A nil Reminders slice means "use the
// configured defaults"; an empty one means "no reminders".
type TaskInput struct {
	Heading        string
	Description    string
	DueDate        time.Time
	Priority       constants.Priority
	Status         constants.TaskStatus
	Category       string
	Notes          string
	PeopleInvolved []string
	CreatedBy      string
	Reminders      []ReminderInput
}

// TaskPatch is a partial update. Nil fields are left alone. When Version is
// set it must match the stored version.
type TaskPatch struct {
	Heading        *string
	Description    *string
	DueDate        *time.Time
	Priority       *constants.Priority
	Status         *constants.TaskStatus
	Category       *string
	Notes          *string
	PeopleInvolved *[]string
	Reminders      *[]ReminderInput
	Version        *uint
}

// EventLister reads the notification audit trail.
type EventLister interface {
	ListByTask(ctx context.Context, taskID string) ([]model.NotificationEvent, error)
}

type TaskService struct {
	repo             TaskStore
	events           EventLister
	engine           *lifecycle.Engine
	sender           notifications.Sender
	clock            lifecycle.Clock
	reminderDefaults []int
	concurrency      int
	log              *logrus.Entry
}

type TaskServiceOptions struct {
	ReminderDefaults []int
	Concurrency      int
	Events           EventLister
}

func NewTaskService(
	repo TaskStore,
	engine *lifecycle.Engine,
	sender notifications.Sender,
	clock lifecycle.Clock,
	opts TaskServiceOptions,
	log *logrus.Entry,
) *TaskService {
	if clock == nil {
		clock = time.Now
	}
	return &TaskService{
		repo:             repo,
		events:           opts.Events,
		engine:           engine,
		sender:           sender,
		clock:            clock,
		reminderDefaults: opts.ReminderDefaults,
		concurrency:      opts.Concurrency,
		log:              log.WithField("component", "task_service"),
	}
}

func (s *TaskService) CreateTask(ctx context.Context, in TaskInput) (*model.Task, error) {
	const op = "services.TaskService.CreateTask"
	log := s.log.WithField("operation", op)

	task, err := s.buildTask(in)
	if err != nil {
		return nil, err
	}

	now := s.clock()
	if task.Status != constants.StatusComplete {
		task.Status = constants.StatusInProgress
		s.engine.ApplyDerivedStatus(task, now)
	}

	if err := s.repo.CreateTask(ctx, task); err != nil {
		return nil, err
	}

	log.WithFields(logrus.Fields{
		"task_id":   task.ID,
		"status":    task.Status,
		"reminders": len(task.Reminders),
	}).Info("task created")

	s.notify(ctx, task, constants.NotificationCreated)

	// Stored overdue from the start, so the sweep never sees the transition.
	if task.Status == constants.StatusOverdue {
		s.notify(ctx, task, constants.NotificationOverdue)
	}

	return task, nil
}

func (s *TaskService) buildTask(in TaskInput) (*model.Task, error) {
	heading, err := validHeading(in.Heading)
	if err != nil {
		return nil, err
	}
	if in.DueDate.IsZero() {
		return nil, apperrors.Validation("dueDate is required")
	}

	priority, err := validPriority(in.Priority)
	if err != nil {
		return nil, err
	}

	if in.Status != "" && !in.Status.IsValid() {
		return nil, apperrors.Validation("status %q is not one of in-progress, complete, overdue", in.Status)
	}

	createdBy := notifications.NormalizeEmail(in.CreatedBy)
	if err := validate.Var(createdBy, "required,email"); err != nil {
		return nil, apperrors.Validation("createdBy must be a valid email address")
	}

	people, err := normalizePeople(in.PeopleInvolved)
	if err != nil {
		return nil, err
	}

	category := strings.TrimSpace(in.Category)
	if category == "" {
		category = constants.DefaultCategory
	}

	reminders := in.Reminders
	if reminders == nil {
		for _, timing := range s.reminderDefaults {
			reminders = append(reminders, ReminderInput{Kind: constants.ReminderEmail, Timing: timing})
		}
	}

	task := &model.Task{
		Heading:        heading,
		Description:    in.Description,
		DueDate:        in.DueDate.UTC(),
		Priority:       priority,
		Status:         in.Status,
		Category:       category,
		Notes:          in.Notes,
		PeopleInvolved: people,
		CreatedBy:      createdBy,
	}

	task.Reminders, err = mergeReminders(nil, reminders)
	if err != nil {
		return nil, err
	}

	return task, nil
}

// GetTask returns the stored task with its status derived for today. The
// derived value is not written back.
func (s *TaskService) GetTask(ctx context.Context, id string) (*model.Task, error) {
	if strings.TrimSpace(id) == "" {
		return nil, apperrors.ErrTaskIDRequired
	}

	task, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	s.engine.ApplyDerivedStatus(task, s.clock())
	return task, nil
}

func (s *TaskService) UpdateTask(ctx context.Context, id string, patch TaskPatch) (*model.Task, error) {
	const op = "services.TaskService.UpdateTask"
	log := s.log.WithFields(logrus.Fields{"operation": op, "task_id": id})

	if strings.TrimSpace(id) == "" {
		return nil, apperrors.ErrTaskIDRequired
	}

	task, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if patch.Version != nil && *patch.Version != task.Version {
		return nil, apperrors.ErrOptimisticLock
	}

	if err := s.applyPatch(task, patch); err != nil {
		return nil, err
	}

	before := task.Status
	now := s.clock()
	s.engine.ApplyDerivedStatus(task, now)

	if err := s.repo.Update(ctx, task); err != nil {
		if errors.Is(err, apperrors.ErrOptimisticLock) {
			log.Warn("update lost a race with another writer")
		}
		return nil, err
	}

	log.WithField("status", task.Status).Info("task updated")

	// An edit that makes the task overdue is the transition itself, so the
	// sweep will not see it; alert here instead.
	if task.Status == constants.StatusOverdue && before != constants.StatusOverdue {
		s.notify(ctx, task, constants.NotificationOverdue)
	}

	return task, nil
}

// applyPatch mutates task in place. Status may only be set to complete, or
// away from complete to reopen; any other status comes from the deriver.
func (s *TaskService) applyPatch(task *model.Task, patch TaskPatch) error {
	if patch.Heading != nil {
		heading, err := validHeading(*patch.Heading)
		if err != nil {
			return err
		}
		task.Heading = heading
	}
	if patch.Description != nil {
		task.Description = *patch.Description
	}
	if patch.DueDate != nil {
		if patch.DueDate.IsZero() {
			return apperrors.Validation("dueDate is required")
		}
		task.DueDate = patch.DueDate.UTC()
	}
	if patch.Priority != nil {
		priority, err := validPriority(*patch.Priority)
		if err != nil {
			return err
		}
		task.Priority = priority
	}
	if patch.Category != nil {
		category := strings.TrimSpace(*patch.Category)
		if category == "" {
			category = constants.DefaultCategory
		}
		task.Category = category
	}
	if patch.Notes != nil {
		task.Notes = *patch.Notes
	}
	if patch.PeopleInvolved != nil {
		people, err := normalizePeople(*patch.PeopleInvolved)
		if err != nil {
			return err
		}
		task.PeopleInvolved = people
	}
	if patch.Reminders != nil {
		reminders, err := mergeReminders(task.Reminders, *patch.Reminders)
		if err != nil {
			return err
		}
		task.Reminders = reminders
	}
	if patch.Status != nil {
		switch *patch.Status {
		case constants.StatusComplete:
			task.Status = constants.StatusComplete
		case constants.StatusInProgress, constants.StatusOverdue:
			if task.Status == constants.StatusComplete {
				task.Status = constants.StatusInProgress
			}
		default:
			return apperrors.Validation("status %q is not one of in-progress, complete, overdue", *patch.Status)
		}
	}
	return nil
}

// NotificationHistory returns every recorded send attempt for the task. The
// history outlives the task itself.
func (s *TaskService) NotificationHistory(ctx context.Context, id string) ([]model.NotificationEvent, error) {
	if strings.TrimSpace(id) == "" {
		return nil, apperrors.ErrTaskIDRequired
	}
	if s.events == nil {
		return []model.NotificationEvent{}, nil
	}

	events, err := s.events.ListByTask(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("list notifications for %s: %w", id, err)
	}
	return events, nil
}

func (s *TaskService) DeleteTask(ctx context.Context, id string) error {
	if strings.TrimSpace(id) == "" {
		return apperrors.ErrTaskIDRequired
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}

	s.log.WithFields(logrus.Fields{"operation": "services.TaskService.DeleteTask", "task_id": id}).Info("task deleted")
	return nil
}

// ListTasks returns the whole collection with statuses derived for today,
// filtered, searched and sorted per q.
func (s *TaskService) ListTasks(ctx context.Context, q ListQuery) ([]model.Task, error) {
	tasks, err := s.derivedTasks(ctx)
	if err != nil {
		return nil, err
	}
	return ApplyQuery(tasks, q), nil
}

func (s *TaskService) Stats(ctx context.Context) (Stats, error) {
	tasks, err := s.derivedTasks(ctx)
	if err != nil {
		return Stats{}, err
	}
	return ComputeStats(tasks, s.engine, s.clock()), nil
}

func (s *TaskService) Calendar(ctx context.Context, month string) ([]CalendarDay, error) {
	tasks, err := s.derivedTasks(ctx)
	if err != nil {
		return nil, err
	}
	return BuildCalendar(tasks, s.engine, month)
}

func (s *TaskService) Report(ctx context.Context) (Report, error) {
	tasks, err := s.derivedTasks(ctx)
	if err != nil {
		return Report{}, err
	}
	return BuildReport(tasks), nil
}

func (s *TaskService) derivedTasks(ctx context.Context) ([]model.Task, error) {
	tasks, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}

	now := s.clock()
	for i := range tasks {
		s.engine.ApplyDerivedStatus(&tasks[i], now)
	}
	return tasks, nil
}

// notify fans kind out to the task's recipients. Failures are logged and
// never fail the user's request.
func (s *TaskService) notify(ctx context.Context, task *model.Task, kind constants.NotificationKind) {
	if s.sender == nil {
		return
	}

	res := notifications.FanOut(ctx, s.sender, task, notifications.Recipients(task), kind, s.concurrency)
	for _, f := range res.Failures {
		s.log.WithError(f.Err).WithFields(logrus.Fields{
			"task_id":   task.ID,
			"recipient": f.Recipient,
			"kind":      kind,
		}).Error("notification failed")
	}
}

func validHeading(raw string) (string, error) {
	heading := strings.TrimSpace(raw)
	if heading == "" {
		return "", apperrors.Validation("heading is required")
	}
	if len([]rune(heading)) > maxHeadingLength {
		return "", apperrors.Validation("heading must be at most %d characters", maxHeadingLength)
	}
	return heading, nil
}

func validPriority(p constants.Priority) (constants.Priority, error) {
	if p == "" {
		return constants.PriorityMedium, nil
	}
	p = constants.Priority(strings.ToLower(string(p)))
	if !p.IsValid() {
		return "", apperrors.Validation("priority %q is not one of low, medium, high, critical", p)
	}
	return p, nil
}

func normalizePeople(in []string) ([]string, error) {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, raw := range in {
		addr := notifications.NormalizeEmail(raw)
		if addr == "" {
			continue
		}
		if err := validate.Var(addr, "email"); err != nil {
			return nil, apperrors.Validation("peopleInvolved entry %q is not a valid email address", raw)
		}
		if _, ok := seen[addr]; ok {
			continue
		}
		seen[addr] = struct{}{}
		out = append(out, addr)
	}
	return out, nil
}

// mergeReminders builds the new reminder list. Inputs whose ID matches an
// existing reminder keep that reminder's sent state; anything else starts
// unsent with an ID assigned by the store.
func mergeReminders(existing []model.Reminder, in []ReminderInput) ([]model.Reminder, error) {
	byID := make(map[string]model.Reminder, len(existing))
	for _, r := range existing {
		byID[r.ID] = r
	}

	out := make([]model.Reminder, 0, len(in))
	used := make(map[string]struct{}, len(in))
	for _, ri := range in {
		kind := ri.Kind
		if kind == "" {
			kind = constants.ReminderEmail
		}
		if kind != constants.ReminderEmail {
			return nil, apperrors.Validation("reminder type %q is not supported", kind)
		}
		if ri.Timing < 1 {
			return nil, apperrors.Validation("reminder timing must be at least 1 day, got %d", ri.Timing)
		}

		rem := model.Reminder{Kind: kind, Timing: ri.Timing}
		if prev, ok := byID[ri.ID]; ok && ri.ID != "" {
			if _, dup := used[ri.ID]; !dup {
				rem.ID = prev.ID
				rem.Sent = prev.Sent
				rem.SentAt = prev.SentAt
				used[ri.ID] = struct{}{}
			}
		}
		out = append(out, rem)
	}
	return out, nil
}
