package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"comply-scheduler.com/comply-scheduler/internal/constants"
	apperrors "comply-scheduler.com/comply-scheduler/internal/errors"
	"comply-scheduler.com/comply-scheduler/internal/lifecycle"
	"comply-scheduler.com/comply-scheduler/internal/locks"
	model "comply-scheduler.com/comply-scheduler/internal/models"
	"comply-scheduler.com/comply-scheduler/internal/notifications"
	"comply-scheduler.com/comply-scheduler/internal/scheduler"
)

// Summary counts one sweep. RemindersSent is claimed reminders; the email
// totals count delivered messages.
type Summary struct {
	TasksScanned     int `json:"tasksScanned"`
	RemindersSent    int `json:"remindersSent"`
	ReminderEmails   int `json:"reminderEmails"`
	Transitions      int `json:"transitions"`
	OverdueAlerts    int `json:"overdueAlerts"`
	DispatchFailures int `json:"dispatchFailures"`
}

// SweepService is the daily pass over every open task: it fires reminders
// that fall due today and persists status transitions.
type SweepService struct {
	repo        TaskStore
	engine      *lifecycle.Engine
	sender      notifications.Sender
	lock        locks.Lock
	clock       lifecycle.Clock
	concurrency int
	log         *logrus.Entry
}

func NewSweepService(
	repo TaskStore,
	engine *lifecycle.Engine,
	sender notifications.Sender,
	lock locks.Lock,
	clock lifecycle.Clock,
	concurrency int,
	log *logrus.Entry,
) *SweepService {
	if lock == nil {
		lock = locks.NewLocal()
	}
	if clock == nil {
		clock = time.Now
	}
	return &SweepService{
		repo:        repo,
		engine:      engine,
		sender:      sender,
		lock:        lock,
		clock:       clock,
		concurrency: concurrency,
		log:         log.WithField("component", "sweep"),
	}
}

// Run performs one sweep. Running it twice on the same day sends nothing the
// second time. A store error stops the run; work already committed stays.
func (s *SweepService) Run(ctx context.Context) (Summary, error) {
	const op = "services.SweepService.Run"
	log := s.log.WithField("operation", op)

	if err := s.lock.Acquire(ctx); err != nil {
		if errors.Is(err, locks.ErrLockHeld) {
			log.Warn("sweep already running, skipping")
			return Summary{}, apperrors.ErrSweepInProgress
		}
		return Summary{}, fmt.Errorf("acquire sweep lock: %w", err)
	}
	defer func() {
		if err := s.lock.Release(context.WithoutCancel(ctx)); err != nil {
			log.WithError(err).Error("failed to release sweep lock")
		}
	}()

	today := s.clock()
	start := time.Now()

	tasks, err := s.repo.ListIncomplete(ctx)
	if err != nil {
		return Summary{}, fmt.Errorf("load open tasks: %w", err)
	}

	var sum Summary
	for i := range tasks {
		if err := ctx.Err(); err != nil {
			s.logSummary(log, sum, start).WithError(err).Warn("sweep cancelled")
			return sum, err
		}

		sum.TasksScanned++
		if err := s.processTask(ctx, &tasks[i], today, &sum); err != nil {
			s.logSummary(log, sum, start).WithError(err).Error("sweep aborted")
			return sum, err
		}
	}

	s.logSummary(log, sum, start).Info("sweep finished")
	return sum, nil
}

func (s *SweepService) processTask(ctx context.Context, task *model.Task, today time.Time, sum *Summary) error {
	log := s.log.WithField("task_id", task.ID)
	recipients := notifications.Recipients(task)

	for _, rem := range s.engine.DueReminders(task, today) {
		claimed, err := s.repo.MarkReminderSent(ctx, rem.ID, today)
		if err != nil {
			return err
		}
		if !claimed {
			log.WithField("reminder_id", rem.ID).Debug("reminder already claimed")
			continue
		}
		rem.Sent = true
		sum.RemindersSent++

		res := notifications.FanOut(ctx, s.sender, task, recipients, constants.NotificationReminder, s.concurrency)
		sum.ReminderEmails += len(res.Sent)
		sum.DispatchFailures += s.logFailures(log, res, constants.NotificationReminder)
	}

	prev := task.Status
	if !s.engine.ApplyDerivedStatus(task, today) {
		return nil
	}

	moved, err := s.repo.TransitionStatus(ctx, task.ID, prev, task.Status, today)
	if err != nil {
		return err
	}
	if !moved {
		log.WithFields(logrus.Fields{"from": prev, "to": task.Status}).
			Info("task changed during sweep, transition skipped")
		return nil
	}
	sum.Transitions++

	if task.Status == constants.StatusOverdue {
		res := notifications.FanOut(ctx, s.sender, task, recipients, constants.NotificationOverdue, s.concurrency)
		sum.OverdueAlerts += len(res.Sent)
		sum.DispatchFailures += s.logFailures(log, res, constants.NotificationOverdue)
	}
	return nil
}

func (s *SweepService) logFailures(log *logrus.Entry, res notifications.FanOutResult, kind constants.NotificationKind) int {
	for _, f := range res.Failures {
		log.WithError(f.Err).WithFields(logrus.Fields{
			"recipient": f.Recipient,
			"kind":      kind,
		}).Error("notification failed")
	}
	return len(res.Failures)
}

func (s *SweepService) logSummary(log *logrus.Entry, sum Summary, start time.Time) *logrus.Entry {
	return log.WithFields(logrus.Fields{
		"tasks_scanned":     sum.TasksScanned,
		"reminders_sent":    sum.RemindersSent,
		"reminder_emails":   sum.ReminderEmails,
		"transitions":       sum.Transitions,
		"overdue_alerts":    sum.OverdueAlerts,
		"dispatch_failures": sum.DispatchFailures,
		"duration":          time.Since(start).String(),
	})
}

// Job adapts Run to the scheduler. Errors are logged; a skipped run is not
// an error.
func (s *SweepService) Job() scheduler.Job {
	return func(ctx context.Context) {
		if _, err := s.Run(ctx); err != nil && !errors.Is(err, apperrors.ErrSweepInProgress) {
			s.log.WithError(err).Error("scheduled sweep failed")
		}
	}
}
