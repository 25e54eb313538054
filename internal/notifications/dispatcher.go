package notifications

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"comply-scheduler.com/comply-scheduler/internal/constants"
	model "comply-scheduler.com/comply-scheduler/internal/models"
)

// EventRecorder persists the audit trail of send attempts.
type EventRecorder interface {
	Record(ctx context.Context, event *model.NotificationEvent) error
}

// Sender sends one notification for one task to one recipient.
type Sender interface {
	Send(ctx context.Context, task *model.Task, recipient string, kind constants.NotificationKind) error
}

type Options struct {
	MaxAttempts int
	Backoff     time.Duration
	Timeout     time.Duration
	Location    *time.Location
}

// Dispatcher renders and sends one email per call with a bounded retry.
// Every attempt is recorded, successful or not. It does not deduplicate:
// deciding who gets what, and how often, belongs to the caller.
type Dispatcher struct {
	mailer Mailer
	events EventRecorder
	opts   Options
	log    *logrus.Entry
}

func NewDispatcher(mailer Mailer, events EventRecorder, opts Options, log *logrus.Entry) *Dispatcher {
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = 1
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 15 * time.Second
	}
	if opts.Location == nil {
		opts.Location = time.UTC
	}

	return &Dispatcher{
		mailer: mailer,
		events: events,
		opts:   opts,
		log:    log.WithField("component", "dispatcher"),
	}
}

func (d *Dispatcher) Send(ctx context.Context, task *model.Task, recipient string, kind constants.NotificationKind) error {
	const op = "notifications.Dispatcher.Send"
	log := d.log.WithFields(logrus.Fields{
		"operation": op,
		"task_id":   task.ID,
		"recipient": recipient,
		"kind":      kind,
	})

	subject, html, err := Render(task, kind, d.opts.Location)
	if err != nil {
		return err
	}
	msg := Message{To: recipient, Subject: subject, HTML: html}

	var lastErr error
	for attempt := 1; attempt <= d.opts.MaxAttempts; attempt++ {
		lastErr = d.attempt(ctx, msg)
		d.record(ctx, task.ID, recipient, kind, attempt, lastErr)

		if lastErr == nil {
			log.WithField("attempt", attempt).Info("notification sent")
			return nil
		}

		log.WithError(lastErr).WithField("attempt", attempt).Warn("notification attempt failed")

		if attempt == d.opts.MaxAttempts {
			break
		}
		if err := d.wait(ctx, attempt); err != nil {
			lastErr = err
			break
		}
	}

	return fmt.Errorf("send %s email for task %s to %s: %w", kind, task.ID, recipient, lastErr)
}

func (d *Dispatcher) attempt(ctx context.Context, msg Message) error {
	actx, cancel := context.WithTimeout(ctx, d.opts.Timeout)
	defer cancel()
	return d.mailer.Send(actx, msg)
}

func (d *Dispatcher) wait(ctx context.Context, attempt int) error {
	if d.opts.Backoff <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(d.opts.Backoff * time.Duration(attempt))
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (d *Dispatcher) record(ctx context.Context, taskID, recipient string, kind constants.NotificationKind, attempt int, sendErr error) {
	if d.events == nil {
		return
	}

	event := &model.NotificationEvent{
		TaskID:    taskID,
		Recipient: recipient,
		Kind:      kind,
		Attempt:   attempt,
		Success:   sendErr == nil,
	}
	if sendErr != nil {
		event.Error = sendErr.Error()
	}

	// The audit row is written even if the caller's context is already done.
	if err := d.events.Record(context.WithoutCancel(ctx), event); err != nil {
		d.log.WithError(err).WithField("task_id", taskID).Error("failed to record notification event")
	}
}
