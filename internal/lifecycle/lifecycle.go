// Package lifecycle derives task status and due reminders from a due date and
// an explicit "as of" instant. Nothing here reads the wall clock or touches
// storage; callers supply time and persist results.
package lifecycle

import (
	"fmt"
	"strings"
	"time"

	"comply-scheduler.com/comply-scheduler/internal/constants"
	model "comply-scheduler.com/comply-scheduler/internal/models"
)

// Clock returns the current instant. Production code passes time.Now.
type Clock func() time.Time

type ReminderPolicy string

const (
	// PolicyExact fires a reminder only on the day exactly Timing days
	// before the due date. A missed day means a missed reminder.
	PolicyExact ReminderPolicy = "exact"
	// PolicyCatchUp also fires reminders whose trigger day has passed,
	// as long as the task is not yet past due.
	PolicyCatchUp ReminderPolicy = "catch-up"
)

func ParseReminderPolicy(s string) (ReminderPolicy, error) {
	switch ReminderPolicy(strings.ToLower(strings.TrimSpace(s))) {
	case "", PolicyExact:
		return PolicyExact, nil
	case PolicyCatchUp:
		return PolicyCatchUp, nil
	}
	return "", fmt.Errorf("unknown reminder policy %q", s)
}

// Engine holds the canonical time zone used for every date-only comparison,
// so the sweep and every client agree on where midnight is.
type Engine struct {
	loc    *time.Location
	policy ReminderPolicy
}

func NewEngine(loc *time.Location, policy ReminderPolicy) *Engine {
	if loc == nil {
		loc = time.UTC
	}
	if policy == "" {
		policy = PolicyExact
	}
	return &Engine{loc: loc, policy: policy}
}

func (e *Engine) Location() *time.Location { return e.loc }

func (e *Engine) Policy() ReminderPolicy { return e.policy }

// DateOnly truncates t to midnight in the engine's time zone.
func (e *Engine) DateOnly(t time.Time) time.Time {
	t = t.In(e.loc)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, e.loc)
}

// DaysUntilDue is the number of calendar days from asOf to the due date.
// Negative once the due date has passed.
func (e *Engine) DaysUntilDue(task *model.Task, asOf time.Time) int {
	return e.daysBetween(asOf, task.DueDate)
}

func (e *Engine) daysBetween(from, to time.Time) int {
	f := from.In(e.loc)
	t := to.In(e.loc)
	// Re-anchor both days in UTC so DST shifts never produce a 23h or 25h day.
	fu := time.Date(f.Year(), f.Month(), f.Day(), 0, 0, 0, 0, time.UTC)
	tu := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	return int(tu.Sub(fu).Hours() / 24)
}

// DeriveStatus maps a task to its status on the calendar day of asOf.
// Complete is terminal and returned unchanged.
func (e *Engine) DeriveStatus(task *model.Task, asOf time.Time) constants.TaskStatus {
	if task.Status == constants.StatusComplete {
		return constants.StatusComplete
	}
	if e.DaysUntilDue(task, asOf) < 0 {
		return constants.StatusOverdue
	}
	return constants.StatusInProgress
}

// ApplyDerivedStatus is the single mutator for derived status. It reports
// whether the task's status changed.
func (e *Engine) ApplyDerivedStatus(task *model.Task, asOf time.Time) bool {
	next := e.DeriveStatus(task, asOf)
	if next == task.Status {
		return false
	}
	task.Status = next
	return true
}

// DueReminders returns pointers into task.Reminders for every reminder that
// should fire on asOf's day and has not been sent yet, in configured order.
func (e *Engine) DueReminders(task *model.Task, asOf time.Time) []*model.Reminder {
	if task.Status == constants.StatusComplete {
		return nil
	}

	days := e.DaysUntilDue(task, asOf)

	var due []*model.Reminder
	for i := range task.Reminders {
		r := &task.Reminders[i]
		if r.Sent {
			continue
		}
		if e.reminderDue(r.Timing, days) {
			due = append(due, r)
		}
	}
	return due
}

func (e *Engine) reminderDue(timing, daysUntilDue int) bool {
	switch e.policy {
	case PolicyCatchUp:
		return daysUntilDue >= 0 && daysUntilDue <= timing
	default:
		return daysUntilDue == timing
	}
}

// DueWithin reports whether the task is due between asOf's day and the day
// `days` calendar days later, inclusive.
func (e *Engine) DueWithin(task *model.Task, asOf time.Time, days int) bool {
	d := e.DaysUntilDue(task, asOf)
	return d >= 0 && d <= days
}
