package dto

import (
	"time"

	"comply-scheduler.com/comply-scheduler/internal/constants"
	"comply-scheduler.com/comply-scheduler/internal/services"
)

type ReminderRequest struct {
	ID     string `json:"id"`
	Type   string `json:"type" validate:"omitempty,oneof=email"`
	Timing int    `json:"timing" validate:"min=1"`
}

// CreateTaskRequest is the POST /tasks body. Omitting reminders attaches the
// configured defaults; sending [] creates the task without any.
type CreateTaskRequest struct {
	Heading        string            `json:"heading" validate:"required,max=200"`
	Description    string            `json:"description" validate:"omitempty,max=5000"`
	DueDate        time.Time         `json:"dueDate" validate:"required"`
	Priority       string            `json:"priority" validate:"omitempty,oneof=low medium high critical"`
	Status         string            `json:"status" validate:"omitempty,oneof=in-progress complete overdue"`
	Category       string            `json:"category" validate:"omitempty,max=100"`
	Notes          string            `json:"notes"`
	PeopleInvolved []string          `json:"peopleInvolved" validate:"omitempty,dive,required"`
	CreatedBy      string            `json:"createdBy" validate:"required"`
	Reminders      []ReminderRequest `json:"reminders" validate:"omitempty,dive"`
}

func (r *CreateTaskRequest) ToInput() services.TaskInput {
	return services.TaskInput{
		Heading:        r.Heading,
		Description:    r.Description,
		DueDate:        r.DueDate,
		Priority:       constants.Priority(r.Priority),
		Status:         constants.TaskStatus(r.Status),
		Category:       r.Category,
		Notes:          r.Notes,
		PeopleInvolved: r.PeopleInvolved,
		CreatedBy:      r.CreatedBy,
		Reminders:      toReminderInputs(r.Reminders),
	}
}

// UpdateTaskRequest is the PUT /tasks/:id body. Absent fields are left as
// they are; version, when sent, must match the stored one.
type UpdateTaskRequest struct {
	Heading        *string            `json:"heading" validate:"omitempty,max=200"`
	Description    *string            `json:"description" validate:"omitempty,max=5000"`
	DueDate        *time.Time         `json:"dueDate"`
	Priority       *string            `json:"priority" validate:"omitempty,oneof=low medium high critical"`
	Status         *string            `json:"status" validate:"omitempty,oneof=in-progress complete overdue"`
	Category       *string            `json:"category" validate:"omitempty,max=100"`
	Notes          *string            `json:"notes"`
	PeopleInvolved *[]string          `json:"peopleInvolved" validate:"omitempty,dive,required"`
	Reminders      *[]ReminderRequest `json:"reminders" validate:"omitempty,dive"`
	Version        *uint              `json:"version"`
}

func (r *UpdateTaskRequest) ToPatch() services.TaskPatch {
	patch := services.TaskPatch{
		Heading:        r.Heading,
		Description:    r.Description,
		DueDate:        r.DueDate,
		Category:       r.Category,
		Notes:          r.Notes,
		PeopleInvolved: r.PeopleInvolved,
		Version:        r.Version,
	}
	if r.Priority != nil {
		p := constants.Priority(*r.Priority)
		patch.Priority = &p
	}
	if r.Status != nil {
		s := constants.TaskStatus(*r.Status)
		patch.Status = &s
	}
	if r.Reminders != nil {
		reminders := toReminderInputs(*r.Reminders)
		patch.Reminders = &reminders
	}
	return patch
}

func toReminderInputs(in []ReminderRequest) []services.ReminderInput {
	if in == nil {
		return nil
	}
	out := make([]services.ReminderInput, 0, len(in))
	for _, r := range in {
		out = append(out, services.ReminderInput{
			ID:     r.ID,
			Kind:   constants.ReminderKind(r.Type),
			Timing: r.Timing,
		})
	}
	return out
}
