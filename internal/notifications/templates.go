package notifications

import (
	"bytes"
	"fmt"
	"html/template"
	"strings"
	"time"

	"comply-scheduler.com/comply-scheduler/internal/constants"
	model "comply-scheduler.com/comply-scheduler/internal/models"
)

const layout = `<div style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto;">
  <h2 style="color: {{.Color}};">{{.Title}}</h2>
  <div style="background: #f8fafc; padding: 20px; border-radius: 8px; margin: 20px 0;">
    <h3>{{.Heading}}</h3>
    {{if .Description}}<p><strong>Description:</strong> {{.Description}}</p>{{end}}
    <p><strong>Due Date:</strong> {{.DueDate}}</p>
    <p><strong>Priority:</strong> {{.Priority}}</p>
    <p><strong>Category:</strong> {{.Category}}</p>
    {{if .Notes}}<p><strong>Notes:</strong> {{.Notes}}</p>{{end}}
  </div>
  {{if .Urgent}}<p style="color: #dc2626;"><strong>OVERDUE: this task is past its due date and requires immediate attention.</strong></p>{{end}}
  {{if .Lead}}<p>{{.Lead}}</p>{{end}}
  <p style="color: #64748b;">This is an automated message from the compliance scheduler.</p>
</div>`

var emailTemplate = template.Must(template.New("email").Parse(layout))

type emailView struct {
	Title       string
	Color       string
	Heading     string
	Description string
	DueDate     string
	Priority    string
	Category    string
	Notes       string
	Lead        string
	Urgent      bool
}

// Render builds the subject and HTML body for kind. Due dates are printed
// as calendar days in loc.
func Render(task *model.Task, kind constants.NotificationKind, loc *time.Location) (string, string, error) {
	if loc == nil {
		loc = time.UTC
	}

	view := emailView{
		Heading:     task.Heading,
		Description: task.Description,
		DueDate:     task.DueDate.In(loc).Format("Mon, 02 Jan 2006"),
		Priority:    strings.ToUpper(string(task.Priority)),
		Category:    task.Category,
		Notes:       task.Notes,
	}

	var subject string
	switch kind {
	case constants.NotificationCreated:
		subject = fmt.Sprintf("New Compliance Task: %s", task.Heading)
		view.Title = "New Compliance Task Assigned"
		view.Color = "#2563eb"
	case constants.NotificationReminder:
		subject = fmt.Sprintf("Reminder: %s - Due Soon", task.Heading)
		view.Title = "Task Reminder"
		view.Color = "#d97706"
		view.Lead = "This task is due soon. Please ensure completion on time."
	case constants.NotificationOverdue:
		subject = fmt.Sprintf("OVERDUE: %s", task.Heading)
		view.Title = "Overdue Task Alert"
		view.Color = "#dc2626"
		view.Urgent = true
	default:
		return "", "", fmt.Errorf("unknown notification kind %q", kind)
	}

	var buf bytes.Buffer
	if err := emailTemplate.Execute(&buf, view); err != nil {
		return "", "", fmt.Errorf("render %s email: %w", kind, err)
	}
	return subject, buf.String(), nil
}
