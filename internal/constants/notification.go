package constants

type ReminderKind string

const ReminderEmail ReminderKind = "email"

type NotificationKind string

const (
	NotificationCreated  NotificationKind = "created"
	NotificationReminder NotificationKind = "reminder"
	NotificationOverdue  NotificationKind = "overdue"
)
