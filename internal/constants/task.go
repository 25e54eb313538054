package constants

type TaskStatus string

const (
	StatusInProgress TaskStatus = "in-progress"
	StatusComplete   TaskStatus = "complete"
	StatusOverdue    TaskStatus = "overdue"
)

func (s TaskStatus) IsValid() bool {
	switch s {
	case StatusInProgress, StatusComplete, StatusOverdue:
		return true
	}
	return false
}

type Priority string

const (
	PriorityLow      Priority = "low"
	PriorityMedium   Priority = "medium"
	PriorityHigh     Priority = "high"
	PriorityCritical Priority = "critical"
)

func (p Priority) IsValid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityCritical:
		return true
	}
	return false
}

// Rank orders priorities from least to most urgent.
func (p Priority) Rank() int {
	switch p {
	case PriorityCritical:
		return 4
	case PriorityHigh:
		return 3
	case PriorityMedium:
		return 2
	case PriorityLow:
		return 1
	}
	return 0
}

const DefaultCategory = "general"
