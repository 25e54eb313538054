package services

import (
	"sort"
	"strings"
	"time"

	"comply-scheduler.com/comply-scheduler/internal/constants"
	apperrors "comply-scheduler.com/comply-scheduler/internal/errors"
	"comply-scheduler.com/comply-scheduler/internal/lifecycle"
	model "comply-scheduler.com/comply-scheduler/internal/models"
)

// UpcomingWindowDays is how far ahead a task counts as due soon.
const UpcomingWindowDays = 7

type ListFilter string

const (
	FilterAll        ListFilter = "all"
	FilterInProgress ListFilter = ListFilter(constants.StatusInProgress)
	FilterComplete   ListFilter = ListFilter(constants.StatusComplete)
	FilterOverdue    ListFilter = ListFilter(constants.StatusOverdue)
)

type SortKey string

const (
	SortDueDate  SortKey = "dueDate"
	SortPriority SortKey = "priority"
	SortStatus   SortKey = "status"
	SortHeading  SortKey = "heading"
)

type ListQuery struct {
	Filter ListFilter
	Search string
	Sort   SortKey
}

// ParseListQuery validates raw query-string values. Empty values fall back to
// all / dueDate.
func ParseListQuery(filter, search, sortKey string) (ListQuery, error) {
	q := ListQuery{Filter: FilterAll, Sort: SortDueDate, Search: strings.TrimSpace(search)}

	switch f := ListFilter(filter); f {
	case "":
	case FilterAll, FilterInProgress, FilterComplete, FilterOverdue:
		q.Filter = f
	default:
		return ListQuery{}, apperrors.ErrInvalidQuery
	}

	switch s := SortKey(sortKey); s {
	case "":
	case SortDueDate, SortPriority, SortStatus, SortHeading:
		q.Sort = s
	default:
		return ListQuery{}, apperrors.ErrInvalidQuery
	}

	return q, nil
}

// ApplyQuery filters, searches and sorts tasks. Statuses are expected to be
// derived already. The input slice is not modified.
func ApplyQuery(tasks []model.Task, q ListQuery) []model.Task {
	needle := strings.ToLower(q.Search)

	out := make([]model.Task, 0, len(tasks))
	for _, t := range tasks {
		if q.Filter != "" && q.Filter != FilterAll && string(t.Status) != string(q.Filter) {
			continue
		}
		if needle != "" &&
			!strings.Contains(strings.ToLower(t.Heading), needle) &&
			!strings.Contains(strings.ToLower(t.Description), needle) {
			continue
		}
		out = append(out, t)
	}

	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		switch q.Sort {
		case SortPriority:
			if a.Priority.Rank() != b.Priority.Rank() {
				return a.Priority.Rank() > b.Priority.Rank()
			}
		case SortStatus:
			if statusRank(a.Status) != statusRank(b.Status) {
				return statusRank(a.Status) < statusRank(b.Status)
			}
		case SortHeading:
			ah, bh := strings.ToLower(a.Heading), strings.ToLower(b.Heading)
			if ah != bh {
				return ah < bh
			}
		}
		return a.DueDate.Before(b.DueDate)
	})

	return out
}

// overdue first, then open work, then done.
func statusRank(s constants.TaskStatus) int {
	switch s {
	case constants.StatusOverdue:
		return 0
	case constants.StatusInProgress:
		return 1
	case constants.StatusComplete:
		return 2
	}
	return 3
}

type Stats struct {
	Total           int `json:"total"`
	Completed       int `json:"completed"`
	Overdue         int `json:"overdue"`
	InProgress      int `json:"inProgress"`
	UpcomingDueSoon int `json:"upcomingDueSoon"`
}

func ComputeStats(tasks []model.Task, engine *lifecycle.Engine, asOf time.Time) Stats {
	var s Stats
	for i := range tasks {
		t := &tasks[i]
		s.Total++
		switch t.Status {
		case constants.StatusComplete:
			s.Completed++
		case constants.StatusOverdue:
			s.Overdue++
		case constants.StatusInProgress:
			s.InProgress++
			if engine.DueWithin(t, asOf, UpcomingWindowDays) {
				s.UpcomingDueSoon++
			}
		}
	}
	return s
}

type CalendarDay struct {
	Date  string       `json:"date"`
	Tasks []model.Task `json:"tasks"`
}

// BuildCalendar groups the tasks due in month (YYYY-MM) by their due day in
// the engine's time zone. Days without tasks are omitted.
func BuildCalendar(tasks []model.Task, engine *lifecycle.Engine, month string) ([]CalendarDay, error) {
	start, err := time.ParseInLocation("2006-01", month, engine.Location())
	if err != nil {
		return nil, apperrors.Validation("month must be formatted as YYYY-MM")
	}

	byDay := make(map[string][]model.Task)
	for _, t := range tasks {
		due := engine.DateOnly(t.DueDate)
		if due.Year() != start.Year() || due.Month() != start.Month() {
			continue
		}
		key := due.Format("2006-01-02")
		byDay[key] = append(byDay[key], t)
	}

	days := make([]CalendarDay, 0, len(byDay))
	for key, list := range byDay {
		days = append(days, CalendarDay{Date: key, Tasks: ApplyQuery(list, ListQuery{Sort: SortPriority})})
	}
	sort.Slice(days, func(i, j int) bool { return days[i].Date < days[j].Date })

	return days, nil
}

type Report struct {
	Total          int            `json:"total"`
	Completed      int            `json:"completed"`
	Overdue        int            `json:"overdue"`
	CompletionRate float64        `json:"completionRate"`
	ByCategory     map[string]int `json:"byCategory"`
	ByPriority     map[string]int `json:"byPriority"`
}

func BuildReport(tasks []model.Task) Report {
	r := Report{
		ByCategory: make(map[string]int),
		ByPriority: make(map[string]int),
	}

	for _, t := range tasks {
		r.Total++
		switch t.Status {
		case constants.StatusComplete:
			r.Completed++
		case constants.StatusOverdue:
			r.Overdue++
		}
		r.ByCategory[t.Category]++
		r.ByPriority[string(t.Priority)]++
	}

	if r.Total > 0 {
		r.CompletionRate = float64(r.Completed) / float64(r.Total)
	}
	return r
}
