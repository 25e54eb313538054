package services

import (
	"errors"
	"testing"
	"time"

	"comply-scheduler.com/comply-scheduler/internal/constants"
	apperrors "comply-scheduler.com/comply-scheduler/internal/errors"
	"comply-scheduler.com/comply-scheduler/internal/lifecycle"
	model "comply-scheduler.com/comply-scheduler/internal/models"
)

func sampleTasks() []model.Task {
	return []model.Task{
		{ID: "a", Heading: "SOC2 evidence", Description: "collect logs", DueDate: day0.AddDate(0, 0, 3), Priority: constants.PriorityLow, Status: constants.StatusInProgress, Category: "Security"},
		{ID: "b", Heading: "gdpr audit", Description: "annual review", DueDate: day0.AddDate(0, 0, -2), Priority: constants.PriorityCritical, Status: constants.StatusOverdue, Category: "Privacy"},
		{ID: "c", Heading: "Fire drill", Description: "Quarterly GDPR poster check", DueDate: day0.AddDate(0, 0, 20), Priority: constants.PriorityMedium, Status: constants.StatusInProgress, Category: "Safety"},
		{ID: "d", Heading: "Archive 2025 filings", DueDate: day0.AddDate(0, 0, 1), Priority: constants.PriorityHigh, Status: constants.StatusComplete, Category: "Security"},
	}
}

func ids(tasks []model.Task) string {
	out := ""
	for _, t := range tasks {
		out += t.ID
	}
	return out
}

func TestApplyQuery(t *testing.T) {
	cases := []struct {
		name string
		q    ListQuery
		want string
	}{
		{"default sorts by due date", ListQuery{}, "bdac"},
		{"filter overdue", ListQuery{Filter: FilterOverdue}, "b"},
		{"filter in-progress", ListQuery{Filter: FilterInProgress}, "ac"},
		{"filter complete", ListQuery{Filter: FilterComplete}, "d"},
		{"search heading and description", ListQuery{Search: "GDPR"}, "bc"},
		{"sort priority", ListQuery{Sort: SortPriority}, "bdca"},
		{"sort status", ListQuery{Sort: SortStatus}, "bacd"},
		{"sort heading", ListQuery{Sort: SortHeading}, "dcba"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := ids(ApplyQuery(sampleTasks(), tc.q)); got != tc.want {
				t.Errorf("ApplyQuery() = %s, want %s", got, tc.want)
			}
		})
	}
}

func TestParseListQuery(t *testing.T) {
	q, err := ParseListQuery("", " audit ", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if q.Filter != FilterAll || q.Sort != SortDueDate || q.Search != "audit" {
		t.Errorf("unexpected defaults: %+v", q)
	}

	if _, err := ParseListQuery("pending", "", ""); !errors.Is(err, apperrors.ErrInvalidQuery) {
		t.Errorf("expected ErrInvalidQuery for filter, got %v", err)
	}
	if _, err := ParseListQuery("", "", "createdAt"); !errors.Is(err, apperrors.ErrInvalidQuery) {
		t.Errorf("expected ErrInvalidQuery for sort, got %v", err)
	}
}

func TestComputeStats(t *testing.T) {
	engine := lifecycle.NewEngine(time.UTC, lifecycle.PolicyExact)

	got := ComputeStats(sampleTasks(), engine, day0)
	want := Stats{Total: 4, Completed: 1, Overdue: 1, InProgress: 2, UpcomingDueSoon: 1}
	if got != want {
		t.Errorf("ComputeStats() = %+v, want %+v", got, want)
	}
}

func TestBuildCalendar(t *testing.T) {
	engine := lifecycle.NewEngine(time.UTC, lifecycle.PolicyExact)

	days, err := BuildCalendar(sampleTasks(), engine, "2026-03")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := []string{"2026-03-03", "2026-03-05", "2026-03-22"}
	if len(days) != len(want) {
		t.Fatalf("got %d days, want %d: %+v", len(days), len(want), days)
	}
	for i, d := range days {
		if d.Date != want[i] {
			t.Errorf("day %d = %s, want %s", i, d.Date, want[i])
		}
	}

	if _, err := BuildCalendar(nil, engine, "March"); !errors.Is(err, apperrors.ErrValidation) {
		t.Errorf("expected validation error, got %v", err)
	}
}

func TestBuildReport(t *testing.T) {
	r := BuildReport(sampleTasks())

	if r.Total != 4 || r.Completed != 1 || r.Overdue != 1 {
		t.Errorf("unexpected totals: %+v", r)
	}
	if r.CompletionRate != 0.25 {
		t.Errorf("completion rate = %v, want 0.25", r.CompletionRate)
	}
	if r.ByCategory["Security"] != 2 || r.ByPriority["critical"] != 1 {
		t.Errorf("unexpected breakdown: %+v", r)
	}

	if empty := BuildReport(nil); empty.CompletionRate != 0 {
		t.Errorf("empty report completion rate = %v", empty.CompletionRate)
	}
}
