package notifications

import (
	"strings"

	model "comply-scheduler.com/comply-scheduler/internal/models"
)

// NormalizeEmail lower-cases and trims an address for comparison.
func NormalizeEmail(addr string) string {
	return strings.ToLower(strings.TrimSpace(addr))
}

// Recipients returns the creator followed by everyone involved, normalized
// and deduplicated, in first-seen order.
func Recipients(task *model.Task) []string {
	seen := make(map[string]struct{}, len(task.PeopleInvolved)+1)
	out := make([]string, 0, len(task.PeopleInvolved)+1)

	add := func(addr string) {
		addr = NormalizeEmail(addr)
		if addr == "" {
			return
		}
		if _, ok := seen[addr]; ok {
			return
		}
		seen[addr] = struct{}{}
		out = append(out, addr)
	}

	add(task.CreatedBy)
	for _, p := range task.PeopleInvolved {
		add(p)
	}
	return out
}
