package notifications

import (
	"context"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"

	"comply-scheduler.com/comply-scheduler/internal/constants"
	model "comply-scheduler.com/comply-scheduler/internal/models"
)

type Failure struct {
	Recipient string
	Err       error
}

type FanOutResult struct {
	Sent     []string
	Failures []Failure
}

// FanOut sends kind to every recipient with at most limit sends in flight.
// A failure for one recipient never stops the others.
func FanOut(ctx context.Context, sender Sender, task *model.Task, recipients []string, kind constants.NotificationKind, limit int) FanOutResult {
	if limit <= 0 {
		limit = 1
	}

	var (
		mu     sync.Mutex
		result FanOutResult
		g      errgroup.Group
	)
	g.SetLimit(limit)

	for _, rcpt := range recipients {
		g.Go(func() error {
			err := sender.Send(ctx, task, rcpt, kind)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				result.Failures = append(result.Failures, Failure{Recipient: rcpt, Err: err})
			} else {
				result.Sent = append(result.Sent, rcpt)
			}
			return nil
		})
	}
	_ = g.Wait()

	sort.Strings(result.Sent)
	sort.Slice(result.Failures, func(i, j int) bool {
		return result.Failures[i].Recipient < result.Failures[j].Recipient
	})
	return result
}
