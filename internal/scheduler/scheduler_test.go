package scheduler

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"comply-scheduler.com/comply-scheduler/internal/logger"
)

func TestRegisterDailyJob_RejectsBadSchedule(t *testing.T) {
	s := NewCronScheduler("not a schedule", time.UTC, logger.Discard())

	if err := s.RegisterDailyJob("sweep", func(context.Context) {}); err == nil {
		t.Fatal("RegisterDailyJob() err = nil, want error")
	}
	if n := len(s.cron.Entries()); n != 0 {
		t.Fatalf("registered entries = %d, want 0", n)
	}
}

func TestRegisterDailyJob_RunsAndSkipsOverlap(t *testing.T) {
	s := NewCronScheduler("@every 1s", time.UTC, logger.Discard())

	var running, maxRunning, runs int32
	release := make(chan struct{})

	err := s.RegisterDailyJob("slow", func(ctx context.Context) {
		n := atomic.AddInt32(&running, 1)
		for {
			m := atomic.LoadInt32(&maxRunning)
			if n <= m || atomic.CompareAndSwapInt32(&maxRunning, m, n) {
				break
			}
		}
		atomic.AddInt32(&runs, 1)
		select {
		case <-release:
		case <-ctx.Done():
		}
		atomic.AddInt32(&running, -1)
	})
	if err != nil {
		t.Fatalf("RegisterDailyJob() err = %v", err)
	}

	s.Start()
	time.Sleep(3500 * time.Millisecond)
	close(release)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := s.Stop(ctx); err != nil {
		t.Fatalf("Stop() err = %v", err)
	}

	if atomic.LoadInt32(&runs) != 1 {
		t.Fatalf("runs = %d, want 1 (overlapping ticks skipped)", runs)
	}
	if atomic.LoadInt32(&maxRunning) != 1 {
		t.Fatalf("max concurrent runs = %d, want 1", maxRunning)
	}
}
