package client

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"comply-scheduler.com/comply-scheduler/internal/lifecycle"
	model "comply-scheduler.com/comply-scheduler/internal/models"
	"comply-scheduler.com/comply-scheduler/internal/services"
)

// Snapshot is what a client shows: the task list with statuses derived for
// the moment it was taken, and the aggregate counters.
type Snapshot struct {
	Tasks     []model.Task
	Stats     services.Stats
	Refreshed time.Time
}

// SyncLoop keeps a read-only local copy of the task collection fresh. It
// derives statuses locally and never writes them back.
type SyncLoop struct {
	lister     Lister
	engine     *lifecycle.Engine
	clock      lifecycle.Clock
	interval   time.Duration
	onSnapshot func(Snapshot)
	log        *logrus.Entry

	mu   sync.RWMutex
	last Snapshot
}

func NewSyncLoop(lister Lister, engine *lifecycle.Engine, clock lifecycle.Clock, interval time.Duration, onSnapshot func(Snapshot), log *logrus.Entry) *SyncLoop {
	if clock == nil {
		clock = time.Now
	}
	if interval <= 0 {
		interval = time.Minute
	}
	return &SyncLoop{
		lister:     lister,
		engine:     engine,
		clock:      clock,
		interval:   interval,
		onSnapshot: onSnapshot,
		log:        log.WithField("component", "sync"),
	}
}

// Run refreshes once immediately and then on every tick until ctx is done.
func (s *SyncLoop) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.refreshLogged(ctx)

	for {
		select {
		case <-ticker.C:
			s.refreshLogged(ctx)
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (s *SyncLoop) refreshLogged(ctx context.Context) {
	if _, err := s.Refresh(ctx); err != nil && ctx.Err() == nil {
		s.log.WithError(err).Warn("refresh failed, keeping previous snapshot")
	}
}

// Refresh pulls the collection once and publishes a new snapshot.
func (s *SyncLoop) Refresh(ctx context.Context) (Snapshot, error) {
	tasks, err := s.lister.ListTasks(ctx)
	if err != nil {
		return Snapshot{}, err
	}

	now := s.clock()
	for i := range tasks {
		s.engine.ApplyDerivedStatus(&tasks[i], now)
	}

	snap := Snapshot{
		Tasks:     tasks,
		Stats:     services.ComputeStats(tasks, s.engine, now),
		Refreshed: now,
	}

	s.mu.Lock()
	s.last = snap
	s.mu.Unlock()

	if s.onSnapshot != nil {
		s.onSnapshot(snap)
	}
	return snap, nil
}

func (s *SyncLoop) Last() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.last
}
