// Package scheduler owns process-wide registration of recurring jobs. Job
// bodies take a context and know nothing about cron, so tests call them
// directly.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

type Job func(ctx context.Context)

type Scheduler interface {
	RegisterDailyJob(name string, job Job) error
	Start()
	Stop(ctx context.Context) error
}

// CronScheduler runs daily jobs on a cron expression in a fixed time zone.
// A tick that fires while the previous run of the same job is still going
// is skipped.
type CronScheduler struct {
	cron   *cron.Cron
	spec   string
	log    *logrus.Entry
	ctx    context.Context
	cancel context.CancelFunc
}

func NewCronScheduler(spec string, loc *time.Location, log *logrus.Entry) *CronScheduler {
	if loc == nil {
		loc = time.UTC
	}
	log = log.WithField("component", "scheduler")
	cronLog := cron.PrintfLogger(log)

	ctx, cancel := context.WithCancel(context.Background())

	return &CronScheduler{
		cron: cron.New(
			cron.WithLocation(loc),
			cron.WithChain(cron.Recover(cronLog), cron.SkipIfStillRunning(cronLog)),
		),
		spec:   spec,
		log:    log,
		ctx:    ctx,
		cancel: cancel,
	}
}

func (s *CronScheduler) RegisterDailyJob(name string, job Job) error {
	_, err := s.cron.AddFunc(s.spec, func() {
		started := time.Now()
		s.log.WithField("job", name).Info("job started")
		job(s.ctx)
		s.log.WithFields(logrus.Fields{
			"job":      name,
			"duration": time.Since(started).String(),
		}).Info("job finished")
	})
	if err != nil {
		return fmt.Errorf("register job %s with schedule %q: %w", name, s.spec, err)
	}

	s.log.WithFields(logrus.Fields{"job": name, "schedule": s.spec}).Info("job registered")
	return nil
}

func (s *CronScheduler) Start() {
	s.cron.Start()
}

// Stop prevents new runs and waits for running jobs until ctx expires, at
// which point running jobs see their context cancelled.
func (s *CronScheduler) Stop(ctx context.Context) error {
	done := s.cron.Stop()

	select {
	case <-done.Done():
		s.cancel()
		return nil
	case <-ctx.Done():
		s.cancel()
		return ctx.Err()
	}
}
