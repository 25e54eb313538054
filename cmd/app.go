package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	config "comply-scheduler.com/comply-scheduler/internal/configs"
	"comply-scheduler.com/comply-scheduler/internal/lifecycle"
	"comply-scheduler.com/comply-scheduler/internal/locks"
	"comply-scheduler.com/comply-scheduler/internal/logger"
	"comply-scheduler.com/comply-scheduler/internal/notifications"
	repository "comply-scheduler.com/comply-scheduler/internal/repositories"
	"comply-scheduler.com/comply-scheduler/internal/services"
)

// app holds the components shared by the serve and sweep commands.
type app struct {
	cfg    config.Config
	log    *logrus.Entry
	db     *gorm.DB
	engine *lifecycle.Engine

	tasks *services.TaskService
	sweep *services.SweepService

	closers []func()
}

func newApp(cfg config.Config) (*app, error) {
	log := logger.New(cfg.AppEnv, cfg.LogLevel)

	db, err := config.NewDatabaseClient(cfg.DatabaseDriver, cfg.DatabaseDSN)
	if err != nil {
		return nil, err
	}

	a := &app{
		cfg:    cfg,
		log:    log,
		db:     db,
		engine: lifecycle.NewEngine(cfg.Location, cfg.ReminderPolicy),
	}
	a.closers = append(a.closers, func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})

	taskRepo := repository.NewTaskRepository(db)
	eventRepo := repository.NewNotificationRepository(db)

	dispatcher := notifications.NewDispatcher(a.mailer(), eventRepo, notifications.Options{
		MaxAttempts: cfg.NotifyMaxAttempts,
		Backoff:     time.Duration(cfg.NotifyRetryBackoffMs) * time.Millisecond,
		Timeout:     time.Duration(cfg.NotifySendTimeoutSecond) * time.Second,
		Location:    cfg.Location,
	}, log)

	lock, err := a.sweepLock()
	if err != nil {
		a.Close()
		return nil, err
	}

	a.tasks = services.NewTaskService(taskRepo, a.engine, dispatcher, time.Now, services.TaskServiceOptions{
		ReminderDefaults: cfg.ReminderDefaults,
		Concurrency:      cfg.NotifyConcurrency,
		Events:           eventRepo,
	}, log)
	a.sweep = services.NewSweepService(taskRepo, a.engine, dispatcher, lock, time.Now, cfg.NotifyConcurrency, log)

	log.WithFields(logrus.Fields{
		"env":             cfg.AppEnv,
		"database_driver": cfg.DatabaseDriver,
		"timezone":        cfg.Timezone,
		"reminder_policy": cfg.ReminderPolicy,
		"redis_lock":      cfg.RedisEnabled,
	}).Info("application initialised")

	return a, nil
}

func (a *app) mailer() notifications.Mailer {
	if a.cfg.SMTPHost == "" {
		a.log.Warn("SMTP_HOST not set, emails will only be logged")
		return notifications.NewLogMailer(a.log)
	}
	return notifications.NewSMTPMailer(notifications.SMTPConfig{
		Host:     a.cfg.SMTPHost,
		Port:     a.cfg.SMTPPort,
		Username: a.cfg.SMTPUser,
		Password: a.cfg.SMTPPass,
		From:     a.cfg.SMTPFrom,
		StartTLS: a.cfg.SMTPStartTLS,
	})
}

// sweepLock always guards against overlap inside this process and, with
// redis enabled, across every process sharing the database.
func (a *app) sweepLock() (locks.Lock, error) {
	local := locks.NewLocal()
	if !a.cfg.RedisEnabled {
		return local, nil
	}

	client, err := config.NewRedisClient(a.cfg.RedisAddr)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, client.Close)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Do(ctx, client.B().Ping().Build()).Error(); err != nil {
		return nil, fmt.Errorf("redis ping %s: %w", a.cfg.RedisAddr, err)
	}

	ttl := time.Duration(a.cfg.SweepLockTTLSeconds) * time.Second
	return locks.Chain{local, locks.NewRedisLock(client, a.cfg.RedisLockKey, ttl)}, nil
}

func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}
