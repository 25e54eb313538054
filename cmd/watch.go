package cmd

import (
	"context"
	"errors"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"comply-scheduler.com/comply-scheduler/internal/client"
	config "comply-scheduler.com/comply-scheduler/internal/configs"
	"comply-scheduler.com/comply-scheduler/internal/lifecycle"
	"comply-scheduler.com/comply-scheduler/internal/logger"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Follow the task list from a running server",
	Long:  "Polls the API, derives statuses locally and logs a summary after every refresh. Never writes.",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.Load()
		log := logger.New(cfg.AppEnv, cfg.LogLevel)

		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		api := client.NewAPIClient(cfg.APIBaseURL, 10*time.Second)
		engine := lifecycle.NewEngine(cfg.Location, cfg.ReminderPolicy)

		loop := client.NewSyncLoop(api, engine, time.Now, time.Duration(cfg.SyncIntervalSeconds)*time.Second,
			func(s client.Snapshot) {
				log.WithFields(logrus.Fields{
					"total":       s.Stats.Total,
					"in_progress": s.Stats.InProgress,
					"overdue":     s.Stats.Overdue,
					"completed":   s.Stats.Completed,
					"due_soon":    s.Stats.UpcomingDueSoon,
				}).Info("tasks refreshed")
			}, log)

		log.WithField("api", cfg.APIBaseURL).Info("watching tasks")
		if err := loop.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(watchCmd)
}
