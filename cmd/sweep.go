package cmd

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	config "comply-scheduler.com/comply-scheduler/internal/configs"
)

var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Run the reminder sweep once",
	Long:  "Sends today's due reminders and overdue alerts, then exits. Safe to run more than once a day.",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.Load()

		a, err := newApp(cfg)
		if err != nil {
			return err
		}
		defer a.Close()

		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		summary, err := a.sweep.Run(ctx)
		if err != nil {
			return err
		}

		a.log.WithFields(logrus.Fields{
			"tasks_scanned":     summary.TasksScanned,
			"reminders_sent":    summary.RemindersSent,
			"reminder_emails":   summary.ReminderEmails,
			"transitions":       summary.Transitions,
			"overdue_alerts":    summary.OverdueAlerts,
			"dispatch_failures": summary.DispatchFailures,
		}).Info("sweep complete")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(sweepCmd)
}
