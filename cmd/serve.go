package cmd

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	config "comply-scheduler.com/comply-scheduler/internal/configs"
	httpapi "comply-scheduler.com/comply-scheduler/internal/http"
	"comply-scheduler.com/comply-scheduler/internal/scheduler"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API server",
	Long:  "Starts the task HTTP API and the daily reminder sweep",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.Load()

		a, err := newApp(cfg)
		if err != nil {
			return err
		}
		defer a.Close()

		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		sched := scheduler.NewCronScheduler(cfg.SweepSchedule, cfg.Location, a.log)
		if err := sched.RegisterDailyJob("sweep", a.sweep.Job()); err != nil {
			return err
		}
		sched.Start()

		handler := httpapi.NewHandler(a.tasks, a.sweep, a.log)
		e := httpapi.NewServer(handler, cfg.RateLimit, a.log)

		serverErr := make(chan error, 1)
		go func() {
			a.log.WithField("addr", cfg.AppURL).Info("HTTP server listening")
			if err := e.Start(cfg.AppURL); err != nil && !errors.Is(err, http.ErrServerClosed) {
				serverErr <- err
			}
		}()

		select {
		case <-ctx.Done():
		case err := <-serverErr:
			a.log.WithError(err).Error("server stopped")
		}

		shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.ShutdownTimeoutSeconds)*time.Second)
		defer cancel()

		if err := e.Shutdown(shutdownCtx); err != nil {
			a.log.WithError(err).Warn("HTTP shutdown incomplete")
		}
		if err := sched.Stop(shutdownCtx); err != nil {
			a.log.WithError(err).Warn("scheduler stop timed out, running sweep cancelled")
		}

		a.log.Info("HTTP server and scheduler shut down gracefully")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
