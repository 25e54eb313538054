package cmd

import (
	"os"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"comply-scheduler.com/comply-scheduler/internal/logger"
)

var rootCmd = &cobra.Command{
	Use:           "comply-scheduler",
	Short:         "Compliance task tracker",
	Long:          "Tracks compliance tasks, sends due-date reminders and overdue alerts by email",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if err := godotenv.Load(); err != nil {
			logrus.Info(".env file not found, using environment variables")
		}
	},
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		logger.New(os.Getenv("APP_ENV"), "error").WithError(err).Error("command failed")
		os.Exit(1)
	}
}
