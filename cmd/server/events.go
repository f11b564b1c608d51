package main

import (
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/iliyamo/fitness-tracker/internal/config"
	"github.com/iliyamo/fitness-tracker/internal/queue"
)

var eventsCmd = &cobra.Command{
	Use:   "events",
	Short: "Inspect the activity event stream",
}

var eventsTailCmd = &cobra.Command{
	Use:   "tail",
	Short: "Print activity events as they arrive until interrupted",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		if cfg.RabbitMQURL == "" {
			return errors.New("RABBITMQ_URL is not set")
		}
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return queue.Tail(ctx, cfg.RabbitMQURL, cmd.OutOrStdout())
	},
}

func init() {
	eventsCmd.AddCommand(eventsTailCmd)
	rootCmd.AddCommand(eventsCmd)
}
