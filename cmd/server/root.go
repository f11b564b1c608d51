package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/iliyamo/fitness-tracker/internal/config"
	"github.com/iliyamo/fitness-tracker/internal/database"
)

var rootCmd = &cobra.Command{
	Use:   "fitness-tracker",
	Short: "fitness-tracker serves the workout tracking API",
	Long:  "fitness-tracker is a JSON API for exercises, routines and workout logs. Without a subcommand it runs serve.",
	RunE: func(cmd *cobra.Command, args []string) error {
		return serveCmd.RunE(cmd, args)
	},
	SilenceUsage: true,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// openStore loads the configuration and opens a migrated database.
func openStore(ctx context.Context, out func(format string, args ...any)) (config.Config, *sql.DB, database.Dialect, error) {
	cfg, err := config.Load()
	if err != nil {
		return config.Config{}, nil, "", err
	}
	db, dialect, err := database.Open(cfg)
	if err != nil {
		return config.Config{}, nil, "", err
	}
	applied, err := database.ApplyMigrations(ctx, db, dialect)
	if err != nil {
		_ = db.Close()
		return config.Config{}, nil, "", err
	}
	for _, name := range applied {
		out("applied migration %s", name)
	}
	return cfg, db, dialect, nil
}
