package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/iliyamo/fitness-tracker/internal/database"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Insert the default exercises and routines",
	RunE: func(cmd *cobra.Command, args []string) error {
		out := func(format string, a ...any) {
			fmt.Fprintf(cmd.OutOrStdout(), format+"\n", a...)
		}
		_, db, _, err := openStore(cmd.Context(), out)
		if err != nil {
			return err
		}
		defer db.Close()
		if err := database.SeedDefaults(cmd.Context(), db); err != nil {
			return err
		}
		out("default catalog seeded")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(seedCmd)
}
