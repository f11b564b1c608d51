package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending schema migrations and exit",
	RunE: func(cmd *cobra.Command, args []string) error {
		out := func(format string, a ...any) {
			fmt.Fprintf(cmd.OutOrStdout(), format+"\n", a...)
		}
		_, db, dialect, err := openStore(cmd.Context(), out)
		if err != nil {
			return err
		}
		defer db.Close()
		out("schema up to date (%s)", dialect)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}
