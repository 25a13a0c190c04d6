package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the scrape log schema",
	RunE: func(cmd *cobra.Command, _ []string) error {
		st, err := initStore(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		zap.L().Info("store migrated",
			zap.String("driver", cfg.Store.Driver),
		)
		_, _ = fmt.Fprintf(cmd.OutOrStdout(), "scrape log schema is up to date (%s)\n", cfg.Store.Driver)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}
