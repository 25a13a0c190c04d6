package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/dealmachine-cli/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "dealmachine-cli",
	Short: "Wireless phone export for DealMachine leads",
	Long:  "Pages through a DealMachine lead list, keeps wireless numbers, exports them as CSV or XLSX, and records each run in a scrape log.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
