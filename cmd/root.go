package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/taxautomation/taxbot/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "taxbot",
	Short: "State corporate tax rate extraction pipeline",
	Long:  "Fetches state tax agency pages, extracts corporate tax rates via LLM analysis, and produces an Excel summary with a full reasoning audit trail.",
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
