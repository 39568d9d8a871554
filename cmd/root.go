package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jdboer/grocery-cli/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "grocery-cli",
	Short: "Personal grocery price tracking pipeline",
	Long:  "Scrapes Dutch supermarket catalogs, translates product names, and maps purchases from a shared ledger back to catalog ids.",
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
