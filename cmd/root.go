package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/basedlsg/Nemo-Time-sub000/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "nemo",
	Short: "Answers questions about Chinese energy regulation from official documents",
	Long:  "Ingests government notices and rules, classifies them by province, asset and document class, and answers questions with verbatim quotes and citations.",
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
	SilenceUsage: true,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
