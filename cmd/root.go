package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/premo/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "premo",
	Short: "Archaeological predictive modelling pipeline",
	Long:  "Samples predictor rasters under known site buffers, selects and weights variables, and writes a validated site suitability surface for every configuration of a parameter sweep.",
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
