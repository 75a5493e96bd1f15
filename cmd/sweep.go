package main

import (
	"encoding/json"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/premo/internal/config"
	"github.com/sells-group/premo/internal/pipeline"
)

var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Run every configuration of a parameter sweep",
	Long:  "Expands the sweep file into configurations and runs those the ledger does not hold as complete. A failing configuration is logged and the sweep continues.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		file, _ := cmd.Flags().GetString("file")
		if file == "" {
			file = cfg.Sweep.File
		}
		if concurrency, _ := cmd.Flags().GetInt("concurrency"); concurrency > 0 {
			cfg.Sweep.Concurrency = concurrency
		}
		dryRun, _ := cmd.Flags().GetBool("dry-run")

		sweep, err := config.LoadSweep(file)
		if err != nil {
			return err
		}
		params, err := pipeline.Expand(sweep)
		if err != nil {
			return eris.Wrap(err, "expand sweep")
		}
		zap.L().Info("sweep expanded", zap.String("file", file), zap.Int("configurations", len(params)))

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if dryRun {
			names := make([]string, len(params))
			for i, p := range params {
				names[i] = p.ResultName()
			}
			return enc.Encode(names)
		}

		runner, l, err := initRunner(ctx, cfg, "sweep")
		if err != nil {
			return err
		}
		defer l.Close() //nolint:errcheck

		summary, err := runner.Sweep(ctx, params, cfg.Sweep.Concurrency)
		if err != nil {
			return eris.Wrap(err, "sweep")
		}
		return enc.Encode(summary)
	},
}

func init() {
	sweepCmd.Flags().String("file", "", "sweep definition (default from sweep.file)")
	sweepCmd.Flags().Int("concurrency", 0, "configurations run in parallel (default from sweep.concurrency)")
	sweepCmd.Flags().Bool("dry-run", false, "print the result names without running")
	rootCmd.AddCommand(sweepCmd)
}
