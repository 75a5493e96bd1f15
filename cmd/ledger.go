package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/premo/internal/ledger"
	"github.com/sells-group/premo/internal/model"
)

var ledgerCmd = &cobra.Command{
	Use:   "ledger",
	Short: "Inspect the configuration ledger",
	Long:  "Commands for listing, viewing, summarizing and importing calculated configurations.",
}

// -- ledger list --

var ledgerListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recorded configurations",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		l, err := initLedger(ctx, cfg)
		if err != nil {
			return err
		}
		defer l.Close() //nolint:errcheck

		status, _ := cmd.Flags().GetString("status")
		prefix, _ := cmd.Flags().GetString("prefix")
		limit, _ := cmd.Flags().GetInt("limit")

		runs, err := l.List(ctx, ledger.Filter{
			Status: model.RunStatus(status),
			Prefix: prefix,
			Limit:  limit,
		})
		if err != nil {
			return eris.Wrap(err, "ledger list")
		}

		if len(runs) == 0 {
			fmt.Fprintln(os.Stderr, "No runs found.")
			return nil
		}

		formatRunsList(os.Stdout, runs)
		return nil
	},
}

// -- ledger show --

var ledgerShowCmd = &cobra.Command{
	Use:   "show <result-name>",
	Short: "Show full details of a configuration",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		l, err := initLedger(ctx, cfg)
		if err != nil {
			return err
		}
		defer l.Close() //nolint:errcheck

		run, err := l.Get(ctx, args[0])
		if err != nil {
			return eris.Wrap(err, "ledger show")
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(run)
	},
}

// -- ledger stats --

var ledgerStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show aggregate ledger statistics",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		l, err := initLedger(ctx, cfg)
		if err != nil {
			return err
		}
		defer l.Close() //nolint:errcheck

		prefix, _ := cmd.Flags().GetString("prefix")
		runs, err := l.List(ctx, ledger.Filter{Prefix: prefix, Limit: 100000})
		if err != nil {
			return eris.Wrap(err, "ledger stats")
		}

		formatRunStats(os.Stdout, computeRunStats(runs))
		return nil
	},
}

// -- ledger import --

var ledgerImportCmd = &cobra.Command{
	Use:   "import <calculated_combinations.json>",
	Short: "Import a legacy calculated-combinations file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		f, err := os.Open(args[0])
		if err != nil {
			return eris.Wrapf(err, "open %s", args[0])
		}
		defer f.Close() //nolint:errcheck

		l, err := initLedger(ctx, cfg)
		if err != nil {
			return err
		}
		defer l.Close() //nolint:errcheck

		n, err := ledger.ImportLegacy(ctx, l, f)
		if err != nil {
			return eris.Wrap(err, "ledger import")
		}
		fmt.Fprintf(os.Stdout, "Imported %d configurations.\n", n)
		return nil
	},
}

func init() {
	ledgerListCmd.Flags().String("status", "", "filter by status (running, complete, failed)")
	ledgerListCmd.Flags().String("prefix", "", "filter by result name prefix, e.g. a combination name")
	ledgerListCmd.Flags().Int("limit", 50, "max number of runs to display")

	ledgerStatsCmd.Flags().String("prefix", "", "restrict stats to result names with this prefix")

	ledgerCmd.AddCommand(ledgerListCmd)
	ledgerCmd.AddCommand(ledgerShowCmd)
	ledgerCmd.AddCommand(ledgerStatsCmd)
	ledgerCmd.AddCommand(ledgerImportCmd)
	rootCmd.AddCommand(ledgerCmd)
}

// runStats holds aggregate statistics computed from a set of runs.
type runStats struct {
	Total      int
	Complete   int
	Failed     int
	Running    int
	Good       int
	BestName   string
	BestGain   float64
	AvgDurSecs float64
}

// computeRunStats computes aggregate statistics from a list of runs.
func computeRunStats(runs []model.Run) runStats {
	var s runStats
	s.Total = len(runs)

	var totalDur time.Duration
	var durCount int

	for _, r := range runs {
		switch r.Status {
		case model.RunStatusComplete:
			s.Complete++
			totalDur += r.UpdatedAt.Sub(r.CreatedAt)
			durCount++
			if r.Outcome != nil && r.Outcome.PercentGood != nil {
				s.Good++
			}
			if r.Outcome != nil && r.Outcome.Gain05 != nil && (s.BestName == "" || *r.Outcome.Gain05 > s.BestGain) {
				s.BestName = r.ResultName
				s.BestGain = *r.Outcome.Gain05
			}
		case model.RunStatusFailed:
			s.Failed++
		default:
			s.Running++
		}
	}

	if durCount > 0 {
		s.AvgDurSecs = totalDur.Seconds() / float64(durCount)
	}
	return s
}

// formatRunsList writes a tabular list of runs to w.
func formatRunsList(out io.Writer, runs []model.Run) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "RESULT_NAME\tSTATUS\tPERCENT_GOOD\tGAIN_0.5\tGAIN_0.75\tUPDATED")
	_, _ = fmt.Fprintln(w, "-----------\t------\t------------\t--------\t---------\t-------")

	for _, r := range runs {
		var good, g05, g075 *float64
		if r.Outcome != nil {
			good, g05, g075 = r.Outcome.PercentGood, r.Outcome.Gain05, r.Outcome.Gain075
		}
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
			r.ResultName,
			r.Status,
			formatMetric(good),
			formatMetric(g05),
			formatMetric(g075),
			r.UpdatedAt.Format("2006-01-02 15:04"),
		)
	}
	_ = w.Flush()
}

// formatRunStats writes aggregate stats to w.
func formatRunStats(out io.Writer, s runStats) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintf(w, "Total runs:\t%d\n", s.Total)
	_, _ = fmt.Fprintf(w, "Complete:\t%d\n", s.Complete)
	_, _ = fmt.Fprintf(w, "  With good predictions:\t%d\n", s.Good)
	_, _ = fmt.Fprintf(w, "Failed:\t%d\n", s.Failed)
	_, _ = fmt.Fprintf(w, "Running:\t%d\n", s.Running)
	if s.BestName != "" {
		_, _ = fmt.Fprintf(w, "Best gain_0.5:\t%s (%s)\n", strconv.FormatFloat(s.BestGain, 'f', 5, 64), s.BestName)
	}
	if s.AvgDurSecs > 0 {
		_, _ = fmt.Fprintf(w, "Avg duration:\t%.1fs\n", s.AvgDurSecs)
	}
	_ = w.Flush()
}

// formatMetric renders an optional metric, "-" when undefined.
func formatMetric(v *float64) string {
	if v == nil {
		return "-"
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}
