package main

import (
	"encoding/json"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/premo/internal/model"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run a single model configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		params, err := paramsFromFlags(cmd)
		if err != nil {
			return err
		}

		runner, l, err := initRunner(ctx, cfg, "run")
		if err != nil {
			return err
		}
		defer l.Close() //nolint:errcheck

		res, err := runner.Run(ctx, params)
		if err != nil {
			return eris.Wrapf(err, "run %s", params.ResultName())
		}
		if res.Skipped {
			zap.L().Info("configuration already calculated", zap.String("result_name", res.ResultName))
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(res)
	},
}

// paramsFromFlags builds one configuration from the run flags.
func paramsFromFlags(cmd *cobra.Command) (model.RunParams, error) {
	combination, _ := cmd.Flags().GetString("combination")
	variables, _ := cmd.Flags().GetStringSlice("variables")
	buffer, _ := cmd.Flags().GetString("buffer")
	weighting, _ := cmd.Flags().GetString("weighting")
	statThreshold, _ := cmd.Flags().GetInt("statistic-threshold")
	corrThreshold, _ := cmd.Flags().GetFloat64("corr-threshold")
	statType, _ := cmd.Flags().GetString("statistic-type")
	crossValidation, _ := cmd.Flags().GetBool("cross-validation")

	if combination == "" {
		return model.RunParams{}, eris.New("--combination is required")
	}
	if len(variables) == 0 {
		return model.RunParams{}, eris.New("--variables is required")
	}
	w, err := model.ParseWeighting(weighting)
	if err != nil {
		return model.RunParams{}, err
	}

	return model.RunParams{
		Combination:        combination,
		Variables:          variables,
		BufferSize:         buffer,
		Weighting:          w,
		StatisticThreshold: statThreshold,
		CorrThreshold:      corrThreshold,
		StatisticType:      statType,
		CrossValidation:    crossValidation,
	}, nil
}

// addRunFlags registers the configuration flags on cmd.
func addRunFlags(cmd *cobra.Command) {
	cmd.Flags().String("combination", "", "name of the variable combination")
	cmd.Flags().StringSlice("variables", nil, "predictor variables of the combination")
	cmd.Flags().String("buffer", "50", "buffer size in map units, selects the buffer shapefile")
	cmd.Flags().String("weighting", "w1", "weighting scheme (w0, w1, w2, w3)")
	cmd.Flags().Int("statistic-threshold", 100, "number of ranked variables to keep")
	cmd.Flags().Float64("corr-threshold", 1, "absolute correlation above which a pair is pruned")
	cmd.Flags().String("statistic-type", "iqr_norm", "statistic used to rank variables")
	cmd.Flags().Bool("cross-validation", false, "validate with 5-fold cross-validation")
}

func init() {
	addRunFlags(runCmd)
	rootCmd.AddCommand(runCmd)
}
