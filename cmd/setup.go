package main

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/sells-group/premo/internal/config"
	"github.com/sells-group/premo/internal/ledger"
	"github.com/sells-group/premo/internal/pipeline"
	"github.com/sells-group/premo/internal/predict"
	"github.com/sells-group/premo/internal/raster"
	"github.com/sells-group/premo/internal/resilience"
	"github.com/sells-group/premo/internal/validate"
)

// initLedger opens and migrates the configured run ledger and retries
// its transient failures.
func initLedger(ctx context.Context, c *config.Config) (ledger.Ledger, error) {
	l, err := ledger.Open(ctx, ledger.Config(c.Ledger))
	if err != nil {
		return nil, eris.Wrap(err, "open ledger")
	}
	if c.Ledger.RetryAttempts <= 1 {
		return l, nil
	}
	retry := resilience.DefaultRetryConfig()
	retry.MaxAttempts = c.Ledger.RetryAttempts
	return ledger.WithRetry(l, retry), nil
}

// initWarper picks gdalwarp when post-processing is enabled and the
// in-process warper otherwise.
func initWarper(c *config.Config, store raster.Store) predict.Warper {
	if c.Postprocess.Enabled {
		return predict.NewGDALWarp(c.Postprocess.GDALWarpPath, c.Model.NoData)
	}
	return predict.NewLocalWarper(store, c.Model.NoData)
}

// initRunner wires a pipeline runner from config. The caller closes the
// returned ledger.
func initRunner(ctx context.Context, c *config.Config, mode string) (*pipeline.Runner, ledger.Ledger, error) {
	if err := c.Validate(mode); err != nil {
		return nil, nil, err
	}
	vars, err := c.VariableSet()
	if err != nil {
		return nil, nil, eris.Wrap(err, "load variables")
	}
	l, err := initLedger(ctx, c)
	if err != nil {
		return nil, nil, err
	}

	store := raster.NewASCIIStore()
	runner := pipeline.New(store, c.Paths(), vars, l, initWarper(c, store), pipeline.Options{
		Exempt:           c.Model.CombinedDistanceExempt,
		KeepIntermediate: c.Postprocess.KeepIntermediate,
		Validate: validate.Options{
			Radius:        c.Model.ValidationRadius,
			GoodThreshold: c.Model.GoodPredictionThreshold,
			Thresholds:    c.Model.GainThresholds,
		},
	})
	return runner, l, nil
}
