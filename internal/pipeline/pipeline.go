// Package pipeline runs one model configuration end to end and drives
// parameter sweeps over many configurations.
package pipeline

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/premo/internal/ledger"
	"github.com/sells-group/premo/internal/model"
	"github.com/sells-group/premo/internal/predict"
	"github.com/sells-group/premo/internal/raster"
	"github.com/sells-group/premo/internal/reclass"
	"github.com/sells-group/premo/internal/report"
	"github.com/sells-group/premo/internal/sampler"
	"github.com/sells-group/premo/internal/selector"
	"github.com/sells-group/premo/internal/stats"
	"github.com/sells-group/premo/internal/validate"
	"github.com/sells-group/premo/internal/vector"
	"github.com/sells-group/premo/internal/weighting"
)

const (
	cvFolds              = 5
	cvStatisticThreshold = 100
	cvCorrThreshold      = 1
)

// Options holds the settings shared by every configuration.
type Options struct {
	// Exempt is the distance variable ranked like any other.
	Exempt string
	// KeepIntermediate keeps reclassified and pre-crop suitability grids.
	KeepIntermediate bool
	Validate         validate.Options
}

// Runner executes configurations against one data layout.
type Runner struct {
	store     raster.Store
	paths     model.Paths
	vars      model.VariableSet
	ledger    ledger.Ledger
	book      *report.ResultsBook
	opts      Options
	sampler   *sampler.Sampler
	reclass   *reclass.Reclassifier
	predictor *predict.Predictor
	validator *validate.Validator
}

// New creates a Runner. warper post-processes every suitability grid.
func New(
	store raster.Store,
	paths model.Paths,
	vars model.VariableSet,
	l ledger.Ledger,
	warper predict.Warper,
	opts Options,
) *Runner {
	return &Runner{
		store:     store,
		paths:     paths,
		vars:      vars,
		ledger:    l,
		book:      report.NewResultsBook(paths.Results()),
		opts:      opts,
		sampler:   sampler.New(store, paths),
		reclass:   reclass.New(store, paths),
		predictor: predict.New(store, paths, warper, opts.KeepIntermediate),
		validator: validate.New(store, paths, opts.Validate),
	}
}

// Result reports what happened to one configuration.
type Result struct {
	ResultName string
	Skipped    bool
	Outcome    *model.RunOutcome
}

// fitted is a model fitted under one result name.
type fitted struct {
	selection *selector.Result
	weights   *weighting.Table
	output    *predict.Output
}

// Run executes one configuration. A configuration the ledger already holds
// as complete is skipped. Failures are recorded in the ledger.
func (r *Runner) Run(ctx context.Context, params model.RunParams) (*Result, error) {
	name := params.ResultName()
	log := zap.L().With(zap.String("result_name", name))

	done, err := ledger.Done(ctx, r.ledger, name)
	if err != nil {
		return nil, eris.Wrap(err, "pipeline: check ledger")
	}
	if done {
		log.Info("pipeline: configuration already calculated, skipping")
		return &Result{ResultName: name, Skipped: true}, nil
	}

	if _, err := r.ledger.Start(ctx, name, params); err != nil {
		return nil, eris.Wrap(err, "pipeline: start run")
	}

	log.Info("pipeline: starting configuration",
		zap.Strings("variables", params.Variables),
		zap.String("buffer_size", params.BufferSize),
		zap.String("weighting", string(params.Weighting)),
	)
	start := time.Now()
	outcome, err := r.execute(ctx, name, params, log)
	if err != nil {
		log.Error("pipeline: configuration failed", zap.Error(err))
		if failErr := r.ledger.Fail(ctx, name, err); failErr != nil {
			log.Warn("pipeline: failed to record failure", zap.Error(failErr))
		}
		return nil, err
	}

	if err := r.ledger.Complete(ctx, name, outcome); err != nil {
		return nil, eris.Wrap(err, "pipeline: complete run")
	}
	log.Info("pipeline: configuration complete",
		zap.Int64("duration_ms", time.Since(start).Milliseconds()),
		zap.Strings("rasters", outcome.Selected),
	)
	return &Result{ResultName: name, Outcome: outcome}, nil
}

func (r *Runner) execute(ctx context.Context, name string, params model.RunParams, log *zap.Logger) (*model.RunOutcome, error) {
	// Stage helper that logs duration and outcome.
	stage := func(stageName string, fn func() error) error {
		start := time.Now()
		err := fn()
		duration := time.Since(start).Milliseconds()
		if err != nil {
			log.Error("pipeline: stage failed",
				zap.String("stage", stageName),
				zap.Int64("duration_ms", duration),
				zap.Error(err),
			)
			return err
		}
		log.Info("pipeline: stage complete",
			zap.String("stage", stageName),
			zap.Int64("duration_ms", duration),
		)
		return nil
	}

	if !validStatistic(params.StatisticType) {
		return nil, &model.ConfigError{Field: "statistic_threshold_type", Err: eris.Errorf("unknown statistic %q", params.StatisticType)}
	}
	if _, err := model.ParseWeighting(string(params.Weighting)); err != nil {
		return nil, err
	}
	cellSize, err := strconv.ParseFloat(params.BufferSize, 64)
	if err != nil || cellSize <= 0 {
		return nil, &model.ConfigError{Field: "buffer_size", Err: eris.Errorf("invalid buffer size %q", params.BufferSize)}
	}
	vars, err := r.vars.Filter(params.Variables)
	if err != nil {
		return nil, err
	}

	var buffers model.BufferSet
	if err := stage("buffers", func() error {
		var readErr error
		buffers, readErr = vector.ReadBuffers(r.paths.Buffers(params.BufferSize))
		if readErr != nil && !model.IsInputError(readErr) {
			return model.NewInputError("buffers", readErr)
		}
		return readErr
	}); err != nil {
		return nil, err
	}

	sel := selector.Params{
		Threshold:     params.StatisticThreshold,
		CorrThreshold: params.CorrThreshold,
		Statistic:     params.StatisticType,
		Exempt:        r.opts.Exempt,
	}

	var full *fitted
	if err := stage("model", func() error {
		var fitErr error
		full, fitErr = r.fit(ctx, name, vars, buffers, sel, params.Weighting, cellSize)
		return fitErr
	}); err != nil {
		return nil, err
	}

	var gain validate.GainTable
	if err := stage("gain", func() error {
		var gainErr error
		gain, gainErr = r.validator.Gain(name, buffers.Buffers)
		if gainErr != nil {
			return gainErr
		}
		return report.WriteGain(r.paths.Gain(name), gain)
	}); err != nil {
		return nil, err
	}

	var sites []validate.SiteValue
	if err := stage("validation", func() error {
		var valErr error
		if params.CrossValidation {
			sites, valErr = r.crossValidate(ctx, name, full.selection.Selected, buffers, sel, params.Weighting, cellSize)
		} else {
			sites, valErr = r.validator.Sites(name, buffers.Buffers)
		}
		if valErr != nil {
			return valErr
		}
		return r.validator.WriteSites(name, buffers.CRS, sites)
	}); err != nil {
		return nil, err
	}

	percentGood := validate.PercentGood(validate.Values(sites), r.validator.GoodThreshold())
	outcome := &model.RunOutcome{
		PercentGood: percentGood,
		Gain05:      gain.At(0.5),
		Gain075:     gain.At(0.75),
		Selected:    full.selection.Selected,
	}

	if err := stage("report", func() error {
		info := report.Info{
			ResultName:      name,
			Weighting:       params.Weighting,
			Selected:        full.selection.Selected,
			Weights:         full.weights,
			CrossValidation: params.CrossValidation,
			Sites:           sites,
			PercentGood:     percentGood,
			GoodThreshold:   r.validator.GoodThreshold(),
			Gain:            gain,
		}
		if err := report.WriteInfo(r.paths.Info(name), info); err != nil {
			return err
		}
		return r.book.Append(report.ResultRow{
			Combination:        params.Combination,
			BufferSize:         params.BufferSize,
			Weighting:          string(params.Weighting),
			StatisticThreshold: params.StatisticThreshold,
			CorrThreshold:      params.CorrThreshold,
			CrossValidation:    params.CrossValidation,
			Rasters:            full.selection.Selected,
			PercentGood:        percentGood,
			Gain05:             rounded(outcome.Gain05),
			Gain075:            rounded(outcome.Gain075),
			StatisticType:      params.StatisticType,
		})
	}); err != nil {
		return nil, err
	}

	return outcome, nil
}

// fit samples, selects, reclassifies, weights and predicts one model under
// the given result name.
func (r *Runner) fit(
	ctx context.Context,
	name string,
	vars model.VariableSet,
	buffers model.BufferSet,
	p selector.Params,
	scheme model.Weighting,
	cellSize float64,
) (*fitted, error) {
	sets, err := r.sampler.Sample(vars, buffers.Buffers)
	if err != nil {
		return nil, err
	}
	if err := vector.WritePoints(r.paths.SitesWithValues(name), buffers.CRS, sampler.SitePoints(sets), vars.Names()); err != nil {
		return nil, eris.Wrap(err, "pipeline: write sampled sites")
	}

	table, err := stats.ComputeAll(vars, sets, r.extent)
	if err != nil {
		return nil, err
	}
	corr, err := stats.Correlate(sets)
	if err != nil {
		return nil, model.NewInputError("correlation", err)
	}
	if err := report.WriteCorrelation(r.paths.CorrelationMatrix(name), corr); err != nil {
		return nil, err
	}

	selection, err := selector.Select(table, corr, p)
	if err != nil {
		return nil, err
	}
	if len(selection.Selected) == 0 {
		return nil, &model.ConfigError{Field: "statistic_threshold", Err: eris.New("no variable selected")}
	}

	selected, err := vars.Filter(selection.Selected)
	if err != nil {
		return nil, err
	}
	layers, err := r.reclass.Run(selected, selection.Statistics, name)
	if err != nil {
		return nil, err
	}
	if !r.opts.KeepIntermediate {
		defer func() {
			for _, l := range layers {
				raster.Remove(l.Path)
			}
		}()
	}

	weights, err := weighting.Compute(selection.Statistics)
	if err != nil {
		return nil, err
	}
	if err := report.WriteStatistics(r.paths.Weighting(name), selection.Statistics, weights); err != nil {
		return nil, err
	}

	out, err := r.predictor.Predict(ctx, predict.Request{
		ResultName: name,
		CellSize:   cellSize,
		Scheme:     scheme,
		Layers:     layers,
		Weights:    weights,
	})
	if err != nil {
		return nil, err
	}
	return &fitted{selection: selection, weights: weights, output: out}, nil
}

// crossValidate refits the selected variables on contiguous training folds
// and samples each fold's held-out sites on that fold's surface.
func (r *Runner) crossValidate(
	ctx context.Context,
	name string,
	selected []string,
	buffers model.BufferSet,
	p selector.Params,
	scheme model.Weighting,
	cellSize float64,
) ([]validate.SiteValue, error) {
	folds, err := validate.KFold(len(buffers.Buffers), cvFolds)
	if err != nil {
		return nil, model.NewInputError("buffers", err)
	}
	vars, err := r.vars.Filter(selected)
	if err != nil {
		return nil, err
	}
	p.Threshold = cvStatisticThreshold
	p.CorrThreshold = cvCorrThreshold

	var sites []validate.SiteValue
	for i, f := range folds {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		foldName := fmt.Sprintf("%s_fold%d", name, i+1)
		if _, err := r.fit(ctx, foldName, vars, buffers.Subset(f.Train), p, scheme, cellSize); err != nil {
			return nil, eris.Wrapf(err, "pipeline: fold %d", i+1)
		}
		foldSites, err := r.validator.Sites(foldName, buffers.Subset(f.Test).Buffers)
		if err != nil {
			return nil, eris.Wrapf(err, "pipeline: validate fold %d", i+1)
		}
		if !r.opts.KeepIntermediate {
			raster.Remove(r.paths.SuitabilityCut(foldName))
		}
		zap.L().Debug("pipeline: fold validated",
			zap.String("result_name", name),
			zap.Int("fold", i+1),
			zap.Int("train", len(f.Train)),
			zap.Int("test", len(f.Test)),
		)
		sites = append(sites, foldSites...)
	}
	return sites, nil
}

// extent returns the value range of a variable's full raster.
func (r *Runner) extent(v model.PredictorVariable) (float64, float64, error) {
	return raster.Extent(r.store, r.paths.Raster(v))
}

func validStatistic(name string) bool {
	for _, s := range stats.StatisticNames() {
		if s == name {
			return true
		}
	}
	return false
}

func rounded(v *float64) *float64 {
	if v == nil {
		return nil
	}
	out := report.Round(*v, report.GainDecimals)
	return &out
}
