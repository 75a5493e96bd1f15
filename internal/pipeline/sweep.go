package pipeline

import (
	"context"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/premo/internal/config"
	"github.com/sells-group/premo/internal/model"
)

// Expand returns the configurations of a sweep in loop order: combination,
// buffer size, weighting, statistic threshold, corr threshold, statistic type.
func Expand(s *config.Sweep) ([]model.RunParams, error) {
	weightings := make([]model.Weighting, 0, len(s.Weightings))
	for _, w := range s.Weightings {
		parsed, err := model.ParseWeighting(w)
		if err != nil {
			return nil, err
		}
		weightings = append(weightings, parsed)
	}

	var out []model.RunParams
	for _, combo := range s.Combinations {
		for _, buffer := range s.BufferSizes {
			for _, w := range weightings {
				for _, st := range s.StatisticThresholds {
					for _, ct := range s.CorrThresholds {
						for _, typ := range s.StatisticTypes {
							out = append(out, model.RunParams{
								Combination:        combo.Name,
								Variables:          combo.Variables,
								BufferSize:         buffer,
								Weighting:          w,
								StatisticThreshold: st,
								CorrThreshold:      ct,
								StatisticType:      typ,
								CrossValidation:    s.CrossValidation,
							})
						}
					}
				}
			}
		}
	}
	return out, nil
}

// SweepSummary counts configuration outcomes of a sweep.
type SweepSummary struct {
	Total     int      `json:"total"`
	Completed int      `json:"completed"`
	Skipped   int      `json:"skipped"`
	Failed    int      `json:"failed"`
	Errors    []string `json:"errors,omitempty"`
}

// Sweep runs every configuration with at most concurrency in flight. A
// failing configuration is logged and counted; it does not stop the sweep.
func (r *Runner) Sweep(ctx context.Context, params []model.RunParams, concurrency int) (*SweepSummary, error) {
	if concurrency < 1 {
		concurrency = 1
	}
	summary := &SweepSummary{Total: len(params)}

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)

	var mu sync.Mutex
	for _, p := range params {
		g.Go(func() error {
			if err := gCtx.Err(); err != nil {
				return err
			}
			res, err := r.Run(gCtx, p)

			mu.Lock()
			defer mu.Unlock()
			switch {
			case err != nil:
				summary.Failed++
				summary.Errors = append(summary.Errors, p.ResultName()+": "+err.Error())
				zap.L().Warn("pipeline: configuration failed, continuing",
					zap.String("result_name", p.ResultName()),
					zap.Bool("input_error", model.IsInputError(err)),
					zap.Bool("config_error", model.IsConfigError(err)),
				)
			case res.Skipped:
				summary.Skipped++
			default:
				summary.Completed++
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return summary, err
	}
	zap.L().Info("pipeline: sweep complete",
		zap.Int("total", summary.Total),
		zap.Int("completed", summary.Completed),
		zap.Int("skipped", summary.Skipped),
		zap.Int("failed", summary.Failed),
	)
	return summary, nil
}
