// Package predict combines weighted reclassified rasters into a normalized
// suitability surface and post-processes it to the study area.
package predict

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/premo/internal/model"
	"github.com/sells-group/premo/internal/raster"
	"github.com/sells-group/premo/internal/reclass"
	"github.com/sells-group/premo/internal/weighting"
)

// Combine returns the pixel-wise weighted sum of grids scaled by its maximum
// valid value. A pixel that is no-data in any input is no-data in the result.
func Combine(grids []*raster.Grid, weights []float64) (*raster.Grid, error) {
	if len(grids) == 0 {
		return nil, eris.New("predict: no rasters to combine")
	}
	if len(grids) != len(weights) {
		return nil, eris.Errorf("predict: %d rasters but %d weights", len(grids), len(weights))
	}
	ref := grids[0]
	for _, g := range grids[1:] {
		if !ref.SameShape(g) {
			return nil, eris.Errorf("predict: raster shape %dx%d does not match %dx%d", g.Cols, g.Rows, ref.Cols, ref.Rows)
		}
	}

	out := raster.NewGrid(ref)
	out.NoData = raster.DefaultNoData
	out.HasNoData = true
	for i := range out.Data {
		sum := 0.0
		for k, g := range grids {
			v := g.Data[i]
			if g.IsNoData(v) {
				sum = out.NoData
				break
			}
			sum += v * weights[k]
		}
		out.Data[i] = sum
	}

	_, hi, ok := out.MinMax()
	switch {
	case !ok:
		zap.L().Warn("predict: combined raster has no valid pixels")
	case hi <= 0:
		zap.L().Warn("predict: combined raster maximum is not positive, skipping normalization", zap.Float64("max", hi))
	default:
		for i, v := range out.Data {
			if !out.IsNoData(v) {
				out.Data[i] = v / hi
			}
		}
	}
	return out, nil
}

// Request describes one prediction.
type Request struct {
	ResultName string
	CellSize   float64
	Scheme     model.Weighting
	Layers     []reclass.Layer
	Weights    *weighting.Table
}

// Output holds the written suitability rasters.
type Output struct {
	// Raw is the normalized weighted sum at the source resolution.
	Raw string
	// Final is the resampled raster cropped to the study area.
	Final string
}

// Predictor produces the suitability surface of a run.
type Predictor struct {
	store            raster.Store
	paths            model.Paths
	warper           Warper
	keepIntermediate bool
}

// New creates a Predictor. warper performs the resample and crop steps.
func New(store raster.Store, paths model.Paths, warper Warper, keepIntermediate bool) *Predictor {
	return &Predictor{store: store, paths: paths, warper: warper, keepIntermediate: keepIntermediate}
}

// Predict weights and sums the reclassified layers, writes the raw result
// and post-processes it into the final raster.
func (p *Predictor) Predict(ctx context.Context, req Request) (*Output, error) {
	if req.Weights == nil {
		return nil, eris.New("predict: weight table is required")
	}
	grids := make([]*raster.Grid, 0, len(req.Layers))
	weights := make([]float64, 0, len(req.Layers))
	for _, l := range req.Layers {
		w, err := req.Weights.Weight(l.Variable, req.Scheme)
		if err != nil {
			return nil, err
		}
		g, err := p.store.Read(l.Path)
		if err != nil {
			return nil, model.NewInputError(l.Variable, err)
		}
		zap.L().Debug("predict: weighting layer",
			zap.String("variable", l.Variable),
			zap.String("weighting", string(req.Scheme)),
			zap.Float64("weight", w),
		)
		grids = append(grids, g)
		weights = append(weights, w)
	}

	combined, err := Combine(grids, weights)
	if err != nil {
		return nil, err
	}

	out := &Output{
		Raw:   p.paths.Suitability(req.ResultName),
		Final: p.paths.SuitabilityCut(req.ResultName),
	}
	if err := p.store.Write(out.Raw, combined); err != nil {
		return nil, eris.Wrap(err, "predict: write suitability")
	}

	resampled := p.paths.SuitabilityResampled(req.ResultName)
	if err := p.warper.Resample(ctx, out.Raw, resampled, req.CellSize); err != nil {
		return nil, eris.Wrap(err, "predict: resample")
	}
	if err := p.warper.Crop(ctx, resampled, out.Final, p.paths.Mask()); err != nil {
		return nil, eris.Wrap(err, "predict: crop")
	}

	if !p.keepIntermediate {
		raster.Remove(out.Raw)
		raster.Remove(resampled)
		out.Raw = ""
	}
	zap.L().Info("predict: suitability raster written",
		zap.String("result_name", req.ResultName),
		zap.String("path", out.Final),
		zap.Int("layers", len(grids)),
	)
	return out, nil
}
