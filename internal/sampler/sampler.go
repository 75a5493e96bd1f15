// Package sampler averages raster values under buffer polygons.
package sampler

import (
	"errors"

	"github.com/montanaflynn/stats"
	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"go.uber.org/zap"

	"github.com/sells-group/premo/internal/model"
	"github.com/sells-group/premo/internal/raster"
	"github.com/sells-group/premo/internal/vector"
)

// Mean returns the arithmetic mean of the valid pixels of g that touch poly.
// A polygon covering no valid pixel yields model.ErrEmptyBuffer.
func Mean(g *raster.Grid, poly *geom.Polygon) (float64, error) {
	mean, err := stats.Mean(raster.MaskedValues(g, vector.ToOrb(poly), true))
	if errors.Is(err, stats.ErrEmptyInput) {
		return 0, model.ErrEmptyBuffer
	}
	if err != nil {
		return 0, eris.Wrap(err, "sampler: mean")
	}
	return mean, nil
}

// SampleGrid averages g under every buffer, in buffer order.
func SampleGrid(variable string, g *raster.Grid, buffers []model.Buffer) (model.SampleSet, error) {
	set := model.SampleSet{
		Variable: variable,
		Values:   make([]float64, 0, len(buffers)),
		Sites:    make([]model.Coord, 0, len(buffers)),
	}
	for _, b := range buffers {
		mean, err := Mean(g, b.Polygon)
		if err != nil {
			return model.SampleSet{}, &model.InputError{Variable: variable, Buffer: b.Index, Err: err}
		}
		set.Values = append(set.Values, mean)
		set.Sites = append(set.Sites, b.Centroid)
	}
	return set, nil
}

// Sampler reads predictor rasters from a store and samples them.
type Sampler struct {
	store raster.Store
	paths model.Paths
}

// New creates a Sampler.
func New(store raster.Store, paths model.Paths) *Sampler {
	return &Sampler{store: store, paths: paths}
}

// Sample returns one SampleSet per variable, in variable order. Each raster
// is read, sampled and released before the next one is opened.
func (s *Sampler) Sample(vars model.VariableSet, buffers []model.Buffer) ([]model.SampleSet, error) {
	sets := make([]model.SampleSet, 0, len(vars))
	for _, v := range vars {
		g, err := s.store.Read(s.paths.Raster(v))
		if err != nil {
			return nil, model.NewInputError(v.Name, err)
		}
		set, err := SampleGrid(v.Name, g, buffers)
		if err != nil {
			return nil, eris.Wrap(err, "sampler: sample")
		}
		zap.L().Info("sampler: sampled raster",
			zap.String("variable", v.Name),
			zap.Int("buffers", set.Len()),
		)
		sets = append(sets, set)
	}
	return sets, nil
}

// SitePoints merges sample sets into one point per site with a column per
// variable. All sets must come from the same buffers.
func SitePoints(sets []model.SampleSet) []model.SitePoint {
	if len(sets) == 0 {
		return nil
	}
	points := make([]model.SitePoint, sets[0].Len())
	for i := range points {
		points[i] = model.SitePoint{Coord: sets[0].Sites[i], Attrs: make(map[string]float64, len(sets))}
		for _, s := range sets {
			points[i].Attrs[s.Variable] = s.Values[i]
		}
	}
	return points
}
