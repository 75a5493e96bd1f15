// Package reclass maps full predictor rasters to the ordinal suitability
// classes 0, 1 and 2 using each variable's sample statistics.
package reclass

import (
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/premo/internal/model"
	"github.com/sells-group/premo/internal/raster"
	"github.com/sells-group/premo/internal/stats"
)

// Suitability classes.
const (
	ClassUnsuitable = 0.0
	ClassModerate   = 1.0
	ClassSuitable   = 2.0
)

// Rule maps a pixel value to a class.
type Rule func(v float64) float64

// DistanceRule treats smaller distances as better: at or below the median is
// suitable, above the upper quartile unsuitable.
func DistanceRule(s stats.VariableStatistics) Rule {
	return func(v float64) float64 {
		switch {
		case v > s.Q75:
			return ClassUnsuitable
		case v <= s.Median:
			return ClassSuitable
		default:
			return ClassModerate
		}
	}
}

// CentralRule favours typical values: the interquartile band is suitable,
// values outside the 12.5..87.5 percentile band unsuitable.
func CentralRule(s stats.VariableStatistics) Rule {
	return func(v float64) float64 {
		switch {
		case v > s.P875 || v < s.P125:
			return ClassUnsuitable
		case v >= s.Q25 && v <= s.Q75:
			return ClassSuitable
		default:
			return ClassModerate
		}
	}
}

// RuleFor picks the rule by variable category.
func RuleFor(s stats.VariableStatistics) Rule {
	if s.Category.Inverted() {
		return DistanceRule(s)
	}
	return CentralRule(s)
}

// outputNoData keeps the source marker unless it is missing or collides
// with a class value.
func outputNoData(g *raster.Grid) float64 {
	if !g.HasNoData {
		return raster.DefaultNoData
	}
	switch g.NoData {
	case ClassUnsuitable, ClassModerate, ClassSuitable:
		return raster.DefaultNoData
	}
	return g.NoData
}

// Reclassify returns a new grid of classes with the source's dimensions and
// georeferencing. No-data pixels stay no-data. src is not modified.
func Reclassify(src *raster.Grid, s stats.VariableStatistics) (*raster.Grid, error) {
	if err := src.Validate(); err != nil {
		return nil, eris.Wrapf(err, "reclass: %s", s.Variable)
	}
	rule := RuleFor(s)
	out := src.Clone()
	out.NoData = outputNoData(src)
	out.HasNoData = true
	for i, v := range src.Data {
		if src.IsNoData(v) {
			out.Data[i] = out.NoData
			continue
		}
		out.Data[i] = rule(v)
	}
	return out, nil
}

// Layer is a written reclassified raster.
type Layer struct {
	Variable string
	Path     string
}

// Reclassifier reads, reclassifies and writes one raster at a time.
type Reclassifier struct {
	store raster.Store
	paths model.Paths
}

// New creates a Reclassifier.
func New(store raster.Store, paths model.Paths) *Reclassifier {
	return &Reclassifier{store: store, paths: paths}
}

// Run reclassifies every variable in table and writes the results under the
// run's result name. vars supplies the source rasters.
func (r *Reclassifier) Run(vars model.VariableSet, table stats.Table, resultName string) ([]Layer, error) {
	layers := make([]Layer, 0, len(table))
	for _, s := range table {
		v, ok := vars.Lookup(s.Variable)
		if !ok {
			return nil, &model.ConfigError{Field: "variables", Err: eris.Errorf("no raster for %q", s.Variable)}
		}
		src, err := r.store.Read(r.paths.Raster(v))
		if err != nil {
			return nil, model.NewInputError(v.Name, err)
		}
		out, err := Reclassify(src, s)
		if err != nil {
			return nil, model.NewInputError(v.Name, err)
		}
		path := r.paths.Reclassified(v.Name, resultName)
		if err := r.store.Write(path, out); err != nil {
			return nil, eris.Wrapf(err, "reclass: write %s", v.Name)
		}
		zap.L().Debug("reclassified raster",
			zap.String("variable", v.Name),
			zap.String("category", string(v.Category)),
			zap.String("path", path),
		)
		layers = append(layers, Layer{Variable: v.Name, Path: path})
	}
	return layers, nil
}
