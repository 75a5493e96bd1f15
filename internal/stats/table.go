package stats

import (
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/premo/internal/model"
)

// Table holds statistics in variable order.
type Table []VariableStatistics

// Names returns the variable names in table order.
func (t Table) Names() []string {
	out := make([]string, len(t))
	for i, s := range t {
		out[i] = s.Variable
	}
	return out
}

// Lookup returns the record for a variable.
func (t Table) Lookup(name string) (VariableStatistics, bool) {
	for _, s := range t {
		if s.Variable == name {
			return s, true
		}
	}
	return VariableStatistics{}, false
}

// Restrict returns the records of names in the given order.
func (t Table) Restrict(names []string) (Table, error) {
	out := make(Table, 0, len(names))
	for _, n := range names {
		s, ok := t.Lookup(n)
		if !ok {
			return nil, eris.Errorf("stats: no statistics for %q", n)
		}
		out = append(out, s)
	}
	return out, nil
}

// RangeFunc returns the valid value range of a variable's full raster.
type RangeFunc func(v model.PredictorVariable) (lo, hi float64, err error)

// ComputeAll computes statistics for every sample, in order. samples must
// align with vars.
func ComputeAll(vars model.VariableSet, samples []model.SampleSet, extent RangeFunc) (Table, error) {
	if len(vars) != len(samples) {
		return nil, eris.Errorf("stats: %d variables but %d samples", len(vars), len(samples))
	}
	out := make(Table, 0, len(vars))
	for i, v := range vars {
		lo, hi, err := extent(v)
		if err != nil {
			return nil, model.NewInputError(v.Name, eris.Wrap(err, "raster extent"))
		}
		s, err := Compute(samples[i], v.Category, lo, hi)
		if err != nil {
			return nil, err
		}
		zap.L().Debug("variable statistics",
			zap.String("variable", v.Name),
			zap.Float64("median", s.Median),
			zap.Float64("iqr_norm", s.IQRNorm),
			zap.Float64("w2", s.W2),
		)
		out = append(out, s)
	}
	return out, nil
}
