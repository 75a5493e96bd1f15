// Package weighting derives the four per-variable weighting schemes from
// the statistics of the selected variables.
package weighting

import (
	"math"

	"github.com/rotisserie/eris"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/sells-group/premo/internal/model"
	"github.com/sells-group/premo/internal/stats"
)

// Weights holds every scheme's weight for one variable.
type Weights struct {
	Variable string  `json:"variable"`
	W0       float64 `json:"w0"`
	W1       float64 `json:"w1"`
	W2       float64 `json:"w2"`
	W3       float64 `json:"w3"`
}

// Get returns the weight for a scheme.
func (w Weights) Get(scheme model.Weighting) (float64, error) {
	switch scheme {
	case model.WeightingUniform:
		return w.W0, nil
	case model.WeightingIQR:
		return w.W1, nil
	case model.WeightingDispersion:
		return w.W2, nil
	case model.WeightingPairwise:
		return w.W3, nil
	default:
		return 0, &model.ConfigError{Field: "weighting", Err: eris.Errorf("unknown scheme %q", scheme)}
	}
}

// Table is the statistics of the selected variables extended by their
// weights, in the same variable order.
type Table struct {
	Statistics stats.Table
	Weights    []Weights
}

// Lookup returns the weights of a variable.
func (t *Table) Lookup(variable string) (Weights, bool) {
	for _, w := range t.Weights {
		if w.Variable == variable {
			return w, true
		}
	}
	return Weights{}, false
}

// Weight returns the weight of a variable under a scheme.
func (t *Table) Weight(variable string, scheme model.Weighting) (float64, error) {
	w, ok := t.Lookup(variable)
	if !ok {
		return 0, eris.Errorf("weighting: no weights for %q", variable)
	}
	return w.Get(scheme)
}

// Compute builds the weight table:
//
//	w0 = 1
//	w1 = 1 - iqr_norm
//	w2 = sqrt(1 / (std_dev / range))
//	w3 = row sums of (sdn[j]/sdn[i])^8, normalized to sum to 1
func Compute(table stats.Table) (*Table, error) {
	if len(table) == 0 {
		return nil, eris.New("weighting: no variables selected")
	}
	for _, s := range table {
		if s.StdDev == 0 || s.Range == 0 {
			return nil, model.NewInputError(s.Variable, eris.Wrap(model.ErrDegenerate, "w2 needs non-zero std_dev and range"))
		}
	}
	w3, err := Pairwise(table)
	if err != nil {
		return nil, err
	}

	out := &Table{Statistics: table, Weights: make([]Weights, len(table))}
	for i, s := range table {
		out.Weights[i] = Weights{
			Variable: s.Variable,
			W0:       1,
			W1:       1 - s.IQRNorm,
			W2:       stats.DispersionWeight(s.StdDev, s.Range),
			W3:       w3[i],
		}
	}
	return out, nil
}

// Pairwise computes the w3 weights, an AHP-style dominance ranking on the
// normalized standard deviation.
func Pairwise(table stats.Table) ([]float64, error) {
	n := len(table)
	sdn := make([]float64, n)
	for i, s := range table {
		if s.StdDevNorm == 0 || math.IsNaN(s.StdDevNorm) {
			return nil, model.NewInputError(s.Variable, eris.Wrap(model.ErrDegenerate, "w3 needs non-zero std_dev_norm"))
		}
		sdn[i] = s.StdDevNorm
	}

	m := mat.NewDense(n, n, nil)
	m.Apply(func(i, j int, _ float64) float64 { return sdn[j] / sdn[i] }, m)
	for range 3 {
		m.MulElem(m, m)
	}

	sums := make([]float64, n)
	for i := range n {
		sums[i] = floats.Sum(m.RawRowView(i))
	}
	total := floats.Sum(sums)
	if total == 0 || math.IsInf(total, 0) || math.IsNaN(total) {
		return nil, eris.Wrapf(model.ErrDegenerate, "weighting: w3 row sums total %v", total)
	}
	floats.Scale(1/total, sums)
	return sums, nil
}
