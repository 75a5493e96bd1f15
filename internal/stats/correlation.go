package stats

import (
	"math"

	"github.com/rotisserie/eris"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/sells-group/premo/internal/model"
)

// CorrelationMatrix is the symmetric Pearson correlation of sampled
// variables. Pairs involving a zero-variance sample are NaN.
type CorrelationMatrix struct {
	Names []string
	m     *mat.SymDense
}

// Correlate computes pairwise Pearson correlation across the samples, which
// must all cover the same sites.
func Correlate(samples []model.SampleSet) (*CorrelationMatrix, error) {
	n := len(samples)
	if n == 0 {
		return nil, eris.New("stats: no samples to correlate")
	}
	size := samples[0].Len()
	names := make([]string, n)
	for i, s := range samples {
		if s.Len() != size {
			return nil, eris.Errorf("stats: sample %q has %d values, want %d", s.Variable, s.Len(), size)
		}
		names[i] = s.Variable
	}

	m := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			m.SetSym(i, j, stat.Correlation(samples[i].Values, samples[j].Values, nil))
		}
	}
	return &CorrelationMatrix{Names: names, m: m}, nil
}

// Len returns the number of variables.
func (c *CorrelationMatrix) Len() int { return len(c.Names) }

// At returns the signed correlation of variables i and j.
func (c *CorrelationMatrix) At(i, j int) float64 { return c.m.At(i, j) }

// Abs returns |corr(i, j)|, NaN when undefined.
func (c *CorrelationMatrix) Abs(i, j int) float64 { return math.Abs(c.m.At(i, j)) }

// Index returns the position of a variable, or -1.
func (c *CorrelationMatrix) Index(name string) int {
	for i, n := range c.Names {
		if n == name {
			return i
		}
	}
	return -1
}

// Between returns |corr(a, b)| by variable name.
func (c *CorrelationMatrix) Between(a, b string) (float64, bool) {
	i, j := c.Index(a), c.Index(b)
	if i < 0 || j < 0 {
		return math.NaN(), false
	}
	return c.Abs(i, j), true
}
