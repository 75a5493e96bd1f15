// Package selector chooses the predictor variables of a model run by
// ranking them on one statistic and pruning highly correlated pairs.
package selector

import (
	"math"
	"slices"
	"sort"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/premo/internal/model"
	"github.com/sells-group/premo/internal/stats"
)

// Params controls one selection.
type Params struct {
	// Threshold is the target number of ranked variables.
	Threshold int
	// CorrThreshold is the absolute correlation above which a pair is pruned.
	CorrThreshold float64
	// Statistic names the ranking statistic, e.g. "iqr_norm" or "w2".
	Statistic string
	// Exempt names a distance variable that is ranked like any other
	// instead of being forced in.
	Exempt string
}

// Result is the outcome of a selection.
type Result struct {
	// Selected holds the ranked picks followed by the forced distance variables.
	Selected []string
	// Forced holds the distance variables appended regardless of count.
	Forced []string
	// Dropped holds variables removed by correlation pruning, in drop order.
	Dropped []string
	// Statistics is the input table restricted to Selected, in table order.
	Statistics stats.Table
	// Correlation is the full matrix the pruning ran on.
	Correlation *stats.CorrelationMatrix
}

// Select ranks the pool, fills the accepted set up to the threshold and
// prunes correlated pairs until the set is full or the pool is exhausted.
// A pruned variable never returns to the pool.
func Select(table stats.Table, corr *stats.CorrelationMatrix, p Params) (*Result, error) {
	if corr == nil {
		return nil, eris.New("selector: correlation matrix is required")
	}
	if p.Threshold < 0 {
		return nil, &model.ConfigError{Field: "statistic_threshold", Err: eris.Errorf("must not be negative, got %d", p.Threshold)}
	}
	for _, name := range table.Names() {
		if corr.Index(name) < 0 {
			return nil, eris.Errorf("selector: %q missing from correlation matrix", name)
		}
	}

	policy := PolicyFor(p.Statistic)
	type candidate struct {
		name  string
		value float64
	}

	var pool []candidate
	var forced []string
	for _, s := range table {
		if s.Category.Forced() && s.Variable != p.Exempt {
			zap.L().Info("distance variable added as predictor", zap.String("variable", s.Variable))
			forced = append(forced, s.Variable)
			continue
		}
		v, err := s.Value(p.Statistic)
		if err != nil {
			return nil, err
		}
		pool = append(pool, candidate{name: s.Variable, value: v})
	}
	sort.SliceStable(pool, func(i, j int) bool {
		if policy.RankDescending {
			return pool[i].value > pool[j].value
		}
		return pool[i].value < pool[j].value
	})

	values := make(map[string]float64, len(pool))
	for _, c := range pool {
		values[c.name] = c.value
	}

	var accepted, dropped []string
	for len(accepted) < p.Threshold && len(pool) > 0 {
		for len(accepted) < p.Threshold && len(pool) > 0 {
			zap.L().Info("candidate variable accepted",
				zap.String("variable", pool[0].name),
				zap.String("statistic", p.Statistic),
				zap.Float64("value", pool[0].value),
			)
			accepted = append(accepted, pool[0].name)
			pool = pool[1:]
		}
		accepted, dropped = prune(accepted, dropped, corr, values, p.CorrThreshold, policy)
	}

	selected := append(slices.Clone(accepted), forced...)
	keep := make(map[string]bool, len(selected))
	for _, n := range selected {
		keep[n] = true
	}
	restricted := make(stats.Table, 0, len(selected))
	for _, s := range table {
		if keep[s.Variable] {
			restricted = append(restricted, s)
		}
	}

	zap.L().Info("variable selection complete",
		zap.Strings("selected", selected),
		zap.Strings("dropped", dropped),
		zap.String("statistic", p.Statistic),
	)
	return &Result{
		Selected:    selected,
		Forced:      forced,
		Dropped:     dropped,
		Statistics:  restricted,
		Correlation: corr,
	}, nil
}

// prune scans the upper triangle of corr in matrix order and removes the
// less preferred variable of every accepted pair above the threshold.
// Undefined correlations never prune.
func prune(accepted, dropped []string, corr *stats.CorrelationMatrix, values map[string]float64, threshold float64, policy Policy) ([]string, []string) {
	in := func(name string) bool { return slices.Contains(accepted, name) }
	for i := 0; i < corr.Len(); i++ {
		for j := i + 1; j < corr.Len(); j++ {
			row, col := corr.Names[i], corr.Names[j]
			if !in(row) || !in(col) {
				continue
			}
			v := corr.Abs(i, j)
			if math.IsNaN(v) || v <= threshold {
				continue
			}
			loser, winner := row, col
			if policy.Prefer(values[row], values[col]) {
				loser, winner = col, row
			}
			zap.L().Info("removing correlated variable",
				zap.String("variable", loser),
				zap.String("correlated_with", winner),
				zap.Float64("correlation", v),
			)
			accepted = slices.DeleteFunc(accepted, func(n string) bool { return n == loser })
			dropped = append(dropped, loser)
		}
	}
	return accepted, dropped
}
