package selector

import (
	"github.com/sells-group/premo/internal/stats"
)

// Policy is the per-statistic ranking and pruning behaviour.
type Policy struct {
	// RankDescending sorts the candidate pool largest first.
	RankDescending bool
	// Prefer reports whether a variable with statistic a is kept over one
	// with statistic b when the two are too highly correlated.
	Prefer func(a, b float64) bool
}

func lower(a, b float64) bool  { return a < b }
func higher(a, b float64) bool { return a > b }

// PolicyFor returns the policy for a ranking statistic. w2 ranks largest
// first, every other statistic smallest first. Pruning keeps the smaller
// iqr_norm and the larger value of any other statistic.
func PolicyFor(statistic string) Policy {
	p := Policy{Prefer: higher}
	if statistic == stats.StatW2 {
		p.RankDescending = true
	}
	if statistic == stats.StatIQRNorm {
		p.Prefer = lower
	}
	return p
}
