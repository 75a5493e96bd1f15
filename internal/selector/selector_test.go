package selector

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/sells-group/premo/internal/model"
	"github.com/sells-group/premo/internal/stats"
)

// corr(A,B) ~ 0.996, corr(A,D) = -0.3, corr(B,D) ~ -0.27, E is constant.
func testMatrix(t *testing.T, names ...string) *stats.CorrelationMatrix {
	t.Helper()
	values := map[string][]float64{
		"A":          {1, 2, 3, 4, 5},
		"B":          {2, 4, 6, 8, 11},
		"D":          {5, 1, 4, 2, 3},
		"E":          {7, 7, 7, 7, 7},
		"c_river":    {9, 1, 6, 3, 2},
		"c_slop+asp": {1, 5, 2, 4, 3},
		"e_wetland":  {2, 9, 1, 7, 4},
	}
	samples := make([]model.SampleSet, 0, len(names))
	for _, n := range names {
		samples = append(samples, model.SampleSet{Variable: n, Values: values[n]})
	}
	m, err := stats.Correlate(samples)
	require.NoError(t, err)
	return m
}

func entry(name string, cat model.Category, iqrNorm, w2 float64) stats.VariableStatistics {
	return stats.VariableStatistics{Variable: name, Category: cat, IQRNorm: iqrNorm, W2: w2}
}

func topo(name string, iqrNorm, w2 float64) stats.VariableStatistics {
	return entry(name, model.CategoryTopography, iqrNorm, w2)
}

func TestPolicyFor(t *testing.T) {
	iqr := PolicyFor(stats.StatIQRNorm)
	assert.False(t, iqr.RankDescending)
	assert.True(t, iqr.Prefer(0.1, 0.2))
	assert.False(t, iqr.Prefer(0.2, 0.1))

	w2 := PolicyFor(stats.StatW2)
	assert.True(t, w2.RankDescending)
	assert.True(t, w2.Prefer(3, 1))

	other := PolicyFor(stats.StatStdDevNorm)
	assert.False(t, other.RankDescending)
	assert.True(t, other.Prefer(3, 1))

	// Ties never prefer the first argument.
	assert.False(t, iqr.Prefer(1, 1))
	assert.False(t, w2.Prefer(1, 1))
}

func TestSelect_IQRNormPrunesAndBackfills(t *testing.T) {
	table := stats.Table{topo("A", 0.2, 0), topo("B", 0.1, 0), topo("D", 0.3, 0)}
	res, err := Select(table, testMatrix(t, "A", "B", "D"), Params{
		Threshold: 2, CorrThreshold: 0.9, Statistic: stats.StatIQRNorm,
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"B", "D"}, res.Selected)
	assert.Equal(t, []string{"A"}, res.Dropped)
	assert.Empty(t, res.Forced)
	assert.Equal(t, []string{"B", "D"}, res.Statistics.Names())
	assert.Equal(t, 3, res.Correlation.Len())
}

func TestSelect_LogsDecisionsAtInfo(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	restore := zap.ReplaceGlobals(zap.New(core))
	defer restore()

	table := stats.Table{topo("A", 0.2, 0), topo("B", 0.1, 0), topo("D", 0.3, 0)}
	_, err := Select(table, testMatrix(t, "A", "B", "D"), Params{
		Threshold: 2, CorrThreshold: 0.9, Statistic: stats.StatIQRNorm,
	})
	require.NoError(t, err)

	var accepted []string
	for _, e := range logs.FilterMessage("candidate variable accepted").All() {
		accepted = append(accepted, e.ContextMap()["variable"].(string))
	}
	assert.Equal(t, []string{"B", "A", "D"}, accepted)

	removed := logs.FilterMessage("removing correlated variable").All()
	require.Len(t, removed, 1)
	assert.Equal(t, zapcore.InfoLevel, removed[0].Level)
	assert.Equal(t, "A", removed[0].ContextMap()["variable"])
	assert.Equal(t, "B", removed[0].ContextMap()["correlated_with"])
}

func TestSelect_W2RanksDescendingAndKeepsHigher(t *testing.T) {
	table := stats.Table{topo("A", 0, 3), topo("B", 0, 1), topo("D", 0, 2)}
	m := testMatrix(t, "A", "B", "D")

	res, err := Select(table, m, Params{Threshold: 2, CorrThreshold: 0.9, Statistic: stats.StatW2})
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "D"}, res.Selected)
	assert.Empty(t, res.Dropped)

	res, err = Select(table, m, Params{Threshold: 3, CorrThreshold: 0.9, Statistic: stats.StatW2})
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "D"}, res.Selected)
	assert.Equal(t, []string{"B"}, res.Dropped)
}

func TestSelect_DroppedVariablesDoNotReturn(t *testing.T) {
	// B is dropped against A; with a large threshold the loop ends on an
	// empty pool instead of readmitting B.
	table := stats.Table{topo("A", 0.1, 0), topo("B", 0.2, 0)}
	res, err := Select(table, testMatrix(t, "A", "B"), Params{
		Threshold: 5, CorrThreshold: 0.5, Statistic: stats.StatIQRNorm,
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"A"}, res.Selected)
	assert.Equal(t, []string{"B"}, res.Dropped)
}

func TestSelect_ForcedDistanceVariables(t *testing.T) {
	table := stats.Table{
		topo("A", 0.2, 0),
		entry("c_river", model.CategoryDistance, 0.9, 0),
		entry("c_slop+asp", model.CategoryDistance, 0.1, 0),
		topo("D", 0.3, 0),
	}
	res, err := Select(table, testMatrix(t, "A", "c_river", "c_slop+asp", "D"), Params{
		Threshold: 1, CorrThreshold: 1, Statistic: stats.StatIQRNorm, Exempt: "c_slop+asp",
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"c_slop+asp", "c_river"}, res.Selected)
	assert.Equal(t, []string{"c_river"}, res.Forced)
	assert.Equal(t, []string{"c_river", "c_slop+asp"}, res.Statistics.Names())
}

func TestSelect_EnvironmentVariablesAreRanked(t *testing.T) {
	table := stats.Table{
		topo("A", 0.2, 0),
		entry("e_wetland", model.CategoryEnvironment, 0.4, 0),
		topo("D", 0.3, 0),
	}
	res, err := Select(table, testMatrix(t, "A", "e_wetland", "D"), Params{
		Threshold: 1, CorrThreshold: 1, Statistic: stats.StatIQRNorm,
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"A"}, res.Selected)
	assert.Empty(t, res.Forced)
}

func TestSelect_UndefinedCorrelationNeverPrunes(t *testing.T) {
	table := stats.Table{topo("A", 0.1, 0), topo("E", 0.2, 0)}
	res, err := Select(table, testMatrix(t, "A", "E"), Params{
		Threshold: 2, CorrThreshold: 0, Statistic: stats.StatIQRNorm,
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "E"}, res.Selected)
	assert.Empty(t, res.Dropped)
}

func TestSelect_ThresholdAbovePoolAcceptsAll(t *testing.T) {
	table := stats.Table{topo("A", 0.2, 0), topo("D", 0.3, 0), entry("c_river", model.CategoryDistance, 0.5, 0)}
	res, err := Select(table, testMatrix(t, "A", "D", "c_river"), Params{
		Threshold: 100, CorrThreshold: 1, Statistic: stats.StatIQRNorm,
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "D", "c_river"}, res.Selected)

	seen := map[string]bool{}
	for _, n := range res.Selected {
		assert.False(t, seen[n], "duplicate %s", n)
		seen[n] = true
	}
}

func TestSelect_NeverExceedsThresholdPlusForced(t *testing.T) {
	table := stats.Table{topo("A", 0.2, 0), topo("B", 0.1, 0), topo("D", 0.3, 0), entry("c_river", model.CategoryDistance, 0, 0)}
	m := testMatrix(t, "A", "B", "D", "c_river")
	for threshold := 0; threshold <= 4; threshold++ {
		res, err := Select(table, m, Params{Threshold: threshold, CorrThreshold: 1, Statistic: stats.StatIQRNorm})
		require.NoError(t, err)
		assert.LessOrEqual(t, len(res.Selected)-len(res.Forced), threshold)
		assert.Contains(t, res.Selected, "c_river")
	}
}

func TestSelect_Errors(t *testing.T) {
	table := stats.Table{topo("A", 0.2, 0)}

	_, err := Select(table, nil, Params{Threshold: 1, Statistic: stats.StatIQRNorm})
	assert.Error(t, err)

	_, err = Select(table, testMatrix(t, "A"), Params{Threshold: -1, Statistic: stats.StatIQRNorm})
	require.Error(t, err)
	assert.True(t, model.IsConfigError(err))

	_, err = Select(table, testMatrix(t, "A"), Params{Threshold: 1, Statistic: "kurtosis"})
	require.Error(t, err)
	assert.True(t, model.IsConfigError(err))

	_, err = Select(table, testMatrix(t, "D"), Params{Threshold: 1, Statistic: stats.StatIQRNorm})
	assert.Error(t, err)
}
