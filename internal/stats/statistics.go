// Package stats derives boxplot statistics, dispersion weights and the
// correlation matrix from sampled predictor values.
package stats

import (
	"math"

	"github.com/montanaflynn/stats"
	"github.com/rotisserie/eris"

	"github.com/sells-group/premo/internal/model"
)

// Statistic names as they appear in exported tables and in the
// statistic_threshold_type parameter.
const (
	StatMax        = "max"
	StatMin        = "min"
	StatMedian     = "median"
	StatMedianNorm = "median_norm"
	StatQ75        = "upper_quartile75"
	StatQ25        = "lower_quartile25"
	StatP875       = "upper_percentile87.5"
	StatP125       = "lower_percentile12.5"
	StatIQR        = "iqr"
	StatStdDev     = "std_dev"
	StatStdDevNorm = "std_dev_norm"
	StatRange      = "range"
	StatIQRNorm    = "iqr_norm"
	StatP875Norm   = "upper_percentile87.5_norm"
	StatP125Norm   = "lower_percentile12.5_norm"
	StatW2         = "w2"
	StatW2Modified = "w2_modified"
)

// StatisticNames lists every statistic in table order.
func StatisticNames() []string {
	return []string{
		StatMax, StatMin, StatMedian, StatMedianNorm, StatQ75, StatQ25, StatP875, StatP125,
		StatIQR, StatStdDev, StatStdDevNorm, StatRange, StatIQRNorm, StatP875Norm, StatP125Norm,
		StatW2, StatW2Modified,
	}
}

// VariableStatistics is the immutable statistics record of one variable.
type VariableStatistics struct {
	Variable   string         `json:"variable"`
	Category   model.Category `json:"category"`
	Min        float64        `json:"min"`
	Max        float64        `json:"max"`
	Median     float64        `json:"median"`
	Q75        float64        `json:"upper_quartile75"`
	Q25        float64        `json:"lower_quartile25"`
	P875       float64        `json:"upper_percentile87.5"`
	P125       float64        `json:"lower_percentile12.5"`
	IQR        float64        `json:"iqr"`
	StdDev     float64        `json:"std_dev"`
	Range      float64        `json:"range"`
	MedianNorm float64        `json:"median_norm"`
	Q75Norm    float64        `json:"upper_quartile75_norm"`
	Q25Norm    float64        `json:"lower_quartile25_norm"`
	P875Norm   float64        `json:"upper_percentile87.5_norm"`
	P125Norm   float64        `json:"lower_percentile12.5_norm"`
	IQRNorm    float64        `json:"iqr_norm"`
	StdDevNorm float64        `json:"std_dev_norm"`
	W2         float64        `json:"w2"`
	W2Modified float64        `json:"w2_modified"`
}

// Value returns a statistic by its table name.
func (s VariableStatistics) Value(name string) (float64, error) {
	switch name {
	case StatMax:
		return s.Max, nil
	case StatMin:
		return s.Min, nil
	case StatMedian:
		return s.Median, nil
	case StatMedianNorm:
		return s.MedianNorm, nil
	case StatQ75:
		return s.Q75, nil
	case StatQ25:
		return s.Q25, nil
	case StatP875:
		return s.P875, nil
	case StatP125:
		return s.P125, nil
	case StatIQR:
		return s.IQR, nil
	case StatStdDev:
		return s.StdDev, nil
	case StatStdDevNorm:
		return s.StdDevNorm, nil
	case StatRange:
		return s.Range, nil
	case StatIQRNorm:
		return s.IQRNorm, nil
	case StatP875Norm:
		return s.P875Norm, nil
	case StatP125Norm:
		return s.P125Norm, nil
	case StatW2:
		return s.W2, nil
	case StatW2Modified:
		return s.W2Modified, nil
	default:
		return 0, &model.ConfigError{Field: "statistic_threshold_type", Err: eris.Errorf("unknown statistic %q", name)}
	}
}

// Compute derives the statistics of one sample. rasterMin and rasterMax are
// the valid value range of the variable's full raster and only feed
// W2Modified. Constant samples and samples shorter than two are degenerate.
func Compute(sample model.SampleSet, category model.Category, rasterMin, rasterMax float64) (VariableStatistics, error) {
	values := sample.Values
	if len(values) < 2 {
		return VariableStatistics{}, &model.InputError{
			Variable: sample.Variable, Buffer: -1,
			Err: eris.Wrapf(model.ErrDegenerate, "need at least 2 samples, got %d", len(values)),
		}
	}

	norm, ok := Normalize(values)
	if !ok {
		return VariableStatistics{}, model.NewInputError(sample.Variable, eris.Wrap(model.ErrDegenerate, "constant sample"))
	}

	lo, err := stats.Min(values)
	if err != nil {
		return VariableStatistics{}, eris.Wrap(err, "stats: min")
	}
	hi, err := stats.Max(values)
	if err != nil {
		return VariableStatistics{}, eris.Wrap(err, "stats: max")
	}
	median, err := stats.Median(values)
	if err != nil {
		return VariableStatistics{}, eris.Wrap(err, "stats: median")
	}
	stdDev, err := stats.StandardDeviationSample(values)
	if err != nil {
		return VariableStatistics{}, eris.Wrap(err, "stats: std dev")
	}

	medianNorm, err := stats.Median(norm)
	if err != nil {
		return VariableStatistics{}, eris.Wrap(err, "stats: median norm")
	}
	stdDevNorm, err := stats.StandardDeviationSample(norm)
	if err != nil {
		return VariableStatistics{}, eris.Wrap(err, "stats: std dev norm")
	}

	s := VariableStatistics{
		Variable:   sample.Variable,
		Category:   category,
		Min:        lo,
		Max:        hi,
		Median:     median,
		Q75:        Percentile(values, 75),
		Q25:        Percentile(values, 25),
		P875:       Percentile(values, 87.5),
		P125:       Percentile(values, 12.5),
		StdDev:     stdDev,
		Range:      hi - lo,
		MedianNorm: medianNorm,
		Q75Norm:    Percentile(norm, 75),
		Q25Norm:    Percentile(norm, 25),
		P875Norm:   Percentile(norm, 87.5),
		P125Norm:   Percentile(norm, 12.5),
		StdDevNorm: stdDevNorm,
	}
	s.IQR = s.Q75 - s.Q25
	s.IQRNorm = s.Q75Norm - s.Q25Norm
	s.W2 = DispersionWeight(s.StdDev, s.Range)
	s.W2Modified = DispersionWeight(s.StdDev, rasterMax-rasterMin)
	return s, nil
}

// DispersionWeight is sqrt(1 / (stdDev / span)).
func DispersionWeight(stdDev, span float64) float64 {
	return math.Sqrt(1 / (stdDev / span))
}
