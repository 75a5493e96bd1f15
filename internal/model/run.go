package model

import (
	"fmt"
	"strconv"
	"time"

	"github.com/rotisserie/eris"
)

// Weighting names one of the four weight schemes.
type Weighting string

const (
	WeightingUniform    Weighting = "w0" // constant 1
	WeightingIQR        Weighting = "w1" // 1 - iqr_norm
	WeightingDispersion Weighting = "w2" // sqrt(range / std_dev)
	WeightingPairwise   Weighting = "w3" // pairwise ratio matrix
)

// AllWeightings returns the schemes in table order.
func AllWeightings() []Weighting {
	return []Weighting{WeightingUniform, WeightingIQR, WeightingDispersion, WeightingPairwise}
}

// ParseWeighting validates a weighting scheme name.
func ParseWeighting(s string) (Weighting, error) {
	for _, w := range AllWeightings() {
		if string(w) == s {
			return w, nil
		}
	}
	return "", &ConfigError{Field: "weighting", Err: eris.Errorf("unknown weighting %q", s)}
}

// RunStatus is the ledger state of one configuration.
type RunStatus string

const (
	RunStatusRunning  RunStatus = "running"
	RunStatusComplete RunStatus = "complete"
	RunStatusFailed   RunStatus = "failed"
)

// RunParams is one point of the parameter sweep.
type RunParams struct {
	Combination        string    `json:"combination"`
	Variables          []string  `json:"variables"`
	BufferSize         string    `json:"buffer_size"`
	Weighting          Weighting `json:"weighting"`
	StatisticThreshold int       `json:"statistic_threshold"`
	CorrThreshold      float64   `json:"corr_threshold"`
	StatisticType      string    `json:"statistic_threshold_type"`
	CrossValidation    bool      `json:"cross_validation"`
}

// ResultName is the unique key of the configuration. It scopes every
// intermediate and result file as well as the ledger entry.
func (p RunParams) ResultName() string {
	return fmt.Sprintf("%s_%sm_%s_%d_%s_%s_%s",
		p.Combination,
		p.BufferSize,
		p.Weighting,
		p.StatisticThreshold,
		strconv.FormatFloat(p.CorrThreshold, 'g', -1, 64),
		p.StatisticType,
		pythonBool(p.CrossValidation),
	)
}

// pythonBool spells b as True or False, the form used by the keys of
// calculated_combinations.json, so imported runs match generated names.
func pythonBool(b bool) string {
	if b {
		return "True"
	}
	return "False"
}

// RunOutcome holds the headline metrics of a finished configuration. Nil
// values mean the metric is undefined (no site above the threshold).
type RunOutcome struct {
	PercentGood *float64 `json:"percent_good_prediction"`
	Gain05      *float64 `json:"gain_0.5"`
	Gain075     *float64 `json:"gain_0.75"`
	Selected    []string `json:"rasters"`
}

// Run is a ledger row.
type Run struct {
	ID         string      `json:"id"`
	ResultName string      `json:"result_name"`
	Params     RunParams   `json:"params"`
	Status     RunStatus   `json:"status"`
	Outcome    *RunOutcome `json:"outcome,omitempty"`
	Error      string      `json:"error,omitempty"`
	CreatedAt  time.Time   `json:"created_at"`
	UpdatedAt  time.Time   `json:"updated_at"`
}
