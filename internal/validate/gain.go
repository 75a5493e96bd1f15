package validate

import (
	"github.com/rotisserie/eris"

	"github.com/sells-group/premo/internal/raster"
)

// DefaultGainThresholds is the suitability threshold list of the gain
// table, kept in its historical order.
func DefaultGainThresholds() []float64 {
	return []float64{0.0, 0.1, 0.2, 0.3, 0.4, 0.5, 0.6, 0.7, 0.75, 0.8, 0.9}
}

// GainRow compares site coverage with area coverage above one threshold.
type GainRow struct {
	Threshold    float64  `json:"threshold"`
	PercentSites float64  `json:"percent_sites"`
	PercentArea  float64  `json:"percent_area"`
	Gain         *float64 `json:"gain"` // nil when no site exceeds the threshold
}

// GainTable holds one row per threshold in threshold-list order.
type GainTable []GainRow

// At returns the gain of the first row with the given threshold.
func (t GainTable) At(threshold float64) *float64 {
	for _, r := range t {
		if r.Threshold == threshold {
			return r.Gain
		}
	}
	return nil
}

// ComputeGain builds the gain table of a suitability grid for the sampled
// site values. Area is the share of all grid pixels, no-data included, above
// each threshold.
func ComputeGain(g *raster.Grid, siteValues []float64, thresholds []float64) (GainTable, error) {
	if len(siteValues) == 0 {
		return nil, eris.New("validate: gain needs at least one site")
	}
	table := make(GainTable, 0, len(thresholds))
	for _, th := range thresholds {
		sites := 0
		for _, v := range siteValues {
			if v > th {
				sites++
			}
		}
		above, total := raster.CountAbove(g, th)
		row := GainRow{
			Threshold:    th,
			PercentSites: float64(sites) / float64(len(siteValues)) * 100,
			PercentArea:  float64(above) / float64(total) * 100,
		}
		if row.PercentSites > 0 {
			gain := 1 - row.PercentArea/row.PercentSites
			row.Gain = &gain
		}
		table = append(table, row)
	}
	return table, nil
}
