// Package validate scores a suitability raster against known sites.
package validate

import (
	"math"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/premo/internal/model"
	"github.com/sells-group/premo/internal/raster"
	"github.com/sells-group/premo/internal/sampler"
	"github.com/sells-group/premo/internal/vector"
)

// SuitabilityColumn is the attribute written for each validated site.
const SuitabilityColumn = "suitability_value"

// SiteValue is the suitability sampled around one site.
type SiteValue struct {
	model.Coord
	Value float64 `json:"value"`
}

// SampleSites averages g over a circle of radius around every buffer
// centroid, all touched pixels included.
func SampleSites(g *raster.Grid, buffers []model.Buffer, radius float64) ([]SiteValue, error) {
	out := make([]SiteValue, 0, len(buffers))
	for _, b := range buffers {
		v, err := sampler.Mean(g, vector.Circle(b.Centroid, radius, vector.DefaultQuadSegs))
		if err != nil {
			return nil, &model.InputError{Variable: "suitability", Buffer: b.Index, Err: err}
		}
		out = append(out, SiteValue{Coord: b.Centroid, Value: v})
	}
	return out, nil
}

// Values returns the sampled values in site order.
func Values(sites []SiteValue) []float64 {
	out := make([]float64, len(sites))
	for i, s := range sites {
		out[i] = s.Value
	}
	return out
}

// PercentGood returns the share of values above threshold in percent,
// rounded to 2 decimals, or nil when none is above.
func PercentGood(values []float64, threshold float64) *float64 {
	count := 0
	for _, v := range values {
		if v > threshold {
			count++
		}
	}
	if count == 0 {
		return nil
	}
	p := math.Round(float64(count)/float64(len(values))*100*100) / 100
	return &p
}

// Options configures a Validator.
type Options struct {
	Radius float64
	// GoodThreshold is used as given; 0 counts every positive site as good.
	GoodThreshold float64
	Thresholds    []float64
}

// DefaultOptions returns the validation radius, good-prediction threshold
// and gain thresholds of a standard run.
func DefaultOptions() Options {
	return Options{Radius: 5, GoodThreshold: 0.5, Thresholds: DefaultGainThresholds()}
}

// Validator samples the final suitability raster of a run.
type Validator struct {
	store raster.Store
	paths model.Paths
	opts  Options
}

// New creates a Validator. A non-positive radius or an empty threshold list
// takes the default; the good-prediction threshold is kept as given.
func New(store raster.Store, paths model.Paths, opts Options) *Validator {
	def := DefaultOptions()
	if opts.Radius <= 0 {
		opts.Radius = def.Radius
	}
	if len(opts.Thresholds) == 0 {
		opts.Thresholds = def.Thresholds
	}
	return &Validator{store: store, paths: paths, opts: opts}
}

// Thresholds returns the gain threshold list in use.
func (v *Validator) Thresholds() []float64 {
	return v.opts.Thresholds
}

// GoodThreshold returns the suitability above which a site counts as well
// predicted.
func (v *Validator) GoodThreshold() float64 {
	return v.opts.GoodThreshold
}

func (v *Validator) read(resultName string) (*raster.Grid, error) {
	g, err := v.store.Read(v.paths.SuitabilityCut(resultName))
	if err != nil {
		return nil, model.NewInputError("suitability", err)
	}
	return g, nil
}

// Sites samples the run's final raster around every buffer.
func (v *Validator) Sites(resultName string, buffers []model.Buffer) ([]SiteValue, error) {
	g, err := v.read(resultName)
	if err != nil {
		return nil, err
	}
	return SampleSites(g, buffers, v.opts.Radius)
}

// Gain samples every buffer and builds the run's gain table.
func (v *Validator) Gain(resultName string, buffers []model.Buffer) (GainTable, error) {
	g, err := v.read(resultName)
	if err != nil {
		return nil, err
	}
	sites, err := SampleSites(g, buffers, v.opts.Radius)
	if err != nil {
		return nil, err
	}
	table, err := ComputeGain(g, Values(sites), v.opts.Thresholds)
	if err != nil {
		return nil, err
	}
	zap.L().Info("validate: gain table computed",
		zap.String("result_name", resultName),
		zap.Int("sites", len(sites)),
	)
	return table, nil
}

// WriteSites writes sampled sites as the run's validation point shapefile.
func (v *Validator) WriteSites(resultName, crs string, sites []SiteValue) error {
	points := make([]model.SitePoint, len(sites))
	for i, s := range sites {
		points[i] = model.SitePoint{Coord: s.Coord, Attrs: map[string]float64{SuitabilityColumn: s.Value}}
	}
	if err := vector.WritePoints(v.paths.ValidationSites(resultName), crs, points, []string{SuitabilityColumn}); err != nil {
		return eris.Wrap(err, "validate: write sites")
	}
	return nil
}
