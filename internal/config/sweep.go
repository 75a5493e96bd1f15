package config

import (
	"os"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

// Combination names a set of predictor variables.
type Combination struct {
	Name      string   `yaml:"name"`
	Variables []string `yaml:"variables"`
}

// Sweep is the parameter grid of a batch run. Every list is expanded in the
// order given; the cross product is the set of configurations.
type Sweep struct {
	Combinations        []Combination `yaml:"combinations"`
	BufferSizes         []string      `yaml:"buffer_sizes"`
	Weightings          []string      `yaml:"weightings"`
	StatisticThresholds []int         `yaml:"statistic_thresholds"`
	CorrThresholds      []float64     `yaml:"corr_thresholds"`
	StatisticTypes      []string      `yaml:"statistic_types"`
	CrossValidation     bool          `yaml:"cross_validation"`
}

// LoadSweep reads a sweep definition from a YAML file.
func LoadSweep(path string) (*Sweep, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "config: read sweep %s", path)
	}
	return ParseSweep(data)
}

// ParseSweep decodes a sweep definition and checks that no dimension is empty.
func ParseSweep(data []byte) (*Sweep, error) {
	var wrapper struct {
		Sweep Sweep `yaml:"sweep"`
	}
	if err := yaml.Unmarshal(data, &wrapper); err != nil {
		return nil, eris.Wrap(err, "config: parse sweep")
	}
	s := &wrapper.Sweep

	switch {
	case len(s.Combinations) == 0:
		return nil, eris.New("config: sweep has no combinations")
	case len(s.BufferSizes) == 0:
		return nil, eris.New("config: sweep has no buffer_sizes")
	case len(s.Weightings) == 0:
		return nil, eris.New("config: sweep has no weightings")
	case len(s.StatisticThresholds) == 0:
		return nil, eris.New("config: sweep has no statistic_thresholds")
	case len(s.CorrThresholds) == 0:
		return nil, eris.New("config: sweep has no corr_thresholds")
	case len(s.StatisticTypes) == 0:
		return nil, eris.New("config: sweep has no statistic_types")
	}
	for _, c := range s.Combinations {
		if c.Name == "" || len(c.Variables) == 0 {
			return nil, eris.Errorf("config: sweep combination %q needs a name and variables", c.Name)
		}
	}
	return s, nil
}
