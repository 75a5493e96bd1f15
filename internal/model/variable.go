package model

import (
	"strings"

	"github.com/rotisserie/eris"
)

// Category is the semantic class of a predictor variable. It decides the
// reclassification rule and whether the Selector forces the variable in.
type Category string

const (
	CategoryTopography Category = "topography"
	// CategoryDistance is a cost-distance raster; always selected.
	CategoryDistance Category = "distance"
	// CategoryEnvironment is a distance-like raster that competes in the
	// ranking like a topographic one.
	CategoryEnvironment Category = "environment"
)

// AllCategories returns all defined variable categories.
func AllCategories() []Category {
	return []Category{CategoryTopography, CategoryDistance, CategoryEnvironment}
}

// Forced reports whether the Selector adds the variable without ranking.
func (c Category) Forced() bool {
	return c == CategoryDistance
}

// Inverted reports whether smaller values are more suitable, so the
// variable is reclassified with the closer-is-better rule.
func (c Category) Inverted() bool {
	return c == CategoryDistance || c == CategoryEnvironment
}

// ParseCategory validates a configured category string.
func ParseCategory(s string) (Category, error) {
	switch Category(strings.ToLower(strings.TrimSpace(s))) {
	case CategoryTopography:
		return CategoryTopography, nil
	case CategoryDistance:
		return CategoryDistance, nil
	case CategoryEnvironment:
		return CategoryEnvironment, nil
	default:
		return "", eris.Errorf("model: unknown variable category %q", s)
	}
}

// LegacyCategory maps the historical name prefixes to a category: "c_" is
// cost-distance, "e_" environment. Only config loading may call this.
func LegacyCategory(name string) Category {
	switch {
	case strings.HasPrefix(name, "c_"):
		return CategoryDistance
	case strings.HasPrefix(name, "e_"):
		return CategoryEnvironment
	default:
		return CategoryTopography
	}
}

// PredictorVariable is one named raster that feeds the model.
type PredictorVariable struct {
	Name     string   `json:"name" yaml:"name" mapstructure:"name"`
	Path     string   `json:"path" yaml:"path" mapstructure:"path"`
	Category Category `json:"category" yaml:"category" mapstructure:"category"`
}

// IsDistance reports whether the variable uses the closer-is-better rule.
func (v PredictorVariable) IsDistance() bool {
	return v.Category.Inverted()
}

// VariableSet is an ordered collection of predictor variables.
type VariableSet []PredictorVariable

// Names returns the variable names in order.
func (s VariableSet) Names() []string {
	names := make([]string, len(s))
	for i, v := range s {
		names[i] = v.Name
	}
	return names
}

// Lookup returns the variable with the given name.
func (s VariableSet) Lookup(name string) (PredictorVariable, bool) {
	for _, v := range s {
		if v.Name == name {
			return v, true
		}
	}
	return PredictorVariable{}, false
}

// Filter returns the subset of s named in names, keeping the order of s.
// Names that are not part of s yield a ConfigError.
func (s VariableSet) Filter(names []string) (VariableSet, error) {
	want := make(map[string]bool, len(names))
	for _, n := range names {
		if _, ok := s.Lookup(n); !ok {
			return nil, &ConfigError{Field: "variables", Err: eris.Errorf("variable %q is not configured", n)}
		}
		want[n] = true
	}
	out := make(VariableSet, 0, len(names))
	for _, v := range s {
		if want[v.Name] {
			out = append(out, v)
		}
	}
	return out, nil
}
