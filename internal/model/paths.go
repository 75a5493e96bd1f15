package model

import (
	"fmt"
	"path/filepath"
)

// Paths resolves every file the chain reads or writes. All locations derive
// from explicit configuration, never from the process working directory.
type Paths struct {
	WorkingDir    string
	RasterDir     string // relative to WorkingDir unless absolute
	BufferDir     string // relative to WorkingDir unless absolute
	BufferPattern string // fmt pattern taking the buffer size, e.g. "%s_m_sites.shp"
	MaskPath      string // optional land mask for the post-processing crop
}

func (p Paths) abs(rel string) string {
	if filepath.IsAbs(rel) {
		return rel
	}
	return filepath.Join(p.WorkingDir, rel)
}

// Raster resolves a variable's raster path.
func (p Paths) Raster(v PredictorVariable) string {
	if filepath.IsAbs(v.Path) {
		return v.Path
	}
	return filepath.Join(p.abs(p.RasterDir), v.Path)
}

// Buffers returns the buffer shapefile for a buffer size.
func (p Paths) Buffers(size string) string {
	pattern := p.BufferPattern
	if pattern == "" {
		pattern = "%s_m_sites.shp"
	}
	return filepath.Join(p.abs(p.BufferDir), fmt.Sprintf(pattern, size))
}

// Mask returns the land mask path or "" when none is configured.
func (p Paths) Mask() string {
	if p.MaskPath == "" {
		return ""
	}
	return p.abs(p.MaskPath)
}

// SitesWithValues is the sampled-sites point shapefile.
func (p Paths) SitesWithValues(name string) string {
	return p.abs(filepath.Join("tmp", "sites_with_rastervalues", "sites_with_rastervalues_"+name+".shp"))
}

// Reclassified is the reclassified grid of one variable.
func (p Paths) Reclassified(variable, name string) string {
	return p.abs(filepath.Join("tmp", "reclassified", variable+"_reclassified"+name+".asc"))
}

// CorrelationMatrix is the correlation workbook.
func (p Paths) CorrelationMatrix(name string) string {
	return p.abs(filepath.Join("results", "statistics", "Correlation_matrix_"+name+".xlsx"))
}

// Weighting is the statistics and weights workbook.
func (p Paths) Weighting(name string) string {
	return p.abs(filepath.Join("results", "statistics", "weighting"+name+".xlsx"))
}

// Suitability is the raw combined suitability grid.
func (p Paths) Suitability(name string) string {
	return p.abs(filepath.Join("results", "suitability_result"+name+".asc"))
}

// SuitabilityResampled is the resampled intermediate grid.
func (p Paths) SuitabilityResampled(name string) string {
	return p.abs(filepath.Join("results", "suitability_result"+name+"_resampled.asc"))
}

// SuitabilityCut is the final, resampled and masked suitability grid.
func (p Paths) SuitabilityCut(name string) string {
	return p.abs(filepath.Join("results", "suitability_result"+name+"_resampled_cut.asc"))
}

// Gain is the gain table workbook.
func (p Paths) Gain(name string) string {
	return p.abs(filepath.Join("results", "gain"+name+".xlsx"))
}

// ValidationSites is the point shapefile of validated site values.
func (p Paths) ValidationSites(name string) string {
	return p.abs(filepath.Join("results", "suitability_shapefiles", name+".shp"))
}

// Info is the plain text model report.
func (p Paths) Info(name string) string {
	return p.abs(filepath.Join("results", "info_and_validation_"+name+".txt"))
}

// Results is the cumulative results workbook shared by all configurations.
func (p Paths) Results() string {
	return p.abs(filepath.Join("results", "results.xlsx"))
}
