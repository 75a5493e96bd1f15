package model

import (
	"github.com/twpayne/go-geom"
)

// Coord is a planar map coordinate in the CRS of the buffer dataset.
type Coord struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Buffer is a polygon drawn around a known site.
type Buffer struct {
	Index    int           `json:"index"`
	Polygon  *geom.Polygon `json:"-"`
	Centroid Coord         `json:"centroid"`
}

// BufferSet is the buffer dataset together with its coordinate reference
// system (WKT, possibly empty).
type BufferSet struct {
	Buffers []Buffer
	CRS     string
}

// Subset returns the buffers at the given positions, keeping the CRS.
func (s BufferSet) Subset(idx []int) BufferSet {
	out := BufferSet{CRS: s.CRS, Buffers: make([]Buffer, 0, len(idx))}
	for _, i := range idx {
		out.Buffers = append(out.Buffers, s.Buffers[i])
	}
	return out
}

// SampleSet holds one aggregate value per buffer for a single variable.
// Values[i] was sampled under the buffer centred at Sites[i].
type SampleSet struct {
	Variable string    `json:"variable"`
	Values   []float64 `json:"values"`
	Sites    []Coord   `json:"sites"`
}

// Len returns the number of sampled buffers.
func (s SampleSet) Len() int {
	return len(s.Values)
}

// SitePoint is a site location with numeric attributes, written as a point
// feature.
type SitePoint struct {
	Coord
	Attrs map[string]float64
}
