// Package raster holds in-memory grids, the ASCII grid file store and the
// polygon masking used to sample grids under buffers.
package raster

import (
	"math"

	"github.com/paulmach/orb"
	"github.com/rotisserie/eris"
)

// DefaultNoData is written to every grid produced by the chain.
const DefaultNoData = -9999.0

// GeoTransform is the GDAL affine transform:
// x = t[0] + col*t[1] + row*t[2], y = t[3] + col*t[4] + row*t[5].
type GeoTransform [6]float64

// NewNorthUp returns a transform without rotation for a grid whose upper
// left corner is (originX, originY).
func NewNorthUp(originX, originY, pixelW, pixelH float64) GeoTransform {
	return GeoTransform{originX, pixelW, 0, originY, 0, -pixelH}
}

// PixelWidth returns the cell size along x.
func (t GeoTransform) PixelWidth() float64 { return t[1] }

// PixelHeight returns the positive cell size along y.
func (t GeoTransform) PixelHeight() float64 { return math.Abs(t[5]) }

// Grid is a single-band raster held fully in memory. Data is row-major with
// row 0 at the top.
type Grid struct {
	Cols       int
	Rows       int
	Data       []float64
	NoData     float64
	HasNoData  bool
	Transform  GeoTransform
	Projection string
}

// NewGrid allocates a grid filled with zeros sharing the georeferencing of ref.
func NewGrid(ref *Grid) *Grid {
	return &Grid{
		Cols:       ref.Cols,
		Rows:       ref.Rows,
		Data:       make([]float64, ref.Cols*ref.Rows),
		NoData:     ref.NoData,
		HasNoData:  ref.HasNoData,
		Transform:  ref.Transform,
		Projection: ref.Projection,
	}
}

// Validate checks that the data length matches the dimensions.
func (g *Grid) Validate() error {
	if g.Cols <= 0 || g.Rows <= 0 {
		return eris.Errorf("raster: invalid dimensions %dx%d", g.Cols, g.Rows)
	}
	if len(g.Data) != g.Cols*g.Rows {
		return eris.Errorf("raster: data length %d does not match %dx%d", len(g.Data), g.Cols, g.Rows)
	}
	return nil
}

// Clone returns a deep copy.
func (g *Grid) Clone() *Grid {
	c := *g
	c.Data = make([]float64, len(g.Data))
	copy(c.Data, g.Data)
	return &c
}

// At returns the value at (row, col).
func (g *Grid) At(row, col int) float64 {
	return g.Data[row*g.Cols+col]
}

// Set stores v at (row, col).
func (g *Grid) Set(row, col int, v float64) {
	g.Data[row*g.Cols+col] = v
}

// IsNoData reports whether v marks a missing pixel. NaN is always missing.
func (g *Grid) IsNoData(v float64) bool {
	if math.IsNaN(v) {
		return true
	}
	return g.HasNoData && v == g.NoData
}

// SameShape reports whether o has the same dimensions and transform as g.
func (g *Grid) SameShape(o *Grid) bool {
	return g.Cols == o.Cols && g.Rows == o.Rows && g.Transform == o.Transform
}

// MinMax returns the smallest and largest valid values. ok is false when
// the grid holds no valid pixel.
func (g *Grid) MinMax() (lo, hi float64, ok bool) {
	lo, hi = math.Inf(1), math.Inf(-1)
	for _, v := range g.Data {
		if g.IsNoData(v) {
			continue
		}
		ok = true
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}
	return lo, hi, ok
}

// CellBound returns the map extent of the cell at (row, col). Rotated
// transforms are not supported.
func (g *Grid) CellBound(row, col int) orb.Bound {
	t := g.Transform
	x0 := t[0] + float64(col)*t[1]
	x1 := x0 + t[1]
	y0 := t[3] + float64(row)*t[5]
	y1 := y0 + t[5]
	return orb.Bound{
		Min: orb.Point{math.Min(x0, x1), math.Min(y0, y1)},
		Max: orb.Point{math.Max(x0, x1), math.Max(y0, y1)},
	}
}

// CellCenter returns the map coordinate of the centre of (row, col).
func (g *Grid) CellCenter(row, col int) orb.Point {
	t := g.Transform
	return orb.Point{
		t[0] + (float64(col)+0.5)*t[1],
		t[3] + (float64(row)+0.5)*t[5],
	}
}

// window returns the inclusive row/col range of cells that may intersect b,
// clamped to the grid. ok is false if b lies outside the grid.
func (g *Grid) window(b orb.Bound) (r0, r1, c0, c1 int, ok bool) {
	t := g.Transform
	w, h := t.PixelWidth(), t.PixelHeight()
	// Ceil-1 on the low side keeps cells whose far edge lies on the bound.
	c0 = int(math.Ceil((b.Min[0]-t[0])/w)) - 1
	c1 = int(math.Floor((b.Max[0] - t[0]) / w))
	r0 = int(math.Ceil((t[3]-b.Max[1])/h)) - 1
	r1 = int(math.Floor((t[3] - b.Min[1]) / h))
	if c1 < 0 || r1 < 0 || c0 >= g.Cols || r0 >= g.Rows {
		return 0, 0, 0, 0, false
	}
	c0 = max(c0, 0)
	r0 = max(r0, 0)
	c1 = min(c1, g.Cols-1)
	r1 = min(r1, g.Rows-1)
	return r0, r1, c0, c1, true
}
