package raster

import (
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
	"github.com/rotisserie/eris"
)

// Resample returns g on a square cellSize grid anchored at the same upper
// left corner, taking the nearest source cell for every output cell.
func Resample(g *Grid, cellSize float64) (*Grid, error) {
	if cellSize <= 0 || math.IsNaN(cellSize) {
		return nil, eris.Errorf("raster: invalid cell size %v", cellSize)
	}
	t := g.Transform
	if t[2] != 0 || t[4] != 0 {
		return nil, eris.New("raster: resampling rotated grids is not supported")
	}
	w, h := t.PixelWidth(), t.PixelHeight()
	if w == cellSize && h == cellSize {
		return g.Clone(), nil
	}

	out := &Grid{
		Cols:       max(int(math.Ceil(float64(g.Cols)*w/cellSize)), 1),
		Rows:       max(int(math.Ceil(float64(g.Rows)*h/cellSize)), 1),
		NoData:     g.NoData,
		HasNoData:  g.HasNoData,
		Transform:  NewNorthUp(t[0], t[3], cellSize, cellSize),
		Projection: g.Projection,
	}
	if !out.HasNoData {
		out.NoData, out.HasNoData = DefaultNoData, true
	}
	out.Data = make([]float64, out.Cols*out.Rows)
	for r := 0; r < out.Rows; r++ {
		for c := 0; c < out.Cols; c++ {
			p := out.CellCenter(r, c)
			sc := int(math.Floor((p[0] - t[0]) / w))
			sr := int(math.Floor((t[3] - p[1]) / h))
			if sc < 0 || sr < 0 || sc >= g.Cols || sr >= g.Rows {
				out.Set(r, c, out.NoData)
				continue
			}
			v := g.At(sr, sc)
			if g.IsNoData(v) {
				v = out.NoData
			}
			out.Set(r, c, v)
		}
	}
	return out, nil
}

// Cutline crops g to the cells overlapping the bound of polys and sets
// every cell whose centre lies outside all polygons to nodata.
func Cutline(g *Grid, polys []orb.Polygon, nodata float64) (*Grid, error) {
	if len(polys) == 0 {
		return nil, eris.New("raster: cutline has no polygons")
	}
	b := polys[0].Bound()
	for _, p := range polys[1:] {
		b = b.Union(p.Bound())
	}
	t := g.Transform
	w, h := t.PixelWidth(), t.PixelHeight()
	c0 := max(int(math.Floor((b.Min[0]-t[0])/w)), 0)
	c1 := min(int(math.Ceil((b.Max[0]-t[0])/w))-1, g.Cols-1)
	r0 := max(int(math.Floor((t[3]-b.Max[1])/h)), 0)
	r1 := min(int(math.Ceil((t[3]-b.Min[1])/h))-1, g.Rows-1)
	if c0 > c1 || r0 > r1 {
		return nil, eris.New("raster: cutline does not overlap grid")
	}

	out := &Grid{
		Cols:       c1 - c0 + 1,
		Rows:       r1 - r0 + 1,
		NoData:     nodata,
		HasNoData:  true,
		Transform:  NewNorthUp(t[0]+float64(c0)*t[1], t[3]+float64(r0)*t[5], w, h),
		Projection: g.Projection,
	}
	out.Data = make([]float64, out.Cols*out.Rows)
	for r := 0; r < out.Rows; r++ {
		for c := 0; c < out.Cols; c++ {
			v := g.At(r0+r, c0+c)
			if g.IsNoData(v) || !insideAny(polys, out.CellCenter(r, c)) {
				v = nodata
			}
			out.Set(r, c, v)
		}
	}
	return out, nil
}

func insideAny(polys []orb.Polygon, p orb.Point) bool {
	for _, poly := range polys {
		if planar.PolygonContains(poly, p) {
			return true
		}
	}
	return false
}
