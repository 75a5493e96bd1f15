package raster

import (
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
)

// MaskedValues returns the valid pixel values under poly. With allTouched
// every cell that intersects the polygon, its boundary included, is taken;
// otherwise only cells whose centre lies inside the polygon.
func MaskedValues(g *Grid, poly orb.Polygon, allTouched bool) []float64 {
	if len(poly) == 0 || len(poly[0]) == 0 {
		return nil
	}
	pb := poly.Bound()
	r0, r1, c0, c1, ok := g.window(pb)
	if !ok {
		return nil
	}

	var values []float64
	for r := r0; r <= r1; r++ {
		for c := c0; c <= c1; c++ {
			v := g.At(r, c)
			if g.IsNoData(v) {
				continue
			}
			var hit bool
			if allTouched {
				hit = cellTouches(poly, pb, g.CellBound(r, c))
			} else {
				hit = planar.PolygonContains(poly, g.CellCenter(r, c))
			}
			if hit {
				values = append(values, v)
			}
		}
	}
	return values
}

// CountAbove returns the number of valid pixels strictly greater than
// threshold and the total pixel count of the grid.
func CountAbove(g *Grid, threshold float64) (above, total int) {
	for _, v := range g.Data {
		if !g.IsNoData(v) && v > threshold {
			above++
		}
	}
	return above, len(g.Data)
}

func cellTouches(poly orb.Polygon, pb, cell orb.Bound) bool {
	if !pb.Intersects(cell) {
		return false
	}

	corners := [4]orb.Point{
		cell.Min,
		{cell.Max[0], cell.Min[1]},
		cell.Max,
		{cell.Min[0], cell.Max[1]},
	}
	for _, p := range corners {
		if planar.PolygonContains(poly, p) {
			return true
		}
	}

	for _, ring := range poly {
		for i, p := range ring {
			if cell.Contains(p) {
				return true
			}
			if i == 0 {
				continue
			}
			a := ring[i-1]
			for k := range corners {
				if segmentsIntersect(a, p, corners[k], corners[(k+1)%4]) {
					return true
				}
			}
		}
	}
	return false
}

// segmentsIntersect reports whether the closed segments ab and cd share a point.
func segmentsIntersect(a, b, c, d orb.Point) bool {
	d1 := orientation(c, d, a)
	d2 := orientation(c, d, b)
	d3 := orientation(a, b, c)
	d4 := orientation(a, b, d)

	if ((d1 > 0 && d2 < 0) || (d1 < 0 && d2 > 0)) &&
		((d3 > 0 && d4 < 0) || (d3 < 0 && d4 > 0)) {
		return true
	}
	switch {
	case d1 == 0 && onSegment(c, d, a):
		return true
	case d2 == 0 && onSegment(c, d, b):
		return true
	case d3 == 0 && onSegment(a, b, c):
		return true
	case d4 == 0 && onSegment(a, b, d):
		return true
	}
	return false
}

func orientation(p, q, r orb.Point) float64 {
	return (q[0]-p[0])*(r[1]-p[1]) - (q[1]-p[1])*(r[0]-p[0])
}

func onSegment(p, q, r orb.Point) bool {
	return min(p[0], q[0]) <= r[0] && r[0] <= max(p[0], q[0]) &&
		min(p[1], q[1]) <= r[1] && r[1] <= max(p[1], q[1])
}
