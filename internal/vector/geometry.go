package vector

import (
	"math"

	"github.com/paulmach/orb"
	"github.com/twpayne/go-geom"

	"github.com/sells-group/premo/internal/model"
)

// DefaultQuadSegs is the number of segments per quarter circle.
const DefaultQuadSegs = 16

// Circle approximates a disc of the given radius around center.
func Circle(center model.Coord, radius float64, quadSegs int) *geom.Polygon {
	if quadSegs <= 0 {
		quadSegs = DefaultQuadSegs
	}
	n := 4 * quadSegs
	flat := make([]float64, 0, (n+1)*2)
	for i := 0; i < n; i++ {
		a := 2 * math.Pi * float64(i) / float64(n)
		flat = append(flat, center.X+radius*math.Cos(a), center.Y+radius*math.Sin(a))
	}
	flat = append(flat, flat[0], flat[1])
	return geom.NewPolygonFlat(geom.XY, flat, []int{len(flat)})
}

// ToOrb converts a go-geom polygon to the orb representation used for
// raster masking.
func ToOrb(p *geom.Polygon) orb.Polygon {
	if p == nil {
		return nil
	}
	out := make(orb.Polygon, 0, p.NumLinearRings())
	for i := 0; i < p.NumLinearRings(); i++ {
		lr := p.LinearRing(i)
		ring := make(orb.Ring, 0, lr.NumCoords())
		for _, c := range lr.Coords() {
			ring = append(ring, orb.Point{c.X(), c.Y()})
		}
		out = append(out, ring)
	}
	return out
}
