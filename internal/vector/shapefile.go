// Package vector reads buffer polygons from shapefiles and writes site
// points with attributes.
package vector

import (
	"os"
	"strings"

	"github.com/jonas-p/go-shp"
	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/xy"

	"github.com/sells-group/premo/internal/model"
	"github.com/sells-group/premo/internal/raster"
)

// ReadPolygons returns every polygon record of a shapefile together with the
// WKT of its .prj sidecar (empty when absent). Each shapefile part becomes a
// ring; the first part is the shell. A record that is not a valid polygon is
// an InputError naming its record number.
func ReadPolygons(path string) ([]*geom.Polygon, string, error) {
	reader, err := shp.Open(path)
	if err != nil {
		return nil, "", eris.Wrapf(err, "vector: open shapefile %s", path)
	}
	defer func() { _ = reader.Close() }()

	if reader.GeometryType != shp.POLYGON {
		return nil, "", eris.Errorf("vector: %s holds shape type %d, want polygons", path, reader.GeometryType)
	}

	var polys []*geom.Polygon
	for reader.Next() {
		n, shape := reader.Shape()
		p, ok := shape.(*shp.Polygon)
		if !ok {
			return nil, "", &model.InputError{Buffer: n, Err: eris.Errorf("vector: %s record %d is %T, want a polygon", path, n, shape)}
		}
		poly, err := toPolygon(p)
		if err != nil {
			return nil, "", &model.InputError{Buffer: n, Err: eris.Wrapf(err, "vector: %s record %d", path, n)}
		}
		polys = append(polys, poly)
	}
	if err := reader.Err(); err != nil {
		return nil, "", eris.Wrapf(err, "vector: read shapefile %s", path)
	}

	crs, err := readPrj(path)
	if err != nil {
		return nil, "", err
	}
	return polys, crs, nil
}

// ReadBuffers loads the buffered site polygons and their centroids.
func ReadBuffers(path string) (model.BufferSet, error) {
	polys, crs, err := ReadPolygons(path)
	if err != nil {
		return model.BufferSet{}, err
	}
	if len(polys) == 0 {
		return model.BufferSet{}, model.NewInputError("", eris.Errorf("vector: %s holds no buffers", path))
	}

	set := model.BufferSet{CRS: crs, Buffers: make([]model.Buffer, 0, len(polys))}
	for i, p := range polys {
		c, err := xy.Centroid(p)
		if err != nil {
			return model.BufferSet{}, eris.Wrapf(err, "vector: centroid of buffer %d", i)
		}
		set.Buffers = append(set.Buffers, model.Buffer{
			Index:    i,
			Polygon:  p,
			Centroid: model.Coord{X: c.X(), Y: c.Y()},
		})
	}
	return set, nil
}

func toPolygon(p *shp.Polygon) (*geom.Polygon, error) {
	if p.NumParts == 0 || len(p.Points) == 0 {
		return nil, eris.New("empty polygon")
	}

	flat := make([]float64, 0, len(p.Points)*2)
	ends := make([]int, 0, p.NumParts)
	for i := int32(0); i < p.NumParts; i++ {
		start := p.Parts[i]
		end := int32(len(p.Points))
		if i+1 < p.NumParts {
			end = p.Parts[i+1]
		}
		if end-start < 4 {
			return nil, eris.Errorf("ring %d has %d points", i, end-start)
		}
		for j := start; j < end; j++ {
			flat = append(flat, p.Points[j].X, p.Points[j].Y)
		}
		ends = append(ends, len(flat))
	}
	return geom.NewPolygonFlat(geom.XY, flat, ends), nil
}

func readPrj(path string) (string, error) {
	data, err := os.ReadFile(raster.PrjPath(path))
	if os.IsNotExist(err) {
		return "", nil
	}
	if err != nil {
		return "", eris.Wrapf(err, "vector: read projection for %s", path)
	}
	return strings.TrimSpace(string(data)), nil
}
