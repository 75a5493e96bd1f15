package vector

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/jonas-p/go-shp"
	"github.com/rotisserie/eris"

	"github.com/sells-group/premo/internal/model"
	"github.com/sells-group/premo/internal/raster"
)

// maxFieldName is the DBF limit on attribute names.
const maxFieldName = 10

// FieldName truncates a column name to the DBF limit.
func FieldName(name string) string {
	if len(name) > maxFieldName {
		return name[:maxFieldName]
	}
	return name
}

// WritePoints writes points as a point shapefile with x, y and one numeric
// attribute per column, plus a .prj sidecar when crs is set. Points missing
// a column get 0.
func WritePoints(path, crs string, points []model.SitePoint, columns []string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return eris.Wrapf(err, "vector: create dir for %s", path)
	}

	w, err := shp.Create(path, shp.POINT)
	if err != nil {
		return eris.Wrapf(err, "vector: create shapefile %s", path)
	}

	fields := []shp.Field{shp.FloatField("x", 24, 8), shp.FloatField("y", 24, 8)}
	for _, c := range columns {
		fields = append(fields, shp.FloatField(FieldName(c), 24, 8))
	}
	if err := w.SetFields(fields); err != nil {
		w.Close()
		return eris.Wrap(err, "vector: set fields")
	}

	for _, p := range points {
		row := int(w.Write(&shp.Point{X: p.X, Y: p.Y}))
		values := make([]float64, 0, len(fields))
		values = append(values, p.X, p.Y)
		for _, c := range columns {
			values = append(values, p.Attrs[c])
		}
		for i, v := range values {
			if err := w.WriteAttribute(row, i, v); err != nil {
				w.Close()
				return eris.Wrapf(err, "vector: write attribute %d of row %d", i, row)
			}
		}
	}
	w.Close()

	// go-shp names the attribute table base+"dbf", without the dot.
	base := path
	if strings.HasSuffix(strings.ToLower(path), ".shp") {
		base = path[:len(path)-len(".shp")]
	}
	if err := os.Rename(base+"dbf", base+".dbf"); err != nil {
		return eris.Wrapf(err, "vector: move attribute table for %s", path)
	}

	if crs != "" {
		if err := os.WriteFile(raster.PrjPath(path), []byte(crs), 0o644); err != nil {
			return eris.Wrapf(err, "vector: write projection for %s", path)
		}
	}
	return nil
}
