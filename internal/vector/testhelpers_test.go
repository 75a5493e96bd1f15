package vector

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/jonas-p/go-shp"
	"github.com/stretchr/testify/require"
)

// writeSquares writes one square polygon per origin with the given side.
func writeSquares(t *testing.T, dir string, side float64, origins [][2]float64, crs string) string {
	t.Helper()
	path := filepath.Join(dir, "buffers.shp")
	w, err := shp.Create(path, shp.POLYGON)
	require.NoError(t, err)
	require.NoError(t, w.SetFields([]shp.Field{shp.NumberField("id", 10)}))
	for i, o := range origins {
		x, y := o[0], o[1]
		pl := shp.NewPolyLine([][]shp.Point{{
			{X: x, Y: y}, {X: x, Y: y + side}, {X: x + side, Y: y + side}, {X: x + side, Y: y}, {X: x, Y: y},
		}})
		poly := shp.Polygon(*pl)
		row := w.Write(&poly)
		require.NoError(t, w.WriteAttribute(int(row), 0, i))
	}
	w.Close()
	if crs != "" {
		require.NoError(t, os.WriteFile(filepath.Join(dir, "buffers.prj"), []byte(crs), 0o644))
	}
	return path
}
