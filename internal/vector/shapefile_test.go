package vector

import (
	"errors"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/jonas-p/go-shp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/premo/internal/model"
)

func TestReadBuffers(t *testing.T) {
	dir := t.TempDir()
	path := writeSquares(t, dir, 10, [][2]float64{{0, 0}, {100, 50}}, "PROJCS[\"test\"]")

	set, err := ReadBuffers(path)
	require.NoError(t, err)
	assert.Equal(t, "PROJCS[\"test\"]", set.CRS)
	require.Len(t, set.Buffers, 2)

	assert.Equal(t, 0, set.Buffers[0].Index)
	assert.InDelta(t, 5, set.Buffers[0].Centroid.X, 1e-9)
	assert.InDelta(t, 5, set.Buffers[0].Centroid.Y, 1e-9)
	assert.InDelta(t, 105, set.Buffers[1].Centroid.X, 1e-9)
	assert.InDelta(t, 55, set.Buffers[1].Centroid.Y, 1e-9)
	assert.Equal(t, 1, set.Buffers[1].Polygon.NumLinearRings())
}

func TestReadBuffers_NoPrj(t *testing.T) {
	path := writeSquares(t, t.TempDir(), 1, [][2]float64{{0, 0}}, "")
	set, err := ReadBuffers(path)
	require.NoError(t, err)
	assert.Empty(t, set.CRS)
}

func TestReadBuffers_Missing(t *testing.T) {
	_, err := ReadBuffers(filepath.Join(t.TempDir(), "missing.shp"))
	assert.Error(t, err)
}

func TestReadBuffers_ShortRingIsInputError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "short.shp")
	w, err := shp.Create(path, shp.POLYGON)
	require.NoError(t, err)
	square := shp.Polygon(*shp.NewPolyLine([][]shp.Point{{{X: 0, Y: 0}, {X: 0, Y: 1}, {X: 1, Y: 1}, {X: 1, Y: 0}, {X: 0, Y: 0}}}))
	short := shp.Polygon(*shp.NewPolyLine([][]shp.Point{{{X: 5, Y: 5}, {X: 5, Y: 6}, {X: 5, Y: 5}}}))
	w.Write(&square)
	w.Write(&short)
	w.Write(&square)
	w.Close()

	_, err = ReadBuffers(path)
	require.Error(t, err)
	var ie *model.InputError
	require.True(t, errors.As(err, &ie))
	assert.Equal(t, 1, ie.Buffer)
	assert.Contains(t, err.Error(), "buffer 1")
}

func TestReadPolygons_WrongType(t *testing.T) {
	path := filepath.Join(t.TempDir(), "points.shp")
	require.NoError(t, WritePoints(path, "", []model.SitePoint{{Coord: model.Coord{X: 1, Y: 2}}}, nil))

	_, _, err := ReadPolygons(path)
	assert.Error(t, err)
}

func TestWritePoints(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sites.shp")
	points := []model.SitePoint{
		{Coord: model.Coord{X: 10, Y: 20}, Attrs: map[string]float64{"t_slope": 1.5, "c_prim_settlement": 42}},
		{Coord: model.Coord{X: 30, Y: 40}, Attrs: map[string]float64{"t_slope": 2.5}},
	}
	require.NoError(t, WritePoints(path, "WKT", points, []string{"t_slope", "c_prim_settlement"}))

	r, err := shp.Open(path)
	require.NoError(t, err)
	defer func() { _ = r.Close() }()

	fields := r.Fields()
	require.Len(t, fields, 4)
	assert.Equal(t, "c_prim_set", trimField(fields[3].String()))

	var xs []float64
	var slopes, settlements []string
	for r.Next() {
		n, shape := r.Shape()
		p, ok := shape.(*shp.Point)
		require.True(t, ok)
		xs = append(xs, p.X)
		slopes = append(slopes, r.ReadAttribute(n, 2))
		settlements = append(settlements, r.ReadAttribute(n, 3))
	}
	assert.Equal(t, []float64{10, 30}, xs)
	require.Len(t, slopes, 2)
	assert.InDelta(t, 1.5, parseAttr(t, slopes[0]), 1e-9)
	assert.InDelta(t, 2.5, parseAttr(t, slopes[1]), 1e-9)
	assert.InDelta(t, 42, parseAttr(t, settlements[0]), 1e-9)
	assert.InDelta(t, 0, parseAttr(t, settlements[1]), 1e-9)

	assert.FileExists(t, filepath.Join(dir, "sites.dbf"))
	assert.NoFileExists(t, filepath.Join(dir, "sitesdbf"))
	assert.FileExists(t, filepath.Join(dir, "sites.prj"))
}

func TestFieldName(t *testing.T) {
	assert.Equal(t, "t_slope", FieldName("t_slope"))
	assert.Equal(t, "suitabilit", FieldName("suitability_value"))
}

func trimField(s string) string {
	for i, c := range s {
		if c == 0 {
			return s[:i]
		}
	}
	return s
}

func parseAttr(t *testing.T, s string) float64 {
	t.Helper()
	v, err := strconv.ParseFloat(strings.TrimSpace(trimField(s)), 64)
	require.NoError(t, err)
	return v
}
