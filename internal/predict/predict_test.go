package predict

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/premo/internal/model"
	"github.com/sells-group/premo/internal/raster"
	"github.com/sells-group/premo/internal/reclass"
	"github.com/sells-group/premo/internal/stats"
	"github.com/sells-group/premo/internal/weighting"
)

func classGrid(data ...float64) *raster.Grid {
	return &raster.Grid{
		Cols: 2, Rows: len(data) / 2, Data: data,
		NoData: -9999, HasNoData: true,
		Transform:  raster.NewNorthUp(0, 2, 1, 1),
		Projection: "WKT",
	}
}

func TestCombine(t *testing.T) {
	a := classGrid(2, 1, 0, -9999)
	b := classGrid(2, 2, 1, 2)

	out, err := Combine([]*raster.Grid{a, b}, []float64{1, 0.5})
	require.NoError(t, err)

	// Sums 3, 2, 0.5 and no-data, scaled by 3.
	assert.InDeltaSlice(t, []float64{1, 2.0 / 3, 0.5 / 3, -9999}, out.Data, 1e-12)
	assert.Equal(t, raster.DefaultNoData, out.NoData)
	assert.Equal(t, a.Transform, out.Transform)
	assert.Equal(t, "WKT", out.Projection)

	lo, hi, ok := out.MinMax()
	require.True(t, ok)
	assert.GreaterOrEqual(t, lo, 0.0)
	assert.Equal(t, 1.0, hi)
}

func TestCombine_AllZero(t *testing.T) {
	out, err := Combine([]*raster.Grid{classGrid(0, 0)}, []float64{1})
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 0}, out.Data)
}

func TestCombine_Errors(t *testing.T) {
	_, err := Combine(nil, nil)
	assert.Error(t, err)

	_, err = Combine([]*raster.Grid{classGrid(1, 2)}, []float64{1, 2})
	assert.Error(t, err)

	other := classGrid(1, 2)
	other.Transform = raster.NewNorthUp(5, 5, 1, 1)
	_, err = Combine([]*raster.Grid{classGrid(1, 2), other}, []float64{1, 1})
	assert.Error(t, err)
}

func setup(t *testing.T) (raster.Store, model.Paths, []reclass.Layer, *weighting.Table) {
	t.Helper()
	dir := t.TempDir()
	store := raster.NewASCIIStore()
	paths := model.Paths{WorkingDir: dir}

	layers := []reclass.Layer{
		{Variable: "slope", Path: paths.Reclassified("slope", "run")},
		{Variable: "c_river", Path: paths.Reclassified("c_river", "run")},
	}
	require.NoError(t, store.Write(layers[0].Path, classGrid(2, 1, 0, 2)))
	require.NoError(t, store.Write(layers[1].Path, classGrid(2, 0, 0, 1)))

	wt, err := weighting.Compute(stats.Table{
		{Variable: "slope", IQRNorm: 0.5, StdDev: 1, Range: 4, StdDevNorm: 0.25},
		{Variable: "c_river", IQRNorm: 0.25, StdDev: 1, Range: 1, StdDevNorm: 0.25},
	})
	require.NoError(t, err)
	return store, paths, layers, wt
}

func TestPredictor_Predict(t *testing.T) {
	store, paths, layers, wt := setup(t)
	ctx := context.Background()

	w := new(mockWarper)
	w.On("Resample", ctx, paths.Suitability("run"), paths.SuitabilityResampled("run"), 50.0).
		Run(func(args mock.Arguments) {
			g, err := store.Read(args.String(1))
			require.NoError(t, err)
			require.NoError(t, store.Write(args.String(2), g))
		}).Return(nil)
	w.On("Crop", ctx, paths.SuitabilityResampled("run"), paths.SuitabilityCut("run"), "").
		Run(func(args mock.Arguments) {
			g, err := store.Read(args.String(1))
			require.NoError(t, err)
			require.NoError(t, store.Write(args.String(2), g))
		}).Return(nil)

	out, err := New(store, paths, w, true).Predict(ctx, Request{
		ResultName: "run", CellSize: 50, Scheme: model.WeightingIQR, Layers: layers, Weights: wt,
	})
	require.NoError(t, err)
	w.AssertExpectations(t)

	got, err := store.Read(out.Final)
	require.NoError(t, err)
	// w1: slope 0.5, c_river 0.75. Sums 2.5, 0.5, 0, 1.75.
	assert.InDeltaSlice(t, []float64{1, 0.2, 0, 0.7}, got.Data, 1e-9)

	assert.FileExists(t, out.Raw)
	assert.FileExists(t, paths.SuitabilityResampled("run"))
}

func TestPredictor_RemovesIntermediates(t *testing.T) {
	store, paths, layers, wt := setup(t)
	local := NewLocalWarper(store, raster.DefaultNoData)

	out, err := New(store, paths, local, false).Predict(context.Background(), Request{
		ResultName: "run", CellSize: 1, Scheme: model.WeightingUniform, Layers: layers, Weights: wt,
	})
	require.NoError(t, err)

	assert.Empty(t, out.Raw)
	assert.FileExists(t, out.Final)
	assert.NoFileExists(t, paths.Suitability("run"))
	assert.NoFileExists(t, paths.SuitabilityResampled("run"))
	assert.NoFileExists(t, raster.PrjPath(paths.Suitability("run")))
}

func TestPredictor_Errors(t *testing.T) {
	store, paths, layers, wt := setup(t)
	ctx := context.Background()

	_, err := New(store, paths, new(mockWarper), false).Predict(ctx, Request{ResultName: "run", Layers: layers})
	assert.Error(t, err)

	_, err = New(store, paths, new(mockWarper), false).Predict(ctx, Request{
		ResultName: "run", Scheme: "w7", Layers: layers, Weights: wt,
	})
	require.Error(t, err)
	assert.True(t, model.IsConfigError(err))

	missing := []reclass.Layer{{Variable: "slope", Path: filepath.Join(paths.WorkingDir, "nope.asc")}}
	_, err = New(store, paths, new(mockWarper), false).Predict(ctx, Request{
		ResultName: "run", Scheme: model.WeightingUniform, Layers: missing, Weights: wt,
	})
	require.Error(t, err)
	assert.True(t, model.IsInputError(err))

	w := new(mockWarper)
	w.On("Resample", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(errors.New("warp failed"))
	_, err = New(store, paths, w, false).Predict(ctx, Request{
		ResultName: "run", CellSize: 10, Scheme: model.WeightingUniform, Layers: layers, Weights: wt,
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "warp failed")
}

func TestGDALWarp_BinPath(t *testing.T) {
	g := NewGDALWarp("", -9999)
	assert.Equal(t, "gdalwarp", g.binPath)
	g = NewGDALWarp("/opt/gdal/bin/gdalwarp", -9999)
	assert.Equal(t, "/opt/gdal/bin/gdalwarp", g.binPath)
}

func TestGDALWarp_Args(t *testing.T) {
	dir := t.TempDir()
	argsFile := filepath.Join(dir, "args.txt")
	fakeBin := filepath.Join(dir, "gdalwarp")
	script := "#!/bin/sh\necho \"$@\" >> " + argsFile + "\n"
	require.NoError(t, os.WriteFile(fakeBin, []byte(script), 0o755))

	g := NewGDALWarp(fakeBin, -9999)
	ctx := context.Background()
	require.NoError(t, g.Resample(ctx, "in.asc", filepath.Join(dir, "out", "res.asc"), 50))
	require.NoError(t, g.Crop(ctx, "res.asc", filepath.Join(dir, "cut.asc"), "mask.shp"))

	data, err := os.ReadFile(argsFile)
	require.NoError(t, err)
	out := string(data)
	assert.Contains(t, out, "-overwrite -tr 50 50 -of AAIGrid in.asc "+filepath.Join(dir, "out", "res.asc"))
	assert.Contains(t, out, "-cutline mask.shp -crop_to_cutline -dstnodata -9999.0 res.asc")
	assert.DirExists(t, filepath.Join(dir, "out"))
}

func TestGDALWarp_BinaryNotFound(t *testing.T) {
	g := NewGDALWarp("/nonexistent/gdalwarp", -9999)
	err := g.Resample(context.Background(), "a.asc", filepath.Join(t.TempDir(), "b.asc"), 10)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "gdalwarp failed")
}

func TestLocalWarper_CropWithoutMaskCopies(t *testing.T) {
	dir := t.TempDir()
	store := raster.NewASCIIStore()
	src := filepath.Join(dir, "src.asc")
	require.NoError(t, store.Write(src, classGrid(1, 2, 3, 4)))

	l := NewLocalWarper(store, raster.DefaultNoData)
	dst := filepath.Join(dir, "dst.asc")
	require.NoError(t, l.Crop(context.Background(), src, dst, ""))

	got, err := store.Read(dst)
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 2, 3, 4}, got.Data)

	assert.Error(t, l.Crop(context.Background(), src, dst, filepath.Join(dir, "missing.shp")))
	assert.Error(t, l.Resample(context.Background(), filepath.Join(dir, "missing.asc"), dst, 1))
}
