package predict

import (
	"bytes"
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"

	"github.com/paulmach/orb"
	"github.com/rotisserie/eris"

	"github.com/sells-group/premo/internal/raster"
	"github.com/sells-group/premo/internal/vector"
)

// Warper resamples and crops suitability rasters.
type Warper interface {
	// Resample writes src to dst at a square cell size.
	Resample(ctx context.Context, src, dst string, cellSize float64) error
	// Crop writes src to dst cropped to the polygons of the mask shapefile,
	// with no-data outside them. An empty mask copies src unchanged.
	Crop(ctx context.Context, src, dst, mask string) error
}

// GDALWarp runs the gdalwarp CLI.
type GDALWarp struct {
	binPath string
	format  string
	nodata  float64
}

// NewGDALWarp creates a GDALWarp. If binPath is empty, "gdalwarp" is used.
func NewGDALWarp(binPath string, nodata float64) *GDALWarp {
	if binPath == "" {
		binPath = "gdalwarp"
	}
	return &GDALWarp{binPath: binPath, format: "AAIGrid", nodata: nodata}
}

// Resample runs gdalwarp -tr size size.
func (g *GDALWarp) Resample(ctx context.Context, src, dst string, cellSize float64) error {
	size := strconv.FormatFloat(cellSize, 'f', -1, 64)
	return g.run(ctx, dst, "-overwrite", "-tr", size, size, "-of", g.format, src, dst)
}

// Crop runs gdalwarp -cutline mask -crop_to_cutline.
func (g *GDALWarp) Crop(ctx context.Context, src, dst, mask string) error {
	if mask == "" {
		return g.run(ctx, dst, "-overwrite", "-of", g.format, src, dst)
	}
	nodata := strconv.FormatFloat(g.nodata, 'f', 1, 64)
	return g.run(ctx, dst, "-overwrite", "-of", g.format,
		"-cutline", mask, "-crop_to_cutline", "-dstnodata", nodata, src, dst)
}

func (g *GDALWarp) run(ctx context.Context, dst string, args ...string) error {
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return eris.Wrapf(err, "predict: create dir for %s", dst)
	}
	cmd := exec.CommandContext(ctx, g.binPath, args...)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return eris.Wrapf(err, "predict: gdalwarp failed for %s: %s", dst, stderr.String())
	}
	return nil
}

// LocalWarper resamples by nearest neighbour and crops to the mask in
// process.
type LocalWarper struct {
	store  raster.Store
	nodata float64
}

// NewLocalWarper creates a LocalWarper.
func NewLocalWarper(store raster.Store, nodata float64) *LocalWarper {
	return &LocalWarper{store: store, nodata: nodata}
}

// Resample implements Warper.
func (l *LocalWarper) Resample(_ context.Context, src, dst string, cellSize float64) error {
	g, err := l.store.Read(src)
	if err != nil {
		return err
	}
	out, err := raster.Resample(g, cellSize)
	if err != nil {
		return err
	}
	return l.store.Write(dst, out)
}

// Crop implements Warper.
func (l *LocalWarper) Crop(_ context.Context, src, dst, mask string) error {
	g, err := l.store.Read(src)
	if err != nil {
		return err
	}
	if mask == "" {
		return l.store.Write(dst, g)
	}
	polys, _, err := vector.ReadPolygons(mask)
	if err != nil {
		return err
	}
	cut := make([]orb.Polygon, 0, len(polys))
	for _, p := range polys {
		cut = append(cut, vector.ToOrb(p))
	}
	out, err := raster.Cutline(g, cut, l.nodata)
	if err != nil {
		return err
	}
	return l.store.Write(dst, out)
}
