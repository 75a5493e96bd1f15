package raster

import (
	"bufio"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// Store reads and writes full grids by path.
type Store interface {
	Read(path string) (*Grid, error)
	Write(path string, g *Grid) error
}

// ASCIIStore keeps grids as ESRI ASCII grids with a WKT .prj sidecar.
type ASCIIStore struct{}

// NewASCIIStore creates an ASCIIStore.
func NewASCIIStore() *ASCIIStore {
	return &ASCIIStore{}
}

// PrjPath returns the projection sidecar of a raster or shapefile path.
func PrjPath(path string) string {
	return strings.TrimSuffix(path, filepath.Ext(path)) + ".prj"
}

// Remove deletes a grid and its projection sidecar. Failures are logged,
// a missing file is not one.
func Remove(path string) {
	for _, p := range []string{path, PrjPath(path)} {
		if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
			zap.L().Warn("raster: remove", zap.String("path", p), zap.Error(err))
		}
	}
}

// Read loads the grid at path. The handle is closed before returning.
func (s *ASCIIStore) Read(path string) (*Grid, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "raster: open %s", path)
	}
	defer func() { _ = f.Close() }()

	g, err := DecodeASCII(f)
	if err != nil {
		return nil, eris.Wrapf(err, "raster: decode %s", path)
	}

	if prj, err := os.ReadFile(PrjPath(path)); err == nil {
		g.Projection = strings.TrimSpace(string(prj))
	} else if !os.IsNotExist(err) {
		return nil, eris.Wrapf(err, "raster: read projection for %s", path)
	}
	return g, nil
}

// Write stores g at path, creating parent directories, and writes the
// projection sidecar when g carries one.
func (s *ASCIIStore) Write(path string, g *Grid) error {
	if err := g.Validate(); err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return eris.Wrapf(err, "raster: create dir for %s", path)
	}

	f, err := os.Create(path)
	if err != nil {
		return eris.Wrapf(err, "raster: create %s", path)
	}
	if err := EncodeASCII(f, g); err != nil {
		_ = f.Close()
		return eris.Wrapf(err, "raster: encode %s", path)
	}
	if err := f.Close(); err != nil {
		return eris.Wrapf(err, "raster: close %s", path)
	}

	if g.Projection != "" {
		if err := os.WriteFile(PrjPath(path), []byte(g.Projection), 0o644); err != nil {
			return eris.Wrapf(err, "raster: write projection for %s", path)
		}
	}
	return nil
}

// Extent returns the valid value range of the grid at path.
func Extent(s Store, path string) (lo, hi float64, err error) {
	g, err := s.Read(path)
	if err != nil {
		return 0, 0, err
	}
	lo, hi, ok := g.MinMax()
	if !ok {
		return 0, 0, eris.Errorf("raster: %s holds no valid pixels", path)
	}
	return lo, hi, nil
}

// DecodeASCII parses an ESRI ASCII grid.
func DecodeASCII(r io.Reader) (*Grid, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	sc.Split(bufio.ScanWords)

	header := make(map[string]float64)
	var first string
	for sc.Scan() {
		tok := sc.Text()
		if _, err := strconv.ParseFloat(tok, 64); err == nil {
			first = tok
			break
		}
		key := strings.ToLower(tok)
		if !sc.Scan() {
			return nil, eris.Errorf("raster: header %s has no value", key)
		}
		v, err := strconv.ParseFloat(sc.Text(), 64)
		if err != nil {
			return nil, eris.Wrapf(err, "raster: header %s", key)
		}
		header[key] = v
	}
	if err := sc.Err(); err != nil {
		return nil, eris.Wrap(err, "raster: scan header")
	}

	cols, rows := int(header["ncols"]), int(header["nrows"])
	if cols <= 0 || rows <= 0 {
		return nil, eris.Errorf("raster: invalid dimensions %dx%d", cols, rows)
	}

	dx, dy := header["cellsize"], header["cellsize"]
	if v, ok := header["dx"]; ok {
		dx = v
	}
	if v, ok := header["dy"]; ok {
		dy = v
	}
	if dx <= 0 || dy <= 0 {
		return nil, eris.New("raster: missing or invalid cell size")
	}

	var xll, yll float64
	switch {
	case hasKey(header, "xllcorner"):
		xll = header["xllcorner"]
	case hasKey(header, "xllcenter"):
		xll = header["xllcenter"] - dx/2
	default:
		return nil, eris.New("raster: missing xllcorner")
	}
	switch {
	case hasKey(header, "yllcorner"):
		yll = header["yllcorner"]
	case hasKey(header, "yllcenter"):
		yll = header["yllcenter"] - dy/2
	default:
		return nil, eris.New("raster: missing yllcorner")
	}

	g := &Grid{
		Cols:      cols,
		Rows:      rows,
		Data:      make([]float64, 0, cols*rows),
		Transform: NewNorthUp(xll, yll+float64(rows)*dy, dx, dy),
	}
	if v, ok := header["nodata_value"]; ok {
		g.NoData, g.HasNoData = v, true
	}

	if first == "" {
		return nil, eris.New("raster: no pixel data")
	}
	v, _ := strconv.ParseFloat(first, 64)
	g.Data = append(g.Data, v)
	for sc.Scan() {
		v, err := strconv.ParseFloat(sc.Text(), 64)
		if err != nil {
			return nil, eris.Wrapf(err, "raster: pixel %d", len(g.Data))
		}
		g.Data = append(g.Data, v)
	}
	if err := sc.Err(); err != nil {
		return nil, eris.Wrap(err, "raster: scan data")
	}
	if err := g.Validate(); err != nil {
		return nil, err
	}
	return g, nil
}

// EncodeASCII writes g as an ESRI ASCII grid.
func EncodeASCII(w io.Writer, g *Grid) error {
	if g.Transform[2] != 0 || g.Transform[4] != 0 {
		return eris.New("raster: rotated transforms cannot be written as ASCII grid")
	}
	bw := bufio.NewWriter(w)
	t := g.Transform
	dx, dy := t.PixelWidth(), t.PixelHeight()
	yll := lowerLeftY(t[3], g.Rows, dy)

	writeHeader(bw, "ncols", strconv.Itoa(g.Cols))
	writeHeader(bw, "nrows", strconv.Itoa(g.Rows))
	writeHeader(bw, "xllcorner", formatFloat(t[0]))
	writeHeader(bw, "yllcorner", formatFloat(yll))
	if dx == dy {
		writeHeader(bw, "cellsize", formatFloat(dx))
	} else {
		writeHeader(bw, "dx", formatFloat(dx))
		writeHeader(bw, "dy", formatFloat(dy))
	}
	if g.HasNoData {
		writeHeader(bw, "NODATA_value", formatFloat(g.NoData))
	}

	for r := 0; r < g.Rows; r++ {
		for c := 0; c < g.Cols; c++ {
			if c > 0 {
				_ = bw.WriteByte(' ')
			}
			_, _ = bw.WriteString(formatFloat(g.At(r, c)))
		}
		_ = bw.WriteByte('\n')
	}
	return eris.Wrap(bw.Flush(), "raster: flush")
}

// lowerLeftY returns the yllcorner from which DecodeASCII rebuilds top
// bit for bit. Subtracting the grid height can be off by an ulp, so the
// neighbours of the plain difference are tried. When the height is far
// larger than top no exact value may exist and the difference is used.
func lowerLeftY(top float64, rows int, dy float64) float64 {
	h := float64(rows) * dy
	yll := top - h
	for _, dir := range []float64{math.Inf(1), math.Inf(-1)} {
		y := yll
		for i := 0; i < 4; i++ {
			if y+h == top {
				return y
			}
			y = math.Nextafter(y, dir)
		}
	}
	return yll
}

func writeHeader(w *bufio.Writer, key, value string) {
	_, _ = w.WriteString(key + " " + value + "\n")
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

func hasKey(m map[string]float64, k string) bool {
	_, ok := m[k]
	return ok
}
