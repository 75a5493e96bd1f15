package report

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/rotisserie/eris"
	"github.com/xuri/excelize/v2"
)

// ResultsHeader is the header row of the cumulative results workbook.
var ResultsHeader = []string{
	"Combination name", "buffer size", "weighting", "statistic_threshold", "corr_threshold",
	"crossvalidation active", "rasters", "percent good prediction", "gain_0.5", "gain_0.75",
	"statistic threshold type",
}

// ResultRow is one run's line in the results workbook.
type ResultRow struct {
	Combination        string
	BufferSize         string
	Weighting          string
	StatisticThreshold int
	CorrThreshold      float64
	CrossValidation    bool
	Rasters            []string
	PercentGood        *float64
	Gain05             *float64
	Gain075            *float64
	StatisticType      string
}

func (r ResultRow) cells() []any {
	return []any{
		r.Combination, r.BufferSize, r.Weighting, r.StatisticThreshold, r.CorrThreshold,
		strconv.FormatBool(r.CrossValidation), strings.Join(r.Rasters, ", "),
		optional(r.PercentGood), optional(r.Gain05), optional(r.Gain075), r.StatisticType,
	}
}

// optional maps nil to an empty cell.
func optional(v *float64) any {
	if v == nil {
		return nil
	}
	return *v
}

// ResultsBook appends run rows to a workbook shared by all runs of a
// working directory. Appends are serialized.
type ResultsBook struct {
	mu   sync.Mutex
	path string
}

// NewResultsBook creates a ResultsBook writing to path.
func NewResultsBook(path string) *ResultsBook {
	return &ResultsBook{path: path}
}

// Path returns the workbook location.
func (b *ResultsBook) Path() string {
	return b.path
}

// Append adds row below the existing rows, creating the workbook with a
// header on first use.
func (b *ResultsBook) Append(row ResultRow) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	f, err := b.open()
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()

	rows, err := f.GetRows(SheetName)
	if err != nil {
		return eris.Wrap(err, "report: read results rows")
	}
	next := len(rows) + 1
	if next == 1 {
		header := make([]any, len(ResultsHeader))
		for i, h := range ResultsHeader {
			header[i] = h
		}
		if err := setRow(f, 1, header); err != nil {
			return err
		}
		next = 2
	}
	cells := row.cells()
	if err := setRow(f, next, cells); err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(b.path), 0o755); err != nil {
		return eris.Wrapf(err, "report: create dir for %s", b.path)
	}
	if err := f.SaveAs(b.path); err != nil {
		return eris.Wrapf(err, "report: save %s", b.path)
	}
	return nil
}

func (b *ResultsBook) open() (*excelize.File, error) {
	if _, err := os.Stat(b.path); os.IsNotExist(err) {
		return excelize.NewFile(), nil
	}
	f, err := excelize.OpenFile(b.path)
	if err != nil {
		return nil, eris.Wrapf(err, "report: open %s", b.path)
	}
	return f, nil
}

func setRow(f *excelize.File, n int, cells []any) error {
	cell, err := excelize.CoordinatesToCellName(1, n)
	if err != nil {
		return eris.Wrap(err, "report: cell name")
	}
	if err := f.SetSheetRow(SheetName, cell, &cells); err != nil {
		return eris.Wrapf(err, "report: write row %d", n)
	}
	return nil
}

// ReadResults returns every row of a results workbook, header included.
func ReadResults(path string) ([][]string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "report: open %s", path)
	}
	defer func() { _ = f.Close() }()

	rows, err := f.GetRows(SheetName)
	if err != nil {
		return nil, eris.Wrap(err, "report: read results rows")
	}
	return rows, nil
}
