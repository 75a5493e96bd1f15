// Package report exports run tables as spreadsheets and writes the
// plain-text run summary.
package report

import (
	"math"
	"os"
	"path/filepath"
	"strconv"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/sells-group/premo/internal/stats"
	"github.com/sells-group/premo/internal/validate"
	"github.com/sells-group/premo/internal/weighting"
)

// SheetName is the sheet every exported table is written to.
const SheetName = "Sheet1"

// GainDecimals is the rounding applied to exported gain values.
const GainDecimals = 5

// newSheet creates a workbook with a single SheetName sheet.
func newSheet() (*xlsx.File, *xlsx.Sheet, error) {
	f := xlsx.NewFile()
	sheet, err := f.AddSheet(SheetName)
	if err != nil {
		return nil, nil, eris.Wrap(err, "report: add sheet")
	}
	return f, sheet, nil
}

func save(f *xlsx.File, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return eris.Wrapf(err, "report: create dir for %s", path)
	}
	if err := f.Save(path); err != nil {
		return eris.Wrapf(err, "report: save %s", path)
	}
	return nil
}

func addStrings(sheet *xlsx.Sheet, values ...string) *xlsx.Row {
	row := sheet.AddRow()
	for _, v := range values {
		row.AddCell().SetString(v)
	}
	return row
}

// addFloat writes v, leaving the cell empty for NaN.
func addFloat(row *xlsx.Row, v float64) {
	cell := row.AddCell()
	if math.IsNaN(v) {
		return
	}
	cell.SetFloat(v)
}

// Round rounds v to the given number of decimals.
func Round(v float64, decimals int) float64 {
	p := math.Pow(10, float64(decimals))
	return math.Round(v*p) / p
}

// WriteStatistics writes one row per statistic and one column per variable,
// followed by the w0..w3 rows when weights is non-nil.
func WriteStatistics(path string, table stats.Table, weights *weighting.Table) error {
	f, sheet, err := newSheet()
	if err != nil {
		return err
	}
	addStrings(sheet, append([]string{""}, table.Names()...)...)
	for _, name := range stats.StatisticNames() {
		row := addStrings(sheet, name)
		for _, s := range table {
			v, err := s.Value(name)
			if err != nil {
				return err
			}
			addFloat(row, v)
		}
	}
	if weights != nil {
		rows := []struct {
			name string
			get  func(weighting.Weights) float64
		}{
			{"w0", func(w weighting.Weights) float64 { return w.W0 }},
			{"w1", func(w weighting.Weights) float64 { return w.W1 }},
			{"w2", func(w weighting.Weights) float64 { return w.W2 }},
			{"w3", func(w weighting.Weights) float64 { return w.W3 }},
		}
		for _, r := range rows {
			row := addStrings(sheet, r.name)
			for _, s := range table {
				w, ok := weights.Lookup(s.Variable)
				if !ok {
					return eris.Errorf("report: no weights for %q", s.Variable)
				}
				addFloat(row, r.get(w))
			}
		}
	}
	return save(f, path)
}

// WriteCorrelation writes the signed correlation matrix with variable names
// as row and column headers. Undefined correlations are left empty.
func WriteCorrelation(path string, m *stats.CorrelationMatrix) error {
	f, sheet, err := newSheet()
	if err != nil {
		return err
	}
	addStrings(sheet, append([]string{""}, m.Names...)...)
	for i, name := range m.Names {
		row := addStrings(sheet, name)
		for j := range m.Names {
			addFloat(row, m.At(i, j))
		}
	}
	return save(f, path)
}

// WriteGain writes the gain table, one row per threshold.
func WriteGain(path string, table validate.GainTable) error {
	f, sheet, err := newSheet()
	if err != nil {
		return err
	}
	addStrings(sheet, "", "suitability_area_>", "gain", "percent area", "percent sites")
	for i, r := range table {
		row := addStrings(sheet, strconv.Itoa(i))
		addFloat(row, r.Threshold)
		if r.Gain != nil {
			addFloat(row, Round(*r.Gain, GainDecimals))
		} else {
			row.AddCell()
		}
		addFloat(row, r.PercentArea)
		addFloat(row, r.PercentSites)
	}
	return save(f, path)
}

// ReadSheet returns every row of a sheet as strings.
func ReadSheet(path, name string) ([][]string, error) {
	f, err := xlsx.OpenFile(path)
	if err != nil {
		return nil, eris.Wrap(err, "report: open file")
	}
	sheet, ok := f.Sheet[name]
	if !ok {
		return nil, eris.Errorf("report: sheet %q not found", name)
	}
	rows := make([][]string, 0, len(sheet.Rows))
	for _, row := range sheet.Rows {
		cells := make([]string, len(row.Cells))
		for j, cell := range row.Cells {
			cells[j] = cell.String()
		}
		rows = append(rows, cells)
	}
	return rows, nil
}
