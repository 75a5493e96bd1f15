package report

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"text/tabwriter"

	"github.com/rotisserie/eris"

	"github.com/sells-group/premo/internal/model"
	"github.com/sells-group/premo/internal/validate"
	"github.com/sells-group/premo/internal/weighting"
)

// Info is the content of a run's text summary.
type Info struct {
	ResultName      string
	Weighting       model.Weighting
	Selected        []string
	Weights         *weighting.Table
	CrossValidation bool
	Sites           []validate.SiteValue
	PercentGood     *float64
	GoodThreshold   float64
	Gain            validate.GainTable
}

// WriteInfo writes the summary to path.
func WriteInfo(path string, info Info) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return eris.Wrapf(err, "report: create dir for %s", path)
	}
	f, err := os.Create(path)
	if err != nil {
		return eris.Wrapf(err, "report: create %s", path)
	}
	if err := FormatInfo(f, info); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return eris.Wrapf(err, "report: close %s", path)
	}
	return nil
}

// FormatInfo renders the summary.
func FormatInfo(w io.Writer, info Info) error {
	var b []byte
	b = fmt.Appendf(b, "Model name: \n%s\n \nParameters: \n", info.ResultName)
	for _, name := range info.Selected {
		weight := "n/a"
		if info.Weights != nil {
			if v, err := info.Weights.Weight(name, info.Weighting); err == nil {
				weight = strconv.FormatFloat(v, 'g', -1, 64)
			}
		}
		b = fmt.Appendf(b, "%s * %s\n", name, weight)
	}
	if info.CrossValidation {
		b = append(b, "\nCross-validation results: \n"...)
		for i, s := range info.Sites {
			b = fmt.Appendf(b, "%d\t%s\tPOINT (%s %s)\n", i, formatFloat(s.Value), formatFloat(s.X), formatFloat(s.Y))
		}
		b = append(b, "\n"...)
	}
	good := "None"
	if info.PercentGood != nil {
		good = formatFloat(*info.PercentGood)
	}
	b = fmt.Appendf(b, "%s percent of data is located in suitability area > %s \n\n", good, formatFloat(info.GoodThreshold))
	b = append(b, "Gain statistics: \n"...)
	if _, err := w.Write(b); err != nil {
		return eris.Wrap(err, "report: write info")
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "\tsuitability_area_>\tgain\tpercent area\tpercent sites")
	for i, r := range info.Gain {
		gain := "None"
		if r.Gain != nil {
			gain = formatFloat(Round(*r.Gain, GainDecimals))
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\n", i, formatFloat(r.Threshold), gain, formatFloat(r.PercentArea), formatFloat(r.PercentSites))
	}
	if err := tw.Flush(); err != nil {
		return eris.Wrap(err, "report: write gain table")
	}
	return nil
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
