package ledger

import (
	"context"
	"encoding/json"
	"io"
	"sort"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/premo/internal/model"
)

// ImportLegacy loads a calculated-combinations JSON document, a map from
// result name to [percent_good, gain_0.5, gain_0.75], and records every
// entry as a completed run. Entries already complete are left alone. It
// returns the number of runs imported.
func ImportLegacy(ctx context.Context, l Ledger, r io.Reader) (int, error) {
	var doc map[string][]*float64
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return 0, eris.Wrap(err, "ledger: decode legacy combinations")
	}

	names := make([]string, 0, len(doc))
	for name := range doc {
		names = append(names, name)
	}
	sort.Strings(names)

	imported := 0
	for _, name := range names {
		done, err := Done(ctx, l, name)
		if err != nil {
			return imported, err
		}
		if done {
			continue
		}
		metrics := doc[name]
		outcome := &model.RunOutcome{}
		for i, dst := range []**float64{&outcome.PercentGood, &outcome.Gain05, &outcome.Gain075} {
			if i < len(metrics) {
				*dst = metrics[i]
			}
		}
		// The legacy format keeps no parameters.
		if _, err := l.Start(ctx, name, model.RunParams{}); err != nil {
			return imported, err
		}
		if err := l.Complete(ctx, name, outcome); err != nil {
			return imported, err
		}
		imported++
	}
	zap.L().Info("ledger: imported legacy combinations", zap.Int("imported", imported), zap.Int("total", len(doc)))
	return imported, nil
}
