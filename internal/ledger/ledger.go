// Package ledger persists the outcome of every configuration so re-running
// a sweep skips configurations that already completed.
package ledger

import (
	"context"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/premo/internal/model"
)

// ErrNotFound is returned when a result name has no ledger row.
var ErrNotFound = eris.New("ledger: run not found")

// Filter specifies criteria for listing runs.
type Filter struct {
	Status model.RunStatus `json:"status,omitempty"`
	Prefix string          `json:"prefix,omitempty"`
	Limit  int             `json:"limit,omitempty"`
	Offset int             `json:"offset,omitempty"`
}

// Ledger records configuration runs keyed by result name.
type Ledger interface {
	// Get returns the run for a result name or ErrNotFound.
	Get(ctx context.Context, resultName string) (*model.Run, error)
	// Start records a configuration as running under its result name,
	// resetting any earlier failed attempt.
	Start(ctx context.Context, resultName string, params model.RunParams) (*model.Run, error)
	// Complete stores the outcome and marks the run complete.
	Complete(ctx context.Context, resultName string, outcome *model.RunOutcome) error
	// Fail marks the run failed with the cause.
	Fail(ctx context.Context, resultName string, cause error) error
	// List returns runs newest first.
	List(ctx context.Context, filter Filter) ([]model.Run, error)

	Migrate(ctx context.Context) error
	Close() error
}

// Config selects and locates the ledger backend.
type Config struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	// RetryAttempts bounds retries of transient failures; 1 disables them.
	RetryAttempts int `yaml:"retry_attempts" mapstructure:"retry_attempts"`
}

// Open connects to the configured backend and migrates it.
func Open(ctx context.Context, cfg Config) (Ledger, error) {
	var (
		l   Ledger
		err error
	)
	switch strings.ToLower(cfg.Driver) {
	case "", "sqlite":
		l, err = NewSQLite(cfg.DatabaseURL)
	case "postgres", "postgresql":
		l, err = NewPostgres(ctx, cfg.DatabaseURL)
	default:
		return nil, &model.ConfigError{Field: "ledger.driver", Err: eris.Errorf("unsupported driver %q", cfg.Driver)}
	}
	if err != nil {
		return nil, err
	}
	if err := l.Migrate(ctx); err != nil {
		_ = l.Close()
		return nil, err
	}
	return l, nil
}

// Done reports whether a result name completed before.
func Done(ctx context.Context, l Ledger, resultName string) (bool, error) {
	r, err := l.Get(ctx, resultName)
	if eris.Is(err, ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return r.Status == model.RunStatusComplete, nil
}

func defaultLimit(limit int) int {
	if limit <= 0 {
		return 100
	}
	return limit
}
