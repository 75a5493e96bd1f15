package ledger

import (
	"context"

	"github.com/sells-group/premo/internal/model"
	"github.com/sells-group/premo/internal/resilience"
)

// retrying retries transient failures of every ledger call. Concurrent
// sweeps share one SQLite file, so writers can briefly find it locked.
type retrying struct {
	Ledger
	cfg resilience.RetryConfig
}

// WithRetry wraps l so transient errors are retried under cfg.
func WithRetry(l Ledger, cfg resilience.RetryConfig) Ledger {
	return &retrying{Ledger: l, cfg: cfg}
}

func (r *retrying) config(op string) resilience.RetryConfig {
	cfg := r.cfg
	if cfg.OnRetry == nil {
		cfg.OnRetry = resilience.RetryLogger("ledger." + op)
	}
	return cfg
}

func (r *retrying) Get(ctx context.Context, resultName string) (*model.Run, error) {
	return resilience.DoVal(ctx, r.config("get"), func(ctx context.Context) (*model.Run, error) {
		return r.Ledger.Get(ctx, resultName)
	})
}

func (r *retrying) Start(ctx context.Context, resultName string, params model.RunParams) (*model.Run, error) {
	return resilience.DoVal(ctx, r.config("start"), func(ctx context.Context) (*model.Run, error) {
		return r.Ledger.Start(ctx, resultName, params)
	})
}

func (r *retrying) Complete(ctx context.Context, resultName string, outcome *model.RunOutcome) error {
	return resilience.Do(ctx, r.config("complete"), func(ctx context.Context) error {
		return r.Ledger.Complete(ctx, resultName, outcome)
	})
}

func (r *retrying) Fail(ctx context.Context, resultName string, cause error) error {
	return resilience.Do(ctx, r.config("fail"), func(ctx context.Context) error {
		return r.Ledger.Fail(ctx, resultName, cause)
	})
}

func (r *retrying) List(ctx context.Context, filter Filter) ([]model.Run, error) {
	return resilience.DoVal(ctx, r.config("list"), func(ctx context.Context) ([]model.Run, error) {
		return r.Ledger.List(ctx, filter)
	})
}
