package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/sells-group/premo/internal/model"
)

// Pool is the subset of pgxpool.Pool the ledger uses.
type Pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresLedger implements Ledger using pgxpool.
type PostgresLedger struct {
	pool    Pool
	closeFn func()
}

// NewPostgres creates a PostgresLedger with a small connection pool.
func NewPostgres(ctx context.Context, connString string) (*PostgresLedger, error) {
	cfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}
	cfg.MaxConns = 4
	cfg.MaxConnLifetime = 30 * time.Minute
	cfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresLedger{pool: pool, closeFn: pool.Close}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS premo_runs (
	id          TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	result_name TEXT NOT NULL UNIQUE,
	params      JSONB NOT NULL,
	status      TEXT NOT NULL DEFAULT 'running',
	outcome     JSONB,
	error       TEXT,
	created_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_premo_runs_status ON premo_runs(status);
`

func (s *PostgresLedger) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresLedger) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

func (s *PostgresLedger) Start(ctx context.Context, name string, params model.RunParams) (*model.Run, error) {
	now := time.Now().UTC()

	paramsJSON, err := json.Marshal(params)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: marshal params")
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO premo_runs (id, result_name, params, status, created_at, updated_at) VALUES ($1, $2, $3, $4, $5, $6)
		 ON CONFLICT (result_name) DO UPDATE SET params = EXCLUDED.params, status = EXCLUDED.status,
		 outcome = NULL, error = NULL, updated_at = EXCLUDED.updated_at`,
		uuid.New().String(), name, paramsJSON, string(model.RunStatusRunning), now, now,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: start run %s", name)
	}
	return s.Get(ctx, name)
}

func (s *PostgresLedger) Complete(ctx context.Context, resultName string, outcome *model.RunOutcome) error {
	outcomeJSON, err := json.Marshal(outcome)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal outcome")
	}

	tag, err := s.pool.Exec(ctx,
		`UPDATE premo_runs SET outcome = $1, status = $2, error = NULL, updated_at = $3 WHERE result_name = $4`,
		outcomeJSON, string(model.RunStatusComplete), time.Now().UTC(), resultName,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: complete run %s", resultName)
	}
	if tag.RowsAffected() == 0 {
		return eris.Wrapf(ErrNotFound, "%s", resultName)
	}
	return nil
}

func (s *PostgresLedger) Fail(ctx context.Context, resultName string, cause error) error {
	msg := ""
	if cause != nil {
		msg = cause.Error()
	}
	tag, err := s.pool.Exec(ctx,
		`UPDATE premo_runs SET status = $1, error = $2, updated_at = $3 WHERE result_name = $4`,
		string(model.RunStatusFailed), msg, time.Now().UTC(), resultName,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: fail run %s", resultName)
	}
	if tag.RowsAffected() == 0 {
		return eris.Wrapf(ErrNotFound, "%s", resultName)
	}
	return nil
}

func (s *PostgresLedger) Get(ctx context.Context, resultName string) (*model.Run, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT id, result_name, params, status, outcome, error, created_at, updated_at FROM premo_runs WHERE result_name = $1`,
		resultName,
	)
	r, err := scanPgRun(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get run %s", resultName)
	}
	return r, nil
}

func (s *PostgresLedger) List(ctx context.Context, filter Filter) ([]model.Run, error) {
	query := `SELECT id, result_name, params, status, outcome, error, created_at, updated_at FROM premo_runs WHERE 1=1`
	var args []any
	n := 1
	next := func() string {
		p := "$" + strconv.Itoa(n)
		n++
		return p
	}

	if filter.Status != "" {
		query += ` AND status = ` + next()
		args = append(args, string(filter.Status))
	}
	if filter.Prefix != "" {
		query += ` AND result_name LIKE ` + next()
		args = append(args, filter.Prefix+"%")
	}
	query += ` ORDER BY created_at DESC, result_name LIMIT ` + next()
	args = append(args, defaultLimit(filter.Limit))
	if filter.Offset > 0 {
		query += ` OFFSET ` + next()
		args = append(args, filter.Offset)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list runs")
	}
	defer rows.Close()

	var runs []model.Run
	for rows.Next() {
		r, err := scanPgRun(rows)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: scan run")
		}
		runs = append(runs, *r)
	}
	return runs, eris.Wrap(rows.Err(), "postgres: list runs iterate")
}

func scanPgRun(row pgx.Row) (*model.Run, error) {
	var r model.Run
	var status string
	var paramsJSON, outcomeJSON []byte
	var errText *string

	if err := row.Scan(&r.ID, &r.ResultName, &paramsJSON, &status, &outcomeJSON, &errText, &r.CreatedAt, &r.UpdatedAt); err != nil {
		return nil, err
	}
	r.Status = model.RunStatus(status)
	if err := json.Unmarshal(paramsJSON, &r.Params); err != nil {
		return nil, eris.Wrap(err, "postgres: unmarshal params")
	}
	if len(outcomeJSON) > 0 && string(outcomeJSON) != "null" {
		r.Outcome = &model.RunOutcome{}
		if err := json.Unmarshal(outcomeJSON, r.Outcome); err != nil {
			return nil, eris.Wrap(err, "postgres: unmarshal outcome")
		}
	}
	if errText != nil {
		r.Error = *errText
	}
	return &r, nil
}
