package ledger

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/premo/internal/model"
)

// SQLiteLedger implements Ledger using modernc.org/sqlite.
type SQLiteLedger struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteLedger, error) {
	if dsn == "" {
		dsn = "premo.db"
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			_ = db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteLedger{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS runs (
	id          TEXT PRIMARY KEY,
	result_name TEXT NOT NULL UNIQUE,
	params      TEXT NOT NULL,
	status      TEXT NOT NULL DEFAULT 'running',
	outcome     TEXT,
	error       TEXT,
	created_at  DATETIME NOT NULL DEFAULT (datetime('now')),
	updated_at  DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_runs_status ON runs(status);
`

func (s *SQLiteLedger) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteLedger) Close() error {
	return s.db.Close()
}

func (s *SQLiteLedger) Start(ctx context.Context, name string, params model.RunParams) (*model.Run, error) {
	now := time.Now().UTC()

	paramsJSON, err := json.Marshal(params)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: marshal params")
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO runs (id, result_name, params, status, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(result_name) DO UPDATE SET params = excluded.params, status = excluded.status,
		 outcome = NULL, error = NULL, updated_at = excluded.updated_at`,
		uuid.New().String(), name, string(paramsJSON), string(model.RunStatusRunning), now, now,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: start run %s", name)
	}
	return s.Get(ctx, name)
}

func (s *SQLiteLedger) Complete(ctx context.Context, resultName string, outcome *model.RunOutcome) error {
	outcomeJSON, err := json.Marshal(outcome)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal outcome")
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE runs SET outcome = ?, status = ?, error = NULL, updated_at = ? WHERE result_name = ?`,
		string(outcomeJSON), string(model.RunStatusComplete), time.Now().UTC(), resultName,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: complete run %s", resultName)
	}
	return checkRowsAffected(res, resultName)
}

func (s *SQLiteLedger) Fail(ctx context.Context, resultName string, cause error) error {
	msg := ""
	if cause != nil {
		msg = cause.Error()
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE runs SET status = ?, error = ?, updated_at = ? WHERE result_name = ?`,
		string(model.RunStatusFailed), msg, time.Now().UTC(), resultName,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: fail run %s", resultName)
	}
	return checkRowsAffected(res, resultName)
}

func (s *SQLiteLedger) Get(ctx context.Context, resultName string) (*model.Run, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, result_name, params, status, outcome, error, created_at, updated_at FROM runs WHERE result_name = ?`,
		resultName,
	)
	return scanRun(row)
}

func (s *SQLiteLedger) List(ctx context.Context, filter Filter) ([]model.Run, error) {
	query := `SELECT id, result_name, params, status, outcome, error, created_at, updated_at FROM runs WHERE 1=1`
	var args []any

	if filter.Status != "" {
		query += ` AND status = ?`
		args = append(args, string(filter.Status))
	}
	if filter.Prefix != "" {
		query += ` AND result_name LIKE ?`
		args = append(args, filter.Prefix+"%")
	}
	query += ` ORDER BY created_at DESC, result_name LIMIT ?`
	args = append(args, defaultLimit(filter.Limit))

	if filter.Offset > 0 {
		query += ` OFFSET ?`
		args = append(args, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list runs")
	}
	defer func() { _ = rows.Close() }()

	var runs []model.Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *r)
	}
	return runs, eris.Wrap(rows.Err(), "sqlite: list runs iterate")
}

// helpers

func checkRowsAffected(res sql.Result, resultName string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "rows affected")
	}
	if n == 0 {
		return eris.Wrapf(ErrNotFound, "%s", resultName)
	}
	return nil
}

type scannable interface {
	Scan(dest ...any) error
}

func scanRun(row scannable) (*model.Run, error) {
	var r model.Run
	var paramsJSON string
	var outcomeJSON, errText sql.NullString

	err := row.Scan(&r.ID, &r.ResultName, &paramsJSON, &r.Status, &outcomeJSON, &errText, &r.CreatedAt, &r.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: scan run")
	}

	if err := json.Unmarshal([]byte(paramsJSON), &r.Params); err != nil {
		return nil, eris.Wrap(err, "sqlite: unmarshal params")
	}
	if outcomeJSON.Valid && outcomeJSON.String != "" {
		r.Outcome = &model.RunOutcome{}
		if err := json.Unmarshal([]byte(outcomeJSON.String), r.Outcome); err != nil {
			return nil, eris.Wrap(err, "sqlite: unmarshal outcome")
		}
	}
	r.Error = errText.String
	return &r, nil
}
