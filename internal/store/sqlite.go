package store

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/taxautomation/taxbot/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
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
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS runs (
	id               TEXT PRIMARY KEY,
	status           TEXT NOT NULL DEFAULT 'running',
	entity_type      TEXT NOT NULL,
	industry         TEXT NOT NULL,
	states_requested INTEGER NOT NULL DEFAULT 0,
	states_succeeded INTEGER NOT NULL DEFAULT 0,
	states_failed    INTEGER NOT NULL DEFAULT 0,
	report_path      TEXT,
	estimated_cost   REAL NOT NULL DEFAULT 0,
	started_at       DATETIME NOT NULL DEFAULT (datetime('now')),
	finished_at      DATETIME
);

CREATE TABLE IF NOT EXISTS state_results (
	id               TEXT PRIMARY KEY,
	run_id           TEXT NOT NULL REFERENCES runs(id),
	position         INTEGER NOT NULL,
	state_code       TEXT NOT NULL,
	state_name       TEXT NOT NULL,
	status           TEXT NOT NULL,
	stage            TEXT,
	reason           TEXT,
	source_url       TEXT,
	confidence_score REAL,
	confidence       TEXT,
	fields           TEXT,
	reasoning        TEXT,
	duration_ms      INTEGER NOT NULL DEFAULT 0,
	created_at       DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_runs_status ON runs(status);
CREATE INDEX IF NOT EXISTS idx_state_results_run_id ON state_results(run_id);
CREATE INDEX IF NOT EXISTS idx_state_results_state_code ON state_results(state_code);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) CreateRun(ctx context.Context, run *model.Run) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (id, status, entity_type, industry, states_requested, started_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		run.ID, string(run.Status), run.EntityType, run.Industry, run.StatesRequested, run.StartedAt,
	)
	return eris.Wrap(err, "sqlite: insert run")
}

func (s *SQLiteStore) FinishRun(ctx context.Context, run *model.Run) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE runs SET status = ?, states_succeeded = ?, states_failed = ?,
		 report_path = ?, estimated_cost = ?, finished_at = ? WHERE id = ?`,
		string(run.Status), run.StatesSucceeded, run.StatesFailed,
		run.ReportPath, run.EstimatedCost, run.FinishedAt, run.ID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: finish run %s", run.ID)
	}
	return checkRowsAffected(res, "run", run.ID)
}

func (s *SQLiteStore) GetRun(ctx context.Context, runID string) (*model.Run, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, status, entity_type, industry, states_requested, states_succeeded,
		 states_failed, report_path, estimated_cost, started_at, finished_at
		 FROM runs WHERE id = ?`,
		runID,
	)
	return scanRun(row)
}

func (s *SQLiteStore) ListRuns(ctx context.Context, filter RunFilter) ([]model.Run, error) {
	query := `SELECT id, status, entity_type, industry, states_requested, states_succeeded,
	 states_failed, report_path, estimated_cost, started_at, finished_at
	 FROM runs WHERE 1=1`
	var args []any

	if filter.Status != "" {
		query += ` AND status = ?`
		args = append(args, string(filter.Status))
	}
	query += ` ORDER BY started_at DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += ` LIMIT ?`
	args = append(args, limit)

	if filter.Offset > 0 {
		query += ` OFFSET ?`
		args = append(args, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list runs")
	}
	defer rows.Close()

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

func (s *SQLiteStore) AddStateResult(ctx context.Context, result *model.StateResult) error {
	var fieldsJSON sql.NullString
	if len(result.Fields) > 0 {
		b, err := json.Marshal(result.Fields)
		if err != nil {
			return eris.Wrap(err, "sqlite: marshal fields")
		}
		fieldsJSON = sql.NullString{String: string(b), Valid: true}
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO state_results (id, run_id, position, state_code, state_name, status,
		 stage, reason, source_url, confidence_score, confidence, fields, reasoning,
		 duration_ms, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		result.ID, result.RunID, result.Position, result.StateCode, result.StateName,
		string(result.Status), string(result.Stage), result.Reason, result.SourceURL,
		result.ConfidenceScore, string(result.Confidence), fieldsJSON, result.Reasoning,
		result.DurationMS, result.CreatedAt,
	)
	return eris.Wrapf(err, "sqlite: insert state result for run %s", result.RunID)
}

func (s *SQLiteStore) ListStateResults(ctx context.Context, runID string) ([]model.StateResult, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, run_id, position, state_code, state_name, status, stage, reason,
		 source_url, confidence_score, confidence, fields, reasoning, duration_ms, created_at
		 FROM state_results WHERE run_id = ? ORDER BY position ASC`,
		runID,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list state results")
	}
	defer rows.Close()

	var results []model.StateResult
	for rows.Next() {
		r, err := scanStateResult(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, *r)
	}
	return results, eris.Wrap(rows.Err(), "sqlite: list state results iterate")
}

// helpers

func checkRowsAffected(res sql.Result, entity, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "rows affected")
	}
	if n == 0 {
		return eris.Errorf("%s not found: %s", entity, id)
	}
	return nil
}

type scannable interface {
	Scan(dest ...any) error
}

func scanRun(row scannable) (*model.Run, error) {
	var r model.Run
	var reportPath sql.NullString
	var finishedAt sql.NullTime

	err := row.Scan(&r.ID, &r.Status, &r.EntityType, &r.Industry, &r.StatesRequested,
		&r.StatesSucceeded, &r.StatesFailed, &reportPath, &r.EstimatedCost,
		&r.StartedAt, &finishedAt)
	if err == sql.ErrNoRows {
		return nil, eris.New("run not found")
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: scan run")
	}

	r.ReportPath = reportPath.String
	if finishedAt.Valid {
		t := finishedAt.Time
		r.FinishedAt = &t
	}
	return &r, nil
}

func scanStateResult(row scannable) (*model.StateResult, error) {
	var r model.StateResult
	var stage, reason, sourceURL, confidence, reasoning sql.NullString
	var fieldsJSON sql.NullString
	var score sql.NullFloat64

	err := row.Scan(&r.ID, &r.RunID, &r.Position, &r.StateCode, &r.StateName, &r.Status,
		&stage, &reason, &sourceURL, &score, &confidence, &fieldsJSON, &reasoning,
		&r.DurationMS, &r.CreatedAt)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: scan state result")
	}

	r.Stage = model.Stage(stage.String)
	r.Reason = reason.String
	r.SourceURL = sourceURL.String
	r.ConfidenceScore = score.Float64
	r.Confidence = model.Confidence(confidence.String)
	r.Reasoning = reasoning.String
	if fieldsJSON.Valid {
		if err := json.Unmarshal([]byte(fieldsJSON.String), &r.Fields); err != nil {
			return nil, eris.Wrap(err, "sqlite: unmarshal fields")
		}
	}
	return &r, nil
}
