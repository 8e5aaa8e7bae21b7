// Package store provides the SQLite-backed ETL run ledger. Every indexing
// run is recorded with its counts and each failed record, so operators can
// see what happened long after the terminal output is gone.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // register "sqlite" driver
)

// Status is the terminal state of a run.
type Status string

const (
	// StatusCompleted means the record loop ran to the end.
	StatusCompleted Status = "completed"
	// StatusAborted means a fatal error stopped the run.
	StatusAborted Status = "aborted"
)

// Failure is a single record that could not be indexed.
type Failure struct {
	// RecordIndex is the record's position in the fetched batch.
	RecordIndex int
	// ProductID is the id the record resolved to.
	ProductID string
	// Stage is the step that failed (embed, upsert, ...).
	Stage string
	// Reason is the error message.
	Reason string
}

// Run is one ETL run.
type Run struct {
	// ID is assigned by Record.
	ID int64
	// Backend is the vector index backend.
	Backend string
	// Index is the index or collection name.
	Index string
	// Recreated is true when the index was dropped first.
	Recreated bool
	// StartedAt and FinishedAt bound the run.
	StartedAt  time.Time
	FinishedAt time.Time
	// Processed, Errors and Total are the run's counts.
	Processed int
	Errors    int
	Total     int
	// Status is completed or aborted.
	Status Status
	// Error is the fatal error message for aborted runs.
	Error string
	// Failures is populated by Record's caller and by Failures, not by Recent.
	Failures []Failure
}

// Ledger persists and retrieves ETL runs. Implementations must be safe for
// concurrent use.
type Ledger interface {
	// Record persists run and its failures and returns the run id.
	Record(ctx context.Context, run Run) (int64, error)
	// Recent returns the most recent n runs, newest first.
	Recent(ctx context.Context, n int) ([]Run, error)
	// Failures returns the failed records of a run in batch order.
	Failures(ctx context.Context, runID int64) ([]Failure, error)
	// Close releases any resources held by the ledger.
	Close() error
}

// SQLiteStore is a Ledger backed by a local SQLite database.
type SQLiteStore struct {
	// db is the underlying database connection pool.
	db *sql.DB
}

// DefaultDBPath returns ~/.catalograg/ledger.db, creating the directory if
// needed.
func DefaultDBPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("store: could not determine home directory: %w", err)
	}
	dir := filepath.Join(home, ".catalograg")
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return "", fmt.Errorf("store: could not create %s: %w", dir, err)
	}
	return filepath.Join(dir, "ledger.db"), nil
}

// Open opens (or creates) a SQLiteStore at the given path and runs the schema
// migration. Use ":memory:" for an in-memory database in tests.
func Open(path string) (*SQLiteStore, error) {
	dsn := path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("store: open %s: %w", path, err)
	}
	// One connection: a single writer, and ":memory:" stays one database.
	db.SetMaxOpenConns(1)

	s := &SQLiteStore{db: db}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// migrate creates the schema if it does not already exist.
func (s *SQLiteStore) migrate() error {
	const ddl = `
CREATE TABLE IF NOT EXISTS etl_runs (
    id           INTEGER PRIMARY KEY AUTOINCREMENT,
    backend      TEXT    NOT NULL,
    index_name   TEXT    NOT NULL,
    recreated    INTEGER NOT NULL DEFAULT 0,
    started_at   INTEGER NOT NULL,  -- Unix milliseconds
    finished_at  INTEGER NOT NULL,  -- Unix milliseconds
    processed    INTEGER NOT NULL,
    errors       INTEGER NOT NULL,
    total        INTEGER NOT NULL,
    status       TEXT    NOT NULL CHECK(status IN ('completed','aborted')),
    error        TEXT    NOT NULL DEFAULT ''
);
CREATE TABLE IF NOT EXISTS etl_failures (
    run_id       INTEGER NOT NULL REFERENCES etl_runs(id) ON DELETE CASCADE,
    record_index INTEGER NOT NULL,
    product_id   TEXT    NOT NULL,
    stage        TEXT    NOT NULL,
    reason       TEXT    NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_etl_failures_run ON etl_failures (run_id, record_index);
`
	if _, err := s.db.Exec(ddl); err != nil {
		return fmt.Errorf("store: migrate: %w", err)
	}
	return nil
}

// Record persists run and its failures in one transaction.
func (s *SQLiteStore) Record(ctx context.Context, run Run) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("store: record: begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	const insRun = `
INSERT INTO etl_runs (backend, index_name, recreated, started_at, finished_at, processed, errors, total, status, error)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	res, err := tx.ExecContext(ctx, insRun,
		run.Backend, run.Index, boolInt(run.Recreated),
		run.StartedAt.UnixMilli(), run.FinishedAt.UnixMilli(),
		run.Processed, run.Errors, run.Total, string(run.Status), run.Error,
	)
	if err != nil {
		return 0, fmt.Errorf("store: record run: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("store: record run id: %w", err)
	}

	const insFailure = `INSERT INTO etl_failures (run_id, record_index, product_id, stage, reason) VALUES (?, ?, ?, ?, ?)`
	for _, f := range run.Failures {
		if _, err := tx.ExecContext(ctx, insFailure, id, f.RecordIndex, f.ProductID, f.Stage, f.Reason); err != nil {
			return 0, fmt.Errorf("store: record failure %q: %w", f.ProductID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("store: record: commit: %w", err)
	}
	return id, nil
}

// Recent returns the most recent n runs, newest first, without failures.
func (s *SQLiteStore) Recent(ctx context.Context, n int) ([]Run, error) {
	const q = `
SELECT id, backend, index_name, recreated, started_at, finished_at, processed, errors, total, status, error
FROM   etl_runs
ORDER  BY started_at DESC, id DESC
LIMIT  ?`

	rows, err := s.db.QueryContext(ctx, q, n)
	if err != nil {
		return nil, fmt.Errorf("store: recent: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var r Run
		var recreated int
		var started, finished int64
		var status string
		if err := rows.Scan(&r.ID, &r.Backend, &r.Index, &recreated, &started, &finished,
			&r.Processed, &r.Errors, &r.Total, &status, &r.Error); err != nil {
			return nil, fmt.Errorf("store: recent scan: %w", err)
		}
		r.Recreated = recreated != 0
		r.StartedAt = time.UnixMilli(started)
		r.FinishedAt = time.UnixMilli(finished)
		r.Status = Status(status)
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: recent rows: %w", err)
	}
	return runs, nil
}

// Failures returns the failed records of run runID in batch order.
func (s *SQLiteStore) Failures(ctx context.Context, runID int64) ([]Failure, error) {
	const q = `
SELECT record_index, product_id, stage, reason
FROM   etl_failures
WHERE  run_id = ?
ORDER  BY record_index ASC`

	rows, err := s.db.QueryContext(ctx, q, runID)
	if err != nil {
		return nil, fmt.Errorf("store: failures: %w", err)
	}
	defer rows.Close()

	var out []Failure
	for rows.Next() {
		var f Failure
		if err := rows.Scan(&f.RecordIndex, &f.ProductID, &f.Stage, &f.Reason); err != nil {
			return nil, fmt.Errorf("store: failures scan: %w", err)
		}
		out = append(out, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: failures rows: %w", err)
	}
	return out, nil
}

// Close releases the database connection pool.
func (s *SQLiteStore) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("store: close: %w", err)
	}
	return nil
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
