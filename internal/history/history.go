// Package history persists validation runs in a local SQLite database so a
// fixture directory's provenance health can be tracked over time.
package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // Pure-Go SQLite driver.

	"github.com/papapumpkin/fixreg/internal/fixture"
)

// schema contains the DDL executed on open. IF NOT EXISTS keeps it idempotent.
const schema = `
CREATE TABLE IF NOT EXISTS runs (
    id              TEXT PRIMARY KEY,
    started_at      TEXT NOT NULL,
    dir             TEXT NOT NULL,
    fixture_count   INTEGER NOT NULL,
    violation_count INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS violations (
    run_id  TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
    seq     INTEGER NOT NULL,
    kind    TEXT NOT NULL,
    fixture TEXT NOT NULL,
    detail  TEXT NOT NULL DEFAULT '',
    PRIMARY KEY (run_id, seq)
);

CREATE INDEX IF NOT EXISTS runs_started_at ON runs(started_at);
`

// timeLayout stores timestamps as fixed-width UTC text so they sort
// lexically in chronological order.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// ErrRunNotFound is returned by Get for an unknown run ID.
var ErrRunNotFound = errors.New("history: run not found")

// Run is one recorded validation pass.
type Run struct {
	ID             string
	StartedAt      time.Time
	Dir            string
	FixtureCount   int
	ViolationCount int
	Violations     []fixture.Violation // populated by Record and Get; nil from Recent
}

// Store is a SQLite-backed run history.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) the history database at path, enabling WAL mode
// and creating the schema if needed.
func Open(ctx context.Context, path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("history: create directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("history: open database: %w", err)
	}

	// SQLite has a single writer; one connection keeps PRAGMAs consistent.
	db.SetMaxOpenConns(1)

	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("history: %s: %w", pragma, err)
		}
	}

	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("history: create schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Record stores a run and its violations in one transaction. An empty ID is
// replaced by a new UUID; the stored run is returned.
func (s *Store) Record(ctx context.Context, run Run) (Run, error) {
	if run.ID == "" {
		run.ID = uuid.NewString()
	}
	run.ViolationCount = len(run.Violations)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Run{}, fmt.Errorf("history: begin: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	const insertRun = `
		INSERT INTO runs (id, started_at, dir, fixture_count, violation_count)
		VALUES (?, ?, ?, ?, ?)`
	if _, err := tx.ExecContext(ctx, insertRun,
		run.ID, run.StartedAt.UTC().Format(timeLayout), run.Dir, run.FixtureCount, run.ViolationCount); err != nil {
		return Run{}, fmt.Errorf("history: insert run %s: %w", run.ID, err)
	}

	const insertViolation = `
		INSERT INTO violations (run_id, seq, kind, fixture, detail)
		VALUES (?, ?, ?, ?, ?)`
	for i, v := range run.Violations {
		if _, err := tx.ExecContext(ctx, insertViolation,
			run.ID, i, string(v.Kind), v.Fixture, v.Detail); err != nil {
			return Run{}, fmt.Errorf("history: insert violation: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return Run{}, fmt.Errorf("history: commit: %w", err)
	}
	return run, nil
}

// Recent returns up to limit runs, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 10
	}
	const q = `
		SELECT id, started_at, dir, fixture_count, violation_count
		FROM runs ORDER BY started_at DESC, rowid DESC LIMIT ?`
	rows, err := s.db.QueryContext(ctx, q, limit)
	if err != nil {
		return nil, fmt.Errorf("history: query runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var r Run
		var started string
		if err := rows.Scan(&r.ID, &started, &r.Dir, &r.FixtureCount, &r.ViolationCount); err != nil {
			return nil, fmt.Errorf("history: scan run: %w", err)
		}
		if r.StartedAt, err = time.Parse(timeLayout, started); err != nil {
			return nil, fmt.Errorf("history: run %s: %w", r.ID, err)
		}
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("history: iterate runs: %w", err)
	}
	return runs, nil
}

// Get returns the run with the given ID together with its violations.
func (s *Store) Get(ctx context.Context, id string) (Run, error) {
	const q = `
		SELECT id, started_at, dir, fixture_count, violation_count
		FROM runs WHERE id = ?`
	var r Run
	var started string
	err := s.db.QueryRowContext(ctx, q, id).Scan(&r.ID, &started, &r.Dir, &r.FixtureCount, &r.ViolationCount)
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	if err != nil {
		return Run{}, fmt.Errorf("history: query run %s: %w", id, err)
	}
	if r.StartedAt, err = time.Parse(timeLayout, started); err != nil {
		return Run{}, fmt.Errorf("history: run %s: %w", r.ID, err)
	}
	if r.Violations, err = s.Violations(ctx, id); err != nil {
		return Run{}, err
	}
	return r, nil
}

// Violations returns the violations recorded for runID in their original order.
func (s *Store) Violations(ctx context.Context, runID string) ([]fixture.Violation, error) {
	const q = `SELECT kind, fixture, detail FROM violations WHERE run_id = ? ORDER BY seq`
	rows, err := s.db.QueryContext(ctx, q, runID)
	if err != nil {
		return nil, fmt.Errorf("history: query violations %s: %w", runID, err)
	}
	defer rows.Close()

	var out []fixture.Violation
	for rows.Next() {
		var v fixture.Violation
		var kind string
		if err := rows.Scan(&kind, &v.Fixture, &v.Detail); err != nil {
			return nil, fmt.Errorf("history: scan violation: %w", err)
		}
		v.Kind = fixture.ViolationKind(kind)
		out = append(out, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("history: iterate violations: %w", err)
	}
	return out, nil
}
