// Package sqlite is the file-backed history backend, suited to a single
// operator box with no database server.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"rosterwatch/internal/history"
)

// Repo implements history.Repository for SQLite.
//
// SQLite has no native timestamp type; run times are stored as RFC3339Nano
// TEXT for reliable round-trip behavior and easy debugging, matching how the
// modernc.org/sqlite driver scans TEXT affinity.
type Repo struct {
	db *sql.DB
}

func init() {
	history.Register("sqlite", New)
}

func New(ctx context.Context, cfg history.Config) (history.Repository, error) {
	db, err := sql.Open("sqlite", cfg.DSN)
	if err != nil {
		return nil, err
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Repo{db: db}, nil
}

func (r *Repo) Close() { _ = r.db.Close() }

// EnsureSchema creates the runs and mismatches tables if missing.
func (r *Repo) EnsureSchema(ctx context.Context) error {
	ddl := []string{
		`CREATE TABLE IF NOT EXISTS runs (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  page TEXT NOT NULL,
  target TEXT NOT NULL,
  run_at TEXT NOT NULL,
  confirmed INTEGER NOT NULL,
  rostered INTEGER NOT NULL,
  mismatches INTEGER NOT NULL
);`,
		`CREATE TABLE IF NOT EXISTS mismatches (
  run_id INTEGER NOT NULL REFERENCES runs(id),
  dsp TEXT NOT NULL,
  confirmed INTEGER NOT NULL,
  rostered INTEGER NOT NULL,
  delta INTEGER NOT NULL
);`,
	}
	for _, q := range ddl {
		if _, err := r.db.ExecContext(ctx, q); err != nil {
			return fmt.Errorf("sqlite ensure schema: %w", err)
		}
	}
	return nil
}

// RecordRun writes the run and its mismatch rows in one transaction.
func (r *Repo) RecordRun(ctx context.Context, run history.Run, mismatches []history.Mismatch) (int64, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer func() { _ = tx.Rollback() }()

	at := run.At
	if at.IsZero() {
		at = time.Now()
	}
	res, err := tx.ExecContext(ctx,
		`INSERT INTO runs (page, target, run_at, confirmed, rostered, mismatches) VALUES (?, ?, ?, ?, ?, ?)`,
		run.Page, run.Target, at.UTC().Format(time.RFC3339Nano),
		run.Confirmed, run.Rostered, run.Mismatches,
	)
	if err != nil {
		return 0, fmt.Errorf("insert run: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}

	for _, m := range mismatches {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO mismatches (run_id, dsp, confirmed, rostered, delta) VALUES (?, ?, ?, ?, ?)`,
			id, m.DSP, m.Confirmed, m.Rostered, m.Delta,
		); err != nil {
			return 0, fmt.Errorf("insert mismatch %s: %w", m.DSP, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return id, nil
}

func (r *Repo) RecentRuns(ctx context.Context, limit int) ([]history.Run, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, page, target, run_at, confirmed, rostered, mismatches FROM runs ORDER BY id DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []history.Run
	for rows.Next() {
		var run history.Run
		var at string
		if err := rows.Scan(&run.ID, &run.Page, &run.Target, &at, &run.Confirmed, &run.Rostered, &run.Mismatches); err != nil {
			return nil, err
		}
		run.At, err = time.Parse(time.RFC3339Nano, at)
		if err != nil {
			return nil, fmt.Errorf("sqlite: parse runs.run_at=%q: %w", at, err)
		}
		out = append(out, run)
	}
	return out, rows.Err()
}
