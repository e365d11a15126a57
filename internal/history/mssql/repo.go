// Package mssql is the history backend for sites whose reporting warehouse
// runs on SQL Server.
package mssql

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/microsoft/go-mssqldb"

	"rosterwatch/internal/history"
)

// Repo implements history.Repository for Microsoft SQL Server.
type Repo struct {
	db *sql.DB
}

func init() {
	history.Register("mssql", New)
}

func New(ctx context.Context, cfg history.Config) (history.Repository, error) {
	db, err := sql.Open("sqlserver", cfg.DSN)
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

// EnsureSchema creates the tables if missing. SQL Server has no
// CREATE TABLE IF NOT EXISTS, so existence is checked via OBJECT_ID.
func (r *Repo) EnsureSchema(ctx context.Context) error {
	ddl := []string{
		`IF OBJECT_ID(N'runs', N'U') IS NULL
CREATE TABLE runs (
  id BIGINT IDENTITY(1,1) PRIMARY KEY,
  page NVARCHAR(64) NOT NULL,
  target NVARCHAR(64) NOT NULL,
  run_at DATETIMEOFFSET NOT NULL,
  confirmed INT NOT NULL,
  rostered INT NOT NULL,
  mismatches INT NOT NULL
);`,
		`IF OBJECT_ID(N'mismatches', N'U') IS NULL
CREATE TABLE mismatches (
  run_id BIGINT NOT NULL REFERENCES runs(id),
  dsp NVARCHAR(64) NOT NULL,
  confirmed INT NOT NULL,
  rostered INT NOT NULL,
  delta INT NOT NULL
);`,
	}
	for _, q := range ddl {
		if _, err := r.db.ExecContext(ctx, q); err != nil {
			return fmt.Errorf("mssql ensure schema: %w", err)
		}
	}
	return nil
}

// RecordRun writes the run and its mismatch rows transactionally, using
// OUTPUT INSERTED.id for the generated run ID.
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
	var id int64
	err = tx.QueryRowContext(ctx,
		`INSERT INTO runs (page, target, run_at, confirmed, rostered, mismatches)
		 OUTPUT INSERTED.id
		 VALUES (@p1, @p2, @p3, @p4, @p5, @p6)`,
		run.Page, run.Target, at.UTC(), run.Confirmed, run.Rostered, run.Mismatches,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert run: %w", err)
	}

	for _, m := range mismatches {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO mismatches (run_id, dsp, confirmed, rostered, delta)
			 VALUES (@p1, @p2, @p3, @p4, @p5)`,
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
		`SELECT TOP (@p1) id, page, target, run_at, confirmed, rostered, mismatches
		 FROM runs ORDER BY id DESC`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []history.Run
	for rows.Next() {
		var run history.Run
		if err := rows.Scan(&run.ID, &run.Page, &run.Target, &run.At, &run.Confirmed, &run.Rostered, &run.Mismatches); err != nil {
			return nil, err
		}
		out = append(out, run)
	}
	return out, rows.Err()
}
