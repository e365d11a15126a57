// Package postgres is the history backend for shared multi-station
// deployments where several stations report into one database.
package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"rosterwatch/internal/history"
)

// Repo implements history.Repository for Postgres using a pgx pool.
type Repo struct {
	pool *pgxpool.Pool
}

func init() {
	history.Register("postgres", New)
}

func New(ctx context.Context, cfg history.Config) (history.Repository, error) {
	pool, err := pgxpool.New(ctx, cfg.DSN)
	if err != nil {
		return nil, err
	}
	return &Repo{pool: pool}, nil
}

func (r *Repo) Close() { r.pool.Close() }

func (r *Repo) EnsureSchema(ctx context.Context) error {
	ddl := []string{
		`CREATE TABLE IF NOT EXISTS runs (
  id BIGSERIAL PRIMARY KEY,
  page TEXT NOT NULL,
  target TEXT NOT NULL,
  run_at TIMESTAMPTZ NOT NULL,
  confirmed INT NOT NULL,
  rostered INT NOT NULL,
  mismatches INT NOT NULL
);`,
		`CREATE TABLE IF NOT EXISTS mismatches (
  run_id BIGINT NOT NULL REFERENCES runs(id),
  dsp TEXT NOT NULL,
  confirmed INT NOT NULL,
  rostered INT NOT NULL,
  delta INT NOT NULL
);`,
	}
	for _, q := range ddl {
		if _, err := r.pool.Exec(ctx, q); err != nil {
			return fmt.Errorf("postgres ensure schema: %w", err)
		}
	}
	return nil
}

// RecordRun writes the run and its mismatch rows transactionally, using
// RETURNING for the generated run ID.
func (r *Repo) RecordRun(ctx context.Context, run history.Run, mismatches []history.Mismatch) (int64, error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return 0, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	at := run.At
	if at.IsZero() {
		at = time.Now()
	}
	var id int64
	err = tx.QueryRow(ctx,
		`INSERT INTO runs (page, target, run_at, confirmed, rostered, mismatches)
		 VALUES ($1, $2, $3, $4, $5, $6) RETURNING id`,
		run.Page, run.Target, at.UTC(), run.Confirmed, run.Rostered, run.Mismatches,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert run: %w", err)
	}

	for _, m := range mismatches {
		if _, err := tx.Exec(ctx,
			`INSERT INTO mismatches (run_id, dsp, confirmed, rostered, delta)
			 VALUES ($1, $2, $3, $4, $5)`,
			id, m.DSP, m.Confirmed, m.Rostered, m.Delta,
		); err != nil {
			return 0, fmt.Errorf("insert mismatch %s: %w", m.DSP, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, err
	}
	return id, nil
}

func (r *Repo) RecentRuns(ctx context.Context, limit int) ([]history.Run, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := r.pool.Query(ctx,
		`SELECT id, page, target, run_at, confirmed, rostered, mismatches
		 FROM runs ORDER BY id DESC LIMIT $1`, limit)
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
