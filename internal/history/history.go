// Package history persists reconciliation runs so operators can see how a
// station's confirmed/rostered gap moves over time.
//
// Backends register themselves under a kind string ("sqlite", "postgres",
// "mssql") from an init() function; callers select one via Config.Kind. The
// registry mirrors the usual database/sql driver pattern so adding a backend
// is an import, not a code change here.
package history

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Config selects and configures a history backend.
//
// Edge cases:
//   - Kind must be non-empty and must match a registered backend kind.
//   - DSN is passed through to the backend factory; validation is
//     backend-specific.
type Config struct {
	Kind string
	DSN  string
}

// Run is one recorded extraction run.
type Run struct {
	ID         int64
	Page       string
	Target     string
	At         time.Time
	Confirmed  int
	Rostered   int
	Mismatches int
}

// Mismatch is one DSP-level discrepancy within a run.
type Mismatch struct {
	DSP       string
	Confirmed int
	Rostered  int
	Delta     int
}

// Repository is a backend-agnostic store for run history.
//
// This interface is intentionally minimal: record a run with its mismatch
// rows, and read recent runs back for reporting. Each backend implements the
// semantics in its own idiomatic way (Postgres RETURNING, SQLite
// last_insert_rowid, MSSQL OUTPUT).
type Repository interface {
	// Close releases backend resources. Treat as "call once".
	Close()

	// EnsureSchema creates tables as needed. Idempotent; called at startup.
	EnsureSchema(ctx context.Context) error

	// RecordRun persists a run and its mismatch rows, returning the run ID.
	RecordRun(ctx context.Context, run Run, mismatches []Mismatch) (int64, error)

	// RecentRuns returns up to limit runs, newest first.
	RecentRuns(ctx context.Context, limit int) ([]Run, error)
}

type factory func(ctx context.Context, cfg Config) (Repository, error)

var (
	mu        sync.RWMutex
	factories = map[string]factory{}
)

// Register registers a backend under a kind.
//
// Panics:
//   - If kind is empty.
//   - If f is nil.
//   - If kind is already registered. Failing fast avoids ambiguous backend
//     selection.
func Register(kind string, f factory) {
	mu.Lock()
	defer mu.Unlock()

	if kind == "" {
		panic("history: Register called with empty kind")
	}
	if f == nil {
		panic("history: Register called with nil factory")
	}
	if _, exists := factories[kind]; exists {
		panic(fmt.Sprintf("history: factory already registered for kind=%q", kind))
	}

	factories[kind] = f
}

// New constructs a Repository using the registered backend factory.
//
// Errors:
//   - Returns an error if cfg.Kind is empty or unsupported.
//   - Returns whatever error the registered factory returns.
func New(ctx context.Context, cfg Config) (Repository, error) {
	if cfg.Kind == "" {
		return nil, fmt.Errorf("history: missing kind")
	}

	mu.RLock()
	f := factories[cfg.Kind]
	mu.RUnlock()

	if f == nil {
		return nil, fmt.Errorf("unsupported history kind=%s", cfg.Kind)
	}
	return f(ctx, cfg)
}
