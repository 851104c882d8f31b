package duckdb

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/marcboeker/go-duckdb/v2"

	"github.com/opsforge/conductor/internal/core/ports"
)

// Repository is the DuckDB-backed persistence layer for jobs and tenant
// credentials. DuckDB tolerates a single writer, so the pool is pinned to
// one connection; claim transactions serialize behind it.
type Repository struct {
	db *sql.DB
}

func NewRepository(path string) (*Repository, error) {
	db, err := sql.Open("duckdb", path)
	if err != nil {
		return nil, fmt.Errorf("open duckdb: %w", err)
	}
	db.SetMaxOpenConns(1)

	r := &Repository{db: db}
	if err := r.initSchema(context.Background()); err != nil {
		db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}
	return r, nil
}

var (
	_ ports.JobRepository         = (*Repository)(nil)
	_ ports.CredentialsRepository = (*Repository)(nil)
)

func (r *Repository) Close() error {
	return r.db.Close()
}

func (r *Repository) initSchema(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS jobs (
		id TEXT PRIMARY KEY,
		job_type TEXT NOT NULL,
		target TEXT NOT NULL,
		payload TEXT,
		status TEXT NOT NULL CHECK (status IN ('pending','processing','completed','failed')),
		created_at TIMESTAMP NOT NULL,
		started_at TIMESTAMP,
		completed_at TIMESTAMP,
		progress_current INTEGER NOT NULL DEFAULT 0,
		progress_total INTEGER NOT NULL DEFAULT 0,
		progress_message TEXT,
		result TEXT,
		error TEXT
	);
	CREATE INDEX IF NOT EXISTS idx_jobs_status_created ON jobs(status, created_at);

	CREATE TABLE IF NOT EXISTS tenant_credentials (
		tenant_key TEXT PRIMARY KEY,
		username TEXT NOT NULL,
		password TEXT,
		auth_state TEXT,
		updated_at TIMESTAMP NOT NULL
	);
	`
	_, err := r.db.ExecContext(ctx, schema)
	return err
}
