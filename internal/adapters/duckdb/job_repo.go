package duckdb

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/opsforge/conductor/internal/core/domain"
)

const jobColumns = `id, job_type, target, payload, status, created_at, started_at, completed_at,
	progress_current, progress_total, progress_message, result, error`

const recoveryMessage = "requeued by stuck-job recovery"

func (r *Repository) Enqueue(ctx context.Context, kind domain.JobKind, target string, payload json.RawMessage) (domain.Job, error) {
	job := domain.Job{
		ID:        domain.JobID(uuid.New().String()),
		Kind:      kind,
		Target:    target,
		Payload:   payload,
		Status:    domain.JobStatusPending,
		CreatedAt: time.Now().UTC(),
	}

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO jobs (id, job_type, target, payload, status, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		string(job.ID), string(job.Kind), job.Target, nullableJSON(job.Payload),
		string(job.Status), job.CreatedAt,
	)
	if err != nil {
		return domain.Job{}, fmt.Errorf("enqueue job: %w", err)
	}
	return job, nil
}

// ClaimNext selects the oldest pending job and flips it to processing in one
// transaction. The guarded UPDATE re-checks status so a concurrent claimer
// can never take the same job twice.
func (r *Repository) ClaimNext(ctx context.Context) (*domain.Job, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin claim tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	row := tx.QueryRowContext(ctx,
		`SELECT `+jobColumns+` FROM jobs WHERE status = ? ORDER BY created_at ASC LIMIT 1`,
		string(domain.JobStatusPending),
	)
	job, err := scanJob(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("select pending: %w", err)
	}

	startedAt := time.Now().UTC()
	res, err := tx.ExecContext(ctx,
		`UPDATE jobs SET status = ?, started_at = ? WHERE id = ? AND status = ?`,
		string(domain.JobStatusProcessing), startedAt, string(job.ID), string(domain.JobStatusPending),
	)
	if err != nil {
		return nil, fmt.Errorf("claim update: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}
	if affected == 0 {
		// Raced with another claimer; treat as empty queue this cycle.
		return nil, nil
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit claim: %w", err)
	}

	job.Status = domain.JobStatusProcessing
	job.StartedAt = &startedAt
	return job, nil
}

func (r *Repository) UpdateProgress(ctx context.Context, id domain.JobID, current, total int, message string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE jobs SET progress_current = ?, progress_total = ?, progress_message = ?
		 WHERE id = ? AND status = ?`,
		current, total, message, string(id), string(domain.JobStatusProcessing),
	)
	if err != nil {
		return fmt.Errorf("update progress: %w", err)
	}
	return r.checkAffected(ctx, res, id)
}

func (r *Repository) Complete(ctx context.Context, id domain.JobID, result json.RawMessage) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE jobs SET status = ?, result = ?, error = NULL, completed_at = ?
		 WHERE id = ? AND status = ?`,
		string(domain.JobStatusCompleted), nullableJSON(result), time.Now().UTC(),
		string(id), string(domain.JobStatusProcessing),
	)
	if err != nil {
		return fmt.Errorf("complete job: %w", err)
	}
	return r.checkAffected(ctx, res, id)
}

func (r *Repository) Fail(ctx context.Context, id domain.JobID, errMsg string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE jobs SET status = ?, error = ?, completed_at = ?
		 WHERE id = ? AND status = ?`,
		string(domain.JobStatusFailed), errMsg, time.Now().UTC(),
		string(id), string(domain.JobStatusProcessing),
	)
	if err != nil {
		return fmt.Errorf("fail job: %w", err)
	}
	return r.checkAffected(ctx, res, id)
}

// RecoverStuck requeues processing jobs claimed before now-threshold.
// Detection is purely time based (no worker heartbeat), so callers must keep
// the threshold above the worst-case legitimate job duration.
func (r *Repository) RecoverStuck(ctx context.Context, threshold time.Duration) (int, error) {
	cutoff := time.Now().UTC().Add(-threshold)
	res, err := r.db.ExecContext(ctx,
		`UPDATE jobs SET status = ?, started_at = NULL,
		        progress_current = 0, progress_total = 0, progress_message = ?
		 WHERE status = ? AND started_at < ?`,
		string(domain.JobStatusPending), recoveryMessage,
		string(domain.JobStatusProcessing), cutoff,
	)
	if err != nil {
		return 0, fmt.Errorf("recover stuck: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	return int(affected), nil
}

func (r *Repository) Get(ctx context.Context, id domain.JobID) (domain.Job, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+jobColumns+` FROM jobs WHERE id = ?`, string(id))
	job, err := scanJob(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Job{}, domain.ErrJobNotFound
		}
		return domain.Job{}, err
	}
	return *job, nil
}

func (r *Repository) List(ctx context.Context, filter domain.JobFilter) ([]domain.Job, error) {
	query := `SELECT ` + jobColumns + ` FROM jobs WHERE 1=1`
	var args []any
	if filter.Status != "" {
		query += ` AND status = ?`
		args = append(args, string(filter.Status))
	}
	if filter.Target != "" {
		query += ` AND target = ?`
		args = append(args, filter.Target)
	}
	query += ` ORDER BY created_at DESC`
	if filter.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, filter.Limit)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	defer rows.Close()

	var jobs []domain.Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, *job)
	}
	return jobs, rows.Err()
}

func (r *Repository) Stats(ctx context.Context) (domain.JobStats, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT status, COUNT(*) FROM jobs GROUP BY status`)
	if err != nil {
		return domain.JobStats{}, fmt.Errorf("job stats: %w", err)
	}
	defer rows.Close()

	var stats domain.JobStats
	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return domain.JobStats{}, err
		}
		switch domain.JobStatus(status) {
		case domain.JobStatusPending:
			stats.Pending = count
		case domain.JobStatusProcessing:
			stats.Processing = count
		case domain.JobStatusCompleted:
			stats.Completed = count
		case domain.JobStatusFailed:
			stats.Failed = count
		}
		stats.Total += count
	}
	return stats, rows.Err()
}

func (r *Repository) Cleanup(ctx context.Context, olderThan time.Duration) (int, error) {
	cutoff := time.Now().UTC().Add(-olderThan)
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM jobs WHERE status IN (?, ?) AND completed_at < ?`,
		string(domain.JobStatusCompleted), string(domain.JobStatusFailed), cutoff,
	)
	if err != nil {
		return 0, fmt.Errorf("cleanup jobs: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	return int(affected), nil
}

// checkAffected distinguishes "job gone" from "job not in processing": the
// worker only touches jobs it claimed, so either way the operation is a bug
// or a recovery race worth surfacing.
func (r *Repository) checkAffected(ctx context.Context, res sql.Result, id domain.JobID) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected > 0 {
		return nil
	}

	var status string
	err = r.db.QueryRowContext(ctx, `SELECT status FROM jobs WHERE id = ?`, string(id)).Scan(&status)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.ErrJobNotFound
	}
	if err != nil {
		return err
	}
	return fmt.Errorf("job %s is %s, not processing", id, status)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanJob(row rowScanner) (*domain.Job, error) {
	var (
		job       domain.Job
		id, kind  string
		status    string
		payload   sql.NullString
		startedAt sql.NullTime
		doneAt    sql.NullTime
		progMsg   sql.NullString
		result    sql.NullString
		jobErr    sql.NullString
	)
	err := row.Scan(&id, &kind, &job.Target, &payload, &status, &job.CreatedAt,
		&startedAt, &doneAt, &job.ProgressCurrent, &job.ProgressTotal,
		&progMsg, &result, &jobErr)
	if err != nil {
		return nil, err
	}

	job.ID = domain.JobID(id)
	job.Kind = domain.JobKind(kind)
	job.Status = domain.JobStatus(status)
	if payload.Valid {
		job.Payload = json.RawMessage(payload.String)
	}
	if startedAt.Valid {
		t := startedAt.Time.UTC()
		job.StartedAt = &t
	}
	if doneAt.Valid {
		t := doneAt.Time.UTC()
		job.CompletedAt = &t
	}
	if progMsg.Valid {
		job.ProgressMessage = progMsg.String
	}
	if result.Valid {
		job.Result = json.RawMessage(result.String)
	}
	if jobErr.Valid && jobErr.String != "" {
		msg := jobErr.String
		job.Error = &msg
	}
	return &job, nil
}

func nullableJSON(raw json.RawMessage) any {
	if len(raw) == 0 {
		return nil
	}
	return string(raw)
}
