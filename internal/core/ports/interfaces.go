package ports

import (
	"context"
	"encoding/json"
	"time"

	"github.com/opsforge/conductor/internal/core/domain"
)

// JobRepository abstracts the durable job queue (DuckDB).
type JobRepository interface {
	// Enqueue inserts a new pending job and returns it.
	Enqueue(ctx context.Context, kind domain.JobKind, target string, payload json.RawMessage) (domain.Job, error)

	// ClaimNext atomically flips the oldest pending job to processing,
	// stamps started_at and returns it. Returns nil without blocking when
	// no pending job exists. Safe under concurrent callers.
	ClaimNext(ctx context.Context) (*domain.Job, error)

	UpdateProgress(ctx context.Context, id domain.JobID, current, total int, message string) error

	// Complete and Fail are terminal; both stamp completed_at.
	Complete(ctx context.Context, id domain.JobID, result json.RawMessage) error
	Fail(ctx context.Context, id domain.JobID, errMsg string) error

	// RecoverStuck resets processing jobs whose started_at is older than
	// now-threshold back to pending, clearing started_at and progress.
	// Returns how many jobs were reset.
	RecoverStuck(ctx context.Context, threshold time.Duration) (int, error)

	Get(ctx context.Context, id domain.JobID) (domain.Job, error)
	List(ctx context.Context, filter domain.JobFilter) ([]domain.Job, error)
	Stats(ctx context.Context) (domain.JobStats, error)

	// Cleanup deletes terminal jobs completed before now-olderThan.
	Cleanup(ctx context.Context, olderThan time.Duration) (int, error)
}

// CredentialsRepository persists per-tenant console credentials.
// Secret columns arrive already encrypted; this layer stores bytes only.
type CredentialsRepository interface {
	SaveCredentials(ctx context.Context, creds domain.TenantCredentials) error
	GetCredentials(ctx context.Context, tenantKey string) (domain.TenantCredentials, error)
	ListCredentialTenants(ctx context.Context) ([]string, error)
	DeleteCredentials(ctx context.Context, tenantKey string) error
}

// ResourceLock is the cross-process admission gate over the shared external
// console. It must hold across independent OS processes, not just goroutines.
type ResourceLock interface {
	// Acquire blocks until the lock is held or timeout elapses, in which
	// case it returns domain.ErrLockTimeout. The context cancels waiting.
	Acquire(ctx context.Context, owner string, timeout time.Duration) error

	// TryAcquire attempts the lock once without waiting.
	TryAcquire(owner string) (bool, error)

	// Release is idempotent and must be invoked on every exit path.
	Release() error

	IsLocked() bool
	Holder() (domain.LockInfo, bool)
}

// Engine is one live automation context driving the remote console.
type Engine interface {
	// Call issues a raw DevTools command and returns the result payload.
	Call(ctx context.Context, method string, params any) (json.RawMessage, error)

	// Capture writes a diagnostic snapshot named {label}_{YYYYMMDD_HHMMSS}
	// to the artifacts directory and returns its path. It never returns an
	// error: a failed diagnostic must not mask the underlying failure.
	Capture(ctx context.Context, label string) string

	// AuthState exports the current cookie jar for later seeding.
	AuthState(ctx context.Context) (string, error)

	// Close releases browser, context and process handles. Idempotent.
	Close() error
}

// EngineFactory launches engines. authState, when non-empty, pre-seeds the
// fresh context with previously captured login state.
type EngineFactory interface {
	Launch(ctx context.Context, tenantKey, authState string) (Engine, error)
}

// Authenticator performs the console login handshake for a freshly launched
// engine. Implemented by business collaborators; the core only guarantees it
// runs under the exclusivity lock.
type Authenticator interface {
	Authenticate(ctx context.Context, eng Engine, creds domain.TenantCredentials) error
}

// ProgressReporter lets executors publish progress and observe cancellation
// between batch units.
type ProgressReporter interface {
	Progress(current, total int, message string)
	ShouldCancel() bool
}

// TaskExecutor runs one claimed job of its kind against an authenticated
// session. The core is agnostic to what the executor does on the page.
type TaskExecutor interface {
	Execute(ctx context.Context, sess domain.Session, eng Engine, job domain.Job, rep ProgressReporter) (json.RawMessage, error)
}

// ActionRunner is the business collaborator boundary for individual work
// units. Completion detection should poll for explicit state transitions
// bounded by an overall timeout, not rely on fixed delays.
type ActionRunner interface {
	Run(ctx context.Context, eng Engine, target, action string, item json.RawMessage, params map[string]string) (json.RawMessage, error)
}
