package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/opsforge/conductor/internal/core/domain"
	"github.com/opsforge/conductor/internal/core/ports"
)

// sessionProvider is the slice of SessionManager the worker needs.
type sessionProvider interface {
	GetOrCreate(ctx context.Context, tenantKey string) (*ActiveSession, error)
	Release(id domain.SessionID)
}

type WorkerConfig struct {
	PollInterval    time.Duration // sleep between empty claims
	LockTimeout     time.Duration // max wait for the console lock per job
	StuckThreshold  time.Duration // recovery cutoff; must dwarf real job durations
	RecoverInterval time.Duration // cadence of stuck-job recovery passes
}

func (c *WorkerConfig) withDefaults() {
	if c.PollInterval <= 0 {
		c.PollInterval = 5 * time.Second
	}
	if c.LockTimeout <= 0 {
		c.LockTimeout = 5 * time.Minute
	}
	if c.StuckThreshold <= 0 {
		c.StuckThreshold = 2 * time.Hour
	}
	if c.RecoverInterval <= 0 {
		c.RecoverInterval = 10 * time.Minute
	}
}

// Worker is the single background loop: claim the oldest pending job,
// acquire the console lock and a tenant session, dispatch to the kind's
// executor, record the outcome. One job runs to completion before the next
// claim — the console tolerates exactly one automated session, so more
// workers would add correctness risk and no throughput.
type Worker struct {
	logger   *slog.Logger
	repo     ports.JobRepository
	lock     ports.ResourceLock
	sessions sessionProvider
	registry *ExecutorRegistry
	cfg      WorkerConfig

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

func NewWorker(logger *slog.Logger, repo ports.JobRepository, lock ports.ResourceLock, sessions sessionProvider, registry *ExecutorRegistry, cfg WorkerConfig) *Worker {
	cfg.withDefaults()
	return &Worker{
		logger:   logger,
		repo:     repo,
		lock:     lock,
		sessions: sessions,
		registry: registry,
		cfg:      cfg,
	}
}

// Start launches the loop on its own goroutine. It is not reentrant.
func (w *Worker) Start() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.cancel != nil {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	w.cancel = cancel
	w.done = make(chan struct{})
	go func() {
		defer close(w.done)
		w.run(ctx)
	}()
}

// Stop signals the loop to exit, waking any poll sleep immediately, and
// waits up to timeout for it to drain. An in-flight automation call runs to
// its own timeout; overrun is logged, never forced.
func (w *Worker) Stop(timeout time.Duration) {
	w.mu.Lock()
	cancel, done := w.cancel, w.done
	w.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()

	select {
	case <-done:
		w.logger.Info("worker stopped")
	case <-time.After(timeout):
		w.logger.Warn("worker did not stop within timeout; abandoning wait", "timeout", timeout)
	}
}

// Run is the blocking form of Start/Stop for errgroup-style supervision.
func (w *Worker) Run(ctx context.Context) error {
	w.run(ctx)
	return nil
}

func (w *Worker) run(ctx context.Context) {
	w.logger.Info("worker started",
		"poll_interval", w.cfg.PollInterval, "stuck_threshold", w.cfg.StuckThreshold)

	// Requeue anything a crashed predecessor left in processing.
	w.recoverStuck(ctx)
	lastRecovery := time.Now()

	for {
		if ctx.Err() != nil {
			w.logger.Info("worker loop exiting")
			return
		}

		if time.Since(lastRecovery) >= w.cfg.RecoverInterval {
			w.recoverStuck(ctx)
			lastRecovery = time.Now()
		}

		job, err := w.repo.ClaimNext(ctx)
		if err != nil {
			// Store unavailable is never fatal: log, back off one poll
			// cycle, try again.
			w.logger.Error("claim failed", "error", err)
			w.sleep(ctx)
			continue
		}
		if job == nil {
			w.sleep(ctx)
			continue
		}

		w.execute(ctx, job)
	}
}

// execute runs one claimed job end to end. Nothing that happens in here may
// escape and kill the loop.
func (w *Worker) execute(ctx context.Context, job *domain.Job) {
	w.logger.Info("executing job",
		"job_id", job.ID, "kind", job.Kind, "target", job.Target)

	executor, ok := w.registry.For(job.Kind)
	if !ok {
		// Enqueue-time validation makes this unreachable unless the process
		// restarted with a different registration set.
		w.failJob(ctx, job.ID, fmt.Sprintf("no executor registered for kind %q", job.Kind))
		return
	}

	owner := "conductor-worker:" + string(job.ID)
	if err := w.lock.Acquire(ctx, owner, w.cfg.LockTimeout); err != nil {
		if errors.Is(err, context.Canceled) {
			// Shutting down; leave the job in processing for recovery.
			return
		}
		w.failJob(ctx, job.ID, fmt.Sprintf("console lock: %v", err))
		return
	}
	// Scoped-resource discipline: the lock is released on every exit path.
	defer func() {
		if err := w.lock.Release(); err != nil {
			w.logger.Error("lock release failed", "job_id", job.ID, "error", err)
		}
	}()

	sess, err := w.sessions.GetOrCreate(ctx, job.Target)
	if err != nil {
		w.failJob(ctx, job.ID, err.Error())
		return
	}
	// Check the session back in so the TTL sweep can reclaim it. While
	// checked out it is pinned, no matter how long the job runs.
	defer w.sessions.Release(sess.ID)

	rep := &progressReporter{logger: w.logger, repo: w.repo, ctx: ctx, jobID: job.ID}
	result, err := executor.Execute(ctx, sess.Session, sess.Engine, *job, rep)

	// Past this point the automation already ran; recording its outcome must
	// survive a Stop that cancelled the loop context mid-job.
	recCtx, recCancel := context.WithTimeout(context.WithoutCancel(ctx), 15*time.Second)
	defer recCancel()

	if err != nil {
		sess.Engine.Capture(recCtx, "job_failed_"+string(job.ID))
		w.failJob(recCtx, job.ID, err.Error())
		return
	}

	if err := w.repo.Complete(recCtx, job.ID, result); err != nil {
		w.logger.Error("failed to record completion", "job_id", job.ID, "error", err)
		return
	}
	w.logger.Info("job completed", "job_id", job.ID)
}

func (w *Worker) failJob(ctx context.Context, id domain.JobID, msg string) {
	w.logger.Error("job failed", "job_id", id, "error", msg)
	// Detached from the loop cancel: the failure is recorded even when it
	// was observed during shutdown.
	recCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 15*time.Second)
	defer cancel()
	if err := w.repo.Fail(recCtx, id, msg); err != nil {
		w.logger.Error("failed to record failure", "job_id", id, "error", err)
	}
}

func (w *Worker) recoverStuck(ctx context.Context) {
	n, err := w.repo.RecoverStuck(ctx, w.cfg.StuckThreshold)
	if err != nil {
		w.logger.Error("stuck-job recovery failed", "error", err)
		return
	}
	if n > 0 {
		w.logger.Warn("requeued stuck jobs", "count", n, "threshold", w.cfg.StuckThreshold)
	}
}

// sleep waits one poll interval, waking immediately on stop.
func (w *Worker) sleep(ctx context.Context) {
	select {
	case <-ctx.Done():
	case <-time.After(w.cfg.PollInterval):
	}
}

// progressReporter persists progress updates and surfaces cooperative
// cancellation to executors. Persistence failures are logged, never fatal.
type progressReporter struct {
	logger *slog.Logger
	repo   ports.JobRepository
	ctx    context.Context
	jobID  domain.JobID
}

var _ ports.ProgressReporter = (*progressReporter)(nil)

func (r *progressReporter) Progress(current, total int, message string) {
	if err := r.repo.UpdateProgress(r.ctx, r.jobID, current, total, message); err != nil {
		r.logger.Warn("progress update failed", "job_id", r.jobID, "error", err)
	}
}

func (r *progressReporter) ShouldCancel() bool {
	return r.ctx.Err() != nil
}
