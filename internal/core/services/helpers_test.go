package services

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/opsforge/conductor/internal/core/domain"
	"github.com/opsforge/conductor/internal/core/ports"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeEngine records calls; Close is tracked for lifecycle assertions.
type fakeEngine struct {
	mu        sync.Mutex
	closed    bool
	captures  []string
	authState string
}

func (e *fakeEngine) Call(ctx context.Context, method string, params any) (json.RawMessage, error) {
	return json.RawMessage(`{}`), nil
}

func (e *fakeEngine) Capture(ctx context.Context, label string) string {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.captures = append(e.captures, label)
	return "/tmp/" + label + ".png"
}

func (e *fakeEngine) AuthState(ctx context.Context) (string, error) {
	return e.authState, nil
}

func (e *fakeEngine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.closed = true
	return nil
}

func (e *fakeEngine) isClosed() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.closed
}

func (e *fakeEngine) captured() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]string(nil), e.captures...)
}

type fakeFactory struct {
	mu       sync.Mutex
	launches int
	failWith error
	engines  []*fakeEngine
}

func (f *fakeFactory) Launch(ctx context.Context, tenantKey, authState string) (ports.Engine, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.launches++
	if f.failWith != nil {
		return nil, f.failWith
	}
	eng := &fakeEngine{authState: "exported-state"}
	f.engines = append(f.engines, eng)
	return eng, nil
}

func (f *fakeFactory) launchCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.launches
}

type fakeCreds struct {
	mu     sync.Mutex
	known  map[string]domain.TenantCredentials
	states map[string]string
}

func newFakeCreds(tenants ...string) *fakeCreds {
	c := &fakeCreds{known: make(map[string]domain.TenantCredentials), states: make(map[string]string)}
	for _, t := range tenants {
		c.known[t] = domain.TenantCredentials{TenantKey: t, Username: "ops", Password: "secret"}
	}
	return c
}

func (c *fakeCreds) Get(ctx context.Context, tenantKey string) (domain.TenantCredentials, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	creds, ok := c.known[tenantKey]
	if !ok {
		return domain.TenantCredentials{}, domain.ErrCredentialsNotFound
	}
	return creds, nil
}

func (c *fakeCreds) UpdateAuthState(ctx context.Context, tenantKey, authState string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.states[tenantKey] = authState
	return nil
}

type fakeAuth struct {
	failWith error
}

func (a *fakeAuth) Authenticate(ctx context.Context, eng ports.Engine, creds domain.TenantCredentials) error {
	return a.failWith
}

// fakeJobRepo is an in-memory queue good enough for worker tests.
type fakeJobRepo struct {
	mu       sync.Mutex
	jobs     map[domain.JobID]*domain.Job
	order    []domain.JobID
	claimErr error
}

func newFakeJobRepo() *fakeJobRepo {
	return &fakeJobRepo{jobs: make(map[domain.JobID]*domain.Job)}
}

func (r *fakeJobRepo) add(kind domain.JobKind, target string, payload json.RawMessage) domain.JobID {
	r.mu.Lock()
	defer r.mu.Unlock()
	id := domain.JobID(uuid.New().String())
	r.jobs[id] = &domain.Job{ID: id, Kind: kind, Target: target, Payload: payload, Status: domain.JobStatusPending, CreatedAt: time.Now().UTC()}
	r.order = append(r.order, id)
	return id
}

func (r *fakeJobRepo) get(id domain.JobID) domain.Job {
	r.mu.Lock()
	defer r.mu.Unlock()
	return *r.jobs[id]
}

func (r *fakeJobRepo) Enqueue(ctx context.Context, kind domain.JobKind, target string, payload json.RawMessage) (domain.Job, error) {
	id := r.add(kind, target, payload)
	return r.get(id), nil
}

func (r *fakeJobRepo) ClaimNext(ctx context.Context) (*domain.Job, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.claimErr != nil {
		return nil, r.claimErr
	}
	for _, id := range r.order {
		job := r.jobs[id]
		if job.Status == domain.JobStatusPending {
			job.Status = domain.JobStatusProcessing
			now := time.Now().UTC()
			job.StartedAt = &now
			cp := *job
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *fakeJobRepo) UpdateProgress(ctx context.Context, id domain.JobID, current, total int, message string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	job, ok := r.jobs[id]
	if !ok {
		return domain.ErrJobNotFound
	}
	job.ProgressCurrent = current
	job.ProgressTotal = total
	job.ProgressMessage = message
	return nil
}

func (r *fakeJobRepo) Complete(ctx context.Context, id domain.JobID, result json.RawMessage) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	job, ok := r.jobs[id]
	if !ok {
		return domain.ErrJobNotFound
	}
	job.Status = domain.JobStatusCompleted
	job.Result = result
	now := time.Now().UTC()
	job.CompletedAt = &now
	return nil
}

func (r *fakeJobRepo) Fail(ctx context.Context, id domain.JobID, errMsg string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	job, ok := r.jobs[id]
	if !ok {
		return domain.ErrJobNotFound
	}
	job.Status = domain.JobStatusFailed
	job.Error = &errMsg
	now := time.Now().UTC()
	job.CompletedAt = &now
	return nil
}

func (r *fakeJobRepo) RecoverStuck(ctx context.Context, threshold time.Duration) (int, error) {
	return 0, nil
}

func (r *fakeJobRepo) Get(ctx context.Context, id domain.JobID) (domain.Job, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	job, ok := r.jobs[id]
	if !ok {
		return domain.Job{}, domain.ErrJobNotFound
	}
	return *job, nil
}

func (r *fakeJobRepo) List(ctx context.Context, filter domain.JobFilter) ([]domain.Job, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.Job, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, *r.jobs[id])
	}
	return out, nil
}

func (r *fakeJobRepo) Stats(ctx context.Context) (domain.JobStats, error) {
	return domain.JobStats{}, nil
}

func (r *fakeJobRepo) Cleanup(ctx context.Context, olderThan time.Duration) (int, error) {
	return 0, nil
}

// fakeLock implements ports.ResourceLock in-process.
type fakeLock struct {
	mu         sync.Mutex
	held       bool
	owner      string
	acquireErr error
	acquires   int
	releases   int
}

func (l *fakeLock) Acquire(ctx context.Context, owner string, timeout time.Duration) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.acquireErr != nil {
		return l.acquireErr
	}
	if l.held {
		return domain.ErrLockTimeout
	}
	l.held = true
	l.owner = owner
	l.acquires++
	return nil
}

func (l *fakeLock) TryAcquire(owner string) (bool, error) {
	err := l.Acquire(context.Background(), owner, 0)
	if errors.Is(err, domain.ErrLockTimeout) {
		return false, nil
	}
	return err == nil, err
}

func (l *fakeLock) Release() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.held = false
	l.owner = ""
	l.releases++
	return nil
}

func (l *fakeLock) IsLocked() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.held
}

func (l *fakeLock) Holder() (domain.LockInfo, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.held {
		return domain.LockInfo{}, false
	}
	return domain.LockInfo{Owner: l.owner}, true
}

func (l *fakeLock) counts() (int, int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.acquires, l.releases
}

// fakeSessions hands back a canned session without any engine lifecycle.
type fakeSessions struct {
	eng      *fakeEngine
	failErr  error
	calls    int
	releases int
	mu       sync.Mutex
}

func (s *fakeSessions) GetOrCreate(ctx context.Context, tenantKey string) (*ActiveSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.failErr != nil {
		return nil, s.failErr
	}
	if s.eng == nil {
		s.eng = &fakeEngine{}
	}
	return &ActiveSession{
		Session: domain.Session{ID: "sess-1", TenantKey: tenantKey, CreatedAt: time.Now().UTC(), LastActivity: time.Now().UTC()},
		Engine:  s.eng,
	}, nil
}

func (s *fakeSessions) Release(id domain.SessionID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.releases++
}

func (s *fakeSessions) released() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.releases
}

func (s *fakeSessions) engine() *fakeEngine {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.eng
}

// fakeRunner scripts per-unit outcomes keyed by unit index.
type fakeRunner struct {
	mu      sync.Mutex
	errAt   map[int]error
	calls   int
	actions []string
}

func (r *fakeRunner) Run(ctx context.Context, eng ports.Engine, target, action string, item json.RawMessage, params map[string]string) (json.RawMessage, error) {
	r.mu.Lock()
	call := r.calls
	r.calls++
	r.actions = append(r.actions, action)
	err := r.errAt[call]
	r.mu.Unlock()
	if err != nil {
		return nil, err
	}
	return json.RawMessage(`{"done":true}`), nil
}

// fakeReporter collects progress updates; cancel flips ShouldCancel.
type fakeReporter struct {
	mu       sync.Mutex
	cancel   bool
	cancelAt int // flip cancel after this many Progress calls; 0 disables
	updates  []string
}

func (r *fakeReporter) Progress(current, total int, message string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.updates = append(r.updates, message)
	if r.cancelAt > 0 && len(r.updates) >= r.cancelAt {
		r.cancel = true
	}
}

func (r *fakeReporter) ShouldCancel() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.cancel
}
