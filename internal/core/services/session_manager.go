package services

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"github.com/opsforge/conductor/internal/core/domain"
	"github.com/opsforge/conductor/internal/core/ports"
)

// credentialsSource is the minimal credentials interface the manager needs.
type credentialsSource interface {
	Get(ctx context.Context, tenantKey string) (domain.TenantCredentials, error)
	UpdateAuthState(ctx context.Context, tenantKey, authState string) error
}

// ActiveSession pairs session metadata with its owned engine handle. busy
// counts callers that checked the session out through GetOrCreate and have
// not Released it yet; the manager's mutex guards it.
type ActiveSession struct {
	domain.Session
	Engine ports.Engine

	busy int
}

// SessionManager caches authenticated automation contexts per tenant so
// several jobs can share one login instead of re-authenticating every time.
// Idle sessions are reclaimed by a sliding TTL and a background sweep;
// sessions checked out for a running job are pinned against both.
//
// Map mutations are serialized by one mutex; engine start/stop I/O happens
// outside it. Callers resolving a session for automation work must already
// hold the console exclusivity lock — authentication drives the console too.
type SessionManager struct {
	logger  *slog.Logger
	factory ports.EngineFactory
	creds   credentialsSource
	auth    ports.Authenticator
	ttl     time.Duration
	sweep   time.Duration

	mu       sync.Mutex
	sessions map[domain.SessionID]*ActiveSession
	byTenant map[string]domain.SessionID

	creating singleflight.Group
}

func NewSessionManager(logger *slog.Logger, factory ports.EngineFactory, creds credentialsSource, auth ports.Authenticator, ttl, sweepInterval time.Duration) *SessionManager {
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}
	if sweepInterval <= 0 {
		sweepInterval = time.Minute
	}
	return &SessionManager{
		logger:   logger,
		factory:  factory,
		creds:    creds,
		auth:     auth,
		ttl:      ttl,
		sweep:    sweepInterval,
		sessions: make(map[domain.SessionID]*ActiveSession),
		byTenant: make(map[string]domain.SessionID),
	}
}

// Create starts a fresh engine for the tenant, runs the login handshake, and
// registers the session. A failed handshake or launch aborts with
// FatalSessionError: no session means the job cannot run at all.
func (m *SessionManager) Create(ctx context.Context, tenantKey string) (*ActiveSession, error) {
	creds, err := m.creds.Get(ctx, tenantKey)
	if err != nil {
		return nil, &domain.FatalSessionError{TenantKey: tenantKey, Err: fmt.Errorf("resolve credentials: %w", err)}
	}

	eng, err := m.factory.Launch(ctx, tenantKey, creds.AuthState)
	if err != nil {
		return nil, &domain.FatalSessionError{TenantKey: tenantKey, Err: fmt.Errorf("launch engine: %w", err)}
	}

	if m.auth != nil {
		if err := m.auth.Authenticate(ctx, eng, creds); err != nil {
			// Snapshot the page before tearing down: login failures are
			// exactly what operators need to see.
			eng.Capture(ctx, "auth_failure_"+tenantKey)
			_ = eng.Close()
			return nil, &domain.FatalSessionError{TenantKey: tenantKey, Err: err}
		}

		// Persist the fresh cookie jar so the next session can skip the
		// interactive login. Best effort.
		if state, err := eng.AuthState(ctx); err == nil && state != "" {
			if err := m.creds.UpdateAuthState(ctx, tenantKey, state); err != nil {
				m.logger.Warn("failed to persist auth state", "tenant", tenantKey, "error", err)
			}
		}
	}

	now := time.Now().UTC()
	sess := &ActiveSession{
		Session: domain.Session{
			ID:           domain.SessionID(uuid.New().String()),
			TenantKey:    tenantKey,
			CreatedAt:    now,
			LastActivity: now,
		},
		Engine: eng,
	}

	m.mu.Lock()
	// One live session per tenant: replace, then close the old one outside
	// the lock.
	var stale *ActiveSession
	if oldID, ok := m.byTenant[tenantKey]; ok {
		stale = m.sessions[oldID]
		delete(m.sessions, oldID)
	}
	m.sessions[sess.ID] = sess
	m.byTenant[tenantKey] = sess.ID
	m.mu.Unlock()

	if stale != nil {
		m.closeEngine(stale)
	}

	m.logger.Info("session created", "session_id", sess.ID, "tenant", tenantKey)
	return sess, nil
}

// GetOrCreate checks out the tenant's live session, or creates one. A
// checked-out session is pinned: the TTL clock does not apply to it, so a
// job may run far past the TTL without losing its engine underneath it.
// Every successful checkout must be paired with Release. Concurrent callers
// for the same tenant share a single create.
func (m *SessionManager) GetOrCreate(ctx context.Context, tenantKey string) (*ActiveSession, error) {
	m.mu.Lock()
	if id, ok := m.byTenant[tenantKey]; ok {
		sess := m.sessions[id]
		if sess.busy > 0 || sess.IdleFor(time.Now().UTC()) <= m.ttl {
			sess.busy++
			sess.LastActivity = time.Now().UTC()
			m.mu.Unlock()
			return sess, nil
		}
		delete(m.sessions, id)
		delete(m.byTenant, tenantKey)
		m.mu.Unlock()
		m.closeEngine(sess)
	} else {
		m.mu.Unlock()
	}

	v, err, _ := m.creating.Do(tenantKey, func() (any, error) {
		return m.Create(ctx, tenantKey)
	})
	if err != nil {
		return nil, err
	}
	sess := v.(*ActiveSession)
	m.mu.Lock()
	sess.busy++
	m.mu.Unlock()
	return sess, nil
}

// Release checks a session back in and restarts its idle clock. Releasing a
// session that is already gone is a no-op.
func (m *SessionManager) Release(id domain.SessionID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	sess, ok := m.sessions[id]
	if !ok {
		return
	}
	if sess.busy > 0 {
		sess.busy--
	}
	sess.LastActivity = time.Now().UTC()
}

// Get returns the session by ID. Expired sessions are closed and reported as
// such; live ones get their activity window extended.
func (m *SessionManager) Get(id domain.SessionID) (*ActiveSession, error) {
	m.mu.Lock()
	sess, ok := m.sessions[id]
	if !ok {
		m.mu.Unlock()
		return nil, domain.ErrSessionNotFound
	}
	if sess.busy == 0 && sess.IdleFor(time.Now().UTC()) > m.ttl {
		delete(m.sessions, id)
		delete(m.byTenant, sess.TenantKey)
		m.mu.Unlock()
		m.closeEngine(sess)
		return nil, domain.ErrSessionExpired
	}
	sess.LastActivity = time.Now().UTC()
	m.mu.Unlock()
	return sess, nil
}

// Close removes the session and releases its engine, even when it is
// checked out; this is the operator override. Idempotent: closing an absent
// session returns false and never errors.
func (m *SessionManager) Close(id domain.SessionID) bool {
	m.mu.Lock()
	sess, ok := m.sessions[id]
	if !ok {
		m.mu.Unlock()
		return false
	}
	if sess.busy > 0 {
		m.logger.Warn("force-closing checked-out session",
			"session_id", id, "tenant", sess.TenantKey)
	}
	delete(m.sessions, id)
	delete(m.byTenant, sess.TenantKey)
	m.mu.Unlock()

	m.closeEngine(sess)
	return true
}

// List snapshots current session metadata for the API.
func (m *SessionManager) List() []domain.Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]domain.Session, 0, len(m.sessions))
	for _, sess := range m.sessions {
		out = append(out, sess.Session)
	}
	return out
}

// Run drives the background sweep until ctx is cancelled, then force-closes
// everything left. Callers may abandon sessions without closing them; the
// sweep is what guarantees reclamation.
func (m *SessionManager) Run(ctx context.Context) error {
	m.logger.Info("session sweep started", "ttl", m.ttl, "interval", m.sweep)
	ticker := time.NewTicker(m.sweep)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			m.Shutdown()
			return nil
		case <-ticker.C:
			m.sweepExpired()
		}
	}
}

// sweepExpired reclaims sessions idle past the TTL. Checked-out sessions
// are never swept, however stale their activity stamp looks: the stamp only
// moves on checkout and release, and the job in between may be long.
func (m *SessionManager) sweepExpired() {
	now := time.Now().UTC()

	m.mu.Lock()
	var expired []*ActiveSession
	for id, sess := range m.sessions {
		if sess.busy == 0 && sess.IdleFor(now) > m.ttl {
			delete(m.sessions, id)
			delete(m.byTenant, sess.TenantKey)
			expired = append(expired, sess)
		}
	}
	m.mu.Unlock()

	for _, sess := range expired {
		m.logger.Info("sweeping idle session",
			"session_id", sess.ID, "tenant", sess.TenantKey, "idle", sess.IdleFor(now))
		m.closeEngine(sess)
	}
}

// Shutdown force-closes all remaining sessions. Called at process teardown.
func (m *SessionManager) Shutdown() {
	m.mu.Lock()
	remaining := make([]*ActiveSession, 0, len(m.sessions))
	for _, sess := range m.sessions {
		remaining = append(remaining, sess)
	}
	m.sessions = make(map[domain.SessionID]*ActiveSession)
	m.byTenant = make(map[string]domain.SessionID)
	m.mu.Unlock()

	for _, sess := range remaining {
		m.closeEngine(sess)
	}
	if len(remaining) > 0 {
		m.logger.Info("session manager shut down", "closed", len(remaining))
	}
}

func (m *SessionManager) closeEngine(sess *ActiveSession) {
	if err := sess.Engine.Close(); err != nil {
		m.logger.Warn("engine close failed", "session_id", sess.ID, "error", err)
	}
}
