// Package flock arbitrates access to the external console across independent
// OS processes. The legacy console tolerates exactly one automated session;
// concurrent logins corrupt its state, so every automating process funnels
// through this one named lock.
package flock

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	gflock "github.com/gofrs/flock"

	"github.com/opsforge/conductor/internal/core/domain"
	"github.com/opsforge/conductor/internal/core/ports"
)

const retryInterval = 250 * time.Millisecond

// Lock wraps an OS-level exclusive file lock. The flock itself is the
// authority; the sidecar holder file is diagnostic metadata only.
type Lock struct {
	logger *slog.Logger
	path   string

	mu   sync.Mutex
	fl   *gflock.Flock
	held bool
}

func New(logger *slog.Logger, path string) (*Lock, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create lock dir: %w", err)
	}
	return &Lock{
		logger: logger,
		path:   path,
		fl:     gflock.New(path),
	}, nil
}

var _ ports.ResourceLock = (*Lock)(nil)

// Acquire blocks until the lock is held or timeout elapses. Waiting retries
// at a fixed interval so it yields to the scheduler instead of spinning, and
// is interruptible through ctx.
func (l *Lock) Acquire(ctx context.Context, owner string, timeout time.Duration) error {
	waitCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	for {
		acquired, err := l.tryOnce(owner)
		if err != nil {
			return fmt.Errorf("acquire %s: %w", l.path, err)
		}
		if acquired {
			return nil
		}
		select {
		case <-waitCtx.Done():
			if ctx.Err() != nil {
				return ctx.Err()
			}
			holder, _ := l.Holder()
			l.logger.Warn("lock acquisition timed out",
				"path", l.path, "owner", owner, "held_by", holder.Owner)
			return domain.ErrLockTimeout
		case <-time.After(retryInterval):
		}
	}
}

// TryAcquire attempts the lock once without waiting.
func (l *Lock) TryAcquire(owner string) (bool, error) {
	ok, err := l.tryOnce(owner)
	if err != nil {
		return false, fmt.Errorf("try acquire %s: %w", l.path, err)
	}
	return ok, nil
}

// tryOnce makes one non-blocking attempt. The held check and the flock call
// stay under one mutex hold: flock is reentrant per handle, so without the
// check a second goroutine on this instance would "acquire" a lock another
// caller still owns.
func (l *Lock) tryOnce(owner string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.held {
		return false, nil
	}
	ok, err := l.fl.TryLock()
	if err != nil || !ok {
		return false, err
	}
	l.held = true
	l.writeHolder(owner)
	return true, nil
}

// Release drops the lock and is safe to call on every exit path, including
// repeatedly and when the lock was never obtained.
func (l *Lock) Release() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.held {
		return nil
	}
	if err := l.fl.Unlock(); err != nil {
		return fmt.Errorf("release %s: %w", l.path, err)
	}
	l.held = false
	_ = os.Remove(l.holderPath())
	return nil
}

// IsLocked reports whether any process currently holds the lock. When this
// process does not hold it, the state is probed with a non-blocking attempt
// on a throwaway handle.
func (l *Lock) IsLocked() bool {
	l.mu.Lock()
	if l.held {
		l.mu.Unlock()
		return true
	}
	l.mu.Unlock()

	probe := gflock.New(l.path)
	ok, err := probe.TryLock()
	if err != nil {
		// Can't tell; assume held rather than invite a concurrent session.
		return true
	}
	if ok {
		_ = probe.Unlock()
		return false
	}
	return true
}

// Holder returns advisory metadata about the current holder. Absence of
// metadata does not mean the lock is free, and presence does not authorize
// anything.
func (l *Lock) Holder() (domain.LockInfo, bool) {
	data, err := os.ReadFile(l.holderPath())
	if err != nil {
		return domain.LockInfo{}, false
	}
	var info domain.LockInfo
	if err := json.Unmarshal(data, &info); err != nil {
		return domain.LockInfo{}, false
	}
	return info, true
}

// writeHolder records advisory holder metadata. Called with l.mu held.
func (l *Lock) writeHolder(owner string) {
	info := domain.LockInfo{
		Owner:      owner,
		PID:        os.Getpid(),
		AcquiredAt: time.Now().UTC(),
	}
	data, err := json.Marshal(info)
	if err == nil {
		err = os.WriteFile(l.holderPath(), data, 0o644)
	}
	if err != nil {
		// Metadata is best effort; the flock itself is already held.
		l.logger.Warn("failed to write lock holder metadata", "path", l.path, "error", err)
	}
}

func (l *Lock) holderPath() string {
	return l.path + ".holder"
}
