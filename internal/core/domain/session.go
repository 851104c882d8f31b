package domain

import (
	"errors"
	"time"
)

type SessionID string

// Session is a reusable authenticated automation context bound to one tenant.
// At most one live Session object exists per ID in the process-local map.
type Session struct {
	ID           SessionID `json:"id"`
	TenantKey    string    `json:"tenant_key"`
	CreatedAt    time.Time `json:"created_at"`
	LastActivity time.Time `json:"last_activity"`
}

// IdleFor returns how long the session has been untouched.
func (s Session) IdleFor(now time.Time) time.Duration {
	return now.Sub(s.LastActivity)
}

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrSessionExpired  = errors.New("session expired")
)
