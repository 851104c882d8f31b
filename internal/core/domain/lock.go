package domain

import "time"

// LockInfo is advisory metadata about the current holder of the exclusivity
// lock. It is diagnostic only and never used for authorization decisions.
type LockInfo struct {
	Owner      string    `json:"owner"`
	PID        int       `json:"pid"`
	AcquiredAt time.Time `json:"acquired_at"`
}
