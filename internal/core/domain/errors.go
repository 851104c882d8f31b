package domain

import (
	"errors"
	"fmt"
)

// ErrLockTimeout is returned when the exclusivity lock could not be obtained
// before the caller's deadline. Another owner most likely holds it; the
// condition is surfaced, never treated as fatal to the worker.
var ErrLockTimeout = errors.New("exclusivity lock timeout")

// UnitError is a typed per-unit automation failure. One failing unit is
// recorded in its outcome and never aborts the surrounding batch.
type UnitError struct {
	Index  int
	Action string
	Err    error
}

func (e *UnitError) Error() string {
	return fmt.Sprintf("unit %d (%s): %v", e.Index, e.Action, e.Err)
}

func (e *UnitError) Unwrap() error { return e.Err }

// FatalSessionError means no authenticated session could be established
// (login handshake or engine launch failed). It aborts the whole job.
type FatalSessionError struct {
	TenantKey string
	Err       error
}

func (e *FatalSessionError) Error() string {
	return fmt.Sprintf("session setup failed for tenant %s: %v", e.TenantKey, e.Err)
}

func (e *FatalSessionError) Unwrap() error { return e.Err }
