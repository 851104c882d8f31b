package domain

import (
	"encoding/json"
	"errors"
	"time"
)

type JobID string

type JobStatus string

const (
	JobStatusPending    JobStatus = "pending"
	JobStatusProcessing JobStatus = "processing"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusFailed     JobStatus = "failed"
)

// Terminal reports whether the status admits no further transitions.
func (s JobStatus) Terminal() bool {
	return s == JobStatusCompleted || s == JobStatusFailed
}

// JobKind is the closed tag for job dispatch. Payloads are decoded per kind
// at enqueue time, so an unknown kind never reaches the worker.
type JobKind string

const (
	// KindBatch processes an ordered list of like work units sequentially
	// within one job, each unit with an independent outcome.
	KindBatch JobKind = "batch"

	// KindSingle performs one automation action against the target tenant.
	KindSingle JobKind = "single"
)

// Job is a persisted unit of requested work against the external console.
type Job struct {
	ID              JobID           `json:"id"`
	Kind            JobKind         `json:"job_type"`
	Target          string          `json:"target"` // tenant/org key
	Payload         json.RawMessage `json:"payload,omitempty"`
	Status          JobStatus       `json:"status"`
	CreatedAt       time.Time       `json:"created_at"`
	StartedAt       *time.Time      `json:"started_at,omitempty"`
	CompletedAt     *time.Time      `json:"completed_at,omitempty"`
	ProgressCurrent int             `json:"progress_current"`
	ProgressTotal   int             `json:"progress_total"`
	ProgressMessage string          `json:"progress_message,omitempty"`
	Result          json.RawMessage `json:"result,omitempty"`
	Error           *string         `json:"error,omitempty"`
}

// JobFilter narrows List queries. Zero values mean "any".
type JobFilter struct {
	Status JobStatus
	Target string
	Limit  int
}

// JobStats is the per-status breakdown of the queue.
type JobStats struct {
	Pending    int `json:"pending"`
	Processing int `json:"processing"`
	Completed  int `json:"completed"`
	Failed     int `json:"failed"`
	Total      int `json:"total"`
}

// BatchPayload is the payload for KindBatch jobs: an ordered set of opaque
// work units handed to the executor one at a time.
type BatchPayload struct {
	Action string            `json:"action"`
	Items  []json.RawMessage `json:"items"`
	Params map[string]string `json:"params,omitempty"`
}

// SinglePayload is the payload for KindSingle jobs.
type SinglePayload struct {
	Action string            `json:"action"`
	Params map[string]string `json:"params,omitempty"`
}

// UnitOutcome records the result of one batch unit. A failed unit does not
// abort the batch; every unit gets an entry in input order.
type UnitOutcome struct {
	Index   int             `json:"index"`
	OK      bool            `json:"ok"`
	Detail  json.RawMessage `json:"detail,omitempty"`
	Error   string          `json:"error,omitempty"`
	Pending bool            `json:"tentative,omitempty"` // ambiguous end-state, logged for review
}

// BatchResult is the persisted result of a batch job.
type BatchResult struct {
	Total      int           `json:"total"`
	Successful int           `json:"successful"`
	Failed     int           `json:"failed"`
	Units      []UnitOutcome `json:"units"`
}

var ErrJobNotFound = errors.New("job not found")

// DecodePayload validates that raw matches the kind's payload shape.
func DecodePayload(kind JobKind, raw json.RawMessage) error {
	switch kind {
	case KindBatch:
		var p BatchPayload
		if err := json.Unmarshal(raw, &p); err != nil {
			return err
		}
		if len(p.Items) == 0 {
			return errors.New("batch payload requires at least one item")
		}
		return nil
	case KindSingle:
		var p SinglePayload
		return json.Unmarshal(raw, &p)
	default:
		return errors.New("unknown job kind: " + string(kind))
	}
}
