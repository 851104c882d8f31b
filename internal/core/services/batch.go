package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/opsforge/conductor/internal/core/domain"
	"github.com/opsforge/conductor/internal/core/ports"
)

// BatchExecutor runs ordered work units sequentially through a business
// ActionRunner. Units never run in parallel: the console is exclusive, so
// intra-batch concurrency buys nothing and risks corrupting its state.
type BatchExecutor struct {
	logger      *slog.Logger
	runner      ports.ActionRunner
	unitTimeout time.Duration
}

func NewBatchExecutor(logger *slog.Logger, runner ports.ActionRunner, unitTimeout time.Duration) *BatchExecutor {
	if unitTimeout <= 0 {
		unitTimeout = 2 * time.Minute
	}
	return &BatchExecutor{logger: logger, runner: runner, unitTimeout: unitTimeout}
}

var _ ports.TaskExecutor = (*BatchExecutor)(nil)

// Execute processes every unit in input order. One failing unit is recorded
// and the batch moves on; the job completes with per-unit outcomes. Only
// batch-level problems (bad payload, cancellation) fail the job itself.
func (e *BatchExecutor) Execute(ctx context.Context, sess domain.Session, eng ports.Engine, job domain.Job, rep ports.ProgressReporter) (json.RawMessage, error) {
	var payload domain.BatchPayload
	if err := json.Unmarshal(job.Payload, &payload); err != nil {
		return nil, fmt.Errorf("decode batch payload: %w", err)
	}

	result := domain.BatchResult{
		Total: len(payload.Items),
		Units: make([]domain.UnitOutcome, 0, len(payload.Items)),
	}

	for i, item := range payload.Items {
		if rep.ShouldCancel() {
			return nil, fmt.Errorf("cancelled after %d of %d units", i, result.Total)
		}

		rep.Progress(i+1, result.Total, fmt.Sprintf("%s: unit %d of %d", payload.Action, i+1, result.Total))

		outcome := e.runUnit(ctx, eng, job.Target, payload, i, item)
		if outcome.OK {
			result.Successful++
		} else {
			result.Failed++
		}
		result.Units = append(result.Units, outcome)
	}

	raw, err := json.Marshal(result)
	if err != nil {
		return nil, fmt.Errorf("encode batch result: %w", err)
	}
	return raw, nil
}

func (e *BatchExecutor) runUnit(ctx context.Context, eng ports.Engine, target string, payload domain.BatchPayload, index int, item json.RawMessage) domain.UnitOutcome {
	// Deadline only, detached from the caller's cancellation: a stop request
	// is honored between units through ShouldCancel, never by aborting a
	// unit that is already mutating the console.
	unitCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), e.unitTimeout)
	defer cancel()

	detail, err := e.runner.Run(unitCtx, eng, target, payload.Action, item, payload.Params)
	switch {
	case err == nil:
		return domain.UnitOutcome{Index: index, OK: true, Detail: detail}

	case errors.Is(err, context.DeadlineExceeded):
		// Ambiguous end-state: the overall timeout fired without an explicit
		// error marker. Treat as tentative success and flag it for review
		// instead of retrying an action that may already have landed.
		e.logger.Warn("unit hit its timeout with no explicit failure, recording tentative success",
			"job_target", target, "action", payload.Action, "unit", index)
		return domain.UnitOutcome{Index: index, OK: true, Pending: true, Detail: detail}

	default:
		unitErr := &domain.UnitError{Index: index, Action: payload.Action, Err: err}
		e.logger.Warn("unit failed, continuing batch",
			"job_target", target, "action", payload.Action, "unit", index, "error", err)
		return domain.UnitOutcome{Index: index, OK: false, Error: unitErr.Error()}
	}
}

// SingleExecutor runs one automation action per job.
type SingleExecutor struct {
	logger      *slog.Logger
	runner      ports.ActionRunner
	callTimeout time.Duration
}

func NewSingleExecutor(logger *slog.Logger, runner ports.ActionRunner, callTimeout time.Duration) *SingleExecutor {
	if callTimeout <= 0 {
		callTimeout = 2 * time.Minute
	}
	return &SingleExecutor{logger: logger, runner: runner, callTimeout: callTimeout}
}

var _ ports.TaskExecutor = (*SingleExecutor)(nil)

func (e *SingleExecutor) Execute(ctx context.Context, sess domain.Session, eng ports.Engine, job domain.Job, rep ports.ProgressReporter) (json.RawMessage, error) {
	var payload domain.SinglePayload
	if err := json.Unmarshal(job.Payload, &payload); err != nil {
		return nil, fmt.Errorf("decode payload: %w", err)
	}

	rep.Progress(0, 1, payload.Action)

	// Deadline only: once dispatched, the action runs to its own timeout
	// even if the worker is stopping.
	runCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), e.callTimeout)
	defer cancel()

	detail, err := e.runner.Run(runCtx, eng, job.Target, payload.Action, nil, payload.Params)
	if errors.Is(err, context.DeadlineExceeded) {
		e.logger.Warn("action hit its timeout with no explicit failure, recording tentative success",
			"job_target", job.Target, "action", payload.Action)
		tentative, mErr := json.Marshal(map[string]any{"tentative": true})
		if mErr != nil {
			return nil, mErr
		}
		rep.Progress(1, 1, payload.Action+" (tentative)")
		return tentative, nil
	}
	if err != nil {
		return nil, err
	}

	rep.Progress(1, 1, payload.Action)
	if len(detail) == 0 {
		detail = json.RawMessage(`{}`)
	}
	return detail, nil
}
