package services

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opsforge/conductor/internal/core/domain"
	"github.com/opsforge/conductor/internal/core/ports"
)

func batchJob(t *testing.T, action string, items int) domain.Job {
	t.Helper()
	raw := make([]json.RawMessage, items)
	for i := range raw {
		raw[i] = json.RawMessage(`{"name":"item"}`)
	}
	payload, err := json.Marshal(domain.BatchPayload{Action: action, Items: raw})
	require.NoError(t, err)
	return domain.Job{ID: "job-1", Kind: domain.KindBatch, Target: "acme", Payload: payload}
}

func TestBatchExecutor_AllUnitsSucceed(t *testing.T) {
	runner := &fakeRunner{}
	exec := NewBatchExecutor(testLogger(), runner, time.Minute)
	rep := &fakeReporter{}

	raw, err := exec.Execute(context.Background(), domain.Session{}, &fakeEngine{}, batchJob(t, "provision", 3), rep)
	require.NoError(t, err)

	var result domain.BatchResult
	require.NoError(t, json.Unmarshal(raw, &result))
	assert.Equal(t, 3, result.Total)
	assert.Equal(t, 3, result.Successful)
	assert.Zero(t, result.Failed)
	require.Len(t, result.Units, 3)
	assert.Len(t, rep.updates, 3, "one progress update per unit")
}

func TestBatchExecutor_OneFailingUnitDoesNotStopTheBatch(t *testing.T) {
	runner := &fakeRunner{errAt: map[int]error{1: errors.New("row not found")}}
	exec := NewBatchExecutor(testLogger(), runner, time.Minute)

	raw, err := exec.Execute(context.Background(), domain.Session{}, &fakeEngine{}, batchJob(t, "provision", 3), &fakeReporter{})
	require.NoError(t, err, "unit failures complete the job with per-unit outcomes")

	var result domain.BatchResult
	require.NoError(t, json.Unmarshal(raw, &result))
	assert.Equal(t, 3, result.Total)
	assert.Equal(t, 2, result.Successful)
	assert.Equal(t, 1, result.Failed)

	require.Len(t, result.Units, 3)
	assert.True(t, result.Units[0].OK)
	assert.False(t, result.Units[1].OK)
	assert.Contains(t, result.Units[1].Error, "row not found")
	assert.True(t, result.Units[2].OK, "units after the failure still run")
}

func TestBatchExecutor_UnitTimeoutIsTentativeSuccess(t *testing.T) {
	runner := &fakeRunner{errAt: map[int]error{0: context.DeadlineExceeded}}
	exec := NewBatchExecutor(testLogger(), runner, time.Minute)

	raw, err := exec.Execute(context.Background(), domain.Session{}, &fakeEngine{}, batchJob(t, "provision", 1), &fakeReporter{})
	require.NoError(t, err)

	var result domain.BatchResult
	require.NoError(t, json.Unmarshal(raw, &result))
	assert.Equal(t, 1, result.Successful)
	assert.Zero(t, result.Failed)
	require.Len(t, result.Units, 1)
	assert.True(t, result.Units[0].OK)
	assert.True(t, result.Units[0].Pending, "timeout without explicit failure is flagged for review")
}

func TestBatchExecutor_CancellationStopsBetweenUnits(t *testing.T) {
	runner := &fakeRunner{}
	exec := NewBatchExecutor(testLogger(), runner, time.Minute)
	rep := &fakeReporter{cancelAt: 2} // cancel after the second unit reports

	_, err := exec.Execute(context.Background(), domain.Session{}, &fakeEngine{}, batchJob(t, "provision", 5), rep)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cancelled after 2 of 5 units")
	assert.Equal(t, 2, runner.calls, "no unit starts once cancellation is observed")
}

// gatedRunner parks its first call until released, then records whether the
// unit context was cancelled underneath it.
type gatedRunner struct {
	started chan struct{}
	release chan struct{}

	mu     sync.Mutex
	calls  int
	ctxErr error
}

func (r *gatedRunner) Run(ctx context.Context, eng ports.Engine, target, action string, item json.RawMessage, params map[string]string) (json.RawMessage, error) {
	r.mu.Lock()
	r.calls++
	first := r.calls == 1
	r.mu.Unlock()
	if first {
		close(r.started)
		<-r.release
		r.mu.Lock()
		r.ctxErr = ctx.Err()
		r.mu.Unlock()
	}
	return json.RawMessage(`{"done":true}`), nil
}

// ctxReporter mirrors the worker's reporter: cancellation tracks a context.
type ctxReporter struct {
	ctx context.Context
}

func (r *ctxReporter) Progress(current, total int, message string) {}

func (r *ctxReporter) ShouldCancel() bool { return r.ctx.Err() != nil }

func TestBatchExecutor_StopFinishesTheInFlightUnit(t *testing.T) {
	loopCtx, cancel := context.WithCancel(context.Background())
	defer cancel()
	runner := &gatedRunner{started: make(chan struct{}), release: make(chan struct{})}
	exec := NewBatchExecutor(testLogger(), runner, time.Minute)

	// Stop arrives while unit 0 is mid-flight on the console.
	go func() {
		<-runner.started
		cancel()
		close(runner.release)
	}()

	_, err := exec.Execute(loopCtx, domain.Session{}, &fakeEngine{}, batchJob(t, "provision", 3), &ctxReporter{ctx: loopCtx})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cancelled after 1 of 3 units")

	runner.mu.Lock()
	defer runner.mu.Unlock()
	assert.Equal(t, 1, runner.calls, "no further unit starts after the stop")
	assert.NoError(t, runner.ctxErr, "the running unit keeps its own clock; stop never yanks it")
}

func TestBatchExecutor_BadPayloadFailsTheJob(t *testing.T) {
	exec := NewBatchExecutor(testLogger(), &fakeRunner{}, time.Minute)
	job := domain.Job{ID: "job-1", Kind: domain.KindBatch, Payload: json.RawMessage(`{"action":`)}

	_, err := exec.Execute(context.Background(), domain.Session{}, &fakeEngine{}, job, &fakeReporter{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decode batch payload")
}

func TestSingleExecutor_Succeeds(t *testing.T) {
	runner := &fakeRunner{}
	exec := NewSingleExecutor(testLogger(), runner, time.Minute)
	payload, _ := json.Marshal(domain.SinglePayload{Action: "restart"})
	job := domain.Job{ID: "job-1", Kind: domain.KindSingle, Target: "acme", Payload: payload}

	raw, err := exec.Execute(context.Background(), domain.Session{}, &fakeEngine{}, job, &fakeReporter{})
	require.NoError(t, err)
	assert.JSONEq(t, `{"done":true}`, string(raw))
	assert.Equal(t, []string{"restart"}, runner.actions)
}

func TestSingleExecutor_TimeoutIsTentative(t *testing.T) {
	runner := &fakeRunner{errAt: map[int]error{0: context.DeadlineExceeded}}
	exec := NewSingleExecutor(testLogger(), runner, time.Minute)
	payload, _ := json.Marshal(domain.SinglePayload{Action: "restart"})
	job := domain.Job{ID: "job-1", Kind: domain.KindSingle, Target: "acme", Payload: payload}

	raw, err := exec.Execute(context.Background(), domain.Session{}, &fakeEngine{}, job, &fakeReporter{})
	require.NoError(t, err)
	assert.JSONEq(t, `{"tentative":true}`, string(raw))
}

func TestSingleExecutor_ErrorFailsTheJob(t *testing.T) {
	runner := &fakeRunner{errAt: map[int]error{0: errors.New("console rejected the action")}}
	exec := NewSingleExecutor(testLogger(), runner, time.Minute)
	payload, _ := json.Marshal(domain.SinglePayload{Action: "restart"})
	job := domain.Job{ID: "job-1", Kind: domain.KindSingle, Target: "acme", Payload: payload}

	_, err := exec.Execute(context.Background(), domain.Session{}, &fakeEngine{}, job, &fakeReporter{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "console rejected the action")
}

func TestExecutorRegistry(t *testing.T) {
	registry := NewExecutorRegistry()
	exec := NewSingleExecutor(testLogger(), &fakeRunner{}, time.Minute)

	require.NoError(t, registry.Register(domain.KindSingle, exec))
	assert.Error(t, registry.Register(domain.KindSingle, exec), "duplicate registration is rejected")
	assert.Error(t, registry.Register(domain.KindBatch, nil), "nil executor is rejected")

	got, ok := registry.For(domain.KindSingle)
	assert.True(t, ok)
	assert.Same(t, exec, got)
	assert.True(t, registry.Has(domain.KindSingle))
	assert.False(t, registry.Has(domain.KindBatch))
	assert.Equal(t, []domain.JobKind{domain.KindSingle}, registry.Kinds())
}
