package services

import (
	"fmt"
	"sort"
	"sync"

	"github.com/opsforge/conductor/internal/core/domain"
	"github.com/opsforge/conductor/internal/core/ports"
)

// ExecutorRegistry maps job kinds to their executors. Registration happens
// at startup; the enqueue surface rejects kinds with no executor, so an
// unknown kind never reaches the worker.
type ExecutorRegistry struct {
	mu        sync.RWMutex
	executors map[domain.JobKind]ports.TaskExecutor
}

func NewExecutorRegistry() *ExecutorRegistry {
	return &ExecutorRegistry{executors: make(map[domain.JobKind]ports.TaskExecutor)}
}

func (r *ExecutorRegistry) Register(kind domain.JobKind, exec ports.TaskExecutor) error {
	if exec == nil {
		return fmt.Errorf("nil executor for kind %s", kind)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.executors[kind]; exists {
		return fmt.Errorf("executor already registered for kind %s", kind)
	}
	r.executors[kind] = exec
	return nil
}

func (r *ExecutorRegistry) For(kind domain.JobKind) (ports.TaskExecutor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	exec, ok := r.executors[kind]
	return exec, ok
}

func (r *ExecutorRegistry) Has(kind domain.JobKind) bool {
	_, ok := r.For(kind)
	return ok
}

func (r *ExecutorRegistry) Kinds() []domain.JobKind {
	r.mu.RLock()
	defer r.mu.RUnlock()
	kinds := make([]domain.JobKind, 0, len(r.executors))
	for kind := range r.executors {
		kinds = append(kinds, kind)
	}
	sort.Slice(kinds, func(i, j int) bool { return kinds[i] < kinds[j] })
	return kinds
}
