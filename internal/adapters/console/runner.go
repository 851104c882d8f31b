package console

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/opsforge/conductor/internal/core/ports"
)

// ActionSpec is one named console operation, declared in a JSON file so the
// page-level details of each action live outside the binary. Scripts see the
// work unit as UNIT and job parameters as PARAMS.
type ActionSpec struct {
	// Navigate is an optional URL opened before the script runs. It may
	// contain {target}, replaced by the job's tenant key.
	Navigate string `json:"navigate,omitempty"`

	// Script is a JS expression whose value becomes the unit's detail.
	Script string `json:"script"`

	// PollFor is an optional JS expression polled until truthy after the
	// script runs; actions that trigger asynchronous console work declare
	// their completion marker here.
	PollFor string `json:"poll_for,omitempty"`
}

func (s ActionSpec) validate(name string) error {
	if strings.TrimSpace(s.Script) == "" {
		return fmt.Errorf("action %q: script is required", name)
	}
	return nil
}

// LoadActions reads the action catalog from a JSON file mapping action name
// to spec.
func LoadActions(path string) (map[string]ActionSpec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read actions file: %w", err)
	}
	var actions map[string]ActionSpec
	if err := json.Unmarshal(data, &actions); err != nil {
		return nil, fmt.Errorf("parse actions file %s: %w", path, err)
	}
	for name, spec := range actions {
		if err := spec.validate(name); err != nil {
			return nil, err
		}
	}
	return actions, nil
}

// Runner executes catalog actions against a tenant's console page.
type Runner struct {
	logger       *slog.Logger
	actions      map[string]ActionSpec
	pollInterval time.Duration
}

func NewRunner(logger *slog.Logger, actions map[string]ActionSpec) *Runner {
	return &Runner{logger: logger, actions: actions, pollInterval: 500 * time.Millisecond}
}

var _ ports.ActionRunner = (*Runner)(nil)

func (r *Runner) Run(ctx context.Context, eng ports.Engine, target, action string, item json.RawMessage, params map[string]string) (json.RawMessage, error) {
	spec, ok := r.actions[action]
	if !ok {
		return nil, fmt.Errorf("action %q is not in the catalog", action)
	}

	if spec.Navigate != "" {
		url := strings.ReplaceAll(spec.Navigate, "{target}", target)
		if err := navigate(ctx, eng, url); err != nil {
			return nil, err
		}
	}

	script := bindScript(spec.Script, item, params)
	detail, err := eval(ctx, eng, script)
	if err != nil {
		return nil, fmt.Errorf("action %q: %w", action, err)
	}

	if spec.PollFor != "" {
		if err := pollTruthy(ctx, eng, bindScript(spec.PollFor, item, params), r.pollInterval); err != nil {
			return detail, err
		}
	}
	return detail, nil
}

// bindScript prefixes the expression with UNIT and PARAMS constants so specs
// can reference the work unit without string templating.
func bindScript(expr string, item json.RawMessage, params map[string]string) string {
	unit := "null"
	if len(item) > 0 {
		unit = string(item)
	}
	paramsJSON, _ := json.Marshal(params)
	return fmt.Sprintf("(() => { const UNIT = %s; const PARAMS = %s; return (%s); })()", unit, paramsJSON, expr)
}
