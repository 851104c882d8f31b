package console

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/opsforge/conductor/internal/core/ports"
)

// evalResult mirrors the DevTools Runtime.evaluate response envelope.
type evalResult struct {
	Result struct {
		Type    string          `json:"type"`
		Value   json.RawMessage `json:"value"`
		Subtype string          `json:"subtype"`
	} `json:"result"`
	ExceptionDetails *struct {
		Text      string `json:"text"`
		Exception *struct {
			Description string `json:"description"`
		} `json:"exception"`
	} `json:"exceptionDetails"`
}

// eval runs a JS expression in the page and returns its JSON value.
// Promises are awaited so action scripts can be async.
func eval(ctx context.Context, eng ports.Engine, expression string) (json.RawMessage, error) {
	raw, err := eng.Call(ctx, "Runtime.evaluate", map[string]any{
		"expression":    expression,
		"returnByValue": true,
		"awaitPromise":  true,
	})
	if err != nil {
		return nil, err
	}

	var res evalResult
	if err := json.Unmarshal(raw, &res); err != nil {
		return nil, fmt.Errorf("decode evaluate result: %w", err)
	}
	if res.ExceptionDetails != nil {
		msg := res.ExceptionDetails.Text
		if res.ExceptionDetails.Exception != nil && res.ExceptionDetails.Exception.Description != "" {
			msg = res.ExceptionDetails.Exception.Description
		}
		return nil, fmt.Errorf("script threw: %s", msg)
	}
	return res.Result.Value, nil
}

// navigate loads a URL and gives the page a moment to settle. Completion is
// detected by the caller's poll expression, not by load events.
func navigate(ctx context.Context, eng ports.Engine, url string) error {
	if _, err := eng.Call(ctx, "Page.navigate", map[string]any{"url": url}); err != nil {
		return fmt.Errorf("navigate %s: %w", url, err)
	}
	return nil
}

// pollTruthy evaluates expression until it yields a truthy value, bounded by
// ctx. The console renders asynchronously, so state transitions are observed
// by polling rather than fixed sleeps.
func pollTruthy(ctx context.Context, eng ports.Engine, expression string, interval time.Duration) error {
	if interval <= 0 {
		interval = 500 * time.Millisecond
	}
	probe := fmt.Sprintf("Boolean(%s)", expression)
	for {
		value, err := eval(ctx, eng, probe)
		if err == nil && string(value) == "true" {
			return nil
		}
		select {
		case <-ctx.Done():
			if err != nil {
				return fmt.Errorf("condition %q never became true: last error: %w", expression, err)
			}
			return fmt.Errorf("condition %q never became true: %w", expression, ctx.Err())
		case <-time.After(interval):
		}
	}
}
