package console

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opsforge/conductor/internal/core/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// scriptedEngine answers Runtime.evaluate by matching substrings of the
// expression, newest rule first.
type scriptedEngine struct {
	rules     []evalRule
	navigated []string
	evals     []string
}

type evalRule struct {
	contains string
	value    string
	// after gates the rule until an earlier evaluate contained this marker.
	after string
}

func (e *scriptedEngine) on(contains, value string) {
	e.rules = append([]evalRule{{contains: contains, value: value}}, e.rules...)
}

func (e *scriptedEngine) onAfter(contains, after, value string) {
	e.rules = append([]evalRule{{contains: contains, after: after, value: value}}, e.rules...)
}

func (e *scriptedEngine) seen(marker string) bool {
	for _, expr := range e.evals {
		if strings.Contains(expr, marker) {
			return true
		}
	}
	return false
}

func (e *scriptedEngine) Call(ctx context.Context, method string, params any) (json.RawMessage, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	raw, _ := json.Marshal(params)
	switch method {
	case "Page.navigate":
		var p struct {
			URL string `json:"url"`
		}
		_ = json.Unmarshal(raw, &p)
		e.navigated = append(e.navigated, p.URL)
		return json.RawMessage(`{"frameId":"f1"}`), nil
	case "Runtime.evaluate":
		var p struct {
			Expression string `json:"expression"`
		}
		_ = json.Unmarshal(raw, &p)
		e.evals = append(e.evals, p.Expression)
		for _, rule := range e.rules {
			if !strings.Contains(p.Expression, rule.contains) {
				continue
			}
			if rule.after != "" && !e.seen(rule.after) {
				continue
			}
			return json.RawMessage(fmt.Sprintf(`{"result":{"type":"object","value":%s}}`, rule.value)), nil
		}
		return json.RawMessage(`{"result":{"type":"boolean","value":false}}`), nil
	}
	return nil, fmt.Errorf("unexpected method %s", method)
}

func (e *scriptedEngine) Capture(ctx context.Context, label string) string { return "" }
func (e *scriptedEngine) AuthState(ctx context.Context) (string, error)    { return "", nil }
func (e *scriptedEngine) Close() error                                     { return nil }

func fastAuthConfig() AuthConfig {
	return AuthConfig{
		LoginURL:         "https://console.example.com/{tenant}/login",
		UsernameSelector: "input[name=username]",
		PasswordSelector: "input[name=password]",
		SubmitSelector:   "button[type=submit]",
		SuccessProbe:     "window.__loggedIn === true",
		Timeout:          500 * time.Millisecond,
		PollInterval:     5 * time.Millisecond,
	}
}

func TestAuthenticator_FillsFormAndConfirmsLogin(t *testing.T) {
	eng := &scriptedEngine{}
	eng.on(`querySelector("input[name=username]") !== null`, "true") // form present
	eng.on("setValue", "true")                                       // form submit
	eng.onAfter("__loggedIn", "setValue", "true")                    // success only after submit

	auth, err := NewAuthenticator(testLogger(), fastAuthConfig())
	require.NoError(t, err)

	creds := domain.TenantCredentials{TenantKey: "acme", Username: "ops", Password: "s3cret"}
	require.NoError(t, auth.Authenticate(context.Background(), eng, creds))

	require.Len(t, eng.navigated, 1)
	assert.Equal(t, "https://console.example.com/acme/login", eng.navigated[0])

	var sawFill bool
	for _, expr := range eng.evals {
		if strings.Contains(expr, `"s3cret"`) && strings.Contains(expr, `"ops"`) {
			sawFill = true
		}
	}
	assert.True(t, sawFill, "credentials must be bound into the form fill script")
}

func TestAuthenticator_SeededStateSkipsForm(t *testing.T) {
	eng := &scriptedEngine{}
	eng.on("__loggedIn", "true") // already authenticated

	auth, err := NewAuthenticator(testLogger(), fastAuthConfig())
	require.NoError(t, err)

	creds := domain.TenantCredentials{TenantKey: "acme", Username: "ops", Password: "s3cret"}
	require.NoError(t, auth.Authenticate(context.Background(), eng, creds))

	for _, expr := range eng.evals {
		assert.NotContains(t, expr, "setValue", "no form interaction when the session restored")
	}
}

func TestAuthenticator_UnconfirmedLoginFails(t *testing.T) {
	eng := &scriptedEngine{}
	eng.on(`querySelector("input[name=username]") !== null`, "true")
	eng.on("setValue", "true")
	// success probe never turns true

	auth, err := NewAuthenticator(testLogger(), fastAuthConfig())
	require.NoError(t, err)

	err = auth.Authenticate(context.Background(), eng, domain.TenantCredentials{TenantKey: "acme", Username: "ops", Password: "x"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "login not confirmed")
}

func TestAuthenticator_RequiresLoginURL(t *testing.T) {
	_, err := NewAuthenticator(testLogger(), AuthConfig{})
	require.Error(t, err)
}

func TestRunner_ExecutesCatalogAction(t *testing.T) {
	eng := &scriptedEngine{}
	eng.on("UNIT", `{"created":"vm-7"}`)

	runner := NewRunner(testLogger(), map[string]ActionSpec{
		"provision": {Navigate: "https://console.example.com/{target}/vms", Script: "app.provision(UNIT, PARAMS)"},
	})
	runner.pollInterval = time.Millisecond

	detail, err := runner.Run(context.Background(), eng, "acme", "provision",
		json.RawMessage(`{"name":"vm-7"}`), map[string]string{"zone": "eu"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"created":"vm-7"}`, string(detail))

	require.Len(t, eng.navigated, 1)
	assert.Equal(t, "https://console.example.com/acme/vms", eng.navigated[0])

	require.NotEmpty(t, eng.evals)
	assert.Contains(t, eng.evals[0], `const UNIT = {"name":"vm-7"}`)
	assert.Contains(t, eng.evals[0], `"zone":"eu"`)
}

func TestRunner_UnknownActionErrors(t *testing.T) {
	runner := NewRunner(testLogger(), map[string]ActionSpec{})
	_, err := runner.Run(context.Background(), &scriptedEngine{}, "acme", "mystery", nil, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not in the catalog")
}

func TestRunner_PollForBoundsCompletion(t *testing.T) {
	eng := &scriptedEngine{}
	eng.on("app.restart", `{"requested":true}`)
	// completion marker never appears

	runner := NewRunner(testLogger(), map[string]ActionSpec{
		"restart": {Script: "app.restart(UNIT)", PollFor: "app.restartDone === true"},
	})
	runner.pollInterval = time.Millisecond

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err := runner.Run(ctx, eng, "acme", "restart", nil, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestLoadActions(t *testing.T) {
	path := filepath.Join(t.TempDir(), "actions.json")
	require.NoError(t, os.WriteFile(path, []byte(`{
		"provision": {"navigate": "https://c.example.com/{target}", "script": "app.provision(UNIT)"},
		"restart":   {"script": "app.restart(UNIT)", "poll_for": "app.done"}
	}`), 0o600))

	actions, err := LoadActions(path)
	require.NoError(t, err)
	assert.Len(t, actions, 2)
	assert.Equal(t, "app.restart(UNIT)", actions["restart"].Script)

	require.NoError(t, os.WriteFile(path, []byte(`{"broken": {"navigate": "x"}}`), 0o600))
	_, err = LoadActions(path)
	require.Error(t, err, "script is mandatory")
}
