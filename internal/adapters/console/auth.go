package console

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/opsforge/conductor/internal/core/domain"
	"github.com/opsforge/conductor/internal/core/ports"
)

// AuthConfig describes the console login form. The console is a legacy
// server-rendered app, so a selector-driven form fill is all it takes;
// selectors stay configurable because they drift between console releases.
type AuthConfig struct {
	// LoginURL may contain {tenant}, replaced by the tenant key.
	LoginURL string

	UsernameSelector string
	PasswordSelector string
	SubmitSelector   string

	// SuccessProbe is a JS expression that becomes truthy once the post-login
	// page has rendered.
	SuccessProbe string

	Timeout      time.Duration
	PollInterval time.Duration
}

func AuthConfigFromEnv() AuthConfig {
	cfg := AuthConfig{
		LoginURL:         os.Getenv("CONDUCTOR_CONSOLE_LOGIN_URL"),
		UsernameSelector: envOr("CONDUCTOR_CONSOLE_USERNAME_SELECTOR", "input[name=username]"),
		PasswordSelector: envOr("CONDUCTOR_CONSOLE_PASSWORD_SELECTOR", "input[name=password]"),
		SubmitSelector:   envOr("CONDUCTOR_CONSOLE_SUBMIT_SELECTOR", "button[type=submit]"),
		SuccessProbe:     envOr("CONDUCTOR_CONSOLE_SUCCESS_PROBE", "document.querySelector('.logout, #logout, a[href*=logout]') !== null"),
		Timeout:          45 * time.Second,
		PollInterval:     500 * time.Millisecond,
	}
	return cfg
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// Authenticator drives the console login form for a fresh engine.
type Authenticator struct {
	logger *slog.Logger
	cfg    AuthConfig
}

func NewAuthenticator(logger *slog.Logger, cfg AuthConfig) (*Authenticator, error) {
	if cfg.LoginURL == "" {
		return nil, fmt.Errorf("console login url is required")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 45 * time.Second
	}
	return &Authenticator{logger: logger, cfg: cfg}, nil
}

var _ ports.Authenticator = (*Authenticator)(nil)

func (a *Authenticator) Authenticate(ctx context.Context, eng ports.Engine, creds domain.TenantCredentials) error {
	ctx, cancel := context.WithTimeout(ctx, a.cfg.Timeout)
	defer cancel()

	url := strings.ReplaceAll(a.cfg.LoginURL, "{tenant}", creds.TenantKey)
	if err := navigate(ctx, eng, url); err != nil {
		return err
	}

	// Seeded auth state may skip the form entirely: one probe, no waiting.
	if value, err := eval(ctx, eng, "Boolean("+a.cfg.SuccessProbe+")"); err == nil && string(value) == "true" {
		a.logger.Info("console session restored from saved auth state", "tenant", creds.TenantKey)
		return nil
	}

	// Wait for the form, fill it, submit.
	formProbe := fmt.Sprintf("document.querySelector(%s) !== null", jsString(a.cfg.UsernameSelector))
	if err := pollTruthy(ctx, eng, formProbe, a.cfg.PollInterval); err != nil {
		return fmt.Errorf("login form never appeared: %w", err)
	}

	fill := fmt.Sprintf(`(() => {
		const setValue = (selector, value) => {
			const el = document.querySelector(selector);
			if (!el) throw new Error("missing element: " + selector);
			el.value = value;
			el.dispatchEvent(new Event("input", {bubbles: true}));
			el.dispatchEvent(new Event("change", {bubbles: true}));
		};
		setValue(%s, %s);
		setValue(%s, %s);
		const submit = document.querySelector(%s);
		if (!submit) throw new Error("missing submit control");
		submit.click();
		return true;
	})()`,
		jsString(a.cfg.UsernameSelector), jsString(creds.Username),
		jsString(a.cfg.PasswordSelector), jsString(creds.Password),
		jsString(a.cfg.SubmitSelector))

	if _, err := eval(ctx, eng, fill); err != nil {
		return fmt.Errorf("submit login form: %w", err)
	}

	if err := pollTruthy(ctx, eng, a.cfg.SuccessProbe, a.cfg.PollInterval); err != nil {
		return fmt.Errorf("login not confirmed for tenant %s: %w", creds.TenantKey, err)
	}
	a.logger.Info("console login succeeded", "tenant", creds.TenantKey)
	return nil
}

// jsString encodes v as a JS string literal.
func jsString(v string) string {
	b, _ := json.Marshal(v)
	return string(b)
}
