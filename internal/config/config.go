package config

import (
	"fmt"
	"os"
	"time"
)

// Config is the runtime configuration, read from the environment once at
// startup and injected everywhere. There are no package-level instances.
type Config struct {
	DBPath       string
	LockPath     string
	ArtifactsDir string
	ListenAddr   string
	BrowserImage string

	PollInterval   time.Duration // worker sleep between empty claims
	SessionTTL     time.Duration // idle time before a session is reclaimed
	SweepInterval  time.Duration // session sweep cadence
	StuckThreshold time.Duration // processing older than this is presumed abandoned
	LockTimeout    time.Duration // max wait for the exclusivity lock
	CallTimeout    time.Duration // per DevTools command
	StopTimeout    time.Duration // max wait for the worker to drain on shutdown
}

func FromEnv() (Config, error) {
	cfg := Config{
		DBPath:       envOr("CONDUCTOR_DB_PATH", "conductor.db"),
		LockPath:     envOr("CONDUCTOR_LOCK_PATH", "/tmp/conductor/console.lock"),
		ArtifactsDir: envOr("CONDUCTOR_ARTIFACTS_DIR", "artifacts"),
		ListenAddr:   envOr("CONDUCTOR_LISTEN_ADDR", ":8080"),
		BrowserImage: envOr("CONDUCTOR_BROWSER_IMAGE", "chromedp/headless-shell:latest"),
	}

	var err error
	if cfg.PollInterval, err = durationOr("CONDUCTOR_POLL_INTERVAL", 5*time.Second); err != nil {
		return Config{}, err
	}
	if cfg.SessionTTL, err = durationOr("CONDUCTOR_SESSION_TTL", 15*time.Minute); err != nil {
		return Config{}, err
	}
	if cfg.SweepInterval, err = durationOr("CONDUCTOR_SWEEP_INTERVAL", time.Minute); err != nil {
		return Config{}, err
	}
	if cfg.StuckThreshold, err = durationOr("CONDUCTOR_STUCK_THRESHOLD", 2*time.Hour); err != nil {
		return Config{}, err
	}
	if cfg.LockTimeout, err = durationOr("CONDUCTOR_LOCK_TIMEOUT", 5*time.Minute); err != nil {
		return Config{}, err
	}
	if cfg.CallTimeout, err = durationOr("CONDUCTOR_CALL_TIMEOUT", 30*time.Second); err != nil {
		return Config{}, err
	}
	if cfg.StopTimeout, err = durationOr("CONDUCTOR_STOP_TIMEOUT", 30*time.Second); err != nil {
		return Config{}, err
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects configurations that would misbehave at runtime. Stuck-job
// recovery is purely elapsed-time based (no heartbeat), so the threshold must
// sit far above any legitimate job duration or live work gets reclaimed.
func (c Config) Validate() error {
	if c.PollInterval <= 0 {
		return fmt.Errorf("poll interval must be positive, got %s", c.PollInterval)
	}
	if c.SessionTTL <= 0 {
		return fmt.Errorf("session TTL must be positive, got %s", c.SessionTTL)
	}
	if c.StuckThreshold < 10*c.PollInterval {
		return fmt.Errorf("stuck threshold %s is too close to the poll interval %s; slow jobs would be reclaimed while still running",
			c.StuckThreshold, c.PollInterval)
	}
	if c.StuckThreshold < c.LockTimeout+c.CallTimeout {
		return fmt.Errorf("stuck threshold %s must exceed lock timeout %s plus call timeout %s",
			c.StuckThreshold, c.LockTimeout, c.CallTimeout)
	}
	return nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func durationOr(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}
