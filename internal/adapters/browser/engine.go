// Package browser drives one headless Chromium per automation session. The
// browser runs in a managed container and is spoken to over the DevTools
// websocket; business executors issue the actual page commands through
// ports.Engine.
package browser

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"sync"
	"time"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/filters"
	"github.com/docker/docker/api/types/image"
	"github.com/docker/docker/client"
	"github.com/docker/go-connections/nat"
	"github.com/google/uuid"

	"github.com/opsforge/conductor/internal/core/ports"
)

const (
	managedLabel = "conductor.managed"
	sessionLabel = "conductor.session_id"
	tenantLabel  = "conductor.tenant"

	devtoolsPort = "9222/tcp"
)

type Options struct {
	Image        string // headless browser image, e.g. chromedp/headless-shell
	ArtifactsDir string // diagnostic snapshots land here
	StartTimeout time.Duration
	CallTimeout  time.Duration // per DevTools command
}

func (o *Options) withDefaults() {
	if o.Image == "" {
		o.Image = "chromedp/headless-shell:latest"
	}
	if o.StartTimeout <= 0 {
		o.StartTimeout = 30 * time.Second
	}
	if o.CallTimeout <= 0 {
		o.CallTimeout = 30 * time.Second
	}
}

// Factory launches engine instances backed by browser containers.
type Factory struct {
	logger *slog.Logger
	cli    *client.Client
	opts   Options
}

func NewFactory(logger *slog.Logger, opts Options) (*Factory, error) {
	opts.withDefaults()
	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return nil, fmt.Errorf("create docker client: %w", err)
	}
	if err := os.MkdirAll(opts.ArtifactsDir, 0o755); err != nil {
		return nil, fmt.Errorf("create artifacts dir: %w", err)
	}
	return &Factory{logger: logger, cli: cli, opts: opts}, nil
}

var _ ports.EngineFactory = (*Factory)(nil)

// Launch starts a fresh browser container, attaches to its DevTools page
// target, and seeds previously captured cookies when authState is non-empty.
func (f *Factory) Launch(ctx context.Context, tenantKey, authState string) (ports.Engine, error) {
	id := uuid.New().String()

	cfg := &container.Config{
		Image: f.opts.Image,
		ExposedPorts: nat.PortSet{
			nat.Port(devtoolsPort): struct{}{},
		},
		Labels: map[string]string{
			managedLabel: "true",
			sessionLabel: id,
			tenantLabel:  tenantKey,
		},
	}
	hostCfg := &container.HostConfig{
		AutoRemove: false,
		PortBindings: nat.PortMap{
			// Ephemeral host port; resolved from inspect after start.
			nat.Port(devtoolsPort): []nat.PortBinding{{HostIP: "127.0.0.1"}},
		},
		ShmSize: 512 << 20, // Chromium is unusable with the 64MB default
	}

	name := "conductor-browser-" + id
	resp, err := f.cli.ContainerCreate(ctx, cfg, hostCfg, nil, nil, name)
	if client.IsErrNotFound(err) {
		if err = f.pullImage(ctx); err != nil {
			return nil, err
		}
		resp, err = f.cli.ContainerCreate(ctx, cfg, hostCfg, nil, nil, name)
	}
	if err != nil {
		return nil, fmt.Errorf("create browser container: %w", err)
	}

	if err := f.cli.ContainerStart(ctx, resp.ID, container.StartOptions{}); err != nil {
		_ = f.cli.ContainerRemove(ctx, resp.ID, container.RemoveOptions{Force: true})
		return nil, fmt.Errorf("start browser container: %w", err)
	}

	eng := &engine{
		logger:       f.logger.With("session_id", id, "tenant", tenantKey),
		cli:          f.cli,
		containerID:  resp.ID,
		artifactsDir: f.opts.ArtifactsDir,
		callTimeout:  f.opts.CallTimeout,
	}

	startCtx, cancel := context.WithTimeout(ctx, f.opts.StartTimeout)
	defer cancel()
	if err := eng.attach(startCtx); err != nil {
		_ = eng.Close()
		return nil, err
	}
	if authState != "" {
		if err := eng.seedAuthState(startCtx, authState); err != nil {
			_ = eng.Close()
			return nil, fmt.Errorf("seed auth state: %w", err)
		}
	}

	f.logger.Info("browser engine started",
		"session_id", id, "tenant", tenantKey, "container_id", resp.ID[:12])
	return eng, nil
}

func (f *Factory) pullImage(ctx context.Context) error {
	reader, err := f.cli.ImagePull(ctx, f.opts.Image, image.PullOptions{})
	if err != nil {
		return fmt.Errorf("pull image %s: %w", f.opts.Image, err)
	}
	defer reader.Close()
	_, err = io.Copy(io.Discard, reader)
	return err
}

// ReapOrphans removes browser containers left behind by a crashed worker.
// Run once at startup, before any new session launches.
func (f *Factory) ReapOrphans(ctx context.Context) (int, error) {
	args := filters.NewArgs()
	args.Add("label", managedLabel+"=true")
	containers, err := f.cli.ContainerList(ctx, container.ListOptions{All: true, Filters: args})
	if err != nil {
		return 0, fmt.Errorf("list managed containers: %w", err)
	}

	reaped := 0
	for _, c := range containers {
		if err := f.cli.ContainerRemove(ctx, c.ID, container.RemoveOptions{Force: true}); err != nil {
			f.logger.Warn("failed to reap orphaned browser container",
				"container_id", c.ID[:12], "error", err)
			continue
		}
		f.logger.Info("reaped orphaned browser container",
			"container_id", c.ID[:12], "tenant", c.Labels[tenantLabel])
		reaped++
	}
	return reaped, nil
}

// engine is one live browser. All DevTools traffic for the session flows
// through its single page target.
type engine struct {
	logger       *slog.Logger
	cli          *client.Client
	containerID  string
	artifactsDir string
	callTimeout  time.Duration

	cdp *cdpClient

	mu     sync.Mutex
	closed bool
}

var _ ports.Engine = (*engine)(nil)

// attach waits for DevTools to come up and dials the first page target.
func (e *engine) attach(ctx context.Context) error {
	inspect, err := e.cli.ContainerInspect(ctx, e.containerID)
	if err != nil {
		return fmt.Errorf("inspect browser container: %w", err)
	}
	bindings := inspect.NetworkSettings.Ports[nat.Port(devtoolsPort)]
	if len(bindings) == 0 {
		return fmt.Errorf("no host binding for devtools port")
	}
	base := fmt.Sprintf("http://127.0.0.1:%s", bindings[0].HostPort)

	ticker := time.NewTicker(250 * time.Millisecond)
	defer ticker.Stop()
	for {
		wsURL, err := pageTargetURL(ctx, base)
		if err == nil {
			e.cdp, err = dialCDP(ctx, wsURL)
			if err == nil {
				return nil
			}
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("devtools not reachable: %w", ctx.Err())
		case <-ticker.C:
		}
	}
}

type devtoolsTarget struct {
	Type                 string `json:"type"`
	WebSocketDebuggerURL string `json:"webSocketDebuggerUrl"`
}

func pageTargetURL(ctx context.Context, base string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, base+"/json/list", nil)
	if err != nil {
		return "", err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	var targets []devtoolsTarget
	if err := json.NewDecoder(resp.Body).Decode(&targets); err != nil {
		return "", err
	}
	for _, t := range targets {
		if t.Type == "page" && t.WebSocketDebuggerURL != "" {
			return t.WebSocketDebuggerURL, nil
		}
	}
	return "", fmt.Errorf("no page target exposed yet")
}

func (e *engine) Call(ctx context.Context, method string, params any) (json.RawMessage, error) {
	callCtx, cancel := context.WithTimeout(ctx, e.callTimeout)
	defer cancel()
	return e.cdp.call(callCtx, method, params)
}

var labelSanitizer = regexp.MustCompile(`[^a-zA-Z0-9_-]+`)

// Capture writes a screenshot named {label}_{YYYYMMDD_HHMMSS}.png into the
// artifacts directory. It never returns an error: diagnostics must not mask
// the failure that triggered them. The empty string means capture failed.
func (e *engine) Capture(ctx context.Context, label string) string {
	label = labelSanitizer.ReplaceAllString(label, "_")
	name := fmt.Sprintf("%s_%s.png", label, time.Now().Format("20060102_150405"))
	path := filepath.Join(e.artifactsDir, name)

	callCtx, cancel := context.WithTimeout(ctx, e.callTimeout)
	defer cancel()

	raw, err := e.cdp.call(callCtx, "Page.captureScreenshot", map[string]string{"format": "png"})
	if err != nil {
		e.logger.Warn("diagnostic capture failed", "label", label, "error", err)
		return ""
	}
	var shot struct {
		Data string `json:"data"`
	}
	if err := json.Unmarshal(raw, &shot); err != nil {
		e.logger.Warn("diagnostic capture failed", "label", label, "error", err)
		return ""
	}
	png, err := base64.StdEncoding.DecodeString(shot.Data)
	if err == nil {
		err = os.WriteFile(path, png, 0o644)
	}
	if err != nil {
		e.logger.Warn("diagnostic capture failed", "label", label, "error", err)
		return ""
	}

	e.logger.Info("diagnostic captured", "path", path)
	return path
}

// AuthState exports the cookie jar so the next session for this tenant can
// skip the interactive login.
func (e *engine) AuthState(ctx context.Context) (string, error) {
	raw, err := e.Call(ctx, "Network.getCookies", nil)
	if err != nil {
		return "", fmt.Errorf("export cookies: %w", err)
	}
	var state struct {
		Cookies json.RawMessage `json:"cookies"`
	}
	if err := json.Unmarshal(raw, &state); err != nil {
		return "", fmt.Errorf("decode cookies: %w", err)
	}
	return string(state.Cookies), nil
}

func (e *engine) seedAuthState(ctx context.Context, authState string) error {
	var cookies []json.RawMessage
	if err := json.Unmarshal([]byte(authState), &cookies); err != nil {
		return fmt.Errorf("decode auth state: %w", err)
	}
	_, err := e.cdp.call(ctx, "Network.setCookies", map[string]any{"cookies": cookies})
	return err
}

// Close releases the websocket and the container. Safe to call repeatedly.
func (e *engine) Close() error {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return nil
	}
	e.closed = true
	e.mu.Unlock()

	if e.cdp != nil {
		if err := e.cdp.close(); err != nil {
			e.logger.Warn("devtools close failed", "error", err)
		}
	}
	if e.cli != nil && e.containerID != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		err := e.cli.ContainerRemove(ctx, e.containerID, container.RemoveOptions{Force: true})
		if err != nil && !client.IsErrNotFound(err) {
			return fmt.Errorf("remove browser container: %w", err)
		}
	}
	e.logger.Info("browser engine closed")
	return nil
}
