package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/rs/cors"

	"github.com/opsforge/conductor/internal/adapters/browser"
	"github.com/opsforge/conductor/internal/adapters/console"
	"github.com/opsforge/conductor/internal/adapters/duckdb"
	"github.com/opsforge/conductor/internal/adapters/flock"
	appconfig "github.com/opsforge/conductor/internal/config"
	"github.com/opsforge/conductor/internal/core/domain"
	"github.com/opsforge/conductor/internal/core/ports"
	"github.com/opsforge/conductor/internal/core/services"
	"github.com/opsforge/conductor/pkg/kernel"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	logger.Info("starting conductor")

	if err := run(logger); err != nil {
		logger.Error("conductor startup failed", "error", err)
		os.Exit(1)
	}
}

func run(logger *slog.Logger) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle signals
	go func() {
		sig := make(chan os.Signal, 1)
		signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
		<-sig
		logger.Info("shutting down")
		cancel()
	}()

	cfg, err := appconfig.FromEnv()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	// Adapters
	repo, err := duckdb.NewRepository(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("init repository: %w", err)
	}
	defer repo.Close()

	lock, err := flock.New(logger, cfg.LockPath)
	if err != nil {
		return fmt.Errorf("init console lock: %w", err)
	}

	factory, err := browser.NewFactory(logger, browser.Options{
		Image:        cfg.BrowserImage,
		ArtifactsDir: cfg.ArtifactsDir,
		CallTimeout:  cfg.CallTimeout,
	})
	if err != nil {
		return fmt.Errorf("init browser factory: %w", err)
	}

	// Startup reconciliation: remove browser containers a crashed
	// predecessor left behind, then requeue its abandoned jobs.
	if reaped, err := factory.ReapOrphans(ctx); err != nil {
		logger.Warn("orphan browser cleanup failed", "error", err)
	} else if reaped > 0 {
		logger.Info("removed orphan browser containers", "count", reaped)
	}
	if requeued, err := repo.RecoverStuck(ctx, cfg.StuckThreshold); err != nil {
		return fmt.Errorf("startup job recovery: %w", err)
	} else if requeued > 0 {
		logger.Warn("requeued jobs from previous run", "count", requeued)
	}

	// Credentials: encrypted at rest, masked on read
	secretKey, err := appconfig.NewSecretKey()
	if err != nil {
		return fmt.Errorf("init secret key: %w", err)
	}
	credsStore := appconfig.NewCredentialsStore(logger, repo, secretKey)

	// Console collaborators
	var authenticator ports.Authenticator
	if authCfg := console.AuthConfigFromEnv(); authCfg.LoginURL != "" {
		authenticator, err = console.NewAuthenticator(logger, authCfg)
		if err != nil {
			return fmt.Errorf("init authenticator: %w", err)
		}
	} else {
		logger.Warn("CONDUCTOR_CONSOLE_LOGIN_URL not set; sessions launch without login")
	}

	actions := map[string]console.ActionSpec{}
	if path := os.Getenv("CONDUCTOR_ACTIONS_FILE"); path != "" {
		actions, err = console.LoadActions(path)
		if err != nil {
			return fmt.Errorf("load action catalog: %w", err)
		}
		logger.Info("action catalog loaded", "path", path, "actions", len(actions))
	} else {
		logger.Warn("CONDUCTOR_ACTIONS_FILE not set; every action will be rejected")
	}
	runner := console.NewRunner(logger, actions)

	// Core services
	sessions := services.NewSessionManager(logger, factory, credsStore, authenticator, cfg.SessionTTL, cfg.SweepInterval)

	registry := services.NewExecutorRegistry()
	if err := registry.Register(domain.KindBatch, services.NewBatchExecutor(logger, runner, cfg.CallTimeout)); err != nil {
		return err
	}
	if err := registry.Register(domain.KindSingle, services.NewSingleExecutor(logger, runner, cfg.CallTimeout)); err != nil {
		return err
	}

	worker := services.NewWorker(logger, repo, lock, sessions, registry, services.WorkerConfig{
		PollInterval:   cfg.PollInterval,
		LockTimeout:    cfg.LockTimeout,
		StuckThreshold: cfg.StuckThreshold,
	})

	// Kernel API server
	apiServer := kernel.NewServer(logger, repo, lock, sessions, credsStore, registry)

	c := cors.New(cors.Options{
		AllowedOrigins:   []string{"http://localhost:5173", "http://localhost:5174"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
	})

	httpServer := &http.Server{
		Addr:    cfg.ListenAddr,
		Handler: c.Handler(apiServer.Handler()),
	}

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return worker.Run(gCtx)
	})

	g.Go(func() error {
		return sessions.Run(gCtx)
	})

	g.Go(func() error {
		logger.Info("starting api server", "addr", cfg.ListenAddr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("api server failed: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gCtx.Done()
		logger.Info("shutting down api server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.StopTimeout)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
