package bootstrap

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/photomesh/photomesh/config"
)

const shutdownWaitTimeout = 15 * time.Second

// RunConfig groups everything RunWithShutdown needs.
type RunConfig struct {
	Config   *config.AppConfig
	Services ServiceContainer
	Logger   *slog.Logger
}

// RunWithShutdown starts the scheduler and the HTTP server and blocks
// until a shutdown signal arrives or the scheduler fails. It then stops
// the HTTP server and waits for the scheduler to drain.
func RunWithShutdown(cfg *RunConfig) error {
	if cfg == nil {
		return errors.New("run config is required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	errCh := make(chan error, 1)
	schedDone := make(chan struct{})
	go func() {
		defer close(schedDone)
		if err := cfg.Services.Scheduler.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			errCh <- err
		}
	}()

	server := StartHTTPServer(&HTTPServerConfig{
		Config:   cfg.Config,
		Services: cfg.Services,
		Logger:   logger,
	})

	return waitForShutdown(shutdownDeps{
		ctx:       ctx,
		cancel:    cancel,
		errCh:     errCh,
		server:    server,
		services:  cfg.Services,
		schedDone: schedDone,
		logger:    logger,
	})
}

type shutdownDeps struct {
	ctx       context.Context
	cancel    context.CancelFunc
	errCh     <-chan error
	server    *http.Server
	services  ServiceContainer
	schedDone <-chan struct{}
	logger    *slog.Logger
}

func waitForShutdown(deps shutdownDeps) error {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	select {
	case <-quit:
		deps.logger.Info("shutting down...")
		deps.cancel()
		return gracefulStop(deps)
	case err := <-deps.errCh:
		deps.logger.Error("scheduler error", "error", err)
		deps.cancel()
		if stopErr := gracefulStop(deps); stopErr != nil {
			deps.logger.Error("graceful stop failed", "error", stopErr)
		}
		return err
	}
}

func gracefulStop(deps shutdownDeps) error {
	if err := ShutdownHTTPServer(ShutdownConfig{
		Context:    context.Background(),
		Server:     deps.server,
		JobService: deps.services.Jobs,
		Logger:     deps.logger,
	}); err != nil {
		return err
	}

	select {
	case <-deps.schedDone:
		deps.logger.Info("scheduler stopped")
	case <-time.After(shutdownWaitTimeout):
		deps.logger.Warn("timeout waiting for scheduler to stop")
	}

	if deps.services.Metrics != nil {
		if err := deps.services.Metrics.Close(); err != nil {
			deps.logger.Warn("close metrics sink", "error", err)
		}
	}

	return nil
}
