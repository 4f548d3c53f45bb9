package bootstrap

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"
)

// ShutdownGracePeriod bounds how long Run waits for a service's loop to exit
// after its context is canceled before giving up and returning anyway.
const ShutdownGracePeriod = 30 * time.Second

// Run installs a SIGINT/SIGTERM handler, invokes run with a context that is
// canceled on receipt of either signal or on run returning early through
// errCh, and blocks until run exits or the grace period elapses. Each of the
// three long-running binaries (worker, sync, status aggregator) has exactly
// one loop, so this replaces the
// multi-service orchestration a monolithic entrypoint would need with the
// single-loop case it actually has.
func Run(name string, logger *slog.Logger, run func(ctx context.Context) error) error {
	if logger == nil {
		logger = slog.Default()
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	errCh := make(chan error, 1)
	go func() {
		errCh <- run(ctx)
	}()

	select {
	case sig := <-quit:
		logger.Info("received signal, shutting down", "service", name, "signal", sig.String())
		cancel()
	case err := <-errCh:
		if err != nil {
			logger.Error("service exited with error", "service", name, "error", err)
		}
		return err
	}

	select {
	case err := <-errCh:
		return err
	case <-time.After(ShutdownGracePeriod):
		logger.Warn("timed out waiting for graceful shutdown", "service", name)
		return nil
	}
}
