// Command idlewatcher runs the idle detector (C6) as its own process:
// it samples queue depth on a fixed interval and stops the GPU host
// after enough consecutive empty samples, independent of the
// orchestrator and worker lifecycles.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/xraph/coldrun"
	"github.com/xraph/coldrun/internal/bootstrap"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	if err := run(logger); err != nil {
		logger.Error("idlewatcher exited with error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func run(logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := coldrun.LoadConfig()
	if err != nil {
		return err
	}

	logger.Info("building runtime",
		slog.Duration("idle_sample", cfg.IdleSample),
		slog.Int("idle_periods", cfg.IdlePeriods),
	)
	rt, err := bootstrap.Build(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if cerr := rt.Close(closeCtx); cerr != nil {
			logger.Error("cleanup failed", slog.String("error", cerr.Error()))
		}
	}()

	logger.Info("idle detector running")
	rt.Engine.RunIdleDetector(ctx)

	logger.Info("shutdown signal received")
	rt.Engine.StopIdleDetector()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	rt.Engine.Shutdown(shutdownCtx)

	return nil
}
