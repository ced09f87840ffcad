// Command worker runs the worker adapter (C5): it receives messages
// from the work queue, drives the inference engine to completion, and
// commits results to the job registry. Idle detection runs in its own
// process (cmd/idlewatcher), so this process disables it.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/xraph/coldrun"
	"github.com/xraph/coldrun/engine"
	"github.com/xraph/coldrun/internal/bootstrap"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	if err := run(logger); err != nil {
		logger.Error("worker exited with error", slog.String("error", err.Error()))
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

	concurrency := 1
	if raw := os.Getenv("WORKER_CONCURRENCY"); raw != "" {
		if n, convErr := strconv.Atoi(raw); convErr == nil && n > 0 {
			concurrency = n
		}
	}

	logger.Info("building runtime", slog.Int("concurrency", concurrency))
	rt, err := bootstrap.Build(ctx, cfg, logger,
		engine.WithConcurrency(concurrency),
		engine.WithoutIdleDetection(),
	)
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

	if err := rt.Engine.StartWorker(ctx); err != nil {
		return err
	}
	logger.Info("worker adapter started")

	<-ctx.Done()
	logger.Info("shutdown signal received, draining in-flight work")

	stopCtx, cancel := context.WithTimeout(context.Background(), cfg.JobDeadline+15*time.Second)
	defer cancel()

	if err := rt.Engine.StopWorker(stopCtx); err != nil {
		return err
	}

	rt.Engine.Shutdown(stopCtx)
	return nil
}
