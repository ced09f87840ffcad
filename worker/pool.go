package worker

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/xraph/coldrun"
	"github.com/xraph/coldrun/id"
	"github.com/xraph/coldrun/middleware"
	"github.com/xraph/coldrun/queue"
)

// Adapter drains the work queue and drives each received message
// through an Executor, wrapped in a middleware chain. It is a single
// cooperative loop by default — concurrency above 1 is supported for
// higher engine throughput, but the default deployment runs one
// adapter process per host.
type Adapter struct {
	queue       queue.Queue
	executor    *Executor
	chain       middleware.Middleware
	concurrency int
	receiveWait time.Duration
	workerID    id.WorkerID
	logger      *slog.Logger

	stopCh  chan struct{}
	wg      sync.WaitGroup
	mu      sync.Mutex
	running bool
}

// AdapterOption configures an Adapter.
type AdapterOption func(*Adapter)

// WithConcurrency sets the number of concurrent receive loops. Default 1.
func WithConcurrency(n int) AdapterOption {
	return func(a *Adapter) { a.concurrency = n }
}

// WithReceiveWait sets the long-poll wait passed to queue.Receive.
func WithReceiveWait(d time.Duration) AdapterOption {
	return func(a *Adapter) { a.receiveWait = d }
}

// WithLogger sets a custom logger.
func WithLogger(l *slog.Logger) AdapterOption {
	return func(a *Adapter) { a.logger = l }
}

// WithMiddleware sets the middleware chain wrapped around every message
// execution. Defaults to a no-op passthrough.
func WithMiddleware(mws ...middleware.Middleware) AdapterOption {
	return func(a *Adapter) { a.chain = middleware.Chain(mws...) }
}

// NewAdapter creates a worker adapter.
func NewAdapter(q queue.Queue, executor *Executor, opts ...AdapterOption) *Adapter {
	a := &Adapter{
		queue:       q,
		executor:    executor,
		chain:       middleware.Chain(),
		concurrency: 1,
		receiveWait: 20 * time.Second,
		workerID:    id.NewWorkerID(),
		logger:      slog.Default(),
		stopCh:      make(chan struct{}),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// WorkerID returns the adapter's unique identifier.
func (a *Adapter) WorkerID() id.WorkerID { return a.workerID }

// Start launches the receive loops. It returns immediately.
func (a *Adapter) Start(_ context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.running {
		return nil
	}
	a.running = true

	a.logger.Info("worker adapter starting",
		slog.String("worker_id", a.workerID.String()),
		slog.Int("concurrency", a.concurrency),
	)

	for range a.concurrency {
		a.wg.Add(1)
		go a.receiveLoop()
	}

	return nil
}

// Stop signals all receive loops to stop and waits for the in-flight
// message on each to finish, up to ctx's deadline.
func (a *Adapter) Stop(ctx context.Context) error {
	a.mu.Lock()
	if !a.running {
		a.mu.Unlock()
		return nil
	}
	a.running = false
	a.mu.Unlock()

	a.logger.Info("worker adapter stopping", slog.String("worker_id", a.workerID.String()))
	close(a.stopCh)

	done := make(chan struct{})
	go func() {
		a.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		a.logger.Info("worker adapter stopped gracefully")
	case <-ctx.Done():
		a.logger.Warn("worker adapter shutdown timed out with jobs still in flight")
	}

	return nil
}

func (a *Adapter) receiveLoop() {
	defer a.wg.Done()

	for {
		select {
		case <-a.stopCh:
			return
		default:
		}

		msg, err := a.queue.Receive(context.Background(), a.receiveWait)
		if err != nil {
			if errors.Is(err, coldrun.ErrQueueEmpty) {
				continue
			}
			a.logger.Error("receive error", slog.String("error", err.Error()))
			continue
		}

		a.process(msg)
	}
}

func (a *Adapter) process(msg *queue.Message) {
	ctx := context.Background()

	ack, execErr := a.chain(ctx, msg, func(ctx context.Context) (bool, error) {
		return a.executor.Execute(ctx, msg)
	})
	if execErr != nil {
		if kind, ok := coldrun.KindOf(execErr); ok {
			switch kind {
			case coldrun.KindPoisonous:
				a.logger.Warn("dropped poisonous message",
					slog.String("job_id", msg.JobID.String()),
					slog.String("error", execErr.Error()),
				)
			case coldrun.KindTransient:
				a.logger.Debug("transient failure, leaving message for redelivery",
					slog.String("job_id", msg.JobID.String()),
					slog.String("error", execErr.Error()),
				)
			default:
				a.logger.Error("execution failed",
					slog.String("job_id", msg.JobID.String()),
					slog.String("error", execErr.Error()),
				)
			}
		} else {
			a.logger.Error("execution failed",
				slog.String("job_id", msg.JobID.String()),
				slog.String("error", execErr.Error()),
			)
		}
	}

	if !ack {
		return
	}

	if delErr := a.queue.Delete(context.Background(), msg); delErr != nil {
		a.logger.Error("failed to acknowledge message",
			slog.String("job_id", msg.JobID.String()),
			slog.String("error", delErr.Error()),
		)
	}
}
