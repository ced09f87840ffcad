// Package worker implements the worker adapter (C5): the process that
// drains the work queue, drives each job against the inference engine,
// and durably commits its terminal outcome to the registry before
// acknowledging the queue message.
package worker

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/xraph/coldrun"
	"github.com/xraph/coldrun/ext"
	"github.com/xraph/coldrun/host"
	"github.com/xraph/coldrun/id"
	"github.com/xraph/coldrun/inference"
	"github.com/xraph/coldrun/job"
	"github.com/xraph/coldrun/queue"
)

// Executor drives a single received message through the run loop
// described by the worker adapter contract: validate, look up,
// claim, submit, poll, commit, and report whether the queue message
// may be acknowledged.
type Executor struct {
	store    job.Store
	queue    queue.Queue
	engine   inference.Client
	endpoint host.EndpointResolver
	ext      *ext.Registry

	visibilityTimeout time.Duration
	pollInterval      time.Duration
	deadline          time.Duration

	logger *slog.Logger
}

// NewExecutor creates an Executor bound to a job registry, work queue,
// inference engine client, and host endpoint resolver. registry may be
// nil, in which case lifecycle hooks are skipped.
func NewExecutor(store job.Store, q queue.Queue, engine inference.Client, endpoint host.EndpointResolver, registry *ext.Registry, cfg coldrun.Config, logger *slog.Logger) *Executor {
	return &Executor{
		store:             store,
		queue:             q,
		engine:            engine,
		endpoint:          endpoint,
		ext:               registry,
		visibilityTimeout: cfg.VisibilityTimeout,
		pollInterval:      cfg.PollInterval,
		deadline:          cfg.JobDeadline,
		logger:            logger,
	}
}

func (e *Executor) emitJobStarted(ctx context.Context, j *job.Job) {
	if e.ext != nil {
		e.ext.EmitJobStarted(ctx, j)
	}
}

func (e *Executor) emitJobCompleted(ctx context.Context, j *job.Job, elapsed time.Duration) {
	if e.ext != nil {
		e.ext.EmitJobCompleted(ctx, j, elapsed)
	}
}

func (e *Executor) emitJobFailed(ctx context.Context, j *job.Job, cause error) {
	if e.ext != nil {
		e.ext.EmitJobFailed(ctx, j, cause)
	}
}

// Execute runs one message through the full run loop. ack reports
// whether the caller should delete the message from the queue: true
// for a message that reached a terminal outcome (committed or
// determined poisonous), false for one that should be left for
// natural redelivery.
func (e *Executor) Execute(ctx context.Context, msg *queue.Message) (ack bool, err error) {
	if invalidErr := validateMessage(msg); invalidErr != nil {
		e.logger.Warn("dropping poisonous message: malformed envelope",
			slog.String("error", invalidErr.Error()),
		)
		return true, coldrun.NewError(coldrun.KindPoisonous, invalidErr)
	}

	j, lookupErr := e.store.Get(ctx, msg.JobID)
	if lookupErr != nil {
		if errors.Is(lookupErr, coldrun.ErrJobNotFound) {
			e.logger.Warn("dropping poisonous message: unknown job",
				slog.String("job_id", msg.JobID.String()),
			)
			return true, coldrun.NewError(coldrun.KindPoisonous, lookupErr)
		}
		return false, coldrun.NewError(coldrun.KindTransient, lookupErr)
	}

	if j.Status.IsTerminal() {
		// Idempotent skip: an earlier delivery already finished this job.
		return true, nil
	}

	claimed, claimErr := e.store.Claim(ctx, msg.JobID)
	if claimErr != nil {
		if errors.Is(claimErr, coldrun.ErrTerminalStateImmutable) {
			return true, nil
		}
		if errors.Is(claimErr, coldrun.ErrJobNotFound) {
			return true, coldrun.NewError(coldrun.KindPoisonous, claimErr)
		}
		return false, coldrun.NewError(coldrun.KindTransient, claimErr)
	}
	startedAt := time.Now()
	e.emitJobStarted(ctx, claimed)

	endpoint, known := e.endpoint.Endpoint()
	if !known {
		e.logger.Warn("host endpoint not yet known, deferring message", slog.String("job_id", msg.JobID.String()))
		return false, coldrun.NewError(coldrun.KindTransient, errors.New("host endpoint unavailable"))
	}

	submitResult, submitErr := e.engine.Submit(ctx, endpoint, claimed.Type, claimed.RequestBody)
	if submitErr != nil {
		if kind, ok := coldrun.KindOf(submitErr); ok && kind == coldrun.KindPermanentJobFailure {
			reason := submitErr.Error()
			var taxErr *coldrun.TaxonomyError
			if errors.As(submitErr, &taxErr) {
				reason = taxErr.Err.Error()
			}
			commitErr := e.commitFailed(ctx, msg.JobID, reason, startedAt)
			return commitErr == nil, commitErr
		}
		return false, coldrun.NewError(coldrun.KindTransient, submitErr)
	}

	if setErr := e.store.SetWorkerJobID(ctx, msg.JobID, submitResult.WorkerJobID); setErr != nil {
		return false, coldrun.NewError(coldrun.KindTransient, setErr)
	}

	return e.pollUntilTerminal(ctx, msg, endpoint, submitResult.WorkerJobID, startedAt)
}

func (e *Executor) pollUntilTerminal(ctx context.Context, msg *queue.Message, endpoint, workerJobID string, startedAt time.Time) (bool, error) {
	deadlineTimer := time.NewTimer(e.deadline)
	defer deadlineTimer.Stop()

	pollTicker := time.NewTicker(e.pollInterval)
	defer pollTicker.Stop()

	extendTicker := time.NewTicker(e.visibilityTimeout / 2)
	defer extendTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			return false, coldrun.NewError(coldrun.KindTransient, ctx.Err())

		case <-deadlineTimer.C:
			commitErr := e.commitFailed(ctx, msg.JobID, "deadline exceeded", startedAt)
			return commitErr == nil, commitErr

		case <-extendTicker.C:
			if extendErr := e.extend(ctx, msg); extendErr != nil {
				e.logger.Warn("failed to extend visibility lease",
					slog.String("job_id", msg.JobID.String()),
					slog.String("error", extendErr.Error()),
				)
			}

		case <-pollTicker.C:
			result, pollErr := e.engine.Poll(ctx, endpoint, workerJobID)
			if pollErr != nil {
				e.logger.Warn("engine poll failed, will retry",
					slog.String("job_id", msg.JobID.String()),
					slog.String("worker_job_id", workerJobID),
					slog.String("error", pollErr.Error()),
				)
				continue
			}

			switch result.Status {
			case inference.StatusDone:
				commitErr := e.commitCompleted(ctx, msg.JobID, result.ResultURI, startedAt)
				return commitErr == nil, commitErr
			case inference.StatusFailed:
				commitErr := e.commitFailed(ctx, msg.JobID, result.Error, startedAt)
				return commitErr == nil, commitErr
			case inference.StatusQueued, inference.StatusRunning:
				continue
			}
		}
	}
}

func (e *Executor) extend(ctx context.Context, msg *queue.Message) error {
	return e.queue.Extend(ctx, msg, e.visibilityTimeout)
}

func (e *Executor) commitCompleted(ctx context.Context, jobID id.JobID, resultURI string, startedAt time.Time) error {
	if err := e.store.CommitCompleted(ctx, jobID, resultURI); err != nil {
		return coldrun.NewError(coldrun.KindTransient, err)
	}
	if j, getErr := e.store.Get(ctx, jobID); getErr == nil {
		e.emitJobCompleted(ctx, j, time.Since(startedAt))
	}
	return nil
}

func (e *Executor) commitFailed(ctx context.Context, jobID id.JobID, reason string, startedAt time.Time) error {
	if err := e.store.CommitFailed(ctx, jobID, reason); err != nil {
		return coldrun.NewError(coldrun.KindTransient, err)
	}
	if j, getErr := e.store.Get(ctx, jobID); getErr == nil {
		e.emitJobFailed(ctx, j, errors.New(reason))
	}
	return nil
}

func validateMessage(msg *queue.Message) error {
	if msg.JobID.IsNil() {
		return errors.New("message missing job_id")
	}
	if msg.JobType == "" {
		return errors.New("message missing job_type")
	}
	return nil
}
