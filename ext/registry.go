package ext

import (
	"context"
	"log/slog"
	"time"

	"github.com/xraph/coldrun/job"
)

type jobEnqueuedEntry struct {
	name string
	hook JobEnqueued
}

type jobStartedEntry struct {
	name string
	hook JobStarted
}

type jobCompletedEntry struct {
	name string
	hook JobCompleted
}

type jobFailedEntry struct {
	name string
	hook JobFailed
}

type jobDLQEntry struct {
	name string
	hook JobDLQ
}

type hostStartedEntry struct {
	name string
	hook HostStarted
}

type hostStoppedEntry struct {
	name string
	hook HostStopped
}

type idleFiredEntry struct {
	name string
	hook IdleFired
}

type shutdownEntry struct {
	name string
	hook Shutdown
}

// Registry holds registered extensions and dispatches lifecycle events
// to them. It type-caches extensions at registration time so emit calls
// iterate only over extensions that implement the relevant hook.
type Registry struct {
	extensions []Extension
	logger     *slog.Logger

	jobEnqueued  []jobEnqueuedEntry
	jobStarted   []jobStartedEntry
	jobCompleted []jobCompletedEntry
	jobFailed    []jobFailedEntry
	jobDLQ       []jobDLQEntry
	hostStarted  []hostStartedEntry
	hostStopped  []hostStoppedEntry
	idleFired    []idleFiredEntry
	shutdown     []shutdownEntry
}

// NewRegistry creates an extension registry with the given logger.
func NewRegistry(logger *slog.Logger) *Registry {
	return &Registry{logger: logger}
}

// Register adds an extension and type-asserts it into all applicable
// hook caches. Extensions are notified in registration order.
func (r *Registry) Register(e Extension) {
	r.extensions = append(r.extensions, e)
	name := e.Name()

	if h, ok := e.(JobEnqueued); ok {
		r.jobEnqueued = append(r.jobEnqueued, jobEnqueuedEntry{name, h})
	}
	if h, ok := e.(JobStarted); ok {
		r.jobStarted = append(r.jobStarted, jobStartedEntry{name, h})
	}
	if h, ok := e.(JobCompleted); ok {
		r.jobCompleted = append(r.jobCompleted, jobCompletedEntry{name, h})
	}
	if h, ok := e.(JobFailed); ok {
		r.jobFailed = append(r.jobFailed, jobFailedEntry{name, h})
	}
	if h, ok := e.(JobDLQ); ok {
		r.jobDLQ = append(r.jobDLQ, jobDLQEntry{name, h})
	}
	if h, ok := e.(HostStarted); ok {
		r.hostStarted = append(r.hostStarted, hostStartedEntry{name, h})
	}
	if h, ok := e.(HostStopped); ok {
		r.hostStopped = append(r.hostStopped, hostStoppedEntry{name, h})
	}
	if h, ok := e.(IdleFired); ok {
		r.idleFired = append(r.idleFired, idleFiredEntry{name, h})
	}
	if h, ok := e.(Shutdown); ok {
		r.shutdown = append(r.shutdown, shutdownEntry{name, h})
	}
}

// Extensions returns all registered extensions.
func (r *Registry) Extensions() []Extension { return r.extensions }

// EmitJobEnqueued notifies all extensions that implement JobEnqueued.
func (r *Registry) EmitJobEnqueued(ctx context.Context, j *job.Job) {
	for _, e := range r.jobEnqueued {
		if err := e.hook.OnJobEnqueued(ctx, j); err != nil {
			r.logHookError("OnJobEnqueued", e.name, err)
		}
	}
}

// EmitJobStarted notifies all extensions that implement JobStarted.
func (r *Registry) EmitJobStarted(ctx context.Context, j *job.Job) {
	for _, e := range r.jobStarted {
		if err := e.hook.OnJobStarted(ctx, j); err != nil {
			r.logHookError("OnJobStarted", e.name, err)
		}
	}
}

// EmitJobCompleted notifies all extensions that implement JobCompleted.
func (r *Registry) EmitJobCompleted(ctx context.Context, j *job.Job, elapsed time.Duration) {
	for _, e := range r.jobCompleted {
		if err := e.hook.OnJobCompleted(ctx, j, elapsed); err != nil {
			r.logHookError("OnJobCompleted", e.name, err)
		}
	}
}

// EmitJobFailed notifies all extensions that implement JobFailed.
func (r *Registry) EmitJobFailed(ctx context.Context, j *job.Job, jobErr error) {
	for _, e := range r.jobFailed {
		if err := e.hook.OnJobFailed(ctx, j, jobErr); err != nil {
			r.logHookError("OnJobFailed", e.name, err)
		}
	}
}

// EmitJobDLQ notifies all extensions that implement JobDLQ.
func (r *Registry) EmitJobDLQ(ctx context.Context, jobID, jobType, reason string) {
	for _, e := range r.jobDLQ {
		if err := e.hook.OnJobDLQ(ctx, jobID, jobType, reason); err != nil {
			r.logHookError("OnJobDLQ", e.name, err)
		}
	}
}

// EmitHostStarted notifies all extensions that implement HostStarted.
func (r *Registry) EmitHostStarted(ctx context.Context) {
	for _, e := range r.hostStarted {
		if err := e.hook.OnHostStarted(ctx); err != nil {
			r.logHookError("OnHostStarted", e.name, err)
		}
	}
}

// EmitHostStopped notifies all extensions that implement HostStopped.
func (r *Registry) EmitHostStopped(ctx context.Context) {
	for _, e := range r.hostStopped {
		if err := e.hook.OnHostStopped(ctx); err != nil {
			r.logHookError("OnHostStopped", e.name, err)
		}
	}
}

// EmitIdleFired notifies all extensions that implement IdleFired.
func (r *Registry) EmitIdleFired(ctx context.Context, consecutiveIdleSamples int) {
	for _, e := range r.idleFired {
		if err := e.hook.OnIdleFired(ctx, consecutiveIdleSamples); err != nil {
			r.logHookError("OnIdleFired", e.name, err)
		}
	}
}

// EmitShutdown notifies all extensions that implement Shutdown.
func (r *Registry) EmitShutdown(ctx context.Context) {
	for _, e := range r.shutdown {
		if err := e.hook.OnShutdown(ctx); err != nil {
			r.logHookError("OnShutdown", e.name, err)
		}
	}
}

// logHookError logs a warning when a lifecycle hook returns an error.
// Errors from hooks are never propagated — they must not block the pipeline.
func (r *Registry) logHookError(hook, extName string, err error) {
	r.logger.Warn("extension hook error",
		slog.String("hook", hook),
		slog.String("extension", extName),
		slog.String("error", err.Error()),
	)
}
