package ext

import (
	"context"
	"time"

	"github.com/xraph/coldrun/job"
)

// Extension is the base interface all extensions must implement.
type Extension interface {
	// Name returns a unique human-readable name for the extension.
	Name() string
}

// ──────────────────────────────────────────────────
// Job lifecycle hooks
// ──────────────────────────────────────────────────

// JobEnqueued is called after a job is successfully created and enqueued.
type JobEnqueued interface {
	OnJobEnqueued(ctx context.Context, j *job.Job) error
}

// JobStarted is called when a worker claims a job and begins execution.
type JobStarted interface {
	OnJobStarted(ctx context.Context, j *job.Job) error
}

// JobCompleted is called after a job's engine call finishes successfully.
type JobCompleted interface {
	OnJobCompleted(ctx context.Context, j *job.Job, elapsed time.Duration) error
}

// JobFailed is called when a job reaches the FAILED terminal state,
// whether from an engine-reported failure or a deadline expiry.
type JobFailed interface {
	OnJobFailed(ctx context.Context, j *job.Job, err error) error
}

// JobDLQ is called through Registry.EmitJobDLQ for a message that
// exceeded its receive limit and was diverted to the dead-letter sink.
// The queue backends in this module divert messages without calling
// EmitJobDLQ.
type JobDLQ interface {
	OnJobDLQ(ctx context.Context, jobID string, jobType string, reason string) error
}

// ──────────────────────────────────────────────────
// Host and idle hooks
// ──────────────────────────────────────────────────

// HostStarted is called after the host controller issues a start command.
type HostStarted interface {
	OnHostStarted(ctx context.Context) error
}

// HostStopped is called after the host controller issues a stop command.
type HostStopped interface {
	OnHostStopped(ctx context.Context) error
}

// IdleFired is called when the idle detector observes a sustained
// zero-depth window and stops the host.
type IdleFired interface {
	OnIdleFired(ctx context.Context, consecutiveIdleSamples int) error
}

// ──────────────────────────────────────────────────
// Other hooks
// ──────────────────────────────────────────────────

// Shutdown is called during graceful shutdown of a long-lived process.
type Shutdown interface {
	OnShutdown(ctx context.Context) error
}
