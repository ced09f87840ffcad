package job

import (
	"context"
	"time"

	"github.com/xraph/coldrun/id"
)

// ListOpts controls pagination for administrative scans of the registry
// via the secondary (status, created_at) lookup.
type ListOpts struct {
	// Limit is the maximum number of jobs to return. Zero means no limit.
	Limit int
	// Offset is the number of jobs to skip.
	Offset int
}

// Store defines the persistence contract for the job registry (C1). All
// methods must be safe for concurrent use.
type Store interface {
	// Create persists a new PENDING job record.
	Create(ctx context.Context, j *Job) error

	// Get retrieves a job by ID. Returns ErrJobNotFound if absent.
	Get(ctx context.Context, jobID id.JobID) (*Job, error)

	// Claim conditionally transitions a record to PROCESSING iff its
	// current status is PENDING or PROCESSING (never FAILED or
	// COMPLETED). It clears WorkerJobID, increments Attempts, and
	// updates UpdatedAt, then returns the updated record.
	// coldrun.ErrTerminalStateImmutable is returned if the record is
	// already terminal — callers should treat this as an idempotent
	// skip, not a failure. coldrun.ErrJobNotFound is returned if absent.
	Claim(ctx context.Context, jobID id.JobID) (*Job, error)

	// SetWorkerJobID records the engine-assigned id for the current
	// attempt after a successful submit.
	SetWorkerJobID(ctx context.Context, jobID id.JobID, workerJobID string) error

	// CommitCompleted conditionally writes a COMPLETED status with the
	// given result URI. It is a no-op (not an error) if the record is
	// already terminal — the earlier winner's result is preserved.
	CommitCompleted(ctx context.Context, jobID id.JobID, resultURI string) error

	// CommitFailed conditionally writes a FAILED status with the given
	// error string. Like CommitCompleted, it is a no-op if the record
	// is already terminal.
	CommitFailed(ctx context.Context, jobID id.JobID, errMsg string) error

	// MarkFailed transitions a PENDING record straight to FAILED. Used
	// only by the orchestrator when a queue write fails after the
	// record was already created, so a retry never orphans a
	// PENDING-but-unqueued record.
	MarkFailed(ctx context.Context, jobID id.JobID, errMsg string) error

	// ListByStatus returns jobs matching status, ordered by created_at,
	// via the secondary (status, created_at) index.
	ListByStatus(ctx context.Context, status State, opts ListOpts) ([]*Job, error)

	// ReapExpired deletes records whose TTL has passed and is nonzero.
	// Returns the number of records removed.
	ReapExpired(ctx context.Context, now time.Time) (int64, error)

	// Ping verifies the backend is reachable, used by the health endpoint.
	Ping(ctx context.Context) error

	// Migrate applies schema migrations, if the backend has any.
	Migrate(ctx context.Context) error

	// Close releases backend resources.
	Close(ctx context.Context) error
}
