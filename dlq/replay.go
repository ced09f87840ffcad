package dlq

import (
	"context"

	"github.com/xraph/coldrun/id"
	"github.com/xraph/coldrun/job"
	"github.com/xraph/coldrun/queue"
)

// Replay creates a fresh PENDING job from a diverted entry's original
// type and request body, enqueues it, and marks the entry replayed. The
// new job gets its own job_id — like any other submission, replay never
// deduplicates against the original.
func Replay(ctx context.Context, store Store, jobStore job.Store, q queue.Queue, entryID id.DLQID) (*job.Job, error) {
	entry, err := store.Get(ctx, entryID)
	if err != nil {
		return nil, err
	}

	j := job.New(entry.JobType, entry.RequestBody)
	if err := jobStore.Create(ctx, j); err != nil {
		return nil, err
	}

	if err := q.Enqueue(ctx, j.ID, j.Type, j.RequestBody); err != nil {
		_ = jobStore.MarkFailed(ctx, j.ID, "enqueue failed")
		return nil, err
	}

	if err := store.MarkReplayed(ctx, entryID); err != nil {
		// The replay job is already live; a failure to mark the
		// original entry as replayed shouldn't undo it.
		return j, err
	}

	return j, nil
}
