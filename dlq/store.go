package dlq

import (
	"context"
	"time"

	"github.com/xraph/coldrun/id"
)

// ListOpts controls pagination for DLQ list queries.
type ListOpts struct {
	// Limit is the maximum number of entries to return. Zero means no limit.
	Limit int
	// Offset is the number of entries to skip.
	Offset int
}

// Store defines the persistence contract for the dead-letter sink. Its
// Push signature intentionally matches queue.DeadLetterSink so that any
// Store implementation can be handed directly to a queue backend as its
// diversion target, with no adapter required.
type Store interface {
	// Push records a message that exceeded the maximum receive count.
	Push(ctx context.Context, jobID id.JobID, jobType string, requestBody []byte, receives int) error

	// List returns entries matching the given options, most recent first.
	List(ctx context.Context, opts ListOpts) ([]*Entry, error)

	// Get retrieves an entry by ID. Returns coldrun.ErrDLQEntryNotFound if absent.
	Get(ctx context.Context, entryID id.DLQID) (*Entry, error)

	// MarkReplayed records that an entry has been replayed.
	MarkReplayed(ctx context.Context, entryID id.DLQID) error

	// Purge removes entries diverted before the given time. Returns the
	// number of entries removed.
	Purge(ctx context.Context, before time.Time) (int64, error)

	// Count returns the total number of entries.
	Count(ctx context.Context) (int64, error)
}
