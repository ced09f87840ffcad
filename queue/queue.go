package queue

import (
	"context"
	"time"

	"github.com/xraph/coldrun/id"
)

// Message is one queue-level envelope carrying a job_id and the
// inference request body. The Handle field is an opaque token minted by
// the backend at receive time and required by Extend/Delete; it changes
// on every redelivery of the same underlying job_id.
type Message struct {
	// Handle identifies this specific delivery for Extend/Delete calls.
	Handle string

	// JobID is the registry key this message refers to.
	JobID id.JobID

	// JobType selects which inference route the request body targets.
	JobType string

	// RequestBody is the opaque payload passed through to the engine.
	RequestBody []byte

	// Receives is the number of times this job_id has been delivered,
	// including this delivery.
	Receives int
}

// DeadLetterSink receives messages that exceeded a queue's maximum
// receive count. dlq.Store satisfies this interface directly, so a
// queue backend can be constructed with a *dlq store as its diversion
// target without an adapter.
type DeadLetterSink interface {
	Push(ctx context.Context, jobID id.JobID, jobType string, requestBody []byte, receives int) error
}

// Queue is the work-queue contract (C2): reliable at-least-once delivery
// with a per-message visibility lease and dead-letter diversion after
// MaxReceives deliveries.
type Queue interface {
	// Enqueue adds a new message. The queue makes no ordering or
	// uniqueness guarantee.
	Enqueue(ctx context.Context, jobID id.JobID, jobType string, requestBody []byte) error

	// Receive waits up to wait for a visible message, leasing it for the
	// configured visibility timeout and incrementing its receive count.
	// If a message's receive count would exceed MaxReceives, the queue
	// diverts it to the dead-letter sink instead of returning it and
	// continues looking. Returns coldrun.ErrQueueEmpty if none arrive
	// within wait.
	Receive(ctx context.Context, wait time.Duration) (*Message, error)

	// Extend pushes out msg's visibility lease by duration. Used when
	// engine work is expected to exceed the remaining lease.
	Extend(ctx context.Context, msg *Message, duration time.Duration) error

	// Delete acknowledges and permanently removes msg. Must only be
	// called after the corresponding registry commit is durable.
	Delete(ctx context.Context, msg *Message) error

	// Depth returns the approximate number of currently visible
	// (non-leased) messages. In-flight messages are excluded, which is
	// what makes the idle detector race-safe against active work.
	Depth(ctx context.Context) (int, error)

	// Close releases backend resources.
	Close(ctx context.Context) error
}
