package dlq

import (
	"context"
	"time"

	"github.com/xraph/coldrun/id"
	"github.com/xraph/coldrun/job"
	"github.com/xraph/coldrun/queue"
)

// Service provides administrative operations over a Store: listing,
// counting, purging, and replaying diverted messages. Diversion itself
// happens inside the queue backend via Store.Push, not through Service.
type Service struct {
	store Store
}

// NewService creates a DLQ service over the given store.
func NewService(store Store) *Service {
	return &Service{store: store}
}

// Store returns the underlying DLQ store for direct List/Get/Purge/Count access.
func (s *Service) Store() Store {
	return s.store
}

// List returns diverted entries matching opts.
func (s *Service) List(ctx context.Context, opts ListOpts) ([]*Entry, error) {
	return s.store.List(ctx, opts)
}

// Get retrieves a diverted entry by ID.
func (s *Service) Get(ctx context.Context, entryID id.DLQID) (*Entry, error) {
	return s.store.Get(ctx, entryID)
}

// Purge removes entries diverted before the given time.
func (s *Service) Purge(ctx context.Context, before time.Time) (int64, error) {
	return s.store.Purge(ctx, before)
}

// Count returns the total number of diverted entries.
func (s *Service) Count(ctx context.Context) (int64, error) {
	return s.store.Count(ctx)
}

// Replay re-enqueues a fresh job from a diverted entry via the standalone
// Replay operation, using the given job registry and work queue.
func (s *Service) Replay(ctx context.Context, jobStore job.Store, q queue.Queue, entryID id.DLQID) (*job.Job, error) {
	return Replay(ctx, s.store, jobStore, q, entryID)
}
