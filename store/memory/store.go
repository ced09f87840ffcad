// Package memory provides an in-memory Store for tests and single-node
// development: independent job and DLQ backends, each guarded by its
// own mutex, bundled behind the store.Store accessor interface. Neither
// persists across process restarts.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/xraph/coldrun"
	"github.com/xraph/coldrun/dlq"
	"github.com/xraph/coldrun/id"
	"github.com/xraph/coldrun/job"
)

// Store bundles an in-memory job registry and DLQ sink. The zero value
// is not usable; construct with New.
type Store struct {
	jobs *jobBackend
	dlq  *dlqBackend
}

// New creates an empty Store.
func New() *Store {
	return &Store{
		jobs: newJobBackend(),
		dlq:  newDLQBackend(),
	}
}

// Jobs returns the job registry backend.
func (s *Store) Jobs() job.Store { return s.jobs }

// DLQ returns the dead-letter sink backend.
func (s *Store) DLQ() dlq.Store { return s.dlq }

// jobBackend is an in-memory job.Store.
type jobBackend struct {
	mu   sync.Mutex
	jobs map[id.JobID]*job.Job
}

func newJobBackend() *jobBackend {
	return &jobBackend{jobs: make(map[id.JobID]*job.Job)}
}

var _ job.Store = (*jobBackend)(nil)

func cloneJob(j *job.Job) *job.Job {
	cp := *j
	if len(j.RequestBody) > 0 {
		cp.RequestBody = append([]byte(nil), j.RequestBody...)
	}
	return &cp
}

// Create persists a new PENDING job record.
func (b *jobBackend) Create(_ context.Context, j *job.Job) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.jobs[j.ID] = cloneJob(j)
	return nil
}

// Get retrieves a job by ID.
func (b *jobBackend) Get(_ context.Context, jobID id.JobID) (*job.Job, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	j, ok := b.jobs[jobID]
	if !ok {
		return nil, coldrun.ErrJobNotFound
	}
	return cloneJob(j), nil
}

// Claim conditionally transitions a record to PROCESSING iff it is not
// already terminal.
func (b *jobBackend) Claim(_ context.Context, jobID id.JobID) (*job.Job, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	j, ok := b.jobs[jobID]
	if !ok {
		return nil, coldrun.ErrJobNotFound
	}
	if j.Status.IsTerminal() {
		return nil, coldrun.ErrTerminalStateImmutable
	}

	j.Status = job.StateProcessing
	j.WorkerJobID = ""
	j.Attempts++
	j.UpdatedAt = time.Now().UTC()

	return cloneJob(j), nil
}

// SetWorkerJobID records the engine-assigned id for the current attempt.
func (b *jobBackend) SetWorkerJobID(_ context.Context, jobID id.JobID, workerJobID string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	j, ok := b.jobs[jobID]
	if !ok {
		return coldrun.ErrJobNotFound
	}

	j.WorkerJobID = workerJobID
	j.UpdatedAt = time.Now().UTC()
	return nil
}

// CommitCompleted conditionally writes a COMPLETED status. A no-op if
// the record is already terminal.
func (b *jobBackend) CommitCompleted(_ context.Context, jobID id.JobID, resultURI string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	j, ok := b.jobs[jobID]
	if !ok {
		return coldrun.ErrJobNotFound
	}
	if j.Status.IsTerminal() {
		return nil
	}

	j.Status = job.StateCompleted
	j.ResultURI = resultURI
	j.UpdatedAt = time.Now().UTC()
	return nil
}

// CommitFailed conditionally writes a FAILED status. A no-op if the
// record is already terminal.
func (b *jobBackend) CommitFailed(_ context.Context, jobID id.JobID, errMsg string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	j, ok := b.jobs[jobID]
	if !ok {
		return coldrun.ErrJobNotFound
	}
	if j.Status.IsTerminal() {
		return nil
	}

	j.Status = job.StateFailed
	j.Error = errMsg
	j.UpdatedAt = time.Now().UTC()
	return nil
}

// MarkFailed transitions a PENDING record straight to FAILED.
func (b *jobBackend) MarkFailed(_ context.Context, jobID id.JobID, errMsg string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	j, ok := b.jobs[jobID]
	if !ok {
		return coldrun.ErrJobNotFound
	}

	j.Status = job.StateFailed
	j.Error = errMsg
	j.UpdatedAt = time.Now().UTC()
	return nil
}

// ListByStatus returns jobs matching status, ordered by created_at.
func (b *jobBackend) ListByStatus(_ context.Context, status job.State, opts job.ListOpts) ([]*job.Job, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	matched := make([]*job.Job, 0, len(b.jobs))
	for _, j := range b.jobs {
		if j.Status == status {
			matched = append(matched, j)
		}
	}
	sort.Slice(matched, func(i, k int) bool { return matched[i].CreatedAt.Before(matched[k].CreatedAt) })
	matched = paginateJobs(matched, opts.Offset, opts.Limit)

	out := make([]*job.Job, len(matched))
	for i, j := range matched {
		out[i] = cloneJob(j)
	}
	return out, nil
}

func paginateJobs(jobs []*job.Job, offset, limit int) []*job.Job {
	if offset >= len(jobs) {
		return nil
	}
	jobs = jobs[offset:]
	if limit > 0 && limit < len(jobs) {
		jobs = jobs[:limit]
	}
	return jobs
}

// ReapExpired deletes records whose TTL has passed and is nonzero.
func (b *jobBackend) ReapExpired(_ context.Context, now time.Time) (int64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	var removed int64
	for jobID, j := range b.jobs {
		if j.TTL.IsZero() || j.TTL.After(now) {
			continue
		}
		delete(b.jobs, jobID)
		removed++
	}
	return removed, nil
}

// Ping always succeeds for the in-memory backend.
func (b *jobBackend) Ping(_ context.Context) error { return nil }

// Migrate is a no-op for the in-memory backend.
func (b *jobBackend) Migrate(_ context.Context) error { return nil }

// Close discards the backend's map.
func (b *jobBackend) Close(_ context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.jobs = nil
	return nil
}

// dlqBackend is an in-memory dlq.Store.
type dlqBackend struct {
	mu      sync.Mutex
	entries map[id.DLQID]*dlq.Entry
}

func newDLQBackend() *dlqBackend {
	return &dlqBackend{entries: make(map[id.DLQID]*dlq.Entry)}
}

var _ dlq.Store = (*dlqBackend)(nil)

func cloneEntry(e *dlq.Entry) *dlq.Entry {
	cp := *e
	if len(e.RequestBody) > 0 {
		cp.RequestBody = append([]byte(nil), e.RequestBody...)
	}
	if e.ReplayedAt != nil {
		t := *e.ReplayedAt
		cp.ReplayedAt = &t
	}
	return &cp
}

// Push records a message that exceeded the maximum receive count.
func (b *dlqBackend) Push(_ context.Context, jobID id.JobID, jobType string, requestBody []byte, receives int) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	entry := &dlq.Entry{
		ID:          id.NewDLQID(),
		JobID:       jobID,
		JobType:     jobType,
		RequestBody: append([]byte(nil), requestBody...),
		Receives:    receives,
		DivertedAt:  time.Now().UTC(),
	}
	b.entries[entry.ID] = entry
	return nil
}

// List returns DLQ entries matching opts, most recently diverted first.
func (b *dlqBackend) List(_ context.Context, opts dlq.ListOpts) ([]*dlq.Entry, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	matched := make([]*dlq.Entry, 0, len(b.entries))
	for _, e := range b.entries {
		matched = append(matched, e)
	}
	sort.Slice(matched, func(i, k int) bool { return matched[i].DivertedAt.After(matched[k].DivertedAt) })
	matched = paginateEntries(matched, opts.Offset, opts.Limit)

	out := make([]*dlq.Entry, len(matched))
	for i, e := range matched {
		out[i] = cloneEntry(e)
	}
	return out, nil
}

func paginateEntries(entries []*dlq.Entry, offset, limit int) []*dlq.Entry {
	if offset >= len(entries) {
		return nil
	}
	entries = entries[offset:]
	if limit > 0 && limit < len(entries) {
		entries = entries[:limit]
	}
	return entries
}

// Get retrieves a DLQ entry by ID.
func (b *dlqBackend) Get(_ context.Context, entryID id.DLQID) (*dlq.Entry, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	e, ok := b.entries[entryID]
	if !ok {
		return nil, coldrun.ErrDLQEntryNotFound
	}
	return cloneEntry(e), nil
}

// MarkReplayed records that an entry has been replayed.
func (b *dlqBackend) MarkReplayed(_ context.Context, entryID id.DLQID) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	e, ok := b.entries[entryID]
	if !ok {
		return coldrun.ErrDLQEntryNotFound
	}

	now := time.Now().UTC()
	e.ReplayedAt = &now
	return nil
}

// Purge removes entries diverted before the given time.
func (b *dlqBackend) Purge(_ context.Context, before time.Time) (int64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	var removed int64
	for entryID, e := range b.entries {
		if e.DivertedAt.Before(before) {
			delete(b.entries, entryID)
			removed++
		}
	}
	return removed, nil
}

// Count returns the total number of DLQ entries.
func (b *dlqBackend) Count(_ context.Context) (int64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	return int64(len(b.entries)), nil
}
