package dlq_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xraph/coldrun/dlq"
	"github.com/xraph/coldrun/id"
	"github.com/xraph/coldrun/job"
	"github.com/xraph/coldrun/queue"
	"github.com/xraph/coldrun/store/memory"
)

func TestServicePushAndList(t *testing.T) {
	t.Parallel()
	s := memory.New()
	svc := dlq.NewService(s.DLQ())
	ctx := context.Background()

	jobID := id.NewJobID()
	require.NoError(t, s.DLQ().Push(ctx, jobID, "camera-angle", []byte(`{"angle":30}`), 5))

	entries, err := svc.List(ctx, dlq.ListOpts{Limit: 10})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, jobID, entries[0].JobID)
	assert.Equal(t, "camera-angle", entries[0].JobType)
	assert.Equal(t, 5, entries[0].Receives)
}

func TestServiceCount(t *testing.T) {
	t.Parallel()
	s := memory.New()
	svc := dlq.NewService(s.DLQ())
	ctx := context.Background()

	for range 3 {
		require.NoError(t, s.DLQ().Push(ctx, id.NewJobID(), "face-mask", nil, 5))
	}

	count, err := svc.Count(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 3, count)
}

func TestServiceReplayCreatesNewPendingJob(t *testing.T) {
	t.Parallel()
	s := memory.New()
	svc := dlq.NewService(s.DLQ())
	q := queue.NewMemory(30*time.Second, 5, nil)
	ctx := context.Background()

	require.NoError(t, s.DLQ().Push(ctx, id.NewJobID(), "replay-me", []byte(`{"key":"value"}`), 5))

	entries, err := svc.List(ctx, dlq.ListOpts{Limit: 1})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	original := entries[0]

	replayed, err := svc.Replay(ctx, s.Jobs(), q, original.ID)
	require.NoError(t, err)

	assert.NotEqual(t, original.JobID, replayed.ID)
	assert.Equal(t, job.StatePending, replayed.Status)
	assert.Equal(t, "replay-me", replayed.Type)
	assert.Equal(t, []byte(`{"key":"value"}`), replayed.RequestBody)

	got, err := s.Jobs().Get(ctx, replayed.ID)
	require.NoError(t, err)
	assert.Equal(t, job.StatePending, got.Status)

	msg, err := q.Receive(ctx, time.Millisecond)
	require.NoError(t, err)
	assert.Equal(t, replayed.ID, msg.JobID)
}

func TestServiceReplayMarksEntryReplayed(t *testing.T) {
	t.Parallel()
	s := memory.New()
	svc := dlq.NewService(s.DLQ())
	q := queue.NewMemory(30*time.Second, 5, nil)
	ctx := context.Background()

	require.NoError(t, s.DLQ().Push(ctx, id.NewJobID(), "replay-mark", nil, 5))
	entries, err := svc.List(ctx, dlq.ListOpts{Limit: 1})
	require.NoError(t, err)
	entryID := entries[0].ID

	_, err = svc.Replay(ctx, s.Jobs(), q, entryID)
	require.NoError(t, err)

	entry, err := svc.Get(ctx, entryID)
	require.NoError(t, err)
	require.NotNil(t, entry.ReplayedAt)
}

func TestServiceReplayNotFound(t *testing.T) {
	t.Parallel()
	s := memory.New()
	svc := dlq.NewService(s.DLQ())
	q := queue.NewMemory(30*time.Second, 5, nil)
	ctx := context.Background()

	_, err := svc.Replay(ctx, s.Jobs(), q, id.NewDLQID())
	assert.Error(t, err)
}

func TestServicePurge(t *testing.T) {
	t.Parallel()
	s := memory.New()
	svc := dlq.NewService(s.DLQ())
	ctx := context.Background()

	require.NoError(t, s.DLQ().Push(ctx, id.NewJobID(), "old", nil, 5))
	time.Sleep(5 * time.Millisecond)
	cutoff := time.Now().UTC()
	time.Sleep(5 * time.Millisecond)
	require.NoError(t, s.DLQ().Push(ctx, id.NewJobID(), "recent", nil, 5))

	purged, err := svc.Purge(ctx, cutoff)
	require.NoError(t, err)
	assert.EqualValues(t, 1, purged)

	count, err := svc.Count(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, count)
}
