package worker_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xraph/coldrun/inference"
	"github.com/xraph/coldrun/job"
	"github.com/xraph/coldrun/queue"
	"github.com/xraph/coldrun/store/memory"
	"github.com/xraph/coldrun/worker"
)

func TestAdapterDrainsQueueAndCommitsJob(t *testing.T) {
	st := memory.New()
	q := queue.NewMemory(time.Minute, 3, st.DLQ())
	cfg := testConfig()

	j := job.New("camera-angle", []byte(`{}`))
	require.NoError(t, st.Jobs().Create(context.Background(), j))
	require.NoError(t, q.Enqueue(context.Background(), j.ID, j.Type, j.RequestBody))

	eng := &fakeEngine{
		submitResult: inference.SubmitResult{WorkerJobID: "wj-1", Status: inference.StatusQueued},
		pollResults:  []inference.PollResult{{Status: inference.StatusDone, ResultURI: "s3://out"}},
	}
	exec := newTestExecutor(t, st, q, eng, cfg)

	adapter := worker.NewAdapter(q, exec,
		worker.WithConcurrency(1),
		worker.WithReceiveWait(50*time.Millisecond),
		worker.WithLogger(discardLogger()),
	)

	require.NoError(t, adapter.Start(context.Background()))

	require.Eventually(t, func() bool {
		got, err := st.Jobs().Get(context.Background(), j.ID)
		return err == nil && got.Status == job.StateCompleted
	}, 2*time.Second, 10*time.Millisecond)

	stopCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, adapter.Stop(stopCtx))

	depth, err := q.Depth(context.Background())
	require.NoError(t, err)
	assert.Zero(t, depth)
}

func TestAdapterStartIsIdempotent(t *testing.T) {
	st := memory.New()
	q := queue.NewMemory(time.Minute, 3, st.DLQ())
	cfg := testConfig()
	exec := newTestExecutor(t, st, q, &fakeEngine{}, cfg)

	adapter := worker.NewAdapter(q, exec, worker.WithLogger(discardLogger()))

	require.NoError(t, adapter.Start(context.Background()))
	require.NoError(t, adapter.Start(context.Background()))

	stopCtx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, adapter.Stop(stopCtx))
}

func TestAdapterHasUniqueWorkerID(t *testing.T) {
	st := memory.New()
	q := queue.NewMemory(time.Minute, 3, st.DLQ())
	cfg := testConfig()
	exec := newTestExecutor(t, st, q, &fakeEngine{}, cfg)

	a1 := worker.NewAdapter(q, exec)
	a2 := worker.NewAdapter(q, exec)

	assert.NotEqual(t, a1.WorkerID(), a2.WorkerID())
}
