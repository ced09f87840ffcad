package worker_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xraph/coldrun"
	"github.com/xraph/coldrun/ext"
	"github.com/xraph/coldrun/host"
	"github.com/xraph/coldrun/inference"
	"github.com/xraph/coldrun/job"
	"github.com/xraph/coldrun/queue"
	"github.com/xraph/coldrun/store/memory"
	"github.com/xraph/coldrun/worker"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeEngine struct {
	submitResult inference.SubmitResult
	submitErr    error
	pollResults  []inference.PollResult
	pollErr      error
}

func (f *fakeEngine) Submit(context.Context, string, string, []byte) (inference.SubmitResult, error) {
	return f.submitResult, f.submitErr
}

func (f *fakeEngine) Poll(context.Context, string, string) (inference.PollResult, error) {
	if f.pollErr != nil {
		return inference.PollResult{}, f.pollErr
	}
	if len(f.pollResults) == 0 {
		return inference.PollResult{Status: inference.StatusRunning}, nil
	}
	next := f.pollResults[0]
	f.pollResults = f.pollResults[1:]
	return next, nil
}

func newTestExecutor(t *testing.T, st *memory.Store, q queue.Queue, eng inference.Client, cfg coldrun.Config) *worker.Executor {
	t.Helper()
	ctrl := host.NewMemory(host.StateRunning)
	ctrl.SetEndpoint("http://engine.local")
	registry := ext.NewRegistry(discardLogger())
	return worker.NewExecutor(st.Jobs(), q, eng, ctrl, registry, cfg, discardLogger())
}

func testConfig() coldrun.Config {
	cfg := coldrun.DefaultConfig()
	cfg.PollInterval = 5 * time.Millisecond
	cfg.VisibilityTimeout = 200 * time.Millisecond
	cfg.JobDeadline = 2 * time.Second
	return cfg
}

func TestExecuteCompletesOnDone(t *testing.T) {
	st := memory.New()
	q := queue.NewMemory(time.Minute, 3, st.DLQ())
	cfg := testConfig()

	j := job.New("camera-angle", []byte(`{}`))
	require.NoError(t, st.Jobs().Create(context.Background(), j))
	require.NoError(t, q.Enqueue(context.Background(), j.ID, j.Type, j.RequestBody))

	msg, err := q.Receive(context.Background(), time.Second)
	require.NoError(t, err)

	eng := &fakeEngine{
		submitResult: inference.SubmitResult{WorkerJobID: "wj-1", Status: inference.StatusQueued},
		pollResults: []inference.PollResult{
			{Status: inference.StatusRunning},
			{Status: inference.StatusDone, ResultURI: "s3://bucket/out.png"},
		},
	}
	exec := newTestExecutor(t, st, q, eng, cfg)

	ack, err := exec.Execute(context.Background(), msg)
	require.NoError(t, err)
	assert.True(t, ack)

	got, err := st.Jobs().Get(context.Background(), j.ID)
	require.NoError(t, err)
	assert.Equal(t, job.StateCompleted, got.Status)
	assert.Equal(t, "s3://bucket/out.png", got.ResultURI)
}

func TestExecuteCommitsFailedOnEngineFailure(t *testing.T) {
	st := memory.New()
	q := queue.NewMemory(time.Minute, 3, st.DLQ())
	cfg := testConfig()

	j := job.New("face-mask", []byte(`{}`))
	require.NoError(t, st.Jobs().Create(context.Background(), j))
	require.NoError(t, q.Enqueue(context.Background(), j.ID, j.Type, j.RequestBody))

	msg, err := q.Receive(context.Background(), time.Second)
	require.NoError(t, err)

	eng := &fakeEngine{
		submitResult: inference.SubmitResult{WorkerJobID: "wj-2", Status: inference.StatusQueued},
		pollResults: []inference.PollResult{
			{Status: inference.StatusFailed, Error: "engine exploded"},
		},
	}
	exec := newTestExecutor(t, st, q, eng, cfg)

	ack, err := exec.Execute(context.Background(), msg)
	require.NoError(t, err)
	assert.True(t, ack)

	got, err := st.Jobs().Get(context.Background(), j.ID)
	require.NoError(t, err)
	assert.Equal(t, job.StateFailed, got.Status)
	assert.Equal(t, "engine exploded", got.Error)
}

func TestExecuteCommitsFailedOnPermanentSubmitFailure(t *testing.T) {
	st := memory.New()
	q := queue.NewMemory(time.Minute, 3, st.DLQ())
	cfg := testConfig()

	j := job.New("face-mask", []byte(`{}`))
	require.NoError(t, st.Jobs().Create(context.Background(), j))
	require.NoError(t, q.Enqueue(context.Background(), j.ID, j.Type, j.RequestBody))

	msg, err := q.Receive(context.Background(), time.Second)
	require.NoError(t, err)

	eng := &fakeEngine{submitErr: coldrun.NewError(coldrun.KindPermanentJobFailure, errors.New("request rejected: unsupported job type"))}
	exec := newTestExecutor(t, st, q, eng, cfg)

	ack, err := exec.Execute(context.Background(), msg)
	require.NoError(t, err)
	assert.True(t, ack)

	got, err := st.Jobs().Get(context.Background(), j.ID)
	require.NoError(t, err)
	assert.Equal(t, job.StateFailed, got.Status)
	assert.Equal(t, "request rejected: unsupported job type", got.Error)
}

func TestExecuteDropsMessageForUnknownJob(t *testing.T) {
	st := memory.New()
	q := queue.NewMemory(time.Minute, 3, st.DLQ())
	cfg := testConfig()
	eng := &fakeEngine{}
	exec := newTestExecutor(t, st, q, eng, cfg)

	unknown := job.New("camera-angle", []byte(`{}`))
	msg := &queue.Message{Handle: "x", JobID: unknown.ID, JobType: unknown.Type, RequestBody: unknown.RequestBody, Receives: 1}

	ack, err := exec.Execute(context.Background(), msg)
	require.Error(t, err)
	assert.True(t, ack)

	kind, ok := coldrun.KindOf(err)
	require.True(t, ok)
	assert.Equal(t, coldrun.KindPoisonous, kind)
}

func TestExecuteLeavesMessageOnTransientSubmitFailure(t *testing.T) {
	st := memory.New()
	q := queue.NewMemory(time.Minute, 3, st.DLQ())
	cfg := testConfig()

	j := job.New("qwen-image-edit", []byte(`{}`))
	require.NoError(t, st.Jobs().Create(context.Background(), j))
	require.NoError(t, q.Enqueue(context.Background(), j.ID, j.Type, j.RequestBody))

	msg, err := q.Receive(context.Background(), time.Second)
	require.NoError(t, err)

	eng := &fakeEngine{submitErr: coldrun.NewError(coldrun.KindTransient, errors.New("engine unreachable"))}
	exec := newTestExecutor(t, st, q, eng, cfg)

	ack, err := exec.Execute(context.Background(), msg)
	require.Error(t, err)
	assert.False(t, ack)

	got, err := st.Jobs().Get(context.Background(), j.ID)
	require.NoError(t, err)
	assert.Equal(t, job.StateProcessing, got.Status)
}

func TestExecuteSkipsAlreadyTerminalJob(t *testing.T) {
	st := memory.New()
	q := queue.NewMemory(time.Minute, 3, st.DLQ())
	cfg := testConfig()

	j := job.New("camera-angle", []byte(`{}`))
	require.NoError(t, st.Jobs().Create(context.Background(), j))
	require.NoError(t, st.Jobs().CommitCompleted(context.Background(), j.ID, "s3://done"))

	msg := &queue.Message{Handle: "x", JobID: j.ID, JobType: j.Type, RequestBody: j.RequestBody, Receives: 2}

	eng := &fakeEngine{}
	exec := newTestExecutor(t, st, q, eng, cfg)

	ack, err := exec.Execute(context.Background(), msg)
	require.NoError(t, err)
	assert.True(t, ack)
}
