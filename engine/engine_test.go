package engine_test

import (
	"context"
	"log/slog"
	"os"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xraph/coldrun"
	"github.com/xraph/coldrun/dlq"
	"github.com/xraph/coldrun/engine"
	"github.com/xraph/coldrun/host"
	"github.com/xraph/coldrun/inference"
	"github.com/xraph/coldrun/job"
	"github.com/xraph/coldrun/queue"
	"github.com/xraph/coldrun/store/memory"
)

// fakeEngine is a scripted inference.Client that completes every job
// after one poll, unless told to fail it.
type fakeEngine struct {
	mu      sync.Mutex
	polls   map[string]int
	failing map[string]bool
}

func newFakeEngine() *fakeEngine {
	return &fakeEngine{polls: make(map[string]int), failing: make(map[string]bool)}
}

func (f *fakeEngine) failNext(workerJobID string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failing[workerJobID] = true
}

func (f *fakeEngine) Submit(_ context.Context, _, jobType string, _ []byte) (inference.SubmitResult, error) {
	return inference.SubmitResult{WorkerJobID: "wj-" + jobType, Status: inference.StatusQueued}, nil
}

func (f *fakeEngine) Poll(_ context.Context, _, workerJobID string) (inference.PollResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.polls[workerJobID]++
	if f.polls[workerJobID] < 2 {
		return inference.PollResult{Status: inference.StatusRunning}, nil
	}
	if f.failing[workerJobID] {
		return inference.PollResult{Status: inference.StatusFailed, Error: "engine reported failure"}, nil
	}
	return inference.PollResult{Status: inference.StatusDone, ResultURI: "s3://results/" + workerJobID}, nil
}

// trackingExtension records every lifecycle event it observes.
type trackingExtension struct {
	mu        sync.Mutex
	enqueued  []string
	started   []string
	completed []string
	failed    []string
	idleFired int32
	shutdown  int32
}

func (t *trackingExtension) Name() string { return "tracking" }

func (t *trackingExtension) OnJobEnqueued(_ context.Context, j *job.Job) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.enqueued = append(t.enqueued, j.ID.String())
	return nil
}

func (t *trackingExtension) OnJobStarted(_ context.Context, j *job.Job) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.started = append(t.started, j.ID.String())
	return nil
}

func (t *trackingExtension) OnJobCompleted(_ context.Context, j *job.Job, _ time.Duration) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.completed = append(t.completed, j.ID.String())
	return nil
}

func (t *trackingExtension) OnJobFailed(_ context.Context, j *job.Job, _ error) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.failed = append(t.failed, j.ID.String())
	return nil
}

func (t *trackingExtension) OnIdleFired(_ context.Context, _ int) error {
	atomic.AddInt32(&t.idleFired, 1)
	return nil
}

func (t *trackingExtension) OnShutdown(_ context.Context) error {
	atomic.AddInt32(&t.shutdown, 1)
	return nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func newTestEngine(t *testing.T, fe *fakeEngine, tracker *trackingExtension) (*engine.Engine, *memory.Store, *host.Memory) {
	t.Helper()

	st := memory.New()
	ctrl := host.NewMemory(host.StateRunning)
	ctrl.SetEndpoint("http://engine.local")

	cfg := coldrun.DefaultConfig()
	cfg.PollInterval = 5 * time.Millisecond
	cfg.VisibilityTimeout = time.Second
	cfg.JobDeadline = 2 * time.Second
	cfg.IdleSample = 20 * time.Millisecond
	cfg.IdlePeriods = 2

	q := queue.NewMemory(cfg.VisibilityTimeout, cfg.MaxReceives, st.DLQ())

	opts := []engine.Option{engine.WithLogger(testLogger())}
	if tracker != nil {
		opts = append(opts, engine.WithExtension(tracker))
	}

	eng, err := engine.Build(cfg, st, q, ctrl, ctrl, fe, opts...)
	require.NoError(t, err)

	return eng, st, ctrl
}

func TestEnqueueThenWorkerCompletesJob(t *testing.T) {
	fe := newFakeEngine()
	tracker := &trackingExtension{}
	eng, _, _ := newTestEngine(t, fe, tracker)

	ctx := context.Background()
	j, err := eng.Enqueue(ctx, "camera-angle", []byte(`{"angle":30}`))
	require.NoError(t, err)
	assert.Equal(t, job.StatePending, j.Status)

	require.NoError(t, eng.StartWorker(ctx))
	defer eng.StopWorker(context.Background())

	require.Eventually(t, func() bool {
		got, getErr := eng.Jobs().Get(ctx, j.ID)
		return getErr == nil && got.Status.IsTerminal()
	}, 2*time.Second, 10*time.Millisecond)

	final, err := eng.Jobs().Get(ctx, j.ID)
	require.NoError(t, err)
	assert.Equal(t, job.StateCompleted, final.Status)
	assert.NotEmpty(t, final.ResultURI)

	assert.Contains(t, tracker.enqueued, j.ID.String())
	assert.Contains(t, tracker.started, j.ID.String())
	assert.Contains(t, tracker.completed, j.ID.String())
}

func TestEnqueueThenWorkerCommitsFailure(t *testing.T) {
	fe := newFakeEngine()
	fe.failNext("wj-face-mask")
	tracker := &trackingExtension{}
	eng, _, _ := newTestEngine(t, fe, tracker)

	ctx := context.Background()
	j, err := eng.Enqueue(ctx, "face-mask", []byte(`{}`))
	require.NoError(t, err)

	require.NoError(t, eng.StartWorker(ctx))
	defer eng.StopWorker(context.Background())

	require.Eventually(t, func() bool {
		got, getErr := eng.Jobs().Get(ctx, j.ID)
		return getErr == nil && got.Status.IsTerminal()
	}, 2*time.Second, 10*time.Millisecond)

	final, err := eng.Jobs().Get(ctx, j.ID)
	require.NoError(t, err)
	assert.Equal(t, job.StateFailed, final.Status)
	assert.NotEmpty(t, final.Error)
	assert.Contains(t, tracker.failed, j.ID.String())
}

func TestReadyReflectsStoreHealth(t *testing.T) {
	fe := newFakeEngine()
	eng, _, _ := newTestEngine(t, fe, nil)

	assert.NoError(t, eng.Ready(context.Background()))
}

func TestEnsureHostRunningStartsStoppedHost(t *testing.T) {
	fe := newFakeEngine()
	tracker := &trackingExtension{}

	st := memory.New()
	ctrl := host.NewMemory(host.StateStopped)
	cfg := coldrun.DefaultConfig()
	q := queue.NewMemory(cfg.VisibilityTimeout, cfg.MaxReceives, st.DLQ())

	eng, err := engine.Build(cfg, st, q, ctrl, ctrl, fe,
		engine.WithExtension(tracker),
		engine.WithoutIdleDetection(),
	)
	require.NoError(t, err)

	require.NoError(t, eng.EnsureHostRunning(context.Background()))

	state, err := ctrl.Describe(context.Background())
	require.NoError(t, err)
	assert.Equal(t, host.StateStarting, state)
}

func TestEnsureHostRunningNoopsWhenAlreadyRunning(t *testing.T) {
	fe := newFakeEngine()
	st := memory.New()
	ctrl := host.NewMemory(host.StateRunning)
	cfg := coldrun.DefaultConfig()
	q := queue.NewMemory(cfg.VisibilityTimeout, cfg.MaxReceives, st.DLQ())

	eng, err := engine.Build(cfg, st, q, ctrl, ctrl, fe, engine.WithoutIdleDetection())
	require.NoError(t, err)

	require.NoError(t, eng.EnsureHostRunning(context.Background()))

	state, err := ctrl.Describe(context.Background())
	require.NoError(t, err)
	assert.Equal(t, host.StateRunning, state)
}

func TestIdleDetectorFiresHostStopAfterSustainedIdle(t *testing.T) {
	fe := newFakeEngine()
	tracker := &trackingExtension{}

	st := memory.New()
	ctrl := host.NewMemory(host.StateRunning)
	cfg := coldrun.DefaultConfig()
	cfg.IdleSample = 10 * time.Millisecond
	cfg.IdlePeriods = 2
	q := queue.NewMemory(cfg.VisibilityTimeout, cfg.MaxReceives, st.DLQ())

	eng, err := engine.Build(cfg, st, q, ctrl, ctrl, fe, engine.WithExtension(tracker))
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	go eng.RunIdleDetector(ctx)
	defer eng.StopIdleDetector()

	require.Eventually(t, func() bool {
		state, describeErr := ctrl.Describe(context.Background())
		return describeErr == nil && state == host.StateStopping
	}, 500*time.Millisecond, 10*time.Millisecond)

	assert.GreaterOrEqual(t, atomic.LoadInt32(&tracker.idleFired), int32(1))
}

func TestShutdownNotifiesExtensions(t *testing.T) {
	fe := newFakeEngine()
	tracker := &trackingExtension{}
	eng, _, _ := newTestEngine(t, fe, tracker)

	eng.Shutdown(context.Background())
	assert.Equal(t, int32(1), atomic.LoadInt32(&tracker.shutdown))
}

func TestUnackedMessageIsDivertedAfterMaxReceives(t *testing.T) {
	fe := newFakeEngine()
	st := memory.New()
	ctrl := host.NewMemory(host.StateRunning)

	cfg := coldrun.DefaultConfig()
	cfg.MaxReceives = 1
	cfg.VisibilityTimeout = 10 * time.Millisecond
	cfg.PollInterval = 5 * time.Millisecond
	cfg.JobDeadline = time.Second

	q := queue.NewMemory(cfg.VisibilityTimeout, cfg.MaxReceives, st.DLQ())

	eng, err := engine.Build(cfg, st, q, ctrl, ctrl, fe, engine.WithoutIdleDetection())
	require.NoError(t, err)

	ctx := context.Background()

	// Register the job but leave the host endpoint unknown, so the
	// executor never acknowledges the message and the queue redelivers
	// it until MaxReceives is exhausted.
	j := job.New("camera-angle", []byte(`{}`))
	require.NoError(t, st.Jobs().Create(ctx, j))
	require.NoError(t, q.Enqueue(ctx, j.ID, j.Type, j.RequestBody))

	require.NoError(t, eng.StartWorker(ctx))
	defer eng.StopWorker(context.Background())

	require.Eventually(t, func() bool {
		count, countErr := eng.DLQ().Count(ctx)
		return countErr == nil && count > 0
	}, time.Second, 10*time.Millisecond)
}

func TestDLQReplayReenqueuesJob(t *testing.T) {
	fe := newFakeEngine()
	st := memory.New()
	ctrl := host.NewMemory(host.StateRunning)
	ctrl.SetEndpoint("http://engine.local")
	cfg := coldrun.DefaultConfig()
	q := queue.NewMemory(cfg.VisibilityTimeout, cfg.MaxReceives, st.DLQ())

	eng, err := engine.Build(cfg, st, q, ctrl, ctrl, fe, engine.WithoutIdleDetection())
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, st.DLQ().Push(ctx, job.New("camera-angle", nil).ID, "camera-angle", []byte(`{}`), 4))

	entries, err := eng.DLQ().List(ctx, dlq.ListOpts{})
	require.NoError(t, err)
	require.Len(t, entries, 1)

	replayed, err := eng.DLQ().Replay(ctx, eng.Jobs(), q, entries[0].ID)
	require.NoError(t, err)
	assert.Equal(t, job.StatePending, replayed.Status)

	depth, err := q.Depth(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, depth)
}
