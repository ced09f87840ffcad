package idle

import (
	"context"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xraph/coldrun/host"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeDepth struct {
	depth int32
	err   error
}

func (f *fakeDepth) Depth(ctx context.Context) (int, error) {
	if f.err != nil {
		return 0, f.err
	}
	return int(atomic.LoadInt32(&f.depth)), nil
}

func (f *fakeDepth) set(d int32) { atomic.StoreInt32(&f.depth, d) }

func TestDetectorFiresAfterConsecutiveIdleSamples(t *testing.T) {
	q := &fakeDepth{}
	ctrl := host.NewMemory(host.StateRunning)

	fired := make(chan struct{}, 1)
	d := New(q, ctrl, 10*time.Millisecond, 3, WithThreshold(0), WithLogger(testLogger()))
	d.onFire = func() {
		select {
		case fired <- struct{}{}:
		default:
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go d.Run(ctx)
	defer d.Stop()

	select {
	case <-fired:
	case <-time.After(2 * time.Second):
		t.Fatal("detector did not fire in time")
	}

	state, err := ctrl.Describe(ctx)
	require.NoError(t, err)
	assert.Equal(t, host.StateStopping, state)
}

func TestDetectorDoesNotFireWhileBusy(t *testing.T) {
	q := &fakeDepth{depth: 5}
	ctrl := host.NewMemory(host.StateRunning)

	fired := make(chan struct{}, 1)
	d := New(q, ctrl, 10*time.Millisecond, 2, WithThreshold(0), WithLogger(testLogger()))
	d.onFire = func() {
		select {
		case fired <- struct{}{}:
		default:
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go d.Run(ctx)
	defer d.Stop()

	select {
	case <-fired:
		t.Fatal("detector fired while queue was busy")
	case <-time.After(150 * time.Millisecond):
	}

	state, err := ctrl.Describe(ctx)
	require.NoError(t, err)
	assert.Equal(t, host.StateRunning, state)
}

func TestDetectorResetsCountOnDepthSampleError(t *testing.T) {
	q := &fakeDepth{err: assertError{}}
	ctrl := host.NewMemory(host.StateRunning)
	d := New(q, ctrl, 10*time.Millisecond, 2, WithLogger(testLogger()))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go d.Run(ctx)
	defer d.Stop()

	time.Sleep(100 * time.Millisecond)

	state, err := ctrl.Describe(ctx)
	require.NoError(t, err)
	assert.Equal(t, host.StateRunning, state)
}

type assertError struct{}

func (assertError) Error() string { return "sample failed" }
