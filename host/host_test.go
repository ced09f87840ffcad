package host_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xraph/coldrun/host"
)

func TestMemoryStartOnlyFromStopped(t *testing.T) {
	ctx := context.Background()
	m := host.NewMemory(host.StateRunning)

	require.NoError(t, m.Start(ctx))

	s, err := m.Describe(ctx)
	require.NoError(t, err)
	assert.Equal(t, host.StateRunning, s, "start against a running host must be a no-op")
}

func TestMemoryStopOnlyFromRunning(t *testing.T) {
	ctx := context.Background()
	m := host.NewMemory(host.StateStopped)

	require.NoError(t, m.Stop(ctx))

	s, err := m.Describe(ctx)
	require.NoError(t, err)
	assert.Equal(t, host.StateStopped, s, "stop against a stopped host must be a no-op")
}

func TestMemoryStartTransitionsToStarting(t *testing.T) {
	ctx := context.Background()
	m := host.NewMemory(host.StateStopped)

	require.NoError(t, m.Start(ctx))

	s, err := m.Describe(ctx)
	require.NoError(t, err)
	assert.Equal(t, host.StateStarting, s)
}

func TestMemoryStopDoesNotInterruptStarting(t *testing.T) {
	ctx := context.Background()
	m := host.NewMemory(host.StateStarting)

	require.NoError(t, m.Stop(ctx))

	s, err := m.Describe(ctx)
	require.NoError(t, err)
	assert.Equal(t, host.StateStarting, s, "stop must never transition out of STARTING")
}

func TestEndpointCacheRefreshesOnLookup(t *testing.T) {
	calls := make(chan struct{}, 4)
	lookup := func(_ context.Context) (string, error) {
		calls <- struct{}{}
		return "10.0.0.5", nil
	}

	cache := host.NewEndpointCache(lookup, 10*time.Millisecond, testLogger())

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	go cache.Run(ctx)

	<-calls // wait for the immediate refresh
	addr, ok := cache.Endpoint()
	assert.True(t, ok)
	assert.Equal(t, "10.0.0.5", addr)
}
