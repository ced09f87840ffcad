package host

import (
	"context"
	"sync"
)

// Memory is an in-process Controller fake for tests and single-node
// development. It has no real control plane behind it: Start and Stop
// synchronously flip the state.
type Memory struct {
	mu       sync.Mutex
	state    State
	endpoint string
}

// NewMemory creates a Memory controller in the given initial state.
func NewMemory(initial State) *Memory {
	return &Memory{state: initial}
}

var (
	_ Controller      = (*Memory)(nil)
	_ EndpointResolver = (*Memory)(nil)
)

// Describe implements Controller.
func (m *Memory) Describe(_ context.Context) (State, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state, nil
}

// Start implements Controller.
func (m *Memory) Start(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state == StateStopped {
		m.state = StateStarting
	}
	return nil
}

// Stop implements Controller.
func (m *Memory) Stop(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state == StateRunning {
		m.state = StateStopping
	}
	return nil
}

// SetState forces the state, for tests simulating the host finishing a
// transition (STARTING → RUNNING, STOPPING → STOPPED).
func (m *Memory) SetState(s State) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state = s
}

// SetEndpoint sets the cached endpoint returned by Endpoint.
func (m *Memory) SetEndpoint(addr string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.endpoint = addr
}

// Endpoint implements EndpointResolver.
func (m *Memory) Endpoint() (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.endpoint, m.endpoint != ""
}
