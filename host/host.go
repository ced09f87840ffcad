package host

import "context"

// State is the lifecycle state of the compute host.
type State string

const (
	// StateStopped means the host is powered down. The only valid
	// precondition for Start.
	StateStopped State = "stopped"
	// StateStarting means a start command has been issued and the host
	// is not yet ready to receive work.
	StateStarting State = "starting"
	// StateRunning means the host is up and serving the inference
	// engine. The only valid precondition for Stop.
	StateRunning State = "running"
	// StateStopping means a stop command has been issued and the host
	// is shutting down.
	StateStopping State = "stopping"
)

// Controller abstracts the compute host control plane behind three
// operations. Calls are synchronous and bounded; failures are transient
// (KindHostControl) and never block job flow at the caller.
type Controller interface {
	// Describe returns the current host state.
	Describe(ctx context.Context) (State, error)

	// Start attempts STOPPED → STARTING. It is an idempotent no-op for
	// any other current state.
	Start(ctx context.Context) error

	// Stop attempts RUNNING → STOPPING. It is an idempotent no-op for
	// any other current state, and MUST NOT transition from STARTING.
	Stop(ctx context.Context) error
}

// EndpointResolver is satisfied by controllers that can report the
// current network address of the running host, cached independently of
// Describe so that repeated lookups don't hit the control plane on
// every request. Not all backends can offer this — callers should type
// -assert.
type EndpointResolver interface {
	// Endpoint returns the host's current address and whether it is
	// known. Backed by a background refresh loop; never blocks on a
	// live control-plane call.
	Endpoint() (string, bool)
}
