// Package host implements the host controller (C3): a thin, synchronous
// wrapper over the compute host control plane exposing describe, start,
// and stop.
//
// Both the orchestrator's wake-on-submit and the idle detector's
// shutdown-on-idle go through the same [Controller] interface. The
// controller never polls for readiness — the queue is the readiness
// contract, so a message simply waits if the host is not yet running.
//
// [Memory] is an in-process fake for tests. The host/k8s package
// provides a Kubernetes-backed implementation that scales a Deployment's
// replica count and reads Pod phase.
package host
