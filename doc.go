// Package coldrun provides the shared configuration and error taxonomy for
// a cost-optimized asynchronous dispatch layer that fronts a GPU inference
// host: an always-on orchestrator accepts jobs immediately, a worker
// adapter running on the GPU host drains them against a local inference
// engine, and an idle detector powers the host down after sustained
// zero queue depth.
//
// The subsystems live in their own packages so each can be composed
// independently:
//
//   - job: the durable job registry (C1) and its storage backends.
//   - queue: the at-least-once work queue with visibility leases (C2).
//   - host: the compute host control plane (C3).
//   - worker: the queue-consuming adapter that drives jobs to completion (C5).
//   - idle: the out-of-band idle-shutdown observer (C6).
//   - api: the HTTP orchestrator front door (C4).
//   - engine: wiring that assembles the above into a runnable process.
//
// Root-level types (Config, the error taxonomy) are shared ambient
// concerns; there is no top-level Dispatcher type, since each subsystem
// runs as its own process and is composed explicitly by cmd/.
package coldrun
