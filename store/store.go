// Package store defines the aggregate persistence handle used by the
// wiring layer: one backend, bundling a job registry (C1) and a
// dead-letter sink, since a diverted entry is a record about a job the
// registry already knows. job.Store and dlq.Store both declare a Get
// method with a different signature, so a single Go type cannot
// implement both at once; Store instead exposes each subsystem through
// an accessor. Available backends:
//
//   - store/memory — in-memory Jobs()/DLQ(), for tests and single-node
//     development. queue.Queue and host.Controller are separate,
//     independently pluggable interfaces (queue.Memory, host.Memory).
//   - store/postgres — Jobs()/DLQ() backed by pgx/v5, satisfying the
//     durability the registry requires (C1).
//   - store/redis — a queue.Queue backed by go-redis/v9 sorted sets,
//     giving the work queue (C2) its lease-based visibility semantics.
package store

import (
	"github.com/xraph/coldrun/dlq"
	"github.com/xraph/coldrun/job"
)

// Store bundles a job registry and a dead-letter sink drawn from the
// same backend.
type Store interface {
	// Jobs returns the job registry.
	Jobs() job.Store

	// DLQ returns the dead-letter sink.
	DLQ() dlq.Store
}
