// Package job defines the durable job record (the registry, C1) and its
// storage contract.
//
// # Job Entity
//
// A [Job] represents one submitted unit of inference work, identified by
// a job_id assigned at creation. It progresses through a small state
// machine:
//
//	PENDING → PROCESSING → COMPLETED
//	PENDING → PROCESSING → FAILED
//	PROCESSING → PROCESSING (re-claim on redelivery, attempts increments)
//
// COMPLETED and FAILED are terminal: once reached, no further transition
// is permitted. Store implementations enforce this with a conditional
// write rather than relying on callers to check first.
//
// # Store
//
// [Store] is implemented by each backend (in-memory, Postgres). The
// interesting method is Claim, which atomically transitions a record to
// PROCESSING only if it is not already terminal, and CommitCompleted and
// CommitFailed, which write a terminal state only if the current state is not already
// terminal — the mechanism behind the at-least-once idempotency
// contract described for the worker adapter.
package job
