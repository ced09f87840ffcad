// Package queue implements the work queue (C2): reliable at-least-once
// message delivery with a per-message visibility lease and a dead-letter
// sink for messages that exceed the maximum receive count.
//
// The queue makes no ordering or uniqueness guarantee — duplicates and
// reorderings are expected and must be tolerated by consumers. Each
// receive leases the message exclusively for a visibility window; if the
// consumer does not delete (ack) or extend the lease before it expires,
// the message becomes visible again for redelivery.
//
// [Memory] is an in-process backend suitable for tests and single-node
// development. The store/redis package provides a Redis-backed
// implementation of the same interface for production deployments.
package queue
