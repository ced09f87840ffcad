// Package dlq provides the dead-letter sink for queue messages that
// exceed the maximum receive count without being acknowledged.
//
// Diversion happens inside the queue backend itself, not the worker: a
// message that would be delivered for the (MaxReceives+1)th time is
// pushed here instead of being handed back to a consumer. The registry
// record is left exactly as the last attempt observed it — it is not
// forced to FAILED, since a stuck worker may have left it PROCESSING;
// it is reaped only by TTL.
//
// # Service
//
// [Service] wraps the DLQ store with an administrative Replay operation
// that re-enqueues a fresh PENDING job with the entry's original type
// and request body, and a fresh job_id — no deduplication, matching the
// registry's own submit semantics.
package dlq
