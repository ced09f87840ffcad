package redis

// Redis key naming for the coldrun work queue. All keys are prefixed
// with "coldrun:" to avoid collisions with other tenants of the same
// Redis instance.

const keyPrefix = "coldrun:"

// readyKey is the Sorted Set holding every message's next-eligible
// timestamp: newly enqueued messages score "now", leased messages score
// their lease deadline.
const readyKey = keyPrefix + "queue:ready"

// msgKey returns the Hash key holding one message's body and bookkeeping
// fields (job_type, request_body, receives, version).
func msgKey(jobID string) string { return keyPrefix + "queue:msg:" + jobID }
