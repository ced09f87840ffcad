// Package postgres implements the job registry (C1) and dead-letter
// sink using pgx/v5 with raw SQL and embedded migrations. It is the
// durable Store backend for a single-orchestrator deployment; the work
// queue lives separately in store/redis.
package postgres
