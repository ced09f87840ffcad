// Package redis implements queue.Queue (C2) on top of go-redis, using a
// Sorted Set as a visibility-lease queue: the score is the Unix-nano
// timestamp at which a message becomes eligible for delivery again.
// Message bodies live in a companion Hash per job_id. Enqueue writes the
// Hash and the Sorted Set entry in one transaction pipeline;
// receive-with-lease, extend, and delete each run as a single Lua script.
//
// The caller owns the redis.Cmdable's lifecycle; this package never
// closes it.
//
//	client := redis.NewClient(&redis.Options{Addr: "localhost:6379"})
//	q := redis.New(client, cfg.VisibilityTimeout, cfg.MaxReceives, st.DLQ())
package redis
