package redis

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/xraph/coldrun"
	"github.com/xraph/coldrun/id"
	"github.com/xraph/coldrun/queue"
)

// Queue is a Redis-backed queue.Queue using a Sorted Set visibility
// lease. The caller owns client's lifecycle.
type Queue struct {
	client            goredis.Cmdable
	visibilityTimeout time.Duration
	maxReceives       int
	dlq               queue.DeadLetterSink

	pollInterval time.Duration
}

// New creates a Redis-backed Queue. Messages redelivered more than
// maxReceives times are pushed to dlq instead of being returned from
// Receive; dlq may be nil to disable diversion.
func New(client goredis.Cmdable, visibilityTimeout time.Duration, maxReceives int, dlq queue.DeadLetterSink) *Queue {
	return &Queue{
		client:            client,
		visibilityTimeout: visibilityTimeout,
		maxReceives:       maxReceives,
		dlq:               dlq,
		pollInterval:      100 * time.Millisecond,
	}
}

var _ queue.Queue = (*Queue)(nil)

// Enqueue implements queue.Queue.
func (q *Queue) Enqueue(ctx context.Context, jobID id.JobID, jobType string, requestBody []byte) error {
	idStr := jobID.String()
	now := float64(time.Now().UnixNano())

	pipe := q.client.TxPipeline()
	pipe.HSet(ctx, msgKey(idStr), map[string]interface{}{
		"job_type":     jobType,
		"request_body": requestBody,
		"receives":     0,
		"version":      0,
	})
	pipe.ZAdd(ctx, readyKey, goredis.Z{Score: now, Member: idStr})
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("coldrun/redis: enqueue: %w", err)
	}
	return nil
}

// Receive implements queue.Queue. It polls internally at a short
// interval until a message becomes visible or wait elapses.
func (q *Queue) Receive(ctx context.Context, wait time.Duration) (*queue.Message, error) {
	deadline := time.Now().Add(wait)
	for {
		msg, err := q.tryClaim(ctx)
		if err != nil {
			return nil, err
		}
		if msg != nil {
			return msg, nil
		}

		if time.Now().After(deadline) {
			return nil, coldrun.ErrQueueEmpty
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(q.pollInterval):
		}
	}
}

func (q *Queue) tryClaim(ctx context.Context) (*queue.Message, error) {
	now := time.Now()
	leaseScore := float64(now.Add(q.visibilityTimeout).UnixNano())

	res, err := claimScript.Run(ctx, q.client, []string{readyKey},
		strconv.FormatInt(now.UnixNano(), 10),
		strconv.FormatFloat(leaseScore, 'f', 0, 64),
		strconv.Itoa(q.maxReceives),
	).Result()
	if err != nil {
		if err == goredis.Nil {
			return nil, nil
		}
		return nil, fmt.Errorf("coldrun/redis: claim: %w", err)
	}
	if res == nil {
		return nil, nil
	}

	fields, ok := res.([]interface{})
	if !ok || len(fields) < 5 {
		return nil, fmt.Errorf("coldrun/redis: claim: unexpected script result %v", res)
	}

	kind, _ := fields[0].(string)
	idStr, _ := fields[1].(string)
	jobType, _ := fields[2].(string)
	body, _ := fields[3].(string)
	receives, _ := strconv.Atoi(fmt.Sprint(fields[4]))

	jobID, parseErr := id.ParseJobID(idStr)
	if parseErr != nil {
		return nil, fmt.Errorf("coldrun/redis: claim: parse job id %q: %w", idStr, parseErr)
	}

	if kind == "dlq" {
		if q.dlq != nil {
			if pushErr := q.dlq.Push(ctx, jobID, jobType, []byte(body), receives); pushErr != nil {
				return nil, fmt.Errorf("coldrun/redis: divert to dlq: %w", pushErr)
			}
		}
		return q.tryClaim(ctx)
	}

	version := fmt.Sprint(fields[5])
	return &queue.Message{
		Handle:      idStr + ":" + version,
		JobID:       jobID,
		JobType:     jobType,
		RequestBody: []byte(body),
		Receives:    receives,
	}, nil
}

// Extend implements queue.Queue.
func (q *Queue) Extend(ctx context.Context, msg *queue.Message, duration time.Duration) error {
	idStr, version, err := splitHandle(msg.Handle)
	if err != nil {
		return err
	}
	leaseScore := float64(time.Now().Add(duration).UnixNano())

	_, err = extendScript.Run(ctx, q.client, []string{readyKey},
		idStr, version, strconv.FormatFloat(leaseScore, 'f', 0, 64),
	).Result()
	if err != nil {
		return fmt.Errorf("coldrun/redis: extend: %w", err)
	}
	return nil
}

// Delete implements queue.Queue.
func (q *Queue) Delete(ctx context.Context, msg *queue.Message) error {
	idStr, version, err := splitHandle(msg.Handle)
	if err != nil {
		return err
	}

	_, err = deleteScript.Run(ctx, q.client, []string{readyKey}, idStr, version).Result()
	if err != nil {
		return fmt.Errorf("coldrun/redis: delete: %w", err)
	}
	return nil
}

// Depth implements queue.Queue: the count of messages currently
// eligible for delivery, excluding leased (in-flight) ones.
func (q *Queue) Depth(ctx context.Context) (int, error) {
	now := strconv.FormatInt(time.Now().UnixNano(), 10)
	n, err := q.client.ZCount(ctx, readyKey, "-inf", now).Result()
	if err != nil {
		return 0, fmt.Errorf("coldrun/redis: depth: %w", err)
	}
	return int(n), nil
}

// Close implements queue.Queue. The client's lifecycle belongs to the
// caller, so Close is a no-op.
func (q *Queue) Close(_ context.Context) error { return nil }

func splitHandle(handle string) (idStr, version string, err error) {
	idStr, version, ok := strings.Cut(handle, ":")
	if !ok {
		return "", "", fmt.Errorf("coldrun/redis: malformed handle %q", handle)
	}
	return idStr, version, nil
}
