package queue

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"sync"
	"time"

	"github.com/xraph/coldrun"
	"github.com/xraph/coldrun/id"
)

// message is the internal representation of one enqueued item, shared
// across its lifetime regardless of how many times it is redelivered.
type message struct {
	jobID       id.JobID
	jobType     string
	requestBody []byte
	receives    int

	// handle and leaseUntil are set while the message is leased to a
	// consumer; handle is cleared (empty) when the message is visible.
	handle     string
	leaseUntil time.Time
}

func (m *message) leased(now time.Time) bool {
	return m.handle != "" && now.Before(m.leaseUntil)
}

// Memory is an in-process Queue backed by a mutex-guarded slice. It is
// the default backend for tests and single-node development.
type Memory struct {
	mu                sync.Mutex
	items             []*message
	byHandle          map[string]*message
	visibilityTimeout time.Duration
	maxReceives       int
	dlq               DeadLetterSink

	pollInterval time.Duration
}

// NewMemory creates an in-memory Queue. Messages that would be delivered
// more than maxReceives times are pushed to dlq instead of being
// returned from Receive; dlq may be nil to disable diversion (messages
// are then redelivered forever).
func NewMemory(visibilityTimeout time.Duration, maxReceives int, dlq DeadLetterSink) *Memory {
	return &Memory{
		byHandle:          make(map[string]*message),
		visibilityTimeout: visibilityTimeout,
		maxReceives:       maxReceives,
		dlq:               dlq,
		pollInterval:      50 * time.Millisecond,
	}
}

var _ Queue = (*Memory)(nil)

// Enqueue implements Queue.
func (m *Memory) Enqueue(_ context.Context, jobID id.JobID, jobType string, requestBody []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.items = append(m.items, &message{
		jobID:       jobID,
		jobType:     jobType,
		requestBody: requestBody,
	})
	return nil
}

// Receive implements Queue. It polls internally at a short interval
// until a message becomes visible or wait elapses.
func (m *Memory) Receive(ctx context.Context, wait time.Duration) (*Message, error) {
	deadline := time.Now().Add(wait)
	for {
		if msg, err := m.tryReceive(); err != nil || msg != nil {
			return msg, err
		}

		if time.Now().After(deadline) {
			return nil, coldrun.ErrQueueEmpty
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(m.pollInterval):
		}
	}
}

func (m *Memory) tryReceive() (*Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()
	for _, item := range m.items {
		if item.leased(now) {
			continue
		}

		item.receives++
		if m.dlq != nil && m.maxReceives > 0 && item.receives > m.maxReceives {
			m.removeLocked(item)
			if m.dlq != nil {
				// Push outside the lock would be cleaner, but Memory is
				// a test/dev backend; the dlq store is expected to be
				// cheap and non-blocking.
				if err := m.dlq.Push(context.Background(), item.jobID, item.jobType, item.requestBody, item.receives); err != nil {
					return nil, err
				}
			}
			continue
		}

		if item.handle != "" {
			delete(m.byHandle, item.handle)
		}
		item.handle = newHandle()
		item.leaseUntil = now.Add(m.visibilityTimeout)
		m.byHandle[item.handle] = item

		return &Message{
			Handle:      item.handle,
			JobID:       item.jobID,
			JobType:     item.jobType,
			RequestBody: item.requestBody,
			Receives:    item.receives,
		}, nil
	}

	return nil, nil
}

// Extend implements Queue.
func (m *Memory) Extend(_ context.Context, msg *Message, duration time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	item, ok := m.byHandle[msg.Handle]
	if !ok {
		return nil // already deleted or lease expired; nothing to extend
	}
	item.leaseUntil = time.Now().Add(duration)
	return nil
}

// Delete implements Queue.
func (m *Memory) Delete(_ context.Context, msg *Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	item, ok := m.byHandle[msg.Handle]
	if !ok {
		return nil
	}
	m.removeLocked(item)
	return nil
}

// removeLocked removes item from items and byHandle. Caller holds m.mu.
func (m *Memory) removeLocked(item *message) {
	if item.handle != "" {
		delete(m.byHandle, item.handle)
	}
	for i, it := range m.items {
		if it == item {
			m.items = append(m.items[:i], m.items[i+1:]...)
			break
		}
	}
}

// Depth implements Queue.
func (m *Memory) Depth(_ context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()
	n := 0
	for _, item := range m.items {
		if !item.leased(now) {
			n++
		}
	}
	return n, nil
}

// Close implements Queue. Memory holds no external resources.
func (m *Memory) Close(_ context.Context) error { return nil }

func newHandle() string {
	b := make([]byte, 16)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}
