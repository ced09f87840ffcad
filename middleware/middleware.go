package middleware

import (
	"context"

	"github.com/xraph/coldrun/queue"
)

// Handler is the terminal function that drives one received message
// through the worker run loop and reports whether the caller should
// acknowledge it.
type Handler func(ctx context.Context) (ack bool, err error)

// Middleware wraps a Handler with cross-cutting logic. It receives the
// current context, the message being processed, and the next handler
// to call. Middleware MUST call next to continue the chain unless
// short-circuiting.
type Middleware func(ctx context.Context, msg *queue.Message, next Handler) (bool, error)

// Chain composes multiple middleware into a single Middleware.
// Middleware are applied right-to-left: the first middleware in the
// list is the outermost wrapper.
//
// Example: Chain(logging, recover) executes as:
//
//	logging → recover → handler
func Chain(mws ...Middleware) Middleware {
	return func(ctx context.Context, msg *queue.Message, next Handler) (bool, error) {
		h := next
		for i := len(mws) - 1; i >= 0; i-- {
			mw := mws[i]
			prev := h
			h = func(ctx context.Context) (bool, error) {
				return mw(ctx, msg, prev)
			}
		}
		return h(ctx)
	}
}
