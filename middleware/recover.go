package middleware

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"

	"github.com/xraph/coldrun/queue"
)

// Recover returns middleware that recovers from panics in the handler chain.
// Panics are converted to errors and logged with a stack trace.
func Recover(logger *slog.Logger) Middleware {
	return func(ctx context.Context, msg *queue.Message, next Handler) (ack bool, retErr error) {
		defer func() {
			if r := recover(); r != nil {
				stack := string(debug.Stack())
				logger.Error("message handler panicked",
					slog.String("job_id", msg.JobID.String()),
					slog.String("job_type", msg.JobType),
					slog.Any("panic", r),
					slog.String("stack", stack),
				)
				ack = false
				retErr = fmt.Errorf("panic processing job %s: %v", msg.JobID, r)
			}
		}()
		return next(ctx)
	}
}
