package middleware

import (
	"context"
	"log/slog"
	"time"

	"github.com/xraph/coldrun/queue"
)

// Timeout returns middleware that enforces a hard ceiling on message
// execution. If d is non-zero, a context.WithTimeout wraps the handler
// call. When the deadline is exceeded, the context is cancelled and the
// handler is expected to return context.DeadlineExceeded.
func Timeout(logger *slog.Logger, d time.Duration) Middleware {
	return func(ctx context.Context, msg *queue.Message, next Handler) (bool, error) {
		if d <= 0 {
			return next(ctx)
		}

		logger.Debug("execution timeout set",
			slog.String("job_id", msg.JobID.String()),
			slog.Duration("timeout", d),
		)

		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d)
		defer cancel()

		return next(ctx)
	}
}
