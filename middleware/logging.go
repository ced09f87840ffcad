package middleware

import (
	"context"
	"log/slog"
	"time"

	"github.com/xraph/coldrun/queue"
)

// Logging returns middleware that logs message processing start and
// completion.
func Logging(logger *slog.Logger) Middleware {
	return func(ctx context.Context, msg *queue.Message, next Handler) (bool, error) {
		logger.Info("message received",
			slog.String("job_id", msg.JobID.String()),
			slog.String("job_type", msg.JobType),
			slog.Int("receives", msg.Receives),
		)

		start := time.Now()
		ack, err := next(ctx)
		elapsed := time.Since(start)

		if err != nil {
			logger.Warn("message processing failed",
				slog.String("job_id", msg.JobID.String()),
				slog.String("job_type", msg.JobType),
				slog.Duration("elapsed", elapsed),
				slog.Bool("ack", ack),
				slog.String("error", err.Error()),
			)
		} else {
			logger.Info("message processed",
				slog.String("job_id", msg.JobID.String()),
				slog.String("job_type", msg.JobType),
				slog.Duration("elapsed", elapsed),
				slog.Bool("ack", ack),
			)
		}

		return ack, err
	}
}
