package middleware

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/xraph/coldrun/queue"
)

// meterName is the instrumentation scope name for coldrun metrics.
const meterName = "github.com/xraph/coldrun"

// Metrics returns middleware that records per-message execution metrics
// using the global OTel MeterProvider. If no MeterProvider is configured,
// noop instruments are used and this middleware becomes a pass-through.
//
// Instruments:
//   - coldrun.job.duration (Float64Histogram): execution time in seconds,
//     with attributes: job_type, status ("ack", "requeue", or "error")
//   - coldrun.job.executions (Int64Counter): total executions,
//     with attributes: job_type, status
func Metrics() Middleware {
	meter := otel.Meter(meterName)
	return MetricsWithMeter(meter)
}

// MetricsWithMeter returns metrics middleware using the provided meter.
// This variant allows injecting a specific MeterProvider for testing.
func MetricsWithMeter(meter metric.Meter) Middleware {
	duration, dErr := meter.Float64Histogram(
		"coldrun.job.duration",
		metric.WithDescription("Duration of job execution in seconds"),
		metric.WithUnit("s"),
	)
	_ = dErr // noop fallback guaranteed by OTel API contract

	executions, eErr := meter.Int64Counter(
		"coldrun.job.executions",
		metric.WithDescription("Total number of job executions"),
		metric.WithUnit("{execution}"),
	)
	_ = eErr // noop fallback guaranteed by OTel API contract

	return func(ctx context.Context, msg *queue.Message, next Handler) (bool, error) {
		start := time.Now()
		ack, err := next(ctx)
		elapsed := time.Since(start).Seconds()

		status := "ack"
		switch {
		case err != nil:
			status = "error"
		case !ack:
			status = "requeue"
		}

		attrs := metric.WithAttributes(
			attribute.String("job_type", msg.JobType),
			attribute.String("status", status),
		)

		duration.Record(ctx, elapsed, attrs)
		executions.Add(ctx, 1, attrs)

		return ack, err
	}
}
