package middleware

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/xraph/coldrun/queue"
)

// tracerName is the instrumentation scope name for coldrun tracing.
const tracerName = "github.com/xraph/coldrun"

// Tracing returns middleware that wraps message execution in an
// OpenTelemetry span. If no TracerProvider is configured globally, the
// default noop tracer is used and this middleware becomes a
// pass-through with zero overhead.
//
// Span attributes include: coldrun.job.id, coldrun.job.type,
// coldrun.receives. On error, the span status is set to codes.Error
// with the error message.
func Tracing() Middleware {
	tracer := otel.Tracer(tracerName)
	return TracingWithTracer(tracer)
}

// TracingWithTracer returns tracing middleware using the provided
// tracer. This variant allows injecting a specific TracerProvider for
// testing or when multiple providers are in use.
func TracingWithTracer(tracer trace.Tracer) Middleware {
	return func(ctx context.Context, msg *queue.Message, next Handler) (bool, error) {
		ctx, span := tracer.Start(ctx, "coldrun.job.execute",
			trace.WithAttributes(
				attribute.String("coldrun.job.id", msg.JobID.String()),
				attribute.String("coldrun.job.type", msg.JobType),
				attribute.Int("coldrun.receives", msg.Receives),
			),
			trace.WithSpanKind(trace.SpanKindInternal),
		)
		defer span.End()

		ack, err := next(ctx)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		} else {
			span.SetStatus(codes.Ok, "")
			span.SetAttributes(attribute.Bool("coldrun.ack", ack))
		}

		return ack, err
	}
}
