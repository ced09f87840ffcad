// Package middleware provides composable middleware around a worker's
// message execution.
//
// A [Middleware] wraps the run-loop handler for one received queue
// message. Middleware are composed into a chain using [Chain] and
// applied right-to-left: the first middleware in the slice is the
// outermost wrapper.
//
//	// logging → recover → handler
//	chain := middleware.Chain(middleware.Logging(logger), middleware.Recover(logger))
//
// # Built-in Middleware
//
//   - [Logging] — logs job_id, job_type, duration, and outcome
//   - [Recover] — catches panics and converts them to errors
//   - [Timeout] — bounds total handler execution with a hard ceiling
//   - [Tracing] — wraps execution in an OpenTelemetry span
//   - [Metrics] — records per-message duration and outcome counters
//
// # Writing Custom Middleware
//
//	func MyMiddleware() middleware.Middleware {
//	    return func(ctx context.Context, msg *queue.Message, next middleware.Handler) (bool, error) {
//	        // pre-processing
//	        ack, err := next(ctx)
//	        // post-processing
//	        return ack, err
//	    }
//	}
//
// Middleware MUST call next to continue the chain unless intentionally
// short-circuiting.
package middleware
