// Package ext defines the extension system for coldrun.
//
// Extensions are notified of lifecycle events across the job registry,
// worker adapter, host controller, and idle detector, and can react to
// them — recording metrics, emitting webhooks, writing audit logs, etc.
// Each lifecycle hook is a separate interface so extensions opt in only
// to the events they care about.
//
// # Implementing an Extension
//
//	type MyExtension struct{}
//
//	func (e *MyExtension) Name() string { return "my-extension" }
//
//	func (e *MyExtension) OnJobCompleted(ctx context.Context, j *job.Job, elapsed time.Duration) error {
//	    log.Printf("job %s completed in %s", j.ID, elapsed)
//	    return nil
//	}
//
// # Job Lifecycle Hooks
//
//   - [JobEnqueued] — the orchestrator accepted a submission
//   - [JobStarted] — a worker claimed the job and began execution
//   - [JobCompleted] — the engine produced a result
//   - [JobFailed] — the engine reported failure, or the job deadline expired
//   - [JobDLQ] — a message exceeded its receive limit and was diverted
//     (only via an explicit Registry.EmitJobDLQ call; the queue backends
//     do not emit it)
//
// # Host and Idle Hooks
//
//   - [HostStarted] — the host controller issued a start command
//   - [HostStopped] — the host controller issued a stop command
//   - [IdleFired] — the idle detector observed a sustained-zero-depth window
//
// # Other Hooks
//
//   - [Shutdown] — a long-lived process is shutting down gracefully
//
// The [Registry] fans out each event to all registered extensions that
// implement the corresponding hook interface.
package ext
