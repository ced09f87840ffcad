package coldrun

import (
	"errors"
	"fmt"
)

// Kind classifies an error by how the caller should react to it, following
// the taxonomy used throughout the orchestrator and worker adapter: what
// matters for control flow is the kind, not the concrete error type.
type Kind string

const (
	// KindClientMalformed marks a bad or missing request envelope. The
	// caller should respond 4xx and must not have caused any side effect.
	KindClientMalformed Kind = "client_malformed"

	// KindTransient marks a registry, queue, or engine call that failed
	// but may succeed on retry. The adapter resolves these by not
	// acknowledging the message; the orchestrator surfaces a 503.
	KindTransient Kind = "transient"

	// KindPermanentJobFailure marks a job that the engine reported as
	// failed, or that exceeded its deadline. It is committed as FAILED
	// and never retried.
	KindPermanentJobFailure Kind = "permanent_job_failure"

	// KindPoisonous marks a message that cannot be decoded or that
	// refers to an unknown job. It is dropped from the queue and logged,
	// never retried.
	KindPoisonous Kind = "poisonous"

	// KindHostControl marks a failed start/stop call against the host
	// controller. It is logged and never blocks job flow.
	KindHostControl Kind = "host_control"
)

// TaxonomyError wraps an underlying error with a Kind so that callers can
// branch on category without string matching or type assertions.
type TaxonomyError struct {
	Kind Kind
	Err  error
}

func (e *TaxonomyError) Error() string {
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

func (e *TaxonomyError) Unwrap() error { return e.Err }

// NewError wraps err with the given Kind. Returns nil if err is nil.
func NewError(kind Kind, err error) error {
	if err == nil {
		return nil
	}
	return &TaxonomyError{Kind: kind, Err: err}
}

// KindOf extracts the Kind from err, if it (or something it wraps) is a
// *TaxonomyError. Returns ok=false for plain errors.
func KindOf(err error) (Kind, bool) {
	var te *TaxonomyError
	if errors.As(err, &te) {
		return te.Kind, true
	}
	return "", false
}

// Sentinel errors returned by the job registry, work queue, and host
// controller. Wrap these with NewError to attach a Kind where the call
// site needs to branch on error category as well as identity.
var (
	// ErrJobNotFound is returned when a job_id has no matching record.
	ErrJobNotFound = errors.New("coldrun: job not found")

	// ErrDLQEntryNotFound is returned when a dead-letter entry id is unknown.
	ErrDLQEntryNotFound = errors.New("coldrun: dlq entry not found")

	// ErrTerminalStateImmutable is returned when a caller attempts to
	// overwrite a COMPLETED or FAILED record with a non-terminal state.
	ErrTerminalStateImmutable = errors.New("coldrun: cannot overwrite terminal job state")

	// ErrInvalidTransition reports a start/stop call that does not apply
	// to the current host state (e.g. stop while STARTING). None of the
	// host controllers in this module return it. Callers should treat
	// this as a no-op, not a failure worth surfacing.
	ErrInvalidTransition = errors.New("coldrun: invalid host state transition")

	// ErrQueueEmpty is returned internally by queue backends when a
	// receive times out with no message; callers should not treat it as
	// a failure worth logging.
	ErrQueueEmpty = errors.New("coldrun: no message available")

	// ErrStoreClosed reports a store method called after Close. The
	// store backends in this module do not return it.
	ErrStoreClosed = errors.New("coldrun: store closed")

	// ErrMigrationFailed wraps schema migration failures at startup.
	ErrMigrationFailed = errors.New("coldrun: migration failed")
)
