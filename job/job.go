package job

import (
	"time"

	"github.com/xraph/coldrun/id"
)

// State is the lifecycle state of a job record. COMPLETED and FAILED are
// terminal; no other state may follow them.
type State string

const (
	// StatePending means the job has been recorded and enqueued but no
	// worker has claimed it yet.
	StatePending State = "pending"
	// StateProcessing means a worker has claimed the job and is driving
	// it against the inference engine. A record may re-enter this state
	// on redelivery; attempts increments each time.
	StateProcessing State = "processing"
	// StateCompleted means the engine produced a result artifact.
	StateCompleted State = "completed"
	// StateFailed means the engine reported failure or the job exceeded
	// its deadline.
	StateFailed State = "failed"
)

// IsTerminal reports whether s is COMPLETED or FAILED.
func (s State) IsTerminal() bool {
	return s == StateCompleted || s == StateFailed
}

// Job is the durable registry record for one submitted unit of work. It
// is the single source of truth for client-visible status.
type Job struct {
	// ID is the opaque, globally unique identifier assigned at creation.
	ID id.JobID `json:"id"`

	// Type identifies which inference route the request body targets,
	// e.g. "camera-angle", "qwen-image-edit", "face-mask", "full-face-swap".
	Type string `json:"job_type"`

	// Status is the current lifecycle state.
	Status State `json:"status"`

	// RequestBody is the opaque structured payload passed through to the
	// inference endpoint verbatim.
	RequestBody []byte `json:"request_body"`

	// CreatedAt is set once, on creation.
	CreatedAt time.Time `json:"created_at"`

	// UpdatedAt is set on every transition; always >= CreatedAt.
	UpdatedAt time.Time `json:"updated_at"`

	// ResultURI is set iff Status == StateCompleted.
	ResultURI string `json:"result_uri,omitempty"`

	// Error is a short failure description, set iff Status == StateFailed.
	Error string `json:"error,omitempty"`

	// WorkerJobID is the id returned by the inference engine's submit
	// call, used to poll its status endpoint. Cleared on each new claim.
	WorkerJobID string `json:"worker_job_id,omitempty"`

	// Attempts counts how many times a worker has begun processing this
	// job. It never decreases.
	Attempts uint32 `json:"attempts"`

	// TTL is an optional future timestamp after which the record may be
	// reaped. Zero means no expiry is set.
	TTL time.Time `json:"ttl,omitempty"`
}

// New creates a PENDING job record for the given type and request body.
// The caller is responsible for persisting it via Store.Create.
func New(jobType string, requestBody []byte) *Job {
	now := time.Now().UTC()
	return &Job{
		ID:          id.NewJobID(),
		Type:        jobType,
		Status:      StatePending,
		RequestBody: requestBody,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// Projection is the client-visible view of a Job returned by the status
// endpoint: everything except the request body and internal bookkeeping
// fields such as WorkerJobID and Attempts.
type Projection struct {
	JobID     string  `json:"job_id"`
	Status    State   `json:"status"`
	ResultURL *string `json:"result_url"`
	Error     *string `json:"error"`
}

// ToProjection converts a Job to its client-visible projection.
func (j *Job) ToProjection() Projection {
	p := Projection{
		JobID:  j.ID.String(),
		Status: j.Status,
	}
	if j.ResultURI != "" {
		p.ResultURL = &j.ResultURI
	}
	if j.Error != "" {
		p.Error = &j.Error
	}
	return p
}
