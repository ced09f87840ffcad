package dlq

import (
	"time"

	"github.com/xraph/coldrun/id"
)

// Entry represents a queue message that exceeded the maximum receive
// count and was diverted for inspection or replay.
type Entry struct {
	ID          id.DLQID   `json:"id"`
	JobID       id.JobID   `json:"job_id"`
	JobType     string     `json:"job_type"`
	RequestBody []byte     `json:"request_body"`
	Receives    int        `json:"receives"`
	DivertedAt  time.Time  `json:"diverted_at"`
	ReplayedAt  *time.Time `json:"replayed_at,omitempty"`
}
