package api

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/xraph/coldrun"
	"github.com/xraph/coldrun/id"
)

// maxRequestBody bounds how much of a submission body is read, guarding
// against unbounded client uploads.
const maxRequestBody = 10 << 20 // 10 MiB

// submitJob implements POST /api/v1/{job_type}/jobs.
func (a *API) submitJob(w http.ResponseWriter, r *http.Request) {
	jobType := chi.URLParam(r, "job_type")
	if !jobTypes[jobType] {
		writeError(w, http.StatusBadRequest, "unknown job_type "+jobType)
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxRequestBody+1))
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to read request body")
		return
	}
	if len(body) > maxRequestBody {
		writeError(w, http.StatusBadRequest, "request body too large")
		return
	}
	if len(body) == 0 {
		writeError(w, http.StatusBadRequest, "request body must not be empty")
		return
	}

	j, err := a.eng.Enqueue(r.Context(), jobType, body)
	if err != nil {
		a.logger.Error("submit job failed", "error", err)
		writeError(w, http.StatusServiceUnavailable, "job registry or queue unreachable")
		return
	}

	// Best-effort: a cold host wakes on demand. Dispatched in the
	// background so client latency is bounded by the registry write and
	// queue enqueue above, not by however long Start takes to return.
	go func() {
		if wakeErr := a.eng.EnsureHostRunning(context.Background()); wakeErr != nil {
			a.logger.Warn("host wake failed", "error", wakeErr)
		}
	}()

	writeJSON(w, http.StatusAccepted, j.ToProjection())
}

// getJob implements GET /api/v1/jobs/{job_id}.
func (a *API) getJob(w http.ResponseWriter, r *http.Request) {
	jobID, err := id.ParseJobID(chi.URLParam(r, "job_id"))
	if err != nil {
		writeError(w, http.StatusNotFound, "unknown job_id")
		return
	}

	j, err := a.eng.Jobs().Get(r.Context(), jobID)
	if err != nil {
		if errors.Is(err, coldrun.ErrJobNotFound) {
			writeError(w, http.StatusNotFound, "unknown job_id")
			return
		}
		a.logger.Error("get job failed", "error", err)
		writeError(w, http.StatusServiceUnavailable, "job registry unreachable")
		return
	}

	writeJSON(w, http.StatusOK, j.ToProjection())
}
