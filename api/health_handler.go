package api

import (
	"context"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"
)

type healthResponse struct {
	Status     string            `json:"status"`
	Components map[string]string `json:"components"`
}

// health implements GET /health, fanning out reachability checks
// against the registry, queue, and host controller concurrently.
func (a *API) health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	registryStatus, queueStatus, hostStatus := "ok", "ok", "ok"

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := a.eng.Ready(gctx); err != nil {
			registryStatus = "unknown"
		}
		return nil
	})
	g.Go(func() error {
		if _, err := a.eng.Queue().Depth(gctx); err != nil {
			queueStatus = "unknown"
		}
		return nil
	})
	g.Go(func() error {
		if _, err := a.eng.Controller().Describe(gctx); err != nil {
			hostStatus = "unknown"
		}
		return nil
	})

	_ = g.Wait() // component funcs never return an error; they record status instead

	writeJSON(w, http.StatusOK, healthResponse{
		Status: "healthy",
		Components: map[string]string{
			"registry": registryStatus,
			"queue":    queueStatus,
			"host":     hostStatus,
		},
	})
}
