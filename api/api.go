// Package api implements the orchestrator's HTTP surface (C4): job
// submission, job status lookup, and a health probe, routed with chi.
package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/xraph/coldrun"
	"github.com/xraph/coldrun/engine"
)

// jobTypes is the fixed set of inference routes the orchestrator
// accepts submissions for.
var jobTypes = map[string]bool{
	"camera-angle":    true,
	"qwen-image-edit": true,
	"face-mask":       true,
	"full-face-swap":  true,
}

// API wraps an engine.Engine with the HTTP handlers and routing that
// expose it to clients.
type API struct {
	eng    *engine.Engine
	cfg    coldrun.Config
	logger *slog.Logger
	router chi.Router
}

// Option configures an API.
type Option func(*API)

// WithLogger sets the logger used for request logging and panic
// recovery. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(a *API) { a.logger = l }
}

// New builds an API around eng, registering every route.
func New(eng *engine.Engine, cfg coldrun.Config, opts ...Option) *API {
	a := &API{eng: eng, cfg: cfg, logger: slog.Default()}
	for _, o := range opts {
		o(a)
	}

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(a.logging)
	r.Use(a.recover)
	r.Use(cors(cfg.CORSOrigins))

	r.Get("/health", a.health)
	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/{job_type}/jobs", a.submitJob)
		r.Get("/jobs/{job_id}", a.getJob)
	})

	a.router = r
	return a
}

// Handler returns the assembled http.Handler.
func (a *API) Handler() http.Handler { return a.router }
