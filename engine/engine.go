// Package engine wires the job registry, work queue, host controller,
// worker adapter, and idle detector together. It sits above every
// subsystem package and below the application layer (the orchestrator's
// HTTP API and the worker/idle-watcher processes), so wiring only
// happens once regardless of which process embeds it.
package engine

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/xraph/coldrun"
	"github.com/xraph/coldrun/dlq"
	"github.com/xraph/coldrun/ext"
	"github.com/xraph/coldrun/host"
	"github.com/xraph/coldrun/idle"
	"github.com/xraph/coldrun/inference"
	"github.com/xraph/coldrun/job"
	"github.com/xraph/coldrun/middleware"
	"github.com/xraph/coldrun/queue"
	"github.com/xraph/coldrun/store"
	"github.com/xraph/coldrun/worker"
)

const tracerName = "github.com/xraph/coldrun"

// Engine is the assembled runtime: a job registry and dead-letter sink
// drawn from a single store, a work queue, a host controller, an
// inference engine client, a worker adapter, and an idle detector.
type Engine struct {
	cfg coldrun.Config

	jobs job.Store
	dlq  *dlq.Service
	q    queue.Queue

	controller host.Controller
	endpoint   host.EndpointResolver

	extensions *ext.Registry
	adapter    *worker.Adapter
	detector   *idle.Detector

	logger *slog.Logger
}

// Option configures Build.
type Option func(*options)

type options struct {
	extensions     []ext.Extension
	middleware     []middleware.Middleware
	logger         *slog.Logger
	tracerProvider trace.TracerProvider
	meterProvider  metric.MeterProvider
	adapterOpts    []worker.AdapterOption
	detectorOpts   []idle.Option
	concurrency    int
	skipIdleDetect bool
}

// WithExtension registers an extension that observes job and host
// lifecycle events.
func WithExtension(e ext.Extension) Option {
	return func(o *options) { o.extensions = append(o.extensions, e) }
}

// WithMiddleware appends to the chain wrapped around every message
// execution in the worker adapter. Applied after the default
// recover/logging/tracing/metrics chain.
func WithMiddleware(mws ...middleware.Middleware) Option {
	return func(o *options) { o.middleware = append(o.middleware, mws...) }
}

// WithLogger sets the logger shared by every subcomponent.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithTracerProvider sets a custom OTel TracerProvider for the worker
// adapter's tracing middleware. If unset, the global provider is used.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(o *options) { o.tracerProvider = tp }
}

// WithMeterProvider sets a custom OTel MeterProvider for the worker
// adapter's metrics middleware. If unset, the global provider is used.
func WithMeterProvider(mp metric.MeterProvider) Option {
	return func(o *options) { o.meterProvider = mp }
}

// WithConcurrency sets the number of concurrent receive loops run by
// the worker adapter. Default 1.
func WithConcurrency(n int) Option {
	return func(o *options) { o.concurrency = n }
}

// WithoutIdleDetection disables the idle detector, e.g. for a
// deployment that scales the host down by an external policy instead.
func WithoutIdleDetection() Option {
	return func(o *options) { o.skipIdleDetect = true }
}

// Build assembles an Engine from a store, work queue, host controller,
// endpoint resolver, and inference engine client.
func Build(cfg coldrun.Config, st store.Store, q queue.Queue, controller host.Controller, endpoint host.EndpointResolver, engineClient inference.Client, opts ...Option) (*Engine, error) {
	o := &options{concurrency: 1}
	for _, opt := range opts {
		opt(o)
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}

	registry := ext.NewRegistry(o.logger)
	for _, e := range o.extensions {
		registry.Register(e)
	}

	chain := buildChain(o)

	executor := worker.NewExecutor(st.Jobs(), q, engineClient, endpoint, registry, cfg, o.logger)
	adapter := worker.NewAdapter(q, executor,
		append([]worker.AdapterOption{
			worker.WithConcurrency(o.concurrency),
			worker.WithReceiveWait(cfg.ReceiveWait),
			worker.WithLogger(o.logger),
			worker.WithMiddleware(chain),
		}, o.adapterOpts...)...,
	)

	var detector *idle.Detector
	if !o.skipIdleDetect {
		detector = idle.New(q, controller, cfg.IdleSample, cfg.IdlePeriods,
			append([]idle.Option{
				idle.WithLogger(o.logger),
				idle.WithExtensions(registry),
			}, o.detectorOpts...)...,
		)
	}

	return &Engine{
		cfg:        cfg,
		jobs:       st.Jobs(),
		dlq:        dlq.NewService(st.DLQ()),
		q:          q,
		controller: controller,
		endpoint:   endpoint,
		extensions: registry,
		adapter:    adapter,
		detector:   detector,
		logger:     o.logger,
	}, nil
}

func buildChain(o *options) middleware.Middleware {
	mws := []middleware.Middleware{
		middleware.Recover(o.logger),
		middleware.Logging(o.logger),
	}
	if o.tracerProvider != nil {
		mws = append(mws, middleware.TracingWithTracer(o.tracerProvider.Tracer(tracerName)))
	} else {
		mws = append(mws, middleware.Tracing())
	}
	if o.meterProvider != nil {
		mws = append(mws, middleware.MetricsWithMeter(o.meterProvider.Meter(tracerName)))
	} else {
		mws = append(mws, middleware.Metrics())
	}
	mws = append(mws, o.middleware...)
	return middleware.Chain(mws...)
}

// Jobs returns the underlying job registry.
func (e *Engine) Jobs() job.Store { return e.jobs }

// DLQ returns the dead-letter administrative service.
func (e *Engine) DLQ() *dlq.Service { return e.dlq }

// Extensions returns the registry so callers can register extensions
// after Build if construction order requires it.
func (e *Engine) Extensions() *ext.Registry { return e.extensions }

// Queue returns the work queue, e.g. for a health check's depth probe.
func (e *Engine) Queue() queue.Queue { return e.q }

// Controller returns the host controller, e.g. for a health check's
// describe probe.
func (e *Engine) Controller() host.Controller { return e.controller }

// Enqueue creates a new job record and places it on the work queue. If
// the queue write fails after the record is already durable, the
// record is marked FAILED so it never lingers PENDING-but-unqueued.
func (e *Engine) Enqueue(ctx context.Context, jobType string, requestBody []byte) (*job.Job, error) {
	j := job.New(jobType, requestBody)

	if err := e.jobs.Create(ctx, j); err != nil {
		return nil, coldrun.NewError(coldrun.KindTransient, err)
	}

	if err := e.q.Enqueue(ctx, j.ID, j.Type, j.RequestBody); err != nil {
		if markErr := e.jobs.MarkFailed(ctx, j.ID, "enqueue failed"); markErr != nil {
			e.logger.Error("failed to mark unqueued job as failed",
				slog.String("job_id", j.ID.String()),
				slog.String("error", markErr.Error()),
			)
		}
		return nil, coldrun.NewError(coldrun.KindTransient, err)
	}

	e.extensions.EmitJobEnqueued(ctx, j)
	return j, nil
}

// Status looks up a job by id.
func (e *Engine) Status(ctx context.Context, jobID job.Job) (*job.Job, error) {
	return e.jobs.Get(ctx, jobID.ID)
}

// StartWorker launches the worker adapter's receive loops. It returns
// immediately; call StopWorker to drain gracefully.
func (e *Engine) StartWorker(ctx context.Context) error {
	return e.adapter.Start(ctx)
}

// StopWorker signals the worker adapter to stop and waits for the
// in-flight message on every receive loop to finish, up to ctx's
// deadline.
func (e *Engine) StopWorker(ctx context.Context) error {
	return e.adapter.Stop(ctx)
}

// RunIdleDetector runs the idle detector's sampling loop until ctx is
// cancelled. Intended to be run in its own goroutine, or as the sole
// loop of a dedicated idle-watcher process. It is a no-op if the
// detector was disabled via WithoutIdleDetection.
func (e *Engine) RunIdleDetector(ctx context.Context) {
	if e.detector == nil {
		return
	}
	e.detector.Run(ctx)
}

// StopIdleDetector signals RunIdleDetector to return.
func (e *Engine) StopIdleDetector() {
	if e.detector == nil {
		return
	}
	e.detector.Stop()
}

// Shutdown notifies extensions of process shutdown. It does not stop
// the worker adapter or idle detector — callers should do that first
// via StopWorker/StopIdleDetector so in-flight work drains before
// shutdown hooks run.
func (e *Engine) Shutdown(ctx context.Context) {
	e.extensions.EmitShutdown(ctx)
}

// EnsureHostRunning issues a Start against the host controller if it
// is not already running or starting. Called by the orchestrator on
// receipt of a new job so a cold host wakes on demand.
func (e *Engine) EnsureHostRunning(ctx context.Context) error {
	state, err := e.controller.Describe(ctx)
	if err != nil {
		return coldrun.NewError(coldrun.KindHostControl, err)
	}
	if state == host.StateRunning || state == host.StateStarting {
		return nil
	}
	if err := e.controller.Start(ctx); err != nil {
		return coldrun.NewError(coldrun.KindHostControl, err)
	}
	e.extensions.EmitHostStarted(ctx)
	return nil
}

// Ready reports whether the job registry is reachable, suitable for a
// liveness/readiness probe.
func (e *Engine) Ready(ctx context.Context) error {
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return e.jobs.Ping(pingCtx)
}
