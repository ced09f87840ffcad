package idle

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"

	"github.com/xraph/coldrun/ext"
	"github.com/xraph/coldrun/host"
	"github.com/xraph/coldrun/queue"
)

// meterName is the instrumentation scope name for idle detector metrics.
const meterName = "github.com/xraph/coldrun/idle"

// DepthSampler is the subset of queue.Queue the detector needs.
type DepthSampler interface {
	Depth(ctx context.Context) (int, error)
}

var _ DepthSampler = (queue.Queue)(nil)

// Detector samples queue depth on a fixed interval and invokes
// host.Controller.Stop once the last N consecutive samples are all at
// or below the threshold. It runs independently of the orchestrator and
// worker adapter processes.
type Detector struct {
	queue      DepthSampler
	controller host.Controller
	ext        *ext.Registry
	sample     time.Duration
	periods    int
	threshold  int
	logger     *slog.Logger

	depthGauge metric.Int64Gauge

	stopCh chan struct{}
	wg     sync.WaitGroup

	// onFire is invoked (in addition to controller.Stop) after a
	// successful fire, for tests that want to observe firing without
	// racing on host state.
	onFire func()
}

// Option configures a Detector.
type Option func(*Detector)

// WithThreshold sets θ, the maximum depth considered "idle". Default 0.
func WithThreshold(n int) Option {
	return func(d *Detector) { d.threshold = n }
}

// WithLogger sets a custom logger.
func WithLogger(l *slog.Logger) Option {
	return func(d *Detector) { d.logger = l }
}

// WithExtensions sets the extension registry notified when the
// detector fires. May be left unset.
func WithExtensions(r *ext.Registry) Option {
	return func(d *Detector) { d.ext = r }
}

// New creates a Detector sampling q every sampleInterval, firing
// controller.Stop after periods consecutive idle samples.
func New(q DepthSampler, controller host.Controller, sampleInterval time.Duration, periods int, opts ...Option) *Detector {
	meter := otel.Meter(meterName)
	gauge, gErr := meter.Int64Gauge(
		"coldrun.idle.queue_depth",
		metric.WithDescription("Most recently sampled queue depth observed by the idle detector"),
		metric.WithUnit("{message}"),
	)
	_ = gErr // noop fallback guaranteed by OTel API contract

	d := &Detector{
		queue:      q,
		controller: controller,
		sample:     sampleInterval,
		periods:    periods,
		logger:     slog.Default(),
		depthGauge: gauge,
		stopCh:     make(chan struct{}),
	}
	for _, o := range opts {
		o(d)
	}
	return d
}

// Run samples on a ticker until ctx is cancelled or Stop is called.
// Intended to be run in its own goroutine.
func (d *Detector) Run(ctx context.Context) {
	d.wg.Add(1)
	defer d.wg.Done()

	ticker := time.NewTicker(d.sample)
	defer ticker.Stop()

	consecutiveIdle := 0

	for {
		select {
		case <-ctx.Done():
			return
		case <-d.stopCh:
			return
		case <-ticker.C:
			depth, err := d.queue.Depth(ctx)
			if err != nil {
				d.logger.Warn("idle detector: depth sample failed", slog.String("error", err.Error()))
				consecutiveIdle = 0
				continue
			}

			d.depthGauge.Record(ctx, int64(depth))

			if depth <= d.threshold {
				consecutiveIdle++
			} else {
				consecutiveIdle = 0
			}

			d.logger.Debug("idle detector sample",
				slog.Int("depth", depth),
				slog.Int("consecutive_idle", consecutiveIdle),
				slog.Int("periods_required", d.periods),
			)

			if consecutiveIdle >= d.periods {
				d.fire(ctx, consecutiveIdle)
				consecutiveIdle = 0
			}
		}
	}
}

func (d *Detector) fire(ctx context.Context, consecutiveIdleSamples int) {
	if err := d.controller.Stop(ctx); err != nil {
		d.logger.Warn("idle detector: stop call failed", slog.String("error", err.Error()))
		return
	}
	d.logger.Info("idle detector fired host stop")
	if d.ext != nil {
		d.ext.EmitIdleFired(ctx, consecutiveIdleSamples)
		d.ext.EmitHostStopped(ctx)
	}
	if d.onFire != nil {
		d.onFire()
	}
}

// Stop signals Run to return and waits for it to exit.
func (d *Detector) Stop() {
	select {
	case <-d.stopCh:
		return // already stopped
	default:
		close(d.stopCh)
	}
	d.wg.Wait()
}
