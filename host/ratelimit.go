package host

import (
	"context"

	"golang.org/x/time/rate"
)

// RateLimited wraps a Controller and throttles Start/Stop calls with a
// token-bucket limiter, so a flapping queue depth (jobs arriving right
// as the idle detector fires) cannot hammer the control plane with
// repeated start/stop churn. Describe passes through unthrottled.
type RateLimited struct {
	inner   Controller
	limiter *rate.Limiter
}

// NewRateLimited wraps inner with a limiter allowing at most rps calls
// to Start or Stop per second, with the given burst.
func NewRateLimited(inner Controller, rps float64, burst int) *RateLimited {
	return &RateLimited{
		inner:   inner,
		limiter: rate.NewLimiter(rate.Limit(rps), burst),
	}
}

var _ Controller = (*RateLimited)(nil)

// Describe implements Controller by delegating directly.
func (r *RateLimited) Describe(ctx context.Context) (State, error) {
	return r.inner.Describe(ctx)
}

// Start implements Controller, waiting for a token before delegating.
func (r *RateLimited) Start(ctx context.Context) error {
	if err := r.limiter.Wait(ctx); err != nil {
		return err
	}
	return r.inner.Start(ctx)
}

// Stop implements Controller, waiting for a token before delegating.
func (r *RateLimited) Stop(ctx context.Context) error {
	if err := r.limiter.Wait(ctx); err != nil {
		return err
	}
	return r.inner.Stop(ctx)
}
