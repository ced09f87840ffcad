package host

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// LookupFunc resolves the current network address of the running host,
// e.g. reading a Pod IP or querying a cloud provider's describe-instance
// call. It may return an error if the host has no address yet (still
// STARTING) — EndpointCache treats that as "not yet known" rather than
// a fatal error.
type LookupFunc func(ctx context.Context) (string, error)

// EndpointCache maintains a periodically refreshed host address,
// independent of any other polling loop in the system, so that callers
// needing the host's address (e.g. a health check, or a future
// same-host inference proxy) never block on a live control-plane call.
//
// This mirrors a background IP-refresh loop that ran independently of
// the request path: refreshing on its own ticker rather than on demand
// keeps a slow or rate-limited lookup off the request path entirely.
type EndpointCache struct {
	lookup LookupFunc
	period time.Duration
	logger *slog.Logger

	mu       sync.RWMutex
	endpoint string
	known    bool
}

// NewEndpointCache creates a cache that refreshes via lookup every period.
func NewEndpointCache(lookup LookupFunc, period time.Duration, logger *slog.Logger) *EndpointCache {
	return &EndpointCache{lookup: lookup, period: period, logger: logger}
}

var _ EndpointResolver = (*EndpointCache)(nil)

// Endpoint implements EndpointResolver.
func (c *EndpointCache) Endpoint() (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.endpoint, c.known
}

// Run refreshes the cached endpoint every period until ctx is
// cancelled. It performs one refresh immediately before entering the
// ticker loop.
func (c *EndpointCache) Run(ctx context.Context) {
	c.refresh(ctx)

	ticker := time.NewTicker(c.period)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.refresh(ctx)
		}
	}
}

func (c *EndpointCache) refresh(ctx context.Context) {
	addr, err := c.lookup(ctx)
	if err != nil {
		c.logger.Debug("endpoint lookup failed", slog.String("error", err.Error()))
		return
	}
	if addr == "" {
		return
	}

	c.mu.Lock()
	c.endpoint = addr
	c.known = true
	c.mu.Unlock()
}
