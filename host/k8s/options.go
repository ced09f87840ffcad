package k8s

import "log/slog"

// Option configures a Controller.
type Option func(*Controller)

// WithLogger sets a custom logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Controller) { c.logger = l }
}

// WithLabelSelector overrides the label selector used to find the host's
// Pod for endpoint lookups. Default:
// "app.kubernetes.io/component=coldrun-gpu-host".
func WithLabelSelector(sel string) Option {
	return func(c *Controller) { c.labelSelector = sel }
}
