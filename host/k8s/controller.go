package k8s

import (
	"context"
	"fmt"
	"log/slog"

	autoscalingv1 "k8s.io/api/autoscaling/v1"
	corev1 "k8s.io/api/core/v1"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/kubernetes"

	"github.com/xraph/coldrun/host"
)

const defaultLabelSelector = "app.kubernetes.io/component=coldrun-gpu-host"

// Controller implements host.Controller by scaling a Deployment's
// replica count between 0 and 1.
type Controller struct {
	client         kubernetes.Interface
	namespace      string
	deploymentName string
	labelSelector  string
	logger         *slog.Logger
}

// New creates a Kubernetes-backed host controller for the named
// Deployment.
func New(client kubernetes.Interface, namespace, deploymentName string, opts ...Option) *Controller {
	c := &Controller{
		client:         client,
		namespace:      namespace,
		deploymentName: deploymentName,
		labelSelector:  defaultLabelSelector,
		logger:         slog.Default(),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

var _ host.Controller = (*Controller)(nil)

// Describe implements host.Controller by inspecting the Deployment's
// desired vs. observed replica counts.
func (c *Controller) Describe(ctx context.Context) (host.State, error) {
	scale, err := c.client.AppsV1().Deployments(c.namespace).GetScale(ctx, c.deploymentName, metav1.GetOptions{})
	if err != nil {
		return "", fmt.Errorf("k8s: get deployment scale: %w", err)
	}

	desired := scale.Spec.Replicas
	observed := scale.Status.Replicas

	switch {
	case desired == 0 && observed == 0:
		return host.StateStopped, nil
	case desired == 0 && observed > 0:
		return host.StateStopping, nil
	case desired > 0 && observed >= desired:
		return host.StateRunning, nil
	default:
		return host.StateStarting, nil
	}
}

// Start implements host.Controller: STOPPED → STARTING by scaling to 1
// replica. A no-op for any other current state.
func (c *Controller) Start(ctx context.Context) error {
	state, err := c.Describe(ctx)
	if err != nil {
		return err
	}
	if state != host.StateStopped {
		return nil
	}
	return c.setReplicas(ctx, 1)
}

// Stop implements host.Controller: RUNNING → STOPPING by scaling to 0
// replicas. A no-op for any other current state, and never interrupts
// STARTING.
func (c *Controller) Stop(ctx context.Context) error {
	state, err := c.Describe(ctx)
	if err != nil {
		return err
	}
	if state != host.StateRunning {
		return nil
	}
	return c.setReplicas(ctx, 0)
}

func (c *Controller) setReplicas(ctx context.Context, n int32) error {
	scale := &autoscalingv1.Scale{
		ObjectMeta: metav1.ObjectMeta{
			Name:      c.deploymentName,
			Namespace: c.namespace,
		},
		Spec: autoscalingv1.ScaleSpec{Replicas: n},
	}
	_, err := c.client.AppsV1().Deployments(c.namespace).UpdateScale(ctx, c.deploymentName, scale, metav1.UpdateOptions{})
	if err != nil {
		return fmt.Errorf("k8s: update deployment scale to %d: %w", n, err)
	}
	return nil
}

// LookupEndpoint resolves the running host's Pod IP by label selector.
// It is meant to be passed as a host.LookupFunc to host.NewEndpointCache
// so address resolution runs on its own refresh ticker rather than on
// the request path.
func (c *Controller) LookupEndpoint(ctx context.Context) (string, error) {
	pods, err := c.client.CoreV1().Pods(c.namespace).List(ctx, metav1.ListOptions{
		LabelSelector: c.labelSelector,
	})
	if err != nil {
		if apierrors.IsNotFound(err) {
			return "", nil
		}
		return "", fmt.Errorf("k8s: list host pods: %w", err)
	}

	for i := range pods.Items {
		pod := &pods.Items[i]
		if pod.Status.Phase == corev1.PodRunning && pod.Status.PodIP != "" {
			return pod.Status.PodIP, nil
		}
	}
	return "", nil
}
