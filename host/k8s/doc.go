// Package k8s implements host.Controller by scaling a Kubernetes
// Deployment that runs the GPU inference host: start sets replicas to 1,
// stop sets replicas to 0, and describe derives a host.State from the
// Deployment's desired and observed replica counts. The host's Pod,
// found by label selector, is read only to look up its endpoint.
//
// This repurposes the same client-go primitives used elsewhere for
// cluster worker discovery — a typed clientset, label selectors, and
// apierrors.IsNotFound — for describing and driving a single compute
// host rather than for leader election.
package k8s
