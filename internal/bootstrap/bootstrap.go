// Package bootstrap builds a fully-wired engine.Engine from a Config
// plus environment-variable-selected backends, so cmd/orchestrator,
// cmd/worker, and cmd/idlewatcher share one construction path instead
// of each hand-wiring store/queue/host selection.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/rest"
	"k8s.io/client-go/tools/clientcmd"

	"github.com/xraph/coldrun"
	"github.com/xraph/coldrun/engine"
	"github.com/xraph/coldrun/host"
	"github.com/xraph/coldrun/host/k8s"
	"github.com/xraph/coldrun/inference"
	"github.com/xraph/coldrun/queue"
	"github.com/xraph/coldrun/store"
	"github.com/xraph/coldrun/store/memory"
	pgstore "github.com/xraph/coldrun/store/postgres"
	redisqueue "github.com/xraph/coldrun/store/redis"
)

// endpointRefresh is how often a live host controller's cached address
// is refreshed by host.EndpointCache.
const endpointRefresh = 15 * time.Second

// Runtime bundles the assembled engine with the resources bootstrap
// created on its behalf, so callers can shut them down in order.
type Runtime struct {
	Engine *engine.Engine

	closers []func(context.Context) error
}

// Close releases every resource bootstrap constructed, in reverse order
// of acquisition. It aggregates rather than short-circuits on error so
// a failure to close one resource never leaks another.
func (r *Runtime) Close(ctx context.Context) error {
	var errs []error
	for i := len(r.closers) - 1; i >= 0; i-- {
		if cerr := r.closers[i](ctx); cerr != nil {
			errs = append(errs, cerr)
		}
	}
	return errors.Join(errs...)
}

// Build reads STORE_BACKEND, QUEUE_BACKEND, and HOST_BACKEND (each
// defaulting to "memory") and constructs the matching engine.Engine.
// Additional backend-specific settings are read directly from the
// environment: DATABASE_URL for postgres, REDIS_ADDR for redis, and
// K8S_NAMESPACE/K8S_DEPLOYMENT for k8s.
func Build(ctx context.Context, cfg coldrun.Config, logger *slog.Logger, opts ...engine.Option) (*Runtime, error) {
	if logger == nil {
		logger = slog.Default()
	}
	rt := &Runtime{}

	st, err := buildStore(ctx, logger, rt)
	if err != nil {
		return nil, err
	}

	q, err := buildQueue(cfg, st, logger, rt)
	if err != nil {
		return nil, err
	}

	controller, endpoint, err := buildHost(ctx, cfg, logger, rt)
	if err != nil {
		return nil, err
	}

	client := inference.NewHTTPClient(inference.WithLogger(logger))

	eng, err := engine.Build(cfg, st, q, controller, endpoint, client,
		append([]engine.Option{engine.WithLogger(logger)}, opts...)...)
	if err != nil {
		return nil, fmt.Errorf("bootstrap: build engine: %w", err)
	}

	rt.Engine = eng
	return rt, nil
}

func buildStore(ctx context.Context, logger *slog.Logger, rt *Runtime) (store.Store, error) {
	switch backend := os.Getenv("STORE_BACKEND"); backend {
	case "", "memory":
		logger.Info("store backend: memory")
		return memory.New(), nil

	case "postgres":
		dsn := os.Getenv("DATABASE_URL")
		if dsn == "" {
			return nil, fmt.Errorf("bootstrap: STORE_BACKEND=postgres requires DATABASE_URL")
		}
		logger.Info("store backend: postgres")

		st, err := pgstore.New(ctx, dsn, pgstore.WithLogger(logger))
		if err != nil {
			return nil, fmt.Errorf("bootstrap: connect postgres: %w", err)
		}
		if err := st.Migrate(ctx); err != nil {
			st.Close()
			return nil, fmt.Errorf("bootstrap: migrate postgres: %w", err)
		}
		rt.closers = append(rt.closers, func(context.Context) error {
			st.Close()
			return nil
		})
		return st, nil

	default:
		return nil, fmt.Errorf("bootstrap: unknown STORE_BACKEND %q", backend)
	}
}

func buildQueue(cfg coldrun.Config, st store.Store, logger *slog.Logger, rt *Runtime) (queue.Queue, error) {
	switch backend := os.Getenv("QUEUE_BACKEND"); backend {
	case "", "memory":
		logger.Info("queue backend: memory")
		return queue.NewMemory(cfg.VisibilityTimeout, cfg.MaxReceives, st.DLQ()), nil

	case "redis":
		addr := os.Getenv("REDIS_ADDR")
		if addr == "" {
			return nil, fmt.Errorf("bootstrap: QUEUE_BACKEND=redis requires REDIS_ADDR")
		}
		logger.Info("queue backend: redis", slog.String("addr", addr))

		client := goredis.NewClient(&goredis.Options{
			Addr:     addr,
			Username: os.Getenv("REDIS_USERNAME"),
			Password: os.Getenv("REDIS_PASSWORD"),
		})
		rt.closers = append(rt.closers, func(context.Context) error {
			return client.Close()
		})
		return redisqueue.New(client, cfg.VisibilityTimeout, cfg.MaxReceives, st.DLQ()), nil

	default:
		return nil, fmt.Errorf("bootstrap: unknown QUEUE_BACKEND %q", backend)
	}
}

func buildHost(ctx context.Context, cfg coldrun.Config, logger *slog.Logger, rt *Runtime) (host.Controller, host.EndpointResolver, error) {
	switch backend := os.Getenv("HOST_BACKEND"); backend {
	case "", "memory":
		logger.Info("host backend: memory")
		ctrl := host.NewMemory(host.StateStopped)
		if addr := os.Getenv("HOST_ENDPOINT"); addr != "" {
			ctrl.SetEndpoint(addr)
		}
		return ctrl, ctrl, nil

	case "k8s":
		namespace := os.Getenv("K8S_NAMESPACE")
		deployment := os.Getenv("K8S_DEPLOYMENT")
		if namespace == "" || deployment == "" {
			return nil, nil, fmt.Errorf("bootstrap: HOST_BACKEND=k8s requires K8S_NAMESPACE and K8S_DEPLOYMENT")
		}
		logger.Info("host backend: k8s", slog.String("namespace", namespace), slog.String("deployment", deployment))

		restCfg, err := k8sRESTConfig()
		if err != nil {
			return nil, nil, fmt.Errorf("bootstrap: k8s config: %w", err)
		}
		clientset, err := kubernetes.NewForConfig(restCfg)
		if err != nil {
			return nil, nil, fmt.Errorf("bootstrap: k8s clientset: %w", err)
		}

		ctrl := k8s.New(clientset, namespace, deployment, k8s.WithLogger(logger))

		cache := host.NewEndpointCache(ctrl.LookupEndpoint, endpointRefresh, logger)
		cacheCtx, cancel := context.WithCancel(ctx)
		go cache.Run(cacheCtx)
		rt.closers = append(rt.closers, func(context.Context) error {
			cancel()
			return nil
		})

		return ctrl, cache, nil

	default:
		return nil, nil, fmt.Errorf("bootstrap: unknown HOST_BACKEND %q", backend)
	}
}

// k8sRESTConfig prefers in-cluster config (the normal case for a
// controller running as a Pod) and falls back to KUBECONFIG for local
// development against a real cluster.
func k8sRESTConfig() (*rest.Config, error) {
	if cfg, err := rest.InClusterConfig(); err == nil {
		return cfg, nil
	}

	kubeconfig := os.Getenv("KUBECONFIG")
	if kubeconfig == "" {
		home, _ := os.UserHomeDir()
		kubeconfig = home + "/.kube/config"
	}
	return clientcmd.BuildConfigFromFlags("", kubeconfig)
}
