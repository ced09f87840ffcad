// Package engine wires the job registry, work queue, host controller,
// worker adapter, and idle detector into one running system.
//
// # Building an Engine
//
//	st := memory.New()
//	q := queue.NewMemory(cfg.VisibilityTimeout, cfg.MaxReceives, st.DLQ())
//	ctrl := host.NewMemory(host.StateStopped)
//
//	eng, err := engine.Build(cfg, st, q, ctrl, ctrl, inference.NewHTTPClient(),
//	    engine.WithExtension(myExtension),
//	    engine.WithMiddleware(middleware.Logging(logger)),
//	)
//
// # Submitting work
//
//	j, err := eng.Enqueue(ctx, "camera-angle", requestBody)
//
// # Running
//
//	go eng.RunIdleDetector(ctx)
//	eng.StartWorker(ctx)
//	defer eng.StopWorker(context.Background())
package engine
