// Package worker implements the rulekit worker lifecycle and Redis Streams integration.
//
// The worker consumes fact requests from a Redis stream, runs the current rule
// engine over them, stores the resulting facts and publishes the outcome.
//
// Example usage:
//
//	cfg, _ := config.Load()
//	redisClient := redis.NewClient(&redis.Options{...})
//
//	w := worker.NewWorker(cfg, redisClient,
//	    worker.NewRedisFactsStore(redisClient, cfg.StateTTL),
//	    worker.NewRedisPublisher(redisClient),
//	    metrics, logger)
//
//	set, _ := dsl.Load(cfg.RulesFile)
//	if err := w.Reload(set); err != nil {
//	    log.Fatal(err)
//	}
//	if err := w.Start(); err != nil {
//	    log.Fatal(err)
//	}
//	defer w.Stop()
//
// Request messages carry a "data" field with a JSON document:
//
//	{"id": "order-42", "facts": {"total": 150.0}}
//
// When "facts" is absent the facts are loaded from the store under
// "rulekit:facts:<id>". Results go to the result stream; failed passes go to
// the result stream suffixed with ".errors".
//
// Health checks and metrics are served by a separate HTTP server:
//
//	healthServer := worker.NewHealthServer(8082, redisClient, w.Ready, metrics.Handler(), logger)
//	healthServer.Start()
//	defer healthServer.Stop()
package worker
