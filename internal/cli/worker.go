package cli

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/aescanero/dago-rulekit/internal/config"
	"github.com/aescanero/dago-rulekit/internal/logging"
	"github.com/aescanero/dago-rulekit/internal/telemetry"
	"github.com/aescanero/dago-rulekit/internal/worker"
	"github.com/aescanero/dago-rulekit/pkg/dsl"
)

// NewWorkerCommand creates the worker command.
func NewWorkerCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "worker",
		Short: "Run the Redis Streams worker",
		Long: `Run the Redis Streams worker. Configuration comes from the environment
(optionally seeded from a .env file); --log-level overrides LOG_LEVEL.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return WrapExitError(ExitCommandError, "failed to load config", err)
			}
			if cmd.Flags().Changed("log-level") {
				cfg.LogLevel = rootOpts.LogLevel
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			return runWorker(ctx, cfg, cmd.Root().Version)
		},
	}

	return cmd
}

func runWorker(ctx context.Context, cfg *config.Config, version string) error {
	logger, err := logging.New(cfg.LogLevel, "stdout")
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to initialize logger", err)
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("starting rulekit worker",
		zap.String("version", version),
		zap.String("worker_id", cfg.WorkerID),
	)

	// Log configuration (without sensitive data)
	logger.Info("configuration loaded", zap.String("config", cfg.String()))

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Error("failed to close redis connection", zap.Error(err))
		}
	}()

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := redisClient.Ping(pingCtx).Err(); err != nil {
		return WrapExitError(ExitCommandError, "failed to connect to redis", err)
	}
	logger.Info("connected to redis", zap.String("addr", cfg.RedisAddr))

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := telemetry.NewMetrics(registry)

	w := worker.NewWorker(cfg,
		redisClient,
		worker.NewRedisFactsStore(redisClient, cfg.StateTTL),
		worker.NewRedisPublisher(redisClient),
		metrics,
		logger,
	)

	set, err := dsl.Load(cfg.RulesFile)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load rules", err)
	}
	if err := w.Reload(set); err != nil {
		return WrapExitError(ExitCommandError, "failed to load rules", err)
	}

	if cfg.WatchRules {
		watcher, err := dsl.NewWatcher(cfg.RulesFile, dsl.WithWatchLogger(logger))
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to watch rules", err)
		}
		go func() {
			if err := watcher.Watch(ctx, w.Reload); err != nil {
				logger.Error("rule watcher failed", zap.Error(err))
			}
		}()
	}

	healthServer := worker.NewHealthServer(cfg.HealthPort, redisClient, w.Ready, metrics.Handler(), logger)
	if err := startServices(w, healthServer, logger); err != nil {
		return err
	}

	logger.Info("rulekit worker running, press Ctrl+C to stop")
	<-ctx.Done()
	logger.Info("shutdown signal received, stopping worker")

	if err := healthServer.Stop(); err != nil {
		logger.Error("failed to stop health server", zap.Error(err))
	}

	if err := w.Stop(); err != nil {
		logger.Error("failed to stop worker", zap.Error(err))
		return fmt.Errorf("failed to stop worker: %w", err)
	}

	logger.Info("worker stopped gracefully")
	return nil
}

// service is a component with the worker command's lifecycle.
type service interface {
	Start() error
	Stop() error
}

// startServices starts the worker and then its health server. The worker is
// stopped again when the health server cannot start.
func startServices(w, health service, logger *zap.Logger) error {
	if err := w.Start(); err != nil {
		return WrapExitError(ExitCommandError, "failed to start worker", err)
	}

	if err := health.Start(); err != nil {
		if stopErr := w.Stop(); stopErr != nil {
			logger.Error("failed to stop worker", zap.Error(stopErr))
		}
		return WrapExitError(ExitCommandError, "failed to start health server", err)
	}

	return nil
}
