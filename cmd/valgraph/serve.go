package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	goredis "github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/valgraph/valgraph/internal/application/orchestrator"
	"github.com/valgraph/valgraph/internal/application/scheduler"
	"github.com/valgraph/valgraph/internal/workflow"
	redisevents "github.com/valgraph/valgraph/pkg/adapters/events/redis"
	"github.com/valgraph/valgraph/pkg/adapters/metrics/prometheus"
	redisstorage "github.com/valgraph/valgraph/pkg/adapters/storage/redis"
	"github.com/valgraph/valgraph/pkg/api/http"
	"github.com/valgraph/valgraph/pkg/api/websocket"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the engine as a service with the REST API and event streaming",
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve()
		},
	}
}

func serve() error {
	logger.Info("starting valgraph",
		zap.String("version", Version),
		zap.String("build_time", BuildTime))

	redisClient := goredis.NewClient(&goredis.Options{
		Addr:         cfg.Redis.Addr,
		Password:     cfg.Redis.Password,
		DB:           cfg.Redis.DB,
		PoolSize:     cfg.Redis.PoolSize,
		MinIdleConns: cfg.Redis.MinIdleConns,
		MaxRetries:   cfg.Redis.MaxRetries,
		DialTimeout:  cfg.Redis.DialTimeout,
		ReadTimeout:  cfg.Redis.ReadTimeout,
		WriteTimeout: cfg.Redis.WriteTimeout,
	})

	ctx := context.Background()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("failed to connect to Redis: %w", err)
	}
	logger.Info("connected to Redis", zap.String("addr", cfg.Redis.Addr))

	eventBus := redisevents.NewStreamsEventBus(
		redisClient,
		"valgraph-consumers",
		fmt.Sprintf("valgraph-%d", os.Getpid()),
		logger,
	)
	runStore := redisstorage.NewRunStore(redisClient, cfg.Redis.RecordTTL, logger)
	metricsCollector := prometheus.NewCollector()

	generators, err := buildGenerators()
	if err != nil {
		return fmt.Errorf("failed to create text-generation clients: %w", err)
	}

	loader := workflow.NewLoader(cfg.WorkflowsDir, cfg.Scheduler.DefaultIterationCap)
	sched := scheduler.New(
		buildRegistry(generators, metricsCollector),
		workflow.NewEvaluator(logger),
		runStore,
		eventBus,
		metricsCollector,
		logger,
		cfg.Timeouts.NodeTimeout,
	)
	manager := orchestrator.NewManager(
		loader,
		sched,
		runStore,
		metricsCollector,
		logger,
		cfg.Timeouts.RunTimeout,
	)

	httpServer := http.NewServer(&http.Config{
		Port:    cfg.HTTPPort,
		Manager: manager,
		Loader:  loader,
		Store:   runStore,
		Logger:  logger,
	})
	httpServer.SetupWebSocket(websocket.NewHandler(eventBus, logger))

	go func() {
		if err := httpServer.Start(); err != nil {
			logger.Fatal("HTTP server failed", zap.Error(err))
		}
	}()

	logger.Info("valgraph started",
		zap.Int("http_port", cfg.HTTPPort),
		zap.String("workflows_dir", cfg.WorkflowsDir))

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	logger.Info("received shutdown signal")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Timeouts.ShutdownTimeout)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server shutdown error", zap.Error(err))
	}
	if err := manager.Shutdown(shutdownCtx); err != nil {
		logger.Error("run manager shutdown error", zap.Error(err))
	}
	if err := eventBus.Close(); err != nil {
		logger.Error("event bus close error", zap.Error(err))
	}
	if err := redisClient.Close(); err != nil {
		logger.Error("Redis close error", zap.Error(err))
	}

	logger.Info("valgraph shut down complete")
	return nil
}
