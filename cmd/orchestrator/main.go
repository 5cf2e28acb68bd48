package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/cloudmesh/orchestrator/internal/application/dispatch"
	"github.com/cloudmesh/orchestrator/internal/application/engine"
	"github.com/cloudmesh/orchestrator/internal/application/locks"
	"github.com/cloudmesh/orchestrator/internal/application/subscription"
	memevents "github.com/cloudmesh/orchestrator/pkg/adapters/events/memory"
	redisevents "github.com/cloudmesh/orchestrator/pkg/adapters/events/redis"
	"github.com/cloudmesh/orchestrator/pkg/adapters/metrics/prometheus"
	"github.com/cloudmesh/orchestrator/pkg/adapters/registry"
	memstorage "github.com/cloudmesh/orchestrator/pkg/adapters/storage/memory"
	redisstorage "github.com/cloudmesh/orchestrator/pkg/adapters/storage/redis"
	"github.com/cloudmesh/orchestrator/pkg/adapters/strategy"
	"github.com/cloudmesh/orchestrator/pkg/api/http"
	"github.com/cloudmesh/orchestrator/pkg/api/websocket"
	"github.com/cloudmesh/orchestrator/pkg/ports"

	"github.com/cloudmesh/orchestrator/internal/config"
	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	// Version is set by build flags
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	logger := initLogger(cfg.LogLevel)
	defer logger.Sync()

	logger.Info("starting orchestration engine",
		zap.String("version", Version),
		zap.String("build_time", BuildTime),
		zap.String("storage_backend", cfg.StorageBackend))

	ctx := context.Background()

	// Initialize storage and event adapters
	var (
		jobStore    ports.JobStore
		lockStore   ports.LockStore
		subStore    ports.SubscriptionStore
		eventBus    ports.EventBus
		redisClient *goredis.Client
	)

	switch cfg.StorageBackend {
	case "redis":
		redisClient = goredis.NewClient(&goredis.Options{
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

		if err := redisClient.Ping(ctx).Err(); err != nil {
			logger.Fatal("failed to connect to Redis", zap.Error(err))
		}
		logger.Info("connected to Redis", zap.String("addr", cfg.Redis.Addr))

		jobStore = redisstorage.NewJobStore(redisClient, logger)
		lockStore = redisstorage.NewLockStore(redisClient, logger)
		subStore = redisstorage.NewSubscriptionStore(redisClient, logger)

		eventBus, err = redisevents.NewStreamsEventBus(
			redisClient,
			"orchestrator",
			fmt.Sprintf("orchestrator-%d", os.Getpid()),
			logger,
		)
		if err != nil {
			logger.Fatal("failed to create event bus", zap.Error(err))
		}

	case "memory":
		jobStore = memstorage.NewJobStore()
		lockStore = memstorage.NewLockStore()
		subStore = memstorage.NewSubscriptionStore()
		eventBus = memevents.NewInMemoryEventBus()
		logger.Info("using in-memory storage, state is lost on restart")
	}

	metricsCollector := prometheus.NewCollector()

	// Initialize application components
	queue := dispatch.NewQueue(cfg.Workers.QueueCapacity, metricsCollector)

	registryClient := registry.NewClient(cfg.Registry.URL, cfg.Registry.Timeout, logger)
	localStrategy := strategy.NewLocal(registryClient, jobStore, eventBus, logger)
	intercloudStrategy := strategy.NewInterCloud(registryClient, jobStore, eventBus, logger)

	lockManager := locks.NewManager(lockStore, metricsCollector, logger)
	subRegistry := subscription.NewRegistry(subStore, metricsCollector, logger)
	coordinator := subscription.NewCoordinator(subStore, jobStore, queue, eventBus, metricsCollector, logger)

	engineService := engine.NewService(
		jobStore,
		subRegistry,
		coordinator,
		queue,
		eventBus,
		localStrategy,
		intercloudStrategy,
		engine.NewValidator(),
		metricsCollector,
		logger,
	)
	historyService := engine.NewHistoryService(jobStore)

	workerPool := dispatch.NewPool(
		cfg.Workers.PoolSize,
		queue,
		jobStore,
		subStore,
		eventBus,
		localStrategy,
		intercloudStrategy,
		metricsCollector,
		logger,
		cfg.Timeouts.StrategyTimeout,
		cfg.Workers.HealthCheckInterval,
	)

	// Start worker pool
	if err := workerPool.Start(); err != nil {
		logger.Fatal("failed to start worker pool", zap.Error(err))
	}

	// The store is authoritative: pending push jobs left behind by a
	// previous run are re-enqueued before traffic arrives.
	if err := workerPool.RecoverPending(ctx); err != nil {
		logger.Error("failed to recover pending jobs", zap.Error(err))
	}

	// Initialize HTTP server
	httpServer := http.NewServer(&http.Config{
		Port:           cfg.HTTPPort,
		Engine:         engineService,
		History:        historyService,
		Locks:          lockManager,
		Health:         workerPool.Health(),
		LockDefaultTTL: cfg.Locks.DefaultTTL,
		Logger:         logger,
	})

	// Add WebSocket handler to HTTP server
	wsHandler := websocket.NewHandler(eventBus, logger)
	httpServer.SetupWebSocket(wsHandler)

	go func() {
		if err := httpServer.Start(); err != nil {
			logger.Fatal("HTTP server failed", zap.Error(err))
		}
	}()

	logger.Info("orchestration engine started",
		zap.Int("http_port", cfg.HTTPPort),
		zap.Int("worker_pool_size", cfg.Workers.PoolSize),
		zap.Int("queue_capacity", cfg.Workers.QueueCapacity))

	// Wait for interrupt signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	logger.Info("received shutdown signal")

	// Graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Timeouts.ShutdownTimeout)
	defer cancel()

	// Stop accepting requests first, then drain the workers.
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server shutdown error", zap.Error(err))
	}

	queue.Close()

	if err := workerPool.Shutdown(shutdownCtx); err != nil {
		logger.Error("worker pool shutdown error", zap.Error(err))
	}

	if err := eventBus.Close(); err != nil {
		logger.Error("event bus close error", zap.Error(err))
	}

	if redisClient != nil {
		if err := redisClient.Close(); err != nil {
			logger.Error("Redis close error", zap.Error(err))
		}
	}

	logger.Info("orchestration engine shut down complete")
}

// initLogger initializes the logger based on log level
func initLogger(level string) *zap.Logger {
	var zapLevel zapcore.Level
	switch level {
	case "debug":
		zapLevel = zapcore.DebugLevel
	case "info":
		zapLevel = zapcore.InfoLevel
	case "warn":
		zapLevel = zapcore.WarnLevel
	case "error":
		zapLevel = zapcore.ErrorLevel
	default:
		zapLevel = zapcore.InfoLevel
	}

	config := zap.NewProductionConfig()
	config.Level = zap.NewAtomicLevelAt(zapLevel)
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	logger, err := config.Build()
	if err != nil {
		panic(fmt.Sprintf("failed to initialize logger: %v", err))
	}

	return logger
}
