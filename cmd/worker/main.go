package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/geopin-service/internal/config"
	"github.com/geopin-service/internal/domain/repository"
	"github.com/geopin-service/internal/infrastructure/tilesource"
	"github.com/geopin-service/internal/pkg/logger"
	"github.com/geopin-service/internal/repository/bolt"
	"github.com/geopin-service/internal/repository/cache"
	redisRepo "github.com/geopin-service/internal/repository/redis"
	"github.com/geopin-service/internal/usecase"
	"github.com/geopin-service/internal/worker"
	"github.com/geopin-service/internal/worker/prefetch"
)

func main() {
	// 1. Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}

	// Check if worker is enabled
	if !cfg.Worker.Enabled {
		fmt.Println("Worker is disabled in configuration. Set WORKER_ENABLED=true to enable.")
		os.Exit(0)
	}

	// 2. Initialize logger
	log, err := logger.New(&cfg.Log, "worker")
	if err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}
	defer log.Sync()

	log.Info("Starting Tile Prefetch Worker")
	log.Info("Configuration loaded",
		zap.String("consumer_group", cfg.Worker.ConsumerGroup),
		zap.Int("batch_size", cfg.Worker.BatchSize),
		zap.Int("max_retries", cfg.Worker.MaxRetries),
		zap.Int("auto_confirm_max", cfg.Worker.AutoConfirmMax),
		zap.String("tile_store", cfg.Tiles.Store))

	// 3. Connect to Redis
	redisClient, err := cache.NewRedis(&cfg.Redis, log)
	if err != nil {
		log.Fatal("Failed to connect to Redis", zap.Error(err))
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			log.Error("Failed to close Redis connection", zap.Error(err))
		}
	}()

	// 4. Initialize repositories
	streamRepo := redisRepo.NewStreamRepository(redisClient.Client(), redisRepo.StreamOptions{
		BlockTimeout: cfg.Worker.StreamReadTimeout,
		MaxLen:       cfg.Redis.StreamMaxLen,
	}, log)
	tileSource := tilesource.NewFetcher(&cfg.Tiles, log)

	var tileStore repository.TileStore
	if cfg.Tiles.Store == "redis" {
		tileStore = cache.NewTileStore(cache.NewCacheRepository(redisClient), cfg.Cache.TilesCacheTTL)
	} else {
		store, err := bolt.NewTileStore(cfg.Tiles.StorePath, log)
		if err != nil {
			log.Fatal("Failed to open offline tile store", zap.Error(err))
		}
		defer store.Close()
		tileStore = store
	}

	// 5. Initialize workers
	prefetchWorker := prefetch.NewPrefetchWorker(
		streamRepo,
		tileSource,
		tileStore,
		cfg.Worker.ConsumerGroup,
		cfg.Worker.BatchSize,
		prefetch.Options{
			Offline:        usecase.OfflineOptionsFromConfig(&cfg.Offline),
			AutoConfirmMax: cfg.Worker.AutoConfirmMax,
			MaxRetries:     cfg.Worker.MaxRetries,
		},
		log,
	)

	// 6. Create worker manager and register workers
	workerManager := worker.NewWorkerManager(log)
	workerManager.Register(prefetchWorker)

	// 7. Setup graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := workerManager.Start(ctx); err != nil {
		log.Fatal("Failed to start workers", zap.Error(err))
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	<-sigChan
	log.Info("Received shutdown signal")

	// идущие загрузки прерываются, их сообщения остаются в pending
	cancel()

	stopCtx, stopCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer stopCancel()
	if err := workerManager.Stop(stopCtx); err != nil {
		log.Error("Error stopping workers", zap.Error(err))
	}

	log.Info("Worker shutdown complete")
}
