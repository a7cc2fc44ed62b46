package main

// @title Geopin Service API
// @version 1.0.0
// @description Встраиваемый виджет карты для форм ввода адреса: камера, поиск с подсказками,
// @description сверка адреса со справочником почтовых индексов и офлайн-загрузка тайлов.
// @description
// @description Основные возможности:
// @description - Сессии виджета с контроллером камеры (recenter / zoom_only / none)
// @description - Поиск адреса с задержкой ввода и выбор подсказки
// @description - Клик по карте с обратным геокодированием
// @description - Определение почтового индекса по номеру дома и стороне улицы
// @description - Офлайн-загрузка тайлов видимой области с подтверждением больших объемов

// @contact.name API Support

// @license.name MIT
// @license.url https://opensource.org/licenses/MIT

// @host localhost:8080
// @BasePath /
// @schemes http https

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	_ "github.com/geopin-service/docs"
	"github.com/geopin-service/internal/config"
	httpDelivery "github.com/geopin-service/internal/delivery/http"
	"github.com/geopin-service/internal/delivery/http/handler"
	"github.com/geopin-service/internal/domain/repository"
	"github.com/geopin-service/internal/infrastructure/nominatim"
	"github.com/geopin-service/internal/infrastructure/tilesource"
	"github.com/geopin-service/internal/infrastructure/viacep"
	"github.com/geopin-service/internal/mapwidget"
	"github.com/geopin-service/internal/pkg/logger"
	"github.com/geopin-service/internal/repository/bolt"
	"github.com/geopin-service/internal/repository/cache"
	"github.com/geopin-service/internal/repository/postgres"
	redisRepo "github.com/geopin-service/internal/repository/redis"
	"github.com/geopin-service/internal/usecase"
)

func main() {
	// 1. Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}

	// 2. Initialize logger
	log, err := logger.New(&cfg.Log, "api")
	if err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}
	defer log.Sync()

	log.Info("Starting Geopin Service")
	log.Info("Configuration loaded",
		zap.String("env", cfg.Server.Env),
		zap.String("server_addr", cfg.GetServerAddr()),
		zap.String("postal_source", cfg.Postal.Source),
		zap.String("tile_store", cfg.Tiles.Store),
	)

	// 3. Connect to Redis (geocoder cache and event streams)
	redisClient, err := cache.NewRedis(&cfg.Redis, log)
	if err != nil {
		log.Fatal("Failed to connect to Redis", zap.Error(err))
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			log.Error("Failed to close Redis connection", zap.Error(err))
		}
	}()
	log.Info("Redis connected")

	// 4. Health checks
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := redisClient.Health(ctx); err != nil {
		log.Fatal("Redis health check failed", zap.Error(err))
	}

	// 5. Initialize Repositories
	cacheRepo := cache.NewCacheRepository(redisClient)
	streamRepo := redisRepo.NewStreamRepository(redisClient.Client(), redisRepo.StreamOptions{
		BlockTimeout: cfg.Worker.StreamReadTimeout,
		MaxLen:       cfg.Redis.StreamMaxLen,
	}, log)

	postalRepo, closePostal := newPostalRepository(ctx, cfg, log)
	defer closePostal()

	tileStore, closeStore := newTileStore(cfg, cacheRepo, log)
	defer closeStore()

	geocoder := usecase.NewCachedGeocoder(
		nominatim.NewClient(&cfg.Geocoder, log),
		cacheRepo,
		cfg.Cache.SearchCacheTTL,
		log,
	)
	tileSource := tilesource.NewFetcher(&cfg.Tiles, log)

	log.Info("Repositories initialized")

	// 6. Initialize widget sessions
	registry := mapwidget.NewRegistry(
		mapwidget.Deps{
			Geocoder: geocoder,
			Postal:   postalRepo,
			Tiles:    tileSource,
			Store:    tileStore,
		},
		mapwidget.Options{
			Viewport: usecase.ViewportOptionsFromConfig(&cfg.Viewport),
			Offline:  usecase.OfflineOptionsFromConfig(&cfg.Offline),
			Search:   usecase.SearchOptionsFromConfig(&cfg.Search),
		},
		streamRepo,
		cfg.Session.IdleTTL,
		log,
	)
	defer registry.Close()

	runCtx, stopRun := context.WithCancel(context.Background())
	defer stopRun()
	go registry.Run(runCtx)

	// 7. Initialize HTTP Handlers
	sessionHandler := handler.NewSessionHandler(registry, log)
	searchHandler := handler.NewSearchHandler(registry, log)
	offlineHandler := handler.NewOfflineHandler(registry, log)
	tileHandler := handler.NewTileHandler(tileStore, log)

	log.Info("HTTP handlers initialized")

	// 8. Initialize HTTP Server
	server := httpDelivery.NewServer(
		cfg,
		log,
		sessionHandler,
		searchHandler,
		offlineHandler,
		tileHandler,
	)

	// 9. Start server in goroutine
	go func() {
		if err := server.Start(); err != nil {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	log.Info("Server started successfully",
		zap.String("address", cfg.GetServerAddr()),
		zap.String("env", cfg.Server.Env),
	)

	// 10. Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down server gracefully...")
	stopRun()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("Server shutdown error", zap.Error(err))
	}
}

// newPostalRepository выбирает справочник индексов: HTTP-сервис или локальная таблица
func newPostalRepository(ctx context.Context, cfg *config.Config, log *zap.Logger) (repository.PostalCodeRepository, func()) {
	if cfg.Postal.Source != "postgres" {
		log.Info("Postal codes from HTTP service", zap.String("base_url", cfg.Postal.BaseURL))
		return viacep.NewClient(&cfg.Postal, log), func() {}
	}

	db, err := postgres.New(ctx, &cfg.Database, log)
	if err != nil {
		log.Fatal("Failed to connect to PostgreSQL", zap.Error(err))
	}
	log.Info("Postal codes from PostgreSQL")

	return postgres.NewPostalRepository(db), func() {
		if err := db.Close(); err != nil {
			log.Error("Failed to close PostgreSQL connection", zap.Error(err))
		}
	}
}

// newTileStore выбирает хранилище офлайн-тайлов: файл bbolt или Redis
func newTileStore(cfg *config.Config, cacheRepo repository.CacheRepository, log *zap.Logger) (repository.TileStore, func()) {
	if cfg.Tiles.Store == "redis" {
		log.Info("Offline tiles stored in Redis", zap.Duration("ttl", cfg.Cache.TilesCacheTTL))
		return cache.NewTileStore(cacheRepo, cfg.Cache.TilesCacheTTL), func() {}
	}

	store, err := bolt.NewTileStore(cfg.Tiles.StorePath, log)
	if err != nil {
		log.Fatal("Failed to open offline tile store", zap.Error(err))
	}
	return store, func() {
		if err := store.Close(); err != nil {
			log.Error("Failed to close offline tile store", zap.Error(err))
		}
	}
}
