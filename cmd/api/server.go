package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/PxPatel/auction-engine/config"
	"github.com/PxPatel/auction-engine/internal/api"
	"github.com/PxPatel/auction-engine/internal/api/handlers"
	"github.com/PxPatel/auction-engine/internal/api/routes"
	"github.com/PxPatel/auction-engine/internal/logger"
	"github.com/PxPatel/auction-engine/internal/matching"
	"github.com/PxPatel/auction-engine/internal/storage"
	"github.com/PxPatel/auction-engine/internal/storage/kafka"
	"github.com/PxPatel/auction-engine/internal/storage/memory"
	"github.com/PxPatel/auction-engine/internal/storage/postgres"
	"github.com/PxPatel/auction-engine/internal/storage/redis"
	"github.com/PxPatel/auction-engine/internal/types"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger with config
	logLevel, err := logger.ParseLevel(cfg.Logger.Level)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Invalid log level: %v\n", err)
		os.Exit(1)
	}
	logger.Configure(logLevel, cfg.Logger.Format, os.Stdout)

	logger.Info("Starting Auction Engine API Server", map[string]interface{}{
		"version": handlers.Version,
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		logger.Error("Server exited with error", map[string]interface{}{
			"error": err.Error(),
		})
		os.Exit(1)
	}

	logger.Info("Server exited successfully", nil)
}

func run(ctx context.Context, cfg *config.Config) error {
	store, storeName, err := buildBookStore(ctx, cfg)
	if err != nil {
		return err
	}

	if err := bootstrapAssets(ctx, store, cfg.Engine.BootstrapAssets); err != nil {
		_ = store.Close()
		return err
	}

	feed := buildTradeFeed(cfg)

	engine := matching.NewEngine(store,
		matching.WithTradeFeed(feed),
		matching.WithContentionRetries(cfg.Engine.ContentionRetries, cfg.Engine.ContentionBackoff),
	)
	defer func() {
		if err := engine.Close(); err != nil {
			logger.Error("Failed to close engine", map[string]interface{}{
				"error": err.Error(),
			})
		}
	}()

	// Create engine holder for dependency injection
	engineHolder := handlers.NewEngineHolder(engine, handlers.Limits{
		DefaultTradeLimit: cfg.API.DefaultTradeLimit,
		MaxTradeLimit:     cfg.API.MaxTradeLimit,
		DefaultDepth:      cfg.API.DefaultOrderBookDepth,
		MaxDepth:          cfg.API.MaxOrderBookDepth,
		MaxBatchSize:      cfg.API.MaxBatchSize,
	}, storeName)

	routeOpts := routes.Options{}
	if cfg.Metrics.Enabled {
		routeOpts.MetricsPath = cfg.Metrics.Path
	}

	server := api.NewServer(api.ServerConfig{
		Addr:            ":" + cfg.Server.Port,
		ReadTimeout:     cfg.Server.ReadTimeout,
		WriteTimeout:    cfg.Server.WriteTimeout,
		IdleTimeout:     cfg.Server.IdleTimeout,
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
	}, routes.SetupRoutes(engineHolder, routeOpts))

	return server.Run(ctx)
}

// buildBookStore returns the authoritative book store: PostgreSQL when
// enabled, otherwise process memory.
func buildBookStore(ctx context.Context, cfg *config.Config) (storage.BookStore, string, error) {
	if !cfg.Database.Enabled {
		logger.Info("In-memory book store enabled", map[string]interface{}{
			"lock_timeout": cfg.Engine.LockTimeout.String(),
		})
		return memory.NewInMemoryBookStore(cfg.Engine.LockTimeout), "memory", nil
	}

	pgCfg := postgres.PostgresConfig{
		URL:             cfg.Database.URL,
		Host:            cfg.Database.Host,
		Port:            cfg.Database.Port,
		Database:        cfg.Database.Name,
		User:            cfg.Database.User,
		Password:        cfg.Database.Password,
		MaxConns:        cfg.Database.MaxConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
		SSLMode:         cfg.Database.SSLMode,
	}

	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	store, err := postgres.NewPostgresBookStore(connectCtx, pgCfg, cfg.Engine.LockTimeout)
	if err != nil {
		return nil, "", fmt.Errorf("connect postgres: %w", err)
	}

	logger.Info("PostgreSQL book store connected", map[string]interface{}{
		"host":     cfg.Database.Host,
		"database": cfg.Database.Name,
	})
	return store, "postgres", nil
}

// buildTradeFeed assembles the post-commit trade consumers. A feed that
// cannot be reached at start is skipped with a warning.
func buildTradeFeed(cfg *config.Config) storage.TradeFeed {
	var feeds []storage.TradeFeed

	if cfg.Engine.TradeLogPath != "" {
		fileFeed, err := storage.NewFileTradeFeed(cfg.Engine.TradeLogPath)
		if err != nil {
			logger.Warn("Trade file log disabled", map[string]interface{}{
				"path":  cfg.Engine.TradeLogPath,
				"error": err.Error(),
			})
		} else {
			feeds = append(feeds, fileFeed)
			logger.Info("Trade file log enabled", map[string]interface{}{
				"path": cfg.Engine.TradeLogPath,
			})
		}
	}

	if cfg.Redis.Enabled {
		redisFeed, err := redis.NewRedisTradeFeed(redis.RedisConfig{
			Host:          cfg.Redis.Host,
			Port:          cfg.Redis.Port,
			Password:      cfg.Redis.Password,
			DB:            cfg.Redis.DB,
			MaxRetries:    cfg.Redis.MaxRetries,
			PoolSize:      cfg.Redis.PoolSize,
			MinIdleConns:  cfg.Redis.MinIdleConns,
			TLSEnabled:    cfg.Redis.TLSEnabled,
			MaxTrades:     cfg.Redis.MaxTrades,
			ChannelPrefix: cfg.Redis.ChannelPrefix,
		})
		if err != nil {
			logger.Warn("Failed to connect to Redis, continuing without Redis trade feed", map[string]interface{}{
				"error": err.Error(),
			})
		} else {
			feeds = append(feeds, redisFeed)
			logger.Info("Redis trade feed connected", map[string]interface{}{
				"host": cfg.Redis.Host,
				"port": cfg.Redis.Port,
			})
		}
	}

	if cfg.Kafka.Enabled {
		kafkaFeed, err := kafka.NewKafkaTradeFeed(kafka.KafkaConfig{
			Brokers:      cfg.Kafka.Brokers,
			Topic:        cfg.Kafka.Topic,
			BatchTimeout: cfg.Kafka.BatchTimeout,
			WriteTimeout: cfg.Kafka.WriteTimeout,
		})
		if err != nil {
			logger.Warn("Kafka trade feed disabled", map[string]interface{}{
				"error": err.Error(),
			})
		} else {
			feeds = append(feeds, kafkaFeed)
			logger.Info("Kafka trade feed enabled", map[string]interface{}{
				"topic": cfg.Kafka.Topic,
			})
		}
	}

	composite := storage.NewCompositeTradeFeed(feeds...)
	logger.Info("Trade feeds initialized", map[string]interface{}{
		"feeds": composite.Len(),
	})
	return composite
}

// bootstrapAssets makes sure every configured asset exists and trades
func bootstrapAssets(ctx context.Context, store storage.BookStore, assetIDs []string) error {
	for _, id := range assetIDs {
		if err := store.EnsureAsset(ctx, &types.Asset{ID: id, Name: id, Status: types.AssetTrading}); err != nil {
			return fmt.Errorf("bootstrap asset %s: %w", id, err)
		}
	}
	if len(assetIDs) > 0 {
		logger.Info("Assets bootstrapped", map[string]interface{}{
			"assets": assetIDs,
		})
	}
	return nil
}
