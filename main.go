// Package main provides the main entry point for the commodity price API and its ingestion scheduler
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/amirphl/harga-pangan/app/handlers"
	"github.com/amirphl/harga-pangan/app/router"
	"github.com/amirphl/harga-pangan/app/scheduler"
	"github.com/amirphl/harga-pangan/app/services"
	businessflow "github.com/amirphl/harga-pangan/business_flow"
	"github.com/amirphl/harga-pangan/config"
	"github.com/amirphl/harga-pangan/logging"
	"github.com/amirphl/harga-pangan/repository"
	"github.com/gofiber/fiber/v3"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Application represents the main application structure
type Application struct {
	router    *router.FiberRouter
	config    *config.ProductionConfig
	server    *fiber.App
	logger    *zap.Logger
	stopFuncs []func()
}

func main() {
	cfg, err := config.LoadProductionConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger, err := logging.New(cfg.Logging)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting harga-pangan application")

	app, err := initializeApplication(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize application", zap.Error(err))
	}

	app.router.SetupRoutes()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		address := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
		if err := app.router.Start(address); err != nil {
			logger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	<-sigChan
	logger.Info("Shutting down gracefully")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := app.server.ShutdownWithContext(shutdownCtx); err != nil {
		logger.Error("Error during shutdown", zap.Error(err))
	}

	// Stop background workers, then release connections
	for _, fn := range app.stopFuncs {
		fn()
	}

	logger.Info("Server stopped")
}

// initializeCache initializes the Redis client and verifies connectivity. A disabled cache yields nil.
func initializeCache(cfg config.CacheConfig, logger *zap.Logger) (*redis.Client, error) {
	if !cfg.Enabled || cfg.Provider != "redis" {
		return nil, nil
	}

	opt, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}
	opt.DB = cfg.RedisDB

	rc := redis.NewClient(opt)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rc.Ping(ctx).Err(); err != nil {
		_ = rc.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	logger.Info("Redis connection established", zap.String("url", cfg.RedisURL), zap.Int("db", cfg.RedisDB))
	return rc, nil
}

// startCacheHealthMonitor periodically pings Redis to surface connectivity issues.
// The returned function stops the monitor.
func startCacheHealthMonitor(parent context.Context, client *redis.Client, interval time.Duration, logger *zap.Logger) func() {
	monitorCtx, cancel := context.WithCancel(parent)
	if interval <= 0 {
		interval = 30 * time.Second
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-monitorCtx.Done():
				return
			case <-ticker.C:
				ctx, c := context.WithTimeout(monitorCtx, 3*time.Second)
				if err := client.Ping(ctx).Err(); err != nil {
					logger.Warn("Redis healthcheck failed", zap.Error(err))
				}
				c()
			}
		}
	}()
	return cancel
}

// initializeApplication initializes the main application components
func initializeApplication(cfg *config.ProductionConfig, logger *zap.Logger) (*Application, error) {
	var stopFuncs []func()

	db, err := repository.OpenDatabase(cfg.Database, logger)
	if err != nil {
		return nil, err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}
	stopFuncs = append(stopFuncs, func() { _ = sqlDB.Close() })

	rc, err := initializeCache(cfg.Cache, logger)
	if err != nil {
		return nil, err
	}
	if rc != nil {
		stopMonitor := startCacheHealthMonitor(context.Background(), rc, cfg.Cache.HealthInterval, logger)
		stopFuncs = append(stopFuncs, stopMonitor, func() { _ = rc.Close() })
	}

	client := services.NewUpstreamClientFromConfig(&cfg.Upstream, logger)

	flows := businessflow.NewFlows(businessflow.Dependencies{
		DB:          db,
		RC:          rc,
		Client:      client,
		CacheConfig: &cfg.Cache,
		CacheTTL:    cfg.Query.CacheTTL,
		Logger:      logger,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := flows.Dimensions.EnsureDefaultProvince(ctx); err != nil {
		return nil, err
	}

	appRouter := router.NewFiberRouter(router.Handlers{
		Price:     handlers.NewPriceHandler(flows.PriceQuery, flows.Export, cfg.Server.WriteTimeout, logger),
		Dimension: handlers.NewDimensionHandler(flows.Dimensions, cfg.Server.WriteTimeout, logger),
		Health:    handlers.NewHealthHandler(sqlDB, logger),
	}, cfg.Server, cfg.Metrics, logger)

	if cfg.Scheduler.Enabled {
		sched := scheduler.NewIngestScheduler(flows.Ingest, rc, cfg.Cache, cfg.Scheduler, logger)
		stopScheduler, err := sched.Start(context.Background())
		if err != nil {
			return nil, fmt.Errorf("failed to start ingest scheduler: %w", err)
		}
		// the scheduler must stop before the pools it uses are closed
		stopFuncs = append([]func(){stopScheduler}, stopFuncs...)
	}

	return &Application{
		router:    appRouter,
		config:    cfg,
		server:    appRouter.GetApp(),
		logger:    logger,
		stopFuncs: stopFuncs,
	}, nil
}
