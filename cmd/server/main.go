package main

import (
	"context"   // Shutdown and Redis ping
	"errors"    // Error comparison
	"net/http"  // HTTP server
	"os"        // Signals
	"os/signal" // Signal handling
	"syscall"   // SIGTERM
	"time"      // Timeouts

	"paper_trading/internal/api"        // HTTP handlers and router
	"paper_trading/internal/config"     // Configuration
	"paper_trading/internal/db"         // Database connection and migration
	"paper_trading/internal/market"     // Market-data gateway
	"paper_trading/internal/middleware" // Metrics and throttling
	"paper_trading/internal/simulator"  // Background mining payouts
	"paper_trading/internal/storage"    // Repository backends
	"paper_trading/internal/trading"    // Transaction orchestration
	"paper_trading/internal/utils"      // Cache

	"github.com/gin-gonic/gin"                                  // Gin web framework
	"github.com/prometheus/client_golang/prometheus"            // Metrics registry
	"github.com/prometheus/client_golang/prometheus/collectors" // Go runtime and process metrics
	"github.com/redis/go-redis/v9"                              // Redis client
	"github.com/sirupsen/logrus"                                // Logrus for structured logging
)

// Main function to set up and run the server
func main() {
	cfg := config.LoadConfig() // Load configuration
	setupLogger(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	repo, err := openRepository(cfg)
	if err != nil {
		logrus.Fatalf("failed to open storage: %v", err)
	}
	if cfg.SeedData {
		opts := storage.DefaultSeedOptions()
		opts.DemoUsername = cfg.DemoUsername
		if err := storage.Seed(ctx, repo, opts); err != nil {
			logrus.Fatalf("failed to seed data: %v", err)
		}
	}

	// Market payloads are cached in Redis when an address is configured
	var cache utils.Cache = utils.NopCache{}
	if cfg.RedisAddr != "" {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr, // Redis server address
			Password: cfg.RedisPass, // Redis password
			DB:       cfg.RedisDB,   // Redis database number
		})
		defer redisClient.Close()
		// Test Redis connection
		if _, err := redisClient.Ping(ctx).Result(); err != nil {
			logrus.Fatalf("failed to connect to Redis: %v", err)
		}
		cache = utils.NewRedisCache(redisClient)
	}
	marketClient := market.NewClient(market.Options{
		BaseURL:  cfg.MarketBaseURL,
		APIKey:   cfg.MarketAPIKey,
		Timeout:  cfg.MarketTimeout,
		Cache:    cache,
		CacheTTL: cfg.MarketCacheTTL,
	})
	svc := trading.NewService(repo, marketClient)

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	// Set Mode to Release if in production
	if cfg.IsProd {
		gin.SetMode(gin.ReleaseMode)
	}
	r := api.NewRouter(api.RouterDeps{
		Repo:         repo,
		Market:       marketClient,
		Trading:      svc,
		Metrics:      middleware.NewMetrics(reg),
		LoginLimiter: middleware.NewRateLimiter(cfg.LoginRatePerSec, cfg.LoginBurst),
		DemoUsername: cfg.DemoUsername,
		JWTSecret:    cfg.JWTSecret,
		JWTTTL:       cfg.JWTTTL,
		CORSOrigins:  cfg.CORSOrigins,
	})
	// Set trusted proxies for Gin
	if err := r.SetTrustedProxies([]string{"127.0.0.1"}); err != nil {
		logrus.Fatalf("failed to set trusted proxies: %v", err)
	}

	if cfg.MiningSimInterval > 0 {
		sim := simulator.NewMiningSimulator(repo, svc, cfg.DemoUsername, cfg.MiningSimInterval)
		go func() {
			if err := sim.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logrus.WithError(err).Error("Mining simulator stopped")
			}
		}()
		defer sim.Stop()
	}

	srv := &http.Server{
		Addr:              ":" + cfg.AppPort,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		logrus.WithFields(logrus.Fields{
			"port":    cfg.AppPort,
			"storage": cfg.StorageDriver,
		}).Info("Server running")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logrus.Fatalf("server failed: %v", err)
		}
	}()

	<-ctx.Done()
	logrus.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logrus.WithError(err).Error("Graceful shutdown failed")
	}
}

func setupLogger(cfg *config.Config) {
	if cfg.IsProd {
		logrus.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		logrus.Warnf("unknown LOG_LEVEL %q, using info", cfg.LogLevel)
		level = logrus.InfoLevel
	}
	logrus.SetLevel(level)
}

// openRepository picks the storage backend; SQL backends are migrated first
func openRepository(cfg *config.Config) (storage.Repository, error) {
	if cfg.StorageDriver == config.DriverMemory {
		return storage.NewMemStorage(), nil
	}
	gdb, err := db.Open(cfg.StorageDriver, cfg.DSN())
	if err != nil {
		return nil, err
	}
	if err := db.Migrate(gdb); err != nil {
		return nil, err
	}
	return storage.NewGormStorage(gdb), nil
}
