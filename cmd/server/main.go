package main

import (
	"context"   // context package is needed for Redis operations
	"errors"    // Server shutdown checks
	"net/http"  // HTTP server
	"os"        // Signals
	"os/signal" // Signal notification
	"syscall"   // SIGTERM
	"time"      // Timeouts

	"github.com/gin-gonic/gin"     // Gin web framework
	"github.com/redis/go-redis/v9" // Redis client
	"github.com/sirupsen/logrus"   // Logrus for structured logging

	"reward_ledger/internal/api"        // Custom package for API handlers
	"reward_ledger/internal/config"     // Custom package for configuration
	"reward_ledger/internal/db"         // Database connection
	"reward_ledger/internal/ledger"     // Ledger service
	"reward_ledger/internal/middleware" // Custom package for middleware
	"reward_ledger/internal/payout"     // Payout queue
	"reward_ledger/internal/store"      // Ledger store backends
)

// Main function to set up and run the server
func main() {
	cfg := config.LoadConfig() // Load configuration
	setupLogger(cfg.IsProd)    // Setup logger

	if cfg.JWTSecret == "" {
		logrus.Fatal("JWT_SECRET must be set")
	}

	// Setup Redis client
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr, // Redis server address
		Password: cfg.RedisPass, // Redis password
		DB:       cfg.RedisDB,   // Redis database number
	})
	// Test Redis connection
	if err := redisClient.Ping(context.Background()).Err(); err != nil {
		logrus.Fatalf("failed to connect to Redis: %v", err)
	}

	st := openStore(cfg)
	var opts []ledger.Option
	// Ids of an in-memory ledger mean nothing to the worker process
	if cfg.StoreDriver != "memory" {
		opts = append(opts, ledger.WithPayoutQueue(payout.NewRedisQueue(redisClient, cfg.Payout.Queue)))
	}
	svc := ledger.New(st, cfg.Ledger, opts...)

	// Set Mode to Release if in production
	if cfg.IsProd {
		gin.SetMode(gin.ReleaseMode)
	}

	router, err := api.NewRouter(api.RouterConfig{
		Ledger:         svc,
		Redis:          redisClient,
		JWTSecret:      cfg.JWTSecret,
		JWTTTL:         cfg.JWTTTL,
		ServiceToken:   cfg.Payout.ServiceToken,
		TrustedProxies: []string{"127.0.0.1"},
		RateLimiter:    middleware.NewRateLimiter(float64(cfg.RateRPS), cfg.RateBurst),
	})
	if err != nil {
		logrus.Fatalf("failed to set up router: %v", err)
	}

	srv := &http.Server{
		Addr:              ":" + cfg.AppPort,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		logrus.WithField("port", cfg.AppPort).Info("Server running") // Log server start
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logrus.Fatalf("server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit
	logrus.Info("Shutting down server")

	// In-flight units of work finish or roll back before exit
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logrus.Errorf("forced shutdown: %v", err)
	}
	_ = redisClient.Close()
}

// setupLogger picks the log format for the environment
func setupLogger(isProd bool) {
	if isProd {
		logrus.SetFormatter(&logrus.JSONFormatter{})
		return
	}
	logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
}

// openStore selects the ledger store backend
func openStore(cfg *config.Config) store.Store {
	switch cfg.StoreDriver {
	case "memory":
		logrus.Warn("Using the in-memory ledger store; balances are lost on restart and payouts resolve only via the callback")
		mem := store.NewMemoryStore()
		for i, t := range db.DefaultTasks {
			t.ID = uint(i + 1)
			mem.PutTask(t)
		}
		return mem
	case "mysql":
		gdb, err := db.Open(cfg.DSN())
		if err != nil {
			logrus.Fatalf("failed to connect to DB: %v", err) // Fatal error if DB connection fails
		}
		return store.NewGormStore(gdb)
	default:
		logrus.Fatalf("unknown STORE_DRIVER %q", cfg.StoreDriver)
		return nil
	}
}
