package main

import (
	"context"   // Worker lifetime
	"os"        // Signals
	"os/signal" // Signal notification
	"syscall"   // SIGTERM
	"time"      // RPC probe timeout

	"github.com/go-co-op/gocron/v2" // Reconciliation scheduler
	"github.com/redis/go-redis/v9"  // Redis client
	"github.com/sirupsen/logrus"    // Logrus for structured logging

	"reward_ledger/internal/config" // Custom package for configuration
	"reward_ledger/internal/db"     // Database connection
	"reward_ledger/internal/ledger" // Ledger service
	"reward_ledger/internal/payout" // Payout worker and reconciler
	"reward_ledger/internal/store"  // Ledger store backends
)

// Main function to run the payout worker and the reconciliation jobs
func main() {
	cfg := config.LoadConfig() // Load configuration
	if cfg.IsProd {
		logrus.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	if cfg.Payout.RPCURL == "" {
		logrus.Fatal("DOGE_RPC_URL must be set")
	}

	gdb, err := db.Open(cfg.DSN())
	if err != nil {
		logrus.Fatalf("failed to connect to DB: %v", err)
	}
	st := store.NewGormStore(gdb)

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr, // Redis server address
		Password: cfg.RedisPass, // Redis password
		DB:       cfg.RedisDB,   // Redis database number
	})
	if err := redisClient.Ping(context.Background()).Err(); err != nil {
		logrus.Fatalf("failed to connect to Redis: %v", err)
	}
	defer redisClient.Close()

	queue := payout.NewRedisQueue(redisClient, cfg.Payout.Queue)
	svc := ledger.New(st, cfg.Ledger)
	rpc := payout.NewRPCClient(cfg.Payout.RPCURL, cfg.Payout.RPCUser, cfg.Payout.RPCPassword, cfg.Payout.RPCTimeout)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Node reachability is reported, not required; failed sends refund users
	probeCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	if bal, err := rpc.GetBalance(probeCtx); err != nil {
		logrus.WithField("error", err.Error()).Warn("Dogecoin node unreachable")
	} else {
		logrus.WithField("balance", bal.String()).Info("Dogecoin node wallet balance")
	}
	cancel()

	sched, err := gocron.NewScheduler()
	if err != nil {
		logrus.Fatalf("failed to create scheduler: %v", err)
	}
	reconciler := &payout.Reconciler{
		Store:          st,
		Queue:          queue,
		Resolver:       svc,
		DispatchGrace:  cfg.Payout.DispatchGrace,
		PendingTimeout: cfg.Payout.PendingTimeout,
	}
	if err := reconciler.Schedule(ctx, sched, cfg.Payout.ReconcileInterval); err != nil {
		logrus.Fatalf("failed to schedule reconciliation: %v", err)
	}
	sched.Start()
	defer func() {
		if err := sched.Shutdown(); err != nil {
			logrus.Errorf("scheduler shutdown: %v", err)
		}
	}()

	worker := &payout.Worker{
		Store:    st,
		Queue:    queue,
		Client:   rpc,
		Resolver: svc,
		Redis:    redisClient,
	}
	if err := worker.Run(ctx); err != nil {
		logrus.Errorf("worker stopped: %v", err)
	}
}
