package api

import (
	"time" // Token lifetime

	"github.com/gin-gonic/gin"     // Gin web framework
	"github.com/redis/go-redis/v9" // Redis client

	"reward_ledger/internal/ledger"     // Ledger service
	"reward_ledger/internal/metrics"    // Prometheus collectors
	"reward_ledger/internal/middleware" // Auth and logging middleware
)

// RouterConfig holds the dependencies of the HTTP API
type RouterConfig struct {
	Ledger         *ledger.Service
	Redis          *redis.Client // nil disables caching
	JWTSecret      string
	JWTTTL         time.Duration
	ServiceToken   string                  // Guards /internal routes
	TrustedProxies []string                // Proxies allowed to set the client IP
	RateLimiter    *middleware.RateLimiter // nil disables throttling
}

// NewRouter wires every route of the API
func NewRouter(cfg RouterConfig) (*gin.Engine, error) {
	r := gin.New() // Gin router instance
	r.Use(gin.Recovery(), middleware.RequestLogger(), metrics.GinMiddleware())

	// Set trusted proxies for Gin
	if err := r.SetTrustedProxies(cfg.TrustedProxies); err != nil {
		return nil, err
	}

	r.GET("/health", HealthHandler())
	r.GET("/metrics", gin.WrapH(metrics.Handler()))

	var throttle gin.HandlerFunc = func(c *gin.Context) { c.Next() }
	if cfg.RateLimiter != nil {
		throttle = cfg.RateLimiter.Handler()
	}

	r.POST("/api/auth/connect", throttle, ConnectHandler(cfg.Ledger, cfg.JWTSecret, cfg.JWTTTL)) // Session endpoint

	// User routes (protected by JWT, throttled per user)
	userGroup := r.Group("/api")
	userGroup.Use(middleware.JWTAuthMiddleware(cfg.JWTSecret), throttle)
	userGroup.GET("/user/balance", GetBalanceHandler(cfg.Ledger, cfg.Redis))            // Balance endpoint
	userGroup.GET("/tasks", ListTasksHandler(cfg.Ledger))                               // Task list endpoint
	userGroup.POST("/tasks/:id/claim", ClaimHandler(cfg.Ledger, cfg.Redis))             // Claim endpoint
	userGroup.POST("/withdraw", WithdrawHandler(cfg.Ledger, cfg.Redis))                 // Withdrawal endpoint
	userGroup.GET("/transactions", GetTransactionHistoryHandler(cfg.Ledger, cfg.Redis)) // Transaction history endpoint

	// Internal routes (payout service callbacks)
	internalGroup := r.Group("/internal")
	internalGroup.Use(middleware.ServiceTokenMiddleware(cfg.ServiceToken))
	internalGroup.POST("/payouts/:id/resolve", ResolvePayoutHandler(cfg.Ledger, cfg.Redis)) // Payout outcome endpoint

	return r, nil
}
