package config

import (
	"os"      // For environment variables
	"strconv" // For string to int conversion
	"time"    // For durations

	"github.com/joho/godotenv"      // For loading .env files
	"github.com/shopspring/decimal" // For money options
)

// Config holds the application configuration
type Config struct {
	AppPort     string        // Application port
	DBUser      string        // Database user
	DBPassword  string        // Database password
	DBHost      string        // Database host
	DBPort      string        // Database port
	DBName      string        // Database name
	StoreDriver string        // Ledger store backend: mysql or memory
	JWTSecret   string        // JWT secret key
	JWTTTL      time.Duration // JWT lifetime
	RedisAddr   string        // Redis server address
	RedisPass   string        // Redis password
	RedisDB     int           // Redis database number
	IsProd      bool          // Is production environment
	RateRPS     int           // Requests per second allowed per client
	RateBurst   int           // Burst allowed per client

	Ledger LedgerConfig // Claim and withdrawal rules
	Payout PayoutConfig // External payout settings
}

// LedgerConfig holds the withdrawal limits and retry policy
type LedgerConfig struct {
	MinWithdrawal decimal.Decimal // Smallest allowed withdrawal
	MaxWithdrawal decimal.Decimal // Largest allowed withdrawal
	WithdrawalFee decimal.Decimal // Flat fee reserved with every withdrawal
	RetryAttempts int             // Attempts per unit of work on store conflicts
}

// PayoutConfig holds the payout queue, RPC and reconciliation settings
type PayoutConfig struct {
	Queue             string        // Redis list holding pending payout ids
	ServiceToken      string        // Shared secret for the resolution callback
	RPCURL            string        // Dogecoin Core JSON-RPC endpoint
	RPCUser           string        // RPC user
	RPCPassword       string        // RPC password
	RPCTimeout        time.Duration // Per-call RPC timeout
	ReconcileInterval time.Duration // How often the reconciler runs
	DispatchGrace     time.Duration // Age after which an undispatched withdrawal is re-queued
	PendingTimeout    time.Duration // Age after which a pending withdrawal fails; 0 disables
}

// LoadConfig loads configuration from environment variables
func LoadConfig() *Config {
	_ = godotenv.Load() // Load .env file if present
	redisDB, _ := strconv.Atoi(os.Getenv("REDIS_DB"))
	return &Config{
		AppPort:     getString("APP_PORT", "3001"),          // Application port
		DBUser:      os.Getenv("DB_USER"),                   // Database user
		DBPassword:  os.Getenv("DB_PASSWORD"),               // Database password
		DBHost:      os.Getenv("DB_HOST"),                   // Database host
		DBPort:      getString("DB_PORT", "3306"),           // Database port
		DBName:      os.Getenv("DB_NAME"),                   // Database name
		StoreDriver: getString("STORE_DRIVER", "mysql"),     // Ledger store backend
		JWTSecret:   os.Getenv("JWT_SECRET"),                // JWT secret key
		JWTTTL:      getDuration("JWT_TTL", 7*24*time.Hour), // JWT lifetime
		RedisAddr:   os.Getenv("REDIS_ADDR"),                // Redis server address
		RedisPass:   os.Getenv("REDIS_PASS"),                // Redis password
		RedisDB:     redisDB,                                // Redis database number
		IsProd:      os.Getenv("IS_PROD") == "true",         // Is production environment
		RateRPS:     getPositiveInt("RATE_LIMIT_RPS", 5),    // Per-client request rate
		RateBurst:   getPositiveInt("RATE_LIMIT_BURST", 20), // Per-client burst
		Ledger: LedgerConfig{
			MinWithdrawal: getPositiveDecimal("MIN_WITHDRAWAL", decimal.NewFromInt(5)),
			MaxWithdrawal: getPositiveDecimal("MAX_WITHDRAWAL", decimal.NewFromInt(100)),
			WithdrawalFee: getPositiveDecimal("WITHDRAWAL_FEE", decimal.RequireFromString("0.1")),
			RetryAttempts: getPositiveInt("LEDGER_RETRY_ATTEMPTS", 3),
		},
		Payout: PayoutConfig{
			Queue:             getString("PAYOUT_QUEUE", "payouts:pending"),
			ServiceToken:      os.Getenv("PAYOUT_SERVICE_TOKEN"),
			RPCURL:            os.Getenv("DOGE_RPC_URL"),
			RPCUser:           os.Getenv("DOGE_RPC_USER"),
			RPCPassword:       os.Getenv("DOGE_RPC_PASSWORD"),
			RPCTimeout:        getDuration("DOGE_RPC_TIMEOUT", 30*time.Second),
			ReconcileInterval: getDuration("RECONCILE_INTERVAL", time.Minute),
			DispatchGrace:     getDuration("DISPATCH_GRACE", 2*time.Minute),
			PendingTimeout:    getDuration("PENDING_TIMEOUT", 0),
		},
	}
}

// DSN builds the MySQL data source name
func (c *Config) DSN() string {
	return c.DBUser + ":" + c.DBPassword + "@tcp(" + c.DBHost + ":" + c.DBPort + ")/" + c.DBName + "?parseTime=true"
}

func getString(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getDuration(key string, def time.Duration) time.Duration {
	d, err := time.ParseDuration(os.Getenv(key))
	if err != nil || d < 0 {
		return def
	}
	return d
}

func getPositiveInt(key string, def int) int {
	n, err := strconv.Atoi(os.Getenv(key))
	if err != nil || n <= 0 {
		return def
	}
	return n
}

// getPositiveDecimal falls back to def for missing, malformed or non-positive values
func getPositiveDecimal(key string, def decimal.Decimal) decimal.Decimal {
	d, err := decimal.NewFromString(os.Getenv(key))
	if err != nil || !d.IsPositive() {
		return def
	}
	return d
}
