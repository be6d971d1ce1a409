package utils

import (
	"context"       // Context for Redis operations
	"encoding/json" // JSON encoding/decoding
	"strconv"       // Key formatting
	"time"          // Time durations

	"github.com/redis/go-redis/v9" // Redis client
)

// CacheTTL is how long read-through entries live
const CacheTTL = 60 * time.Second

// BalanceKey is the cache key of a user's balance
func BalanceKey(userID uint) string {
	return "balance:user:" + strconv.FormatUint(uint64(userID), 10)
}

// TransactionsKey is the cache key of a user's transaction list for one limit
func TransactionsKey(userID uint, limit int) string {
	return "txhistory:user:" + strconv.FormatUint(uint64(userID), 10) + ":limit:" + strconv.Itoa(limit)
}

// transactionsPattern matches every cached transaction list of a user
func transactionsPattern(userID uint) string {
	return "txhistory:user:" + strconv.FormatUint(uint64(userID), 10) + ":limit:*"
}

// GetCache retrieves a value from Redis and unmarshals it into dest
func GetCache(ctx context.Context, rdb *redis.Client, key string, dest any) (bool, error) {
	if rdb == nil {
		return false, nil // Caching disabled
	}
	val, err := rdb.Get(ctx, key).Result() // Get value from Redis
	if err == redis.Nil {
		return false, nil // Key does not exist
	} else if err != nil {
		return false, err // Other Redis error
	}
	return true, json.Unmarshal([]byte(val), dest) // Unmarshal JSON into dest
}

// SetCache sets a value in Redis with a specified TTL
func SetCache(ctx context.Context, rdb *redis.Client, key string, value any, ttl time.Duration) error {
	if rdb == nil {
		return nil // Caching disabled
	}
	b, err := json.Marshal(value) // Marshal value to JSON
	if err != nil {
		return err // Return error if marshaling fails
	}
	return rdb.Set(ctx, key, b, ttl).Err() // Set value in Redis with TTL
}

// DeleteCache deletes keys from Redis
func DeleteCache(ctx context.Context, rdb *redis.Client, keys ...string) error {
	if rdb == nil || len(keys) == 0 {
		return nil // Nothing to do
	}
	return rdb.Del(ctx, keys...).Err() // Delete keys from Redis
}

// InvalidateUser drops the cached balance and every cached transaction list of a user
func InvalidateUser(ctx context.Context, rdb *redis.Client, userID uint) error {
	if rdb == nil {
		return nil // Caching disabled
	}
	keys := []string{BalanceKey(userID)}                                  // Balance entry
	iter := rdb.Scan(ctx, 0, transactionsPattern(userID), 100).Iterator() // Walk history entries
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return err // Scan failed
	}
	return DeleteCache(ctx, rdb, keys...) // Delete all at once
}
