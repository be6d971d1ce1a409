package payout

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// Queue carries ids of withdrawals awaiting payout.
type Queue interface {
	Enqueue(ctx context.Context, transactionID uint) error
	// Dequeue waits up to timeout for an id. ok is false when none arrived.
	Dequeue(ctx context.Context, timeout time.Duration) (id uint, ok bool, err error)
}

// RedisQueue is a FIFO on a Redis list, shared by the API and worker processes.
type RedisQueue struct {
	rdb *redis.Client
	key string
}

// NewRedisQueue uses the list stored at key
func NewRedisQueue(rdb *redis.Client, key string) *RedisQueue {
	return &RedisQueue{rdb: rdb, key: key}
}

func (q *RedisQueue) Enqueue(ctx context.Context, transactionID uint) error {
	return q.rdb.LPush(ctx, q.key, strconv.FormatUint(uint64(transactionID), 10)).Err()
}

func (q *RedisQueue) Dequeue(ctx context.Context, timeout time.Duration) (uint, bool, error) {
	res, err := q.rdb.BRPop(ctx, timeout, q.key).Result()
	if errors.Is(err, redis.Nil) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	// BRPOP replies with [key, value]
	id, err := strconv.ParseUint(res[1], 10, 64)
	if err != nil {
		return 0, false, err
	}
	return uint(id), true, nil
}

// MemoryQueue is an in-process Queue for single-binary setups and tests.
type MemoryQueue struct {
	ids chan uint
}

// NewMemoryQueue buffers up to size ids
func NewMemoryQueue(size int) *MemoryQueue {
	return &MemoryQueue{ids: make(chan uint, size)}
}

func (q *MemoryQueue) Enqueue(ctx context.Context, transactionID uint) error {
	select {
	case q.ids <- transactionID:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (q *MemoryQueue) Dequeue(ctx context.Context, timeout time.Duration) (uint, bool, error) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case id := <-q.ids:
		return id, true, nil
	case <-timer.C:
		return 0, false, nil
	case <-ctx.Done():
		return 0, false, ctx.Err()
	}
}
