package ledger

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"reward_ledger/internal/config"
	"reward_ledger/internal/domain"
	"reward_ledger/internal/store"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func testLimits() config.LedgerConfig {
	return config.LedgerConfig{
		MinWithdrawal: decimal.NewFromInt(5),
		MaxWithdrawal: decimal.NewFromInt(100),
		WithdrawalFee: decimal.RequireFromString("0.1"),
		RetryAttempts: 3,
	}
}

func newTestService(t *testing.T, opts ...Option) (*Service, *store.MemoryStore, *fakeClock) {
	t.Helper()
	st := store.NewMemoryStore()
	clock := &fakeClock{now: time.Date(2026, 10, 1, 12, 0, 0, 0, time.UTC)}
	opts = append([]Option{WithClock(clock.Now), WithRetryBackoff(time.Millisecond)}, opts...)
	return New(st, testLimits(), opts...), st, clock
}

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func requireDecimal(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()
	require.Truef(t, d(want).Equal(got), "want %s, got %s", want, got.String())
}

func createUser(t *testing.T, st *store.MemoryStore, wallet, balance string) *domain.User {
	t.Helper()
	user := &domain.User{WalletAddress: wallet, ReferralCode: "R" + wallet, Balance: d(balance)}
	require.NoError(t, st.CreateUser(context.Background(), user))
	return user
}

func balanceOf(t *testing.T, st *store.MemoryStore, userID uint) decimal.Decimal {
	t.Helper()
	user, err := st.GetUser(context.Background(), userID)
	require.NoError(t, err)
	return user.Balance
}

// conflictStore fails the first n units with store.ErrConflict.
type conflictStore struct {
	store.Store
	mu      sync.Mutex
	n       int
	attempt int
}

func (c *conflictStore) WithinUnit(ctx context.Context, fn func(store.Unit) error) error {
	c.mu.Lock()
	c.attempt++
	fail := c.attempt <= c.n
	c.mu.Unlock()
	if fail {
		return store.ErrConflict
	}
	return c.Store.WithinUnit(ctx, fn)
}

type chanQueue struct {
	ids chan uint
}

func (q *chanQueue) Enqueue(_ context.Context, id uint) error {
	q.ids <- id
	return nil
}
