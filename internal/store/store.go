// Package store is the durable, transactional record of users, tasks,
// completions and financial transactions.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"reward_ledger/internal/domain"
)

var (
	ErrNotFound  = errors.New("store: record not found")
	ErrConflict  = errors.New("store: concurrent update conflict")
	ErrDuplicate = errors.New("store: duplicate key")
)

// Store is the entry point to the ledger tables. Mutations of balances and
// transaction state happen only inside WithinUnit.
type Store interface {
	// WithinUnit runs fn in one atomic unit of work. The unit commits when fn
	// returns nil and rolls back otherwise, leaving no partial effect.
	WithinUnit(ctx context.Context, fn func(Unit) error) error

	GetUser(ctx context.Context, id uint) (*domain.User, error)
	FindUserByWallet(ctx context.Context, address string) (*domain.User, error)
	// CreateUser returns ErrDuplicate when the wallet address or referral code is taken.
	CreateUser(ctx context.Context, user *domain.User) error

	ListEnabledTasks(ctx context.Context) ([]domain.Task, error)
	// LatestCompletions maps task id to the most recent completion time for the user.
	LatestCompletions(ctx context.Context, userID uint) (map[uint]time.Time, error)

	GetTransaction(ctx context.Context, id uint) (*domain.Transaction, error)
	// ListTransactions returns the user's transactions, most recent first.
	ListTransactions(ctx context.Context, userID uint, limit int) ([]domain.Transaction, error)
	ListPendingWithdrawals(ctx context.Context, q PendingQuery) ([]domain.Transaction, error)
	// ClaimDispatch marks a pending withdrawal as taken by a payout worker. It
	// reports false when the withdrawal is no longer pending or was already taken.
	ClaimDispatch(ctx context.Context, id uint, at time.Time) (bool, error)
}

// Unit is the view of the store inside one atomic unit of work. Reads
// observe writes made earlier in the same unit.
type Unit interface {
	// LockUser reads the user and holds its row lock until the unit ends.
	// Every balance mutation takes this lock first.
	LockUser(id uint) (*domain.User, error)
	GetTask(id uint) (*domain.Task, error)
	// LatestCompletion returns nil when the user never completed the task.
	LatestCompletion(userID, taskID uint) (*time.Time, error)
	InsertCompletion(c *domain.TaskCompletion) error

	// CreditEarning adds amount to both balance and total earned.
	CreditEarning(userID uint, amount decimal.Decimal) error
	// DebitBalance subtracts amount, reporting false if the balance would go negative.
	DebitBalance(userID uint, amount decimal.Decimal) (bool, error)
	// RefundBalance adds amount back to the balance without touching total earned.
	RefundBalance(userID uint, amount decimal.Decimal) error

	InsertTransaction(t *domain.Transaction) error
	LockTransaction(id uint) (*domain.Transaction, error)
	// ResolveTransaction moves a pending transaction to a terminal status. It
	// reports false when the transaction was not pending.
	ResolveTransaction(id uint, status domain.TransactionStatus, reference *string) (bool, error)
}

// PendingQuery selects pending withdrawals for reconciliation.
type PendingQuery struct {
	CreatedBefore    time.Time
	UndispatchedOnly bool
	Limit            int
}
