package ledger

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"reward_ledger/internal/domain"
	"reward_ledger/internal/store"
)

const (
	DefaultTransactionLimit = 50
	MaxTransactionLimit     = 100
)

// TaskView is an enabled task as seen by one user.
type TaskView struct {
	ID               uint
	Name             string
	Reward           decimal.Decimal
	CooldownSeconds  int64
	CanClaim         bool
	RemainingSeconds int64
	LastCompletedAt  *time.Time
}

// ListTasks reports every enabled task with the user's claim eligibility.
// It reads without locks; Claim re-evaluates the cooldown under the user lock.
func (s *Service) ListTasks(ctx context.Context, userID uint) ([]TaskView, error) {
	tasks, err := s.store.ListEnabledTasks(ctx)
	if err != nil {
		return nil, err
	}
	latest, err := s.store.LatestCompletions(ctx, userID)
	if err != nil {
		return nil, err
	}
	now := s.stamp()
	views := make([]TaskView, 0, len(tasks))
	for _, t := range tasks {
		var last *time.Time
		if at, ok := latest[t.ID]; ok {
			last = &at
		}
		cd := EvaluateCooldown(t, last, now)
		views = append(views, TaskView{
			ID:               t.ID,
			Name:             t.Name,
			Reward:           t.Reward,
			CooldownSeconds:  t.CooldownSeconds,
			CanClaim:         cd.Allowed,
			RemainingSeconds: cd.RemainingSeconds,
			LastCompletedAt:  last,
		})
	}
	return views, nil
}

// ClampLimit maps a requested page size onto 1..MaxTransactionLimit.
// Non-positive values select DefaultTransactionLimit.
func ClampLimit(limit int) int {
	switch {
	case limit <= 0:
		return DefaultTransactionLimit
	case limit > MaxTransactionLimit:
		return MaxTransactionLimit
	}
	return limit
}

// ListTransactions returns the user's most recent transactions, newest first.
func (s *Service) ListTransactions(ctx context.Context, userID uint, limit int) ([]domain.Transaction, error) {
	return s.store.ListTransactions(ctx, userID, ClampLimit(limit))
}

// Balance returns the user record carrying balance and total earned.
func (s *Service) Balance(ctx context.Context, userID uint) (*domain.User, error) {
	user, err := s.store.GetUser(ctx, userID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, domain.ErrUserNotFound
	}
	return user, err
}

// Transaction returns a single transaction by id.
func (s *Service) Transaction(ctx context.Context, id uint) (*domain.Transaction, error) {
	tx, err := s.store.GetTransaction(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, domain.ErrTransactionNotFound
	}
	return tx, err
}
