package ledger

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"reward_ledger/internal/domain"
	"reward_ledger/internal/metrics"
	"reward_ledger/internal/store"
)

// ClaimResult is the settled outcome of a successful claim.
type ClaimResult struct {
	TransactionID uint
	Reward        decimal.Decimal
	NewBalance    decimal.Decimal
}

// Claim credits the reward of taskID to userID if the task is enabled and its
// cooldown has elapsed. Rejections leave no trace in the store.
func (s *Service) Claim(ctx context.Context, userID, taskID uint, ipAddress string) (*ClaimResult, error) {
	var res ClaimResult
	err := s.withinUnit(ctx, "claim", func(u store.Unit) error {
		task, err := u.GetTask(taskID)
		if errors.Is(err, store.ErrNotFound) || (err == nil && !task.Enabled) {
			return domain.ErrTaskNotFound
		}
		if err != nil {
			return err
		}

		user, err := u.LockUser(userID)
		if errors.Is(err, store.ErrNotFound) {
			return domain.ErrUserNotFound
		}
		if err != nil {
			return err
		}

		now := s.stamp()
		last, err := u.LatestCompletion(userID, taskID)
		if err != nil {
			return err
		}
		if cd := EvaluateCooldown(*task, last, now); !cd.Allowed {
			return &domain.CooldownError{RemainingSeconds: cd.RemainingSeconds}
		}

		if err := u.CreditEarning(userID, task.Reward); err != nil {
			return err
		}
		if err := u.InsertCompletion(&domain.TaskCompletion{
			UserID:      userID,
			TaskID:      taskID,
			CompletedAt: now,
			IPAddress:   ipAddress,
		}); err != nil {
			return err
		}
		tx := &domain.Transaction{
			UserID:    userID,
			Type:      domain.TransactionEarn,
			Amount:    task.Reward,
			TaskID:    &task.ID,
			Status:    domain.StatusCompleted,
			CreatedAt: now,
		}
		if err := u.InsertTransaction(tx); err != nil {
			return err
		}

		res = ClaimResult{
			TransactionID: tx.ID,
			Reward:        task.Reward,
			NewBalance:    user.Balance.Add(task.Reward), // row is locked, no one else moved it
		}
		return nil
	})
	if err != nil {
		metrics.RecordClaim(outcomeOf(err))
		return nil, err
	}

	metrics.RecordClaim("success")
	logrus.WithFields(logrus.Fields{
		"user_id":        userID,
		"task_id":        taskID,
		"transaction_id": res.TransactionID,
		"reward":         res.Reward.String(),
		"balance":        res.NewBalance.String(),
	}).Info("Task reward claimed")
	return &res, nil
}

// outcomeOf labels an error for metrics.
func outcomeOf(err error) string {
	var cd *domain.CooldownError
	var rng *domain.AmountOutOfRangeError
	switch {
	case errors.As(err, &cd):
		return "cooldown"
	case errors.As(err, &rng):
		return "out_of_range"
	case errors.Is(err, domain.ErrInvalidAmount):
		return "invalid_amount"
	case errors.Is(err, domain.ErrTaskNotFound):
		return "task_not_found"
	case errors.Is(err, domain.ErrUserNotFound):
		return "user_not_found"
	case errors.Is(err, domain.ErrInsufficientBalance):
		return "insufficient_balance"
	case errors.Is(err, domain.ErrTransient):
		return "transient"
	default:
		return "error"
	}
}
