package ledger

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"reward_ledger/internal/domain"
	"reward_ledger/internal/metrics"
	"reward_ledger/internal/store"
)

const enqueueTimeout = 5 * time.Second

// maxAmountExponent bounds the decimal exponent of a requested amount. Range
// checks rescale both operands to a common exponent, so extreme exponents
// must be rejected before any comparison.
const maxAmountExponent = 18

// WithdrawalResult describes an accepted withdrawal. Status is always pending.
type WithdrawalResult struct {
	TransactionID uint
	Amount        decimal.Decimal
	Fee           decimal.Decimal
	Status        domain.TransactionStatus
}

// RequestWithdrawal reserves amount plus the configured fee from the user's
// balance and records a pending withdrawal. The payout itself is handed to
// the payout queue after commit and never blocks the caller.
func (s *Service) RequestWithdrawal(ctx context.Context, userID uint, amount decimal.Decimal) (*WithdrawalResult, error) {
	if err := s.checkAmount(amount); err != nil {
		metrics.RecordWithdrawal(outcomeOf(err))
		return nil, err
	}
	fee := s.limits.WithdrawalFee
	total := amount.Add(fee)

	var res WithdrawalResult
	err := s.withinUnit(ctx, "withdraw", func(u store.Unit) error {
		user, err := u.LockUser(userID)
		if errors.Is(err, store.ErrNotFound) {
			return domain.ErrUserNotFound
		}
		if err != nil {
			return err
		}
		if user.Balance.LessThan(total) {
			return domain.ErrInsufficientBalance
		}
		ok, err := u.DebitBalance(userID, total)
		if err != nil {
			return err
		}
		if !ok {
			return domain.ErrInsufficientBalance
		}

		tx := &domain.Transaction{
			UserID:    userID,
			Type:      domain.TransactionWithdraw,
			Amount:    amount,
			Fee:       fee,
			Status:    domain.StatusPending,
			CreatedAt: s.stamp(),
		}
		if err := u.InsertTransaction(tx); err != nil {
			return err
		}
		res = WithdrawalResult{TransactionID: tx.ID, Amount: amount, Fee: fee, Status: tx.Status}
		return nil
	})
	if err != nil {
		metrics.RecordWithdrawal(outcomeOf(err))
		return nil, err
	}

	metrics.RecordWithdrawal("success")
	logrus.WithFields(logrus.Fields{
		"user_id":        userID,
		"transaction_id": res.TransactionID,
		"amount":         amount.String(),
		"fee":            fee.String(),
	}).Info("Withdrawal reserved")

	if s.queue != nil {
		go s.enqueue(context.WithoutCancel(ctx), res.TransactionID)
	}
	return &res, nil
}

// enqueue hands a committed withdrawal to the payout queue. A lost enqueue is
// recovered by the reconciler, so failures are only logged.
func (s *Service) enqueue(ctx context.Context, transactionID uint) {
	ctx, cancel := context.WithTimeout(ctx, enqueueTimeout)
	defer cancel()
	if err := s.queue.Enqueue(ctx, transactionID); err != nil {
		logrus.WithFields(logrus.Fields{
			"transaction_id": transactionID,
			"error":          err.Error(),
		}).Warn("Failed to enqueue payout")
	}
}

// checkAmount rejects amounts that cannot be stored exactly or fall outside
// the configured withdrawal limits. The exponent is checked before anything
// that rescales.
func (s *Service) checkAmount(amount decimal.Decimal) error {
	outOfRange := &domain.AmountOutOfRangeError{Min: s.limits.MinWithdrawal, Max: s.limits.MaxWithdrawal}
	exp := amount.Exponent()
	if exp > maxAmountExponent {
		return outOfRange
	}
	if exp < -maxAmountExponent {
		return domain.ErrInvalidAmount
	}
	if !amount.Equal(amount.Truncate(domain.AmountPlaces)) {
		return domain.ErrInvalidAmount
	}
	if amount.LessThan(s.limits.MinWithdrawal) || amount.GreaterThan(s.limits.MaxWithdrawal) {
		return outOfRange
	}
	return nil
}
