package ledger

import (
	"context"
	"errors"

	"github.com/sirupsen/logrus"

	"reward_ledger/internal/domain"
	"reward_ledger/internal/metrics"
	"reward_ledger/internal/store"
)

// ErrMissingReference is returned for a successful outcome without a payout reference.
var ErrMissingReference = errors.New("payout reference required for a successful outcome")

// Outcome is the terminal result reported for an external payout.
type Outcome struct {
	Success   bool
	Reference string
}

// Succeeded is a successful payout confirmed by reference
func Succeeded(reference string) Outcome {
	return Outcome{Success: true, Reference: reference}
}

// Failed is a payout that will never happen
func Failed() Outcome {
	return Outcome{}
}

// ResolvePayout applies the outcome of a withdrawal's payout. Only a pending
// withdrawal changes: success records the reference, failure refunds amount
// plus fee. It reports whether a transition happened, so duplicate deliveries
// return false with no effect.
func (s *Service) ResolvePayout(ctx context.Context, transactionID uint, outcome Outcome) (bool, error) {
	if outcome.Success && outcome.Reference == "" {
		return false, ErrMissingReference
	}

	tx, err := s.store.GetTransaction(ctx, transactionID)
	if errors.Is(err, store.ErrNotFound) {
		return false, domain.ErrTransactionNotFound
	}
	if err != nil {
		return false, err
	}
	if tx.Type != domain.TransactionWithdraw {
		return false, domain.ErrTransactionNotFound
	}
	if !tx.IsPending() {
		metrics.RecordPayout("ignored")
		return false, nil
	}

	applied := false
	err = s.withinUnit(ctx, "resolve_payout", func(u store.Unit) error {
		applied = false
		// user before transaction, the same order as every other mutation
		if _, err := u.LockUser(tx.UserID); err != nil {
			return err
		}
		locked, err := u.LockTransaction(transactionID)
		if err != nil {
			return err
		}
		if !locked.IsPending() {
			return nil
		}

		if outcome.Success {
			ref := outcome.Reference
			applied, err = u.ResolveTransaction(transactionID, domain.StatusCompleted, &ref)
			return err
		}
		applied, err = u.ResolveTransaction(transactionID, domain.StatusFailed, nil)
		if err != nil || !applied {
			return err
		}
		return u.RefundBalance(locked.UserID, locked.Total())
	})
	if err != nil {
		logrus.WithFields(logrus.Fields{
			"transaction_id": transactionID,
			"success":        outcome.Success,
			"error":          err.Error(),
		}).Error("Payout resolution failed")
		return false, err
	}

	fields := logrus.Fields{
		"transaction_id": transactionID,
		"user_id":        tx.UserID,
		"amount":         tx.Amount.String(),
		"fee":            tx.Fee.String(),
	}
	switch {
	case !applied:
		metrics.RecordPayout("ignored")
		logrus.WithFields(fields).Info("Duplicate payout resolution ignored")
	case outcome.Success:
		metrics.RecordPayout("completed")
		fields["tx_reference"] = outcome.Reference
		logrus.WithFields(fields).Info("Withdrawal completed")
	default:
		metrics.RecordPayout("failed")
		logrus.WithFields(fields).Warn("Withdrawal failed, balance refunded")
	}
	return applied, nil
}
