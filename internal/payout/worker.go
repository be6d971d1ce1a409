package payout

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"reward_ledger/internal/domain"
	"reward_ledger/internal/ledger"
	"reward_ledger/internal/store"
	"reward_ledger/internal/utils"
)

const (
	dequeueTimeout        = 5 * time.Second
	resolveAttempts       = 5
	defaultResolveBackoff = 500 * time.Millisecond
)

// Resolver applies payout outcomes to the ledger.
type Resolver interface {
	ResolvePayout(ctx context.Context, transactionID uint, outcome ledger.Outcome) (bool, error)
}

// Worker pops withdrawals off the queue, pays them out and resolves them.
type Worker struct {
	Store    store.Store
	Queue    Queue
	Client   Client
	Resolver Resolver
	Redis    *redis.Client // optional, for cache invalidation
	Now      func() time.Time

	// ResolveBackoff is the base delay between resolution attempts,
	// growing linearly. Zero means 500ms.
	ResolveBackoff time.Duration
}

// Run processes the queue until ctx is cancelled.
func (w *Worker) Run(ctx context.Context) error {
	logrus.Info("Payout worker started")
	for {
		id, ok, err := w.Queue.Dequeue(ctx, dequeueTimeout)
		if ctx.Err() != nil {
			logrus.Info("Payout worker stopped")
			return nil
		}
		if err != nil {
			logrus.WithField("error", err.Error()).Error("Failed to read payout queue")
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(time.Second):
			}
			continue
		}
		if !ok {
			continue
		}
		if err := w.Process(ctx, id); err != nil {
			logrus.WithFields(logrus.Fields{
				"transaction_id": id,
				"error":          err.Error(),
			}).Error("Payout processing failed")
		}
	}
}

// Process pays out one withdrawal. A withdrawal that is no longer pending or
// was already taken by another worker is skipped, so each id is sent at most once.
func (w *Worker) Process(ctx context.Context, id uint) error {
	now := time.Now
	if w.Now != nil {
		now = w.Now
	}
	claimed, err := w.Store.ClaimDispatch(ctx, id, now())
	if err != nil {
		return err
	}
	if !claimed {
		logrus.WithField("transaction_id", id).Debug("Payout already dispatched or resolved")
		return nil
	}

	tx, err := w.Store.GetTransaction(ctx, id)
	if err != nil {
		return w.abandon(ctx, id, 0, err)
	}
	user, err := w.Store.GetUser(ctx, tx.UserID)
	if err != nil {
		return w.abandon(ctx, id, tx.UserID, err)
	}

	outcome := ledger.Failed()
	ref, sendErr := w.Client.Send(ctx, user.WalletAddress, tx.Amount)
	if sendErr == nil {
		outcome = ledger.Succeeded(ref)
	} else {
		logrus.WithFields(logrus.Fields{
			"transaction_id": id,
			"user_id":        tx.UserID,
			"amount":         tx.Amount.String(),
			"error":          sendErr.Error(),
		}).Error("Payout send failed")
	}

	if err := w.resolve(ctx, id, outcome); err != nil {
		if sendErr != nil {
			return errors.Join(err, sendErr)
		}
		logrus.WithFields(logrus.Fields{
			"transaction_id": id,
			"user_id":        tx.UserID,
			"amount":         tx.Amount.String(),
			"tx_reference":   ref,
			"error":          err.Error(),
		}).Error("Payout sent but not recorded")
		return fmt.Errorf("payout %d sent as %s but not recorded: %w", id, ref, err)
	}
	w.invalidate(ctx, tx.UserID)
	return nil
}

// abandon fails a dispatched withdrawal whose payout was never sent, so the
// reservation is refunded instead of waiting on the pending timeout.
func (w *Worker) abandon(ctx context.Context, id, userID uint, cause error) error {
	logrus.WithFields(logrus.Fields{
		"transaction_id": id,
		"error":          cause.Error(),
	}).Error("Payout aborted before send")
	if err := w.resolve(ctx, id, ledger.Failed()); err != nil {
		return errors.Join(cause, err)
	}
	if userID != 0 {
		w.invalidate(ctx, userID)
	}
	return cause
}

// resolve records outcome, retrying with a linear backoff. Cancellation of
// ctx does not cut it short: a dispatched payout must reach a final state.
func (w *Worker) resolve(ctx context.Context, id uint, outcome ledger.Outcome) error {
	ctx = context.WithoutCancel(ctx)
	backoff := w.ResolveBackoff
	if backoff <= 0 {
		backoff = defaultResolveBackoff
	}
	var err error
	for attempt := 1; attempt <= resolveAttempts; attempt++ {
		if _, err = w.Resolver.ResolvePayout(ctx, id, outcome); err == nil {
			return nil
		}
		if errors.Is(err, domain.ErrTransactionNotFound) || errors.Is(err, ledger.ErrMissingReference) {
			return err
		}
		logrus.WithFields(logrus.Fields{
			"transaction_id": id,
			"attempt":        attempt,
			"error":          err.Error(),
		}).Warn("Payout resolution failed")
		if attempt < resolveAttempts {
			time.Sleep(time.Duration(attempt) * backoff)
		}
	}
	return err
}

func (w *Worker) invalidate(ctx context.Context, userID uint) {
	if err := utils.InvalidateUser(context.WithoutCancel(ctx), w.Redis, userID); err != nil {
		logrus.WithField("error", err.Error()).Warn("Failed to invalidate cache")
	}
}
