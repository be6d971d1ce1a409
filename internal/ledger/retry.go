package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"reward_ledger/internal/domain"
	"reward_ledger/internal/metrics"
	"reward_ledger/internal/store"
)

// withinUnit runs fn in a unit of work, retrying it from scratch while the
// store reports a conflict. Exhausted retries surface as ErrTransient.
func (s *Service) withinUnit(ctx context.Context, op string, fn func(store.Unit) error) error {
	var err error
	for attempt := 1; attempt <= s.limits.RetryAttempts; attempt++ {
		err = s.store.WithinUnit(ctx, fn)
		if !errors.Is(err, store.ErrConflict) {
			return err
		}
		metrics.RecordConflictRetry(op)
		logrus.WithFields(logrus.Fields{
			"operation": op,
			"attempt":   attempt,
			"error":     err.Error(),
		}).Warn("Unit of work conflicted")
		if attempt == s.limits.RetryAttempts {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(s.backoff * time.Duration(attempt)):
		}
	}
	return fmt.Errorf("%s: %w", op, errors.Join(domain.ErrTransient, err))
}
