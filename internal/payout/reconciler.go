package payout

import (
	"context"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/sirupsen/logrus"

	"reward_ledger/internal/ledger"
	"reward_ledger/internal/metrics"
	"reward_ledger/internal/store"
)

const reconcileBatch = 100

// Reconciler recovers withdrawals that fell out of the normal payout flow.
type Reconciler struct {
	Store    store.Store
	Queue    Queue
	Resolver Resolver
	Now      func() time.Time

	// DispatchGrace is how long a withdrawal may wait undispatched before it is re-queued.
	DispatchGrace time.Duration
	// PendingTimeout fails withdrawals pending for longer. Zero disables it.
	PendingTimeout time.Duration
}

func (r *Reconciler) now() time.Time {
	if r.Now != nil {
		return r.Now()
	}
	return time.Now()
}

// Requeue enqueues pending withdrawals that no worker has taken within the
// grace period, such as those whose enqueue was lost after commit.
func (r *Reconciler) Requeue(ctx context.Context) (int, error) {
	txs, err := r.Store.ListPendingWithdrawals(ctx, store.PendingQuery{
		CreatedBefore:    r.now().Add(-r.DispatchGrace),
		UndispatchedOnly: true,
		Limit:            reconcileBatch,
	})
	if err != nil {
		return 0, err
	}
	n := 0
	for _, tx := range txs {
		if err := r.Queue.Enqueue(ctx, tx.ID); err != nil {
			return n, err
		}
		n++
	}
	metrics.RecordReconciled("requeue", n)
	return n, nil
}

// Expire fails and refunds withdrawals pending past PendingTimeout.
func (r *Reconciler) Expire(ctx context.Context) (int, error) {
	if r.PendingTimeout <= 0 {
		return 0, nil
	}
	txs, err := r.Store.ListPendingWithdrawals(ctx, store.PendingQuery{
		CreatedBefore: r.now().Add(-r.PendingTimeout),
		Limit:         reconcileBatch,
	})
	if err != nil {
		return 0, err
	}
	n := 0
	for _, tx := range txs {
		applied, err := r.Resolver.ResolvePayout(ctx, tx.ID, ledger.Failed())
		if err != nil {
			return n, err
		}
		if applied {
			n++
		}
	}
	metrics.RecordReconciled("expire", n)
	return n, nil
}

// Schedule registers the reconciliation jobs on sched, every interval.
func (r *Reconciler) Schedule(ctx context.Context, sched gocron.Scheduler, interval time.Duration) error {
	jobs := map[string]func(context.Context) (int, error){
		"requeue": r.Requeue,
		"expire":  r.Expire,
	}
	for name, run := range jobs {
		name, run := name, run
		_, err := sched.NewJob(
			gocron.DurationJob(interval),
			gocron.NewTask(func() {
				n, err := run(ctx)
				if err != nil {
					logrus.WithFields(logrus.Fields{"job": name, "error": err.Error()}).Error("[Reconciler] job failed")
					return
				}
				if n > 0 {
					logrus.WithFields(logrus.Fields{"job": name, "count": n}).Info("[Reconciler] withdrawals reconciled")
				}
			}),
			gocron.WithName("reconcile-"+name),
			gocron.WithSingletonMode(gocron.LimitModeReschedule),
		)
		if err != nil {
			return err
		}
	}
	return nil
}
