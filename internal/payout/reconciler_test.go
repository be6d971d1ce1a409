package payout

import (
	"context"
	"testing"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"reward_ledger/internal/domain"
)

func TestReconcilerRequeuesUndispatched(t *testing.T) {
	f := newFixture(t)
	id := f.withdraw(t, 5)
	r := &Reconciler{
		Store:         f.store,
		Queue:         f.queue,
		Resolver:      f.ledger,
		Now:           func() time.Time { return time.Now().Add(time.Hour) },
		DispatchGrace: 2 * time.Minute,
	}

	n, err := r.Requeue(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	got, ok, err := f.queue.Dequeue(context.Background(), time.Second)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, id, got)

	_, err = f.store.ClaimDispatch(context.Background(), id, time.Now())
	require.NoError(t, err)
	n, err = r.Requeue(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestReconcilerSkipsFreshWithdrawals(t *testing.T) {
	f := newFixture(t)
	f.withdraw(t, 5)
	r := &Reconciler{Store: f.store, Queue: f.queue, Resolver: f.ledger, DispatchGrace: time.Hour}

	n, err := r.Requeue(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestReconcilerExpireDisabledByDefault(t *testing.T) {
	f := newFixture(t)
	id := f.withdraw(t, 5)
	r := &Reconciler{Store: f.store, Queue: f.queue, Resolver: f.ledger, Now: func() time.Time { return time.Now().Add(24 * time.Hour) }}

	n, err := r.Expire(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
	tx, _ := f.store.GetTransaction(context.Background(), id)
	assert.Equal(t, domain.StatusPending, tx.Status)
}

func TestReconcilerExpiresStalePending(t *testing.T) {
	f := newFixture(t)
	id := f.withdraw(t, 5)
	r := &Reconciler{
		Store:          f.store,
		Queue:          f.queue,
		Resolver:       f.ledger,
		Now:            func() time.Time { return time.Now().Add(49 * time.Hour) },
		PendingTimeout: 48 * time.Hour,
	}

	n, err := r.Expire(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	tx, _ := f.store.GetTransaction(context.Background(), id)
	assert.Equal(t, domain.StatusFailed, tx.Status)
	assert.Equal(t, "10", f.balance(t))

	n, err = r.Expire(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestReconcilerSchedulesJobs(t *testing.T) {
	f := newFixture(t)
	sched, err := gocron.NewScheduler()
	require.NoError(t, err)
	defer func() { _ = sched.Shutdown() }()

	r := &Reconciler{Store: f.store, Queue: f.queue, Resolver: f.ledger, DispatchGrace: time.Minute}
	require.NoError(t, r.Schedule(context.Background(), sched, time.Minute))
	assert.Len(t, sched.Jobs(), 2)
}
