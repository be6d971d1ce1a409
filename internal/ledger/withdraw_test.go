package ledger

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"reward_ledger/internal/domain"
)

func TestWithdrawalRefundScenario(t *testing.T) {
	q := &chanQueue{ids: make(chan uint, 1)}
	svc, st, _ := newTestService(t, WithPayoutQueue(q))
	user := createUser(t, st, "DUser10", "10")
	ctx := context.Background()

	res, err := svc.RequestWithdrawal(ctx, user.ID, d("5"))
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPending, res.Status)
	requireDecimal(t, "5", res.Amount)
	requireDecimal(t, "0.1", res.Fee)
	requireDecimal(t, "4.9", balanceOf(t, st, user.ID))

	select {
	case id := <-q.ids:
		assert.Equal(t, res.TransactionID, id)
	case <-time.After(time.Second):
		t.Fatal("withdrawal was not enqueued")
	}

	applied, err := svc.ResolvePayout(ctx, res.TransactionID, Failed())
	require.NoError(t, err)
	assert.True(t, applied)
	requireDecimal(t, "10", balanceOf(t, st, user.ID))

	tx, err := st.GetTransaction(ctx, res.TransactionID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusFailed, tx.Status)
	assert.Nil(t, tx.TxReference)
}

func TestWithdrawalSuccessRecordsReference(t *testing.T) {
	svc, st, _ := newTestService(t)
	user := createUser(t, st, "DUser11", "10")
	ctx := context.Background()

	res, err := svc.RequestWithdrawal(ctx, user.ID, d("5"))
	require.NoError(t, err)

	applied, err := svc.ResolvePayout(ctx, res.TransactionID, Succeeded("txid-abc"))
	require.NoError(t, err)
	assert.True(t, applied)

	tx, _ := st.GetTransaction(ctx, res.TransactionID)
	assert.Equal(t, domain.StatusCompleted, tx.Status)
	require.NotNil(t, tx.TxReference)
	assert.Equal(t, "txid-abc", *tx.TxReference)
	requireDecimal(t, "4.9", balanceOf(t, st, user.ID))
}

func TestDuplicateResolutionIsNoop(t *testing.T) {
	svc, st, _ := newTestService(t)
	user := createUser(t, st, "DUser12", "20")
	ctx := context.Background()

	first, err := svc.RequestWithdrawal(ctx, user.ID, d("5"))
	require.NoError(t, err)
	second, err := svc.RequestWithdrawal(ctx, user.ID, d("5"))
	require.NoError(t, err)
	requireDecimal(t, "9.8", balanceOf(t, st, user.ID))

	for i := 0; i < 2; i++ {
		applied, err := svc.ResolvePayout(ctx, first.TransactionID, Failed())
		require.NoError(t, err)
		assert.Equal(t, i == 0, applied)
	}
	requireDecimal(t, "14.9", balanceOf(t, st, user.ID))

	applied, err := svc.ResolvePayout(ctx, second.TransactionID, Succeeded("ref-1"))
	require.NoError(t, err)
	assert.True(t, applied)
	applied, err = svc.ResolvePayout(ctx, second.TransactionID, Failed())
	require.NoError(t, err)
	assert.False(t, applied)
	requireDecimal(t, "14.9", balanceOf(t, st, user.ID))

	tx, _ := st.GetTransaction(ctx, second.TransactionID)
	assert.Equal(t, domain.StatusCompleted, tx.Status)
}

func TestConcurrentDuplicateFailuresRefundOnce(t *testing.T) {
	svc, st, _ := newTestService(t)
	user := createUser(t, st, "DUser13", "10")
	res, err := svc.RequestWithdrawal(context.Background(), user.ID, d("5"))
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = svc.ResolvePayout(context.Background(), res.TransactionID, Failed())
		}()
	}
	wg.Wait()
	requireDecimal(t, "10", balanceOf(t, st, user.ID))
}

func TestWithdrawalInsufficientBalance(t *testing.T) {
	svc, st, _ := newTestService(t)
	user := createUser(t, st, "DUser14", "5.05")

	_, err := svc.RequestWithdrawal(context.Background(), user.ID, d("5"))
	assert.ErrorIs(t, err, domain.ErrInsufficientBalance)
	requireDecimal(t, "5.05", balanceOf(t, st, user.ID))

	txs, _ := svc.ListTransactions(context.Background(), user.ID, 10)
	assert.Empty(t, txs)
}

func TestWithdrawalAmountRange(t *testing.T) {
	svc, st, _ := newTestService(t)
	user := createUser(t, st, "DUser15", "500")
	ctx := context.Background()

	for _, amount := range []string{"4.99", "100.01", "0", "-5"} {
		_, err := svc.RequestWithdrawal(ctx, user.ID, d(amount))
		var rng *domain.AmountOutOfRangeError
		require.ErrorAs(t, err, &rng, amount)
		requireDecimal(t, "5", rng.Min)
		requireDecimal(t, "100", rng.Max)
	}
	requireDecimal(t, "500", balanceOf(t, st, user.ID))

	for _, amount := range []string{"5", "100"} {
		_, err := svc.RequestWithdrawal(ctx, user.ID, d(amount))
		require.NoError(t, err, amount)
	}
	requireDecimal(t, "394.8", balanceOf(t, st, user.ID))
}

func TestConcurrentWithdrawalsCannotDoubleSpend(t *testing.T) {
	svc, st, _ := newTestService(t)
	user := createUser(t, st, "DUser16", "10")

	var wg sync.WaitGroup
	var mu sync.Mutex
	succeeded := 0
	for i := 0; i < 6; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := svc.RequestWithdrawal(context.Background(), user.ID, d("5")); err == nil {
				mu.Lock()
				succeeded++
				mu.Unlock()
			} else {
				assert.ErrorIs(t, err, domain.ErrInsufficientBalance)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, succeeded)
	requireDecimal(t, "4.9", balanceOf(t, st, user.ID))
}

func TestResolvePayoutValidation(t *testing.T) {
	svc, st, _ := newTestService(t)
	st.PutTask(domain.Task{ID: 1, Reward: d("1"), Enabled: true})
	user := createUser(t, st, "DUser17", "10")
	ctx := context.Background()

	_, err := svc.ResolvePayout(ctx, 999, Failed())
	assert.ErrorIs(t, err, domain.ErrTransactionNotFound)

	claim, err := svc.Claim(ctx, user.ID, 1, "")
	require.NoError(t, err)
	_, err = svc.ResolvePayout(ctx, claim.TransactionID, Failed())
	assert.ErrorIs(t, err, domain.ErrTransactionNotFound)

	res, err := svc.RequestWithdrawal(ctx, user.ID, d("5"))
	require.NoError(t, err)
	_, err = svc.ResolvePayout(ctx, res.TransactionID, Succeeded(""))
	assert.ErrorIs(t, err, ErrMissingReference)
}

func TestWithdrawalRejectsExtremeExponents(t *testing.T) {
	svc, st, _ := newTestService(t)
	user := createUser(t, st, "DUser18", "50")
	ctx := context.Background()

	cases := []struct {
		amount     string
		outOfRange bool
	}{
		{"1e-200000000", false},
		{"7e-19", false},
		{"1e200000000", true},
		{"0e99", true},
	}
	for _, tc := range cases {
		done := make(chan error, 1)
		go func() {
			_, err := svc.RequestWithdrawal(ctx, user.ID, d(tc.amount))
			done <- err
		}()
		select {
		case err := <-done:
			if tc.outOfRange {
				var rng *domain.AmountOutOfRangeError
				assert.ErrorAs(t, err, &rng, tc.amount)
			} else {
				assert.ErrorIs(t, err, domain.ErrInvalidAmount, tc.amount)
			}
		case <-time.After(2 * time.Second):
			t.Fatalf("withdrawal of %s did not return", tc.amount)
		}
	}
	requireDecimal(t, "50", balanceOf(t, st, user.ID))
}

func TestWithdrawalRejectsSubUnitPrecision(t *testing.T) {
	svc, st, _ := newTestService(t)
	user := createUser(t, st, "DUser19", "10")
	ctx := context.Background()

	_, err := svc.RequestWithdrawal(ctx, user.ID, d("5.000000005"))
	assert.ErrorIs(t, err, domain.ErrInvalidAmount)
	requireDecimal(t, "10", balanceOf(t, st, user.ID))

	// trailing zeros past the eighth place still denote a storable amount
	res, err := svc.RequestWithdrawal(ctx, user.ID, d("5.00000001000"))
	require.NoError(t, err)
	requireDecimal(t, "5.00000001", res.Amount)
	requireDecimal(t, "4.89999999", balanceOf(t, st, user.ID))

	applied, err := svc.ResolvePayout(ctx, res.TransactionID, Failed())
	require.NoError(t, err)
	assert.True(t, applied)
	requireDecimal(t, "10", balanceOf(t, st, user.ID))
}
