package ledger

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"reward_ledger/internal/domain"
)

// balance == sum(earn) - sum(amount+fee of pending or completed withdrawals)
func TestBalanceMatchesTransactionHistory(t *testing.T) {
	svc, st, clock := newTestService(t)
	st.PutTask(domain.Task{ID: 1, Reward: d("0.75"), CooldownSeconds: 60, Enabled: true})
	st.PutTask(domain.Task{ID: 2, Reward: d("1.3"), CooldownSeconds: 0, Enabled: true})
	user := createUser(t, st, "DUser20", "0")
	ctx := context.Background()

	var withdrawals []uint
	for i := 0; i < 40; i++ {
		clock.Advance(30 * time.Second)
		_, _ = svc.Claim(ctx, user.ID, 1, "")
		_, _ = svc.Claim(ctx, user.ID, 2, "")
		if i%5 == 4 {
			if res, err := svc.RequestWithdrawal(ctx, user.ID, d("5")); err == nil {
				withdrawals = append(withdrawals, res.TransactionID)
			}
		}
	}
	require.NotEmpty(t, withdrawals)
	for i, id := range withdrawals {
		switch i % 3 {
		case 0:
			_, err := svc.ResolvePayout(ctx, id, Failed())
			require.NoError(t, err)
		case 1:
			_, err := svc.ResolvePayout(ctx, id, Succeeded("ref"))
			require.NoError(t, err)
		}
	}

	txs, err := st.ListTransactions(ctx, user.ID, 0)
	require.NoError(t, err)
	expected := decimal.Zero
	for _, tx := range txs {
		switch {
		case tx.Type == domain.TransactionEarn:
			expected = expected.Add(tx.Amount)
		case tx.Status != domain.StatusFailed:
			expected = expected.Sub(tx.Total())
		}
	}
	requireDecimal(t, expected.String(), balanceOf(t, st, user.ID))
	require.False(t, balanceOf(t, st, user.ID).IsNegative())
}
