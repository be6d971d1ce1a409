package ledger

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"reward_ledger/internal/domain"
)

func TestListTasksReportsEligibility(t *testing.T) {
	svc, st, clock := newTestService(t)
	st.PutTask(domain.Task{ID: 1, Name: "hourly", Reward: d("0.5"), CooldownSeconds: 3600, Enabled: true})
	st.PutTask(domain.Task{ID: 2, Name: "daily", Reward: d("2"), CooldownSeconds: 86400, Enabled: true})
	st.PutTask(domain.Task{ID: 3, Name: "retired", Reward: d("9"), Enabled: false})
	user := createUser(t, st, "DUser30", "0")
	ctx := context.Background()

	_, err := svc.Claim(ctx, user.ID, 1, "")
	require.NoError(t, err)
	claimedAt := clock.Now()
	clock.Advance(10 * time.Minute)

	views, err := svc.ListTasks(ctx, user.ID)
	require.NoError(t, err)
	require.Len(t, views, 2)

	assert.Equal(t, "hourly", views[0].Name)
	assert.False(t, views[0].CanClaim)
	assert.Equal(t, int64(3000), views[0].RemainingSeconds)
	require.NotNil(t, views[0].LastCompletedAt)
	assert.True(t, views[0].LastCompletedAt.Equal(claimedAt))

	assert.Equal(t, "daily", views[1].Name)
	assert.True(t, views[1].CanClaim)
	assert.Nil(t, views[1].LastCompletedAt)
}

func TestListTransactionsClampsLimit(t *testing.T) {
	svc, st, clock := newTestService(t)
	st.PutTask(domain.Task{ID: 1, Reward: d("1"), Enabled: true})
	user := createUser(t, st, "DUser31", "0")
	ctx := context.Background()

	for i := 0; i < MaxTransactionLimit+5; i++ {
		clock.Advance(time.Second)
		_, err := svc.Claim(ctx, user.ID, 1, "")
		require.NoError(t, err)
	}

	txs, err := svc.ListTransactions(ctx, user.ID, 0)
	require.NoError(t, err)
	assert.Len(t, txs, DefaultTransactionLimit)
	txs, err = svc.ListTransactions(ctx, user.ID, 1000)
	require.NoError(t, err)
	assert.Len(t, txs, MaxTransactionLimit)
	assert.True(t, txs[0].CreatedAt.After(txs[1].CreatedAt))
}

func TestBalanceUnknownUser(t *testing.T) {
	svc, _, _ := newTestService(t)
	_, err := svc.Balance(context.Background(), 7)
	assert.ErrorIs(t, err, domain.ErrUserNotFound)
}
