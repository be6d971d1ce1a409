package ledger

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"reward_ledger/internal/domain"
	"reward_ledger/internal/store"
)

func TestClaimCooldownScenario(t *testing.T) {
	svc, st, clock := newTestService(t)
	st.PutTask(domain.Task{ID: 1, Name: "faucet", Reward: d("0.5"), CooldownSeconds: 300, Enabled: true})
	user := createUser(t, st, "DUser1", "0")
	ctx := context.Background()

	res, err := svc.Claim(ctx, user.ID, 1, "10.0.0.1")
	require.NoError(t, err)
	requireDecimal(t, "0.5", res.Reward)
	requireDecimal(t, "0.5", res.NewBalance)

	clock.Advance(time.Second)
	_, err = svc.Claim(ctx, user.ID, 1, "10.0.0.1")
	var cd *domain.CooldownError
	require.ErrorAs(t, err, &cd)
	assert.Equal(t, int64(299), cd.RemainingSeconds)
	requireDecimal(t, "0.5", balanceOf(t, st, user.ID))
	assert.Len(t, st.Completions(), 1)

	clock.Advance(299 * time.Second)
	res, err = svc.Claim(ctx, user.ID, 1, "10.0.0.1")
	require.NoError(t, err)
	requireDecimal(t, "1", res.NewBalance)

	got, _ := st.GetUser(ctx, user.ID)
	requireDecimal(t, "1", got.TotalEarned)
	completions := st.Completions()
	require.Len(t, completions, 2)
	assert.Equal(t, "10.0.0.1", completions[1].IPAddress)

	txs, err := svc.ListTransactions(ctx, user.ID, 0)
	require.NoError(t, err)
	require.Len(t, txs, 2)
	for _, tx := range txs {
		assert.Equal(t, domain.TransactionEarn, tx.Type)
		assert.Equal(t, domain.StatusCompleted, tx.Status)
		require.NotNil(t, tx.TaskID)
		assert.Equal(t, uint(1), *tx.TaskID)
	}
}

func TestClaimCooldownBoundaryWithSubMillisecondClock(t *testing.T) {
	svc, st, clock := newTestService(t)
	st.PutTask(domain.Task{ID: 1, Name: "faucet", Reward: d("0.5"), CooldownSeconds: 60, Enabled: true})
	user := createUser(t, st, "DUser9", "0")
	ctx := context.Background()

	clock.Advance(600 * time.Microsecond)
	_, err := svc.Claim(ctx, user.ID, 1, "")
	require.NoError(t, err)

	clock.Advance(60 * time.Second)
	_, err = svc.Claim(ctx, user.ID, 1, "")
	require.NoError(t, err)

	completions := st.Completions()
	require.Len(t, completions, 2)
	for _, c := range completions {
		assert.Zero(t, c.CompletedAt.Nanosecond()%int(time.Millisecond), c.CompletedAt)
	}
	assert.Equal(t, 60*time.Second, completions[1].CompletedAt.Sub(completions[0].CompletedAt))

	txs, err := svc.ListTransactions(ctx, user.ID, 0)
	require.NoError(t, err)
	for _, tx := range txs {
		assert.Zero(t, tx.CreatedAt.Nanosecond()%int(time.Millisecond), tx.CreatedAt)
	}
}

func TestClaimUnknownOrDisabledTask(t *testing.T) {
	svc, st, _ := newTestService(t)
	st.PutTask(domain.Task{ID: 2, Name: "off", Reward: d("1"), Enabled: false})
	user := createUser(t, st, "DUser2", "0")

	_, err := svc.Claim(context.Background(), user.ID, 2, "")
	assert.ErrorIs(t, err, domain.ErrTaskNotFound)
	_, err = svc.Claim(context.Background(), user.ID, 99, "")
	assert.ErrorIs(t, err, domain.ErrTaskNotFound)
	assert.Empty(t, st.Completions())
}

func TestClaimUnknownUser(t *testing.T) {
	svc, st, _ := newTestService(t)
	st.PutTask(domain.Task{ID: 1, Reward: d("1"), Enabled: true})

	_, err := svc.Claim(context.Background(), 404, 1, "")
	assert.ErrorIs(t, err, domain.ErrUserNotFound)
}

func TestClaimRollsBackOnWriteFailure(t *testing.T) {
	svc, st, _ := newTestService(t)
	st.PutTask(domain.Task{ID: 1, Reward: d("0.5"), CooldownSeconds: 60, Enabled: true})
	user := createUser(t, st, "DUser3", "2")
	boom := errors.New("disk full")
	st.FailNext("InsertTransaction", boom)

	_, err := svc.Claim(context.Background(), user.ID, 1, "")
	require.ErrorIs(t, err, boom)

	requireDecimal(t, "2", balanceOf(t, st, user.ID))
	assert.Empty(t, st.Completions())

	// the failed attempt must not start a cooldown
	_, err = svc.Claim(context.Background(), user.ID, 1, "")
	require.NoError(t, err)
}

func TestClaimRetriesConflicts(t *testing.T) {
	mem := store.NewMemoryStore()
	mem.PutTask(domain.Task{ID: 1, Reward: d("1"), Enabled: true})
	user := createUser(t, mem, "DUser4", "0")
	cs := &conflictStore{Store: mem, n: 2}
	svc := New(cs, testLimits(), WithRetryBackoff(time.Millisecond))

	res, err := svc.Claim(context.Background(), user.ID, 1, "")
	require.NoError(t, err)
	requireDecimal(t, "1", res.NewBalance)
	assert.Equal(t, 3, cs.attempt)
}

func TestClaimSurfacesTransientAfterRetries(t *testing.T) {
	mem := store.NewMemoryStore()
	mem.PutTask(domain.Task{ID: 1, Reward: d("1"), Enabled: true})
	user := createUser(t, mem, "DUser5", "0")
	cs := &conflictStore{Store: mem, n: 10}
	svc := New(cs, testLimits(), WithRetryBackoff(time.Millisecond))

	_, err := svc.Claim(context.Background(), user.ID, 1, "")
	assert.ErrorIs(t, err, domain.ErrTransient)
	assert.Equal(t, 3, cs.attempt)
	requireDecimal(t, "0", balanceOf(t, mem, user.ID))
}

func TestConcurrentClaimsOnlyOneWins(t *testing.T) {
	svc, st, _ := newTestService(t)
	st.PutTask(domain.Task{ID: 1, Reward: d("0.5"), CooldownSeconds: 300, Enabled: true})
	user := createUser(t, st, "DUser6", "0")

	const workers = 16
	var wg sync.WaitGroup
	errs := make(chan error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Claim(context.Background(), user.ID, 1, "")
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	succeeded := 0
	for err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		var cd *domain.CooldownError
		assert.ErrorAs(t, err, &cd)
	}
	assert.Equal(t, 1, succeeded)
	requireDecimal(t, "0.5", balanceOf(t, st, user.ID))
	assert.Len(t, st.Completions(), 1)
}
