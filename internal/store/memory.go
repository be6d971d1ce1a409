package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"reward_ledger/internal/domain"
)

// MemoryStore is an in-process Store. A single mutex serializes every unit
// of work and a failed unit restores the snapshot taken when it began.
type MemoryStore struct {
	mu sync.Mutex

	users        map[uint]domain.User
	tasks        map[uint]domain.Task
	completions  []domain.TaskCompletion
	transactions map[uint]domain.Transaction
	seq          sequences

	nextErr map[string]error // op -> error returned once
}

type sequences struct {
	user, completion, transaction uint
}

// NewMemoryStore returns an empty store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:        make(map[uint]domain.User),
		tasks:        make(map[uint]domain.Task),
		transactions: make(map[uint]domain.Transaction),
		nextErr:      make(map[string]error),
	}
}

// PutTask inserts or replaces a task definition.
func (s *MemoryStore) PutTask(task domain.Task) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tasks[task.ID] = task
}

// FailNext makes the next call of op return err. Ops are named after the
// Store and Unit methods, e.g. "InsertTransaction".
func (s *MemoryStore) FailNext(op string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextErr[op] = err
}

func (s *MemoryStore) takeErr(op string) error {
	if err, ok := s.nextErr[op]; ok {
		delete(s.nextErr, op)
		return err
	}
	return nil
}

// Completions returns a copy of every completion row.
func (s *MemoryStore) Completions() []domain.TaskCompletion {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.TaskCompletion(nil), s.completions...)
}

func (s *MemoryStore) WithinUnit(ctx context.Context, fn func(Unit) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return err
	}
	snap := s.snapshot()
	if err := s.takeErr("WithinUnit"); err != nil {
		return err
	}
	if err := fn(&memoryUnit{s: s}); err != nil {
		s.restore(snap)
		return err
	}
	if err := s.takeErr("Commit"); err != nil {
		s.restore(snap)
		return err
	}
	return nil
}

type memorySnapshot struct {
	users        map[uint]domain.User
	completions  []domain.TaskCompletion
	transactions map[uint]domain.Transaction
	seq          sequences
}

func (s *MemoryStore) snapshot() memorySnapshot {
	snap := memorySnapshot{
		users:        make(map[uint]domain.User, len(s.users)),
		completions:  append([]domain.TaskCompletion(nil), s.completions...),
		transactions: make(map[uint]domain.Transaction, len(s.transactions)),
		seq:          s.seq,
	}
	for k, v := range s.users {
		snap.users[k] = v
	}
	for k, v := range s.transactions {
		snap.transactions[k] = v
	}
	return snap
}

func (s *MemoryStore) restore(snap memorySnapshot) {
	s.users = snap.users
	s.completions = snap.completions
	s.transactions = snap.transactions
	s.seq = snap.seq
}

func (s *MemoryStore) GetUser(_ context.Context, id uint) (*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.takeErr("GetUser"); err != nil {
		return nil, err
	}
	user, ok := s.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &user, nil
}

func (s *MemoryStore) FindUserByWallet(_ context.Context, address string) (*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.takeErr("FindUserByWallet"); err != nil {
		return nil, err
	}
	for _, user := range s.users {
		if user.WalletAddress == address {
			u := user
			return &u, nil
		}
	}
	return nil, ErrNotFound
}

func (s *MemoryStore) CreateUser(_ context.Context, user *domain.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.takeErr("CreateUser"); err != nil {
		return err
	}
	for _, existing := range s.users {
		if existing.WalletAddress == user.WalletAddress || existing.ReferralCode == user.ReferralCode {
			return ErrDuplicate
		}
	}
	s.seq.user++
	user.ID = s.seq.user
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now()
	}
	user.UpdatedAt = user.CreatedAt
	s.users[user.ID] = *user
	return nil
}

func (s *MemoryStore) ListEnabledTasks(_ context.Context) ([]domain.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.takeErr("ListEnabledTasks"); err != nil {
		return nil, err
	}
	var tasks []domain.Task
	for _, t := range s.tasks {
		if t.Enabled {
			tasks = append(tasks, t)
		}
	}
	sort.Slice(tasks, func(i, j int) bool { return tasks[i].ID < tasks[j].ID })
	return tasks, nil
}

func (s *MemoryStore) LatestCompletions(_ context.Context, userID uint) (map[uint]time.Time, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.takeErr("LatestCompletions"); err != nil {
		return nil, err
	}
	out := make(map[uint]time.Time)
	for _, c := range s.completions {
		if c.UserID != userID {
			continue
		}
		if last, ok := out[c.TaskID]; !ok || c.CompletedAt.After(last) {
			out[c.TaskID] = c.CompletedAt
		}
	}
	return out, nil
}

func (s *MemoryStore) GetTransaction(_ context.Context, id uint) (*domain.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.takeErr("GetTransaction"); err != nil {
		return nil, err
	}
	t, ok := s.transactions[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &t, nil
}

func (s *MemoryStore) ListTransactions(_ context.Context, userID uint, limit int) ([]domain.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.takeErr("ListTransactions"); err != nil {
		return nil, err
	}
	var txs []domain.Transaction
	for _, t := range s.transactions {
		if t.UserID == userID {
			txs = append(txs, t)
		}
	}
	sort.Slice(txs, func(i, j int) bool {
		if txs[i].CreatedAt.Equal(txs[j].CreatedAt) {
			return txs[i].ID > txs[j].ID
		}
		return txs[i].CreatedAt.After(txs[j].CreatedAt)
	})
	if limit > 0 && len(txs) > limit {
		txs = txs[:limit]
	}
	return txs, nil
}

func (s *MemoryStore) ListPendingWithdrawals(_ context.Context, q PendingQuery) ([]domain.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.takeErr("ListPendingWithdrawals"); err != nil {
		return nil, err
	}
	var txs []domain.Transaction
	for _, t := range s.transactions {
		if t.Type != domain.TransactionWithdraw || !t.IsPending() || !t.CreatedAt.Before(q.CreatedBefore) {
			continue
		}
		if q.UndispatchedOnly && t.DispatchedAt != nil {
			continue
		}
		txs = append(txs, t)
	}
	sort.Slice(txs, func(i, j int) bool {
		if txs[i].CreatedAt.Equal(txs[j].CreatedAt) {
			return txs[i].ID < txs[j].ID
		}
		return txs[i].CreatedAt.Before(txs[j].CreatedAt)
	})
	if q.Limit > 0 && len(txs) > q.Limit {
		txs = txs[:q.Limit]
	}
	return txs, nil
}

func (s *MemoryStore) ClaimDispatch(_ context.Context, id uint, at time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.takeErr("ClaimDispatch"); err != nil {
		return false, err
	}
	t, ok := s.transactions[id]
	if !ok || t.Type != domain.TransactionWithdraw || !t.IsPending() || t.DispatchedAt != nil {
		return false, nil
	}
	t.DispatchedAt = &at
	s.transactions[id] = t
	return true, nil
}

// memoryUnit runs with the store mutex already held.
type memoryUnit struct {
	s *MemoryStore
}

func (u *memoryUnit) LockUser(id uint) (*domain.User, error) {
	if err := u.s.takeErr("LockUser"); err != nil {
		return nil, err
	}
	user, ok := u.s.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &user, nil
}

func (u *memoryUnit) GetTask(id uint) (*domain.Task, error) {
	if err := u.s.takeErr("GetTask"); err != nil {
		return nil, err
	}
	task, ok := u.s.tasks[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &task, nil
}

func (u *memoryUnit) LatestCompletion(userID, taskID uint) (*time.Time, error) {
	if err := u.s.takeErr("LatestCompletion"); err != nil {
		return nil, err
	}
	var latest *time.Time
	for _, c := range u.s.completions {
		if c.UserID != userID || c.TaskID != taskID {
			continue
		}
		if latest == nil || c.CompletedAt.After(*latest) {
			at := c.CompletedAt
			latest = &at
		}
	}
	return latest, nil
}

func (u *memoryUnit) InsertCompletion(c *domain.TaskCompletion) error {
	if err := u.s.takeErr("InsertCompletion"); err != nil {
		return err
	}
	u.s.seq.completion++
	c.ID = u.s.seq.completion
	if c.CompletedAt.IsZero() {
		c.CompletedAt = time.Now()
	}
	u.s.completions = append(u.s.completions, *c)
	return nil
}

func (u *memoryUnit) CreditEarning(userID uint, amount decimal.Decimal) error {
	if err := u.s.takeErr("CreditEarning"); err != nil {
		return err
	}
	user, ok := u.s.users[userID]
	if !ok {
		return ErrNotFound
	}
	user.Balance = user.Balance.Add(amount)
	user.TotalEarned = user.TotalEarned.Add(amount)
	u.s.users[userID] = user
	return nil
}

func (u *memoryUnit) DebitBalance(userID uint, amount decimal.Decimal) (bool, error) {
	if err := u.s.takeErr("DebitBalance"); err != nil {
		return false, err
	}
	user, ok := u.s.users[userID]
	if !ok {
		return false, ErrNotFound
	}
	if user.Balance.LessThan(amount) {
		return false, nil
	}
	user.Balance = user.Balance.Sub(amount)
	u.s.users[userID] = user
	return true, nil
}

func (u *memoryUnit) RefundBalance(userID uint, amount decimal.Decimal) error {
	if err := u.s.takeErr("RefundBalance"); err != nil {
		return err
	}
	user, ok := u.s.users[userID]
	if !ok {
		return ErrNotFound
	}
	user.Balance = user.Balance.Add(amount)
	u.s.users[userID] = user
	return nil
}

func (u *memoryUnit) InsertTransaction(t *domain.Transaction) error {
	if err := u.s.takeErr("InsertTransaction"); err != nil {
		return err
	}
	u.s.seq.transaction++
	t.ID = u.s.seq.transaction
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now()
	}
	u.s.transactions[t.ID] = *t
	return nil
}

func (u *memoryUnit) LockTransaction(id uint) (*domain.Transaction, error) {
	if err := u.s.takeErr("LockTransaction"); err != nil {
		return nil, err
	}
	t, ok := u.s.transactions[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &t, nil
}

func (u *memoryUnit) ResolveTransaction(id uint, status domain.TransactionStatus, reference *string) (bool, error) {
	if err := u.s.takeErr("ResolveTransaction"); err != nil {
		return false, err
	}
	t, ok := u.s.transactions[id]
	if !ok || !t.IsPending() {
		return false, nil
	}
	t.Status = status
	t.TxReference = reference
	u.s.transactions[id] = t
	return true, nil
}
