package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"reward_ledger/internal/domain"
)

// MySQL server error numbers the store translates.
const (
	mysqlDuplicateEntry  = 1062
	mysqlLockWaitTimeout = 1205
	mysqlDeadlock        = 1213
)

// GormStore implements Store on MySQL through gorm. Row locks are taken with
// SELECT ... FOR UPDATE under InnoDB's default REPEATABLE READ isolation.
type GormStore struct {
	db *gorm.DB
}

// NewGormStore wraps an open gorm connection
func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

func (s *GormStore) WithinUnit(ctx context.Context, fn func(Unit) error) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&gormUnit{tx: tx})
	})
	return translate(err)
}

func (s *GormStore) GetUser(ctx context.Context, id uint) (*domain.User, error) {
	var user domain.User
	if err := s.db.WithContext(ctx).First(&user, id).Error; err != nil {
		return nil, translate(err)
	}
	return &user, nil
}

func (s *GormStore) FindUserByWallet(ctx context.Context, address string) (*domain.User, error) {
	var user domain.User
	if err := s.db.WithContext(ctx).Where("wallet_address = ?", address).First(&user).Error; err != nil {
		return nil, translate(err)
	}
	return &user, nil
}

func (s *GormStore) CreateUser(ctx context.Context, user *domain.User) error {
	return translate(s.db.WithContext(ctx).Create(user).Error)
}

func (s *GormStore) ListEnabledTasks(ctx context.Context) ([]domain.Task, error) {
	var tasks []domain.Task
	if err := s.db.WithContext(ctx).Where("enabled = ?", true).Order("id").Find(&tasks).Error; err != nil {
		return nil, translate(err)
	}
	return tasks, nil
}

func (s *GormStore) LatestCompletions(ctx context.Context, userID uint) (map[uint]time.Time, error) {
	var rows []struct {
		TaskID uint
		Last   time.Time
	}
	err := s.db.WithContext(ctx).Model(&domain.TaskCompletion{}).
		Select("task_id, MAX(completed_at) AS last").
		Where("user_id = ?", userID).
		Group("task_id").
		Scan(&rows).Error
	if err != nil {
		return nil, translate(err)
	}
	out := make(map[uint]time.Time, len(rows))
	for _, r := range rows {
		out[r.TaskID] = r.Last
	}
	return out, nil
}

func (s *GormStore) GetTransaction(ctx context.Context, id uint) (*domain.Transaction, error) {
	var t domain.Transaction
	if err := s.db.WithContext(ctx).First(&t, id).Error; err != nil {
		return nil, translate(err)
	}
	return &t, nil
}

func (s *GormStore) ListTransactions(ctx context.Context, userID uint, limit int) ([]domain.Transaction, error) {
	var txs []domain.Transaction
	err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at desc").
		Order("id desc").
		Limit(limit).
		Find(&txs).Error
	if err != nil {
		return nil, translate(err)
	}
	return txs, nil
}

func (s *GormStore) ListPendingWithdrawals(ctx context.Context, q PendingQuery) ([]domain.Transaction, error) {
	query := s.db.WithContext(ctx).
		Where("type = ? AND status = ? AND created_at < ?", domain.TransactionWithdraw, domain.StatusPending, q.CreatedBefore)
	if q.UndispatchedOnly {
		query = query.Where("dispatched_at IS NULL")
	}
	if q.Limit > 0 {
		query = query.Limit(q.Limit)
	}
	var txs []domain.Transaction
	if err := query.Order("created_at asc").Find(&txs).Error; err != nil {
		return nil, translate(err)
	}
	return txs, nil
}

func (s *GormStore) ClaimDispatch(ctx context.Context, id uint, at time.Time) (bool, error) {
	res := s.db.WithContext(ctx).Model(&domain.Transaction{}).
		Where("id = ? AND type = ? AND status = ? AND dispatched_at IS NULL", id, domain.TransactionWithdraw, domain.StatusPending).
		Update("dispatched_at", at)
	if res.Error != nil {
		return false, translate(res.Error)
	}
	return res.RowsAffected == 1, nil
}

type gormUnit struct {
	tx *gorm.DB
}

func (u *gormUnit) LockUser(id uint) (*domain.User, error) {
	var user domain.User
	if err := u.tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&user, id).Error; err != nil {
		return nil, translate(err)
	}
	return &user, nil
}

func (u *gormUnit) GetTask(id uint) (*domain.Task, error) {
	var task domain.Task
	if err := u.tx.First(&task, id).Error; err != nil {
		return nil, translate(err)
	}
	return &task, nil
}

func (u *gormUnit) LatestCompletion(userID, taskID uint) (*time.Time, error) {
	var c domain.TaskCompletion
	res := u.tx.Where("user_id = ? AND task_id = ?", userID, taskID).
		Order("completed_at desc").
		Limit(1).
		Find(&c)
	if res.Error != nil {
		return nil, translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, nil
	}
	return &c.CompletedAt, nil
}

func (u *gormUnit) InsertCompletion(c *domain.TaskCompletion) error {
	return translate(u.tx.Create(c).Error)
}

func (u *gormUnit) CreditEarning(userID uint, amount decimal.Decimal) error {
	res := u.tx.Model(&domain.User{}).Where("id = ?", userID).Updates(map[string]any{
		"balance":      gorm.Expr("balance + ?", amount),
		"total_earned": gorm.Expr("total_earned + ?", amount),
	})
	return affectedOne(res)
}

func (u *gormUnit) DebitBalance(userID uint, amount decimal.Decimal) (bool, error) {
	res := u.tx.Model(&domain.User{}).
		Where("id = ? AND balance >= ?", userID, amount).
		Update("balance", gorm.Expr("balance - ?", amount))
	if res.Error != nil {
		return false, translate(res.Error)
	}
	return res.RowsAffected == 1, nil
}

func (u *gormUnit) RefundBalance(userID uint, amount decimal.Decimal) error {
	res := u.tx.Model(&domain.User{}).Where("id = ?", userID).
		Update("balance", gorm.Expr("balance + ?", amount))
	return affectedOne(res)
}

func (u *gormUnit) InsertTransaction(t *domain.Transaction) error {
	return translate(u.tx.Create(t).Error)
}

func (u *gormUnit) LockTransaction(id uint) (*domain.Transaction, error) {
	var t domain.Transaction
	if err := u.tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&t, id).Error; err != nil {
		return nil, translate(err)
	}
	return &t, nil
}

func (u *gormUnit) ResolveTransaction(id uint, status domain.TransactionStatus, reference *string) (bool, error) {
	res := u.tx.Model(&domain.Transaction{}).
		Where("id = ? AND status = ?", id, domain.StatusPending).
		Updates(map[string]any{"status": status, "tx_reference": reference})
	if res.Error != nil {
		return false, translate(res.Error)
	}
	return res.RowsAffected == 1, nil
}

func affectedOne(res *gorm.DB) error {
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// translate maps driver errors onto the store sentinels and passes every
// other error through untouched.
func translate(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		switch myErr.Number {
		case mysqlDeadlock, mysqlLockWaitTimeout:
			return fmt.Errorf("%w: %v", ErrConflict, err)
		case mysqlDuplicateEntry:
			return fmt.Errorf("%w: %v", ErrDuplicate, err)
		}
	}
	return err
}
