package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Task is a rewardable action. Rows are managed by operators, the ledger only reads them.
type Task struct {
	ID              uint            `gorm:"primaryKey" json:"id"`
	Name            string          `gorm:"size:128;uniqueIndex;not null" json:"name"`
	Reward          decimal.Decimal `gorm:"type:decimal(20,8);not null" json:"reward"`
	CooldownSeconds int64           `gorm:"not null;default:0" json:"cooldownSeconds"`
	Enabled         bool            `gorm:"not null;default:true;index" json:"enabled"`
}

// TaskCompletion records one successful claim. Append-only.
type TaskCompletion struct {
	ID          uint      `gorm:"primaryKey"`
	UserID      uint      `gorm:"not null;index:idx_completion_user_task,priority:1"`
	TaskID      uint      `gorm:"not null;index:idx_completion_user_task,priority:2"`
	CompletedAt time.Time `gorm:"not null;index:idx_completion_user_task,priority:3"`
	IPAddress   string    `gorm:"size:64"`
}
