package domain

import (
	"time" // Timestamps

	"github.com/shopspring/decimal" // Fixed-point money
)

// TransactionType distinguishes credits from debits
type TransactionType string

// TransactionStatus is the settlement state of a transaction
type TransactionStatus string

const (
	TransactionEarn     TransactionType = "earn"     // Task reward credit
	TransactionWithdraw TransactionType = "withdraw" // External payout debit

	StatusPending   TransactionStatus = "pending"   // Withdrawal reserved, payout outstanding
	StatusCompleted TransactionStatus = "completed" // Settled
	StatusFailed    TransactionStatus = "failed"    // Payout failed, reservation refunded
)

// AmountPlaces is the number of decimal places every stored amount carries
const AmountPlaces = 8

// Transaction Model
type Transaction struct {
	ID           uint              `gorm:"primaryKey" json:"id"`                                                                         // Primary key
	UserID       uint              `gorm:"not null;index:idx_tx_user_created,priority:1" json:"-"`                                       // Owner
	Type         TransactionType   `gorm:"size:16;not null" json:"type"`                                                                 // earn or withdraw
	Amount       decimal.Decimal   `gorm:"type:decimal(20,8);not null" json:"amount"`                                                    // Always positive
	Fee          decimal.Decimal   `gorm:"type:decimal(20,8);not null;default:0" json:"fee"`                                             // Withdrawal fee reserved with the amount
	TaskID       *uint             `json:"taskId,omitempty"`                                                                             // Set for earn only
	Status       TransactionStatus `gorm:"size:16;not null;index:idx_tx_status_created,priority:1" json:"status"`                        // pending, completed, failed
	TxReference  *string           `gorm:"size:128" json:"txReference"`                                                                  // Payout confirmation
	DispatchedAt *time.Time        `json:"-"`                                                                                            // Set once a worker takes the payout
	CreatedAt    time.Time         `gorm:"index:idx_tx_user_created,priority:2;index:idx_tx_status_created,priority:2" json:"createdAt"` // Creation time
}

// Total is the amount reserved from the balance: amount plus fee
func (t Transaction) Total() decimal.Decimal {
	return t.Amount.Add(t.Fee)
}

// IsPending reports whether the transaction can still be resolved
func (t Transaction) IsPending() bool {
	return t.Status == StatusPending
}
