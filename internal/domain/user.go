package domain

import (
	"time" // Timestamps

	"github.com/shopspring/decimal" // Fixed-point money
)

// User Model
type User struct {
	ID            uint            `gorm:"primaryKey" json:"id"`                                     // Primary key
	WalletAddress string          `gorm:"size:64;uniqueIndex;not null" json:"walletAddress"`        // Payout address, immutable
	Balance       decimal.Decimal `gorm:"type:decimal(20,8);not null;default:0" json:"balance"`     // Spendable balance
	TotalEarned   decimal.Decimal `gorm:"type:decimal(20,8);not null;default:0" json:"totalEarned"` // Lifetime earnings
	ReferralCode  string          `gorm:"size:16;uniqueIndex;not null" json:"referralCode"`         // Unique referral code
	CreatedAt     time.Time       `json:"createdAt"`                                                // Creation time
	UpdatedAt     time.Time       `json:"-"`                                                        // Last mutation time
}
