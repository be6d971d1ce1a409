package ledger

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"reward_ledger/internal/domain"
	"reward_ledger/internal/store"
)

const referralCodeAttempts = 8

// EnsureUser returns the user owning walletAddress, creating it with a zero
// balance and a fresh referral code on first contact. Referral code
// collisions are retried with a new code.
func (s *Service) EnsureUser(ctx context.Context, walletAddress string) (*domain.User, error) {
	user, err := s.store.FindUserByWallet(ctx, walletAddress)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return nil, err
	}

	for attempt := 0; attempt < referralCodeAttempts; attempt++ {
		user = &domain.User{
			WalletAddress: walletAddress,
			Balance:       decimal.Zero,
			TotalEarned:   decimal.Zero,
			ReferralCode:  s.newCode(),
			CreatedAt:     s.stamp(),
		}
		err = s.store.CreateUser(ctx, user)
		if err == nil {
			logrus.WithFields(logrus.Fields{
				"user_id":        user.ID,
				"wallet_address": walletAddress,
				"referral_code":  user.ReferralCode,
			}).Info("User created")
			return user, nil
		}
		if !errors.Is(err, store.ErrDuplicate) {
			return nil, err
		}
		// the duplicate may be the wallet itself, created by a concurrent request
		if existing, findErr := s.store.FindUserByWallet(ctx, walletAddress); findErr == nil {
			return existing, nil
		}
	}
	return nil, fmt.Errorf("no unique referral code after %d attempts: %w", referralCodeAttempts, err)
}

func newReferralCode() string {
	return strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
}
