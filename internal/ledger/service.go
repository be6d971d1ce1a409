// Package ledger applies task claims and withdrawals to the ledger store.
// Every balance mutation runs inside one store unit of work that first
// takes the user's row lock, so all mutations of one user are serialized.
package ledger

import (
	"context"
	"time"

	"reward_ledger/internal/config"
	"reward_ledger/internal/store"
)

// PayoutQueue receives withdrawals that are ready to be paid out.
type PayoutQueue interface {
	Enqueue(ctx context.Context, transactionID uint) error
}

// Service owns the claim, withdrawal and provisioning operations.
type Service struct {
	store   store.Store
	limits  config.LedgerConfig
	queue   PayoutQueue
	now     func() time.Time
	backoff time.Duration
	newCode func() string
}

// Option customises a Service
type Option func(*Service)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithPayoutQueue sets where accepted withdrawals are enqueued.
func WithPayoutQueue(q PayoutQueue) Option {
	return func(s *Service) { s.queue = q }
}

// WithRetryBackoff sets the base delay between conflicting attempts.
func WithRetryBackoff(d time.Duration) Option {
	return func(s *Service) { s.backoff = d }
}

// WithReferralCodes replaces the referral code generator.
func WithReferralCodes(gen func() string) Option {
	return func(s *Service) { s.newCode = gen }
}

// New builds a Service on top of st
func New(st store.Store, limits config.LedgerConfig, opts ...Option) *Service {
	if limits.RetryAttempts <= 0 {
		limits.RetryAttempts = 1
	}
	s := &Service{
		store:   st,
		limits:  limits,
		now:     time.Now,
		backoff: 20 * time.Millisecond,
		newCode: newReferralCode,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Limits returns the withdrawal limits in force.
func (s *Service) Limits() config.LedgerConfig {
	return s.limits
}

// stamp reads the clock at the millisecond precision timestamps are stored
// with, so a time read back from the store equals the one written.
func (s *Service) stamp() time.Time {
	return s.now().Truncate(time.Millisecond)
}
