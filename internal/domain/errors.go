package domain

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

var (
	ErrTaskNotFound        = errors.New("task not found")
	ErrUserNotFound        = errors.New("user not found")
	ErrTransactionNotFound = errors.New("transaction not found")
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrInvalidAddress      = errors.New("invalid wallet address")
	ErrInvalidAmount       = errors.New("amount exceeds currency precision")
	// ErrTransient is returned when a unit of work kept conflicting after all retries.
	ErrTransient = errors.New("transient failure, retry later")
)

// CooldownError reports a claim attempted before the task cooldown elapsed.
type CooldownError struct {
	RemainingSeconds int64
}

func (e *CooldownError) Error() string {
	return fmt.Sprintf("cooldown active: %d seconds remaining", e.RemainingSeconds)
}

// AmountOutOfRangeError reports a withdrawal amount outside the configured limits.
type AmountOutOfRangeError struct {
	Min decimal.Decimal
	Max decimal.Decimal
}

func (e *AmountOutOfRangeError) Error() string {
	return fmt.Sprintf("amount must be between %s and %s", e.Min.String(), e.Max.String())
}
