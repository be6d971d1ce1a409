package ledger

import (
	"time"

	"reward_ledger/internal/domain"
)

// CooldownStatus is the verdict of EvaluateCooldown.
type CooldownStatus struct {
	Allowed          bool
	RemainingSeconds int64
}

// EvaluateCooldown decides whether a task may be claimed at now given the
// time of the previous claim. A claim at exactly the cooldown boundary is
// allowed. Remaining time is rounded up to whole seconds.
func EvaluateCooldown(task domain.Task, last *time.Time, now time.Time) CooldownStatus {
	if last == nil {
		return CooldownStatus{Allowed: true}
	}
	remaining := time.Duration(task.CooldownSeconds)*time.Second - now.Sub(*last)
	if remaining <= 0 {
		return CooldownStatus{Allowed: true}
	}
	return CooldownStatus{RemainingSeconds: int64((remaining + time.Second - 1) / time.Second)}
}
