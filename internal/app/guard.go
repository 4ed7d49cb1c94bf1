package app

import (
	"context"
	"time"

	"escape-progress-service/internal/domain"
)

// GuardPolicy tunes the pre-evaluation throttle windows.
type GuardPolicy struct {
	// DebounceWindow rejects repeat submissions right after a correct one.
	DebounceWindow time.Duration
	// RateWindow and MaxAttempts bound attempts per (team, stage).
	RateWindow  time.Duration
	MaxAttempts int
}

// DefaultGuardPolicy matches the event defaults: 5s debounce, 3 attempts
// per stage per minute.
func DefaultGuardPolicy() GuardPolicy {
	return GuardPolicy{
		DebounceWindow: 5 * time.Second,
		RateWindow:     time.Minute,
		MaxAttempts:    3,
	}
}

func (p GuardPolicy) withDefaults() GuardPolicy {
	def := DefaultGuardPolicy()
	if p.DebounceWindow <= 0 {
		p.DebounceWindow = def.DebounceWindow
	}
	if p.RateWindow <= 0 {
		p.RateWindow = def.RateWindow
	}
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = def.MaxAttempts
	}
	return p
}

// Guard decides whether a submission is eligible for evaluation at all.
// It only reads attempt history and never persists anything.
type Guard struct {
	attempts AttemptLog
	policy   GuardPolicy
}

func NewGuard(attempts AttemptLog, policy GuardPolicy) *Guard {
	return &Guard{attempts: attempts, policy: policy.withDefaults()}
}

// Check returns an empty reason when the submission may proceed to
// evaluation. Rules run in order: recent-success debounce first, then the
// burst-rate limit.
func (g *Guard) Check(ctx context.Context, teamID string, stage int, now time.Time) (domain.ReasonCode, error) {
	recent, err := readRetry(ctx, func() (bool, error) {
		return g.attempts.HasRecentCorrect(ctx, teamID, stage, now.Add(-g.policy.DebounceWindow))
	})
	if err != nil {
		return "", err
	}
	if recent {
		return domain.ReasonAlreadyCompletedRecently, nil
	}

	count, err := readRetry(ctx, func() (int, error) {
		return g.attempts.CountSince(ctx, teamID, stage, now.Add(-g.policy.RateWindow))
	})
	if err != nil {
		return "", err
	}
	if count >= g.policy.MaxAttempts {
		return domain.ReasonRateLimited, nil
	}
	return "", nil
}

// readRetry retries a read-only store lookup once on a transient fault.
// Mutations never go through here; retrying past the mutator boundary could
// double-score.
func readRetry[T any](ctx context.Context, fn func() (T, error)) (T, error) {
	v, err := fn()
	if err == nil || ctx.Err() != nil {
		return v, err
	}
	return fn()
}
