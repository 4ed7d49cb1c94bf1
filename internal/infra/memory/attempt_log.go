package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"escape-progress-service/internal/domain"
)

// attemptRetention bounds how long attempts are kept for guard queries; the
// guard never looks back further than its rate window.
const attemptRetention = time.Hour

// AttemptLog is an in-memory implementation of app.AttemptLog keyed by
// (team, stage). Entries older than the retention are pruned on append.
type AttemptLog struct {
	mu       sync.Mutex
	attempts map[string][]domain.SubmissionAttempt
}

func NewAttemptLog() *AttemptLog {
	return &AttemptLog{attempts: make(map[string][]domain.SubmissionAttempt)}
}

func (l *AttemptLog) Append(_ context.Context, attempt domain.SubmissionAttempt) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	key := attemptKey(attempt.TeamID, attempt.StageNumber)
	kept := l.attempts[key]
	cutoff := attempt.SubmittedAt.Add(-attemptRetention)
	for len(kept) > 0 && kept[0].SubmittedAt.Before(cutoff) {
		kept = kept[1:]
	}
	l.attempts[key] = append(kept, attempt)
	return nil
}

func (l *AttemptLog) CountSince(_ context.Context, teamID string, stage int, since time.Time) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	count := 0
	for _, attempt := range l.attempts[attemptKey(teamID, stage)] {
		if attempt.SubmittedAt.After(since) {
			count++
		}
	}
	return count, nil
}

func (l *AttemptLog) HasRecentCorrect(_ context.Context, teamID string, stage int, since time.Time) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	for _, attempt := range l.attempts[attemptKey(teamID, stage)] {
		if attempt.IsCorrect && attempt.SubmittedAt.After(since) {
			return true, nil
		}
	}
	return false, nil
}

func attemptKey(teamID string, stage int) string {
	return fmt.Sprintf("%s:%d", teamID, stage)
}
