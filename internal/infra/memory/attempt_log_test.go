package memory

import (
	"context"
	"testing"
	"time"

	"escape-progress-service/internal/domain"
)

func TestAttemptLogWindows(t *testing.T) {
	ctx := context.Background()
	log := NewAttemptLog()
	base := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)

	for i := 0; i < 3; i++ {
		err := log.Append(ctx, domain.SubmissionAttempt{
			ID: string(rune('a' + i)), TeamID: "team-1", StageNumber: 1,
			IsCorrect: i == 2, SubmittedAt: base.Add(time.Duration(i) * 10 * time.Second),
		})
		if err != nil {
			t.Fatalf("append: %v", err)
		}
	}

	count, err := log.CountSince(ctx, "team-1", 1, base.Add(-time.Second))
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 3 {
		t.Fatalf("expected 3 attempts, got %d", count)
	}

	// The window bound is strict: an attempt exactly at the bound is outside.
	count, _ = log.CountSince(ctx, "team-1", 1, base)
	if count != 2 {
		t.Fatalf("expected 2 attempts after base, got %d", count)
	}

	ok, err := log.HasRecentCorrect(ctx, "team-1", 1, base.Add(15*time.Second))
	if err != nil {
		t.Fatalf("recent correct: %v", err)
	}
	if !ok {
		t.Fatalf("expected recent correct attempt")
	}
	ok, _ = log.HasRecentCorrect(ctx, "team-1", 1, base.Add(25*time.Second))
	if ok {
		t.Fatalf("correct attempt is outside the window")
	}

	count, _ = log.CountSince(ctx, "team-2", 1, base.Add(-time.Second))
	if count != 0 {
		t.Fatalf("other team must have no attempts, got %d", count)
	}
}
