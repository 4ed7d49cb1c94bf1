package redis

import (
	"context"
	"testing"
	"time"

	"escape-progress-service/internal/domain"
	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func TestAttemptLogWindows(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	ctx := context.Background()
	log := NewAttemptLog(newClient(mr), time.Hour)
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

	// The bound is exclusive, matching the strict window semantics.
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
}

func TestAttemptLogPrunesOldEntries(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	ctx := context.Background()
	log := NewAttemptLog(newClient(mr), time.Minute)
	base := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)

	if err := log.Append(ctx, domain.SubmissionAttempt{
		ID: "old", TeamID: "team-1", StageNumber: 1, SubmittedAt: base,
	}); err != nil {
		t.Fatalf("append: %v", err)
	}
	// A later append prunes anything older than the retention.
	if err := log.Append(ctx, domain.SubmissionAttempt{
		ID: "new", TeamID: "team-1", StageNumber: 1, SubmittedAt: base.Add(2 * time.Minute),
	}); err != nil {
		t.Fatalf("append: %v", err)
	}

	count, err := log.CountSince(ctx, "team-1", 1, base.Add(-time.Hour))
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected old attempt pruned, got %d", count)
	}
}

func newClient(mr *miniredis.Miniredis) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})
}
