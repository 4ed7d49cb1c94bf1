package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"escape-progress-service/internal/domain"
)

func TestResultStoreOrdering(t *testing.T) {
	ctx := context.Background()
	store := NewResultStore()
	base := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)

	seed := []domain.QuizResult{
		{Link: "quiz-1", TeamID: "slow-high", Score: 5, SubmittedAt: base.Add(time.Hour)},
		{Link: "quiz-1", TeamID: "fast-high", Score: 5, SubmittedAt: base},
		{Link: "quiz-1", TeamID: "low", Score: 2, SubmittedAt: base},
		{Link: "quiz-2", TeamID: "other", Score: 9, SubmittedAt: base},
	}
	for _, result := range seed {
		if err := store.Save(ctx, result); err != nil {
			t.Fatalf("save: %v", err)
		}
	}

	results, err := store.List(ctx, "quiz-1")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(results))
	}
	// Score descending, earlier submission wins ties.
	if results[0].TeamID != "fast-high" || results[1].TeamID != "slow-high" || results[2].TeamID != "low" {
		t.Fatalf("unexpected order: %v %v %v", results[0].TeamID, results[1].TeamID, results[2].TeamID)
	}
}

func TestResultStoreGet(t *testing.T) {
	ctx := context.Background()
	store := NewResultStore()

	if _, err := store.Get(ctx, "quiz-1", "team-1"); !errors.Is(err, domain.ErrResultNotFound) {
		t.Fatalf("expected not-found, got %v", err)
	}

	if err := store.Save(ctx, domain.QuizResult{Link: "quiz-1", TeamID: "team-1", Score: 3}); err != nil {
		t.Fatalf("save: %v", err)
	}
	result, err := store.Get(ctx, "quiz-1", "team-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if result.Score != 3 {
		t.Fatalf("unexpected result: %+v", result)
	}
}
