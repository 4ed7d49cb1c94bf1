package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"escape-progress-service/internal/domain"
)

func TestStageSetRepositoryCaches(t *testing.T) {
	loader := &countingLoader{
		StageLoader: NewStaticStageLoader(map[string]domain.StageSet{
			"main": sampleStageSet(),
		}),
	}
	repo := NewStageSetRepository(loader, time.Minute)

	if _, err := repo.GetStageSet(context.Background(), "main"); err != nil {
		t.Fatalf("get stage set: %v", err)
	}
	if loader.calls != 1 {
		t.Fatalf("expected loader once, got %d", loader.calls)
	}

	if _, err := repo.GetStageSet(context.Background(), "main"); err != nil {
		t.Fatalf("get stage set 2: %v", err)
	}
	if loader.calls != 1 {
		t.Fatalf("expected cache hit, loader calls %d", loader.calls)
	}
}

func TestStaticStageLoaderUnknownLink(t *testing.T) {
	loader := NewStaticStageLoader(nil)
	if _, err := loader.LoadStageSet(context.Background(), "nope"); !errors.Is(err, domain.ErrStageSetNotFound) {
		t.Fatalf("expected not-found error, got %v", err)
	}
}

type countingLoader struct {
	StageLoader
	calls int
}

func (l *countingLoader) LoadStageSet(ctx context.Context, link string) (domain.StageSet, error) {
	l.calls++
	return l.StageLoader.LoadStageSet(ctx, link)
}

func sampleStageSet() domain.StageSet {
	return domain.StageSet{
		Link:             "main",
		SequentialUnlock: true,
		Stages: []domain.Stage{
			{Number: 1, Prompt: "Capital of France?", Answer: "paris", Points: 10},
			{Number: 2, Prompt: "What is 6 x 7?", Answer: "42", Points: 10},
		},
	}
}
