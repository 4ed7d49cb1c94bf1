package app_test

import (
	"testing"

	"escape-progress-service/internal/app"
	"escape-progress-service/internal/domain"
)

func TestIsUnlockedSequential(t *testing.T) {
	set := domain.StageSet{
		SequentialUnlock: true,
		Stages:           []domain.Stage{{Number: 1}, {Number: 2}, {Number: 3}},
	}
	progress := domain.TeamProgress{CurrentStage: 2, CompletedStages: []int{1}}

	if !app.IsUnlocked(progress, set, 2) {
		t.Fatalf("current stage must be unlocked")
	}
	if !app.IsUnlocked(progress, set, 1) {
		t.Fatalf("completed stage must stay unlocked")
	}
	if app.IsUnlocked(progress, set, 3) {
		t.Fatalf("future stage must be locked")
	}
}

func TestIsUnlockedNonSequential(t *testing.T) {
	set := domain.StageSet{
		SequentialUnlock: false,
		Stages:           []domain.Stage{{Number: 1}, {Number: 2}},
	}
	progress := domain.TeamProgress{CurrentStage: 1}

	for _, n := range []int{1, 2} {
		if !app.IsUnlocked(progress, set, n) {
			t.Fatalf("stage %d must be unlocked in free-order mode", n)
		}
	}
}
