package app

import "escape-progress-service/internal/domain"

// IsUnlocked reports whether the team may answer the target stage.
//
// Unlock state is derived solely from persisted progress. Clients send an
// unlocked-stage list with submissions; it is advisory UI state and is never
// consulted here.
func IsUnlocked(progress domain.TeamProgress, set domain.StageSet, stage int) bool {
	if !set.SequentialUnlock {
		return true
	}
	// Re-checking an already-solved stage is allowed; it replays idempotently.
	return stage == progress.CurrentStage || progress.HasCompleted(stage)
}
