package app

import (
	"time"

	"escape-progress-service/internal/domain"
)

// NewProgress seeds a fresh progress record at stage 1.
func NewProgress(teamID string, now time.Time) domain.TeamProgress {
	return domain.TeamProgress{
		TeamID:          teamID,
		CurrentStage:    1,
		CompletedStages: []int{},
		StartTime:       now,
		LastActivity:    now,
	}
}

// StageOutcome describes what a stage answer did to the progress record.
type StageOutcome struct {
	Advanced     bool
	Replay       bool
	Awarded      int
	CompletedAll bool
}

// ApplyStageAnswer returns the next progress value for an accepted,
// evaluated stage answer. This is the only transition that grows the
// completed set or the score; replays and incorrect answers touch
// LastActivity alone, so the pointer and score never move backwards and a
// replayed correct answer cannot double-count.
func ApplyStageAnswer(p domain.TeamProgress, stage domain.Stage, totalStages int, correct bool, now time.Time) (domain.TeamProgress, StageOutcome) {
	next := p
	next.CompletedStages = append([]int(nil), p.CompletedStages...)
	next.LastActivity = now

	if !correct {
		return next, StageOutcome{}
	}
	if p.HasCompleted(stage.Number) {
		return next, StageOutcome{Replay: true}
	}

	next.CompletedStages = append(next.CompletedStages, stage.Number)
	awarded := domain.StagePoints(stage)
	next.TotalScore = p.TotalScore + awarded

	out := StageOutcome{Awarded: awarded}
	if stage.Number == p.CurrentStage {
		// Sequential advancement; in free-order sets the pointer only moves
		// when the lowest open stage is the one solved.
		next.CurrentStage = p.CurrentStage + 1
		out.Advanced = true
	}
	if totalStages > 0 && len(next.CompletedStages) == totalStages {
		next.IsCompleted = true
		next.EndTime = now
		out.CompletedAll = true
	}
	return next, out
}

// ApplyFinalCode records a final-code attempt. The submitted flag flips only
// on a correct code and never flips back.
func ApplyFinalCode(p domain.TeamProgress, code string, correct bool, now time.Time) domain.TeamProgress {
	next := p
	next.CompletedStages = append([]int(nil), p.CompletedStages...)
	next.FinalCodeAttempt = code
	next.LastActivity = now
	if correct && !p.FinalCodeSubmitted {
		next.FinalCodeSubmitted = true
		next.FinalSubmissionTime = now
	}
	return next
}
