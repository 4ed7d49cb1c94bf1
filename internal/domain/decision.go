package domain

// ReasonCode identifies why a submission was rejected before or during
// evaluation. Rejections are structured decisions, not server faults.
type ReasonCode string

const (
	// ReasonRateLimited means the per-stage attempt budget was exhausted.
	ReasonRateLimited ReasonCode = "RATE_LIMITED"
	// ReasonAlreadyCompletedRecently absorbs duplicate submissions right
	// after a correct answer (double-clicks, client retries).
	ReasonAlreadyCompletedRecently ReasonCode = "ALREADY_COMPLETED_RECENTLY"
	// ReasonLocked means the target stage is not unlocked for the team.
	ReasonLocked ReasonCode = "LOCKED"
	// ReasonTeamNotFound means no team exists for the supplied id.
	ReasonTeamNotFound ReasonCode = "TEAM_NOT_FOUND"
	// ReasonProgressNotStarted means the team has no progress record yet.
	ReasonProgressNotStarted ReasonCode = "PROGRESS_NOT_STARTED"
	// ReasonAlreadySubmitted guards one-shot submissions (final code, quiz).
	ReasonAlreadySubmitted ReasonCode = "ALREADY_SUBMITTED"
)

// SubmitResult is the orchestrator's decision for one submission.
type SubmitResult struct {
	Accepted bool          `json:"accepted"`
	Correct  bool          `json:"correct,omitempty"`
	Reason   ReasonCode    `json:"reason,omitempty"`
	Progress *ProgressView `json:"progress,omitempty"`
}

// Rejected builds a rejection result for the given reason.
func Rejected(reason ReasonCode) SubmitResult {
	return SubmitResult{Accepted: false, Reason: reason}
}
