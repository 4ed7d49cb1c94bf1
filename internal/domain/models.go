package domain

import "time"

// Stage is one ordered unit of the escape-room challenge with a single
// canonical answer. Content is authored elsewhere; this service only reads it.
type Stage struct {
	Number           int      `json:"number"`
	Title            string   `json:"title"`
	Prompt           string   `json:"prompt"`
	Answer           string   `json:"answer"` // canonical answer, never exposed to clients
	Points           int      `json:"points"` // defaults to 10 if zero
	Hints            []string `json:"hints,omitempty"`
	Difficulty       string   `json:"difficulty,omitempty"`
	TimeLimitSeconds int      `json:"timeLimitSeconds,omitempty"`
}

// StageSet is an ordered collection of stages plus unlock policy and the
// optional final code that locks the event for a team.
type StageSet struct {
	Link             string  `json:"link"`
	Title            string  `json:"title"`
	SequentialUnlock bool    `json:"sequentialUnlock"`
	FinalCode        string  `json:"finalCode,omitempty"`
	TotalTimeMinutes int     `json:"totalTimeMinutes,omitempty"`
	Stages           []Stage `json:"stages"`
}

// StageByNumber returns the stage definition for a 1-based stage number.
func (s StageSet) StageByNumber(number int) (Stage, bool) {
	for i := range s.Stages {
		if s.Stages[i].Number == number {
			return s.Stages[i], true
		}
	}
	return Stage{}, false
}

// LastStage returns the highest stage number in the set (0 when empty).
func (s StageSet) LastStage() int {
	last := 0
	for i := range s.Stages {
		if s.Stages[i].Number > last {
			last = s.Stages[i].Number
		}
	}
	return last
}

// StagePoints returns the points awarded for a stage, applying the default.
func StagePoints(stage Stage) int {
	if stage.Points == 0 {
		return 10
	}
	return stage.Points
}

// TeamProgress is the durable per-team record of stage advancement, score
// and terminal flags. CurrentStage never decreases, CompletedStages never
// shrinks, and the terminal flags flip exactly once.
type TeamProgress struct {
	TeamID              string    `json:"teamId"`
	CurrentStage        int       `json:"currentStage"`
	CompletedStages     []int     `json:"completedStages"`
	TotalScore          int       `json:"totalScore"`
	IsCompleted         bool      `json:"isCompleted"`
	FinalCodeSubmitted  bool      `json:"finalCodeSubmitted"`
	FinalCodeAttempt    string    `json:"finalCodeAttempt,omitempty"`
	FinalSubmissionTime time.Time `json:"finalSubmissionTime,omitempty"`
	StartTime           time.Time `json:"startTime"`
	EndTime             time.Time `json:"endTime,omitempty"`
	LastActivity        time.Time `json:"lastActivity"`
}

// HasCompleted reports whether the team already solved the given stage.
func (p TeamProgress) HasCompleted(stage int) bool {
	for _, n := range p.CompletedStages {
		if n == stage {
			return true
		}
	}
	return false
}

// View returns the client-facing snapshot of the progress record.
func (p TeamProgress) View() ProgressView {
	completed := make([]int, len(p.CompletedStages))
	copy(completed, p.CompletedStages)
	return ProgressView{
		TeamID:             p.TeamID,
		CurrentStage:       p.CurrentStage,
		CompletedStages:    completed,
		TotalScore:         p.TotalScore,
		IsCompleted:        p.IsCompleted,
		FinalCodeSubmitted: p.FinalCodeSubmitted,
		StartTime:          p.StartTime,
		LastActivity:       p.LastActivity,
	}
}

// ProgressView is the read-only projection served to clients.
type ProgressView struct {
	TeamID             string    `json:"teamId"`
	CurrentStage       int       `json:"currentStage"`
	CompletedStages    []int     `json:"completedStages"`
	TotalScore         int       `json:"totalScore"`
	IsCompleted        bool      `json:"isCompleted"`
	FinalCodeSubmitted bool      `json:"finalCodeSubmitted"`
	StartTime          time.Time `json:"startTime"`
	LastActivity       time.Time `json:"lastActivity"`
}

// SubmissionAttempt is an immutable audit record of one evaluated
// submission. Attempts rejected before evaluation are never recorded.
type SubmissionAttempt struct {
	ID              string    `json:"id"`
	TeamID          string    `json:"teamId"`
	StageNumber     int       `json:"stageNumber"`
	SubmittedAnswer string    `json:"submittedAnswer"`
	IsCorrect       bool      `json:"isCorrect"`
	SubmittedAt     time.Time `json:"submittedAt"`
}

// QuizAnswer is one graded answer inside a bulk quiz submission.
type QuizAnswer struct {
	Order     int    `json:"order"`
	Answer    string `json:"answer"`
	IsCorrect bool   `json:"isCorrect"`
	TimeSpent int    `json:"timeSpent,omitempty"` // seconds
}

// QuizResult is the stored outcome of an all-or-nothing quiz submission.
// A team gets exactly one result per stage set link.
type QuizResult struct {
	Link           string       `json:"link"`
	TeamID         string       `json:"teamId"`
	Answers        []QuizAnswer `json:"answers"`
	Score          int          `json:"score"`
	Percentage     int          `json:"percentage"`
	StartedAt      time.Time    `json:"startedAt"`
	SubmittedAt    time.Time    `json:"submittedAt"`
	TotalTimeSpent int          `json:"totalTimeSpent"` // seconds
}
