package app

import (
	"context"
	"errors"
	"math"
	"sync"
	"time"

	"escape-progress-service/internal/domain"
	"github.com/google/uuid"
)

// SubmissionService composes the guard, unlock validation, evaluation and
// the progress mutation for every inbound submission. It is the only writer
// of progress records; submissions for the same team are serialized behind a
// per-team lock so guard reads and mutator writes see the same snapshot.
type SubmissionService struct {
	teams    TeamDirectory
	progress ProgressStore
	attempts AttemptLog
	content  StageSetRepository
	results  ResultStore
	guard    *Guard
	link     string
	now      func() time.Time

	mu    sync.Mutex
	locks map[string]*sync.Mutex

	feed *progressFeed
}

// NewSubmissionService wires the engine for the stage set identified by link.
func NewSubmissionService(teams TeamDirectory, progress ProgressStore, attempts AttemptLog, content StageSetRepository, results ResultStore, policy GuardPolicy, link string) *SubmissionService {
	return NewSubmissionServiceWithClock(teams, progress, attempts, content, results, policy, link, time.Now)
}

// NewSubmissionServiceWithClock is test-only for deterministic timestamps.
func NewSubmissionServiceWithClock(teams TeamDirectory, progress ProgressStore, attempts AttemptLog, content StageSetRepository, results ResultStore, policy GuardPolicy, link string, now func() time.Time) *SubmissionService {
	return &SubmissionService{
		teams:    teams,
		progress: progress,
		attempts: attempts,
		content:  content,
		results:  results,
		guard:    NewGuard(attempts, policy),
		link:     link,
		now:      now,
		locks:    make(map[string]*sync.Mutex),
		feed:     newProgressFeed(),
	}
}

func (s *SubmissionService) teamLock(teamID string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	lock, ok := s.locks[teamID]
	if !ok {
		lock = &sync.Mutex{}
		s.locks[teamID] = lock
	}
	return lock
}

// Submit runs one stage answer through guard, unlock check, evaluation and
// the atomic progress mutation. Each step short-circuits with a reason code;
// nothing is written before evaluation and the mutation is a single
// read-modify-write.
func (s *SubmissionService) Submit(ctx context.Context, teamID string, stageNumber int, answer string) (domain.SubmitResult, error) {
	lock := s.teamLock(teamID)
	lock.Lock()
	defer lock.Unlock()

	now := s.now()

	progress, reason, err := s.resolveProgress(ctx, teamID)
	if err != nil {
		return domain.SubmitResult{}, err
	}
	if reason != "" {
		return domain.Rejected(reason), nil
	}

	set, err := s.content.GetStageSet(ctx, s.link)
	if err != nil {
		return domain.SubmitResult{}, err
	}

	reason, err = s.guard.Check(ctx, teamID, stageNumber, now)
	if err != nil {
		return domain.SubmitResult{}, err
	}
	if reason != "" {
		return domain.Rejected(reason), nil
	}

	if !IsUnlocked(progress, set, stageNumber) {
		return domain.Rejected(domain.ReasonLocked), nil
	}

	stage, ok := set.StageByNumber(stageNumber)
	if !ok {
		return domain.SubmitResult{}, domain.ErrStageNotFound
	}

	correct := Evaluate(answer, stage.Answer)

	// Evaluated attempts are recorded whatever their correctness; guard
	// rejections above never reach this point.
	attempt := domain.SubmissionAttempt{
		ID:              uuid.NewString(),
		TeamID:          teamID,
		StageNumber:     stageNumber,
		SubmittedAnswer: answer,
		IsCorrect:       correct,
		SubmittedAt:     now,
	}
	if err := s.attempts.Append(ctx, attempt); err != nil {
		return domain.SubmitResult{}, err
	}

	updated, err := s.progress.Apply(ctx, teamID, func(cur domain.TeamProgress) (domain.TeamProgress, error) {
		next, _ := ApplyStageAnswer(cur, stage, len(set.Stages), correct, now)
		return next, nil
	})
	if err != nil {
		return domain.SubmitResult{}, err
	}

	view := updated.View()
	s.feed.broadcast(teamID, view)
	return domain.SubmitResult{Accepted: true, Correct: correct, Progress: &view}, nil
}

// SubmitFinalCode runs the one-shot final-code gate. The gate is checked
// before evaluation and is independent of the attempt guard.
func (s *SubmissionService) SubmitFinalCode(ctx context.Context, teamID, code string) (domain.SubmitResult, error) {
	lock := s.teamLock(teamID)
	lock.Lock()
	defer lock.Unlock()

	now := s.now()

	progress, reason, err := s.resolveProgress(ctx, teamID)
	if err != nil {
		return domain.SubmitResult{}, err
	}
	if reason != "" {
		return domain.Rejected(reason), nil
	}
	if progress.FinalCodeSubmitted {
		return domain.Rejected(domain.ReasonAlreadySubmitted), nil
	}

	set, err := s.content.GetStageSet(ctx, s.link)
	if err != nil {
		return domain.SubmitResult{}, err
	}

	correct := set.FinalCode != "" && Evaluate(code, set.FinalCode)

	updated, err := s.progress.Apply(ctx, teamID, func(cur domain.TeamProgress) (domain.TeamProgress, error) {
		if cur.FinalCodeSubmitted {
			// Lost a race with a concurrent submission; the flag stays set.
			return cur, nil
		}
		return ApplyFinalCode(cur, code, correct, now), nil
	})
	if err != nil {
		return domain.SubmitResult{}, err
	}

	view := updated.View()
	s.feed.broadcast(teamID, view)
	return domain.SubmitResult{Accepted: true, Correct: correct, Progress: &view}, nil
}

// QuizSubmission is a bulk, all-or-nothing answer sheet for a stage set.
type QuizSubmission struct {
	Link      string
	TeamID    string
	StartedAt time.Time
	Answers   []QuizAnswerInput
}

// SubmitQuiz grades a bulk submission and stores the one result a team gets
// per stage set. Resubmission (full or partial) is rejected.
func (s *SubmissionService) SubmitQuiz(ctx context.Context, sub QuizSubmission) (domain.QuizResult, domain.ReasonCode, error) {
	lock := s.teamLock(sub.TeamID)
	lock.Lock()
	defer lock.Unlock()

	now := s.now()

	known, err := s.teams.Exists(ctx, sub.TeamID)
	if err != nil {
		return domain.QuizResult{}, "", err
	}
	if !known {
		return domain.QuizResult{}, domain.ReasonTeamNotFound, nil
	}

	set, err := s.content.GetStageSet(ctx, sub.Link)
	if err != nil {
		return domain.QuizResult{}, "", err
	}

	if _, err := s.results.Get(ctx, sub.Link, sub.TeamID); err == nil {
		return domain.QuizResult{}, domain.ReasonAlreadySubmitted, nil
	} else if !errors.Is(err, domain.ErrResultNotFound) {
		return domain.QuizResult{}, "", err
	}

	graded, score, percentage := GradeQuiz(set, sub.Answers)

	started := sub.StartedAt
	if started.IsZero() {
		started = now
	}
	result := domain.QuizResult{
		Link:           sub.Link,
		TeamID:         sub.TeamID,
		Answers:        graded,
		Score:          score,
		Percentage:     percentage,
		StartedAt:      started,
		SubmittedAt:    now,
		TotalTimeSpent: int(math.Round(now.Sub(started).Seconds())),
	}
	if err := s.results.Save(ctx, result); err != nil {
		return domain.QuizResult{}, "", err
	}
	return result, "", nil
}

// QuizResults lists stored results for a stage set, best first.
func (s *SubmissionService) QuizResults(ctx context.Context, link string) ([]domain.QuizResult, error) {
	return s.results.List(ctx, link)
}

// StartProgress seeds the team's progress record at stage 1. Starting an
// already-started team returns the existing record unchanged.
func (s *SubmissionService) StartProgress(ctx context.Context, teamID string) (domain.ProgressView, error) {
	lock := s.teamLock(teamID)
	lock.Lock()
	defer lock.Unlock()

	known, err := s.teams.Exists(ctx, teamID)
	if err != nil {
		return domain.ProgressView{}, err
	}
	if !known {
		return domain.ProgressView{}, domain.ErrTeamNotFound
	}

	progress := NewProgress(teamID, s.now())
	if err := s.progress.Create(ctx, progress); err != nil {
		if errors.Is(err, domain.ErrProgressExists) {
			existing, err := s.progress.Get(ctx, teamID)
			if err != nil {
				return domain.ProgressView{}, err
			}
			return existing.View(), nil
		}
		return domain.ProgressView{}, err
	}

	view := progress.View()
	s.feed.broadcast(teamID, view)
	return view, nil
}

// Progress returns the current read-only view, with no side effects.
func (s *SubmissionService) Progress(ctx context.Context, teamID string) (domain.ProgressView, error) {
	known, err := s.teams.Exists(ctx, teamID)
	if err != nil {
		return domain.ProgressView{}, err
	}
	if !known {
		return domain.ProgressView{}, domain.ErrTeamNotFound
	}
	progress, err := s.progress.Get(ctx, teamID)
	if err != nil {
		return domain.ProgressView{}, err
	}
	return progress.View(), nil
}

// Watch returns a channel of progress updates for a team. The caller must
// invoke the returned cancel function to avoid leaks.
func (s *SubmissionService) Watch(ctx context.Context, teamID string) (<-chan domain.ProgressView, func(), error) {
	known, err := s.teams.Exists(ctx, teamID)
	if err != nil {
		return nil, nil, err
	}
	if !known {
		return nil, nil, domain.ErrTeamNotFound
	}

	ch, cancel := s.feed.subscribe(teamID)
	if progress, err := s.progress.Get(ctx, teamID); err == nil {
		ch <- progress.View()
	}
	return ch, cancel, nil
}

// resolveProgress maps the team id to its progress record, translating the
// two not-found lanes into their reason codes.
func (s *SubmissionService) resolveProgress(ctx context.Context, teamID string) (domain.TeamProgress, domain.ReasonCode, error) {
	known, err := s.teams.Exists(ctx, teamID)
	if err != nil {
		return domain.TeamProgress{}, "", err
	}
	if !known {
		return domain.TeamProgress{}, domain.ReasonTeamNotFound, nil
	}
	progress, err := s.progress.Get(ctx, teamID)
	if errors.Is(err, domain.ErrProgressNotStarted) {
		return domain.TeamProgress{}, domain.ReasonProgressNotStarted, nil
	}
	if err != nil {
		return domain.TeamProgress{}, "", err
	}
	return progress, "", nil
}
