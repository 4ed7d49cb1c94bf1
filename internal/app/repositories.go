package app

import (
	"context"
	"time"

	"escape-progress-service/internal/domain"
)

// ProgressStore persists one TeamProgress record per team. Apply must be
// atomic for a single team: the mutate callback sees the stored snapshot and
// its result replaces it, or the whole operation fails.
type ProgressStore interface {
	Get(ctx context.Context, teamID string) (domain.TeamProgress, error)
	Create(ctx context.Context, progress domain.TeamProgress) error
	Apply(ctx context.Context, teamID string, mutate func(domain.TeamProgress) (domain.TeamProgress, error)) (domain.TeamProgress, error)
}

// AttemptLog is the append-only record of evaluated submissions, queried by
// the guard over short time windows.
type AttemptLog interface {
	Append(ctx context.Context, attempt domain.SubmissionAttempt) error
	CountSince(ctx context.Context, teamID string, stage int, since time.Time) (int, error)
	HasRecentCorrect(ctx context.Context, teamID string, stage int, since time.Time) (bool, error)
}

// StageSetRepository loads stage content (from cache/backing store).
type StageSetRepository interface {
	GetStageSet(ctx context.Context, link string) (domain.StageSet, error)
}

// TeamDirectory answers whether a team id is known. Credentials are
// verified upstream; this service only sees resolved team identities.
type TeamDirectory interface {
	Exists(ctx context.Context, teamID string) (bool, error)
}

// ResultStore keeps one quiz result per (stage set link, team).
type ResultStore interface {
	Save(ctx context.Context, result domain.QuizResult) error
	Get(ctx context.Context, link, teamID string) (domain.QuizResult, error)
	List(ctx context.Context, link string) ([]domain.QuizResult, error)
}
