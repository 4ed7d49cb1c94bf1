package redis

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"escape-progress-service/internal/domain"
	"github.com/redis/go-redis/v9"
)

// AttemptLog stores attempts in sorted sets scored by submission time so the
// guard windows stay cheap range queries:
//
//	ZADD attempts:{team}:{stage}         {unix ms} {attempt id}
//	ZADD attempts:{team}:{stage}:correct {unix ms} {attempt id}
//
// Keys expire after the retention; the guard never looks back further than
// its rate window.
type AttemptLog struct {
	client    *redis.Client
	retention time.Duration
}

func NewAttemptLog(client *redis.Client, retention time.Duration) *AttemptLog {
	if retention <= 0 {
		retention = time.Hour
	}
	return &AttemptLog{client: client, retention: retention}
}

func (l *AttemptLog) Append(ctx context.Context, attempt domain.SubmissionAttempt) error {
	key := l.key(attempt.TeamID, attempt.StageNumber)
	correctKey := key + ":correct"
	score := float64(attempt.SubmittedAt.UnixMilli())
	pruneBefore := strconv.FormatInt(attempt.SubmittedAt.Add(-l.retention).UnixMilli(), 10)

	pipe := l.client.Pipeline()
	pipe.ZAdd(ctx, key, redis.Z{Score: score, Member: attempt.ID})
	pipe.ZRemRangeByScore(ctx, key, "-inf", pruneBefore)
	pipe.Expire(ctx, key, l.retention)
	if attempt.IsCorrect {
		pipe.ZAdd(ctx, correctKey, redis.Z{Score: score, Member: attempt.ID})
		pipe.ZRemRangeByScore(ctx, correctKey, "-inf", pruneBefore)
		pipe.Expire(ctx, correctKey, l.retention)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("append attempt: %w", err)
	}
	return nil
}

func (l *AttemptLog) CountSince(ctx context.Context, teamID string, stage int, since time.Time) (int, error) {
	count, err := l.client.ZCount(ctx, l.key(teamID, stage), exclusiveMin(since), "+inf").Result()
	if err != nil {
		return 0, fmt.Errorf("count attempts: %w", err)
	}
	return int(count), nil
}

func (l *AttemptLog) HasRecentCorrect(ctx context.Context, teamID string, stage int, since time.Time) (bool, error) {
	count, err := l.client.ZCount(ctx, l.key(teamID, stage)+":correct", exclusiveMin(since), "+inf").Result()
	if err != nil {
		return false, fmt.Errorf("count correct attempts: %w", err)
	}
	return count > 0, nil
}

func (l *AttemptLog) key(teamID string, stage int) string {
	return fmt.Sprintf("attempts:%s:%d", teamID, stage)
}

// exclusiveMin matches the strict submittedAt > since window semantics.
func exclusiveMin(t time.Time) string {
	return "(" + strconv.FormatInt(t.UnixMilli(), 10)
}
