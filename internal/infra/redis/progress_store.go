package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"escape-progress-service/internal/domain"
	"github.com/redis/go-redis/v9"
)

// applyRetries bounds optimistic transaction retries before the conflict is
// surfaced to the caller; the mutator is never retried past that.
const applyRetries = 3

// ProgressStore keeps one JSON document per team. Apply uses WATCH-based
// optimistic transactions so two concurrent submissions cannot both win the
// same stage: the loser's write fails and replays against the new snapshot.
type ProgressStore struct {
	client *redis.Client
}

func NewProgressStore(client *redis.Client) *ProgressStore {
	return &ProgressStore{client: client}
}

func (s *ProgressStore) Get(ctx context.Context, teamID string) (domain.TeamProgress, error) {
	raw, err := s.client.Get(ctx, s.key(teamID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return domain.TeamProgress{}, domain.ErrProgressNotStarted
	}
	if err != nil {
		return domain.TeamProgress{}, fmt.Errorf("get progress: %w", err)
	}
	return decodeProgress(raw)
}

func (s *ProgressStore) Create(ctx context.Context, progress domain.TeamProgress) error {
	data, err := json.Marshal(progress)
	if err != nil {
		return fmt.Errorf("marshal progress: %w", err)
	}
	ok, err := s.client.SetNX(ctx, s.key(progress.TeamID), data, 0).Result()
	if err != nil {
		return fmt.Errorf("create progress: %w", err)
	}
	if !ok {
		return domain.ErrProgressExists
	}
	return nil
}

func (s *ProgressStore) Apply(ctx context.Context, teamID string, mutate func(domain.TeamProgress) (domain.TeamProgress, error)) (domain.TeamProgress, error) {
	key := s.key(teamID)

	var next domain.TeamProgress
	for i := 0; i < applyRetries; i++ {
		err := s.client.Watch(ctx, func(tx *redis.Tx) error {
			raw, err := tx.Get(ctx, key).Bytes()
			if errors.Is(err, redis.Nil) {
				return domain.ErrProgressNotStarted
			}
			if err != nil {
				return err
			}
			cur, err := decodeProgress(raw)
			if err != nil {
				return err
			}
			next, err = mutate(cur)
			if err != nil {
				return err
			}
			data, err := json.Marshal(next)
			if err != nil {
				return fmt.Errorf("marshal progress: %w", err)
			}
			_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				pipe.Set(ctx, key, data, 0)
				return nil
			})
			return err
		}, key)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		if err != nil {
			return domain.TeamProgress{}, err
		}
		return next, nil
	}
	return domain.TeamProgress{}, fmt.Errorf("apply progress for team %s: %w", teamID, redis.TxFailedErr)
}

func (s *ProgressStore) key(teamID string) string {
	return "progress:" + teamID
}

func decodeProgress(raw []byte) (domain.TeamProgress, error) {
	var progress domain.TeamProgress
	if err := json.Unmarshal(raw, &progress); err != nil {
		return domain.TeamProgress{}, fmt.Errorf("unmarshal progress: %w", err)
	}
	return progress, nil
}
