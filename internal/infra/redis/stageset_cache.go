package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"escape-progress-service/internal/domain"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
)

// StageLoader fetches stage set content from a backing store (e.g., document DB).
type StageLoader interface {
	LoadStageSet(ctx context.Context, link string) (domain.StageSet, error)
}

// StageSetCache caches stage sets in Redis (JSON per link) and falls back to
// a loader on cache miss. Content is read-only from this service's
// perspective, so a TTL is the only invalidation.
type StageSetCache struct {
	client *redis.Client
	loader StageLoader
	ttl    time.Duration
	sf     singleflight.Group
	rnd    *rand.Rand
}

func NewStageSetCache(client *redis.Client, loader StageLoader, ttl time.Duration) *StageSetCache {
	return &StageSetCache{
		client: client,
		loader: loader,
		ttl:    ttl,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (c *StageSetCache) GetStageSet(ctx context.Context, link string) (domain.StageSet, error) {
	key := c.key(link)

	if set, ok, err := c.fromCache(ctx, key); err == nil && ok {
		return set, nil
	}

	result, err, _ := c.sf.Do(link, func() (interface{}, error) {
		// Re-check cache in case another goroutine filled it.
		if set, ok, err := c.fromCache(ctx, key); err == nil && ok {
			return set, nil
		}

		set, err := c.loader.LoadStageSet(ctx, link)
		if err != nil {
			return domain.StageSet{}, err
		}

		data, err := json.Marshal(set)
		if err != nil {
			return domain.StageSet{}, fmt.Errorf("marshal stage set: %w", err)
		}
		_ = c.client.Set(ctx, key, data, c.ttlWithJitter()).Err()

		return set, nil
	})
	if err != nil {
		return domain.StageSet{}, err
	}
	return result.(domain.StageSet), nil
}

func (c *StageSetCache) fromCache(ctx context.Context, key string) (domain.StageSet, bool, error) {
	raw, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return domain.StageSet{}, false, nil
	}
	if err != nil {
		return domain.StageSet{}, false, err
	}
	var set domain.StageSet
	if err := json.Unmarshal(raw, &set); err != nil {
		return domain.StageSet{}, false, err
	}
	return set, true, nil
}

func (c *StageSetCache) key(link string) string {
	return "stageset:" + link
}

func (c *StageSetCache) ttlWithJitter() time.Duration {
	if c.ttl <= 0 {
		return 0
	}
	jitterMax := int64(c.ttl) / 10
	return c.ttl + time.Duration(c.rnd.Int63n(jitterMax+1))
}
