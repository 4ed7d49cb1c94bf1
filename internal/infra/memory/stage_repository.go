package memory

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"escape-progress-service/internal/domain"
	"golang.org/x/sync/singleflight"
)

// StageLoader fetches stage set content from a backing store (e.g., document DB).
type StageLoader interface {
	LoadStageSet(ctx context.Context, link string) (domain.StageSet, error)
}

// StageSetRepository caches stage sets with TTL to avoid repeated DB hits.
type StageSetRepository struct {
	loader StageLoader
	ttl    time.Duration
	clock  func() time.Time
	sf     singleflight.Group
	rnd    *rand.Rand

	mu    sync.RWMutex
	cache map[string]cachedSet
}

type cachedSet struct {
	set       domain.StageSet
	expiresAt time.Time
}

func NewStageSetRepository(loader StageLoader, ttl time.Duration) *StageSetRepository {
	return &StageSetRepository{
		loader: loader,
		ttl:    ttl,
		clock:  time.Now,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
		cache:  make(map[string]cachedSet),
	}
}

func (r *StageSetRepository) GetStageSet(ctx context.Context, link string) (domain.StageSet, error) {
	now := r.clock()

	r.mu.RLock()
	if entry, ok := r.cache[link]; ok && entry.expiresAt.After(now) {
		r.mu.RUnlock()
		return entry.set, nil
	}
	r.mu.RUnlock()

	result, err, _ := r.sf.Do(link, func() (interface{}, error) {
		now := r.clock()
		r.mu.RLock()
		if entry, ok := r.cache[link]; ok && entry.expiresAt.After(now) {
			r.mu.RUnlock()
			return entry.set, nil
		}
		r.mu.RUnlock()

		set, err := r.loader.LoadStageSet(ctx, link)
		if err != nil {
			return domain.StageSet{}, err
		}

		r.mu.Lock()
		r.cache[link] = cachedSet{
			set:       set,
			expiresAt: now.Add(r.ttlWithJitter()),
		}
		r.mu.Unlock()
		return set, nil
	})
	if err != nil {
		return domain.StageSet{}, err
	}
	return result.(domain.StageSet), nil
}

func (r *StageSetRepository) ttlWithJitter() time.Duration {
	if r.ttl <= 0 {
		return 0
	}
	// add up to 10% jitter to spread expirations
	jitterMax := int64(r.ttl) / 10
	return r.ttl + time.Duration(r.rnd.Int63n(jitterMax+1))
}

// StaticStageLoader is a simple loader backed by an in-memory map (useful for tests/demos).
type StaticStageLoader struct {
	sets map[string]domain.StageSet
}

func NewStaticStageLoader(sets map[string]domain.StageSet) *StaticStageLoader {
	return &StaticStageLoader{sets: sets}
}

func (l *StaticStageLoader) LoadStageSet(_ context.Context, link string) (domain.StageSet, error) {
	if set, ok := l.sets[link]; ok {
		return set, nil
	}
	return domain.StageSet{}, domain.ErrStageSetNotFound
}
