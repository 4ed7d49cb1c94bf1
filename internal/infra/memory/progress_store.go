package memory

import (
	"context"
	"sync"

	"escape-progress-service/internal/domain"
)

// ProgressStore is an in-memory implementation of app.ProgressStore. Apply
// holds the store lock across the read-modify-write, so a single team's
// record mutates atomically.
type ProgressStore struct {
	mu      sync.RWMutex
	records map[string]domain.TeamProgress
}

func NewProgressStore() *ProgressStore {
	return &ProgressStore{records: make(map[string]domain.TeamProgress)}
}

func (s *ProgressStore) Get(_ context.Context, teamID string) (domain.TeamProgress, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	progress, ok := s.records[teamID]
	if !ok {
		return domain.TeamProgress{}, domain.ErrProgressNotStarted
	}
	return progress, nil
}

func (s *ProgressStore) Create(_ context.Context, progress domain.TeamProgress) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.records[progress.TeamID]; ok {
		return domain.ErrProgressExists
	}
	s.records[progress.TeamID] = progress
	return nil
}

func (s *ProgressStore) Apply(_ context.Context, teamID string, mutate func(domain.TeamProgress) (domain.TeamProgress, error)) (domain.TeamProgress, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.records[teamID]
	if !ok {
		return domain.TeamProgress{}, domain.ErrProgressNotStarted
	}
	next, err := mutate(cur)
	if err != nil {
		return domain.TeamProgress{}, err
	}
	s.records[teamID] = next
	return next, nil
}
