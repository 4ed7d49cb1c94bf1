package memory

import (
	"context"
	"sort"
	"sync"

	"escape-progress-service/internal/domain"
)

// ResultStore keeps quiz results in memory, one per (link, team).
type ResultStore struct {
	mu      sync.RWMutex
	results map[string]domain.QuizResult
}

func NewResultStore() *ResultStore {
	return &ResultStore{results: make(map[string]domain.QuizResult)}
}

func (s *ResultStore) Save(_ context.Context, result domain.QuizResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.results[resultKey(result.Link, result.TeamID)] = result
	return nil
}

func (s *ResultStore) Get(_ context.Context, link, teamID string) (domain.QuizResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result, ok := s.results[resultKey(link, teamID)]
	if !ok {
		return domain.QuizResult{}, domain.ErrResultNotFound
	}
	return result, nil
}

// List returns the results for a stage set, score descending with earlier
// submissions winning ties.
func (s *ResultStore) List(_ context.Context, link string) ([]domain.QuizResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.QuizResult, 0)
	for _, result := range s.results {
		if result.Link == link {
			out = append(out, result)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].SubmittedAt.Before(out[j].SubmittedAt)
	})
	return out, nil
}

func resultKey(link, teamID string) string {
	return link + ":" + teamID
}
