package app

import (
	"sync"

	"escape-progress-service/internal/domain"
)

// progressFeed fans progress updates out to subscribers per team.
type progressFeed struct {
	mu   sync.Mutex
	subs map[string]map[chan domain.ProgressView]struct{}
}

func newProgressFeed() *progressFeed {
	return &progressFeed{subs: make(map[string]map[chan domain.ProgressView]struct{})}
}

func (f *progressFeed) subscribe(teamID string) (chan domain.ProgressView, func()) {
	ch := make(chan domain.ProgressView, 8)

	f.mu.Lock()
	if f.subs[teamID] == nil {
		f.subs[teamID] = make(map[chan domain.ProgressView]struct{})
	}
	f.subs[teamID][ch] = struct{}{}
	f.mu.Unlock()

	cancel := func() {
		f.mu.Lock()
		if set, ok := f.subs[teamID]; ok {
			if _, ok := set[ch]; ok {
				delete(set, ch)
				close(ch)
			}
			if len(set) == 0 {
				delete(f.subs, teamID)
			}
		}
		f.mu.Unlock()
	}
	return ch, cancel
}

func (f *progressFeed) broadcast(teamID string, view domain.ProgressView) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for ch := range f.subs[teamID] {
		select {
		case ch <- view:
		default:
			// Drop the stale update so a slow client never blocks the writer.
			select {
			case <-ch:
			default:
			}
			ch <- view
		}
	}
}
