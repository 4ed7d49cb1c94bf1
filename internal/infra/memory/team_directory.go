package memory

import (
	"context"
	"sync"
)

// TeamDirectory is an in-memory registry of known team ids. Credentials are
// verified upstream; this only answers existence checks.
type TeamDirectory struct {
	mu  sync.RWMutex
	ids map[string]struct{}
}

func NewTeamDirectory(ids ...string) *TeamDirectory {
	d := &TeamDirectory{ids: make(map[string]struct{}, len(ids))}
	for _, id := range ids {
		d.ids[id] = struct{}{}
	}
	return d
}

func (d *TeamDirectory) Register(id string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.ids[id] = struct{}{}
}

func (d *TeamDirectory) Exists(_ context.Context, id string) (bool, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	_, ok := d.ids[id]
	return ok, nil
}
