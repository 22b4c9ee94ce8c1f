package history

import (
	"context"
	"sort"
	"sync"
)

type MemStore struct {
	mu      sync.Mutex
	entries []Entry
	failing bool // utk test jalur fire-and-forget
	err     error
}

func NewMemStore() *MemStore { return &MemStore{} }

// FailWith: semua Append berikutnya gagal dengan err.
func (m *MemStore) FailWith(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failing = true
	m.err = err
}

func (m *MemStore) Append(_ context.Context, e Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failing {
		return m.err
	}
	m.entries = append(m.entries, e)
	return nil
}

func (m *MemStore) List(_ context.Context, f Filter) ([]Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Entry
	for _, e := range m.entries {
		if f.OrderRef != "" && e.OrderRef != f.OrderRef {
			continue
		}
		if f.EventType != "" && e.EventType != f.EventType {
			continue
		}
		if f.Priority != "" && e.Priority != f.Priority {
			continue
		}
		if f.FollowUpOnly && !e.RequiresFollowUp {
			continue
		}
		if f.CustomerFacingOnly && !e.IsCustomerVisible {
			continue
		}
		out = append(out, e)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if f.NewestFirst {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, nil
}
