package checkout

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/ariefcatur/go-checkout-core.git/internal/apperr"
)

type MemStore struct {
	mu       sync.Mutex
	sessions map[string]Session
}

func NewMemStore() *MemStore { return &MemStore{sessions: map[string]Session{}} }

func (m *MemStore) Create(_ context.Context, s Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := time.Now().UTC()
	s.CreatedAt, s.UpdatedAt = now, now
	m.sessions[s.ID] = s
	return nil
}

func (m *MemStore) Get(_ context.Context, id string) (Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		return Session{}, apperr.New(apperr.KindNotFound, "checkout session not found")
	}
	return s, nil
}

func (m *MemStore) Update(_ context.Context, s Session, expect SessionStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.sessions[s.ID]
	if !ok {
		return apperr.New(apperr.KindNotFound, "checkout session not found")
	}
	if cur.Status != expect {
		return apperr.Newf(apperr.KindConflict, "session changed concurrently (expected %s)", expect)
	}
	s.Status = cur.Status
	s.OrderID = cur.OrderID
	s.UpdatedAt = time.Now().UTC()
	m.sessions[s.ID] = s
	return nil
}

func (m *MemStore) CASStatus(_ context.Context, id string, from, to SessionStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		return apperr.New(apperr.KindNotFound, "checkout session not found")
	}
	if s.Status != from {
		return apperr.Newf(apperr.KindConflict, "session not %s", from)
	}
	s.Status = to
	s.UpdatedAt = time.Now().UTC()
	m.sessions[id] = s
	return nil
}

func (m *MemStore) SetCompleted(_ context.Context, id, orderID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		return apperr.New(apperr.KindNotFound, "checkout session not found")
	}
	if s.Status != SessionLocked {
		return apperr.New(apperr.KindConflict, "session not locked")
	}
	s.Status = SessionCompleted
	s.OrderID = orderID
	s.CurrentStep = StepConfirmation
	s.UpdatedAt = time.Now().UTC()
	m.sessions[id] = s
	return nil
}

func (m *MemStore) Expired(_ context.Context, now time.Time, limit int) ([]Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Session
	for _, s := range m.sessions {
		if (s.Status == SessionActive || s.Status == SessionLocked) && s.ExpiresAt.Before(now) {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ExpiresAt.Before(out[j].ExpiresAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
