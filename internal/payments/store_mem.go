package payments

import (
	"context"
	"sync"
	"time"

	"github.com/ariefcatur/go-checkout-core.git/internal/apperr"
)

type MemStore struct {
	mu            sync.Mutex
	confirmations map[string]Confirmation
	history       map[string][]HistoryItem
}

func NewMemStore() *MemStore {
	return &MemStore{confirmations: map[string]Confirmation{}, history: map[string][]HistoryItem{}}
}

func (m *MemStore) Create(_ context.Context, c Confirmation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := time.Now().UTC()
	c.CreatedAt, c.UpdatedAt = now, now
	m.confirmations[c.ID] = c
	return nil
}

func (m *MemStore) Get(_ context.Context, id string) (Confirmation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.confirmations[id]
	if !ok {
		return Confirmation{}, apperr.New(apperr.KindNotFound, "payment confirmation not found")
	}
	return c, nil
}

func (m *MemStore) GetByPayment(_ context.Context, paymentRef string) (Confirmation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var found *Confirmation
	for _, c := range m.confirmations {
		if c.PaymentRef == paymentRef {
			if found == nil || c.CreatedAt.After(found.CreatedAt) {
				cc := c
				found = &cc
			}
		}
	}
	if found == nil {
		return Confirmation{}, apperr.New(apperr.KindNotFound, "payment confirmation not found")
	}
	return *found, nil
}

func (m *MemStore) OpenExists(_ context.Context, paymentRef string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range m.confirmations {
		if c.PaymentRef == paymentRef &&
			(c.Status == ConfirmationPending || c.Status == ConfirmationConfirmed) {
			return true, nil
		}
	}
	return false, nil
}

func (m *MemStore) CASStatus(_ context.Context, id string, from, to ConfirmationStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.confirmations[id]
	if !ok {
		return apperr.New(apperr.KindNotFound, "payment confirmation not found")
	}
	if c.Status != from {
		return apperr.Newf(apperr.KindConflict, "confirmation not in %s status", from)
	}
	c.Status = to
	c.UpdatedAt = time.Now().UTC()
	m.confirmations[id] = c
	return nil
}

func (m *MemStore) AppendHistory(_ context.Context, h HistoryItem) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.history[h.ConfirmationID] = append(m.history[h.ConfirmationID], h)
	return nil
}

func (m *MemStore) History(_ context.Context, confirmationID string) ([]HistoryItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]HistoryItem, len(m.history[confirmationID]))
	copy(out, m.history[confirmationID])
	return out, nil
}
