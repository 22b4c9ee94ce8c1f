package inventory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/ariefcatur/go-checkout-core.git/internal/apperr"
)

// MemStore: implementasi in-process untuk test/demo. Satu mutex global
// sudah cukup sebagai critical section (serial per produk terpenuhi).
type MemStore struct {
	mu           sync.Mutex
	records      map[string]Record
	reservations map[string]Reservation
	history      map[string][]HistoryEntry
}

func NewMemStore() *MemStore {
	return &MemStore{
		records:      map[string]Record{},
		reservations: map[string]Reservation{},
		history:      map[string][]HistoryEntry{},
	}
}

func (m *MemStore) CreateRecord(_ context.Context, rec Record, entry HistoryEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.records[rec.ProductID]; ok {
		return apperr.Newf(apperr.KindConflict, "inventory already initialized: %s", rec.ProductID)
	}
	rec.CreatedAt = time.Now().UTC()
	rec.UpdatedAt = rec.CreatedAt
	m.records[rec.ProductID] = rec
	m.history[rec.ProductID] = append(m.history[rec.ProductID], entry)
	return nil
}

func (m *MemStore) GetRecord(_ context.Context, productID string) (Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.records[productID]
	if !ok {
		return Record{}, apperr.Newf(apperr.KindNotFound, "inventory record not found: %s", productID)
	}
	return rec, nil
}

func (m *MemStore) GetReservation(_ context.Context, id string) (Reservation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	res, ok := m.reservations[id]
	if !ok {
		return Reservation{}, apperr.Newf(apperr.KindNotFound, "reservation not found: %s", id)
	}
	return res, nil
}

func (m *MemStore) ActiveReservationsByOwner(_ context.Context, ownerRef string) ([]Reservation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Reservation
	for _, res := range m.reservations {
		if res.Status == ReservationActive && res.OrderRef == ownerRef {
			out = append(out, res)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (m *MemStore) ExpiredReservations(_ context.Context, now time.Time, limit int) ([]Reservation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Reservation
	for _, res := range m.reservations {
		if res.Status == ReservationActive && res.ExpiresAt.Before(now) {
			out = append(out, res)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ExpiresAt.Before(out[j].ExpiresAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *MemStore) History(_ context.Context, productID string) ([]HistoryEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]HistoryEntry, len(m.history[productID]))
	copy(out, m.history[productID])
	return out, nil
}

func (m *MemStore) Apply(_ context.Context, productID, reservationID string, fn ApplyFunc) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	rec, ok := m.records[productID]
	if !ok {
		return apperr.Newf(apperr.KindNotFound, "inventory record not found: %s", productID)
	}
	v := View{Record: rec}
	if reservationID != "" {
		res, ok := m.reservations[reservationID]
		if !ok {
			return apperr.Newf(apperr.KindNotFound, "reservation not found: %s", reservationID)
		}
		v.Reservation = &res
	}

	eff, err := fn(v)
	if err != nil {
		return err
	}

	eff.Record.UpdatedAt = time.Now().UTC()
	m.records[productID] = eff.Record
	if eff.Reservation != nil {
		m.reservations[eff.Reservation.ID] = *eff.Reservation
	}
	if eff.Entry != nil {
		m.history[productID] = append(m.history[productID], *eff.Entry)
	}
	return nil
}
