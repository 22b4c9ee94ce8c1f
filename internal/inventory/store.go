package inventory

import (
	"context"
	"time"
)

// View: snapshot yang dilihat ApplyFunc di dalam critical section produk.
// Reservation terisi hanya kalau Apply dipanggil dengan reservationID.
type View struct {
	Record      Record
	Reservation *Reservation
}

// Effect: write-set yang di-commit atomik bersama update record.
// Reservation nil = tidak ada upsert; Entry nil = no-op (tidak ada history).
type Effect struct {
	Record      Record
	Reservation *Reservation
	Entry       *HistoryEntry
}

type ApplyFunc func(v View) (Effect, error)

// Store menyediakan critical section per product id: Apply menjalankan fn
// dengan record (dan reservation, kalau diminta) ter-lock, lalu commit
// seluruh Effect dalam satu transaksi. Dua Apply terhadap produk yang sama
// tidak pernah jalan bersamaan.
type Store interface {
	CreateRecord(ctx context.Context, rec Record, entry HistoryEntry) error
	GetRecord(ctx context.Context, productID string) (Record, error)
	GetReservation(ctx context.Context, id string) (Reservation, error)
	ActiveReservationsByOwner(ctx context.Context, ownerRef string) ([]Reservation, error)
	ExpiredReservations(ctx context.Context, now time.Time, limit int) ([]Reservation, error)
	History(ctx context.Context, productID string) ([]HistoryEntry, error)
	Apply(ctx context.Context, productID, reservationID string, fn ApplyFunc) error
}
