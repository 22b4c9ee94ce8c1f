package inventory

import (
	"context"
	"time"

	"github.com/ariefcatur/go-checkout-core.git/internal/apperr"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Ledger: satu-satunya pemilik angka stok. Semua mutasi lewat critical
// section Store.Apply dan selalu menulis satu history entry.
type Ledger struct {
	Store Store
	Log   logrus.FieldLogger
	Now   func() time.Time
}

func NewLedger(store Store, log logrus.FieldLogger) *Ledger {
	return &Ledger{Store: store, Log: log, Now: func() time.Time { return time.Now().UTC() }}
}

func (l *Ledger) Initialize(ctx context.Context, productID string, qty int, actor string) (Record, error) {
	if productID == "" {
		return Record{}, apperr.New(apperr.KindValidation, "product id required")
	}
	if qty < 0 {
		return Record{}, apperr.New(apperr.KindValidation, "initial quantity must be >= 0")
	}
	rec := Record{ProductID: productID, QuantityOnHand: qty}
	entry := l.entry(rec.ProductID, ActionInitialize, 0, qty, 0, 0, "initial stock", SourceSystem, actor)
	if err := l.Store.CreateRecord(ctx, rec, entry); err != nil {
		return Record{}, err
	}
	return rec, nil
}

// AdjustQuantity: atomic read-modify-write; hasil negatif atau on-hand di
// bawah reserved ditolak tanpa mutasi.
func (l *Ledger) AdjustQuantity(ctx context.Context, productID string, delta int, reason string, source Source, actor string) (HistoryEntry, error) {
	if delta == 0 {
		return HistoryEntry{}, apperr.New(apperr.KindValidation, "delta must be non-zero")
	}
	var out HistoryEntry
	err := l.Store.Apply(ctx, productID, "", func(v View) (Effect, error) {
		rec := v.Record
		next := rec.QuantityOnHand + delta
		if next < 0 {
			return Effect{}, apperr.Newf(apperr.KindInvariant,
				"insufficient inventory: %s (on hand %d, delta %d)", productID, rec.QuantityOnHand, delta)
		}
		if next < rec.QuantityReserved {
			return Effect{}, apperr.Newf(apperr.KindInvariant,
				"adjustment would undercut reservations: %s (reserved %d)", productID, rec.QuantityReserved)
		}
		e := l.entry(productID, ActionAdjust, rec.QuantityOnHand, next, rec.QuantityReserved, rec.QuantityReserved, reason, source, actor)
		rec.QuantityOnHand = next
		out = e
		return Effect{Record: rec, Entry: &e}, nil
	})
	return out, err
}

// Reserve: cek available di dalam critical section supaya dua reservasi
// bersamaan tidak pernah dua-duanya lolos melebihi stok.
func (l *Ledger) Reserve(ctx context.Context, productID string, qty int, orderRef string, ttl time.Duration) (Reservation, error) {
	if qty <= 0 {
		return Reservation{}, apperr.New(apperr.KindValidation, "qty must be > 0")
	}
	var out Reservation
	err := l.Store.Apply(ctx, productID, "", func(v View) (Effect, error) {
		rec := v.Record
		if rec.Available() < qty {
			return Effect{}, apperr.Newf(apperr.KindInvariant,
				"insufficient inventory: %s (available %d, requested %d)", productID, rec.Available(), qty)
		}
		res := Reservation{
			ID:        uuid.NewString(),
			ProductID: productID,
			Qty:       qty,
			OrderRef:  orderRef,
			ExpiresAt: l.Now().Add(ttl),
			Status:    ReservationActive,
			CreatedAt: l.Now(),
		}
		e := l.entry(productID, ActionReserve, rec.QuantityOnHand, rec.QuantityOnHand,
			rec.QuantityReserved, rec.QuantityReserved+qty, "reserved for "+orderRef, SourceOrder, orderRef)
		rec.QuantityReserved += qty
		out = res
		return Effect{Record: rec, Reservation: &res, Entry: &e}, nil
	})
	return out, err
}

// Release idempotent: reservation yang sudah released/consumed -> no-op.
func (l *Ledger) Release(ctx context.Context, reservationID, reason string) error {
	res, err := l.Store.GetReservation(ctx, reservationID)
	if err != nil {
		return err
	}
	return l.Store.Apply(ctx, res.ProductID, reservationID, func(v View) (Effect, error) {
		rec, r := v.Record, *v.Reservation
		if r.Status != ReservationActive {
			return Effect{Record: rec}, nil
		}
		e := l.entry(rec.ProductID, ActionRelease, rec.QuantityOnHand, rec.QuantityOnHand,
			rec.QuantityReserved, rec.QuantityReserved-r.Qty, reason, SourceSystem, r.OrderRef)
		rec.QuantityReserved -= r.Qty
		r.Status = ReservationReleased
		return Effect{Record: rec, Reservation: &r, Entry: &e}, nil
	})
}

// Consume: reservasi jadi pengurangan permanen; on-hand dan reserved turun
// bersama dalam satu step atomik.
func (l *Ledger) Consume(ctx context.Context, reservationID string) error {
	res, err := l.Store.GetReservation(ctx, reservationID)
	if err != nil {
		return err
	}
	return l.Store.Apply(ctx, res.ProductID, reservationID, func(v View) (Effect, error) {
		rec, r := v.Record, *v.Reservation
		if r.Status != ReservationActive {
			return Effect{}, apperr.Newf(apperr.KindInvariant, "reservation not active: %s (%s)", r.ID, r.Status)
		}
		e := l.entry(rec.ProductID, ActionDecrease, rec.QuantityOnHand, rec.QuantityOnHand-r.Qty,
			rec.QuantityReserved, rec.QuantityReserved-r.Qty, "consumed by "+r.OrderRef, SourceOrder, r.OrderRef)
		rec.QuantityOnHand -= r.Qty
		rec.QuantityReserved -= r.Qty
		r.Status = ReservationConsumed
		return Effect{Record: rec, Reservation: &r, Entry: &e}, nil
	})
}

// Reinstate membalikkan Consume saat rollback pembuatan order: stok dan
// reserved kembali naik, reservation aktif lagi (lalu bisa di-release).
func (l *Ledger) Reinstate(ctx context.Context, reservationID string) error {
	res, err := l.Store.GetReservation(ctx, reservationID)
	if err != nil {
		return err
	}
	return l.Store.Apply(ctx, res.ProductID, reservationID, func(v View) (Effect, error) {
		rec, r := v.Record, *v.Reservation
		if r.Status != ReservationConsumed {
			return Effect{Record: rec}, nil
		}
		e := l.entry(rec.ProductID, ActionIncrease, rec.QuantityOnHand, rec.QuantityOnHand+r.Qty,
			rec.QuantityReserved, rec.QuantityReserved+r.Qty, "order rollback", SourceSystem, r.OrderRef)
		rec.QuantityOnHand += r.Qty
		rec.QuantityReserved += r.Qty
		r.Status = ReservationActive
		return Effect{Record: rec, Reservation: &r, Entry: &e}, nil
	})
}

// ReleaseByOwner melepas semua reservasi aktif milik satu owner ref
// (session/order) sekaligus. Dipakai finalisasi order & abandon session.
func (l *Ledger) ReleaseByOwner(ctx context.Context, ownerRef, reason string) (int, error) {
	active, err := l.Store.ActiveReservationsByOwner(ctx, ownerRef)
	if err != nil {
		return 0, err
	}
	released := 0
	for _, res := range active {
		if err := l.Release(ctx, res.ID, reason); err != nil {
			return released, err
		}
		released++
	}
	return released, nil
}

func (l *Ledger) Record(ctx context.Context, productID string) (Record, error) {
	return l.Store.GetRecord(ctx, productID)
}

func (l *Ledger) History(ctx context.Context, productID string) ([]HistoryEntry, error) {
	return l.Store.History(ctx, productID)
}

func (l *Ledger) entry(productID string, action Action, qBefore, qAfter, rBefore, rAfter int, reason string, source Source, actor string) HistoryEntry {
	return HistoryEntry{
		ID:              uuid.NewString(),
		ProductID:       productID,
		Action:          action,
		QuantityBefore:  qBefore,
		QuantityAfter:   qAfter,
		QuantityChanged: qAfter - qBefore,
		ReservedBefore:  rBefore,
		ReservedAfter:   rAfter,
		Reason:          reason,
		Source:          source,
		Actor:           actor,
		CreatedAt:       l.Now(),
	}
}
