package inventory

import (
	"context"
	"errors"
	"time"

	"github.com/ariefcatur/go-checkout-core.git/internal/apperr"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PgStore struct{ DB *pgxpool.Pool }

func (s *PgStore) CreateRecord(ctx context.Context, rec Record, entry HistoryEntry) error {
	tx, err := s.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	ct, err := tx.Exec(ctx, `
		INSERT INTO inventory_records(product_id, quantity_on_hand, quantity_reserved)
		VALUES ($1, $2, $3)
		ON CONFLICT (product_id) DO NOTHING`,
		rec.ProductID, rec.QuantityOnHand, rec.QuantityReserved)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return apperr.Newf(apperr.KindConflict, "inventory already initialized: %s", rec.ProductID)
	}
	if err := insertHistory(ctx, tx, entry); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (s *PgStore) GetRecord(ctx context.Context, productID string) (Record, error) {
	var rec Record
	err := s.DB.QueryRow(ctx, `
		SELECT product_id, quantity_on_hand, quantity_reserved, created_at, updated_at
		FROM inventory_records WHERE product_id=$1`, productID).
		Scan(&rec.ProductID, &rec.QuantityOnHand, &rec.QuantityReserved, &rec.CreatedAt, &rec.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Record{}, apperr.Newf(apperr.KindNotFound, "inventory record not found: %s", productID)
	}
	return rec, err
}

func (s *PgStore) GetReservation(ctx context.Context, id string) (Reservation, error) {
	var res Reservation
	err := s.DB.QueryRow(ctx, `
		SELECT id, product_id, qty, order_ref, expires_at, status, created_at
		FROM stock_reservations WHERE id=$1`, id).
		Scan(&res.ID, &res.ProductID, &res.Qty, &res.OrderRef, &res.ExpiresAt, &res.Status, &res.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Reservation{}, apperr.Newf(apperr.KindNotFound, "reservation not found: %s", id)
	}
	return res, err
}

func (s *PgStore) ActiveReservationsByOwner(ctx context.Context, ownerRef string) ([]Reservation, error) {
	rows, err := s.DB.Query(ctx, `
		SELECT id, product_id, qty, order_ref, expires_at, status, created_at
		FROM stock_reservations
		WHERE status='active' AND order_ref=$1 ORDER BY created_at`, ownerRef)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Reservation
	for rows.Next() {
		var res Reservation
		if err := rows.Scan(&res.ID, &res.ProductID, &res.Qty, &res.OrderRef, &res.ExpiresAt, &res.Status, &res.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, res)
	}
	return out, rows.Err()
}

func (s *PgStore) ExpiredReservations(ctx context.Context, now time.Time, limit int) ([]Reservation, error) {
	rows, err := s.DB.Query(ctx, `
		SELECT id, product_id, qty, order_ref, expires_at, status, created_at
		FROM stock_reservations
		WHERE status='active' AND expires_at < $1
		ORDER BY expires_at LIMIT $2`, now, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Reservation
	for rows.Next() {
		var res Reservation
		if err := rows.Scan(&res.ID, &res.ProductID, &res.Qty, &res.OrderRef, &res.ExpiresAt, &res.Status, &res.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, res)
	}
	return out, rows.Err()
}

func (s *PgStore) History(ctx context.Context, productID string) ([]HistoryEntry, error) {
	rows, err := s.DB.Query(ctx, `
		SELECT id, product_id, action, quantity_before, quantity_after, quantity_changed,
		       reserved_before, reserved_after, reason, source, actor, created_at
		FROM inventory_history WHERE product_id=$1 ORDER BY created_at, id`, productID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []HistoryEntry
	for rows.Next() {
		var e HistoryEntry
		if err := rows.Scan(&e.ID, &e.ProductID, &e.Action, &e.QuantityBefore, &e.QuantityAfter,
			&e.QuantityChanged, &e.ReservedBefore, &e.ReservedAfter, &e.Reason, &e.Source, &e.Actor, &e.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// Apply: lock row produk (FOR UPDATE) -> jalankan fn -> commit write-set.
// Reservation row ikut di-lock kalau diminta, supaya release/consume serial.
func (s *PgStore) Apply(ctx context.Context, productID, reservationID string, fn ApplyFunc) error {
	tx, err := s.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var v View
	err = tx.QueryRow(ctx, `
		SELECT product_id, quantity_on_hand, quantity_reserved, created_at, updated_at
		FROM inventory_records WHERE product_id=$1 FOR UPDATE`, productID).
		Scan(&v.Record.ProductID, &v.Record.QuantityOnHand, &v.Record.QuantityReserved,
			&v.Record.CreatedAt, &v.Record.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return apperr.Newf(apperr.KindNotFound, "inventory record not found: %s", productID)
	}
	if err != nil {
		return err
	}

	if reservationID != "" {
		var res Reservation
		err = tx.QueryRow(ctx, `
			SELECT id, product_id, qty, order_ref, expires_at, status, created_at
			FROM stock_reservations WHERE id=$1 FOR UPDATE`, reservationID).
			Scan(&res.ID, &res.ProductID, &res.Qty, &res.OrderRef, &res.ExpiresAt, &res.Status, &res.CreatedAt)
		if errors.Is(err, pgx.ErrNoRows) {
			return apperr.Newf(apperr.KindNotFound, "reservation not found: %s", reservationID)
		}
		if err != nil {
			return err
		}
		v.Reservation = &res
	}

	eff, err := fn(v)
	if err != nil {
		return err
	}

	if _, err := tx.Exec(ctx, `
		UPDATE inventory_records
		SET quantity_on_hand=$2, quantity_reserved=$3, updated_at=now()
		WHERE product_id=$1`,
		productID, eff.Record.QuantityOnHand, eff.Record.QuantityReserved); err != nil {
		return err
	}
	if eff.Reservation != nil {
		if _, err := tx.Exec(ctx, `
			INSERT INTO stock_reservations(id, product_id, qty, order_ref, expires_at, status)
			VALUES ($1,$2,$3,$4,$5,$6)
			ON CONFLICT (id) DO UPDATE SET status=EXCLUDED.status`,
			eff.Reservation.ID, eff.Reservation.ProductID, eff.Reservation.Qty,
			eff.Reservation.OrderRef, eff.Reservation.ExpiresAt, eff.Reservation.Status); err != nil {
			return err
		}
	}
	if eff.Entry != nil {
		if err := insertHistory(ctx, tx, *eff.Entry); err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}

func insertHistory(ctx context.Context, tx pgx.Tx, e HistoryEntry) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO inventory_history(
			id, product_id, action, quantity_before, quantity_after, quantity_changed,
			reserved_before, reserved_after, reason, source, actor)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)`,
		e.ID, e.ProductID, e.Action, e.QuantityBefore, e.QuantityAfter, e.QuantityChanged,
		e.ReservedBefore, e.ReservedAfter, e.Reason, e.Source, e.Actor)
	return err
}
