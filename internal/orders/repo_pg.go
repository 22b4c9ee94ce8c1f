package orders

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/ariefcatur/go-checkout-core.git/internal/apperr"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PgRepo struct{ DB *pgxpool.Pool }

func (r *PgRepo) CreateOrder(ctx context.Context, o Order) error {
	tx, err := r.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	shipAddr, err := json.Marshal(o.ShippingAddress)
	if err != nil {
		return err
	}
	billAddr, err := json.Marshal(o.BillingAddress)
	if err != nil {
		return err
	}
	_, err = tx.Exec(ctx, `
		INSERT INTO orders(
			id, number, session_ref, user_id, status, payment_status,
			shipping_address, billing_address,
			subtotal, tax, shipping, discount, total, currency)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)`,
		o.ID, o.Number, o.SessionRef, o.UserID, o.Status, o.PaymentStatus,
		shipAddr, billAddr,
		o.Totals.Subtotal, o.Totals.Tax, o.Totals.Shipping, o.Totals.Discount,
		o.Totals.Total, o.Totals.Currency)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrNumberTaken
		}
		return err
	}

	for _, it := range o.Items {
		if _, err := tx.Exec(ctx, `
			INSERT INTO order_items(id, order_id, product_id, sku, name, unit_price, qty, line_total)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
			it.ID, o.ID, it.ProductID, it.SKU, it.Name, it.UnitPrice, it.Qty, it.LineTotal); err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}

func (r *PgRepo) DeleteOrder(ctx context.Context, id string) error {
	tx, err := r.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()
	if _, err := tx.Exec(ctx, `DELETE FROM order_items WHERE order_id=$1`, id); err != nil {
		return err
	}
	if _, err := tx.Exec(ctx, `DELETE FROM orders WHERE id=$1`, id); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (r *PgRepo) GetOrder(ctx context.Context, id string) (Order, error) {
	return r.getOrder(ctx, `WHERE id=$1`, id)
}

func (r *PgRepo) GetOrderByNumber(ctx context.Context, number string) (Order, error) {
	return r.getOrder(ctx, `WHERE number=$1`, number)
}

func (r *PgRepo) getOrder(ctx context.Context, where string, arg any) (Order, error) {
	var o Order
	var shipAddr, billAddr []byte
	err := r.DB.QueryRow(ctx, `
		SELECT id, number, session_ref, user_id, status, payment_status,
		       shipping_address, billing_address,
		       subtotal, tax, shipping, discount, total, currency,
		       created_at, updated_at
		FROM orders `+where, arg).
		Scan(&o.ID, &o.Number, &o.SessionRef, &o.UserID, &o.Status, &o.PaymentStatus,
			&shipAddr, &billAddr,
			&o.Totals.Subtotal, &o.Totals.Tax, &o.Totals.Shipping, &o.Totals.Discount,
			&o.Totals.Total, &o.Totals.Currency, &o.CreatedAt, &o.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Order{}, apperr.New(apperr.KindNotFound, "order not found")
	}
	if err != nil {
		return Order{}, err
	}
	if err := json.Unmarshal(shipAddr, &o.ShippingAddress); err != nil {
		return Order{}, err
	}
	if err := json.Unmarshal(billAddr, &o.BillingAddress); err != nil {
		return Order{}, err
	}

	rows, err := r.DB.Query(ctx, `
		SELECT id, order_id, product_id, sku, name, unit_price, qty, line_total
		FROM order_items WHERE order_id=$1 ORDER BY id`, o.ID)
	if err != nil {
		return Order{}, err
	}
	defer rows.Close()
	for rows.Next() {
		var it Item
		if err := rows.Scan(&it.ID, &it.OrderID, &it.ProductID, &it.SKU, &it.Name,
			&it.UnitPrice, &it.Qty, &it.LineTotal); err != nil {
			return Order{}, err
		}
		o.Items = append(o.Items, it)
	}
	return o, rows.Err()
}

func (r *PgRepo) NumberExists(ctx context.Context, number string) (bool, error) {
	var n int
	err := r.DB.QueryRow(ctx, `SELECT COUNT(*) FROM orders WHERE number=$1`, number).Scan(&n)
	return n > 0, err
}

// UpdateStatus: CAS -- row cuma berubah kalau status sekarang masih `from`.
func (r *PgRepo) UpdateStatus(ctx context.Context, id string, from, to Status) error {
	ct, err := r.DB.Exec(ctx, `
		UPDATE orders SET status=$3, updated_at=now() WHERE id=$1 AND status=$2`, id, from, to)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		exists, err := r.exists(ctx, id)
		if err != nil {
			return err
		}
		if !exists {
			return apperr.New(apperr.KindNotFound, "order not found")
		}
		return apperr.Newf(apperr.KindConflict, "order status changed concurrently (expected %s)", from)
	}
	return nil
}

func (r *PgRepo) UpdatePaymentStatus(ctx context.Context, id string, ps PaymentStatus) error {
	ct, err := r.DB.Exec(ctx, `
		UPDATE orders SET payment_status=$2, updated_at=now() WHERE id=$1`, id, ps)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return apperr.New(apperr.KindNotFound, "order not found")
	}
	return nil
}

// UpdateShippingAddress: guard status langsung di WHERE, gaya CAS yang sama
// dengan UpdateStatus.
func (r *PgRepo) UpdateShippingAddress(ctx context.Context, id string, addr Address) error {
	raw, err := json.Marshal(addr)
	if err != nil {
		return err
	}
	ct, err := r.DB.Exec(ctx, `
		UPDATE orders SET shipping_address=$2, updated_at=now()
		WHERE id=$1 AND status IN ('pending','confirmed','processing')`, id, raw)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		exists, err := r.exists(ctx, id)
		if err != nil {
			return err
		}
		if !exists {
			return apperr.New(apperr.KindNotFound, "order not found")
		}
		return apperr.New(apperr.KindInvariant, "cannot change address on shipped or closed order")
	}
	return nil
}

func (r *PgRepo) ListByUser(ctx context.Context, userID string, limit int) ([]Order, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.DB.Query(ctx, `
		SELECT id FROM orders WHERE user_id=$1 ORDER BY created_at DESC LIMIT $2`, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	out := make([]Order, 0, len(ids))
	for _, id := range ids {
		o, err := r.GetOrder(ctx, id)
		if err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, nil
}

func (r *PgRepo) exists(ctx context.Context, id string) (bool, error) {
	var n int
	err := r.DB.QueryRow(ctx, `SELECT COUNT(*) FROM orders WHERE id=$1`, id).Scan(&n)
	return n > 0, err
}
