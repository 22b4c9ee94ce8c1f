package checkout

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/ariefcatur/go-checkout-core.git/internal/apperr"
	"github.com/ariefcatur/go-checkout-core.git/internal/orders"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PgStore struct{ DB *pgxpool.Pool }

func (s *PgStore) Create(ctx context.Context, sess Session) error {
	ship, bill, err := marshalAddrs(sess)
	if err != nil {
		return err
	}
	_, err = s.DB.Exec(ctx, `
		INSERT INTO checkout_sessions(
			id, token, cart_ref, user_id, current_step, status,
			shipping_address, billing_address, shipping_method, payment_method,
			order_id, expires_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)`,
		sess.ID, sess.Token, sess.CartRef, sess.UserID, sess.CurrentStep, sess.Status,
		ship, bill, sess.ShippingMethod, sess.PaymentMethod, nullable(sess.OrderID), sess.ExpiresAt)
	return err
}

func (s *PgStore) Get(ctx context.Context, id string) (Session, error) {
	var sess Session
	var ship, bill []byte
	var orderID *string
	err := s.DB.QueryRow(ctx, `
		SELECT id, token, cart_ref, user_id, current_step, status,
		       shipping_address, billing_address, shipping_method, payment_method,
		       order_id, expires_at, created_at, updated_at
		FROM checkout_sessions WHERE id=$1`, id).
		Scan(&sess.ID, &sess.Token, &sess.CartRef, &sess.UserID, &sess.CurrentStep, &sess.Status,
			&ship, &bill, &sess.ShippingMethod, &sess.PaymentMethod,
			&orderID, &sess.ExpiresAt, &sess.CreatedAt, &sess.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Session{}, apperr.New(apperr.KindNotFound, "checkout session not found")
	}
	if err != nil {
		return Session{}, err
	}
	if orderID != nil {
		sess.OrderID = *orderID
	}
	if err := unmarshalAddr(ship, &sess.ShippingAddress); err != nil {
		return Session{}, err
	}
	if err := unmarshalAddr(bill, &sess.BillingAddress); err != nil {
		return Session{}, err
	}
	return sess, nil
}

func (s *PgStore) Update(ctx context.Context, sess Session, expect SessionStatus) error {
	ship, bill, err := marshalAddrs(sess)
	if err != nil {
		return err
	}
	ct, err := s.DB.Exec(ctx, `
		UPDATE checkout_sessions
		SET current_step=$2, shipping_address=$3, billing_address=$4,
		    shipping_method=$5, payment_method=$6, updated_at=now()
		WHERE id=$1 AND status=$7`,
		sess.ID, sess.CurrentStep, ship, bill, sess.ShippingMethod, sess.PaymentMethod, expect)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return apperr.Newf(apperr.KindConflict, "session changed concurrently (expected %s)", expect)
	}
	return nil
}

func (s *PgStore) CASStatus(ctx context.Context, id string, from, to SessionStatus) error {
	ct, err := s.DB.Exec(ctx, `
		UPDATE checkout_sessions SET status=$3, updated_at=now()
		WHERE id=$1 AND status=$2`, id, from, to)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return apperr.Newf(apperr.KindConflict, "session not %s", from)
	}
	return nil
}

func (s *PgStore) SetCompleted(ctx context.Context, id, orderID string) error {
	ct, err := s.DB.Exec(ctx, `
		UPDATE checkout_sessions
		SET status=$3, order_id=$2, current_step=$4, updated_at=now()
		WHERE id=$1 AND status=$5`,
		id, orderID, SessionCompleted, StepConfirmation, SessionLocked)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return apperr.New(apperr.KindConflict, "session not locked")
	}
	return nil
}

func (s *PgStore) Expired(ctx context.Context, now time.Time, limit int) ([]Session, error) {
	rows, err := s.DB.Query(ctx, `
		SELECT id FROM checkout_sessions
		WHERE status IN ('active','locked') AND expires_at < $1
		ORDER BY expires_at LIMIT $2`, now, limit)
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
	out := make([]Session, 0, len(ids))
	for _, id := range ids {
		sess, err := s.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		out = append(out, sess)
	}
	return out, nil
}

func marshalAddrs(sess Session) ([]byte, []byte, error) {
	var ship, bill []byte
	var err error
	if sess.ShippingAddress != nil {
		if ship, err = json.Marshal(sess.ShippingAddress); err != nil {
			return nil, nil, err
		}
	}
	if sess.BillingAddress != nil {
		if bill, err = json.Marshal(sess.BillingAddress); err != nil {
			return nil, nil, err
		}
	}
	return ship, bill, nil
}

func unmarshalAddr(b []byte, out **orders.Address) error {
	if len(b) == 0 {
		return nil
	}
	var a orders.Address
	if err := json.Unmarshal(b, &a); err != nil {
		return err
	}
	*out = &a
	return nil
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
