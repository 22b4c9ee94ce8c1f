package payments

import (
	"context"
	"errors"

	"github.com/ariefcatur/go-checkout-core.git/internal/apperr"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PgStore struct{ DB *pgxpool.Pool }

func (s *PgStore) Create(ctx context.Context, c Confirmation) error {
	_, err := s.DB.Exec(ctx, `
		INSERT INTO payment_confirmations(id, payment_ref, order_ref, status, type)
		VALUES ($1,$2,$3,$4,$5)`,
		c.ID, c.PaymentRef, c.OrderRef, c.Status, c.Type)
	return err
}

func (s *PgStore) Get(ctx context.Context, id string) (Confirmation, error) {
	return s.get(ctx, `WHERE id=$1`, id)
}

func (s *PgStore) GetByPayment(ctx context.Context, paymentRef string) (Confirmation, error) {
	return s.get(ctx, `WHERE payment_ref=$1 ORDER BY created_at DESC LIMIT 1`, paymentRef)
}

func (s *PgStore) get(ctx context.Context, where string, arg any) (Confirmation, error) {
	var c Confirmation
	err := s.DB.QueryRow(ctx, `
		SELECT id, payment_ref, order_ref, status, type, created_at, updated_at
		FROM payment_confirmations `+where, arg).
		Scan(&c.ID, &c.PaymentRef, &c.OrderRef, &c.Status, &c.Type, &c.CreatedAt, &c.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Confirmation{}, apperr.New(apperr.KindNotFound, "payment confirmation not found")
	}
	return c, err
}

func (s *PgStore) OpenExists(ctx context.Context, paymentRef string) (bool, error) {
	var n int
	err := s.DB.QueryRow(ctx, `
		SELECT COUNT(*) FROM payment_confirmations
		WHERE payment_ref=$1 AND status IN ('pending','confirmed')`, paymentRef).Scan(&n)
	return n > 0, err
}

func (s *PgStore) CASStatus(ctx context.Context, id string, from, to ConfirmationStatus) error {
	ct, err := s.DB.Exec(ctx, `
		UPDATE payment_confirmations SET status=$3, updated_at=now()
		WHERE id=$1 AND status=$2`, id, from, to)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return apperr.Newf(apperr.KindConflict, "confirmation not in %s status", from)
	}
	return nil
}

func (s *PgStore) AppendHistory(ctx context.Context, h HistoryItem) error {
	_, err := s.DB.Exec(ctx, `
		INSERT INTO payment_confirmation_history(id, confirmation_id, action, status, actor, notes, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7)`,
		h.ID, h.ConfirmationID, h.Action, h.Status, h.Actor, h.Notes, h.CreatedAt)
	return err
}

func (s *PgStore) History(ctx context.Context, confirmationID string) ([]HistoryItem, error) {
	rows, err := s.DB.Query(ctx, `
		SELECT id, confirmation_id, action, status, actor, notes, created_at
		FROM payment_confirmation_history
		WHERE confirmation_id=$1 ORDER BY created_at, id`, confirmationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []HistoryItem
	for rows.Next() {
		var h HistoryItem
		if err := rows.Scan(&h.ID, &h.ConfirmationID, &h.Action, &h.Status, &h.Actor, &h.Notes, &h.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, h)
	}
	return out, rows.Err()
}
