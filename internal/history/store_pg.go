package history

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

type PgStore struct{ DB *pgxpool.Pool }

func (s *PgStore) Append(ctx context.Context, e Entry) error {
	_, err := s.DB.Exec(ctx, `
		INSERT INTO order_history(
			id, order_ref, event_type, description, actor, priority,
			requires_follow_up, is_customer_visible, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`,
		e.ID, e.OrderRef, e.EventType, e.Description, e.Actor, e.Priority,
		e.RequiresFollowUp, e.IsCustomerVisible, e.CreatedAt)
	return err
}

func (s *PgStore) List(ctx context.Context, f Filter) ([]Entry, error) {
	q := `SELECT id, order_ref, event_type, description, actor, priority,
	             requires_follow_up, is_customer_visible, created_at
	      FROM order_history WHERE 1=1`
	var args []any
	add := func(cond string, v any) {
		args = append(args, v)
		q += fmt.Sprintf(" AND "+cond, len(args))
	}
	if f.OrderRef != "" {
		add("order_ref=$%d", f.OrderRef)
	}
	if f.EventType != "" {
		add("event_type=$%d", f.EventType)
	}
	if f.Priority != "" {
		add("priority=$%d", f.Priority)
	}
	if f.FollowUpOnly {
		q += " AND requires_follow_up"
	}
	if f.CustomerFacingOnly {
		q += " AND is_customer_visible"
	}
	if f.NewestFirst {
		q += " ORDER BY created_at DESC, id DESC"
	} else {
		q += " ORDER BY created_at, id"
	}
	if f.Limit > 0 {
		args = append(args, f.Limit)
		q += fmt.Sprintf(" LIMIT $%d", len(args))
	}

	rows, err := s.DB.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.ID, &e.OrderRef, &e.EventType, &e.Description, &e.Actor,
			&e.Priority, &e.RequiresFollowUp, &e.IsCustomerVisible, &e.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
