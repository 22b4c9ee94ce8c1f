package orders

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/ariefcatur/go-checkout-core.git/internal/apperr"
)

type MemRepo struct {
	mu     sync.Mutex
	orders map[string]Order
}

func NewMemRepo() *MemRepo { return &MemRepo{orders: map[string]Order{}} }

func (r *MemRepo) CreateOrder(_ context.Context, o Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, ex := range r.orders {
		if ex.Number == o.Number {
			return ErrNumberTaken
		}
	}
	now := time.Now().UTC()
	o.CreatedAt, o.UpdatedAt = now, now
	r.orders[o.ID] = o
	return nil
}

func (r *MemRepo) DeleteOrder(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.orders, id)
	return nil
}

func (r *MemRepo) GetOrder(_ context.Context, id string) (Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.orders[id]
	if !ok {
		return Order{}, apperr.New(apperr.KindNotFound, "order not found")
	}
	return o, nil
}

func (r *MemRepo) GetOrderByNumber(_ context.Context, number string) (Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, o := range r.orders {
		if o.Number == number {
			return o, nil
		}
	}
	return Order{}, apperr.New(apperr.KindNotFound, "order not found")
}

func (r *MemRepo) NumberExists(_ context.Context, number string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, o := range r.orders {
		if o.Number == number {
			return true, nil
		}
	}
	return false, nil
}

func (r *MemRepo) UpdateStatus(_ context.Context, id string, from, to Status) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.orders[id]
	if !ok {
		return apperr.New(apperr.KindNotFound, "order not found")
	}
	if o.Status != from {
		return apperr.Newf(apperr.KindConflict, "order status changed concurrently (expected %s)", from)
	}
	o.Status = to
	o.UpdatedAt = time.Now().UTC()
	r.orders[id] = o
	return nil
}

func (r *MemRepo) UpdatePaymentStatus(_ context.Context, id string, ps PaymentStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.orders[id]
	if !ok {
		return apperr.New(apperr.KindNotFound, "order not found")
	}
	o.PaymentStatus = ps
	o.UpdatedAt = time.Now().UTC()
	r.orders[id] = o
	return nil
}

func (r *MemRepo) UpdateShippingAddress(_ context.Context, id string, addr Address) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.orders[id]
	if !ok {
		return apperr.New(apperr.KindNotFound, "order not found")
	}
	switch o.Status {
	case StatusPending, StatusConfirmed, StatusProcessing:
	default:
		return apperr.Newf(apperr.KindInvariant, "cannot change address on %s order", o.Status)
	}
	o.ShippingAddress = addr
	o.UpdatedAt = time.Now().UTC()
	r.orders[id] = o
	return nil
}

func (r *MemRepo) ListByUser(_ context.Context, userID string, limit int) ([]Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Order
	for _, o := range r.orders {
		if o.UserID == userID {
			out = append(out, o)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
