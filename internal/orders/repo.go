package orders

import (
	"context"
	"errors"
)

var ErrNumberTaken = errors.New("order number already taken")

// Repo: persistence order + items. Create harus atomik (order dan seluruh
// item dalam satu transaksi); UpdateStatus compare-and-swap terhadap status
// sekarang supaya transisi stale kelihatan sebagai conflict.
type Repo interface {
	CreateOrder(ctx context.Context, o Order) error
	// DeleteOrder dipakai rollback factory saja; order yang sudah jadi tidak
	// pernah dihapus.
	DeleteOrder(ctx context.Context, id string) error
	GetOrder(ctx context.Context, id string) (Order, error)
	GetOrderByNumber(ctx context.Context, number string) (Order, error)
	NumberExists(ctx context.Context, number string) (bool, error)
	UpdateStatus(ctx context.Context, id string, from, to Status) error
	UpdatePaymentStatus(ctx context.Context, id string, ps PaymentStatus) error
	// UpdateShippingAddress cuma boleh selama order belum dikirim.
	UpdateShippingAddress(ctx context.Context, id string, addr Address) error
	ListByUser(ctx context.Context, userID string, limit int) ([]Order, error)
}
