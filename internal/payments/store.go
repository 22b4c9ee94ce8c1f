package payments

import "context"

type Store interface {
	Create(ctx context.Context, c Confirmation) error
	Get(ctx context.Context, id string) (Confirmation, error)
	GetByPayment(ctx context.Context, paymentRef string) (Confirmation, error)
	// OpenExists: sudah ada confirmation pending/confirmed utk payment ini?
	OpenExists(ctx context.Context, paymentRef string) (bool, error)
	// CASStatus conflict kalau status sekarang bukan from.
	CASStatus(ctx context.Context, id string, from, to ConfirmationStatus) error
	AppendHistory(ctx context.Context, h HistoryItem) error
	History(ctx context.Context, confirmationID string) ([]HistoryItem, error)
}
