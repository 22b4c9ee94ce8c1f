package payments

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// Payment: bentuk record di collaborator pembayaran eksternal. Core tidak
// memproses kartu/3DS, cuma melacak status konfirmasinya.
type Payment struct {
	Ref        string          `json:"ref"`
	Amount     decimal.Decimal `json:"amount"`
	Status     string          `json:"status"`
	UserID     string          `json:"user_id"`
	Method     string          `json:"method"` // "cash", "transfer", "card", ...
	TrustScore int             `json:"trust_score"`
}

type Service interface {
	GetPayment(ctx context.Context, ref string) (Payment, error)
	UpdatePaymentStatus(ctx context.Context, ref, status, actor string) error
}

type ConfirmationStatus string

const (
	ConfirmationPending   ConfirmationStatus = "pending"
	ConfirmationConfirmed ConfirmationStatus = "confirmed"
	ConfirmationRejected  ConfirmationStatus = "rejected"
	ConfirmationCancelled ConfirmationStatus = "cancelled"
	ConfirmationFailed    ConfirmationStatus = "failed"
	ConfirmationPaid      ConfirmationStatus = "paid"
	ConfirmationRefunded  ConfirmationStatus = "refunded"
)

var confirmationNext = map[ConfirmationStatus]map[ConfirmationStatus]bool{
	ConfirmationPending:   {ConfirmationConfirmed: true, ConfirmationRejected: true, ConfirmationCancelled: true, ConfirmationFailed: true},
	ConfirmationConfirmed: {ConfirmationPaid: true, ConfirmationCancelled: true},
	ConfirmationPaid:      {ConfirmationRefunded: true},
	ConfirmationRejected:  {ConfirmationPending: true}, // manual retry
	ConfirmationFailed:    {ConfirmationPending: true},
	ConfirmationCancelled: {},
	ConfirmationRefunded:  {},
}

func CanTransition(from, to ConfirmationStatus) bool {
	return confirmationNext[from][to]
}

type ConfirmationType string

const (
	TypeManual    ConfirmationType = "manual"
	TypeAutomated ConfirmationType = "automated"
)

type Confirmation struct {
	ID         string             `json:"id"`
	PaymentRef string             `json:"payment_ref"`
	OrderRef   string             `json:"order_ref"`
	Status     ConfirmationStatus `json:"status"`
	Type       ConfirmationType   `json:"type"`
	CreatedAt  time.Time          `json:"created_at"`
	UpdatedAt  time.Time          `json:"updated_at"`
}

// HistoryItem: side table append-only per confirmation.
type HistoryItem struct {
	ID             string             `json:"id"`
	ConfirmationID string             `json:"confirmation_id"`
	Action         string             `json:"action"`
	Status         ConfirmationStatus `json:"status"`
	Actor          string             `json:"actor"`
	Notes          string             `json:"notes,omitempty"`
	CreatedAt      time.Time          `json:"created_at"`
}
