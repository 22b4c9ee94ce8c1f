package orders

import (
	"context"

	"github.com/shopspring/decimal"
)

const (
	EventOrderCreated      = "OrderCreated"
	EventOrderConfirmed    = "OrderConfirmed"
	EventOrderProcessing   = "OrderProcessing"
	EventOrderShipped      = "OrderShipped"
	EventOrderDelivered    = "OrderDelivered"
	EventOrderCancelled    = "OrderCancelled"
	EventOrderRefunded     = "OrderRefunded"
	EventPaymentConfirmed  = "PaymentConfirmed"
	EventTrackingCreated   = "TrackingCreated"
	EventWarehousePickList = "WarehousePickList"
)

// Notifier: collaborator notifikasi fire-and-forget. Implementasi kafka di
// internal/kafka; test pakai fake.
type Notifier interface {
	Notify(ctx context.Context, event, correlationID string, payload any)
}

type ItemQty struct {
	ProductID string `json:"product_id"`
	Qty       int    `json:"qty"`
}

type OrderCreatedPayload struct {
	OrderID    string          `json:"order_id"`
	Number     string          `json:"number"`
	SessionRef string          `json:"session_ref"`
	UserID     string          `json:"user_id"`
	Items      []ItemQty       `json:"items"`
	Total      decimal.Decimal `json:"total"`
	Currency   string          `json:"currency"`
}

type StatusChangedPayload struct {
	OrderID string `json:"order_id"`
	Number  string `json:"number"`
	From    Status `json:"from"`
	To      Status `json:"to"`
	Actor   string `json:"actor"`
	Notes   string `json:"notes,omitempty"`
}

type PaymentConfirmedPayload struct {
	OrderRef   string          `json:"order_ref"`
	PaymentRef string          `json:"payment_ref"`
	Amount     decimal.Decimal `json:"amount"`
	Actor      string          `json:"actor"`
}
