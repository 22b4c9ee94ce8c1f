package checkout

import (
	"time"

	"github.com/ariefcatur/go-checkout-core.git/internal/orders"
)

type Step string

const (
	StepCart         Step = "cart"
	StepShipping     Step = "shipping"
	StepBilling      Step = "billing"
	StepPayment      Step = "payment"
	StepConfirmation Step = "confirmation"
)

type SessionStatus string

const (
	SessionActive    SessionStatus = "active"
	SessionLocked    SessionStatus = "locked"
	SessionCompleted SessionStatus = "completed"
	SessionAbandoned SessionStatus = "abandoned"
)

func (s SessionStatus) Terminal() bool {
	return s == SessionCompleted || s == SessionAbandoned
}

type Session struct {
	ID              string          `json:"id"`
	Token           string          `json:"token"`
	CartRef         string          `json:"cart_ref"`
	UserID          string          `json:"user_id"`
	CurrentStep     Step            `json:"current_step"`
	Status          SessionStatus   `json:"status"`
	ShippingAddress *orders.Address `json:"shipping_address,omitempty"`
	BillingAddress  *orders.Address `json:"billing_address,omitempty"`
	ShippingMethod  string          `json:"shipping_method,omitempty"`
	PaymentMethod   string          `json:"payment_method,omitempty"`
	OrderID         string          `json:"order_id,omitempty"`
	ExpiresAt       time.Time       `json:"expires_at"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

// Patch: field nil = tidak diubah.
type Patch struct {
	CurrentStep     *Step           `json:"current_step,omitempty"`
	ShippingAddress *orders.Address `json:"shipping_address,omitempty"`
	BillingAddress  *orders.Address `json:"billing_address,omitempty"`
	ShippingMethod  *string         `json:"shipping_method,omitempty"`
	PaymentMethod   *string         `json:"payment_method,omitempty"`
}

type StepValidation struct {
	Step       Step     `json:"step"`
	IsValid    bool     `json:"is_valid"`
	Errors     []string `json:"errors,omitempty"`
	CanProceed bool     `json:"can_proceed"`
}
