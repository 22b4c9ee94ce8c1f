package cart

import (
	"context"

	"github.com/shopspring/decimal"
)

type Item struct {
	ProductID string          `json:"product_id"`
	SKU       string          `json:"sku"`
	Name      string          `json:"name"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Qty       int             `json:"qty"`
}

type Cart struct {
	Ref      string          `json:"ref"`
	UserID   string          `json:"user_id"`
	Items    []Item          `json:"items"`
	Subtotal decimal.Decimal `json:"subtotal"`
	Tax      decimal.Decimal `json:"tax"`
	Shipping decimal.Decimal `json:"shipping"`
	Discount decimal.Decimal `json:"discount"`
	Total    decimal.Decimal `json:"total"`
	Currency string          `json:"currency"`
}

func (c Cart) Empty() bool { return len(c.Items) == 0 }

// Service: cart dimiliki collaborator eksternal, core cuma baca + clear
// setelah order sukses dibuat.
type Service interface {
	GetCart(ctx context.Context, ref string) (Cart, error)
	ClearCart(ctx context.Context, ref string) error
}
