package orders

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ariefcatur/go-checkout-core.git/internal/apperr"
	"github.com/ariefcatur/go-checkout-core.git/internal/cart"
	"github.com/ariefcatur/go-checkout-core.git/internal/history"
	"github.com/ariefcatur/go-checkout-core.git/internal/inventory"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// Toleransi pembulatan cek total cart vs hitung ulang.
var priceTolerance = decimal.NewFromFloat(0.01)

const maxNumberAttempts = 5

// SessionSnapshot: potongan checkout session yang dibutuhkan factory.
// Status string mentah supaya orders tidak perlu import checkout.
type SessionSnapshot struct {
	ID              string
	Status          string // "active" | "locked"
	CartRef         string
	UserID          string
	ShippingAddress Address
	BillingAddress  Address
}

// Factory membangun Order dari cart snapshot secara transaksional: reserve
// stok, validasi harga, tulis order+items, konsumsi reservasi. Gagal di
// tengah -> kompensasi penuh, tidak pernah setengah jadi.
type Factory struct {
	Repo     Repo
	Ledger   *inventory.Ledger
	Carts    cart.Service
	Recorder *history.Recorder
	Notifier Notifier
	Log      logrus.FieldLogger

	NumberPrefix   string
	ReservationTTL time.Duration
	Now            func() time.Time
}

func NewFactory(repo Repo, ledger *inventory.Ledger, carts cart.Service, rec *history.Recorder, notifier Notifier, log logrus.FieldLogger, prefix string, resTTL time.Duration) *Factory {
	return &Factory{
		Repo: repo, Ledger: ledger, Carts: carts, Recorder: rec, Notifier: notifier, Log: log,
		NumberPrefix: prefix, ReservationTTL: resTTL,
		Now: func() time.Time { return time.Now().UTC() },
	}
}

func (f *Factory) CreateOrderFromCart(ctx context.Context, sess SessionSnapshot, actor string) (Order, error) {
	// 1) session harus active/locked, cart tidak boleh kosong
	if sess.Status != "active" && sess.Status != "locked" {
		return Order{}, apperr.Newf(apperr.KindInvariant, "session not completable: status %s", sess.Status)
	}
	c, err := f.Carts.GetCart(ctx, sess.CartRef)
	if err != nil {
		return Order{}, err
	}
	if c.Empty() {
		return Order{}, apperr.New(apperr.KindValidation, "cart is empty")
	}

	// 2) reserve semua line; satu gagal -> lepas semua yang sudah dipegang
	held := make([]string, 0, len(c.Items))
	for _, line := range c.Items {
		res, err := f.Ledger.Reserve(ctx, line.ProductID, line.Qty, sess.ID, f.ReservationTTL)
		if err != nil {
			f.releaseAll(ctx, held, "reservation batch failed")
			return Order{}, err
		}
		held = append(held, res.ID)
	}

	// 3) hitung ulang total dari line data, bandingkan dengan klaim cart
	totals, err := recomputeTotals(c)
	if err != nil {
		f.releaseAll(ctx, held, "price check failed")
		return Order{}, err
	}

	// 4+5) nomor order + tulis order; collision astronomically rare tapi
	// tetap retry terbatas (cek dulu, insert bisa tetap kalah race)
	o := Order{
		ID:              uuid.NewString(),
		SessionRef:      sess.ID,
		UserID:          sess.UserID,
		Status:          StatusPending,
		PaymentStatus:   PaymentUnpaid,
		ShippingAddress: sess.ShippingAddress,
		BillingAddress:  sess.BillingAddress,
		Totals:          totals,
	}
	for _, line := range c.Items {
		o.Items = append(o.Items, Item{
			ID:        uuid.NewString(),
			OrderID:   o.ID,
			ProductID: line.ProductID,
			SKU:       line.SKU,
			Name:      line.Name,
			UnitPrice: line.UnitPrice,
			Qty:       line.Qty,
			LineTotal: line.UnitPrice.Mul(decimal.NewFromInt(int64(line.Qty))),
		})
	}

	created := false
	for attempt := 0; attempt < maxNumberAttempts; attempt++ {
		number, err := GenerateOrderNumber(f.NumberPrefix, f.Now())
		if err != nil {
			f.releaseAll(ctx, held, "order number generation failed")
			return Order{}, err
		}
		if taken, err := f.Repo.NumberExists(ctx, number); err != nil {
			f.releaseAll(ctx, held, "order number check failed")
			return Order{}, err
		} else if taken {
			continue
		}
		o.Number = number
		if err := f.Repo.CreateOrder(ctx, o); err != nil {
			if errors.Is(err, ErrNumberTaken) {
				continue
			}
			f.releaseAll(ctx, held, "order write failed")
			return Order{}, err
		}
		created = true
		break
	}
	if !created {
		f.releaseAll(ctx, held, "order number exhausted")
		return Order{}, apperr.Newf(apperr.KindInternal,
			"could not allocate unique order number after %d attempts", maxNumberAttempts)
	}

	// 6) konsumsi reservasi; gagal di tengah -> undo penuh
	var consumed []string
	for _, id := range held {
		if err := f.Ledger.Consume(ctx, id); err != nil {
			f.rollback(ctx, o.ID, consumed, held)
			return Order{}, fmt.Errorf("consume reservation: %w", err)
		}
		consumed = append(consumed, id)
	}

	// 7) audit + 8) clear cart: best-effort, tidak menggagalkan order
	f.Recorder.OrderCreated(ctx, o.ID, actor,
		fmt.Sprintf("order %s created from session %s, total %s %s", o.Number, sess.ID, totals.Total, totals.Currency))
	if err := f.Carts.ClearCart(ctx, sess.CartRef); err != nil {
		f.Log.WithError(err).WithField("cart_ref", sess.CartRef).Warn("cart clear failed")
	}

	items := make([]ItemQty, 0, len(o.Items))
	for _, it := range o.Items {
		items = append(items, ItemQty{ProductID: it.ProductID, Qty: it.Qty})
	}
	f.Notifier.Notify(ctx, EventOrderCreated, o.ID, OrderCreatedPayload{
		OrderID: o.ID, Number: o.Number, SessionRef: sess.ID, UserID: o.UserID,
		Items: items, Total: totals.Total, Currency: totals.Currency,
	})
	return o, nil
}

// recomputeTotals: pertahanan terhadap cart snapshot basi/dimanipulasi.
func recomputeTotals(c cart.Cart) (Totals, error) {
	subtotal := decimal.Zero
	for _, line := range c.Items {
		if line.Qty <= 0 {
			return Totals{}, apperr.Newf(apperr.KindValidation, "invalid qty for product %s", line.ProductID)
		}
		subtotal = subtotal.Add(line.UnitPrice.Mul(decimal.NewFromInt(int64(line.Qty))))
	}
	total := subtotal.Add(c.Tax).Add(c.Shipping).Sub(c.Discount)
	if total.Sub(c.Total).Abs().GreaterThan(priceTolerance) {
		return Totals{}, apperr.Newf(apperr.KindInvariant,
			"price mismatch: computed %s, cart says %s", total, c.Total)
	}
	return Totals{
		Subtotal: subtotal, Tax: c.Tax, Shipping: c.Shipping, Discount: c.Discount,
		Total: total, Currency: c.Currency,
	}, nil
}

func (f *Factory) releaseAll(ctx context.Context, reservationIDs []string, reason string) {
	for _, id := range reservationIDs {
		if err := f.Ledger.Release(ctx, id, reason); err != nil {
			f.Log.WithError(err).WithField("reservation_id", id).Error("compensating release failed")
		}
	}
}

// rollback: hapus order setengah jadi, kembalikan reservasi yang terlanjur
// dikonsumsi ke active, lalu release semuanya.
func (f *Factory) rollback(ctx context.Context, orderID string, consumed, held []string) {
	if err := f.Repo.DeleteOrder(ctx, orderID); err != nil {
		f.Log.WithError(err).WithField("order_id", orderID).Error("rollback delete failed")
	}
	for _, id := range consumed {
		if err := f.Ledger.Reinstate(ctx, id); err != nil {
			f.Log.WithError(err).WithField("reservation_id", id).Error("rollback reinstate failed")
		}
	}
	f.releaseAll(ctx, held, "order rollback")
}
