package orders

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/ariefcatur/go-checkout-core.git/internal/apperr"
	"github.com/ariefcatur/go-checkout-core.git/internal/cart"
	"github.com/ariefcatur/go-checkout-core.git/internal/history"
	"github.com/ariefcatur/go-checkout-core.git/internal/inventory"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type capturedEvent struct {
	Event   string
	Ref     string
	Payload any
}

type fakeNotifier struct {
	mu     sync.Mutex
	events []capturedEvent
}

func (f *fakeNotifier) Notify(_ context.Context, event, ref string, payload any) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, capturedEvent{Event: event, Ref: ref, Payload: payload})
}

func (f *fakeNotifier) byEvent(event string) []capturedEvent {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []capturedEvent
	for _, e := range f.events {
		if e.Event == event {
			out = append(out, e)
		}
	}
	return out
}

type factoryFixture struct {
	factory  *Factory
	carts    *cart.Memory
	ledger   *inventory.Ledger
	repo     *MemRepo
	notifier *fakeNotifier
	hist     *history.MemStore
}

func newFactoryFixture(t *testing.T, store inventory.Store) *factoryFixture {
	t.Helper()
	log := logrus.New()
	log.SetOutput(io.Discard)

	carts := cart.NewMemory()
	ledger := inventory.NewLedger(store, log)
	repo := NewMemRepo()
	hist := history.NewMemStore()
	notifier := &fakeNotifier{}
	factory := NewFactory(repo, ledger, carts, history.NewRecorder(hist, log), notifier, log, "ORD", 15*time.Minute)
	return &factoryFixture{factory: factory, carts: carts, ledger: ledger, repo: repo, notifier: notifier, hist: hist}
}

func testCart(items []cart.Item, tax, shipping, discount int64) cart.Cart {
	sub := decimal.Zero
	for _, it := range items {
		sub = sub.Add(it.UnitPrice.Mul(decimal.NewFromInt(int64(it.Qty))))
	}
	total := sub.Add(decimal.NewFromInt(tax)).Add(decimal.NewFromInt(shipping)).Sub(decimal.NewFromInt(discount))
	return cart.Cart{
		Ref:    "cart-1",
		UserID: "user-1",
		Items:  items,
		Subtotal: sub, Tax: decimal.NewFromInt(tax), Shipping: decimal.NewFromInt(shipping),
		Discount: decimal.NewFromInt(discount), Total: total, Currency: "USD",
	}
}

func testSnapshot() SessionSnapshot {
	addr := Address{
		FullName: "Arief Budi", Line1: "Jl. Sudirman 12", City: "Jakarta",
		PostalCode: "10110", Country: "ID",
	}
	return SessionSnapshot{
		ID: "sess-1", Status: "locked", CartRef: "cart-1", UserID: "user-1",
		ShippingAddress: addr, BillingAddress: addr,
	}
}

func TestCreateOrderFromCart(t *testing.T) {
	f := newFactoryFixture(t, inventory.NewMemStore())
	ctx := context.Background()
	_, err := f.ledger.Initialize(ctx, "sku-1", 10, "test")
	require.NoError(t, err)

	f.carts.Put(testCart([]cart.Item{
		{ProductID: "sku-1", SKU: "SKU-1", Name: "Widget", UnitPrice: decimal.NewFromInt(50), Qty: 2},
	}, 10, 5, 0))

	o, err := f.factory.CreateOrderFromCart(ctx, testSnapshot(), "customer")
	require.NoError(t, err)
	assert.Equal(t, StatusPending, o.Status)
	assert.Equal(t, PaymentUnpaid, o.PaymentStatus)
	assert.Equal(t, "115", o.Totals.Total.String())
	require.Len(t, o.Items, 1)
	assert.Equal(t, "100", o.Items[0].LineTotal.String())

	// stok jadi pengurangan permanen, tidak ada reservasi menggantung
	rec, err := f.ledger.Record(ctx, "sku-1")
	require.NoError(t, err)
	assert.Equal(t, 8, rec.QuantityOnHand)
	assert.Equal(t, 0, rec.QuantityReserved)

	// cart dibersihkan, event keluar, audit tertulis
	_, err = f.carts.GetCart(ctx, "cart-1")
	require.Error(t, err)
	require.Len(t, f.notifier.byEvent(EventOrderCreated), 1)
	entries, err := f.hist.List(ctx, history.Filter{OrderRef: o.ID})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, history.EventOrderCreated, entries[0].EventType)
}

func TestCreateOrderEmptyCart(t *testing.T) {
	f := newFactoryFixture(t, inventory.NewMemStore())
	f.carts.Put(testCart(nil, 0, 0, 0))

	_, err := f.factory.CreateOrderFromCart(context.Background(), testSnapshot(), "customer")
	require.Error(t, err)
	assert.True(t, apperr.IsKind(err, apperr.KindValidation))
	assert.Contains(t, err.Error(), "cart is empty")
}

func TestCreateOrderSessionStatusGuard(t *testing.T) {
	f := newFactoryFixture(t, inventory.NewMemStore())
	snap := testSnapshot()
	snap.Status = "completed"

	_, err := f.factory.CreateOrderFromCart(context.Background(), snap, "customer")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "session not completable")
}

func TestCreateOrderPriceMismatch(t *testing.T) {
	f := newFactoryFixture(t, inventory.NewMemStore())
	ctx := context.Background()
	_, err := f.ledger.Initialize(ctx, "sku-1", 10, "test")
	require.NoError(t, err)

	c := testCart([]cart.Item{
		{ProductID: "sku-1", SKU: "SKU-1", Name: "Widget", UnitPrice: decimal.NewFromInt(50), Qty: 2},
	}, 10, 5, 0)
	c.Total = decimal.NewFromInt(130) // klaim cart bohong, hitungan 115
	f.carts.Put(c)

	_, err = f.factory.CreateOrderFromCart(ctx, testSnapshot(), "customer")
	require.Error(t, err)
	assert.True(t, apperr.IsKind(err, apperr.KindInvariant))
	assert.Contains(t, err.Error(), "price mismatch")

	// reservasi yang sempat dipegang dilepas, order tidak tertulis
	rec, _ := f.ledger.Record(ctx, "sku-1")
	assert.Equal(t, 10, rec.QuantityOnHand)
	assert.Equal(t, 0, rec.QuantityReserved)
	got, err := f.repo.ListByUser(ctx, "user-1", 0)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestCreateOrderInsufficientInventory(t *testing.T) {
	f := newFactoryFixture(t, inventory.NewMemStore())
	ctx := context.Background()
	_, err := f.ledger.Initialize(ctx, "sku-1", 10, "test")
	require.NoError(t, err)
	_, err = f.ledger.Initialize(ctx, "sku-2", 1, "test")
	require.NoError(t, err)

	f.carts.Put(testCart([]cart.Item{
		{ProductID: "sku-1", SKU: "SKU-1", Name: "Widget", UnitPrice: decimal.NewFromInt(50), Qty: 2},
		{ProductID: "sku-2", SKU: "SKU-2", Name: "Gadget", UnitPrice: decimal.NewFromInt(20), Qty: 5},
	}, 0, 0, 0))

	_, err = f.factory.CreateOrderFromCart(ctx, testSnapshot(), "customer")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "insufficient inventory: sku-2")

	// line pertama yang sudah ter-reserve ikut dilepas
	rec, _ := f.ledger.Record(ctx, "sku-1")
	assert.Equal(t, 0, rec.QuantityReserved)
}

// consumeFailStore: gagalkan Apply pertama yang menyentuh reservation di
// produk tertentu (jalur konsumsi), sisanya diteruskan.
type consumeFailStore struct {
	*inventory.MemStore
	failProduct string
	mu          sync.Mutex
	tripped     bool
}

func (s *consumeFailStore) Apply(ctx context.Context, productID, reservationID string, fn inventory.ApplyFunc) error {
	s.mu.Lock()
	trip := productID == s.failProduct && reservationID != "" && !s.tripped
	if trip {
		s.tripped = true
	}
	s.mu.Unlock()
	if trip {
		return errors.New("storage offline")
	}
	return s.MemStore.Apply(ctx, productID, reservationID, fn)
}

func TestCreateOrderConsumeFailureRollsBack(t *testing.T) {
	store := &consumeFailStore{MemStore: inventory.NewMemStore(), failProduct: "sku-2"}
	f := newFactoryFixture(t, store)
	ctx := context.Background()
	_, err := f.ledger.Initialize(ctx, "sku-1", 10, "test")
	require.NoError(t, err)
	_, err = f.ledger.Initialize(ctx, "sku-2", 10, "test")
	require.NoError(t, err)

	f.carts.Put(testCart([]cart.Item{
		{ProductID: "sku-1", SKU: "SKU-1", Name: "Widget", UnitPrice: decimal.NewFromInt(50), Qty: 2},
		{ProductID: "sku-2", SKU: "SKU-2", Name: "Gadget", UnitPrice: decimal.NewFromInt(20), Qty: 3},
	}, 0, 0, 0))

	_, err = f.factory.CreateOrderFromCart(ctx, testSnapshot(), "customer")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "consume reservation")

	// sku-1 sudah terkonsumsi lalu di-reinstate + release; sku-2 di-release.
	// Dua-duanya kembali utuh, order setengah jadi terhapus.
	for _, sku := range []string{"sku-1", "sku-2"} {
		rec, err := f.ledger.Record(ctx, sku)
		require.NoError(t, err)
		assert.Equalf(t, 10, rec.QuantityOnHand, "%s on hand", sku)
		assert.Equalf(t, 0, rec.QuantityReserved, "%s reserved", sku)
	}
	got, err := f.repo.ListByUser(ctx, "user-1", 0)
	require.NoError(t, err)
	assert.Empty(t, got)
}
