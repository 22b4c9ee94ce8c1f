package checkout

import (
	"context"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/ariefcatur/go-checkout-core.git/internal/apperr"
	"github.com/ariefcatur/go-checkout-core.git/internal/cart"
	"github.com/ariefcatur/go-checkout-core.git/internal/history"
	"github.com/ariefcatur/go-checkout-core.git/internal/inventory"
	"github.com/ariefcatur/go-checkout-core.git/internal/orders"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type noopNotifier struct{}

func (noopNotifier) Notify(context.Context, string, string, any) {}

type managerFixture struct {
	manager *Manager
	carts   *cart.Memory
	ledger  *inventory.Ledger
	repo    *orders.MemRepo
	store   *MemStore
}

func newManagerFixture(t *testing.T) *managerFixture {
	t.Helper()
	log := logrus.New()
	log.SetOutput(io.Discard)

	carts := cart.NewMemory()
	ledger := inventory.NewLedger(inventory.NewMemStore(), log)
	repo := orders.NewMemRepo()
	recorder := history.NewRecorder(history.NewMemStore(), log)
	factory := orders.NewFactory(repo, ledger, carts, recorder, noopNotifier{}, log, "ORD", 15*time.Minute)
	store := NewMemStore()
	manager := NewManager(store, carts, NewStructValidator(), factory, ledger, log, 30*time.Minute)
	return &managerFixture{manager: manager, carts: carts, ledger: ledger, repo: repo, store: store}
}

func validAddress() orders.Address {
	return orders.Address{
		FullName:   "Arief Budi",
		Line1:      "Jl. Sudirman 12",
		City:       "Jakarta",
		PostalCode: "10110",
		Country:    "ID",
	}
}

func (f *managerFixture) seedCart(t *testing.T, ref string, qty int) {
	t.Helper()
	unit := decimal.NewFromInt(50)
	sub := unit.Mul(decimal.NewFromInt(int64(qty)))
	f.carts.Put(cart.Cart{
		Ref:    ref,
		UserID: "user-1",
		Items: []cart.Item{
			{ProductID: "sku-1", SKU: "SKU-1", Name: "Widget", UnitPrice: unit, Qty: qty},
		},
		Subtotal: sub,
		Tax:      decimal.NewFromInt(10),
		Shipping: decimal.NewFromInt(5),
		Discount: decimal.Zero,
		Total:    sub.Add(decimal.NewFromInt(15)),
		Currency: "USD",
	})
}

// readySession: session yang semua step-nya sudah valid.
func (f *managerFixture) readySession(t *testing.T) Session {
	t.Helper()
	ctx := context.Background()
	f.seedCart(t, "cart-1", 2)
	_, err := f.ledger.Initialize(ctx, "sku-1", 10, "test")
	require.NoError(t, err)

	s, err := f.manager.CreateSession(ctx, "cart-1", "user-1")
	require.NoError(t, err)

	addr := validAddress()
	method := "standard"
	payMethod := "card"
	s, err = f.manager.UpdateSession(ctx, s.ID, Patch{
		ShippingAddress: &addr,
		BillingAddress:  &addr,
		ShippingMethod:  &method,
		PaymentMethod:   &payMethod,
	})
	require.NoError(t, err)
	return s
}

func TestCreateSession(t *testing.T) {
	f := newManagerFixture(t)
	ctx := context.Background()

	s, err := f.manager.CreateSession(ctx, "cart-1", "user-1")
	require.NoError(t, err)
	assert.Equal(t, StepCart, s.CurrentStep)
	assert.Equal(t, SessionActive, s.Status)
	assert.NotEmpty(t, s.Token)
	assert.True(t, s.ExpiresAt.After(time.Now()))

	_, err = f.manager.CreateSession(ctx, "", "user-1")
	require.Error(t, err)
	assert.True(t, apperr.IsKind(err, apperr.KindValidation))
}

func TestUpdateSessionStepProgression(t *testing.T) {
	f := newManagerFixture(t)
	ctx := context.Background()
	f.seedCart(t, "cart-1", 1)
	s, err := f.manager.CreateSession(ctx, "cart-1", "user-1")
	require.NoError(t, err)

	step := func(st Step) *Step { return &st }

	t.Run("SkipAheadRejected", func(t *testing.T) {
		_, err := f.manager.UpdateSession(ctx, s.ID, Patch{CurrentStep: step(StepBilling)})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid step progression")
	})

	t.Run("ForwardNeedsValidCurrentStep", func(t *testing.T) {
		// cart valid -> shipping boleh
		s2, err := f.manager.UpdateSession(ctx, s.ID, Patch{CurrentStep: step(StepShipping)})
		require.NoError(t, err)
		assert.Equal(t, StepShipping, s2.CurrentStep)

		// shipping belum diisi -> maju ke billing ditolak
		_, err = f.manager.UpdateSession(ctx, s.ID, Patch{CurrentStep: step(StepBilling)})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "incomplete")
	})

	t.Run("BackwardAlwaysAllowed", func(t *testing.T) {
		s2, err := f.manager.UpdateSession(ctx, s.ID, Patch{CurrentStep: step(StepCart)})
		require.NoError(t, err)
		assert.Equal(t, StepCart, s2.CurrentStep)
	})

	t.Run("PatchAndAdvanceTogether", func(t *testing.T) {
		addr := validAddress()
		method := "standard"
		_, err := f.manager.UpdateSession(ctx, s.ID, Patch{CurrentStep: step(StepShipping)})
		require.NoError(t, err)
		s2, err := f.manager.UpdateSession(ctx, s.ID, Patch{
			ShippingAddress: &addr,
			ShippingMethod:  &method,
			CurrentStep:     step(StepBilling),
		})
		require.NoError(t, err)
		assert.Equal(t, StepBilling, s2.CurrentStep)
	})
}

func TestValidateStep(t *testing.T) {
	f := newManagerFixture(t)
	ctx := context.Background()
	f.seedCart(t, "cart-1", 1)
	s, err := f.manager.CreateSession(ctx, "cart-1", "user-1")
	require.NoError(t, err)

	t.Run("BadAddressSurfacesFieldErrors", func(t *testing.T) {
		addr := validAddress()
		addr.Country = "Indonesia" // bukan alpha-2
		_, err := f.manager.UpdateSession(ctx, s.ID, Patch{ShippingAddress: &addr})
		require.NoError(t, err)

		v, err := f.manager.ValidateStep(ctx, s.ID, StepShipping)
		require.NoError(t, err)
		assert.False(t, v.IsValid)
		assert.NotEmpty(t, v.Errors)
	})

	t.Run("ConfirmationAggregatesAll", func(t *testing.T) {
		v, err := f.manager.ValidateStep(ctx, s.ID, StepConfirmation)
		require.NoError(t, err)
		assert.False(t, v.IsValid)
		assert.False(t, v.CanProceed) // step terakhir tidak pernah proceed
		assert.GreaterOrEqual(t, len(v.Errors), 2)
	})

	t.Run("UnknownStep", func(t *testing.T) {
		_, err := f.manager.ValidateStep(ctx, s.ID, Step("review"))
		require.Error(t, err)
		assert.True(t, apperr.IsKind(err, apperr.KindValidation))
	})
}

func TestAbandonSession(t *testing.T) {
	f := newManagerFixture(t)
	ctx := context.Background()
	f.seedCart(t, "cart-1", 1)
	s, err := f.manager.CreateSession(ctx, "cart-1", "user-1")
	require.NoError(t, err)

	require.NoError(t, f.manager.AbandonSession(ctx, s.ID))
	require.NoError(t, f.manager.AbandonSession(ctx, s.ID)) // dobel = no-op

	got, err := f.manager.GetSession(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, SessionAbandoned, got.Status)

	_, err = f.manager.CompleteSession(ctx, s.ID, "customer")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not completable")
}

func TestAbandonReleasesReservations(t *testing.T) {
	f := newManagerFixture(t)
	ctx := context.Background()
	s := f.readySession(t)

	// reservasi atas nama session, seolah complete gagal di tengah
	_, err := f.ledger.Reserve(ctx, "sku-1", 2, s.ID, time.Minute)
	require.NoError(t, err)

	require.NoError(t, f.manager.AbandonSession(ctx, s.ID))

	rec, err := f.ledger.Record(ctx, "sku-1")
	require.NoError(t, err)
	assert.Equal(t, 0, rec.QuantityReserved)
}

func TestCompleteSession(t *testing.T) {
	f := newManagerFixture(t)
	ctx := context.Background()
	s := f.readySession(t)

	o, err := f.manager.CompleteSession(ctx, s.ID, "customer")
	require.NoError(t, err)
	assert.Equal(t, orders.StatusPending, o.Status)
	assert.Equal(t, s.ID, o.SessionRef)
	assert.NotEmpty(t, o.Number)

	got, err := f.manager.GetSession(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, SessionCompleted, got.Status)
	assert.Equal(t, o.ID, got.OrderID)

	// stok terkonsumsi, cart terhapus
	rec, err := f.ledger.Record(ctx, "sku-1")
	require.NoError(t, err)
	assert.Equal(t, 8, rec.QuantityOnHand)
	assert.Equal(t, 0, rec.QuantityReserved)
	_, err = f.carts.GetCart(ctx, "cart-1")
	require.Error(t, err)

	t.Run("SecondCompleteRejected", func(t *testing.T) {
		_, err := f.manager.CompleteSession(ctx, s.ID, "customer")
		require.Error(t, err)
	})
}

func TestCompleteSessionIncomplete(t *testing.T) {
	f := newManagerFixture(t)
	ctx := context.Background()
	f.seedCart(t, "cart-1", 1)
	s, err := f.manager.CreateSession(ctx, "cart-1", "user-1")
	require.NoError(t, err)

	_, err = f.manager.CompleteSession(ctx, s.ID, "customer")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "session incomplete")

	got, _ := f.manager.GetSession(ctx, s.ID)
	assert.Equal(t, SessionActive, got.Status)
}

func TestCompleteSessionFactoryFailureUnlocks(t *testing.T) {
	f := newManagerFixture(t)
	ctx := context.Background()
	s := f.readySession(t)

	// rusakkan total cart -> factory menolak price mismatch
	c, err := f.carts.GetCart(ctx, "cart-1")
	require.NoError(t, err)
	c.Total = c.Total.Add(decimal.NewFromInt(10))
	f.carts.Put(c)

	_, err = f.manager.CompleteSession(ctx, s.ID, "customer")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "price mismatch")

	// session balik ke active, reservasi dilepas -> boleh retry
	got, err := f.manager.GetSession(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, SessionActive, got.Status)
	rec, _ := f.ledger.Record(ctx, "sku-1")
	assert.Equal(t, 0, rec.QuantityReserved)

	// perbaiki cart lalu retry sukses
	c.Total = c.Total.Sub(decimal.NewFromInt(10))
	f.carts.Put(c)
	_, err = f.manager.CompleteSession(ctx, s.ID, "customer")
	require.NoError(t, err)
}

func TestCompleteSessionConcurrent(t *testing.T) {
	f := newManagerFixture(t)
	ctx := context.Background()
	s := f.readySession(t)

	const attempts = 8
	var wg sync.WaitGroup
	errs := make(chan error, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.manager.CompleteSession(ctx, s.ID, "customer")
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	wins := 0
	for err := range errs {
		if err == nil {
			wins++
		}
	}
	assert.Equal(t, 1, wins, "satu session harus menghasilkan tepat satu order")

	got, err := f.repo.ListByUser(ctx, "user-1", 0)
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

func TestExpiredSession(t *testing.T) {
	f := newManagerFixture(t)
	ctx := context.Background()
	s := f.readySession(t)

	// majukan jam manager melewati expiry
	f.manager.Now = func() time.Time { return s.ExpiresAt.Add(time.Minute) }

	addr := validAddress()
	_, err := f.manager.UpdateSession(ctx, s.ID, Patch{ShippingAddress: &addr})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "session expired")

	_, err = f.manager.CompleteSession(ctx, s.ID, "customer")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "session expired")

	t.Run("SweepAbandons", func(t *testing.T) {
		n, err := f.manager.AbandonExpired(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, n)

		got, err := f.manager.GetSession(ctx, s.ID)
		require.NoError(t, err)
		assert.Equal(t, SessionAbandoned, got.Status)

		// pass berikutnya tidak menemukan apa-apa
		n, err = f.manager.AbandonExpired(ctx)
		require.NoError(t, err)
		assert.Equal(t, 0, n)
	})
}
