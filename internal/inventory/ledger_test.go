package inventory

import (
	"context"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/ariefcatur/go-checkout-core.git/internal/apperr"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLedger(t *testing.T) *Ledger {
	t.Helper()
	log := logrus.New()
	log.SetOutput(io.Discard)
	return NewLedger(NewMemStore(), log)
}

func TestInitialize(t *testing.T) {
	l := newTestLedger(t)
	ctx := context.Background()

	rec, err := l.Initialize(ctx, "sku-1", 10, "warehouse")
	require.NoError(t, err)
	assert.Equal(t, 10, rec.QuantityOnHand)
	assert.Equal(t, 0, rec.QuantityReserved)

	t.Run("DuplicateRejected", func(t *testing.T) {
		_, err := l.Initialize(ctx, "sku-1", 5, "warehouse")
		require.Error(t, err)
		assert.True(t, apperr.IsKind(err, apperr.KindConflict))
	})

	t.Run("NegativeRejected", func(t *testing.T) {
		_, err := l.Initialize(ctx, "sku-2", -1, "warehouse")
		require.Error(t, err)
		assert.True(t, apperr.IsKind(err, apperr.KindValidation))
	})

	hist, err := l.History(ctx, "sku-1")
	require.NoError(t, err)
	require.Len(t, hist, 1)
	assert.Equal(t, ActionInitialize, hist[0].Action)
	assert.Equal(t, 10, hist[0].QuantityChanged)
}

func TestAdjustQuantity(t *testing.T) {
	l := newTestLedger(t)
	ctx := context.Background()
	_, err := l.Initialize(ctx, "sku-1", 10, "warehouse")
	require.NoError(t, err)

	entry, err := l.AdjustQuantity(ctx, "sku-1", -3, "damaged", SourceManual, "op")
	require.NoError(t, err)
	assert.Equal(t, 10, entry.QuantityBefore)
	assert.Equal(t, 7, entry.QuantityAfter)
	assert.Equal(t, -3, entry.QuantityChanged)

	t.Run("CannotGoNegative", func(t *testing.T) {
		_, err := l.AdjustQuantity(ctx, "sku-1", -20, "oops", SourceManual, "op")
		require.Error(t, err)
		assert.True(t, apperr.IsKind(err, apperr.KindInvariant))
		assert.Contains(t, err.Error(), "insufficient inventory")

		rec, err := l.Record(ctx, "sku-1")
		require.NoError(t, err)
		assert.Equal(t, 7, rec.QuantityOnHand) // tidak berubah
	})

	t.Run("CannotUndercutReservations", func(t *testing.T) {
		_, err := l.Reserve(ctx, "sku-1", 5, "order-1", time.Minute)
		require.NoError(t, err)

		_, err = l.AdjustQuantity(ctx, "sku-1", -3, "shrinkage", SourceManual, "op")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "undercut reservations")
	})

	t.Run("ZeroDeltaRejected", func(t *testing.T) {
		_, err := l.AdjustQuantity(ctx, "sku-1", 0, "noop", SourceManual, "op")
		require.Error(t, err)
		assert.True(t, apperr.IsKind(err, apperr.KindValidation))
	})
}

func TestReserveAndRelease(t *testing.T) {
	l := newTestLedger(t)
	ctx := context.Background()
	_, err := l.Initialize(ctx, "sku-1", 5, "warehouse")
	require.NoError(t, err)

	res, err := l.Reserve(ctx, "sku-1", 3, "sess-1", time.Minute)
	require.NoError(t, err)
	assert.Equal(t, ReservationActive, res.Status)

	rec, err := l.Record(ctx, "sku-1")
	require.NoError(t, err)
	assert.Equal(t, 5, rec.QuantityOnHand) // reserve tidak menyentuh on-hand
	assert.Equal(t, 3, rec.QuantityReserved)
	assert.Equal(t, 2, rec.Available())

	t.Run("InsufficientAvailable", func(t *testing.T) {
		_, err := l.Reserve(ctx, "sku-1", 3, "sess-2", time.Minute)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "insufficient inventory")
	})

	t.Run("ReleaseIdempotent", func(t *testing.T) {
		require.NoError(t, l.Release(ctx, res.ID, "changed mind"))
		// release kedua: no-op, tidak error, tidak ada entry baru
		before, _ := l.History(ctx, "sku-1")
		require.NoError(t, l.Release(ctx, res.ID, "changed mind again"))
		after, _ := l.History(ctx, "sku-1")
		assert.Len(t, after, len(before))

		rec, err := l.Record(ctx, "sku-1")
		require.NoError(t, err)
		assert.Equal(t, 0, rec.QuantityReserved)
	})
}

func TestConsumeAndReinstate(t *testing.T) {
	l := newTestLedger(t)
	ctx := context.Background()
	_, err := l.Initialize(ctx, "sku-1", 5, "warehouse")
	require.NoError(t, err)

	res, err := l.Reserve(ctx, "sku-1", 2, "sess-1", time.Minute)
	require.NoError(t, err)

	require.NoError(t, l.Consume(ctx, res.ID))
	rec, _ := l.Record(ctx, "sku-1")
	assert.Equal(t, 3, rec.QuantityOnHand)
	assert.Equal(t, 0, rec.QuantityReserved)

	t.Run("ConsumeTwiceFails", func(t *testing.T) {
		err := l.Consume(ctx, res.ID)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "reservation not active")
	})

	t.Run("ReinstateRestores", func(t *testing.T) {
		require.NoError(t, l.Reinstate(ctx, res.ID))
		rec, _ := l.Record(ctx, "sku-1")
		assert.Equal(t, 5, rec.QuantityOnHand)
		assert.Equal(t, 2, rec.QuantityReserved)

		got, err := l.Store.GetReservation(ctx, res.ID)
		require.NoError(t, err)
		assert.Equal(t, ReservationActive, got.Status)
	})
}

func TestReleaseByOwner(t *testing.T) {
	l := newTestLedger(t)
	ctx := context.Background()
	_, err := l.Initialize(ctx, "sku-1", 10, "warehouse")
	require.NoError(t, err)

	_, err = l.Reserve(ctx, "sku-1", 2, "sess-1", time.Minute)
	require.NoError(t, err)
	_, err = l.Reserve(ctx, "sku-1", 3, "sess-1", time.Minute)
	require.NoError(t, err)
	_, err = l.Reserve(ctx, "sku-1", 1, "sess-2", time.Minute)
	require.NoError(t, err)

	n, err := l.ReleaseByOwner(ctx, "sess-1", "session abandoned")
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	rec, _ := l.Record(ctx, "sku-1")
	assert.Equal(t, 1, rec.QuantityReserved) // sess-2 tidak tersentuh
}

func TestConcurrentReserveLastUnit(t *testing.T) {
	l := newTestLedger(t)
	ctx := context.Background()
	_, err := l.Initialize(ctx, "sku-1", 1, "warehouse")
	require.NoError(t, err)

	const attempts = 16
	var wg sync.WaitGroup
	results := make(chan error, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := l.Reserve(ctx, "sku-1", 1, "sess-x", time.Minute)
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	wins := 0
	for err := range results {
		if err == nil {
			wins++
		}
	}
	assert.Equal(t, 1, wins)

	rec, _ := l.Record(ctx, "sku-1")
	assert.Equal(t, 1, rec.QuantityReserved)
}

func TestReleaseExpired(t *testing.T) {
	l := newTestLedger(t)
	ctx := context.Background()
	_, err := l.Initialize(ctx, "sku-1", 5, "warehouse")
	require.NoError(t, err)

	_, err = l.Reserve(ctx, "sku-1", 2, "sess-old", -time.Minute) // sudah lewat
	require.NoError(t, err)
	fresh, err := l.Reserve(ctx, "sku-1", 1, "sess-new", time.Hour)
	require.NoError(t, err)

	n, err := l.ReleaseExpired(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	rec, _ := l.Record(ctx, "sku-1")
	assert.Equal(t, 1, rec.QuantityReserved)

	got, err := l.Store.GetReservation(ctx, fresh.ID)
	require.NoError(t, err)
	assert.Equal(t, ReservationActive, got.Status)

	// sweep kedua tidak menemukan apa-apa
	n, err = l.ReleaseExpired(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestHistoryBalances(t *testing.T) {
	l := newTestLedger(t)
	ctx := context.Background()
	_, err := l.Initialize(ctx, "sku-1", 10, "warehouse")
	require.NoError(t, err)

	res, err := l.Reserve(ctx, "sku-1", 4, "sess-1", time.Minute)
	require.NoError(t, err)
	require.NoError(t, l.Consume(ctx, res.ID))
	_, err = l.AdjustQuantity(ctx, "sku-1", 2, "restock", SourceReturn, "op")
	require.NoError(t, err)

	hist, err := l.History(ctx, "sku-1")
	require.NoError(t, err)
	require.Len(t, hist, 4)
	for _, e := range hist {
		assert.Equalf(t, e.QuantityAfter, e.QuantityBefore+e.QuantityChanged,
			"entry %s/%s out of balance", e.Action, e.ID)
	}
}
