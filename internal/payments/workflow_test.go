package payments

import (
	"context"
	"io"
	"sync"
	"testing"

	"github.com/ariefcatur/go-checkout-core.git/internal/apperr"
	"github.com/ariefcatur/go-checkout-core.git/internal/history"
	"github.com/ariefcatur/go-checkout-core.git/internal/inventory"
	"github.com/ariefcatur/go-checkout-core.git/internal/orders"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePayments struct {
	mu       sync.Mutex
	payments map[string]Payment
	updates  []string
}

func newFakePayments() *fakePayments {
	return &fakePayments{payments: map[string]Payment{}}
}

func (f *fakePayments) put(p Payment) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.payments[p.Ref] = p
}

func (f *fakePayments) GetPayment(_ context.Context, ref string) (Payment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.payments[ref]
	if !ok {
		return Payment{}, apperr.Newf(apperr.KindNotFound, "payment not found: %s", ref)
	}
	return p, nil
}

func (f *fakePayments) UpdatePaymentStatus(_ context.Context, ref, status, _ string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updates = append(f.updates, ref+":"+status)
	return nil
}

type testNotifier struct {
	mu     sync.Mutex
	events []string
}

func (n *testNotifier) Notify(_ context.Context, event, _ string, _ any) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, event)
}

func (n *testNotifier) count(event string) int {
	n.mu.Lock()
	defer n.mu.Unlock()
	c := 0
	for _, e := range n.events {
		if e == event {
			c++
		}
	}
	return c
}

type workflowFixture struct {
	workflow *Workflow
	store    *MemStore
	pay      *fakePayments
	repo     *orders.MemRepo
	notifier *testNotifier
}

func newWorkflowFixture(t *testing.T) *workflowFixture {
	t.Helper()
	log := logrus.New()
	log.SetOutput(io.Discard)

	store := NewMemStore()
	pay := newFakePayments()
	repo := orders.NewMemRepo()
	notifier := &testNotifier{}
	ledger := inventory.NewLedger(inventory.NewMemStore(), log)
	recorder := history.NewRecorder(history.NewMemStore(), log)
	engine := orders.NewEngine(repo, orders.DefaultRules(repo, ledger, notifier), recorder, log)
	rules := DefaultAutoRules(decimal.NewFromInt(100), 80)
	workflow := NewWorkflow(store, pay, engine, repo, recorder, notifier, rules, log)
	return &workflowFixture{workflow: workflow, store: store, pay: pay, repo: repo, notifier: notifier}
}

func (f *workflowFixture) seedPayment(ref string, amount int64, method string, trust int) {
	f.pay.put(Payment{
		Ref: ref, Amount: decimal.NewFromInt(amount), Status: "settled",
		UserID: "user-1", Method: method, TrustScore: trust,
	})
}

func (f *workflowFixture) seedOrder(t *testing.T, id string) {
	t.Helper()
	require.NoError(t, f.repo.CreateOrder(context.Background(), orders.Order{
		ID: id, Number: "ORD-20260830-" + id, SessionRef: "sess-" + id,
		UserID: "user-1", Status: orders.StatusPending, PaymentStatus: orders.PaymentUnpaid,
	}))
}

func TestCreatePaymentConfirmation(t *testing.T) {
	f := newWorkflowFixture(t)
	ctx := context.Background()
	f.seedPayment("pay-1", 250, "transfer", 10)

	c, err := f.workflow.CreatePaymentConfirmation(ctx, "pay-1", "order-1", TypeManual)
	require.NoError(t, err)
	assert.Equal(t, ConfirmationPending, c.Status)
	assert.Equal(t, TypeManual, c.Type)

	hist, err := f.store.History(ctx, c.ID)
	require.NoError(t, err)
	require.Len(t, hist, 1)
	assert.Equal(t, "created", hist[0].Action)

	t.Run("DuplicateOpenRejected", func(t *testing.T) {
		_, err := f.workflow.CreatePaymentConfirmation(ctx, "pay-1", "order-1", TypeManual)
		require.Error(t, err)
		assert.True(t, apperr.IsKind(err, apperr.KindConflict))
		assert.Contains(t, err.Error(), "already open")
	})

	t.Run("UnknownPaymentRejected", func(t *testing.T) {
		_, err := f.workflow.CreatePaymentConfirmation(ctx, "pay-x", "order-1", TypeManual)
		require.Error(t, err)
		assert.True(t, apperr.IsKind(err, apperr.KindNotFound))
	})
}

func TestConfirmPayment(t *testing.T) {
	f := newWorkflowFixture(t)
	ctx := context.Background()
	f.seedPayment("pay-1", 250, "transfer", 10)
	f.seedOrder(t, "order-1")

	c, err := f.workflow.CreatePaymentConfirmation(ctx, "pay-1", "order-1", TypeManual)
	require.NoError(t, err)

	got, err := f.workflow.ConfirmPayment(ctx, c.ID, "admin", "verified")
	require.NoError(t, err)
	assert.Equal(t, ConfirmationConfirmed, got.Status)

	// order ikut terdorong ke confirmed + event utk reconciler
	o, err := f.repo.GetOrder(ctx, "order-1")
	require.NoError(t, err)
	assert.Equal(t, orders.StatusConfirmed, o.Status)
	assert.Equal(t, 1, f.notifier.count(orders.EventPaymentConfirmed))

	t.Run("ConfirmTwiceRejectedWithoutDuplicateHistory", func(t *testing.T) {
		_, err := f.workflow.ConfirmPayment(ctx, c.ID, "admin", "again")
		require.Error(t, err)
		assert.True(t, apperr.IsKind(err, apperr.KindInvariant))
		assert.Contains(t, err.Error(), "not in pending status")

		hist, err := f.store.History(ctx, c.ID)
		require.NoError(t, err)
		assert.Len(t, hist, 2) // created + confirm, tidak nambah
	})
}

func TestRejectThenRetry(t *testing.T) {
	f := newWorkflowFixture(t)
	ctx := context.Background()
	f.seedPayment("pay-1", 250, "transfer", 10)

	c, err := f.workflow.CreatePaymentConfirmation(ctx, "pay-1", "", TypeManual)
	require.NoError(t, err)

	got, err := f.workflow.RejectPayment(ctx, c.ID, "admin", "proof unreadable")
	require.NoError(t, err)
	assert.Equal(t, ConfirmationRejected, got.Status)

	got, err = f.workflow.RetryConfirmation(ctx, c.ID, "admin", "new proof uploaded")
	require.NoError(t, err)
	assert.Equal(t, ConfirmationPending, got.Status)

	t.Run("RetryOnlyFromRejectedOrFailed", func(t *testing.T) {
		_, err := f.workflow.RetryConfirmation(ctx, c.ID, "admin", "")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "cannot retry")
	})
}

func TestCancelConfirmation(t *testing.T) {
	f := newWorkflowFixture(t)
	ctx := context.Background()
	f.seedPayment("pay-1", 250, "transfer", 10)

	c, err := f.workflow.CreatePaymentConfirmation(ctx, "pay-1", "", TypeManual)
	require.NoError(t, err)
	got, err := f.workflow.CancelConfirmation(ctx, c.ID, "admin", "order abandoned")
	require.NoError(t, err)
	assert.Equal(t, ConfirmationCancelled, got.Status)

	t.Run("TerminalCannotCancel", func(t *testing.T) {
		_, err := f.workflow.CancelConfirmation(ctx, c.ID, "admin", "")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "cannot cancel")
	})
}

func TestMarkPaidAndRefund(t *testing.T) {
	f := newWorkflowFixture(t)
	ctx := context.Background()
	f.seedPayment("pay-1", 250, "transfer", 10)
	f.seedOrder(t, "order-1")

	c, err := f.workflow.CreatePaymentConfirmation(ctx, "pay-1", "order-1", TypeManual)
	require.NoError(t, err)
	_, err = f.workflow.ConfirmPayment(ctx, c.ID, "admin", "")
	require.NoError(t, err)

	got, err := f.workflow.MarkPaid(ctx, c.ID, "gateway")
	require.NoError(t, err)
	assert.Equal(t, ConfirmationPaid, got.Status)

	o, _ := f.repo.GetOrder(ctx, "order-1")
	assert.Equal(t, orders.PaymentPaid, o.PaymentStatus)

	t.Run("RefundFlowsToOrder", func(t *testing.T) {
		got, err := f.workflow.Refund(ctx, c.ID, "admin", "chargeback")
		require.NoError(t, err)
		assert.Equal(t, ConfirmationRefunded, got.Status)

		o, _ := f.repo.GetOrder(ctx, "order-1")
		assert.Equal(t, orders.StatusRefunded, o.Status)
		assert.Equal(t, orders.PaymentRefunded, o.PaymentStatus)
	})
}

func TestGetConfirmationWithHistory(t *testing.T) {
	f := newWorkflowFixture(t)
	ctx := context.Background()
	f.seedPayment("pay-1", 250, "transfer", 10)

	c, err := f.workflow.CreatePaymentConfirmation(ctx, "pay-1", "", TypeManual)
	require.NoError(t, err)
	_, err = f.workflow.RejectPayment(ctx, c.ID, "admin", "bad proof")
	require.NoError(t, err)

	got, hist, err := f.workflow.GetConfirmation(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, ConfirmationRejected, got.Status)
	require.Len(t, hist, 2)
	assert.Equal(t, "created", hist[0].Action)
	assert.Equal(t, "reject", hist[1].Action)
}
