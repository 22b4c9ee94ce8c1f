package payments

import (
	"context"
	"fmt"
	"time"

	"github.com/ariefcatur/go-checkout-core.git/internal/apperr"
	"github.com/ariefcatur/go-checkout-core.git/internal/history"
	"github.com/ariefcatur/go-checkout-core.git/internal/orders"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Workflow menjalankan lifecycle confirmation record. Confirmation adalah
// source of truth; dorongan status order yang gagal cuma di-log + di-publish
// supaya reconciler menyusul, tidak pernah membatalkan konfirmasi.
type Workflow struct {
	Store    Store
	Payments Service
	Engine   *orders.Engine
	Orders   orders.Repo
	Recorder *history.Recorder
	Notifier orders.Notifier
	Rules    []AutoRule
	Log      logrus.FieldLogger
	Now      func() time.Time
}

func NewWorkflow(store Store, pay Service, engine *orders.Engine, repo orders.Repo, rec *history.Recorder, notifier orders.Notifier, rules []AutoRule, log logrus.FieldLogger) *Workflow {
	return &Workflow{
		Store: store, Payments: pay, Engine: engine, Orders: repo,
		Recorder: rec, Notifier: notifier, Rules: rules, Log: log,
		Now: func() time.Time { return time.Now().UTC() },
	}
}

// CreatePaymentConfirmation: satu payment maksimal satu confirmation yang
// masih terbuka (pending/confirmed).
func (w *Workflow) CreatePaymentConfirmation(ctx context.Context, paymentRef, orderRef string, ctype ConfirmationType) (Confirmation, error) {
	if paymentRef == "" {
		return Confirmation{}, apperr.New(apperr.KindValidation, "payment ref required")
	}
	if _, err := w.Payments.GetPayment(ctx, paymentRef); err != nil {
		return Confirmation{}, err
	}
	open, err := w.Store.OpenExists(ctx, paymentRef)
	if err != nil {
		return Confirmation{}, err
	}
	if open {
		return Confirmation{}, apperr.Newf(apperr.KindConflict,
			"confirmation already open for payment %s", paymentRef)
	}
	c := Confirmation{
		ID:         uuid.NewString(),
		PaymentRef: paymentRef,
		OrderRef:   orderRef,
		Status:     ConfirmationPending,
		Type:       ctype,
	}
	if err := w.Store.Create(ctx, c); err != nil {
		return Confirmation{}, err
	}
	w.appendHistory(ctx, c.ID, "created", ConfirmationPending, "system", "")
	return c, nil
}

// ConfirmPayment butuh status pending. CAS dulu, history belakangan --
// panggilan kedua gagal conflict tanpa nambah entry dobel.
func (w *Workflow) ConfirmPayment(ctx context.Context, id, actor, notes string) (Confirmation, error) {
	c, err := w.Store.Get(ctx, id)
	if err != nil {
		return Confirmation{}, err
	}
	if c.Status != ConfirmationPending {
		return Confirmation{}, apperr.Newf(apperr.KindInvariant,
			"not in pending status: %s", c.Status)
	}
	if err := w.Store.CASStatus(ctx, id, ConfirmationPending, ConfirmationConfirmed); err != nil {
		return Confirmation{}, err
	}
	c.Status = ConfirmationConfirmed
	w.appendHistory(ctx, c.ID, "confirm", ConfirmationConfirmed, actor, notes)

	if err := w.Payments.UpdatePaymentStatus(ctx, c.PaymentRef, "confirmed", actor); err != nil {
		w.Log.WithError(err).WithField("payment_ref", c.PaymentRef).Warn("payment collaborator update failed")
	}
	w.pushOrderStatus(ctx, c, orders.StatusConfirmed, orders.EventPaymentConfirmed, actor, notes)
	w.Recorder.PaymentUpdated(ctx, c.OrderRef, actor,
		fmt.Sprintf("payment %s confirmed", c.PaymentRef))
	return c, nil
}

func (w *Workflow) RejectPayment(ctx context.Context, id, actor, notes string) (Confirmation, error) {
	return w.transition(ctx, id, ConfirmationPending, ConfirmationRejected, "reject", actor, notes)
}

func (w *Workflow) CancelConfirmation(ctx context.Context, id, actor, notes string) (Confirmation, error) {
	c, err := w.Store.Get(ctx, id)
	if err != nil {
		return Confirmation{}, err
	}
	if !CanTransition(c.Status, ConfirmationCancelled) {
		return Confirmation{}, apperr.Newf(apperr.KindInvariant,
			"cannot cancel confirmation in %s status", c.Status)
	}
	return w.transition(ctx, id, c.Status, ConfirmationCancelled, "cancel", actor, notes)
}

// RetryConfirmation: rejected/failed balik ke pending utk percobaan ulang.
func (w *Workflow) RetryConfirmation(ctx context.Context, id, actor, notes string) (Confirmation, error) {
	c, err := w.Store.Get(ctx, id)
	if err != nil {
		return Confirmation{}, err
	}
	if c.Status != ConfirmationRejected && c.Status != ConfirmationFailed {
		return Confirmation{}, apperr.Newf(apperr.KindInvariant,
			"cannot retry confirmation in %s status", c.Status)
	}
	return w.transition(ctx, id, c.Status, ConfirmationPending, "retry", actor, notes)
}

func (w *Workflow) MarkPaid(ctx context.Context, id, actor string) (Confirmation, error) {
	c, err := w.transition(ctx, id, ConfirmationConfirmed, ConfirmationPaid, "paid", actor, "")
	if err != nil {
		return Confirmation{}, err
	}
	if c.OrderRef != "" {
		if err := w.Orders.UpdatePaymentStatus(ctx, c.OrderRef, orders.PaymentPaid); err != nil {
			w.Log.WithError(err).WithField("order_ref", c.OrderRef).Warn("order payment status update failed")
		}
	}
	w.Recorder.PaymentUpdated(ctx, c.OrderRef, actor, fmt.Sprintf("payment %s paid", c.PaymentRef))
	return c, nil
}

func (w *Workflow) Refund(ctx context.Context, id, actor, notes string) (Confirmation, error) {
	c, err := w.transition(ctx, id, ConfirmationPaid, ConfirmationRefunded, "refund", actor, notes)
	if err != nil {
		return Confirmation{}, err
	}
	w.pushOrderStatus(ctx, c, orders.StatusRefunded, orders.EventOrderRefunded, actor, notes)
	w.Recorder.PaymentUpdated(ctx, c.OrderRef, actor, fmt.Sprintf("payment %s refunded", c.PaymentRef))
	return c, nil
}

func (w *Workflow) GetConfirmation(ctx context.Context, id string) (Confirmation, []HistoryItem, error) {
	c, err := w.Store.Get(ctx, id)
	if err != nil {
		return Confirmation{}, nil, err
	}
	h, err := w.Store.History(ctx, id)
	if err != nil {
		return Confirmation{}, nil, err
	}
	return c, h, nil
}

func (w *Workflow) transition(ctx context.Context, id string, from, to ConfirmationStatus, action, actor, notes string) (Confirmation, error) {
	c, err := w.Store.Get(ctx, id)
	if err != nil {
		return Confirmation{}, err
	}
	if c.Status != from {
		return Confirmation{}, apperr.Newf(apperr.KindInvariant, "not in %s status: %s", from, c.Status)
	}
	if err := w.Store.CASStatus(ctx, id, from, to); err != nil {
		return Confirmation{}, err
	}
	c.Status = to
	w.appendHistory(ctx, c.ID, action, to, actor, notes)
	return c, nil
}

// pushOrderStatus: downstream gagal -> log + publish event supaya
// reconciler menyamakan nanti; konfirmasi tidak di-revert.
func (w *Workflow) pushOrderStatus(ctx context.Context, c Confirmation, to orders.Status, event, actor, notes string) {
	if c.OrderRef == "" {
		return
	}
	if _, _, err := w.Engine.UpdateOrderStatus(ctx, c.OrderRef, to, actor, notes); err != nil {
		w.Log.WithError(err).WithFields(logrus.Fields{
			"order_ref": c.OrderRef, "to": to,
		}).Warn("order status push failed; reconciler will retry")
	}
	w.Notifier.Notify(ctx, event, c.OrderRef, orders.PaymentConfirmedPayload{
		OrderRef: c.OrderRef, PaymentRef: c.PaymentRef, Actor: actor,
	})
}

func (w *Workflow) appendHistory(ctx context.Context, confirmationID, action string, status ConfirmationStatus, actor, notes string) {
	h := HistoryItem{
		ID:             uuid.NewString(),
		ConfirmationID: confirmationID,
		Action:         action,
		Status:         status,
		Actor:          actor,
		Notes:          notes,
		CreatedAt:      w.Now(),
	}
	if err := w.Store.AppendHistory(ctx, h); err != nil {
		w.Log.WithError(err).WithField("confirmation_id", confirmationID).Error("confirmation history write failed")
	}
}
