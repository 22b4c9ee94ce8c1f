package orders

import (
	"context"
	"fmt"

	"github.com/ariefcatur/go-checkout-core.git/internal/apperr"
	"github.com/ariefcatur/go-checkout-core.git/internal/history"
	"github.com/sirupsen/logrus"
)

// AutomationRule: predicate/aksi yang dieksekusi saat order masuk status
// tertentu. Tabel rule eksplisit & terurut, di-inject saat konstruksi --
// bukan registry global -- supaya bisa diinspeksi dan diunit-test.
type AutomationRule struct {
	Name     string
	OnStatus Status
	// Critical: rule yang menyentuh inventory; gagalnya dilaporkan ke caller
	// sebagai warning. Non-critical (notifikasi) cuma di-log.
	Critical bool
	Run      func(ctx context.Context, o Order) error
}

// Engine menjalankan lifecycle order. Transisi dipersist dengan CAS, lalu
// rule otomasi jalan; gagalnya rule tidak pernah membatalkan transisi.
type Engine struct {
	Repo     Repo
	Rules    []AutomationRule
	Recorder *history.Recorder
	Log      logrus.FieldLogger
}

func NewEngine(repo Repo, rules []AutomationRule, rec *history.Recorder, log logrus.FieldLogger) *Engine {
	return &Engine{Repo: repo, Rules: rules, Recorder: rec, Log: log}
}

// ValidateStatusTransition: edge harus ada di tabel; refund juga boleh dari
// payment state paid.
func ValidateStatusTransition(o Order, to Status) error {
	if CanTransition(o.Status, to) {
		return nil
	}
	if to == StatusRefunded && o.PaymentStatus == PaymentPaid {
		return nil
	}
	return apperr.Newf(apperr.KindInvariant, "invalid status transition: %s -> %s", o.Status, to)
}

func (e *Engine) UpdateOrderStatus(ctx context.Context, orderID string, to Status, actor, notes string) (Order, []string, error) {
	o, err := e.Repo.GetOrder(ctx, orderID)
	if err != nil {
		return Order{}, nil, err
	}
	if err := ValidateStatusTransition(o, to); err != nil {
		return Order{}, nil, err
	}

	from := o.Status
	if err := e.Repo.UpdateStatus(ctx, o.ID, from, to); err != nil {
		return Order{}, nil, err
	}
	o.Status = to

	warnings := e.runRules(ctx, o)

	desc := fmt.Sprintf("status %s -> %s", from, to)
	if notes != "" {
		desc += ": " + notes
	}
	e.Recorder.StatusChanged(ctx, o.ID, actor, desc)
	if to == StatusShipped {
		e.Recorder.ShippingUpdated(ctx, o.ID, actor, fmt.Sprintf("tracking record created for %s", o.Number))
	}
	return o, warnings, nil
}

func (e *Engine) runRules(ctx context.Context, o Order) []string {
	var warnings []string
	for _, rule := range e.Rules {
		if rule.OnStatus != o.Status {
			continue
		}
		if err := rule.Run(ctx, o); err != nil {
			e.Log.WithError(err).WithFields(logrus.Fields{
				"rule": rule.Name, "order_id": o.ID, "status": o.Status,
			}).Warn("automation rule failed")
			if rule.Critical {
				warnings = append(warnings, fmt.Sprintf("%s: %v", rule.Name, err))
			}
		}
	}
	return warnings
}
