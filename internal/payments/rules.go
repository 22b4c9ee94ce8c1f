package payments

import (
	"context"
	"sort"

	"github.com/shopspring/decimal"
)

type RuleAction string

const (
	ActionAutoConfirm  RuleAction = "auto_confirm"
	ActionManualReview RuleAction = "manual_review"
)

// AutoRule: predicate + aksi, dievaluasi urut prioritas (besar duluan).
// Prioritas sama -> urutan deklarasi menang (sort stable), deterministik.
type AutoRule struct {
	Name     string
	Priority int
	Matches  func(p Payment) bool
	Action   RuleAction
}

// DefaultAutoRules: cash selalu manual review apa pun amount/trust-nya,
// makanya prioritas tertinggi.
func DefaultAutoRules(maxAmount decimal.Decimal, minTrust int) []AutoRule {
	return []AutoRule{
		{
			Name:     "cash-manual-review",
			Priority: 100,
			Matches:  func(p Payment) bool { return p.Method == "cash" },
			Action:   ActionManualReview,
		},
		{
			Name:     "small-amount-auto-confirm",
			Priority: 50,
			Matches:  func(p Payment) bool { return p.Amount.LessThanOrEqual(maxAmount) },
			Action:   ActionAutoConfirm,
		},
		{
			Name:     "trusted-customer-auto-confirm",
			Priority: 40,
			Matches:  func(p Payment) bool { return p.TrustScore >= minTrust },
			Action:   ActionAutoConfirm,
		},
	}
}

type RuleResult struct {
	Applied   *AutoRule `json:"-"`
	AppliedTo string    `json:"applied_rule,omitempty"`
	Action    RuleAction
	Evaluated []string `json:"evaluated_rules"`
}

// ProcessAutomatedConfirmationRules: terapkan maksimal satu rule (match
// prioritas tertinggi). Tanpa match -> balikan daftar rule yang dievaluasi,
// bukan error.
func (w *Workflow) ProcessAutomatedConfirmationRules(ctx context.Context, paymentRef, orderRef string) (RuleResult, error) {
	p, err := w.Payments.GetPayment(ctx, paymentRef)
	if err != nil {
		return RuleResult{}, err
	}

	rules := make([]AutoRule, len(w.Rules))
	copy(rules, w.Rules)
	sort.SliceStable(rules, func(i, j int) bool { return rules[i].Priority > rules[j].Priority })

	res := RuleResult{}
	for i := range rules {
		rule := rules[i]
		res.Evaluated = append(res.Evaluated, rule.Name)
		if res.Applied != nil || !rule.Matches(p) {
			continue
		}
		res.Applied = &rules[i]
		res.AppliedTo = rule.Name
		res.Action = rule.Action
	}
	if res.Applied == nil {
		return res, nil
	}

	switch res.Action {
	case ActionAutoConfirm:
		c, err := w.CreatePaymentConfirmation(ctx, paymentRef, orderRef, TypeAutomated)
		if err != nil {
			return res, err
		}
		if _, err := w.ConfirmPayment(ctx, c.ID, "auto:"+res.AppliedTo, "matched rule "+res.AppliedTo); err != nil {
			return res, err
		}
	case ActionManualReview:
		if _, err := w.CreatePaymentConfirmation(ctx, paymentRef, orderRef, TypeManual); err != nil {
			return res, err
		}
	}
	return res, nil
}
