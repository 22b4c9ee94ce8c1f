package checkout

import (
	"context"
	"time"

	"github.com/ariefcatur/go-checkout-core.git/internal/apperr"
	"github.com/ariefcatur/go-checkout-core.git/internal/cart"
	"github.com/ariefcatur/go-checkout-core.git/internal/inventory"
	"github.com/ariefcatur/go-checkout-core.git/internal/orders"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// AddressValidator: collaborator eksternal; balikan slice pesan error,
// kosong = valid.
type AddressValidator interface {
	Validate(addr orders.Address) []string
}

// Manager menjalankan state machine step/status checkout session dan
// handoff session -> order lewat Factory.
type Manager struct {
	Store     Store
	Carts     cart.Service
	Addresses AddressValidator
	Factory   *orders.Factory
	Ledger    *inventory.Ledger
	Log       logrus.FieldLogger

	SessionTTL time.Duration
	Now        func() time.Time
}

func NewManager(store Store, carts cart.Service, addrs AddressValidator, factory *orders.Factory, ledger *inventory.Ledger, log logrus.FieldLogger, ttl time.Duration) *Manager {
	return &Manager{
		Store: store, Carts: carts, Addresses: addrs, Factory: factory, Ledger: ledger,
		Log: log, SessionTTL: ttl,
		Now: func() time.Time { return time.Now().UTC() },
	}
}

func (m *Manager) CreateSession(ctx context.Context, cartRef, userID string) (Session, error) {
	if cartRef == "" {
		return Session{}, apperr.New(apperr.KindValidation, "cart ref required")
	}
	s := Session{
		ID:          uuid.NewString(),
		Token:       uuid.NewString(),
		CartRef:     cartRef,
		UserID:      userID,
		CurrentStep: StepCart,
		Status:      SessionActive,
		ExpiresAt:   m.Now().Add(m.SessionTTL),
	}
	if err := m.Store.Create(ctx, s); err != nil {
		return Session{}, err
	}
	return s, nil
}

func (m *Manager) GetSession(ctx context.Context, id string) (Session, error) {
	return m.Store.Get(ctx, id)
}

// UpdateSession: patch address/method bebas selama session active; ganti
// step tunduk progression rule (maju +1 hanya kalau step sekarang lolos
// validasi, mundur bebas, lompat maju ditolak).
func (m *Manager) UpdateSession(ctx context.Context, id string, p Patch) (Session, error) {
	s, err := m.Store.Get(ctx, id)
	if err != nil {
		return Session{}, err
	}
	if s.Status != SessionActive {
		return Session{}, apperr.Newf(apperr.KindConflict, "session not active: %s", s.Status)
	}
	if m.expired(s) {
		return Session{}, apperr.New(apperr.KindInvariant, "session expired")
	}

	if p.ShippingAddress != nil {
		s.ShippingAddress = p.ShippingAddress
	}
	if p.BillingAddress != nil {
		s.BillingAddress = p.BillingAddress
	}
	if p.ShippingMethod != nil {
		s.ShippingMethod = *p.ShippingMethod
	}
	if p.PaymentMethod != nil {
		s.PaymentMethod = *p.PaymentMethod
	}

	if p.CurrentStep != nil && *p.CurrentStep != s.CurrentStep {
		to := *p.CurrentStep
		if !IsValidStepProgression(s.CurrentStep, to) {
			return Session{}, apperr.Newf(apperr.KindValidation,
				"invalid step progression: %s -> %s", s.CurrentStep, to)
		}
		if stepIndex(to) > stepIndex(s.CurrentStep) {
			v := m.validate(ctx, s, s.CurrentStep)
			if !v.CanProceed {
				return Session{}, apperr.Newf(apperr.KindValidation,
					"step %s incomplete: %v", s.CurrentStep, v.Errors)
			}
		}
		s.CurrentStep = to
	}

	if err := m.Store.Update(ctx, s, SessionActive); err != nil {
		return Session{}, err
	}
	return s, nil
}

func (m *Manager) ValidateStep(ctx context.Context, id string, step Step) (StepValidation, error) {
	s, err := m.Store.Get(ctx, id)
	if err != nil {
		return StepValidation{}, err
	}
	if stepIndex(step) < 0 {
		return StepValidation{}, apperr.Newf(apperr.KindValidation, "unknown step: %s", step)
	}
	return m.validate(ctx, s, step), nil
}

func (m *Manager) validate(ctx context.Context, s Session, step Step) StepValidation {
	v := StepValidation{Step: step}
	switch step {
	case StepCart:
		c, err := m.Carts.GetCart(ctx, s.CartRef)
		if err != nil {
			v.Errors = append(v.Errors, "cart unavailable")
		} else if c.Empty() {
			v.Errors = append(v.Errors, "cart is empty")
		}
	case StepShipping:
		if s.ShippingAddress == nil {
			v.Errors = append(v.Errors, "shipping address required")
		} else {
			v.Errors = append(v.Errors, m.Addresses.Validate(*s.ShippingAddress)...)
		}
		if s.ShippingMethod == "" {
			v.Errors = append(v.Errors, "shipping method required")
		}
	case StepBilling:
		if s.BillingAddress == nil {
			v.Errors = append(v.Errors, "billing address required")
		} else {
			v.Errors = append(v.Errors, m.Addresses.Validate(*s.BillingAddress)...)
		}
	case StepPayment:
		if s.PaymentMethod == "" {
			v.Errors = append(v.Errors, "payment method required")
		}
	case StepConfirmation:
		// step terakhir: semua step sebelumnya harus beres
		for _, prev := range stepOrder[:len(stepOrder)-1] {
			pv := m.validate(ctx, s, prev)
			if !pv.IsValid {
				v.Errors = append(v.Errors, pv.Errors...)
			}
		}
	}
	v.IsValid = len(v.Errors) == 0
	v.CanProceed = v.IsValid && step != StepConfirmation
	return v
}

// AbandonSession: gagal hanya kalau sudah completed; abandon dobel = no-op.
func (m *Manager) AbandonSession(ctx context.Context, id string) error {
	s, err := m.Store.Get(ctx, id)
	if err != nil {
		return err
	}
	switch s.Status {
	case SessionCompleted:
		return apperr.New(apperr.KindInvariant, "session already completed")
	case SessionAbandoned:
		return nil
	}
	if err := m.Store.CASStatus(ctx, id, s.Status, SessionAbandoned); err != nil {
		return err
	}
	if _, err := m.Ledger.ReleaseByOwner(ctx, s.ID, "session abandoned"); err != nil {
		m.Log.WithError(err).WithField("session_id", s.ID).Warn("release after abandon failed")
	}
	return nil
}

// CompleteSession: flip active -> locked secara atomik; request complete
// kedua yang datang bersamaan melihat locked dan ditolak conflict, jadi satu
// session tidak pernah menghasilkan dua order.
func (m *Manager) CompleteSession(ctx context.Context, id, actor string) (orders.Order, error) {
	s, err := m.Store.Get(ctx, id)
	if err != nil {
		return orders.Order{}, err
	}
	if s.Status.Terminal() {
		return orders.Order{}, apperr.Newf(apperr.KindInvariant, "session not completable: %s", s.Status)
	}
	if m.expired(s) {
		return orders.Order{}, apperr.New(apperr.KindInvariant, "session expired")
	}
	if v := m.validate(ctx, s, StepConfirmation); !v.IsValid {
		return orders.Order{}, apperr.Newf(apperr.KindValidation, "session incomplete: %v", v.Errors)
	}

	if err := m.Store.CASStatus(ctx, id, SessionActive, SessionLocked); err != nil {
		return orders.Order{}, err
	}

	snap := orders.SessionSnapshot{
		ID:      s.ID,
		Status:  string(SessionLocked),
		CartRef: s.CartRef,
		UserID:  s.UserID,
	}
	if s.ShippingAddress != nil {
		snap.ShippingAddress = *s.ShippingAddress
	}
	if s.BillingAddress != nil {
		snap.BillingAddress = *s.BillingAddress
	}

	o, err := m.Factory.CreateOrderFromCart(ctx, snap, actor)
	if err != nil {
		// kembalikan ke status semula; caller boleh retry
		if rbErr := m.Store.CASStatus(ctx, id, SessionLocked, SessionActive); rbErr != nil {
			m.Log.WithError(rbErr).WithField("session_id", id).Error("session unlock failed")
		}
		return orders.Order{}, err
	}
	if err := m.Store.SetCompleted(ctx, id, o.ID); err != nil {
		m.Log.WithError(err).WithField("session_id", id).Error("session completion mark failed")
	}
	return o, nil
}

func (m *Manager) expired(s Session) bool {
	return !s.ExpiresAt.IsZero() && s.ExpiresAt.Before(m.Now())
}
