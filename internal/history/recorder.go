package history

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

type Store interface {
	Append(ctx context.Context, e Entry) error
	List(ctx context.Context, f Filter) ([]Entry, error)
}

// Recorder: audit log order. Gagal tulis hanya di-log, tidak pernah
// dilempar balik -- audit tidak boleh memblokir transaksi bisnis.
type Recorder struct {
	Store Store
	Log   logrus.FieldLogger
	Now   func() time.Time
}

func NewRecorder(store Store, log logrus.FieldLogger) *Recorder {
	return &Recorder{Store: store, Log: log, Now: func() time.Time { return time.Now().UTC() }}
}

func (r *Recorder) OrderCreated(ctx context.Context, orderRef, actor, description string) {
	r.append(ctx, Entry{
		OrderRef: orderRef, EventType: EventOrderCreated, Description: description,
		Actor: actor, Priority: PriorityNormal, IsCustomerVisible: true,
	})
}

func (r *Recorder) StatusChanged(ctx context.Context, orderRef, actor, description string) {
	r.append(ctx, Entry{
		OrderRef: orderRef, EventType: EventStatusChanged, Description: description,
		Actor: actor, Priority: PriorityNormal, IsCustomerVisible: true,
	})
}

func (r *Recorder) PaymentUpdated(ctx context.Context, orderRef, actor, description string) {
	r.append(ctx, Entry{
		OrderRef: orderRef, EventType: EventPaymentUpdated, Description: description,
		Actor: actor, Priority: PriorityHigh,
	})
}

func (r *Recorder) ShippingUpdated(ctx context.Context, orderRef, actor, description string) {
	r.append(ctx, Entry{
		OrderRef: orderRef, EventType: EventShippingUpdated, Description: description,
		Actor: actor, Priority: PriorityNormal, IsCustomerVisible: true,
	})
}

func (r *Recorder) AddressChanged(ctx context.Context, orderRef, actor, description string) {
	r.append(ctx, Entry{
		OrderRef: orderRef, EventType: EventAddressChanged, Description: description,
		Actor: actor, Priority: PriorityNormal,
	})
}

func (r *Recorder) NotesUpdated(ctx context.Context, orderRef, actor, description string) {
	r.append(ctx, Entry{
		OrderRef: orderRef, EventType: EventNotesUpdated, Description: description,
		Actor: actor, Priority: PriorityLow,
	})
}

func (r *Recorder) FraudFlagRaised(ctx context.Context, orderRef, actor, description string) {
	r.append(ctx, Entry{
		OrderRef: orderRef, EventType: EventFraudFlagRaised, Description: description,
		Actor: actor, Priority: PriorityCritical, RequiresFollowUp: true,
	})
}

func (r *Recorder) append(ctx context.Context, e Entry) {
	e.ID = uuid.NewString()
	e.CreatedAt = r.Now()
	if err := r.Store.Append(ctx, e); err != nil {
		r.Log.WithError(err).WithFields(logrus.Fields{
			"order_ref": e.OrderRef, "event_type": e.EventType,
		}).Error("order history write failed")
	}
}

func (r *Recorder) List(ctx context.Context, f Filter) ([]Entry, error) {
	return r.Store.List(ctx, f)
}

func (r *Recorder) Stats(ctx context.Context, orderRef string) (Stats, error) {
	entries, err := r.Store.List(ctx, Filter{OrderRef: orderRef})
	if err != nil {
		return Stats{}, err
	}
	s := Stats{ByEventType: map[EventType]int{}, ByPriority: map[Priority]int{}}
	for _, e := range entries {
		s.Total++
		s.ByEventType[e.EventType]++
		s.ByPriority[e.Priority]++
		if e.RequiresFollowUp {
			s.FollowUpCount++
		}
	}
	return s, nil
}

// Export: dump JSON utk compliance.
func (r *Recorder) Export(ctx context.Context, f Filter) ([]byte, error) {
	entries, err := r.Store.List(ctx, f)
	if err != nil {
		return nil, err
	}
	return json.MarshalIndent(entries, "", "  ")
}
